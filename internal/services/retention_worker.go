package services

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/onerilhan/go-credit-ledger/internal/interfaces"
	"github.com/onerilhan/go-credit-ledger/internal/metrics"
)

// PruneReport bir temizlik turunun sonucu
type PruneReport struct {
	DebitRecords  int64
	PaymentEvents int64
	PendingOrders int64
}

// RetentionWorker süresi dolan idempotency kayıtlarını periyodik olarak siler.
// Paid siparişlere dokunmaz: first_purchase hesabı onlara dayanır.
type RetentionWorker struct {
	store    interfaces.Store
	metrics  *metrics.LedgerMetrics
	window   time.Duration
	interval time.Duration
	timeout  time.Duration
	now      func() time.Time

	stopChan chan struct{}
	wg       sync.WaitGroup
	once     sync.Once
}

// NewRetentionWorker yeni worker oluşturur
func NewRetentionWorker(store interfaces.Store, m *metrics.LedgerMetrics, window, interval, timeout time.Duration) *RetentionWorker {
	return &RetentionWorker{
		store:    store,
		metrics:  m,
		window:   window,
		interval: interval,
		timeout:  timeout,
		now:      time.Now,
		stopChan: make(chan struct{}),
	}
}

// Start arka plan döngüsünü başlatır
func (w *RetentionWorker) Start() {
	log.Info().
		Dur("window", w.window).
		Dur("interval", w.interval).
		Msg("🔄 Retention worker başlatıldı")

	w.wg.Add(1)
	go w.loop()
}

// Stop döngüyü durdurur ve bitmesini bekler
func (w *RetentionWorker) Stop() {
	w.once.Do(func() { close(w.stopChan) })
	w.wg.Wait()
	log.Info().Msg("⏹️ Retention worker durduruldu")
}

func (w *RetentionWorker) loop() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopChan:
			return
		case <-ticker.C:
			w.safeRun()
		}
	}
}

// safeRun panik bir turu öldürür, worker'ı değil
func (w *RetentionWorker) safeRun() {
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Interface("recover", r).
				Msg("🚨 Retention worker panikledi ama toparlandı")
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-w.stopChan:
			cancel()
		case <-ctx.Done():
		}
	}()

	if _, err := w.RunOnce(ctx); err != nil {
		log.Error().Err(err).Msg("❌ Retention turu başarısız")
	}
}

// RunOnce tek bir temizlik turu çalıştırır
func (w *RetentionWorker) RunOnce(ctx context.Context) (*PruneReport, error) {
	cutoff := w.now().Add(-w.window)
	report := &PruneReport{}

	steps := []struct {
		table string
		count *int64
		run   func(ctx context.Context) (int64, error)
	}{
		{"debit_records", &report.DebitRecords, func(ctx context.Context) (int64, error) {
			return w.store.DebitRecords().DeleteOlderThan(ctx, cutoff)
		}},
		{"payment_events", &report.PaymentEvents, func(ctx context.Context) (int64, error) {
			return w.store.PaymentEvents().DeleteOlderThan(ctx, cutoff)
		}},
		{"orders", &report.PendingOrders, func(ctx context.Context) (int64, error) {
			return w.store.Orders().DeletePendingOlderThan(ctx, cutoff)
		}},
	}

	for _, step := range steps {
		stepCtx, cancel := withStoreTimeout(ctx, w.timeout)
		n, err := step.run(stepCtx)
		cancel()
		if err != nil {
			return report, err
		}
		*step.count = n
		w.metrics.ObservePruned(step.table, n)
	}

	log.Info().
		Time("cutoff", cutoff).
		Int64("debit_records", report.DebitRecords).
		Int64("payment_events", report.PaymentEvents).
		Int64("pending_orders", report.PendingOrders).
		Msg("🧹 Retention turu tamamlandı")

	return report, nil
}
