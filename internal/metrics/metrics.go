package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/onerilhan/go-credit-ledger/internal/apperrors"
)

const namespace = "credit_ledger"

// Debit sonuç etiketleri
const (
	DebitApplied      = "applied"
	DebitReplayed     = "replayed"
	DebitInsufficient = "insufficient"
	DebitNotFound     = "not_found"
	DebitFailed       = "failed"
)

// LedgerMetrics ledger ve HTTP sayaçları
type LedgerMetrics struct {
	mutations       *prometheus.CounterVec
	creditsMoved    *prometheus.CounterVec
	debits          *prometheus.CounterVec
	webhookEvents   *prometheus.CounterVec
	checkouts       *prometheus.CounterVec
	retentionPruned *prometheus.CounterVec
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
	httpInFlight    prometheus.Gauge
	gatherer        prometheus.Gatherer
}

var (
	defaultOnce    sync.Once
	defaultMetrics *LedgerMetrics
)

// Default process geneli metrik seti (prometheus.DefaultRegisterer)
func Default() *LedgerMetrics {
	defaultOnce.Do(func() {
		defaultMetrics = New(prometheus.DefaultRegisterer, prometheus.DefaultGatherer)
	})
	return defaultMetrics
}

// New verilen registerer üzerinde metrikleri oluşturur; testler ayrı registry kullanır
func New(registerer prometheus.Registerer, gatherer prometheus.Gatherer) *LedgerMetrics {
	m := &LedgerMetrics{
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "balance_mutations_total",
			Help:      "Uygulanan bakiye mutasyonları",
		}, []string{"reason"}),
		creditsMoved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "credits_moved_total",
			Help:      "Verilen ve harcanan kredi miktarı",
		}, []string{"direction"}),
		debits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "debits_total",
			Help:      "Debit istekleri sonuca göre",
		}, []string{"result"}),
		webhookEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_events_total",
			Help:      "İşlenen webhook event'leri",
		}, []string{"event_type", "outcome"}),
		checkouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkout_sessions_total",
			Help:      "Oluşturulan checkout session'ları",
		}, []string{"region", "flow"}),
		retentionPruned: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retention_pruned_total",
			Help:      "Saklama süresi dolduğu için silinen kayıtlar",
		}, []string{"table"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP istekleri",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP istek süreleri",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		httpInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_requests_in_flight",
			Help:      "İşlenmekte olan HTTP istekleri",
		}),
		gatherer: gatherer,
	}

	registerer.MustRegister(
		m.mutations,
		m.creditsMoved,
		m.debits,
		m.webhookEvents,
		m.checkouts,
		m.retentionPruned,
		m.httpRequests,
		m.httpDuration,
		m.httpInFlight,
	)
	return m
}

// Handler /metrics endpoint'i
func (m *LedgerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// ObserveMutation commit edilmiş bir mutasyonu kaydeder
func (m *LedgerMetrics) ObserveMutation(reason string, delta int64) {
	if m == nil {
		return
	}
	m.mutations.WithLabelValues(reason).Inc()
	if delta > 0 {
		m.creditsMoved.WithLabelValues("granted").Add(float64(delta))
	} else {
		m.creditsMoved.WithLabelValues("spent").Add(float64(-delta))
	}
}

// ObserveDebit debit sonucunu kaydeder
func (m *LedgerMetrics) ObserveDebit(result string) {
	if m == nil {
		return
	}
	m.debits.WithLabelValues(result).Inc()
}

// ObserveWebhook webhook event sonucunu kaydeder
func (m *LedgerMetrics) ObserveWebhook(eventType, outcome string) {
	if m == nil {
		return
	}
	m.webhookEvents.WithLabelValues(eventType, outcome).Inc()
}

// ObserveCheckout checkout session oluşturmayı kaydeder
func (m *LedgerMetrics) ObserveCheckout(region, flow string) {
	if m == nil {
		return
	}
	m.checkouts.WithLabelValues(region, flow).Inc()
}

// ObservePruned retention worker silme sayısı
func (m *LedgerMetrics) ObservePruned(table string, count int64) {
	if m == nil || count <= 0 {
		return
	}
	m.retentionPruned.WithLabelValues(table).Add(float64(count))
}

// ObserveHTTP tamamlanan isteği kaydeder
func (m *LedgerMetrics) ObserveHTTP(method, route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// InFlight aktif istek sayacı; dönen fonksiyon istek bitince çağrılır
func (m *LedgerMetrics) InFlight() func() {
	if m == nil {
		return func() {}
	}
	m.httpInFlight.Inc()
	return m.httpInFlight.Dec
}

// ClassifyDebitError debit hatasını sonuç etiketine çevirir
func ClassifyDebitError(err error) string {
	var insufficient *apperrors.InsufficientCreditsError
	switch {
	case err == nil:
		return DebitApplied
	case errors.As(err, &insufficient):
		return DebitInsufficient
	case apperrors.IsNotFound(err):
		return DebitNotFound
	default:
		return DebitFailed
	}
}
