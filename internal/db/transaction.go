package db

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"github.com/onerilhan/go-credit-ledger/internal/apperrors"
)

// TransactionFunc database transaction içinde çalışacak fonksiyon tipi
type TransactionFunc func(tx *sql.Tx) error

// TxOptions transaction retry ve timeout ayarları
type TxOptions struct {
	// Serialization conflict'lerinde toplam deneme sayısı
	MaxAttempts int
	// Denemeler arası bekleme (deneme sayısı ile çarpılır)
	Backoff time.Duration
	// Her denemenin üst süresi
	Timeout time.Duration
}

// DefaultTxOptions varsayılan transaction ayarları
func DefaultTxOptions() TxOptions {
	return TxOptions{
		MaxAttempts: 3,
		Backoff:     20 * time.Millisecond,
		Timeout:     5 * time.Second,
	}
}

// WithTransaction fn'i SERIALIZABLE bir transaction içinde çalıştırır.
// Hata durumunda rollback, başarı durumunda commit yapar; serialization
// conflict'lerinde MaxAttempts'e kadar yeniden dener. Geçici hatalar
// apperrors.RetryableError olarak döner.
func WithTransaction(ctx context.Context, db *sql.DB, opts TxOptions, fn TransactionFunc) error {
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}

	var err error
	for attempt := 1; attempt <= opts.MaxAttempts; attempt++ {
		err = runOnce(ctx, db, opts.Timeout, fn)
		if err == nil {
			return nil
		}
		if !IsSerializationFailure(err) || attempt == opts.MaxAttempts {
			break
		}

		log.Debug().
			Err(err).
			Int("attempt", attempt).
			Msg("Serialization conflict, transaction yeniden deneniyor")

		select {
		case <-time.After(opts.Backoff * time.Duration(attempt)):
		case <-ctx.Done():
			return &apperrors.RetryableError{Op: "transaction", Err: ctx.Err()}
		}
	}

	return ClassifyError("transaction", err)
}

func runOnce(ctx context.Context, db *sql.DB, timeout time.Duration, fn TransactionFunc) (err error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	// Transaction başlat
	tx, err := db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("transaction başlatılamadı: %w", err)
	}

	// Defer ile transaction'ı yönet
	defer func() {
		if r := recover(); r != nil {
			// Panic durumunda rollback
			if rollbackErr := tx.Rollback(); rollbackErr != nil {
				log.Error().Err(rollbackErr).Msg("Rollback hatası (panic)")
			}
			log.Error().Interface("panic", r).Msg("Transaction panic ile rollback yapıldı")
			panic(r) // Panic'i yeniden fırlat
		}
	}()

	// İş mantığını çalıştır
	if err := fn(tx); err != nil {
		if rollbackErr := tx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
			log.Error().Err(rollbackErr).Msg("Rollback hatası")
		}
		return err
	}

	// Başarı durumunda commit
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("transaction commit hatası: %w", err)
	}

	return nil
}

// IsSerializationFailure PostgreSQL serialization_failure / deadlock_detected
func IsSerializationFailure(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "40001" || pqErr.Code == "40P01"
	}
	return false
}

// isTransient tekrar denendiğinde başarılı olabilecek hatalar
func isTransient(err error) bool {
	if err == nil {
		return false
	}
	if IsSerializationFailure(err) {
		return true
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch {
		case pqErr.Code == "55P03", // lock_not_available
			pqErr.Code == "57014", // query_canceled (statement_timeout)
			pqErr.Code == "53300", // too_many_connections
			pqErr.Code.Class() == "08": // connection_exception
			return true
		}
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) ||
		errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return true
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}

// ClassifyError geçici hataları RetryableError'a sarar; domain hatalarını olduğu gibi bırakır
func ClassifyError(op string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := apperrors.AsAPIError(err); ok {
		return err
	}
	if isTransient(err) {
		return &apperrors.RetryableError{Op: op, Err: err}
	}
	return err
}
