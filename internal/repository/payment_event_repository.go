package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/onerilhan/go-credit-ledger/internal/apperrors"
	"github.com/onerilhan/go-credit-ledger/internal/db"
	"github.com/onerilhan/go-credit-ledger/internal/models"
)

// PaymentEventRepository payment_events işlemleri
type PaymentEventRepository struct {
	q db.DBTX
}

// NewPaymentEventRepository yeni repository oluşturur
func NewPaymentEventRepository(q db.DBTX) *PaymentEventRepository {
	return &PaymentEventRepository{q: q}
}

// Exists event daha önce işlendi mi
func (r *PaymentEventRepository) Exists(ctx context.Context, eventID string) (bool, error) {
	var exists bool
	err := r.q.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM payment_events WHERE event_id = $1)`, eventID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("event kontrolü başarısız: %w", err)
	}
	return exists, nil
}

// Claim event'i kaydeder; event_id zaten varsa false
func (r *PaymentEventRepository) Claim(ctx context.Context, event *models.PaymentEvent) (bool, error) {
	err := r.q.QueryRowContext(ctx, `
		INSERT INTO payment_events (event_id, event_type, session_id, outcome, reason)
		VALUES ($1, $2, NULLIF($3, ''), $4, NULLIF($5, ''))
		ON CONFLICT (event_id) DO NOTHING
		RETURNING processed_at
	`, event.EventID, event.EventType, event.SessionID, string(event.Outcome), event.Reason).Scan(&event.ProcessedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("event kaydedilemedi: %w", err)
	}
	return true, nil
}

// GetByEventID kaydı getirir
func (r *PaymentEventRepository) GetByEventID(ctx context.Context, eventID string) (*models.PaymentEvent, error) {
	var (
		event   models.PaymentEvent
		outcome string
	)
	err := r.q.QueryRowContext(ctx, `
		SELECT event_id, event_type, COALESCE(session_id, ''), outcome, COALESCE(reason, ''), processed_at
		FROM payment_events
		WHERE event_id = $1
	`, eventID).Scan(&event.EventID, &event.EventType, &event.SessionID, &outcome, &event.Reason, &event.ProcessedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &apperrors.NotFoundError{Resource: "event", ID: eventID}
		}
		return nil, fmt.Errorf("event sorgulanamadı: %w", err)
	}
	event.Outcome = models.EventOutcome(outcome)
	return &event, nil
}

// DeleteOlderThan saklama süresi dolan event kayıtlarını siler
func (r *PaymentEventRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.q.ExecContext(ctx, `DELETE FROM payment_events WHERE processed_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("eski event kayıtları silinemedi: %w", err)
	}
	return res.RowsAffected()
}
