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

// DebitRecordRepository debit_records işlemleri
type DebitRecordRepository struct {
	q db.DBTX
}

// NewDebitRecordRepository yeni repository oluşturur
func NewDebitRecordRepository(q db.DBTX) *DebitRecordRepository {
	return &DebitRecordRepository{q: q}
}

// Claim request_id'yi atomik olarak sahiplenir
func (r *DebitRecordRepository) Claim(ctx context.Context, record *models.DebitRecord) (bool, error) {
	var createdAt time.Time
	err := r.q.QueryRowContext(ctx, `
		INSERT INTO debit_records (request_id, user_id, amount, status)
		VALUES ($1, $2, $3, 'claimed')
		ON CONFLICT (request_id) DO NOTHING
		RETURNING created_at
	`, record.RequestID, record.UserID, record.Amount).Scan(&createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Çakışma: anahtar başka bir istek tarafından alınmış
			return false, nil
		}
		return false, fmt.Errorf("debit kaydı oluşturulamadı: %w", err)
	}

	record.Status = models.DebitClaimed
	record.CreatedAt = createdAt
	return true, nil
}

// GetByRequestID kaydı getirir
func (r *DebitRecordRepository) GetByRequestID(ctx context.Context, requestID string) (*models.DebitRecord, error) {
	var (
		record    models.DebitRecord
		status    string
		remaining sql.NullInt64
		total     sql.NullInt64
		completed sql.NullTime
	)
	err := r.q.QueryRowContext(ctx, `
		SELECT request_id, user_id, amount, status, credits_remaining, credits_total, created_at, completed_at
		FROM debit_records
		WHERE request_id = $1
	`, requestID).Scan(&record.RequestID, &record.UserID, &record.Amount, &status, &remaining, &total, &record.CreatedAt, &completed)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &apperrors.NotFoundError{Resource: "debit kaydı", ID: requestID}
		}
		return nil, fmt.Errorf("debit kaydı sorgulanamadı: %w", err)
	}

	record.Status = models.DebitStatus(status)
	record.CreditsRemaining = remaining.Int64
	record.CreditsTotal = total.Int64
	if completed.Valid {
		record.CompletedAt = &completed.Time
	}
	return &record, nil
}

// Complete sonucu kayda yazar
func (r *DebitRecordRepository) Complete(ctx context.Context, requestID string, result models.BalanceSnapshot) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE debit_records
		SET status = 'completed', credits_remaining = $2, credits_total = $3, completed_at = NOW()
		WHERE request_id = $1
	`, requestID, result.CreditsRemaining, result.CreditsTotal)
	if err != nil {
		return fmt.Errorf("debit kaydı tamamlanamadı: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("debit tamamlama sonucu okunamadı: %w", err)
	}
	if affected == 0 {
		return &apperrors.NotFoundError{Resource: "debit kaydı", ID: requestID}
	}
	return nil
}

// DeleteOlderThan saklama süresi dolan kayıtları siler
func (r *DebitRecordRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.q.ExecContext(ctx, `DELETE FROM debit_records WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("eski debit kayıtları silinemedi: %w", err)
	}
	return res.RowsAffected()
}
