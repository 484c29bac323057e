package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/onerilhan/go-credit-ledger/internal/apperrors"
	"github.com/onerilhan/go-credit-ledger/internal/db"
	"github.com/onerilhan/go-credit-ledger/internal/models"
)

const balanceColumns = `user_id, credits_remaining, credits_total, COALESCE(last_mutation_reason, ''), last_mutation_meta, created_at, updated_at`

// BalanceRepository user_balances database işlemleri
type BalanceRepository struct {
	q db.DBTX
}

// NewBalanceRepository yeni repository oluşturur
func NewBalanceRepository(q db.DBTX) *BalanceRepository {
	return &BalanceRepository{q: q}
}

// GetByUserID kullanıcının bakiyesini getirir
func (r *BalanceRepository) GetByUserID(ctx context.Context, userID string) (*models.UserBalance, error) {
	query := `SELECT ` + balanceColumns + ` FROM user_balances WHERE user_id = $1`
	return r.scan(r.q.QueryRowContext(ctx, query, userID), userID)
}

// GetForUpdate bakiye satırını transaction sonuna kadar kilitler
func (r *BalanceRepository) GetForUpdate(ctx context.Context, userID string) (*models.UserBalance, error) {
	query := `SELECT ` + balanceColumns + ` FROM user_balances WHERE user_id = $1 FOR UPDATE`
	return r.scan(r.q.QueryRowContext(ctx, query, userID), userID)
}

func (r *BalanceRepository) scan(row *sql.Row, userID string) (*models.UserBalance, error) {
	var (
		balance models.UserBalance
		reason  string
		meta    []byte
	)
	err := row.Scan(
		&balance.UserID,
		&balance.CreditsRemaining,
		&balance.CreditsTotal,
		&reason,
		&meta,
		&balance.CreatedAt,
		&balance.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &apperrors.NotFoundError{Resource: "bakiye", ID: userID}
		}
		return nil, fmt.Errorf("bakiye sorgusu hatası: %w", err)
	}

	balance.LastMutationReason = models.MutationReason(reason)
	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &balance.LastMutationMeta); err != nil {
			return nil, fmt.Errorf("bakiye meta verisi çözülemedi: %w", err)
		}
	}
	return &balance, nil
}

// CreateIfAbsent sıfır bakiyeli satır oluşturur; satır zaten varsa false döner
func (r *BalanceRepository) CreateIfAbsent(ctx context.Context, userID string) (bool, error) {
	res, err := r.q.ExecContext(ctx, `
		INSERT INTO user_balances (user_id, credits_remaining, credits_total)
		VALUES ($1, 0, 0)
		ON CONFLICT (user_id) DO NOTHING
	`, userID)
	if err != nil {
		return false, fmt.Errorf("bakiye oluşturulamadı: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("bakiye oluşturma sonucu okunamadı: %w", err)
	}
	return affected > 0, nil
}

// Update bakiyeyi ve son mutasyon bilgisini yazar
func (r *BalanceRepository) Update(ctx context.Context, balance *models.UserBalance) error {
	meta, err := marshalMeta(balance.LastMutationMeta)
	if err != nil {
		return err
	}

	err = r.q.QueryRowContext(ctx, `
		UPDATE user_balances
		SET credits_remaining = $2,
		    credits_total = $3,
		    last_mutation_reason = $4,
		    last_mutation_meta = $5,
		    updated_at = NOW()
		WHERE user_id = $1
		RETURNING updated_at
	`, balance.UserID, balance.CreditsRemaining, balance.CreditsTotal, string(balance.LastMutationReason), meta).Scan(&balance.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &apperrors.NotFoundError{Resource: "bakiye", ID: balance.UserID}
		}
		return fmt.Errorf("bakiye güncellenemedi: %w", err)
	}
	return nil
}

func marshalMeta(meta models.MutationMeta) ([]byte, error) {
	if meta == nil {
		return []byte("{}"), nil
	}
	b, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("meta verisi serileştirilemedi: %w", err)
	}
	return b, nil
}
