package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/onerilhan/go-credit-ledger/internal/db"
	"github.com/onerilhan/go-credit-ledger/internal/models"
)

// MutationRepository balance_mutations (append-only) işlemleri
type MutationRepository struct {
	q db.DBTX
}

// NewMutationRepository yeni repository oluşturur
func NewMutationRepository(q db.DBTX) *MutationRepository {
	return &MutationRepository{q: q}
}

// Append yeni mutasyon kaydı ekler
func (r *MutationRepository) Append(ctx context.Context, m *models.BalanceMutation) error {
	meta, err := marshalMeta(m.Meta)
	if err != nil {
		return err
	}

	err = r.q.QueryRowContext(ctx, `
		INSERT INTO balance_mutations (user_id, delta, reason, meta, credits_remaining, credits_total)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`, m.UserID, m.Delta, string(m.Reason), meta, m.CreditsRemaining, m.CreditsTotal).Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		return fmt.Errorf("mutasyon kaydı oluşturulamadı: %w", err)
	}
	return nil
}

// ListByUserID kullanıcının mutasyon geçmişini yeniden eskiye listeler
func (r *MutationRepository) ListByUserID(ctx context.Context, userID string, limit, offset int) ([]*models.BalanceMutation, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT id, user_id, delta, reason, meta, credits_remaining, credits_total, created_at
		FROM balance_mutations
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("mutasyon geçmişi sorgulanamadı: %w", err)
	}
	defer rows.Close()

	var mutations []*models.BalanceMutation
	for rows.Next() {
		var (
			m      models.BalanceMutation
			reason string
			meta   []byte
		)
		if err := rows.Scan(&m.ID, &m.UserID, &m.Delta, &reason, &meta, &m.CreditsRemaining, &m.CreditsTotal, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("mutasyon satırı okunamadı: %w", err)
		}
		m.Reason = models.MutationReason(reason)
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &m.Meta); err != nil {
				return nil, fmt.Errorf("mutasyon meta verisi çözülemedi: %w", err)
			}
		}
		mutations = append(mutations, &m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("mutasyon geçmişi okunamadı: %w", err)
	}
	return mutations, nil
}
