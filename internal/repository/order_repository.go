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

const orderColumns = `session_id, user_id, COALESCE(package, ''), package_credits, region, status,
	first_purchase, reward_given, adjustable, base_unit_credits, quantity,
	amount_total, COALESCE(currency, ''), created_at, updated_at, paid_at`

// OrderRepository orders işlemleri
type OrderRepository struct {
	q db.DBTX
}

// NewOrderRepository yeni repository oluşturur
func NewOrderRepository(q db.DBTX) *OrderRepository {
	return &OrderRepository{q: q}
}

// CreatePending pending sipariş ekler; session zaten varsa false
func (r *OrderRepository) CreatePending(ctx context.Context, order *models.Order) (bool, error) {
	err := r.q.QueryRowContext(ctx, `
		INSERT INTO orders (session_id, user_id, package, package_credits, region, status, adjustable, base_unit_credits)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, 'pending', $6, NULLIF($7, 0))
		ON CONFLICT (session_id) DO NOTHING
		RETURNING created_at, updated_at
	`, order.SessionID, order.UserID, order.Package, order.PackageCredits, string(order.Region),
		order.Adjustable, order.BaseUnitCredits).Scan(&order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("sipariş oluşturulamadı: %w", err)
	}
	order.Status = models.OrderPending
	return true, nil
}

// GetBySessionID siparişi getirir
func (r *OrderRepository) GetBySessionID(ctx context.Context, sessionID string) (*models.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE session_id = $1`
	return r.scan(r.q.QueryRowContext(ctx, query, sessionID), sessionID)
}

// GetForUpdate sipariş satırını kilitler
func (r *OrderRepository) GetForUpdate(ctx context.Context, sessionID string) (*models.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE session_id = $1 FOR UPDATE`
	return r.scan(r.q.QueryRowContext(ctx, query, sessionID), sessionID)
}

func (r *OrderRepository) scan(row *sql.Row, sessionID string) (*models.Order, error) {
	var (
		order    models.Order
		region   string
		status   string
		baseUnit sql.NullInt64
		quantity sql.NullInt64
		amount   sql.NullInt64
		paidAt   sql.NullTime
	)
	err := row.Scan(
		&order.SessionID, &order.UserID, &order.Package, &order.PackageCredits, &region, &status,
		&order.FirstPurchase, &order.RewardGiven, &order.Adjustable, &baseUnit, &quantity,
		&amount, &order.Currency, &order.CreatedAt, &order.UpdatedAt, &paidAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &apperrors.NotFoundError{Resource: "sipariş", ID: sessionID}
		}
		return nil, fmt.Errorf("sipariş sorgulanamadı: %w", err)
	}

	order.Region = models.Region(region)
	order.Status = models.OrderStatus(status)
	order.BaseUnitCredits = baseUnit.Int64
	order.Quantity = quantity.Int64
	order.AmountTotal = amount.Int64
	if paidAt.Valid {
		order.PaidAt = &paidAt.Time
	}
	return &order, nil
}

// MarkPaid pending siparişi paid yapar. Sadece status = 'pending' satırı güncellenir.
func (r *OrderRepository) MarkPaid(ctx context.Context, order *models.Order) error {
	var paidAt time.Time
	err := r.q.QueryRowContext(ctx, `
		UPDATE orders
		SET status = 'paid',
		    package = NULLIF($2, ''),
		    package_credits = $3,
		    region = $4,
		    first_purchase = $5,
		    reward_given = $6,
		    adjustable = $7,
		    base_unit_credits = NULLIF($8, 0),
		    quantity = NULLIF($9, 0),
		    amount_total = $10,
		    currency = NULLIF($11, ''),
		    updated_at = NOW(),
		    paid_at = NOW()
		WHERE session_id = $1 AND status = 'pending'
		RETURNING paid_at
	`, order.SessionID, order.Package, order.PackageCredits, string(order.Region), order.FirstPurchase,
		order.RewardGiven, order.Adjustable, order.BaseUnitCredits, order.Quantity, order.AmountTotal,
		order.Currency).Scan(&paidAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &apperrors.DuplicateError{Key: order.SessionID}
		}
		return fmt.Errorf("sipariş güncellenemedi: %w", err)
	}

	order.Status = models.OrderPaid
	order.PaidAt = &paidAt
	order.UpdatedAt = paidAt
	return nil
}

// HasPaidOrder kullanıcının bu session dışında ödenmiş siparişi var mı
func (r *OrderRepository) HasPaidOrder(ctx context.Context, userID, excludeSessionID string) (bool, error) {
	var exists bool
	err := r.q.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM orders
			WHERE user_id = $1 AND status = 'paid' AND session_id <> $2
		)
	`, userID, excludeSessionID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("önceki sipariş kontrolü başarısız: %w", err)
	}
	return exists, nil
}

// DeletePendingOlderThan eski pending siparişleri siler
func (r *OrderRepository) DeletePendingOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.q.ExecContext(ctx, `DELETE FROM orders WHERE status = 'pending' AND created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("eski siparişler silinemedi: %w", err)
	}
	return res.RowsAffected()
}
