// internal/interfaces/repository.go
package interfaces

import (
	"context"
	"time"

	"github.com/onerilhan/go-credit-ledger/internal/models"
)

// BalanceRepositoryInterface user_balances tablosu
type BalanceRepositoryInterface interface {
	// GetByUserID kilitsiz okuma; yoksa NotFoundError
	GetByUserID(ctx context.Context, userID string) (*models.UserBalance, error)

	// GetForUpdate satırı transaction sonuna kadar kilitler; yoksa NotFoundError
	GetForUpdate(ctx context.Context, userID string) (*models.UserBalance, error)

	// CreateIfAbsent sıfır bakiyeli satır ekler; eklendiyse true
	CreateIfAbsent(ctx context.Context, userID string) (bool, error)

	// Update kalan/toplam ve son mutasyon alanlarını yazar
	Update(ctx context.Context, balance *models.UserBalance) error
}

// MutationRepositoryInterface balance_mutations append-only log
type MutationRepositoryInterface interface {
	Append(ctx context.Context, mutation *models.BalanceMutation) error
	ListByUserID(ctx context.Context, userID string, limit, offset int) ([]*models.BalanceMutation, error)
}

// DebitRecordRepositoryInterface istek seviyesinde idempotency kayıtları
type DebitRecordRepositoryInterface interface {
	// Claim kaydı atomik olarak oluşturur; anahtar alınmışsa false
	Claim(ctx context.Context, record *models.DebitRecord) (bool, error)

	GetByRequestID(ctx context.Context, requestID string) (*models.DebitRecord, error)

	// Complete sonucu kayda yazar (replay için)
	Complete(ctx context.Context, requestID string, result models.BalanceSnapshot) error

	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// PaymentEventRepositoryInterface webhook event seviyesinde idempotency kayıtları
type PaymentEventRepositoryInterface interface {
	Exists(ctx context.Context, eventID string) (bool, error)

	// Claim event'i atomik olarak kaydeder; daha önce kaydedilmişse false
	Claim(ctx context.Context, event *models.PaymentEvent) (bool, error)

	GetByEventID(ctx context.Context, eventID string) (*models.PaymentEvent, error)

	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// OrderRepositoryInterface orders tablosu
type OrderRepositoryInterface interface {
	// CreatePending pending sipariş ekler; session zaten varsa false
	CreatePending(ctx context.Context, order *models.Order) (bool, error)

	GetBySessionID(ctx context.Context, sessionID string) (*models.Order, error)

	// GetForUpdate sipariş satırını kilitler; yoksa NotFoundError
	GetForUpdate(ctx context.Context, sessionID string) (*models.Order, error)

	// MarkPaid pending siparişi paid yapar; zaten paid ise DuplicateError
	MarkPaid(ctx context.Context, order *models.Order) error

	// HasPaidOrder kullanıcının verilen session dışında paid siparişi var mı
	HasPaidOrder(ctx context.Context, userID, excludeSessionID string) (bool, error)

	// DeletePendingOlderThan paid siparişlere dokunmaz
	DeletePendingOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// Repositories tek bir bağlantı / transaction üzerindeki repository seti
type Repositories interface {
	Balances() BalanceRepositoryInterface
	Mutations() MutationRepositoryInterface
	DebitRecords() DebitRecordRepositoryInterface
	PaymentEvents() PaymentEventRepositoryInterface
	Orders() OrderRepositoryInterface
}

// Store Repositories + transaction sınırı
type Store interface {
	Repositories

	// WithinTx fn'i tek bir serializable transaction'da çalıştırır
	WithinTx(ctx context.Context, fn func(repos Repositories) error) error
}
