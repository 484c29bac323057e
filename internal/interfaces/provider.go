package interfaces

import (
	"context"

	"github.com/onerilhan/go-credit-ledger/internal/models"
)

// PaymentProvider ödeme sağlayıcı (Stripe) sınırı
type PaymentProvider interface {
	// VerifyWebhook ham gövde üzerinde imzayı doğrular ve event'i çözer
	VerifyWebhook(payload []byte, signature string) (*models.ProviderEvent, error)

	CreateCheckoutSession(ctx context.Context, req *models.CheckoutSessionRequest) (*models.CheckoutSessionResult, error)

	// GetSession line item'lar genişletilmiş session'ı sağlayıcıdan okur
	GetSession(ctx context.Context, sessionID string) (*models.ProviderSession, error)
}

// SeenCache idempotency anahtarları için yetkisiz (advisory) hızlı yol.
// Kaynak her zaman veritabanıdır; cache hatası işlemi durdurmaz.
type SeenCache interface {
	Seen(ctx context.Context, key string) (bool, error)
	MarkSeen(ctx context.Context, key string) error
}
