// internal/interfaces/service.go
package interfaces

import (
	"context"

	"github.com/onerilhan/go-credit-ledger/internal/models"
)

// LedgerServiceInterface atomik bakiye mutasyonu
type LedgerServiceInterface interface {
	ApplyDelta(ctx context.Context, userID string, delta int64, reason models.MutationReason, meta models.MutationMeta) (models.BalanceSnapshot, error)
	ApplyDeltaTx(ctx context.Context, repos Repositories, userID string, delta int64, reason models.MutationReason, meta models.MutationMeta) (models.BalanceSnapshot, error)
}

// DebitServiceInterface idempotent kredi düşümü
type DebitServiceInterface interface {
	Debit(ctx context.Context, cmd *models.DebitCommand) (*models.DebitResult, error)
}

// AccountServiceInterface signup bonusu ve bakiye okuma
type AccountServiceInterface interface {
	Signup(ctx context.Context, userID, phoneE164 string) (*models.SignupResult, error)
	GetAccount(ctx context.Context, userID, phoneE164 string) (*models.AccountView, error)
	GetHistory(ctx context.Context, userID string, limit, offset int) ([]*models.BalanceMutation, error)
}

// CheckoutServiceInterface checkout session fabrikası
type CheckoutServiceInterface interface {
	CreateSession(ctx context.Context, cmd *models.CheckoutCommand) (*models.CheckoutResponse, error)
	Diagnostics() *models.PaymentDiagnostics
}

// ReconciliationServiceInterface webhook ve client confirm uzlaştırması
type ReconciliationServiceInterface interface {
	HandleWebhook(ctx context.Context, payload []byte, signature string) (*models.WebhookResult, error)
	ConfirmSession(ctx context.Context, userID, sessionID string) (*models.ReconcileResult, error)
}
