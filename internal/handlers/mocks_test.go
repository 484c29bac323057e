package handlers

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/onerilhan/go-credit-ledger/internal/interfaces"
	"github.com/onerilhan/go-credit-ledger/internal/models"
)

// MockAccountService AccountServiceInterface mock'u
type MockAccountService struct {
	mock.Mock
}

var _ interfaces.AccountServiceInterface = (*MockAccountService)(nil)

func (m *MockAccountService) Signup(ctx context.Context, userID, phoneE164 string) (*models.SignupResult, error) {
	args := m.Called(ctx, userID, phoneE164)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SignupResult), args.Error(1)
}

func (m *MockAccountService) GetAccount(ctx context.Context, userID, phoneE164 string) (*models.AccountView, error) {
	args := m.Called(ctx, userID, phoneE164)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AccountView), args.Error(1)
}

func (m *MockAccountService) GetHistory(ctx context.Context, userID string, limit, offset int) ([]*models.BalanceMutation, error) {
	args := m.Called(ctx, userID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.BalanceMutation), args.Error(1)
}

// MockDebitService DebitServiceInterface mock'u
type MockDebitService struct {
	mock.Mock
}

var _ interfaces.DebitServiceInterface = (*MockDebitService)(nil)

func (m *MockDebitService) Debit(ctx context.Context, cmd *models.DebitCommand) (*models.DebitResult, error) {
	args := m.Called(ctx, cmd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DebitResult), args.Error(1)
}

// MockCheckoutService CheckoutServiceInterface mock'u
type MockCheckoutService struct {
	mock.Mock
}

var _ interfaces.CheckoutServiceInterface = (*MockCheckoutService)(nil)

func (m *MockCheckoutService) CreateSession(ctx context.Context, cmd *models.CheckoutCommand) (*models.CheckoutResponse, error) {
	args := m.Called(ctx, cmd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CheckoutResponse), args.Error(1)
}

func (m *MockCheckoutService) Diagnostics() *models.PaymentDiagnostics {
	args := m.Called()
	return args.Get(0).(*models.PaymentDiagnostics)
}

// MockReconciliationService ReconciliationServiceInterface mock'u
type MockReconciliationService struct {
	mock.Mock
}

var _ interfaces.ReconciliationServiceInterface = (*MockReconciliationService)(nil)

func (m *MockReconciliationService) HandleWebhook(ctx context.Context, payload []byte, signature string) (*models.WebhookResult, error) {
	args := m.Called(ctx, payload, signature)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.WebhookResult), args.Error(1)
}

func (m *MockReconciliationService) ConfirmSession(ctx context.Context, userID, sessionID string) (*models.ReconcileResult, error) {
	args := m.Called(ctx, userID, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ReconcileResult), args.Error(1)
}

type fakePinger struct {
	err error
}

func (p fakePinger) PingContext(context.Context) error { return p.err }
