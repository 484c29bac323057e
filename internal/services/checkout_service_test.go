package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/onerilhan/go-credit-ledger/internal/apperrors"
	"github.com/onerilhan/go-credit-ledger/internal/models"
)

func newTestCheckoutService(store *memStore, provider *MockPaymentProvider) *CheckoutService {
	resolver := NewPackageResolver(testStripeConfig(), testCheckoutConfig(), provider)
	return NewCheckoutService(store, provider, resolver, testStripeConfig(), testCheckoutConfig(), nil, time.Second)
}

func TestCheckoutService_CreateSession_FixedPackage(t *testing.T) {
	// Arrange
	store := newMemStore()
	provider := new(MockPaymentProvider)
	service := newTestCheckoutService(store, provider)

	provider.On("CreateCheckoutSession", mock.Anything, mock.MatchedBy(func(req *models.CheckoutSessionRequest) bool {
		return req.PriceID == "price_mxn_50" &&
			req.Region == models.RegionMX &&
			req.UserID == "u1" &&
			!req.Adjustable &&
			req.SuccessURL == "https://app.example.com/?status=success&pkg=50&sid={CHECKOUT_SESSION_ID}" &&
			req.CancelURL == "https://app.example.com/?status=cancel"
	})).Return(&models.CheckoutSessionResult{SessionID: "cs_1", URL: "https://checkout.example/cs_1"}, nil)

	// Act
	resp, err := service.CreateSession(context.Background(), &models.CheckoutCommand{
		UserID:    "u1",
		PhoneE164: "+5215512345678",
		Selector:  "50",
	})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "cs_1", resp.SessionID)
	assert.Equal(t, resp.URL, resp.SessionURL)
	assert.Equal(t, models.RegionMX, resp.Region)
	assert.Equal(t, "50", resp.Pkg)

	order, ok := store.order("cs_1")
	require.True(t, ok)
	assert.Equal(t, models.OrderPending, order.Status)
	assert.Equal(t, int64(50), order.PackageCredits)
	provider.AssertExpectations(t)
}

func TestCheckoutService_CreateSession_Adjustable(t *testing.T) {
	store := newMemStore()
	provider := new(MockPaymentProvider)
	service := newTestCheckoutService(store, provider)

	provider.On("CreateCheckoutSession", mock.Anything, mock.MatchedBy(func(req *models.CheckoutSessionRequest) bool {
		return req.Adjustable &&
			req.PriceID == "price_usd_25" &&
			req.BaseUnitCredits == 25 &&
			req.MinQuantity == 1 &&
			req.MaxQuantity == 10 &&
			req.Package == AdjustablePackage &&
			req.RequestID != ""
	})).Return(&models.CheckoutSessionResult{SessionID: "cs_adj", URL: "https://checkout.example/cs_adj"}, nil)

	resp, err := service.CreateSession(context.Background(), &models.CheckoutCommand{
		UserID:  "u1",
		Signals: models.RegionSignals{GeoCountry: "US"},
	})

	require.NoError(t, err)
	assert.Equal(t, AdjustablePackage, resp.Pkg)
	assert.Equal(t, models.RegionINTL, resp.Region)

	order, ok := store.order("cs_adj")
	require.True(t, ok)
	assert.True(t, order.Adjustable)
	assert.Equal(t, int64(25), order.BaseUnitCredits)
}

func TestCheckoutService_CreateSession_PriceNotConfigured(t *testing.T) {
	store := newMemStore()
	provider := new(MockPaymentProvider)
	service := newTestCheckoutService(store, provider)

	_, err := service.CreateSession(context.Background(), &models.CheckoutCommand{UserID: "u1", Selector: "250"})

	var cfgErr *apperrors.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "PRICE_NOT_CONFIGURED", cfgErr.Code())
	provider.AssertNotCalled(t, "CreateCheckoutSession", mock.Anything, mock.Anything)
}

func TestCheckoutService_CreateSession_ProviderError(t *testing.T) {
	store := newMemStore()
	provider := new(MockPaymentProvider)
	service := newTestCheckoutService(store, provider)

	provider.On("CreateCheckoutSession", mock.Anything, mock.Anything).
		Return(nil, &apperrors.RetryableError{Op: "stripe", Err: errors.New("timeout")})

	_, err := service.CreateSession(context.Background(), &models.CheckoutCommand{UserID: "u1", Selector: "25"})

	assert.True(t, apperrors.IsRetryable(err))
	_, ok := store.order("")
	assert.False(t, ok)
}

func TestCheckoutService_Diagnostics(t *testing.T) {
	service := newTestCheckoutService(newMemStore(), new(MockPaymentProvider))

	diag := service.Diagnostics()

	assert.True(t, diag.OK)
	assert.True(t, diag.Present.MXN["250"])
	assert.False(t, diag.Present.USD["250"])
	assert.Equal(t, int64(25), diag.AdjustableFallback.BaseUnitCredits)
	assert.Equal(t, int64(10), diag.AdjustableFallback.Max)
}

func TestSuccessURL(t *testing.T) {
	assert.Equal(t, "https://a.example/?status=success&pkg=25&sid={CHECKOUT_SESSION_ID}", successURL("https://a.example/?status=success", "25"))
	assert.Equal(t, "https://a.example/done?pkg=adjustable&sid={CHECKOUT_SESSION_ID}", successURL("https://a.example/done", "adjustable"))
}
