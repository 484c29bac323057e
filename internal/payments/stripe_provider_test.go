package payments

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v76/webhook"

	"github.com/onerilhan/go-credit-ledger/internal/apperrors"
	"github.com/onerilhan/go-credit-ledger/internal/config"
	"github.com/onerilhan/go-credit-ledger/internal/models"
)

const testWebhookSecret = "whsec_test_secret"

const completedPayload = `{
  "id": "evt_1",
  "object": "event",
  "type": "checkout.session.completed",
  "api_version": "2020-08-27",
  "data": {
    "object": {
      "id": "cs_1",
      "object": "checkout.session",
      "client_reference_id": "u1",
      "payment_status": "paid",
      "amount_total": 9900,
      "currency": "mxn",
      "metadata": {"package": "25", "region": "MX"}
    }
  }
}`

func newTestProvider(apiURL string) *StripeProvider {
	return NewStripeProvider(config.StripeConfig{
		SecretKey:        "sk_test_123",
		WebhookSecret:    testWebhookSecret,
		APIURL:           apiURL,
		WebhookTolerance: 5 * time.Minute,
	})
}

func sign(payload string, secret string) string {
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   []byte(payload),
		Secret:    secret,
		Timestamp: time.Now(),
	})
	return signed.Header
}

func TestVerifyWebhook_ValidSignature(t *testing.T) {
	// Arrange
	provider := newTestProvider("")

	// Act
	event, err := provider.VerifyWebhook([]byte(completedPayload), sign(completedPayload, testWebhookSecret))

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "evt_1", event.ID)
	assert.Equal(t, models.EventCheckoutCompleted, event.Type)
	require.NotNil(t, event.Session)
	assert.Equal(t, "u1", event.Session.UserID())
	assert.True(t, event.Session.IsSettled())
	assert.Equal(t, int64(9900), event.Session.AmountTotal)
	assert.Equal(t, "25", event.Session.Metadata["package"])
	assert.False(t, event.Session.LineItemsLoaded)
}

func TestVerifyWebhook_Rejections(t *testing.T) {
	provider := newTestProvider("")

	tests := []struct {
		name      string
		payload   string
		signature string
	}{
		{name: "yanlış secret", payload: completedPayload, signature: sign(completedPayload, "whsec_other")},
		{name: "değiştirilmiş gövde", payload: completedPayload + " ", signature: sign(completedPayload, testWebhookSecret)},
		{name: "header yok", payload: completedPayload, signature: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := provider.VerifyWebhook([]byte(tt.payload), tt.signature)

			var sigErr *apperrors.SignatureError
			assert.ErrorAs(t, err, &sigErr)
		})
	}
}

func TestVerifyWebhook_MissingSecret(t *testing.T) {
	provider := NewStripeProvider(config.StripeConfig{})

	_, err := provider.VerifyWebhook([]byte(completedPayload), "t=1,v1=abc")

	var cfgErr *apperrors.ConfigurationError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestCreateCheckoutSession_Adjustable(t *testing.T) {
	// Arrange: Stripe API yerine httptest
	var form url.Values
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/checkout/sessions", r.URL.Path)
		assert.Equal(t, "checkout-req-1", r.Header.Get("Idempotency-Key"))

		body, _ := io.ReadAll(r.Body)
		form, _ = url.ParseQuery(string(body))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"cs_new","object":"checkout.session","url":"https://checkout.stripe.com/c/cs_new"}`))
	}))
	defer server.Close()

	provider := newTestProvider(server.URL)

	// Act
	result, err := provider.CreateCheckoutSession(context.Background(), &models.CheckoutSessionRequest{
		UserID:          "u1",
		PhoneE164:       "+5215512345678",
		RequestID:       "req-1",
		Region:          models.RegionMX,
		PriceID:         "price_mxn_25",
		Package:         "adjustable",
		Adjustable:      true,
		BaseUnitCredits: 25,
		MinQuantity:     1,
		MaxQuantity:     10,
		SuccessURL:      "https://app.example.com/?status=success&pkg=adjustable&sid={CHECKOUT_SESSION_ID}",
		CancelURL:       "https://app.example.com/?status=cancel",
	})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "cs_new", result.SessionID)
	assert.Equal(t, "https://checkout.stripe.com/c/cs_new", result.URL)

	assert.Equal(t, "payment", form.Get("mode"))
	assert.Equal(t, "u1", form.Get("client_reference_id"))
	assert.Equal(t, "true", form.Get("allow_promotion_codes"))
	assert.Equal(t, "auto", form.Get("billing_address_collection"))
	assert.Equal(t, "price_mxn_25", form.Get("line_items[0][price]"))
	assert.Equal(t, "true", form.Get("line_items[0][adjustable_quantity][enabled]"))
	assert.Equal(t, "10", form.Get("line_items[0][adjustable_quantity][maximum]"))
	assert.Equal(t, "1", form.Get("metadata[adjustable]"))
	assert.Equal(t, "25", form.Get("metadata[base_unit_credits]"))
	assert.Equal(t, "MX", form.Get("metadata[region]"))
	assert.Empty(t, form.Get("metadata[package]"))
}

func TestGetSession_ExpandsLineItems(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/checkout/sessions/cs_adj", r.URL.Path)
		assert.Contains(t, r.URL.RawQuery, "line_items")

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "cs_adj",
			"object": "checkout.session",
			"client_reference_id": "u1",
			"payment_status": "paid",
			"metadata": {"adjustable": "1", "base_unit_credits": "25"},
			"line_items": {"object": "list", "data": [{"id": "li_1", "object": "item", "quantity": 2}, {"id": "li_2", "object": "item", "quantity": 1}]}
		}`))
	}))
	defer server.Close()

	session, err := newTestProvider(server.URL).GetSession(context.Background(), "cs_adj")

	require.NoError(t, err)
	assert.True(t, session.LineItemsLoaded)
	assert.Equal(t, int64(3), session.LineItemQuantity)
	assert.True(t, session.IsAdjustable())
}

func TestGetSession_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error": {"type": "invalid_request_error", "message": "No such checkout.session: cs_missing"}}`))
	}))
	defer server.Close()

	_, err := newTestProvider(server.URL).GetSession(context.Background(), "cs_missing")

	assert.True(t, apperrors.IsNotFound(err))
}
