package payments

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/stripe/stripe-go/v76"
	checkoutsession "github.com/stripe/stripe-go/v76/checkout/session"
	"github.com/stripe/stripe-go/v76/webhook"

	"github.com/onerilhan/go-credit-ledger/internal/apperrors"
	"github.com/onerilhan/go-credit-ledger/internal/config"
	"github.com/onerilhan/go-credit-ledger/internal/interfaces"
	"github.com/onerilhan/go-credit-ledger/internal/models"
)

const checkoutSessionEventPrefix = "checkout.session."

// StripeProvider Stripe Checkout ve webhook adaptörü
type StripeProvider struct {
	sessions      *checkoutsession.Client
	webhookSecret string
	tolerance     time.Duration
}

var _ interfaces.PaymentProvider = (*StripeProvider)(nil)

// NewStripeProvider global stripe.Key yerine kendi backend'i olan bir client oluşturur
func NewStripeProvider(cfg config.StripeConfig) *StripeProvider {
	backendConfig := &stripe.BackendConfig{
		HTTPClient:        &http.Client{Timeout: 15 * time.Second},
		MaxNetworkRetries: stripe.Int64(2),
	}
	if cfg.APIURL != "" {
		backendConfig.URL = stripe.String(cfg.APIURL)
	}
	backend := stripe.GetBackendWithConfig(stripe.APIBackend, backendConfig)

	return &StripeProvider{
		sessions:      &checkoutsession.Client{B: backend, Key: cfg.SecretKey},
		webhookSecret: cfg.WebhookSecret,
		tolerance:     cfg.WebhookTolerance,
	}
}

// VerifyWebhook imzayı ham gövde üzerinde doğrular
func (p *StripeProvider) VerifyWebhook(payload []byte, signature string) (*models.ProviderEvent, error) {
	if p.webhookSecret == "" {
		return nil, &apperrors.ConfigurationError{Message: "STRIPE_WEBHOOK_SECRET tanımlı değil", Key: "stripe_webhook_secret"}
	}
	if signature == "" {
		return nil, &apperrors.SignatureError{Err: errors.New("Stripe-Signature header yok")}
	}

	event, err := webhook.ConstructEventWithOptions(payload, signature, p.webhookSecret, webhook.ConstructEventOptions{
		Tolerance:                p.tolerance,
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, &apperrors.SignatureError{Err: err}
	}

	result := &models.ProviderEvent{ID: event.ID, Type: string(event.Type)}
	if strings.HasPrefix(result.Type, checkoutSessionEventPrefix) && event.Data != nil {
		var cs stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &cs); err != nil {
			return nil, apperrors.NewValidationError("payload", nil, "checkout session çözülemedi: %v", err)
		}
		result.Session = toProviderSession(&cs)
	}
	return result, nil
}

// CreateCheckoutSession tek line item'lı ödeme session'ı açar
func (p *StripeProvider) CreateCheckoutSession(ctx context.Context, req *models.CheckoutSessionRequest) (*models.CheckoutSessionResult, error) {
	metadata := map[string]string{
		"user_id":    req.UserID,
		"phone_e164": req.PhoneE164,
		"region":     string(req.Region),
		"request_id": req.RequestID,
	}

	lineItem := &stripe.CheckoutSessionLineItemParams{
		Price:    stripe.String(req.PriceID),
		Quantity: stripe.Int64(1),
	}
	if req.Adjustable {
		lineItem.AdjustableQuantity = &stripe.CheckoutSessionLineItemAdjustableQuantityParams{
			Enabled: stripe.Bool(true),
			Minimum: stripe.Int64(req.MinQuantity),
			Maximum: stripe.Int64(req.MaxQuantity),
		}
		metadata["adjustable"] = "1"
		metadata["base_unit_credits"] = strconv.FormatInt(req.BaseUnitCredits, 10)
	} else {
		metadata["package"] = req.Package
		metadata["adjustable"] = "0"
	}

	params := &stripe.CheckoutSessionParams{
		Mode:                     stripe.String(string(stripe.CheckoutSessionModePayment)),
		ClientReferenceID:        stripe.String(req.UserID),
		LineItems:                []*stripe.CheckoutSessionLineItemParams{lineItem},
		SuccessURL:               stripe.String(req.SuccessURL),
		CancelURL:                stripe.String(req.CancelURL),
		AllowPromotionCodes:      stripe.Bool(true),
		BillingAddressCollection: stripe.String(string(stripe.CheckoutSessionBillingAddressCollectionAuto)),
		Metadata:                 metadata,
	}
	params.Context = ctx
	if req.RequestID != "" {
		params.SetIdempotencyKey("checkout-" + req.RequestID)
	}

	cs, err := p.sessions.New(params)
	if err != nil {
		return nil, classifyStripeError("create_checkout_session", "", err)
	}

	log.Debug().Str("session_id", cs.ID).Str("user_id", req.UserID).Msg("Stripe checkout session açıldı")
	return &models.CheckoutSessionResult{SessionID: cs.ID, URL: cs.URL}, nil
}

// GetSession line item'lar genişletilmiş session'ı okur
func (p *StripeProvider) GetSession(ctx context.Context, sessionID string) (*models.ProviderSession, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	params.AddExpand("line_items")

	cs, err := p.sessions.Get(sessionID, params)
	if err != nil {
		return nil, classifyStripeError("get_checkout_session", sessionID, err)
	}
	return toProviderSession(cs), nil
}

func toProviderSession(cs *stripe.CheckoutSession) *models.ProviderSession {
	session := &models.ProviderSession{
		ID:                cs.ID,
		ClientReferenceID: cs.ClientReferenceID,
		Metadata:          cs.Metadata,
		AmountTotal:       cs.AmountTotal,
		Currency:          string(cs.Currency),
		PaymentStatus:     string(cs.PaymentStatus),
		URL:               cs.URL,
	}
	if cs.LineItems != nil {
		session.LineItemsLoaded = true
		for _, item := range cs.LineItems.Data {
			if item != nil {
				session.LineItemQuantity += item.Quantity
			}
		}
	}
	return session
}

// classifyStripeError Stripe hatalarını domain hatalarına çevirir
func classifyStripeError(op, sessionID string, err error) error {
	var stripeErr *stripe.Error
	if !errors.As(err, &stripeErr) {
		return &apperrors.RetryableError{Op: op, Err: err}
	}

	switch {
	case stripeErr.HTTPStatusCode == http.StatusNotFound:
		return &apperrors.NotFoundError{Resource: "checkout session", ID: sessionID}
	case stripeErr.HTTPStatusCode == http.StatusUnauthorized,
		stripeErr.HTTPStatusCode == http.StatusForbidden:
		log.Error().Err(err).Str("op", op).Msg("❌ Stripe kimlik doğrulaması başarısız")
		return &apperrors.ConfigurationError{Message: "Stripe anahtarı geçersiz", Key: "stripe_secret_key"}
	case stripeErr.HTTPStatusCode == http.StatusBadRequest:
		log.Error().Err(err).Str("op", op).Str("param", stripeErr.Param).Msg("❌ Stripe isteği reddetti")
		return &apperrors.ConfigurationError{
			Message: "Stripe isteği reddetti: " + stripeErr.Msg,
			Key:     "stripe",
			Details: map[string]interface{}{"param": stripeErr.Param},
		}
	default:
		return &apperrors.RetryableError{Op: op, Err: err}
	}
}
