package services

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/onerilhan/go-credit-ledger/internal/config"
	"github.com/onerilhan/go-credit-ledger/internal/interfaces"
	"github.com/onerilhan/go-credit-ledger/internal/metrics"
	"github.com/onerilhan/go-credit-ledger/internal/models"
)

// sessionPlaceholder sağlayıcının success URL'de doldurduğu değişken
const sessionPlaceholder = "{CHECKOUT_SESSION_ID}"

// CheckoutService checkout session fabrikası
type CheckoutService struct {
	store    interfaces.Store
	provider interfaces.PaymentProvider
	resolver *PackageResolver
	stripe   config.StripeConfig
	checkout config.CheckoutConfig
	metrics  *metrics.LedgerMetrics
	timeout  time.Duration
}

// NewCheckoutService yeni service oluşturur
func NewCheckoutService(store interfaces.Store, provider interfaces.PaymentProvider, resolver *PackageResolver, stripeCfg config.StripeConfig, checkoutCfg config.CheckoutConfig, m *metrics.LedgerMetrics, timeout time.Duration) *CheckoutService {
	return &CheckoutService{
		store:    store,
		provider: provider,
		resolver: resolver,
		stripe:   stripeCfg,
		checkout: checkoutCfg,
		metrics:  m,
		timeout:  timeout,
	}
}

// CreateSession sağlayıcıda checkout session açar ve pending sipariş kaydeder
func (s *CheckoutService) CreateSession(ctx context.Context, cmd *models.CheckoutCommand) (*models.CheckoutResponse, error) {
	signals := cmd.Signals
	if signals.PhoneE164 == "" {
		signals.PhoneE164 = cmd.PhoneE164
	}
	region := s.resolver.ResolveRegion(signals)

	ref, err := s.resolver.ResolvePriceRef(region, cmd.Selector)
	if err != nil {
		return nil, err
	}

	requestID := cmd.RequestID
	if requestID == "" {
		requestID = uuid.NewString()
	}

	req := &models.CheckoutSessionRequest{
		UserID:     cmd.UserID,
		PhoneE164:  cmd.PhoneE164,
		RequestID:  requestID,
		Region:     region,
		PriceID:    ref.PriceID,
		Package:    ref.Package,
		Adjustable: ref.Adjustable,
		SuccessURL: successURL(s.checkout.SuccessURL, ref.Package),
		CancelURL:  s.checkout.CancelURL,
	}
	if ref.Adjustable {
		req.BaseUnitCredits = BaseUnitCredits
		req.MinQuantity = s.checkout.AdjustableMin
		req.MaxQuantity = s.checkout.AdjustableMax
		if req.MinQuantity < 1 {
			req.MinQuantity = 1
		}
		if req.MaxQuantity < req.MinQuantity {
			req.MaxQuantity = req.MinQuantity
		}
	}

	session, err := s.provider.CreateCheckoutSession(ctx, req)
	if err != nil {
		log.Error().Err(err).Str("user_id", cmd.UserID).Str("pkg", ref.Package).Msg("❌ Checkout session oluşturulamadı")
		return nil, err
	}

	s.storePendingOrder(ctx, cmd.UserID, session.SessionID, region, ref)

	flow := "fixed"
	if ref.Adjustable {
		flow = AdjustablePackage
	}
	s.metrics.ObserveCheckout(string(region), flow)

	log.Info().
		Str("user_id", cmd.UserID).
		Str("session_id", session.SessionID).
		Str("region", string(region)).
		Str("pkg", ref.Package).
		Str("request_id", requestID).
		Msg("🛒 Checkout session oluşturuldu")

	return &models.CheckoutResponse{
		URL:        session.URL,
		SessionURL: session.URL,
		SessionID:  session.SessionID,
		Region:     region,
		Pkg:        ref.Package,
	}, nil
}

// storePendingOrder hata durumunda akışı durdurmaz; uzlaştırma siparişi yoksa kendisi oluşturur
func (s *CheckoutService) storePendingOrder(ctx context.Context, userID, sessionID string, region models.Region, ref *PriceRef) {
	ctx, cancel := withStoreTimeout(ctx, s.timeout)
	defer cancel()

	order := &models.Order{
		SessionID:      sessionID,
		UserID:         userID,
		PackageCredits: ref.Credits,
		Region:         region,
		Adjustable:     ref.Adjustable,
	}
	if ref.Adjustable {
		order.BaseUnitCredits = BaseUnitCredits
	} else {
		order.Package = ref.Package
	}

	if _, err := s.store.Orders().CreatePending(ctx, order); err != nil {
		log.Error().Err(err).Str("session_id", sessionID).Msg("Pending sipariş kaydedilemedi")
	}
}

// Diagnostics yapılandırmanın varlığını raporlar; değerleri asla döndürmez
func (s *CheckoutService) Diagnostics() *models.PaymentDiagnostics {
	diag := &models.PaymentDiagnostics{}
	diag.Present.StripeSecretKey = s.stripe.SecretKey != ""
	diag.Present.StripeWebhookSecret = s.stripe.WebhookSecret != ""
	diag.Present.MXN = pricePresence(s.stripe.PricesMXN)
	diag.Present.USD = pricePresence(s.stripe.PricesUSD)

	diag.AdjustableFallback.EnabledWhenPkgMissing = true
	diag.AdjustableFallback.BaseUnitCredits = BaseUnitCredits
	diag.AdjustableFallback.Min = s.checkout.AdjustableMin
	diag.AdjustableFallback.Max = s.checkout.AdjustableMax

	diag.OK = diag.Present.StripeSecretKey && diag.Present.StripeWebhookSecret
	return diag
}

func pricePresence(prices map[int64]string) map[string]bool {
	present := make(map[string]bool, len(config.PackageSizes))
	for _, size := range config.PackageSizes {
		present[strconv.FormatInt(size, 10)] = strings.HasPrefix(prices[size], "price_")
	}
	return present
}

// successURL base URL'ye pkg ve sid parametrelerini ekler
func successURL(base, pkg string) string {
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + "pkg=" + url.QueryEscape(pkg) + "&sid=" + sessionPlaceholder
}
