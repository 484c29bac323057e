package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/onerilhan/go-credit-ledger/internal/metrics"
	"github.com/onerilhan/go-credit-ledger/internal/middleware"
	"github.com/onerilhan/go-credit-ledger/internal/middleware/validation"
)

// RouterDeps router'ın ihtiyaç duyduğu handler'lar ve middleware'ler
type RouterDeps struct {
	Accounts    *AccountHandler
	Credits     *CreditsHandler
	Payments    *PaymentHandler
	System      *SystemHandler
	Metrics     *metrics.LedgerMetrics
	Tokens      middleware.TokenValidator
	RateLimiter *middleware.RateLimiter
}

// NewRouter tüm route'ları kurar. Client route'ları hem kökte hem /api/v1 altında yayınlanır.
func NewRouter(deps RouterDeps) *mux.Router {
	r := mux.NewRouter()
	r.NotFoundHandler = middleware.NotFoundJSONHandler()
	r.MethodNotAllowedHandler = middleware.MethodNotAllowedJSONHandler()
	r.Use(middleware.MetricsMiddleware(deps.Metrics))

	// Public
	r.HandleFunc("/health", deps.System.Health).Methods(http.MethodGet)
	r.HandleFunc("/diag/payments", deps.System.DiagPayments).Methods(http.MethodGet)
	r.Handle("/metrics", deps.Metrics.Handler()).Methods(http.MethodGet)

	// Webhook: imza ham gövdeye bağlı, validation middleware'i uygulanmaz
	r.HandleFunc("/webhooks/stripe", deps.Payments.StripeWebhook).Methods(http.MethodPost)
	r.HandleFunc("/stripe/webhook", deps.Payments.StripeWebhook).Methods(http.MethodPost)

	registerClientRoutes(r.PathPrefix("/api/v1").Subrouter(), deps)
	registerClientRoutes(r.NewRoute().Subrouter(), deps)

	return r
}

func registerClientRoutes(r *mux.Router, deps RouterDeps) {
	if deps.RateLimiter != nil {
		r.Use(deps.RateLimiter.Handler())
	}
	r.Use(middleware.AuthMiddleware(deps.Tokens))
	r.Use(validation.Middleware(validation.DefaultConfig()))

	r.HandleFunc("/signup", deps.Accounts.Signup).Methods(http.MethodPost)
	r.HandleFunc("/me", deps.Accounts.Me).Methods(http.MethodGet)
	r.HandleFunc("/credits/history", deps.Accounts.History).Methods(http.MethodGet)
	r.HandleFunc("/credits/debit", deps.Credits.Debit).Methods(http.MethodPost)

	r.HandleFunc("/checkout/session", deps.Payments.CreateCheckoutSession).Methods(http.MethodPost)
	r.HandleFunc("/payments/create-checkout-session", deps.Payments.CreateCheckoutSession).Methods(http.MethodPost)
	r.HandleFunc("/checkout/confirm", deps.Payments.ConfirmSession).Methods(http.MethodPost)
}

// WrapGlobal router'ı route eşleşmesinden bağımsız middleware'lerle sarar.
// Sıra dıştan içe: request id/log, panic recovery, security header, CORS.
func WrapGlobal(h http.Handler, development bool, corsOrigins []string) http.Handler {
	security := middleware.DefaultSecurityConfig()
	if development {
		security = middleware.DevelopmentSecurityConfig()
	}

	h = middleware.CORSMiddleware(middleware.NewCORSConfig(corsOrigins))(h)
	h = middleware.SecurityHeadersMiddleware(security)(h)
	h = middleware.ErrorHandlingMiddlewareForEnv(development)(h)
	h = middleware.RequestLoggingMiddleware(middleware.DefaultLoggingConfig())(h)
	return h
}
