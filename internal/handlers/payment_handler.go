package handlers

import (
	"io"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/onerilhan/go-credit-ledger/internal/apperrors"
	"github.com/onerilhan/go-credit-ledger/internal/interfaces"
	"github.com/onerilhan/go-credit-ledger/internal/middleware"
	"github.com/onerilhan/go-credit-ledger/internal/models"
	"github.com/onerilhan/go-credit-ledger/internal/utils"
)

// maxWebhookBody Stripe event'leri için üst sınır
const maxWebhookBody = 1 << 20

// PaymentHandler checkout, client confirm ve webhook endpoint'leri
type PaymentHandler struct {
	checkout       interfaces.CheckoutServiceInterface
	reconciliation interfaces.ReconciliationServiceInterface
}

// NewPaymentHandler yeni handler oluşturur
func NewPaymentHandler(checkout interfaces.CheckoutServiceInterface, reconciliation interfaces.ReconciliationServiceInterface) *PaymentHandler {
	return &PaymentHandler{checkout: checkout, reconciliation: reconciliation}
}

// CreateCheckoutSession ödeme sayfası için session açar
func (h *PaymentHandler) CreateCheckoutSession(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}

	var req models.CheckoutRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	resp, err := h.checkout.CreateSession(r.Context(), &models.CheckoutCommand{
		UserID:    claims.UserID(),
		PhoneE164: claims.PhoneE164,
		RequestID: middleware.RequestIDFromContext(r.Context()),
		Signals:   utils.RegionSignalsFromRequest(r, claims.PhoneE164),
		Selector:  req.Selector(),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, resp, "Checkout session oluşturuldu")
}

// ConfirmSession ödeme dönüşünde client'ın session'ı doğrulatması
func (h *PaymentHandler) ConfirmSession(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}

	var req models.ConfirmRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	result, err := h.reconciliation.ConfirmSession(r.Context(), claims.UserID(), req.SessionID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	message := "Ödeme onaylandı"
	if result.DuplicateOrder {
		message = "Ödeme daha önce işlenmiş"
	}
	writeSuccess(w, http.StatusOK, result, message)
}

// StripeWebhook imza ham gövde üzerinden doğrulanır; gövde hiçbir şekilde
// yeniden kodlanmadan servise geçer.
func (h *PaymentHandler) StripeWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		writeError(w, r, apperrors.NewValidationError("body", nil, "webhook gövdesi okunamadı"))
		return
	}

	result, err := h.reconciliation.HandleWebhook(r.Context(), payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	log.Ctx(r.Context()).Debug().
		Str("event_id", result.EventID).
		Bool("duplicate", result.Duplicate).
		Bool("ignored", result.Ignored).
		Msg("Webhook yanıtlandı")

	// Sağlayıcı sadece 2xx'e bakar
	writeJSON(w, http.StatusOK, result)
}
