package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/onerilhan/go-credit-ledger/internal/apperrors"
	"github.com/onerilhan/go-credit-ledger/internal/interfaces"
	"github.com/onerilhan/go-credit-ledger/internal/models"
)

// defaultDebitAmount gövdede amount yoksa düşülen kredi
const defaultDebitAmount = 1

// CreditsHandler kredi düşümü endpoint'i
type CreditsHandler struct {
	debits interfaces.DebitServiceInterface
}

// NewCreditsHandler yeni handler oluşturur
func NewCreditsHandler(debits interfaces.DebitServiceInterface) *CreditsHandler {
	return &CreditsHandler{debits: debits}
}

// Debit kullanıcının bakiyesinden idempotent olarak kredi düşer
func (h *CreditsHandler) Debit(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}

	var req models.DebitRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	amount, err := parseDebitAmount(req.Amount.String())
	if err != nil {
		writeError(w, r, err)
		return
	}

	requestID := req.RequestID
	if requestID == "" {
		requestID = strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	}

	result, err := h.debits.Debit(r.Context(), &models.DebitCommand{
		UserID:    claims.UserID(),
		Amount:    amount,
		RequestID: requestID,
		Flow:      req.Flow,
		Device:    req.Device,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	message := "Kredi düşüldü"
	if result.Replayed {
		message = "İstek daha önce işlenmiş, önceki sonuç döndü"
	}
	writeSuccess(w, http.StatusOK, result, message)
}

// parseDebitAmount boş → 1; tam sayı olmayan veya pozitif olmayan değerler reddedilir
func parseDebitAmount(raw string) (int64, error) {
	if raw == "" {
		return defaultDebitAmount, nil
	}
	amount, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, apperrors.NewValidationError("amount", raw, "amount pozitif bir tam sayı olmalı")
	}
	if amount <= 0 {
		return 0, apperrors.NewValidationError("amount", amount, "amount pozitif bir tam sayı olmalı")
	}
	return amount, nil
}
