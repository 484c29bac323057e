package handlers

import (
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/onerilhan/go-credit-ledger/internal/interfaces"
)

// AccountHandler signup, bakiye ve geçmiş endpoint'leri
type AccountHandler struct {
	accounts interfaces.AccountServiceInterface
}

// NewAccountHandler yeni handler oluşturur
func NewAccountHandler(accounts interfaces.AccountServiceInterface) *AccountHandler {
	return &AccountHandler{accounts: accounts}
}

// Signup ilk girişte bakiye satırını açar ve başlangıç kredisini verir (idempotent)
func (h *AccountHandler) Signup(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}

	result, err := h.accounts.Signup(r.Context(), claims.UserID(), claims.PhoneE164)
	if err != nil {
		writeError(w, r, err)
		return
	}

	status := http.StatusOK
	message := "Hesap zaten mevcut"
	if result.IsNew {
		status = http.StatusCreated
		message = "Hesap oluşturuldu"
	}

	log.Ctx(r.Context()).Info().
		Bool("is_new", result.IsNew).
		Int64("credits_awarded", result.CreditsAwarded).
		Msg("Signup tamamlandı")

	writeSuccess(w, status, result, message)
}

// Me kullanıcının bakiyesini döner
func (h *AccountHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}

	view, err := h.accounts.GetAccount(r.Context(), claims.UserID(), claims.PhoneE164)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]interface{}{"user": view}, "")
}

// History bakiye mutasyon geçmişi (yeniden eskiye)
func (h *AccountHandler) History(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}

	// Geçersiz değerler servis varsayılanlarına düşer
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	history, err := h.accounts.GetHistory(r.Context(), claims.UserID(), limit, offset)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]interface{}{
		"history": history,
		"limit":   limit,
		"offset":  offset,
		"count":   len(history),
	}, "")
}
