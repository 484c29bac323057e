package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/onerilhan/go-credit-ledger/internal/apperrors"
	"github.com/onerilhan/go-credit-ledger/internal/auth"
	"github.com/onerilhan/go-credit-ledger/internal/middleware"
	mwerrors "github.com/onerilhan/go-credit-ledger/internal/middleware/errors"
	"github.com/onerilhan/go-credit-ledger/internal/middleware/validation"
)

// SuccessResponse standart başarılı yanıt
type SuccessResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data"`
	Message string      `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("Response JSON encoding failed")
	}
}

func writeSuccess(w http.ResponseWriter, status int, data interface{}, message string) {
	writeJSON(w, status, SuccessResponse{Success: true, Data: data, Message: message})
}

// writeError domain hatasını zarfa çevirir ve seviyesine göre loglar
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	resp := mwerrors.FromError(err, middleware.RequestIDFromContext(r.Context()))

	logger := log.Ctx(r.Context())
	switch {
	case resp.Code >= 500:
		logger.Error().Err(err).Str("path", r.URL.Path).Str("error_code", resp.Error).Msg("❌ İstek başarısız")
	case resp.Code >= 400:
		logger.Warn().Err(err).Str("path", r.URL.Path).Str("error_code", resp.Error).Msg("İstek reddedildi")
	}

	mwerrors.Write(w, resp)
}

// requireClaims auth middleware'in koyduğu claims; yoksa 401 yazar
func requireClaims(w http.ResponseWriter, r *http.Request) (*auth.Claims, bool) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, r, &apperrors.UnauthorizedError{Message: "Yetkilendirme gerekli"})
		return nil, false
	}
	return claims, true
}

// decodeJSON gövdeyi çözer; boş gövde hata değildir
func decodeJSON(r *http.Request, dst interface{}) error {
	if r.Body == nil {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return apperrors.NewValidationError("body", nil, "geçersiz JSON: %v", err)
	}
	return nil
}

// decodeAndValidate gövdeyi çözer ve validate tag'lerini uygular
func decodeAndValidate(r *http.Request, dst interface{}) error {
	if err := decodeJSON(r, dst); err != nil {
		return err
	}
	return validation.ValidateStruct(dst)
}
