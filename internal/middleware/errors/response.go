package errors

import (
	"encoding/json"
	stderrors "errors"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/onerilhan/go-credit-ledger/internal/apperrors"
)

// ErrorResponse standart hata zarfı
type ErrorResponse struct {
	Success   bool                   `json:"success"`
	Error     string                 `json:"error"` // Makine okunur kod (INSUFFICIENT_CREDITS gibi)
	Message   string                 `json:"message"`
	Code      int                    `json:"code"`
	Retryable bool                   `json:"retryable,omitempty"`
	Timestamp string                 `json:"timestamp"`
	RequestID string                 `json:"request_id,omitempty"`
	Details   map[string]interface{} `json:"details,omitempty"`
	Stack     string                 `json:"stack,omitempty"` // Sadece development'ta
}

// NewErrorResponse status ve kod ile boş zarf oluşturur
func NewErrorResponse(status int, code, message, requestID string) *ErrorResponse {
	return &ErrorResponse{
		Success:   false,
		Error:     code,
		Message:   message,
		Code:      status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		RequestID: requestID,
	}
}

// FromError domain hatasını zarfa çevirir. APIError olmayan hatalar 500 INTERNAL olur
// ve iç mesajları istemciye sızmaz.
func FromError(err error, requestID string) *ErrorResponse {
	apiErr, ok := apperrors.AsAPIError(err)
	if !ok {
		return NewErrorResponse(http.StatusInternalServerError, apperrors.CodeInternal, "Sunucu hatası", requestID)
	}

	resp := NewErrorResponse(apiErr.Status(), apiErr.Code(), apiErr.Error(), requestID)

	var (
		insufficient *apperrors.InsufficientCreditsError
		validation   *apperrors.ValidationError
		notFound     *apperrors.NotFoundError
		configErr    *apperrors.ConfigurationError
		unsettled    *apperrors.PaymentNotSettledError
		retryable    *apperrors.RetryableError
	)
	switch {
	case stderrors.As(err, &insufficient):
		resp.Details = map[string]interface{}{
			"credits_remaining": insufficient.CreditsRemaining,
			"credits_total":     insufficient.CreditsTotal,
			"requested":         insufficient.Requested,
		}
	case stderrors.As(err, &validation):
		if validation.Field != "" {
			resp.Details = map[string]interface{}{"field": validation.Field}
		}
	case stderrors.As(err, &notFound):
		resp.Details = map[string]interface{}{"resource": notFound.Resource}
	case stderrors.As(err, &configErr):
		resp.Details = configErr.Details
	case stderrors.As(err, &unsettled):
		resp.Details = map[string]interface{}{
			"session_id":     unsettled.SessionID,
			"payment_status": unsettled.PaymentStatus,
		}
	case stderrors.As(err, &retryable):
		resp.Message = "Geçici bir hata oluştu, lütfen tekrar deneyin"
		resp.Retryable = true
	}
	return resp
}

// Write zarfı JSON olarak yazar
func Write(w http.ResponseWriter, resp *ErrorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.Code)

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Error().Err(err).Str("request_id", resp.RequestID).Msg("Error response JSON encoding failed")
	}
}
