package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Hata kodları (response body'deki "error" alanı)
const (
	CodeBadRequest          = "BAD_REQUEST"
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeNotFound            = "NOT_FOUND"
	CodeInsufficientCredits = "INSUFFICIENT_CREDITS"
	CodeSignatureInvalid    = "SIGNATURE_INVALID"
	CodePriceNotConfigured  = "PRICE_NOT_CONFIGURED"
	CodeConfigError         = "CONFIG_ERROR"
	CodePaymentNotSettled   = "PAYMENT_NOT_SETTLED"
	CodeInternal            = "INTERNAL"
)

// APIError HTTP katmanına status ve kod taşıyan hata tipleri
type APIError interface {
	error
	Status() int
	Code() string
}

// ValidationError geçersiz istek (400)
type ValidationError struct {
	Message string
	Field   string
	Value   interface{}
}

func (e *ValidationError) Error() string { return e.Message }
func (e *ValidationError) Status() int   { return http.StatusBadRequest }
func (e *ValidationError) Code() string  { return CodeBadRequest }

// NewValidationError alan bilgisi ile validation hatası oluşturur
func NewValidationError(field string, value interface{}, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...), Field: field, Value: value}
}

// InsufficientCreditsError bakiye yetersiz (402). Mevcut bakiye ile döner.
type InsufficientCreditsError struct {
	UserID           string
	Requested        int64
	CreditsRemaining int64
	CreditsTotal     int64
}

func (e *InsufficientCreditsError) Error() string {
	return fmt.Sprintf("yetersiz kredi: istenen %d, mevcut %d", e.Requested, e.CreditsRemaining)
}
func (e *InsufficientCreditsError) Status() int  { return http.StatusPaymentRequired }
func (e *InsufficientCreditsError) Code() string { return CodeInsufficientCredits }

// NotFoundError bilinmeyen kullanıcı / session
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s bulunamadı: %s", e.Resource, e.ID)
}
func (e *NotFoundError) Status() int  { return http.StatusNotFound }
func (e *NotFoundError) Code() string { return CodeNotFound }

// SignatureError webhook imzası doğrulanamadı
type SignatureError struct {
	Err error
}

func (e *SignatureError) Error() string {
	if e.Err == nil {
		return "webhook imzası geçersiz"
	}
	return "webhook imzası geçersiz: " + e.Err.Error()
}
func (e *SignatureError) Unwrap() error { return e.Err }
func (e *SignatureError) Status() int   { return http.StatusBadRequest }
func (e *SignatureError) Code() string  { return CodeSignatureInvalid }

// DuplicateError idempotency anahtarı daha önce alınmış. Hata değil, replay sinyali.
type DuplicateError struct {
	Key string
}

func (e *DuplicateError) Error() string { return "daha önce işlendi: " + e.Key }
func (e *DuplicateError) Status() int   { return http.StatusOK }
func (e *DuplicateError) Code() string  { return "DUPLICATE" }

// RetryableError geçici depolama / ağ hatası; çağıran tekrar deneyebilir
type RetryableError struct {
	Op  string
	Err error
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("geçici hata (%s): %v", e.Op, e.Err)
}
func (e *RetryableError) Unwrap() error { return e.Err }
func (e *RetryableError) Status() int   { return http.StatusInternalServerError }
func (e *RetryableError) Code() string  { return CodeInternal }

// ConfigurationError fiyat eşlemesi gibi eksik yapılandırma
type ConfigurationError struct {
	Message string
	Key     string
	Details map[string]interface{}
}

func (e *ConfigurationError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "yapılandırma hatası: " + e.Key
}
func (e *ConfigurationError) Status() int { return http.StatusInternalServerError }
func (e *ConfigurationError) Code() string {
	if e.Key == "price" {
		return CodePriceNotConfigured
	}
	return CodeConfigError
}

// UnauthorizedError token eksik / geçersiz
type UnauthorizedError struct {
	Message string
}

func (e *UnauthorizedError) Error() string { return e.Message }
func (e *UnauthorizedError) Status() int   { return http.StatusUnauthorized }
func (e *UnauthorizedError) Code() string  { return CodeUnauthorized }

// PaymentNotSettledError session henüz ödenmemiş (client confirm akışı)
type PaymentNotSettledError struct {
	SessionID     string
	PaymentStatus string
}

func (e *PaymentNotSettledError) Error() string {
	return fmt.Sprintf("ödeme tamamlanmadı: %s (%s)", e.SessionID, e.PaymentStatus)
}
func (e *PaymentNotSettledError) Status() int  { return http.StatusConflict }
func (e *PaymentNotSettledError) Code() string { return CodePaymentNotSettled }

// IsRetryable hata zincirinde RetryableError var mı
func IsRetryable(err error) bool {
	var re *RetryableError
	return errors.As(err, &re)
}

// IsNotFound hata zincirinde NotFoundError var mı
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// AsAPIError zincirdeki ilk APIError'u döner; yoksa INTERNAL kabul edilir
func AsAPIError(err error) (APIError, bool) {
	var apiErr APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}
