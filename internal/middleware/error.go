package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/onerilhan/go-credit-ledger/internal/apperrors"
	"github.com/onerilhan/go-credit-ledger/internal/middleware/errors"
	"github.com/onerilhan/go-credit-ledger/internal/utils"
)

// ErrorHandlingMiddleware panic recovery ve gövdesiz hata yanıtlarını JSON zarfına çevirir
func ErrorHandlingMiddleware(config *errors.ErrorConfig) func(http.Handler) http.Handler {
	if config == nil {
		config = errors.DefaultErrorConfig()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			wrapped := &errorResponseWriter{ResponseWriter: w}

			defer func() {
				recovered := recover()
				if recovered == nil {
					return
				}
				// http.ErrAbortHandler sunucunun kendi iptal sinyali
				if recovered == http.ErrAbortHandler {
					panic(recovered)
				}

				requestID := w.Header().Get("X-Request-ID")
				var resp *errors.ErrorResponse

				switch err := recovered.(type) {
				case apperrors.APIError:
					// Middleware'lerin bilinçli fırlattığı hatalar (validation gibi)
					resp = errors.FromError(err, requestID)
					logAPIError(err, r)
				default:
					panicInfo := &errors.PanicInfo{
						Value:     recovered,
						Stack:     string(debug.Stack()),
						RequestID: requestID,
						Method:    r.Method,
						Path:      r.URL.Path,
						UserAgent: r.Header.Get("User-Agent"),
						ClientIP:  utils.GetClientIP(r),
						Timestamp: time.Now(),
					}
					logPanic(panicInfo, config)

					resp = errors.NewErrorResponse(http.StatusInternalServerError, apperrors.CodeInternal, config.MessageFor(http.StatusInternalServerError), requestID)
					if config.ShowStackTrace {
						resp.Message = truncateString(fmt.Sprintf("panic: %v", recovered), config.MaxErrorLength)
						resp.Stack = panicInfo.Stack
					}
				}

				if wrapped.headerWritten {
					// Gövde yazılmaya başlandıysa artık zarf gönderilemez
					log.Error().Str("request_id", requestID).Msg("Panic sonrası yanıt zaten başlamıştı")
					return
				}

				// Panic öncesi eklenen header'ları temizle
				for key := range w.Header() {
					if !contains(config.IncludeHeaders, key) {
						w.Header().Del(key)
					}
				}
				errors.Write(w, resp)
			}()

			next.ServeHTTP(wrapped, r)

			// Handler sadece status yazıp gövde bırakmadıysa zarfı biz yazarız
			if wrapped.pendingStatus >= 400 && !wrapped.headerWritten {
				resp := errors.NewErrorResponse(wrapped.pendingStatus, statusCode(wrapped.pendingStatus), config.MessageFor(wrapped.pendingStatus), w.Header().Get("X-Request-ID"))
				errors.Write(w, resp)
			}
		})
	}
}

// errorResponseWriter hata status'unu gövde gelene kadar bekletir
type errorResponseWriter struct {
	http.ResponseWriter
	pendingStatus int
	headerWritten bool
}

func (erw *errorResponseWriter) WriteHeader(code int) {
	if erw.headerWritten || erw.pendingStatus != 0 {
		return
	}
	if code >= 400 {
		erw.pendingStatus = code
		return
	}
	erw.headerWritten = true
	erw.ResponseWriter.WriteHeader(code)
}

func (erw *errorResponseWriter) Write(b []byte) (int, error) {
	if !erw.headerWritten {
		erw.headerWritten = true
		if erw.pendingStatus != 0 {
			erw.ResponseWriter.WriteHeader(erw.pendingStatus)
		}
	}
	return erw.ResponseWriter.Write(b)
}

// statusCode gövdesiz yanıtlar için makine okunur kod
func statusCode(status int) string {
	switch status {
	case http.StatusBadRequest:
		return apperrors.CodeBadRequest
	case http.StatusUnauthorized:
		return apperrors.CodeUnauthorized
	case http.StatusNotFound:
		return apperrors.CodeNotFound
	case http.StatusMethodNotAllowed:
		return "METHOD_NOT_ALLOWED"
	case http.StatusTooManyRequests:
		return "RATE_LIMITED"
	}
	if status >= 500 {
		return apperrors.CodeInternal
	}
	return http.StatusText(status)
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

func truncateString(s string, maxLength int) string {
	if maxLength <= 3 || len(s) <= maxLength {
		return s
	}
	return s[:maxLength-3] + "..."
}

// ErrorHandlingMiddlewareForEnv ortama göre config seçer
func ErrorHandlingMiddlewareForEnv(development bool) func(http.Handler) http.Handler {
	if development {
		return ErrorHandlingMiddleware(errors.DevelopmentErrorConfig())
	}
	return ErrorHandlingMiddleware(errors.ProductionErrorConfig())
}
