package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/onerilhan/go-credit-ledger/internal/utils"
)

type requestIDKey struct{}

// responseWriter status ve boyutu yakalar
type responseWriter struct {
	http.ResponseWriter
	statusCode   int
	responseSize int64
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	size, err := rw.ResponseWriter.Write(b)
	rw.responseSize += int64(size)
	return size, err
}

// LoggingConfig logging middleware ayarları
type LoggingConfig struct {
	SkipPaths []string // Log'lanmayacak path'ler (health check gibi)
}

// DefaultLoggingConfig varsayılan logging ayarları
func DefaultLoggingConfig() *LoggingConfig {
	return &LoggingConfig{
		SkipPaths: []string{
			"/health",
			"/metrics",
			"/favicon.ico",
		},
	}
}

// RequestLoggingMiddleware request id atar, context logger'ı hazırlar ve isteği loglar
func RequestLoggingMiddleware(config *LoggingConfig) func(http.Handler) http.Handler {
	if config == nil {
		config = DefaultLoggingConfig()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := incomingRequestID(r)
			w.Header().Set("X-Request-ID", requestID)

			// Handler'lar log.Ctx(ctx) ile request_id'li logger'ı alır
			reqLogger := log.With().Str("request_id", requestID).Logger()
			ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
			ctx = reqLogger.WithContext(ctx)
			r = r.WithContext(ctx)

			if shouldSkipLogging(r.URL.Path, config.SkipPaths) {
				next.ServeHTTP(w, r)
				return
			}

			startTime := time.Now()
			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			clientIP := utils.GetClientIP(r)

			reqLogger.Debug().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Str("client_ip", clientIP).
				Int64("request_size", r.ContentLength).
				Msg("Request started")

			next.ServeHTTP(wrapped, r)

			duration := time.Since(startTime)

			var event *zerolog.Event
			switch {
			case wrapped.statusCode >= 500:
				event = reqLogger.Error()
			case wrapped.statusCode >= 400:
				event = reqLogger.Warn()
			default:
				event = reqLogger.Info()
			}

			event.
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Str("client_ip", clientIP).
				Str("user_agent", r.Header.Get("User-Agent")).
				Int("status_code", wrapped.statusCode).
				Int64("response_size", wrapped.responseSize).
				Float64("duration_ms", float64(duration.Nanoseconds())/1e6).
				Msg("Request completed")
		})
	}
}

// RequestIDFromContext logging middleware'in atadığı id
func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}

// incomingRequestID proxy'nin verdiği id'yi kullanır; yoksa veya uzunsa yenisini üretir
func incomingRequestID(r *http.Request) string {
	if id := strings.TrimSpace(r.Header.Get("X-Request-ID")); id != "" && len(id) <= 128 {
		return id
	}
	return uuid.New().String()
}

func shouldSkipLogging(path string, skipPaths []string) bool {
	for _, skipPath := range skipPaths {
		if path == skipPath {
			return true
		}
		if strings.HasSuffix(skipPath, "*") && strings.HasPrefix(path, strings.TrimSuffix(skipPath, "*")) {
			return true
		}
	}
	return false
}

// logFromRequest request context'indeki logger
func logFromRequest(r *http.Request) *zerolog.Logger {
	return log.Ctx(r.Context())
}
