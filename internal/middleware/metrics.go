package middleware

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/onerilhan/go-credit-ledger/internal/metrics"
)

// SlowRequestThreshold bu sürenin üstündeki istekler ayrıca loglanır
const SlowRequestThreshold = 2 * time.Second

// metricsResponseWriter status code yakalar
type metricsResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (mrw *metricsResponseWriter) WriteHeader(code int) {
	mrw.statusCode = code
	mrw.ResponseWriter.WriteHeader(code)
}

// MetricsMiddleware istek sayısı, süre ve eşzamanlı istekleri Prometheus'a yazar.
// Route label'ı mux path template'idir; ham path kullanılmaz.
func MetricsMiddleware(m *metrics.LedgerMetrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			done := m.InFlight()
			defer done()

			start := time.Now()
			wrapped := &metricsResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(wrapped, r)

			duration := time.Since(start)
			m.ObserveHTTP(r.Method, routeTemplate(r), wrapped.statusCode, duration)

			if duration > SlowRequestThreshold {
				logger := logFromRequest(r)
				logger.Warn().
					Str("method", r.Method).
					Str("route", routeTemplate(r)).
					Dur("duration", duration).
					Msg("🐢 Yavaş istek")
			}
		})
	}
}

func routeTemplate(r *http.Request) string {
	route := mux.CurrentRoute(r)
	if route == nil {
		return "unmatched"
	}
	tpl, err := route.GetPathTemplate()
	if err != nil {
		return "unmatched"
	}
	return tpl
}
