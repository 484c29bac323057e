package middleware

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/onerilhan/go-credit-ledger/internal/apperrors"
	"github.com/onerilhan/go-credit-ledger/internal/middleware/errors"
	"github.com/onerilhan/go-credit-ledger/internal/utils"
)

// NotFoundJSONHandler JSON formatında 404 döner
func NotFoundJSONHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := errors.NewErrorResponse(http.StatusNotFound, apperrors.CodeNotFound, "Endpoint bulunamadı.", w.Header().Get("X-Request-ID"))
		resp.Details = map[string]interface{}{"method": r.Method, "path": r.URL.Path}
		errors.Write(w, resp)

		log.Warn().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("client_ip", utils.GetClientIP(r)).
			Msg("404 Not Found")
	}
}

// MethodNotAllowedJSONHandler JSON formatında 405 döner
func MethodNotAllowedJSONHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := errors.NewErrorResponse(http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "HTTP metodu bu endpoint için desteklenmiyor.", w.Header().Get("X-Request-ID"))
		resp.Details = map[string]interface{}{"method": r.Method, "path": r.URL.Path}
		errors.Write(w, resp)

		log.Warn().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Msg("405 Method Not Allowed")
	}
}
