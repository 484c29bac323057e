package middleware

import (
	stderrors "errors"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/onerilhan/go-credit-ledger/internal/apperrors"
	"github.com/onerilhan/go-credit-ledger/internal/middleware/errors"
	"github.com/onerilhan/go-credit-ledger/internal/utils"
)

// logAPIError panic olarak fırlatılan APIError'ları seviyesine göre loglar.
// 5xx hatalar Error, istemci hataları Warn seviyesindedir.
func logAPIError(err apperrors.APIError, r *http.Request) {
	level := zerolog.WarnLevel
	if err.Status() >= http.StatusInternalServerError {
		level = zerolog.ErrorLevel
	}

	event := logFromRequest(r).WithLevel(level).
		Str("error_code", err.Code()).
		Int("status", err.Status()).
		Str("route", r.Method+" "+r.URL.Path).
		Str("ip", utils.GetClientIP(r))

	var (
		validation *apperrors.ValidationError
		configErr  *apperrors.ConfigurationError
	)
	switch {
	case stderrors.As(err, &validation):
		event.Str("field", validation.Field).Msg("İstek doğrulaması başarısız")
	case stderrors.As(err, &configErr):
		event.Str("config_key", configErr.Key).Msg("❌ Yapılandırma eksik")
	default:
		event.Err(err).Msg("İstek hata ile sonlandı")
	}
}

// logPanic beklenmeyen panic'i request bilgileriyle loglar
func logPanic(info *errors.PanicInfo, config *errors.ErrorConfig) {
	event := log.Error().
		Str("request_id", info.RequestID).
		Str("route", info.Method+" "+info.Path).
		Str("ip", info.ClientIP).
		Str("ua", info.UserAgent).
		Interface("recovered", info.Value)

	if config.EnablePanicLogs {
		event.Str("stack", info.Stack)
	}

	event.Msg("🔥 Handler panic yakalandı")
}
