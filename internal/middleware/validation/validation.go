// internal/middleware/validation/validation.go
package validation

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/onerilhan/go-credit-ledger/internal/apperrors"
)

// Config içerik doğrulama ayarları
type Config struct {
	MaxBodySize  int64    // Maksimum gövde boyutu (byte)
	ContentTypes []string // POST için izin verilen content type'lar
	// JSONValidation true ise gövdenin geçerli JSON olduğu kontrol edilir
	JSONValidation bool
	// AllowEmptyBody gövdesiz POST'lara izin verir (debit varsayılan miktarla çağrılabilir)
	AllowEmptyBody bool
}

// DefaultConfig client endpoint'leri için ayarlar
func DefaultConfig() *Config {
	return &Config{
		MaxBodySize:    64 * 1024,
		ContentTypes:   []string{"application/json"},
		JSONValidation: true,
		AllowEmptyBody: true,
	}
}

// Middleware gövdeyi handler'dan önce doğrular. Hatalar ValidationError panic'i olarak
// fırlatılır ve ErrorHandlingMiddleware tarafından zarfa çevrilir.
func Middleware(config *Config) func(http.Handler) http.Handler {
	if config == nil {
		config = DefaultConfig()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// CORS preflight
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			if err := ValidateContent(r, config); err != nil {
				panic(apperrors.NewValidationError("body", nil, "%s", err.Error()))
			}

			log.Debug().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int64("content_length", r.ContentLength).
				Msg("Request validation passed")

			next.ServeHTTP(w, r)
		})
	}
}
