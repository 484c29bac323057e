package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/onerilhan/go-credit-ledger/internal/auth"
	"github.com/onerilhan/go-credit-ledger/internal/middleware/errors"
)

type claimsKey struct{}

// TokenValidator bearer token doğrulayıcı
type TokenValidator interface {
	Validate(tokenString string) (*auth.Claims, error)
}

// AuthMiddleware bearer token'ı doğrular ve claims'i context'e koyar
func AuthMiddleware(validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				log.Warn().
					Str("path", r.URL.Path).
					Str("method", r.Method).
					Msg("Authorization header eksik")
				writeUnauthorized(w, "Authorization header gerekli")
				return
			}

			// "Bearer " prefix'ini kontrol et
			tokenParts := strings.SplitN(authHeader, " ", 2)
			if len(tokenParts) != 2 || !strings.EqualFold(tokenParts[0], "Bearer") || tokenParts[1] == "" {
				log.Warn().Str("path", r.URL.Path).Msg("Geçersiz Authorization format")
				writeUnauthorized(w, "Authorization format: 'Bearer <token>'")
				return
			}

			claims, err := validator.Validate(tokenParts[1])
			if err != nil {
				log.Warn().
					Err(err).
					Str("path", r.URL.Path).
					Msg("Token doğrulama başarısız")
				writeUnauthorized(w, "Geçersiz token")
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey{}, claims)
			// Context logger'a user_id ekle
			ctx = log.Ctx(ctx).With().Str("user_id", claims.UserID()).Logger().WithContext(ctx)

			log.Debug().
				Str("user_id", claims.UserID()).
				Str("path", r.URL.Path).
				Msg("🔐 Authentication successful")

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClaimsFromContext doğrulanmış kullanıcı bilgisi
func ClaimsFromContext(ctx context.Context) (*auth.Claims, bool) {
	claims, ok := ctx.Value(claimsKey{}).(*auth.Claims)
	return claims, ok && claims != nil
}

// WithClaims testler ve iç çağrılar için claims'i context'e koyar
func WithClaims(ctx context.Context, claims *auth.Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, claims)
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	errors.Write(w, errors.NewErrorResponse(http.StatusUnauthorized, "UNAUTHORIZED", message, w.Header().Get("X-Request-ID")))
}
