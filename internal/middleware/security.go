package middleware

import (
	"fmt"
	"net/http"
)

// SecurityConfig JSON API için security header ayarları
type SecurityConfig struct {
	HSTSMaxAge            int
	HSTSIncludeSubdomains bool
	FrameOptions          string
	ContentTypeNosniff    bool
	ReferrerPolicy        string
	CustomHeaders         map[string]string
}

// DefaultSecurityConfig production ayarları
func DefaultSecurityConfig() *SecurityConfig {
	return &SecurityConfig{
		HSTSMaxAge:            31536000, // 1 yıl
		HSTSIncludeSubdomains: true,
		FrameOptions:          "DENY",
		ContentTypeNosniff:    true,
		ReferrerPolicy:        "no-referrer",
		CustomHeaders: map[string]string{
			"Content-Security-Policy": "default-src 'none'; frame-ancestors 'none'",
			"Cache-Control":           "no-store",
		},
	}
}

// DevelopmentSecurityConfig HTTP üzerinde çalışmak için HSTS kapalı
func DevelopmentSecurityConfig() *SecurityConfig {
	config := DefaultSecurityConfig()
	config.HSTSMaxAge = 0
	return config
}

// SecurityHeadersMiddleware güvenlik header'larını ekler
func SecurityHeadersMiddleware(config *SecurityConfig) func(http.Handler) http.Handler {
	if config == nil {
		config = DefaultSecurityConfig()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if config.HSTSMaxAge > 0 {
				hsts := fmt.Sprintf("max-age=%d", config.HSTSMaxAge)
				if config.HSTSIncludeSubdomains {
					hsts += "; includeSubDomains"
				}
				w.Header().Set("Strict-Transport-Security", hsts)
			}
			if config.FrameOptions != "" {
				w.Header().Set("X-Frame-Options", config.FrameOptions)
			}
			if config.ContentTypeNosniff {
				w.Header().Set("X-Content-Type-Options", "nosniff")
			}
			if config.ReferrerPolicy != "" {
				w.Header().Set("Referrer-Policy", config.ReferrerPolicy)
			}
			for key, value := range config.CustomHeaders {
				w.Header().Set(key, value)
			}

			next.ServeHTTP(w, r)
		})
	}
}
