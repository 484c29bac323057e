package utils

import (
	"net"
	"net/http"
	"strings"

	"github.com/onerilhan/go-credit-ledger/internal/models"
)

// GetClientIP gerçek client IP'sini alır (proxy, load balancer desteği ile)
func GetClientIP(r *http.Request) string {
	// X-Forwarded-For header'ını kontrol et (load balancer/proxy)
	xff := r.Header.Get("X-Forwarded-For")
	if xff != "" {
		// İlk IP'yi al (chain'deki ilk IP gerçek client)
		ips := strings.Split(xff, ",")
		if len(ips) > 0 {
			return strings.TrimSpace(ips[0])
		}
	}

	// X-Real-IP header'ını kontrol et
	xri := r.Header.Get("X-Real-IP")
	if xri != "" {
		return xri
	}

	// Cloudflare IP
	cfIP := r.Header.Get("CF-Connecting-IP")
	if cfIP != "" {
		return cfIP
	}

	// RemoteAddr'yi kullan (son çare). IPv6 adresleri de ':' içerir.
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// RegionSignalsFromRequest bölge çözümlemesi için header sinyalleri. Telefon
// token'dan gelir, bu yüzden çağıran doldurur.
func RegionSignalsFromRequest(r *http.Request, phoneE164 string) models.RegionSignals {
	return models.RegionSignals{
		PhoneE164:      phoneE164,
		GeoCountry:     strings.ToUpper(strings.TrimSpace(r.Header.Get("CF-IPCountry"))),
		AcceptLanguage: r.Header.Get("Accept-Language"),
	}
}
