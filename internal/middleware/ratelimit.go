package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/onerilhan/go-credit-ledger/internal/middleware/errors"
	"github.com/onerilhan/go-credit-ledger/internal/utils"
)

// RateLimitConfig IP başına rate limit ayarları
type RateLimitConfig struct {
	RequestsPerMinute int
	Burst             int
	WhitelistIPs      []string
	SkipPaths         []string
	IdleTTL           time.Duration // Bu süre görülmeyen IP'nin limiter'ı silinir
}

// DefaultRateLimitConfig varsayılan rate limit ayarları
func DefaultRateLimitConfig() *RateLimitConfig {
	return &RateLimitConfig{
		RequestsPerMinute: 120,
		Burst:             20,
		SkipPaths:         []string{"/health", "/metrics"},
		IdleTTL:           30 * time.Minute,
	}
}

type ipLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter IP başına token bucket
type RateLimiter struct {
	config   *RateLimitConfig
	limiters map[string]*ipLimiter
	mutex    sync.Mutex
	stop     chan struct{}
	stopOnce sync.Once
}

// NewRateLimiter limiter oluşturur ve temizlik goroutine'ini başlatır. Stop ile durdurulur.
func NewRateLimiter(config *RateLimitConfig) *RateLimiter {
	if config == nil {
		config = DefaultRateLimitConfig()
	}
	if config.RequestsPerMinute <= 0 {
		config.RequestsPerMinute = DefaultRateLimitConfig().RequestsPerMinute
	}
	if config.Burst <= 0 {
		config.Burst = 1
	}
	if config.IdleTTL <= 0 {
		config.IdleTTL = 30 * time.Minute
	}

	rl := &RateLimiter{
		config:   config,
		limiters: make(map[string]*ipLimiter),
		stop:     make(chan struct{}),
	}
	go rl.cleanupLoop()
	return rl
}

// Handler rate limiting middleware
func (rl *RateLimiter) Handler() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if contains(rl.config.SkipPaths, r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			clientIP := utils.GetClientIP(r)
			if contains(rl.config.WhitelistIPs, clientIP) {
				next.ServeHTTP(w, r)
				return
			}

			limiter := rl.limiterFor(clientIP)
			allowed := limiter.Allow()

			remaining := int(limiter.Tokens())
			if remaining < 0 {
				remaining = 0
			}
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.config.RequestsPerMinute))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))

			if !allowed {
				retryAfter := int(time.Minute.Seconds()) / rl.config.RequestsPerMinute
				if retryAfter < 1 {
					retryAfter = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))

				log.Warn().Str("client_ip", clientIP).Str("path", r.URL.Path).Msg("Request blocked - rate limit exceeded")

				resp := errors.NewErrorResponse(http.StatusTooManyRequests, "RATE_LIMITED", "Çok fazla istek. Lütfen daha sonra tekrar deneyin.", w.Header().Get("X-Request-ID"))
				resp.Retryable = true
				resp.Details = map[string]interface{}{"retry_after_seconds": retryAfter}
				errors.Write(w, resp)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func (rl *RateLimiter) limiterFor(ip string) *rate.Limiter {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	entry, ok := rl.limiters[ip]
	if !ok {
		every := rate.Every(time.Minute / time.Duration(rl.config.RequestsPerMinute))
		entry = &ipLimiter{limiter: rate.NewLimiter(every, rl.config.Burst)}
		rl.limiters[ip] = entry
	}
	entry.lastSeen = time.Now()
	return entry.limiter
}

// Stop temizlik goroutine'ini durdurur
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.config.IdleTTL / 3)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stop:
			return
		case now := <-ticker.C:
			rl.cleanup(now)
		}
	}
}

func (rl *RateLimiter) cleanup(now time.Time) {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	for ip, entry := range rl.limiters {
		if now.Sub(entry.lastSeen) > rl.config.IdleTTL {
			delete(rl.limiters, ip)
		}
	}
	log.Debug().Int("active_limiters", len(rl.limiters)).Msg("Rate limiter cleanup completed")
}
