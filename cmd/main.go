package main

import (
	"context"
	stdlog "log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/onerilhan/go-credit-ledger/internal/auth"
	"github.com/onerilhan/go-credit-ledger/internal/cache"
	"github.com/onerilhan/go-credit-ledger/internal/config"
	"github.com/onerilhan/go-credit-ledger/internal/db"
	"github.com/onerilhan/go-credit-ledger/internal/handlers"
	"github.com/onerilhan/go-credit-ledger/internal/interfaces"
	"github.com/onerilhan/go-credit-ledger/internal/logger"
	"github.com/onerilhan/go-credit-ledger/internal/metrics"
	"github.com/onerilhan/go-credit-ledger/internal/middleware"
	"github.com/onerilhan/go-credit-ledger/internal/migration"
	"github.com/onerilhan/go-credit-ledger/internal/payments"
	"github.com/onerilhan/go-credit-ledger/internal/repository"
	"github.com/onerilhan/go-credit-ledger/internal/services"
)

func main() {
	// .env dosyasını yükle
	if err := godotenv.Load(); err != nil {
		stdlog.Println(".env dosyası bulunamadı, ortam değişkenlerinden okunacak.")
	}

	cfg := config.LoadConfig()
	logger.Init(cfg.AppEnv, cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("❌ Geçersiz yapılandırma")
	}

	log.Info().
		Str("environment", cfg.AppEnv).
		Str("port", cfg.Port).
		Int64("initial_credits", cfg.InitialCredits).
		Msg("🚀 Credit Ledger başlatılıyor")

	ctx := context.Background()

	database, err := db.Connect(ctx, cfg.GetDSN(), db.PoolOptions{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: 30 * time.Minute,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("❌ Veritabanı bağlantısı başarısız")
	}
	defer database.Close()

	if cfg.AutoMigrate {
		if err := migration.RunMigrations(database); err != nil {
			log.Fatal().Err(err).Msg("❌ Migration başarısız")
		}
	}

	txOpts := db.DefaultTxOptions()
	txOpts.MaxAttempts = cfg.TxMaxAttempts
	txOpts.Timeout = cfg.StoreTimeout
	store := repository.NewStore(database, txOpts)

	seenCache, closeCache := setupSeenCache(ctx, cfg)
	defer closeCache()

	ledgerMetrics := metrics.Default()
	provider := payments.NewStripeProvider(cfg.Stripe)

	// Service katmanı
	ledger := services.NewLedgerService(store, ledgerMetrics, cfg.StoreTimeout)
	resolver := services.NewPackageResolver(cfg.Stripe, cfg.Checkout, provider)
	accountService := services.NewAccountService(store, ledger, ledgerMetrics, cfg.InitialCredits, cfg.StoreTimeout)
	debitService := services.NewDebitService(store, ledger, ledgerMetrics, cfg.StoreTimeout)
	checkoutService := services.NewCheckoutService(store, provider, resolver, cfg.Stripe, cfg.Checkout, ledgerMetrics, cfg.StoreTimeout)
	reconciliationService := services.NewReconciliationService(store, ledger, provider, resolver, seenCache, ledgerMetrics, cfg.StoreTimeout)

	retentionWorker := services.NewRetentionWorker(store, ledgerMetrics, cfg.RetentionWindow, cfg.RetentionInterval, cfg.StoreTimeout)
	retentionWorker.Start()

	rateLimiter := middleware.NewRateLimiter(&middleware.RateLimitConfig{
		RequestsPerMinute: cfg.RateLimitRPM,
		Burst:             cfg.RateLimitRPM / 6,
		SkipPaths:         []string{"/health", "/metrics"},
	})

	router := handlers.NewRouter(handlers.RouterDeps{
		Accounts:    handlers.NewAccountHandler(accountService),
		Credits:     handlers.NewCreditsHandler(debitService),
		Payments:    handlers.NewPaymentHandler(checkoutService, reconciliationService),
		System:      handlers.NewSystemHandler(database, checkoutService),
		Metrics:     ledgerMetrics,
		Tokens:      auth.NewTokenManager(cfg.JWTSecret, 24*time.Hour),
		RateLimiter: rateLimiter,
	})
	logRoutes(router)

	serverAddr := ":" + cfg.Port
	server := &http.Server{
		Addr:              serverAddr,
		Handler:           handlers.WrapGlobal(router, cfg.IsDevelopment(), cfg.CORSAllowedOrigins),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Graceful shutdown setup
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Info().Str("addr", serverAddr).Msg("🌐 HTTP Server (Gorilla Mux) başlatıldı")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("❌ Server başlatma hatası")
		}
	}()

	<-shutdown
	log.Info().Msg("🛑 Shutdown signal alındı, server kapatılıyor...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// 1. Yeni istek kabul etme, aktif istekleri bekle
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("❌ HTTP Server kapatma hatası")
	} else {
		log.Info().Msg("✅ HTTP Server başarıyla kapatıldı")
	}

	// 2. Arka plan işleri
	retentionWorker.Stop()
	rateLimiter.Stop()

	log.Info().Msg("👋 Credit Ledger başarıyla kapatıldı")
}

// setupSeenCache REDIS_ADDR tanımlıysa Redis, değilse no-op cache döner.
// Redis'e ulaşılamaması başlatmayı durdurmaz; kesin kontrol veritabanındadır.
func setupSeenCache(ctx context.Context, cfg *config.Config) (interfaces.SeenCache, func()) {
	if cfg.RedisAddr == "" {
		log.Info().Msg("REDIS_ADDR tanımlı değil, seen cache devre dışı")
		return cache.NoopSeenCache{}, func() {}
	}

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	redisCache, err := cache.NewRedisSeenCache(pingCtx, cache.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
		TTL:      cfg.SeenCacheTTL,
	})
	if err != nil {
		log.Warn().Err(err).Msg("⚠️ Redis'e bağlanılamadı, seen cache devre dışı")
		return cache.NoopSeenCache{}, func() {}
	}

	return redisCache, func() {
		if err := redisCache.Close(); err != nil {
			log.Error().Err(err).Msg("Redis bağlantısı kapatılamadı")
		}
	}
}

// logRoutes kayıtlı route'ları debug seviyesinde loglar
func logRoutes(router *mux.Router) {
	_ = router.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		pathTemplate, err := route.GetPathTemplate()
		if err != nil {
			return nil
		}
		methods, _ := route.GetMethods()
		log.Debug().
			Str("path", pathTemplate).
			Strs("methods", methods).
			Msg("📍 Route registered")
		return nil
	})
}
