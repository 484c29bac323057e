package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config ortam yapılandırmalarını tutar
type Config struct {
	AppEnv string
	// APP_ENV ortamda açıkça tanımlı mı (varsayılan değil)
	AppEnvExplicit bool
	Port           string
	LogLevel       string

	DBHost         string
	DBPort         string
	DBUser         string
	DBPass         string
	DBName         string
	DBSSLMode      string
	DBMaxOpenConns int
	DBMaxIdleConns int
	AutoMigrate    bool

	// Store çağrılarının üst sınırı ve serialization retry sayısı
	StoreTimeout  time.Duration
	TxMaxAttempts int

	JWTSecret      string
	InitialCredits int64

	Stripe   StripeConfig
	Checkout CheckoutConfig

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	SeenCacheTTL  time.Duration

	RetentionWindow   time.Duration
	RetentionInterval time.Duration

	RateLimitRPM       int
	CORSAllowedOrigins []string
}

// StripeConfig ödeme sağlayıcı anahtarları ve fiyat id'leri
type StripeConfig struct {
	SecretKey        string
	WebhookSecret    string
	APIURL           string
	WebhookTolerance time.Duration
	// Paket boyutu -> price id
	PricesMXN map[int64]string
	PricesUSD map[int64]string
}

// CheckoutConfig checkout yönlendirmeleri ve ayarlanabilir miktar sınırları
type CheckoutConfig struct {
	FrontendURL    string
	SuccessURL     string
	CancelURL      string
	DefaultCountry string
	AdjustableMin  int64
	AdjustableMax  int64
}

// PackageSizes desteklenen sabit paketler
var PackageSizes = []int64{25, 50, 100, 250}

// yardımcı fonksiyon: ortam değişkeni yoksa default değeri döner
func getEnv(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func getEnvInt(key string, defaultVal int) int {
	val, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return defaultVal
	}
	return val
}

func getEnvBool(key string, defaultVal bool) bool {
	val, err := strconv.ParseBool(getEnv(key, ""))
	if err != nil {
		return defaultVal
	}
	return val
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	val, err := time.ParseDuration(getEnv(key, ""))
	if err != nil {
		return defaultVal
	}
	return val
}

func priceMap(prefix string) map[int64]string {
	prices := make(map[int64]string, len(PackageSizes))
	for _, size := range PackageSizes {
		if id := getEnv(fmt.Sprintf("%s_%d", prefix, size), ""); id != "" {
			prices[size] = id
		}
	}
	return prices
}

// LoadConfig tüm yapılandırmayı yükler
func LoadConfig() *Config {
	frontend := strings.TrimRight(getEnv("FRONTEND_URL", "https://siraia.com"), "/")

	// Ayarlanabilir miktar: min en az 1, max en az min
	adjMin := int64(getEnvInt("CHECKOUT_ADJUSTABLE_MIN", 1))
	if adjMin < 1 {
		adjMin = 1
	}
	adjMax := int64(getEnvInt("CHECKOUT_ADJUSTABLE_MAX", 10))
	if adjMax < adjMin {
		adjMax = adjMin
	}

	var origins []string
	for _, o := range strings.Split(getEnv("CORS_ALLOWED_ORIGINS", "*"), ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}

	return &Config{
		AppEnv:         getEnv("APP_ENV", "development"),
		AppEnvExplicit: os.Getenv("APP_ENV") != "",
		Port:           getEnv("PORT", "8080"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),

		DBHost:         getEnv("DB_HOST", "localhost"),
		DBPort:         getEnv("DB_PORT", "5432"),
		DBUser:         getEnv("DB_USER", "ledger"),
		DBPass:         getEnv("DB_PASS", "password"),
		DBName:         getEnv("DB_NAME", "creditdb"),
		DBSSLMode:      getEnv("DB_SSLMODE", "disable"),
		DBMaxOpenConns: getEnvInt("DB_MAX_OPEN_CONNS", 25),
		DBMaxIdleConns: getEnvInt("DB_MAX_IDLE_CONNS", 5),
		AutoMigrate:    getEnvBool("AUTO_MIGRATE", true),

		StoreTimeout:  getEnvDuration("STORE_TIMEOUT", 5*time.Second),
		TxMaxAttempts: getEnvInt("TX_MAX_ATTEMPTS", 3),

		JWTSecret:      getEnv("JWT_SECRET", ""),
		InitialCredits: int64(getEnvInt("INITIAL_CREDITS", 10)),

		Stripe: StripeConfig{
			SecretKey:        getEnv("STRIPE_SECRET_KEY", ""),
			WebhookSecret:    getEnv("STRIPE_WEBHOOK_SECRET", ""),
			APIURL:           getEnv("STRIPE_API_URL", ""),
			WebhookTolerance: getEnvDuration("WEBHOOK_TOLERANCE", 5*time.Minute),
			PricesMXN:        priceMap("STRIPE_PRICE_MXN"),
			PricesUSD:        priceMap("STRIPE_PRICE_USD"),
		},
		Checkout: CheckoutConfig{
			FrontendURL:    frontend,
			SuccessURL:     getEnv("FRONT_SUCCESS_URL", frontend+"/?status=success"),
			CancelURL:      getEnv("FRONT_CANCEL_URL", frontend+"/?status=cancel"),
			DefaultCountry: strings.ToUpper(getEnv("DEFAULT_COUNTRY", "MX")),
			AdjustableMin:  adjMin,
			AdjustableMax:  adjMax,
		},

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		SeenCacheTTL:  getEnvDuration("SEEN_CACHE_TTL", 24*time.Hour),

		RetentionWindow:   getEnvDuration("RETENTION_WINDOW", 90*24*time.Hour),
		RetentionInterval: getEnvDuration("RETENTION_INTERVAL", time.Hour),

		RateLimitRPM:       getEnvInt("RATE_LIMIT_RPM", 120),
		CORSAllowedOrigins: origins,
	}
}

// Validate çalışmaya engel yapılandırma hatalarını döner
func (c *Config) Validate() error {
	if c.InitialCredits <= 0 {
		return fmt.Errorf("INITIAL_CREDITS pozitif olmalı: %d", c.InitialCredits)
	}
	if c.TxMaxAttempts < 1 {
		return fmt.Errorf("TX_MAX_ATTEMPTS en az 1 olmalı: %d", c.TxMaxAttempts)
	}
	if c.StoreTimeout <= 0 {
		return fmt.Errorf("STORE_TIMEOUT pozitif olmalı: %s", c.StoreTimeout)
	}
	// Development secret yalnızca APP_ENV=development açıkça verildiğinde kabul edilir
	if c.JWTSecret == "" && !(c.IsDevelopment() && c.AppEnvExplicit) {
		return fmt.Errorf("JWT_SECRET zorunlu (APP_ENV=%q)", c.AppEnv)
	}
	return nil
}

// IsDevelopment development ortamı mı
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// GetDSN veritabanı bağlantı URL'sini döner
func (c *Config) GetDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DBUser, c.DBPass, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode,
	)
}
