package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/onerilhan/go-credit-ledger/internal/interfaces"
)

const defaultKeyPrefix = "credit-ledger:seen:"

// Options Redis bağlantı ayarları
type Options struct {
	Addr      string
	Password  string
	DB        int
	TTL       time.Duration
	KeyPrefix string
}

// RedisSeenCache işlenmiş event id'leri için Redis hızlı yolu.
// Sadece ipucu verir; kesin kayıt payment_events tablosundadır.
type RedisSeenCache struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

var _ interfaces.SeenCache = (*RedisSeenCache)(nil)

// NewRedisSeenCache client oluşturur ve bağlantıyı test eder
func NewRedisSeenCache(ctx context.Context, opts Options) (*RedisSeenCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis bağlantısı başarısız: %w", err)
	}

	log.Info().Str("addr", opts.Addr).Int("db", opts.DB).Msg("✅ Redis seen cache bağlandı")
	return NewRedisSeenCacheWithClient(client, opts.TTL, opts.KeyPrefix), nil
}

// NewRedisSeenCacheWithClient hazır bir client'ı sarar
func NewRedisSeenCacheWithClient(client *redis.Client, ttl time.Duration, prefix string) *RedisSeenCache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return &RedisSeenCache{client: client, ttl: ttl, prefix: prefix}
}

// Seen anahtar daha önce işaretlendiyse true
func (c *RedisSeenCache) Seen(ctx context.Context, key string) (bool, error) {
	n, err := c.client.Exists(ctx, c.prefix+key).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists: %w", err)
	}
	return n > 0, nil
}

// MarkSeen anahtarı TTL ile işaretler; mevcut TTL'i uzatmaz
func (c *RedisSeenCache) MarkSeen(ctx context.Context, key string) error {
	if err := c.client.SetNX(ctx, c.prefix+key, 1, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis setnx: %w", err)
	}
	return nil
}

// Close bağlantıyı kapatır
func (c *RedisSeenCache) Close() error {
	return c.client.Close()
}

// NoopSeenCache Redis yapılandırılmadığında kullanılır
type NoopSeenCache struct{}

var _ interfaces.SeenCache = NoopSeenCache{}

func (NoopSeenCache) Seen(context.Context, string) (bool, error) { return false, nil }
func (NoopSeenCache) MarkSeen(context.Context, string) error     { return nil }
