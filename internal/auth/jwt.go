package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
)

// development ortamında JWT_SECRET yoksa kullanılır
const devSecret = "dev-secret-change-this-in-production"

// ErrMissingSubject token'da kullanıcı id'si yok
var ErrMissingSubject = errors.New("token sub alanı boş")

// Claims JWT payload'ını temsil eder. Kullanıcı id'si sub alanındadır.
type Claims struct {
	PhoneE164 string `json:"phone_e164,omitempty"`
	jwt.RegisteredClaims
}

// UserID kararlı kullanıcı kimliği
func (c *Claims) UserID() string {
	return c.Subject
}

// TokenManager HS256 token üretir ve doğrular.
// Token'lar normalde dış kimlik servisi tarafından verilir; Generate test ve
// development için vardır.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenManager secret boşsa development secret'ı kullanır
func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	if secret == "" {
		log.Warn().Msg("⚠️ JWT_SECRET tanımlı değil, development secret kullanılıyor")
		secret = devSecret
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &TokenManager{secret: []byte(secret), ttl: ttl}
}

// Generate kullanıcı için token oluşturur
func (m *TokenManager) Generate(userID, phoneE164 string) (string, error) {
	if userID == "" {
		return "", ErrMissingSubject
	}

	now := time.Now()
	claims := &Claims{
		PhoneE164: phoneE164,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("token oluşturulamadı: %w", err)
	}
	return signed, nil
}

// Validate token'ı doğrular ve claims'i döner
func (m *TokenManager) Validate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		// Signing method kontrolü
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("beklenmeyen signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("token parse edilemedi: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("geçersiz token")
	}
	if claims.Subject == "" {
		return nil, ErrMissingSubject
	}
	return claims, nil
}
