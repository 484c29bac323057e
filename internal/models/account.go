package models

import "time"

// RegionSignals bölge çözümlemesi için elde olan sinyaller
type RegionSignals struct {
	PhoneE164      string
	GeoCountry     string // CF-IPCountry
	AcceptLanguage string
}

// AccountView /me ve /signup yanıtındaki kullanıcı
type AccountView struct {
	ID                 string         `json:"id"`
	PhoneE164          string         `json:"phone_e164"`
	CreditsRemaining   int64          `json:"credits_remaining"`
	CreditsTotal       int64          `json:"credits_total"`
	LastMutationReason MutationReason `json:"last_mutation_reason,omitempty"`
	UpdatedAt          *time.Time     `json:"updated_at,omitempty"`
}

// SignupResult signup yanıtı
type SignupResult struct {
	User           AccountView `json:"user"`
	IsNew          bool        `json:"is_new"`
	CreditsAwarded int64       `json:"credits_awarded"`
}

// PaymentDiagnostics yapılandırma varlık kontrolü (değerler asla dönmez)
type PaymentDiagnostics struct {
	OK      bool `json:"ok"`
	Present struct {
		StripeSecretKey     bool            `json:"STRIPE_SECRET_KEY"`
		StripeWebhookSecret bool            `json:"STRIPE_WEBHOOK_SECRET"`
		MXN                 map[string]bool `json:"MXN"`
		USD                 map[string]bool `json:"USD"`
	} `json:"present"`
	AdjustableFallback struct {
		EnabledWhenPkgMissing bool  `json:"enabled_when_pkg_missing"`
		BaseUnitCredits       int64 `json:"base_unit_credits"`
		Min                   int64 `json:"min"`
		Max                   int64 `json:"max"`
	} `json:"adjustable_fallback"`
}
