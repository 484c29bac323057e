package models

import "time"

// MutationReason bakiye değişikliğinin sebebi
type MutationReason string

const (
	ReasonSignupBonus MutationReason = "signup_bonus"
	ReasonDebit       MutationReason = "debit"
	ReasonPayment     MutationReason = "payment"
)

// Valid bilinen bir sebep mi
func (r MutationReason) Valid() bool {
	switch r {
	case ReasonSignupBonus, ReasonDebit, ReasonPayment:
		return true
	}
	return false
}

// MutationMeta mutasyonla birlikte saklanan gözlemlenebilirlik alanları
type MutationMeta map[string]string

// UserBalance kullanıcı başına tek kredi bakiyesi
type UserBalance struct {
	UserID             string         `json:"user_id" db:"user_id"`
	CreditsRemaining   int64          `json:"credits_remaining" db:"credits_remaining"`
	CreditsTotal       int64          `json:"credits_total" db:"credits_total"` // Hiç azalmaz
	LastMutationReason MutationReason `json:"last_mutation_reason,omitempty" db:"last_mutation_reason"`
	LastMutationMeta   MutationMeta   `json:"last_mutation_meta,omitempty" db:"last_mutation_meta"`
	CreatedAt          time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at" db:"updated_at"`
}

// Snapshot bakiyenin dışarı verilen kısmı
func (b *UserBalance) Snapshot() BalanceSnapshot {
	return BalanceSnapshot{CreditsRemaining: b.CreditsRemaining, CreditsTotal: b.CreditsTotal}
}

// BalanceSnapshot (remaining, total) çifti
type BalanceSnapshot struct {
	CreditsRemaining int64 `json:"credits_remaining"`
	CreditsTotal     int64 `json:"credits_total"`
}

// BalanceMutation append-only mutasyon kaydı
type BalanceMutation struct {
	ID               int64          `json:"id" db:"id"`
	UserID           string         `json:"user_id" db:"user_id"`
	Delta            int64          `json:"delta" db:"delta"`
	Reason           MutationReason `json:"reason" db:"reason"`
	Meta             MutationMeta   `json:"meta,omitempty" db:"meta"`
	CreditsRemaining int64          `json:"credits_remaining" db:"credits_remaining"`
	CreditsTotal     int64          `json:"credits_total" db:"credits_total"`
	CreatedAt        time.Time      `json:"created_at" db:"created_at"`
}
