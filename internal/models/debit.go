package models

import (
	"encoding/json"
	"time"
)

// DebitStatus debit kaydının durumu
type DebitStatus string

const (
	DebitClaimed   DebitStatus = "claimed"
	DebitCompleted DebitStatus = "completed"
)

// DebitRecord request_id başına bir kayıt; sonucu replay için saklar
type DebitRecord struct {
	RequestID        string      `json:"request_id" db:"request_id"`
	UserID           string      `json:"user_id" db:"user_id"`
	Amount           int64       `json:"amount" db:"amount"`
	Status           DebitStatus `json:"status" db:"status"`
	CreditsRemaining int64       `json:"credits_remaining" db:"credits_remaining"`
	CreditsTotal     int64       `json:"credits_total" db:"credits_total"`
	CreatedAt        time.Time   `json:"created_at" db:"created_at"`
	CompletedAt      *time.Time  `json:"completed_at,omitempty" db:"completed_at"`
}

// DebitRequest POST /credits/debit gövdesi
type DebitRequest struct {
	// Eksikse 1 kabul edilir; tam sayı olmalı
	Amount    json.Number `json:"amount"`
	RequestID string      `json:"request_id" validate:"omitempty,max=120,printascii"`
	Flow      string      `json:"flow" validate:"omitempty,max=40"`
	Device    string      `json:"device" validate:"omitempty,max=40"`
}

// DebitCommand servis katmanına giden doğrulanmış debit
type DebitCommand struct {
	UserID    string
	Amount    int64
	RequestID string
	Flow      string
	Device    string
}

// DebitResult debit sonucu
type DebitResult struct {
	RequestID string `json:"request_id"`
	BalanceSnapshot
	Replayed bool `json:"replayed"`
}
