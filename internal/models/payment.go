package models

import (
	"fmt"
	"time"
)

// Region fiyat bölgesi
type Region string

const (
	RegionMX   Region = "MX"
	RegionINTL Region = "INTL"
)

// Ödeme sağlayıcı event tipleri
const (
	EventCheckoutCompleted             = "checkout.session.completed"
	EventCheckoutAsyncPaymentSucceeded = "checkout.session.async_payment_succeeded"
)

// Event kayıt sebepleri
const (
	ReasonMissingUserReference = "missing_user_reference"
	ReasonUnhandledEventType   = "unhandled_event_type"
	ReasonPaymentNotSettled    = "payment_not_settled"
	ReasonOrderAlreadyPaid     = "order_already_paid"
)

// EventOutcome webhook event sonucu
type EventOutcome string

const (
	OutcomeApplied   EventOutcome = "applied"
	OutcomeIgnored   EventOutcome = "ignored"
	OutcomeDuplicate EventOutcome = "duplicate"
)

// PaymentEvent sağlayıcı event id başına bir kayıt
type PaymentEvent struct {
	EventID     string       `json:"event_id" db:"event_id"`
	EventType   string       `json:"event_type" db:"event_type"`
	SessionID   string       `json:"session_id,omitempty" db:"session_id"`
	Outcome     EventOutcome `json:"outcome" db:"outcome"`
	Reason      string       `json:"reason,omitempty" db:"reason"`
	ProcessedAt time.Time    `json:"processed_at" db:"processed_at"`
}

// OrderStatus sipariş durumu (pending -> paid)
type OrderStatus string

const (
	OrderPending OrderStatus = "pending"
	OrderPaid    OrderStatus = "paid"
)

// Order checkout session başına sipariş
type Order struct {
	SessionID       string      `json:"session_id" db:"session_id"`
	UserID          string      `json:"user_id" db:"user_id"`
	Package         string      `json:"package" db:"package"`
	PackageCredits  int64       `json:"package_credits" db:"package_credits"`
	Region          Region      `json:"region" db:"region"`
	Status          OrderStatus `json:"status" db:"status"`
	FirstPurchase   bool        `json:"first_purchase" db:"first_purchase"`
	RewardGiven     bool        `json:"reward_given" db:"reward_given"`
	Adjustable      bool        `json:"adjustable" db:"adjustable"`
	BaseUnitCredits int64       `json:"base_unit_credits,omitempty" db:"base_unit_credits"`
	Quantity        int64       `json:"quantity,omitempty" db:"quantity"`
	AmountTotal     int64       `json:"amount_total" db:"amount_total"` // Minor birim (cent)
	Currency        string      `json:"currency,omitempty" db:"currency"`
	CreatedAt       time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at" db:"updated_at"`
	PaidAt          *time.Time  `json:"paid_at,omitempty" db:"paid_at"`
}

// AmountDecimal tutarı major birimde "99.00" biçiminde döner
func (o *Order) AmountDecimal() string {
	sign := ""
	amount := o.AmountTotal
	if amount < 0 {
		sign, amount = "-", -amount
	}
	return fmt.Sprintf("%s%d.%02d", sign, amount/100, amount%100)
}

// ProviderEvent imzası doğrulanmış sağlayıcı event'i
type ProviderEvent struct {
	ID      string
	Type    string
	Session *ProviderSession
}

// ProviderSession sağlayıcının checkout session kaydı
type ProviderSession struct {
	ID                string
	ClientReferenceID string
	Metadata          map[string]string
	AmountTotal       int64 // Minor birim
	Currency          string
	PaymentStatus     string
	URL               string
	// LineItemsLoaded true ise LineItemQuantity sağlayıcıdan okunmuştur
	LineItemsLoaded  bool
	LineItemQuantity int64
}

// UserID client_reference_id, yoksa metadata.user_id
func (s *ProviderSession) UserID() string {
	if s.ClientReferenceID != "" {
		return s.ClientReferenceID
	}
	if s.Metadata != nil {
		return s.Metadata["user_id"]
	}
	return ""
}

// IsAdjustable ayarlanabilir miktarlı checkout mu
func (s *ProviderSession) IsAdjustable() bool {
	if s.Metadata == nil {
		return false
	}
	_, hasBase := s.Metadata["base_unit_credits"]
	return s.Metadata["adjustable"] == "1" || hasBase
}

// IsSettled ödeme alındı mı
func (s *ProviderSession) IsSettled() bool {
	return s.PaymentStatus == "paid" || s.PaymentStatus == "no_payment_required"
}

// RegionOrDefault metadata'daki bölge, yoksa INTL
func (s *ProviderSession) RegionOrDefault() Region {
	if s.Metadata != nil && Region(s.Metadata["region"]) == RegionMX {
		return RegionMX
	}
	return RegionINTL
}

// CheckoutSessionRequest sağlayıcıya giden checkout isteği
type CheckoutSessionRequest struct {
	UserID          string
	PhoneE164       string
	RequestID       string
	Region          Region
	PriceID         string
	Package         string
	Adjustable      bool
	BaseUnitCredits int64
	MinQuantity     int64
	MaxQuantity     int64
	SuccessURL      string
	CancelURL       string
}

// CheckoutSessionResult sağlayıcının döndüğü session
type CheckoutSessionResult struct {
	SessionID string
	URL       string
}

// CheckoutRequest POST /checkout/session gövdesi
type CheckoutRequest struct {
	Package   string `json:"pkg" validate:"omitempty,max=20"`
	PackageID string `json:"package_id" validate:"omitempty,max=20"`
}

// Selector pkg alanı, yoksa package_id
func (r *CheckoutRequest) Selector() string {
	if r.PackageID != "" {
		return r.PackageID
	}
	return r.Package
}

// CheckoutResponse checkout yanıtı
type CheckoutResponse struct {
	URL        string `json:"url"`
	SessionURL string `json:"session_url"`
	SessionID  string `json:"session_id"`
	Region     Region `json:"region"`
	Pkg        string `json:"pkg"`
}

// ConfirmRequest POST /checkout/confirm gövdesi
type ConfirmRequest struct {
	SessionID string `json:"session_id" validate:"required,max=255"`
}

// ReconcileResult bir session'ın uzlaştırma sonucu
type ReconcileResult struct {
	SessionID      string           `json:"session_id"`
	UserID         string           `json:"user_id,omitempty"`
	Credited       bool             `json:"credited"`
	DuplicateOrder bool             `json:"duplicate_order,omitempty"`
	CreditsGranted int64            `json:"credits_granted"`
	FirstPurchase  bool             `json:"first_purchase"`
	Balance        *BalanceSnapshot `json:"balance,omitempty"`
}

// WebhookResult webhook yanıtı
type WebhookResult struct {
	Received  bool   `json:"received"`
	EventID   string `json:"event_id"`
	Duplicate bool   `json:"duplicate,omitempty"`
	Ignored   bool   `json:"ignored,omitempty"`
	Reason    string `json:"reason,omitempty"`
	*ReconcileResult
}

// CheckoutCommand servis katmanına giden checkout isteği
type CheckoutCommand struct {
	UserID    string
	PhoneE164 string
	RequestID string
	Signals   RegionSignals
	Selector  string
}
