package domain

import "time"

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusCompleted PaymentStatus = "COMPLETED"
	PaymentStatusFailed    PaymentStatus = "FAILED"
	PaymentStatusRefunded  PaymentStatus = "REFUNDED"
)

type PaymentProvider string

const (
	ProviderCard  PaymentProvider = "CARD"
	ProviderBNPLA PaymentProvider = "BNPL_A"
	ProviderBNPLB PaymentProvider = "BNPL_B"
)

func (p PaymentProvider) Valid() bool {
	return p == ProviderCard || p == ProviderBNPLA || p == ProviderBNPLB
}

// Payment belongs to exactly one registration. Amounts are in minor units.
type Payment struct {
	ID                string
	RegistrationID    string
	AmountCents       int64
	Currency          string
	Status            PaymentStatus
	Provider          PaymentProvider
	ProviderPaymentID string
	RefundedCents     int64
	PromoCode         string
	DiscountCents     int64
	CheckoutURL       string
	FailureReason     string
	// AttentionReason flags the payment for operator follow-up.
	AttentionReason string
	CompletedAt     *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (p *Payment) Settled() bool {
	return p.Status == PaymentStatusCompleted || p.Status == PaymentStatusRefunded
}

func (p *Payment) RefundableCents() int64 {
	return p.AmountCents - p.RefundedCents
}

type RefundStatus string

const (
	RefundStatusPending   RefundStatus = "PENDING"
	RefundStatusSucceeded RefundStatus = "SUCCEEDED"
	RefundStatusFailed    RefundStatus = "FAILED"
)

type Refund struct {
	ID               string
	PaymentID        string
	AmountCents      int64
	Reason           string
	Status           RefundStatus
	ProviderRefundID string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
