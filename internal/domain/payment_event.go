package domain

import (
	"crypto/sha256"
	"encoding/hex"
)

// PaymentEvent is a payment outcome report from one provider. Each variant is
// normalised by its provider adapter before it reaches reconciliation.
type PaymentEvent interface {
	Provider() PaymentProvider
	// DeliveryID identifies the delivery for de-duplication; empty when the
	// provider supplies none.
	DeliveryID() string
}

// CardEvent is raised by the client confirm endpoint after a card checkout.
type CardEvent struct {
	ProviderPaymentID string
}

func (CardEvent) Provider() PaymentProvider { return ProviderCard }
func (CardEvent) DeliveryID() string        { return "" }

// ProviderAEvent is an installment provider A webhook delivery.
type ProviderAEvent struct {
	EventID        string `json:"event_id"`
	EventType      string `json:"event_type"`
	PaymentID      string `json:"payment_id"`
	OrderReference string `json:"order_reference"`
}

func (ProviderAEvent) Provider() PaymentProvider { return ProviderBNPLA }
func (e ProviderAEvent) DeliveryID() string      { return e.EventID }

// ProviderBEvent carries the signed token posted by installment provider B.
type ProviderBEvent struct {
	Token string `json:"token"`
}

func (ProviderBEvent) Provider() PaymentProvider { return ProviderBNPLB }
// DeliveryID is derived from the token since provider B sends no event id.
func (e ProviderBEvent) DeliveryID() string {
	sum := sha256.Sum256([]byte(e.Token))
	return hex.EncodeToString(sum[:])
}

// PollEvent asks the adapter to re-fetch the provider state of a known payment.
type PollEvent struct {
	PaymentProvider   PaymentProvider
	ProviderPaymentID string
}

func (e PollEvent) Provider() PaymentProvider { return e.PaymentProvider }
func (PollEvent) DeliveryID() string          { return "" }

// PaymentRef locates the local payment an event refers to.
type PaymentRef struct {
	ProviderPaymentID string
	RegistrationID    string
	// Claims holds provider-specific verified attributes, such as the
	// reported status of a signed token.
	Claims map[string]string
}

type OutcomeStatus string

const (
	OutcomePending   OutcomeStatus = "PENDING"
	OutcomeSucceeded OutcomeStatus = "SUCCEEDED"
	OutcomeFailed    OutcomeStatus = "FAILED"
)

// Outcome is the normalised, provider-verified result of a payment.
type Outcome struct {
	ProviderPaymentID string
	VerifiedAmount    int64
	VerifiedCurrency  string
	Status            OutcomeStatus
	Reason            string
}

// Checkout is returned by a provider when a payment is created.
type Checkout struct {
	ProviderPaymentID string
	RedirectURL       string
	Status            string
}

// CheckoutRequest is what the core asks a provider to charge.
type CheckoutRequest struct {
	PaymentID      string
	RegistrationID string
	Email          string
	AmountCents    int64
	Currency       string
	Description    string
}
