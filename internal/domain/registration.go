package domain

import "time"

type RegistrationStatus string

const (
	RegistrationStatusPendingPayment RegistrationStatus = "PENDING_PAYMENT"
	RegistrationStatusConfirmed      RegistrationStatus = "CONFIRMED"
	RegistrationStatusCancelled      RegistrationStatus = "CANCELLED"
)

// Actor identifies who requested a cancellation.
type Actor string

const (
	ActorUser   Actor = "USER"
	ActorAdmin  Actor = "ADMIN"
	ActorSystem Actor = "SYSTEM"
)

func (a Actor) Valid() bool {
	return a == ActorUser || a == ActorAdmin || a == ActorSystem
}

type Registration struct {
	ID           string
	UserID       string
	Email        string
	CohortID     string
	ProgramID    string
	Status       RegistrationStatus
	RegisteredAt time.Time
	ConfirmedAt  *time.Time
	ExpiresAt    *time.Time
	CancelledAt  *time.Time
	CancelledBy  Actor
	CancelReason string
	UpdatedAt    time.Time
}

// HoldExpired reports whether a pending hold has passed its expiry.
func (r *Registration) HoldExpired(now time.Time) bool {
	if r.Status != RegistrationStatusPendingPayment || r.ExpiresAt == nil {
		return false
	}
	return !now.Before(*r.ExpiresAt)
}

// ActiveHold reports whether the registration currently counts against capacity as a hold.
func (r *Registration) ActiveHold(now time.Time) bool {
	return r.Status == RegistrationStatusPendingPayment && !r.HoldExpired(now)
}
