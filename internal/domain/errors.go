package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound = errors.New("not found")

	// Registration preconditions.
	ErrCohortNotOpen          = errors.New("cohort is not open for registration")
	ErrRegistrationWindow     = errors.New("registration window is closed")
	ErrAlreadyRegistered      = errors.New("user already holds a confirmed seat in this program")
	ErrRegistrationCancelled  = errors.New("registration is cancelled")
	ErrHoldExpired            = errors.New("registration hold has expired")
	ErrInvalidTransition      = errors.New("invalid registration transition")
	ErrRegistrationNotPending = errors.New("registration is not awaiting payment")

	// ErrCapacityExceeded is an outcome, not a failure to retry: the caller
	// should offer the waitlist instead.
	ErrCapacityExceeded = errors.New("cohort capacity exceeded")
	ErrCohortFull       = fmt.Errorf("cohort is full: %w", ErrCapacityExceeded)

	// Waitlist.
	ErrCohortNotFull     = errors.New("waitlist is only open when the cohort is full")
	ErrAlreadyWaitlisted = errors.New("user is already on the waitlist")

	// Payments.
	ErrUnsupportedProvider     = errors.New("unsupported payment provider")
	ErrPaymentAlreadyCompleted = errors.New("payment already completed")
	ErrPaymentNotCompleted     = errors.New("payment is not completed")
	ErrCheckoutPending         = errors.New("a checkout with another provider is still pending")
	ErrVerificationFailed      = errors.New("payment verification failed")
	ErrInvalidSignature        = fmt.Errorf("invalid webhook signature: %w", ErrVerificationFailed)
	ErrInvalidRefundAmount     = errors.New("refund amount must be positive")
	ErrRefundExceedsPaid       = errors.New("refund exceeds amount paid")
	ErrProviderUnavailable     = errors.New("payment provider unavailable")

	// Promo codes.
	ErrPromoNotFound      = errors.New("promo code not found")
	ErrPromoInactive      = errors.New("promo code is not active")
	ErrPromoNotApplicable = errors.New("promo code does not apply to this program")
	ErrPromoExhausted     = errors.New("promo code usage limit reached")

	ErrInvalidInput = errors.New("invalid input")
)

// VerificationError describes a provider-reported value that does not match
// the stored payment.
type VerificationError struct {
	PaymentID string
	Field     string
	Expected  string
	Actual    string
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf("payment %s: %s mismatch: expected %s, got %s", e.PaymentID, e.Field, e.Expected, e.Actual)
}

func (e *VerificationError) Unwrap() error {
	return ErrVerificationFailed
}

// ProviderError wraps a failed call to a payment provider API.
type ProviderError struct {
	Provider   PaymentProvider
	Op         string
	StatusCode int
	Message    string
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s: status %d: %s", e.Provider, e.Op, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s %s: %s", e.Provider, e.Op, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return ErrProviderUnavailable
}

// Invalid wraps ErrInvalidInput with a user-facing message.
func Invalid(msg string) error {
	return fmt.Errorf("%s: %w", msg, ErrInvalidInput)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrPromoNotFound)
}

// IsConflict returns true for errors caused by the current state of a resource.
func IsConflict(err error) bool {
	return errors.Is(err, ErrCapacityExceeded) ||
		errors.Is(err, ErrAlreadyRegistered) ||
		errors.Is(err, ErrAlreadyWaitlisted) ||
		errors.Is(err, ErrRegistrationCancelled) ||
		errors.Is(err, ErrHoldExpired) ||
		errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrRegistrationNotPending) ||
		errors.Is(err, ErrCohortNotFull) ||
		errors.Is(err, ErrPaymentAlreadyCompleted) ||
		errors.Is(err, ErrPaymentNotCompleted) ||
		errors.Is(err, ErrCheckoutPending)
}

// IsClientError returns true if the error is due to invalid client input or
// a rejected precondition.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrCohortNotOpen) ||
		errors.Is(err, ErrRegistrationWindow) ||
		errors.Is(err, ErrUnsupportedProvider) ||
		errors.Is(err, ErrInvalidRefundAmount) ||
		errors.Is(err, ErrRefundExceedsPaid) ||
		errors.Is(err, ErrPromoInactive) ||
		errors.Is(err, ErrPromoNotApplicable) ||
		errors.Is(err, ErrPromoExhausted)
}
