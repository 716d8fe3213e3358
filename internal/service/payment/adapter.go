package payment

import (
	"context"

	"github.com/Domenick1991/cohortseat/internal/domain"
)

// Adapter normalises one payment provider. Adapters never touch storage.
type Adapter interface {
	Provider() domain.PaymentProvider
	// CreatePayment opens a checkout for req and returns the provider's id
	// and redirect URL.
	CreatePayment(ctx context.Context, req domain.CheckoutRequest) (*domain.Checkout, error)
	// Identify authenticates event and extracts the payment it refers to.
	// Signature failures wrap domain.ErrVerificationFailed.
	Identify(ctx context.Context, event domain.PaymentEvent) (*domain.PaymentRef, error)
	// Verify re-reads the payment from the provider and runs any side effect
	// the provider requires before the seat may be confirmed.
	Verify(ctx context.Context, ref *domain.PaymentRef, payment *domain.Payment) (*domain.Outcome, error)
	// Settle runs side effects that follow a confirmed seat, such as a capture.
	Settle(ctx context.Context, payment *domain.Payment) error
	// Refund returns the provider's refund id.
	Refund(ctx context.Context, payment *domain.Payment, amountCents int64, reason string) (string, error)
}

// Result describes what Reconcile did with an event.
type Result string

const (
	ResultUnknownPayment Result = "unknown_payment"
	ResultDuplicate      Result = "duplicate"
	ResultPending        Result = "pending"
	ResultFailed         Result = "failed"
	ResultConfirmed      Result = "confirmed"
)

// Operator flags stored in Payment.AttentionReason.
const (
	AttentionPaidAfterExpiry = "paid after hold expired"
	AttentionVerification    = "verification failed"
	AttentionSettleFailed    = "settle failed"
)
