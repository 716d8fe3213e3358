package repository

import (
	"context"
	"time"

	"github.com/Domenick1991/cohortseat/internal/domain"
)

// ErrNotFound is returned by every repository when a row does not exist.
var ErrNotFound = domain.ErrNotFound

type CohortRepository interface {
	List(ctx context.Context) ([]domain.Cohort, error)
	GetByID(ctx context.Context, id string) (*domain.Cohort, error)
	Create(ctx context.Context, cohort *domain.Cohort) error
	UpdateOccupancy(ctx context.Context, id string, enrolled int, status domain.CohortStatus) error
}

type RegistrationRepository interface {
	Create(ctx context.Context, reg *domain.Registration) error
	GetByID(ctx context.Context, id string) (*domain.Registration, error)
	// FindActiveByCohort returns the user's non-cancelled registration on a cohort.
	FindActiveByCohort(ctx context.Context, userID, cohortID string) (*domain.Registration, error)
	// FindActiveByProgram returns the user's non-cancelled registration on any
	// cohort of a program.
	FindActiveByProgram(ctx context.Context, userID, programID string) (*domain.Registration, error)
	Update(ctx context.Context, reg *domain.Registration) error
	// CountSeats returns confirmed registrations and unexpired pending holds.
	CountSeats(ctx context.Context, cohortID string, now time.Time) (confirmed, held int, err error)
	ListExpiredHolds(ctx context.Context, now time.Time, limit int) ([]domain.Registration, error)
}

type WaitlistRepository interface {
	Create(ctx context.Context, entry *domain.WaitlistEntry) error
	// GetLive returns the user's WAITING or NOTIFIED entry on a cohort.
	GetLive(ctx context.Context, userID, cohortID string) (*domain.WaitlistEntry, error)
	ListLive(ctx context.Context, cohortID string) ([]domain.WaitlistEntry, error)
	MaxLivePosition(ctx context.Context, cohortID string) (int, error)
	// NextWaiting returns the lowest-position WAITING entry.
	NextWaiting(ctx context.Context, cohortID string) (*domain.WaitlistEntry, error)
	Update(ctx context.Context, entry *domain.WaitlistEntry) error
	Delete(ctx context.Context, id string) error
	// CloseGap moves every live entry behind position one place forward.
	CloseGap(ctx context.Context, cohortID string, position int) error
	ListLapsedNotified(ctx context.Context, now time.Time, limit int) ([]domain.WaitlistEntry, error)
}

type PaymentRepository interface {
	Create(ctx context.Context, payment *domain.Payment) error
	GetByID(ctx context.Context, id string) (*domain.Payment, error)
	GetByRegistration(ctx context.Context, registrationID string) (*domain.Payment, error)
	GetByProviderPaymentID(ctx context.Context, provider domain.PaymentProvider, providerPaymentID string) (*domain.Payment, error)
	Update(ctx context.Context, payment *domain.Payment) error
	CreateRefund(ctx context.Context, refund *domain.Refund) error
	UpdateRefund(ctx context.Context, refund *domain.Refund) error
	ListRefunds(ctx context.Context, paymentID string) ([]domain.Refund, error)
}

type PromoRepository interface {
	GetByCode(ctx context.Context, code string) (*domain.PromoCode, error)
	Create(ctx context.Context, promo *domain.PromoCode) error
	IncrementUsage(ctx context.Context, code string) error
}

// Tx exposes the repositories bound to one unit of work.
type Tx interface {
	Cohorts() CohortRepository
	Registrations() RegistrationRepository
	Waitlist() WaitlistRepository
	Payments() PaymentRepository
	Promos() PromoRepository
}

// Store is the shared transactional store. Its embedded Tx reads and writes
// outside any transaction.
type Store interface {
	Tx
	// WithinCohort runs fn in one transaction that holds the cohort's lock for
	// its whole duration. Writes made through tx commit only when fn returns nil.
	WithinCohort(ctx context.Context, cohortID string, fn func(ctx context.Context, tx Tx) error) error
	// WithinPayment runs fn in one transaction that holds the payment row lock.
	WithinPayment(ctx context.Context, paymentID string, fn func(ctx context.Context, tx Tx, payment *domain.Payment) error) error
}
