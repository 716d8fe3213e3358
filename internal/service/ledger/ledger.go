// Package ledger owns cohort occupancy. It is the only code that changes a
// cohort's enrolled count or moves it between OPEN and FULL.
//
// Every method expects a transaction that already holds the cohort lock
// (repository.Store.WithinCohort); the read-then-write sequences below are
// only indivisible under that lock.
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/Domenick1991/cohortseat/internal/domain"
	"github.com/Domenick1991/cohortseat/internal/repository"
)

type Ledger struct {
	now func() time.Time
}

type Option func(*Ledger)

func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		l.now = now
	}
}

func New(opts ...Option) *Ledger {
	l := &Ledger{now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// ReserveSeat admits one more hold when confirmed registrations plus
// unexpired holds are below capacity, and returns ErrCapacityExceeded
// otherwise. Nothing is written: the hold itself is the new registration row.
func (l *Ledger) ReserveSeat(ctx context.Context, tx repository.Tx, cohortID string) error {
	cohort, err := tx.Cohorts().GetByID(ctx, cohortID)
	if err != nil {
		return err
	}
	occ, err := l.occupancy(ctx, tx, cohort)
	if err != nil {
		return err
	}
	if occ.Available() <= 0 {
		return domain.ErrCapacityExceeded
	}
	return nil
}

// CommitSeat counts a newly confirmed registration.
func (l *Ledger) CommitSeat(ctx context.Context, tx repository.Tx, cohortID string) error {
	cohort, err := tx.Cohorts().GetByID(ctx, cohortID)
	if err != nil {
		return err
	}
	if cohort.EnrolledCount >= cohort.Capacity {
		return fmt.Errorf("commit seat on cohort %s: %w", cohortID, domain.ErrCapacityExceeded)
	}
	cohort.EnrolledCount++
	return l.write(ctx, tx, cohort, fullIfAtCapacity(cohort))
}

// ReleaseSeat uncounts a cancelled confirmed registration. The count never
// drops below zero.
func (l *Ledger) ReleaseSeat(ctx context.Context, tx repository.Tx, cohortID string) error {
	cohort, err := tx.Cohorts().GetByID(ctx, cohortID)
	if err != nil {
		return err
	}
	if cohort.EnrolledCount > 0 {
		cohort.EnrolledCount--
	}
	return l.write(ctx, tx, cohort, openIfBelowCapacity(cohort))
}

func (l *Ledger) MarkFullIfAtCapacity(ctx context.Context, tx repository.Tx, cohortID string) error {
	cohort, err := tx.Cohorts().GetByID(ctx, cohortID)
	if err != nil {
		return err
	}
	return l.write(ctx, tx, cohort, fullIfAtCapacity(cohort))
}

func (l *Ledger) ReopenIfBelowCapacity(ctx context.Context, tx repository.Tx, cohortID string) error {
	cohort, err := tx.Cohorts().GetByID(ctx, cohortID)
	if err != nil {
		return err
	}
	return l.write(ctx, tx, cohort, openIfBelowCapacity(cohort))
}

// Occupancy reads the live seat usage of a cohort inside tx.
func (l *Ledger) Occupancy(ctx context.Context, tx repository.Tx, cohortID string) (domain.Occupancy, error) {
	cohort, err := tx.Cohorts().GetByID(ctx, cohortID)
	if err != nil {
		return domain.Occupancy{}, err
	}
	return l.occupancy(ctx, tx, cohort)
}

func (l *Ledger) occupancy(ctx context.Context, tx repository.Tx, cohort *domain.Cohort) (domain.Occupancy, error) {
	confirmed, held, err := tx.Registrations().CountSeats(ctx, cohort.ID, l.now())
	if err != nil {
		return domain.Occupancy{}, fmt.Errorf("count seats: %w", err)
	}
	return Availability(cohort, confirmed, held), nil
}

func (l *Ledger) write(ctx context.Context, tx repository.Tx, cohort *domain.Cohort, status domain.CohortStatus) error {
	if err := tx.Cohorts().UpdateOccupancy(ctx, cohort.ID, cohort.EnrolledCount, status); err != nil {
		return fmt.Errorf("update cohort %s occupancy: %w", cohort.ID, err)
	}
	return nil
}

// Availability is the read-only seat view for a cohort.
func Availability(cohort *domain.Cohort, confirmed, held int) domain.Occupancy {
	return domain.Occupancy{Capacity: cohort.Capacity, Confirmed: confirmed, Held: held}
}

// Only OPEN/UPCOMING/FULL cohorts flip; COMPLETED and CANCELLED keep their status.
func fullIfAtCapacity(c *domain.Cohort) domain.CohortStatus {
	if (c.Status == domain.CohortStatusOpen || c.Status == domain.CohortStatusUpcoming) && c.EnrolledCount >= c.Capacity {
		return domain.CohortStatusFull
	}
	return c.Status
}

func openIfBelowCapacity(c *domain.Cohort) domain.CohortStatus {
	if c.Status == domain.CohortStatusFull && c.EnrolledCount < c.Capacity {
		return domain.CohortStatusOpen
	}
	return c.Status
}
