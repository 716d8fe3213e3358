package registration

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/Domenick1991/cohortseat/internal/domain"
	"github.com/Domenick1991/cohortseat/internal/notify"
	"github.com/Domenick1991/cohortseat/internal/repository"
	"github.com/Domenick1991/cohortseat/internal/service/ledger"
	"github.com/google/uuid"
)

type RegistrationUseCase interface {
	// Initiate returns the new hold, or the caller's existing live hold with
	// created=false.
	Initiate(ctx context.Context, input InitiateInput) (reg *domain.Registration, created bool, err error)
	Confirm(ctx context.Context, id string) (*domain.Registration, error)
	Cancel(ctx context.Context, id string, actor domain.Actor, reason string) (*domain.Registration, error)
	ExpireHolds(ctx context.Context) ([]domain.Registration, error)
	Get(ctx context.Context, id string) (*domain.Registration, error)
}

// Waitlist is the part of the waitlist service that runs inside registration
// transactions.
type Waitlist interface {
	PromoteNextInTx(ctx context.Context, tx repository.Tx, out *notify.Outbox, cohortID string) (*domain.WaitlistEntry, error)
	MarkConvertedInTx(ctx context.Context, tx repository.Tx, userID, cohortID string) error
}

type InitiateInput struct {
	UserID   string `json:"user_id"`
	Email    string `json:"email"`
	CohortID string `json:"cohort_id"`
}

const (
	ReasonHoldExpired = "hold expired"
	sweepBatch        = 100
)

type RegistrationService struct {
	store    repository.Store
	ledger   *ledger.Ledger
	waitlist Waitlist
	notifier notify.Notifier
	holdTTL  time.Duration
	now      func() time.Time
}

type RegistrationServiceOption func(*RegistrationService)

func WithClock(now func() time.Time) RegistrationServiceOption {
	return func(s *RegistrationService) {
		s.now = now
	}
}

func NewRegistrationService(
	store repository.Store,
	seats *ledger.Ledger,
	waitlist Waitlist,
	notifier notify.Notifier,
	holdTTL time.Duration,
	opts ...RegistrationServiceOption,
) *RegistrationService {
	s := &RegistrationService{
		store:    store,
		ledger:   seats,
		waitlist: waitlist,
		notifier: notifier,
		holdTTL:  holdTTL,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RegistrationService) Initiate(ctx context.Context, input InitiateInput) (*domain.Registration, bool, error) {
	if input.UserID == "" || input.CohortID == "" {
		return nil, false, domain.Invalid("user_id and cohort_id are required")
	}
	if input.Email == "" {
		return nil, false, domain.Invalid("email is required")
	}

	var (
		reg     *domain.Registration
		created bool
		out     notify.Outbox
	)
	err := s.store.WithinCohort(ctx, input.CohortID, func(ctx context.Context, tx repository.Tx) error {
		cohort, err := tx.Cohorts().GetByID(ctx, input.CohortID)
		if err != nil {
			return err
		}
		now := s.now()
		if !cohort.WindowOpen(now) {
			return domain.ErrRegistrationWindow
		}
		if !cohort.AcceptsRegistrations() && cohort.Status != domain.CohortStatusFull {
			return domain.ErrCohortNotOpen
		}

		existing, err := tx.Registrations().FindActiveByProgram(ctx, input.UserID, cohort.ProgramID)
		switch {
		case errors.Is(err, repository.ErrNotFound):
		case err != nil:
			return err
		case existing.Status == domain.RegistrationStatusConfirmed:
			return domain.ErrAlreadyRegistered
		case existing.ActiveHold(now):
			reg = existing
			return nil
		default:
			// Lapsed hold the sweeper has not reached yet.
			if err := s.cancelInTx(ctx, tx, &out, existing, domain.ActorSystem, ReasonHoldExpired); err != nil {
				return err
			}
		}

		if cohort.Status == domain.CohortStatusFull {
			return domain.ErrCohortFull
		}
		if err := s.ledger.ReserveSeat(ctx, tx, cohort.ID); err != nil {
			if errors.Is(err, domain.ErrCapacityExceeded) {
				return domain.ErrCohortFull
			}
			return err
		}

		expires := now.Add(s.holdTTL)
		reg = &domain.Registration{
			ID:           uuid.NewString(),
			UserID:       input.UserID,
			Email:        input.Email,
			CohortID:     cohort.ID,
			ProgramID:    cohort.ProgramID,
			Status:       domain.RegistrationStatusPendingPayment,
			RegisteredAt: now,
			ExpiresAt:    &expires,
		}
		if err := tx.Registrations().Create(ctx, reg); err != nil {
			return err
		}
		created = true
		out.Add(notification(reg, domain.TemplateRegistrationPending, domain.PriorityNormal, map[string]string{
			"expires_at": expires.Format(time.RFC3339),
		}))
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	out.Flush(ctx, s.notifier)
	return reg, created, nil
}

func (s *RegistrationService) Confirm(ctx context.Context, id string) (*domain.Registration, error) {
	current, err := s.store.Registrations().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	var reg *domain.Registration
	var out notify.Outbox
	err = s.store.WithinCohort(ctx, current.CohortID, func(ctx context.Context, tx repository.Tx) error {
		var err error
		reg, _, err = s.ConfirmInTx(ctx, tx, &out, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	out.Flush(ctx, s.notifier)
	return reg, nil
}

// ConfirmInTx turns a live hold into a confirmed seat. The caller must hold
// the registration's cohort lock. An already confirmed registration is
// returned with changed=false.
func (s *RegistrationService) ConfirmInTx(ctx context.Context, tx repository.Tx, out *notify.Outbox, id string) (*domain.Registration, bool, error) {
	reg, err := tx.Registrations().GetByID(ctx, id)
	if err != nil {
		return nil, false, err
	}

	now := s.now()
	switch reg.Status {
	case domain.RegistrationStatusConfirmed:
		return reg, false, nil
	case domain.RegistrationStatusCancelled:
		return reg, false, domain.ErrRegistrationCancelled
	case domain.RegistrationStatusPendingPayment:
		if reg.HoldExpired(now) {
			return reg, false, domain.ErrHoldExpired
		}
	default:
		return reg, false, fmt.Errorf("registration %s in status %s: %w", reg.ID, reg.Status, domain.ErrInvalidTransition)
	}

	reg.Status = domain.RegistrationStatusConfirmed
	reg.ConfirmedAt = &now
	reg.ExpiresAt = nil
	if err := tx.Registrations().Update(ctx, reg); err != nil {
		return nil, false, err
	}
	if err := s.ledger.CommitSeat(ctx, tx, reg.CohortID); err != nil {
		return nil, false, err
	}
	if err := s.waitlist.MarkConvertedInTx(ctx, tx, reg.UserID, reg.CohortID); err != nil {
		return nil, false, fmt.Errorf("convert waitlist entry: %w", err)
	}
	out.Add(notification(reg, domain.TemplateRegistrationConfirmed, domain.PriorityHigh, nil))
	return reg, true, nil
}

func (s *RegistrationService) Cancel(ctx context.Context, id string, actor domain.Actor, reason string) (*domain.Registration, error) {
	if !actor.Valid() {
		return nil, domain.Invalid("unknown actor")
	}
	current, err := s.store.Registrations().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	var reg *domain.Registration
	var out notify.Outbox
	err = s.store.WithinCohort(ctx, current.CohortID, func(ctx context.Context, tx repository.Tx) error {
		var err error
		reg, err = tx.Registrations().GetByID(ctx, id)
		if err != nil {
			return err
		}
		if reg.Status == domain.RegistrationStatusCancelled {
			return domain.ErrRegistrationCancelled
		}
		return s.cancelInTx(ctx, tx, &out, reg, actor, reason)
	})
	if err != nil {
		return nil, err
	}
	out.Flush(ctx, s.notifier)
	return reg, nil
}

// ExpireHolds cancels every pending registration whose hold has lapsed. Each
// hold is re-checked under its cohort lock, so a confirmation that wins the
// race is left alone.
func (s *RegistrationService) ExpireHolds(ctx context.Context) ([]domain.Registration, error) {
	candidates, err := s.store.Registrations().ListExpiredHolds(ctx, s.now(), sweepBatch)
	if err != nil {
		return nil, err
	}

	var expired []domain.Registration
	for _, candidate := range candidates {
		var reg *domain.Registration
		var out notify.Outbox
		err := s.store.WithinCohort(ctx, candidate.CohortID, func(ctx context.Context, tx repository.Tx) error {
			current, err := tx.Registrations().GetByID(ctx, candidate.ID)
			if err != nil {
				return err
			}
			if !current.HoldExpired(s.now()) {
				return nil
			}
			if err := s.cancelInTx(ctx, tx, &out, current, domain.ActorSystem, ReasonHoldExpired); err != nil {
				return err
			}
			reg = current
			return nil
		})
		if err != nil {
			log.Printf("expire hold %s error: %v", candidate.ID, err)
			continue
		}
		if reg != nil {
			expired = append(expired, *reg)
		}
		out.Flush(ctx, s.notifier)
	}
	return expired, nil
}

func (s *RegistrationService) Get(ctx context.Context, id string) (*domain.Registration, error) {
	return s.store.Registrations().GetByID(ctx, id)
}

// cancelInTx applies the cancel transition to a non-cancelled registration.
// A confirmed seat goes back to the ledger and is offered to the waitlist in
// the same transaction.
func (s *RegistrationService) cancelInTx(ctx context.Context, tx repository.Tx, out *notify.Outbox, reg *domain.Registration, actor domain.Actor, reason string) error {
	wasConfirmed := reg.Status == domain.RegistrationStatusConfirmed
	now := s.now()

	reg.Status = domain.RegistrationStatusCancelled
	reg.CancelledAt = &now
	reg.CancelledBy = actor
	reg.CancelReason = reason
	reg.ExpiresAt = nil
	if err := tx.Registrations().Update(ctx, reg); err != nil {
		return err
	}

	if wasConfirmed {
		if err := s.ledger.ReleaseSeat(ctx, tx, reg.CohortID); err != nil {
			return err
		}
		if _, err := s.waitlist.PromoteNextInTx(ctx, tx, out, reg.CohortID); err != nil {
			return fmt.Errorf("promote waitlist: %w", err)
		}
	}

	template := domain.TemplateRegistrationCancelled
	if actor == domain.ActorSystem && reason == ReasonHoldExpired {
		template = domain.TemplateHoldExpired
	}
	out.Add(notification(reg, template, domain.PriorityNormal, map[string]string{
		"reason":       reason,
		"cancelled_by": string(actor),
	}))
	return nil
}

func notification(reg *domain.Registration, template domain.NotificationTemplate, priority domain.Priority, extra map[string]string) domain.Notification {
	data := map[string]string{
		"registration_id": reg.ID,
		"cohort_id":       reg.CohortID,
	}
	for k, v := range extra {
		data[k] = v
	}
	return domain.Notification{
		UserID:   reg.UserID,
		Email:    reg.Email,
		Template: template,
		Data:     data,
		Priority: priority,
	}
}

var _ RegistrationUseCase = (*RegistrationService)(nil)
