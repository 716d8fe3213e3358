package waitlist

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/Domenick1991/cohortseat/internal/domain"
	"github.com/Domenick1991/cohortseat/internal/notify"
	"github.com/Domenick1991/cohortseat/internal/repository"
	"github.com/google/uuid"
)

type WaitlistUseCase interface {
	Join(ctx context.Context, input JoinInput) (*domain.WaitlistEntry, error)
	Leave(ctx context.Context, userID, cohortID string) error
	Position(ctx context.Context, userID, cohortID string) (*domain.WaitlistEntry, error)
	PromoteNext(ctx context.Context, cohortID string) (*domain.WaitlistEntry, error)
	ExpireNotified(ctx context.Context) ([]domain.WaitlistEntry, error)
}

type JoinInput struct {
	UserID   string `json:"user_id"`
	Email    string `json:"email"`
	CohortID string `json:"cohort_id"`
}

const sweepBatch = 100

type WaitlistService struct {
	store    repository.Store
	notifier notify.Notifier
	window   time.Duration
	now      func() time.Time
}

type WaitlistServiceOption func(*WaitlistService)

func WithClock(now func() time.Time) WaitlistServiceOption {
	return func(s *WaitlistService) {
		s.now = now
	}
}

func NewWaitlistService(store repository.Store, notifier notify.Notifier, window time.Duration, opts ...WaitlistServiceOption) *WaitlistService {
	s := &WaitlistService{store: store, notifier: notifier, window: window, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *WaitlistService) Join(ctx context.Context, input JoinInput) (*domain.WaitlistEntry, error) {
	if input.UserID == "" || input.CohortID == "" {
		return nil, domain.Invalid("user_id and cohort_id are required")
	}

	var entry *domain.WaitlistEntry
	var out notify.Outbox
	err := s.store.WithinCohort(ctx, input.CohortID, func(ctx context.Context, tx repository.Tx) error {
		cohort, err := tx.Cohorts().GetByID(ctx, input.CohortID)
		if err != nil {
			return err
		}
		if cohort.Status != domain.CohortStatusFull {
			return domain.ErrCohortNotFull
		}
		if _, err := tx.Waitlist().GetLive(ctx, input.UserID, input.CohortID); err == nil {
			return domain.ErrAlreadyWaitlisted
		} else if !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		if _, err := tx.Registrations().FindActiveByCohort(ctx, input.UserID, input.CohortID); err == nil {
			return domain.ErrAlreadyRegistered
		} else if !errors.Is(err, repository.ErrNotFound) {
			return err
		}

		last, err := tx.Waitlist().MaxLivePosition(ctx, input.CohortID)
		if err != nil {
			return err
		}
		entry = &domain.WaitlistEntry{
			ID:       uuid.NewString(),
			UserID:   input.UserID,
			Email:    input.Email,
			CohortID: input.CohortID,
			Position: last + 1,
			Status:   domain.WaitlistStatusWaiting,
			JoinedAt: s.now(),
		}
		if err := tx.Waitlist().Create(ctx, entry); err != nil {
			return err
		}
		out.Add(domain.Notification{
			UserID:   entry.UserID,
			Email:    entry.Email,
			Template: domain.TemplateWaitlistJoined,
			Data:     map[string]string{"cohort_id": entry.CohortID, "position": strconv.Itoa(entry.Position)},
			Priority: domain.PriorityLow,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	out.Flush(ctx, s.notifier)
	return entry, nil
}

// Leave removes the user's live entry. When the leaving user held an open
// offer, the offer passes to the next learner in line.
func (s *WaitlistService) Leave(ctx context.Context, userID, cohortID string) error {
	var out notify.Outbox
	err := s.store.WithinCohort(ctx, cohortID, func(ctx context.Context, tx repository.Tx) error {
		entry, err := tx.Waitlist().GetLive(ctx, userID, cohortID)
		if err != nil {
			return err
		}
		if err := tx.Waitlist().Delete(ctx, entry.ID); err != nil {
			return err
		}
		if err := tx.Waitlist().CloseGap(ctx, cohortID, entry.Position); err != nil {
			return fmt.Errorf("compact waitlist: %w", err)
		}
		if entry.Status == domain.WaitlistStatusNotified {
			return s.promoteIfSeatFree(ctx, tx, &out, cohortID)
		}
		return nil
	})
	if err != nil {
		return err
	}
	out.Flush(ctx, s.notifier)
	return nil
}

func (s *WaitlistService) Position(ctx context.Context, userID, cohortID string) (*domain.WaitlistEntry, error) {
	return s.store.Waitlist().GetLive(ctx, userID, cohortID)
}

// PromoteNext offers a free seat to the first waiting learner. It returns nil
// when nobody is waiting.
func (s *WaitlistService) PromoteNext(ctx context.Context, cohortID string) (*domain.WaitlistEntry, error) {
	var promoted *domain.WaitlistEntry
	var out notify.Outbox
	err := s.store.WithinCohort(ctx, cohortID, func(ctx context.Context, tx repository.Tx) error {
		var err error
		promoted, err = s.PromoteNextInTx(ctx, tx, &out, cohortID)
		return err
	})
	if err != nil {
		return nil, err
	}
	out.Flush(ctx, s.notifier)
	return promoted, nil
}

// PromoteNextInTx moves the lowest-position WAITING entry to NOTIFIED and
// opens its acceptance window. No seat is reserved: the learner registers
// through the normal flow.
func (s *WaitlistService) PromoteNextInTx(ctx context.Context, tx repository.Tx, out *notify.Outbox, cohortID string) (*domain.WaitlistEntry, error) {
	next, err := tx.Waitlist().NextWaiting(ctx, cohortID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	now := s.now()
	expires := now.Add(s.window)
	next.Status = domain.WaitlistStatusNotified
	next.NotifiedAt = &now
	next.ExpiresAt = &expires
	if err := tx.Waitlist().Update(ctx, next); err != nil {
		return nil, err
	}
	out.Add(domain.Notification{
		UserID:   next.UserID,
		Email:    next.Email,
		Template: domain.TemplateWaitlistPromoted,
		Data: map[string]string{
			"cohort_id":  cohortID,
			"expires_at": expires.Format(time.RFC3339),
		},
		Priority: domain.PriorityHigh,
	})
	return next, nil
}

// MarkConvertedInTx closes the user's live entry after they confirmed a seat.
// It is a no-op when the user was not on the waitlist.
func (s *WaitlistService) MarkConvertedInTx(ctx context.Context, tx repository.Tx, userID, cohortID string) error {
	entry, err := tx.Waitlist().GetLive(ctx, userID, cohortID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	entry.Status = domain.WaitlistStatusConverted
	if err := tx.Waitlist().Update(ctx, entry); err != nil {
		return err
	}
	return tx.Waitlist().CloseGap(ctx, cohortID, entry.Position)
}

// ExpireNotified closes offers whose acceptance window has lapsed and passes
// the seat to the next learner when one is still free.
func (s *WaitlistService) ExpireNotified(ctx context.Context) ([]domain.WaitlistEntry, error) {
	lapsed, err := s.store.Waitlist().ListLapsedNotified(ctx, s.now(), sweepBatch)
	if err != nil {
		return nil, err
	}

	var expired []domain.WaitlistEntry
	for _, candidate := range lapsed {
		var out notify.Outbox
		var entry *domain.WaitlistEntry
		err := s.store.WithinCohort(ctx, candidate.CohortID, func(ctx context.Context, tx repository.Tx) error {
			var err error
			entry, err = tx.Waitlist().GetLive(ctx, candidate.UserID, candidate.CohortID)
			if errors.Is(err, repository.ErrNotFound) {
				entry = nil
				return nil
			}
			if err != nil {
				return err
			}
			now := s.now()
			if entry.ID != candidate.ID || entry.Status != domain.WaitlistStatusNotified || entry.ExpiresAt == nil || now.Before(*entry.ExpiresAt) {
				entry = nil
				return nil
			}

			entry.Status = domain.WaitlistStatusExpired
			if err := tx.Waitlist().Update(ctx, entry); err != nil {
				return err
			}
			if err := tx.Waitlist().CloseGap(ctx, entry.CohortID, entry.Position); err != nil {
				return err
			}
			out.Add(domain.Notification{
				UserID:   entry.UserID,
				Email:    entry.Email,
				Template: domain.TemplateWaitlistExpired,
				Data:     map[string]string{"cohort_id": entry.CohortID},
				Priority: domain.PriorityNormal,
			})
			return s.promoteIfSeatFree(ctx, tx, &out, entry.CohortID)
		})
		if err != nil {
			log.Printf("expire waitlist entry %s error: %v", candidate.ID, err)
			continue
		}
		if entry != nil {
			expired = append(expired, *entry)
		}
		out.Flush(ctx, s.notifier)
	}
	return expired, nil
}

func (s *WaitlistService) promoteIfSeatFree(ctx context.Context, tx repository.Tx, out *notify.Outbox, cohortID string) error {
	cohort, err := tx.Cohorts().GetByID(ctx, cohortID)
	if err != nil {
		return err
	}
	if cohort.Status != domain.CohortStatusOpen && cohort.Status != domain.CohortStatusUpcoming {
		return nil
	}
	_, err = s.PromoteNextInTx(ctx, tx, out, cohortID)
	return err
}

var _ WaitlistUseCase = (*WaitlistService)(nil)
