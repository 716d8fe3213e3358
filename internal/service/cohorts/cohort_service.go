package cohorts

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/Domenick1991/cohortseat/internal/domain"
	"github.com/Domenick1991/cohortseat/internal/repository"
	"github.com/Domenick1991/cohortseat/internal/service/ledger"
	"github.com/google/uuid"
)

type CohortUseCase interface {
	List(ctx context.Context) ([]domain.Cohort, error)
	Get(ctx context.Context, id string) (*CohortView, error)
	Create(ctx context.Context, input CreateInput) (*domain.Cohort, error)
}

// CohortView is a cohort with its live seat usage.
type CohortView struct {
	Cohort    domain.Cohort
	Occupancy domain.Occupancy
}

type CreateInput struct {
	ProgramID           string
	Title               string
	Capacity            int
	Status              domain.CohortStatus
	RegistrationStartAt time.Time
	RegistrationEndAt   time.Time
	PriceCents          int64
	Currency            string
}

// Cache holds the cohort list for display. It is never consulted by the
// registration path.
type Cache interface {
	GetCohorts(ctx context.Context) ([]domain.Cohort, error)
	SetCohorts(ctx context.Context, cohorts []domain.Cohort) error
	InvalidateCohorts(ctx context.Context) error
}

type CohortService struct {
	repo  repository.CohortRepository
	seats repository.RegistrationRepository
	cache Cache
	now   func() time.Time
}

type CohortServiceOption func(*CohortService)

func WithClock(now func() time.Time) CohortServiceOption {
	return func(s *CohortService) {
		s.now = now
	}
}

func NewCohortService(store repository.Tx, cache Cache, opts ...CohortServiceOption) *CohortService {
	s := &CohortService{repo: store.Cohorts(), seats: store.Registrations(), cache: cache, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *CohortService) List(ctx context.Context) ([]domain.Cohort, error) {
	if s.cache != nil {
		if cached, err := s.cache.GetCohorts(ctx); err == nil && cached != nil {
			return cached, nil
		}
	}

	list, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.SetCohorts(ctx, list); err != nil {
			log.Printf("cache cohorts error: %v", err)
		}
	}
	return list, nil
}

func (s *CohortService) Get(ctx context.Context, id string) (*CohortView, error) {
	cohort, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	confirmed, held, err := s.seats.CountSeats(ctx, id, s.now())
	if err != nil {
		return nil, err
	}
	return &CohortView{Cohort: *cohort, Occupancy: ledger.Availability(cohort, confirmed, held)}, nil
}

func (s *CohortService) Create(ctx context.Context, input CreateInput) (*domain.Cohort, error) {
	if input.ProgramID == "" {
		return nil, domain.Invalid("program_id is required")
	}
	if input.Capacity <= 0 {
		return nil, domain.Invalid("capacity must be positive")
	}
	if input.PriceCents < 0 {
		return nil, domain.Invalid("price must not be negative")
	}
	if !input.RegistrationEndAt.IsZero() && input.RegistrationEndAt.Before(input.RegistrationStartAt) {
		return nil, domain.Invalid("registration window ends before it starts")
	}

	status := input.Status
	switch status {
	case "":
		status = domain.CohortStatusOpen
	case domain.CohortStatusOpen, domain.CohortStatusUpcoming:
	default:
		return nil, domain.Invalid("new cohorts must be OPEN or UPCOMING")
	}
	currency := strings.ToUpper(strings.TrimSpace(input.Currency))
	if currency == "" {
		currency = "USD"
	}

	now := s.now()
	cohort := &domain.Cohort{
		ID:                  uuid.NewString(),
		ProgramID:           input.ProgramID,
		Title:               input.Title,
		Capacity:            input.Capacity,
		Status:              status,
		RegistrationStartAt: input.RegistrationStartAt,
		RegistrationEndAt:   input.RegistrationEndAt,
		PriceCents:          input.PriceCents,
		Currency:            currency,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if err := s.repo.Create(ctx, cohort); err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.InvalidateCohorts(ctx); err != nil {
			log.Printf("invalidate cohorts cache error: %v", err)
		}
	}
	return cohort, nil
}

var _ CohortUseCase = (*CohortService)(nil)
