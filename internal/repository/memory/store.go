// Package memory provides an in-memory repository.Store for tests and local runs.
//
// Transactions are serialised by a single mutex and rolled back by restoring a
// snapshot taken when the transaction started. Writes made outside
// WithinCohort/WithinPayment while a transaction is rolling back may be lost;
// the services only write inside transactions.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Domenick1991/cohortseat/internal/domain"
	"github.com/Domenick1991/cohortseat/internal/repository"
)

type Store struct {
	txMu sync.Mutex
	mu   sync.RWMutex
	data data
}

type data struct {
	cohorts       map[string]domain.Cohort
	registrations map[string]domain.Registration
	waitlist      map[string]domain.WaitlistEntry
	payments      map[string]domain.Payment
	refunds       map[string]domain.Refund
	promos        map[string]domain.PromoCode
}

func New() *Store {
	return &Store{data: data{
		cohorts:       make(map[string]domain.Cohort),
		registrations: make(map[string]domain.Registration),
		waitlist:      make(map[string]domain.WaitlistEntry),
		payments:      make(map[string]domain.Payment),
		refunds:       make(map[string]domain.Refund),
		promos:        make(map[string]domain.PromoCode),
	}}
}

func (s *Store) Cohorts() repository.CohortRepository             { return cohorts{s} }
func (s *Store) Registrations() repository.RegistrationRepository { return registrations{s} }
func (s *Store) Waitlist() repository.WaitlistRepository          { return waitlist{s} }
func (s *Store) Payments() repository.PaymentRepository           { return payments{s} }
func (s *Store) Promos() repository.PromoRepository               { return promos{s} }

func (s *Store) WithinCohort(ctx context.Context, cohortID string, fn func(ctx context.Context, tx repository.Tx) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	_, ok := s.data.cohorts[cohortID]
	s.mu.RUnlock()
	if !ok {
		return repository.ErrNotFound
	}
	return s.run(ctx, func() error { return fn(ctx, s) })
}

func (s *Store) WithinPayment(ctx context.Context, paymentID string, fn func(ctx context.Context, tx repository.Tx, payment *domain.Payment) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	p, ok := s.data.payments[paymentID]
	s.mu.RUnlock()
	if !ok {
		return repository.ErrNotFound
	}
	return s.run(ctx, func() error { return fn(ctx, s, &p) })
}

func (s *Store) run(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	snap := s.snapshot()
	if err := fn(); err != nil {
		s.mu.Lock()
		s.data = snap
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *Store) snapshot() data {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return data{
		cohorts:       cloneMap(s.data.cohorts),
		registrations: cloneMap(s.data.registrations),
		waitlist:      cloneMap(s.data.waitlist),
		payments:      cloneMap(s.data.payments),
		refunds:       cloneMap(s.data.refunds),
		promos:        cloneMap(s.data.promos),
	}
}

func cloneMap[V any](m map[string]V) map[string]V {
	out := make(map[string]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// cohorts

type cohorts struct{ s *Store }

func (r cohorts) List(_ context.Context) ([]domain.Cohort, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]domain.Cohort, 0, len(r.s.data.cohorts))
	for _, c := range r.s.data.cohorts {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].RegistrationStartAt.Equal(out[j].RegistrationStartAt) {
			return out[i].RegistrationStartAt.Before(out[j].RegistrationStartAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r cohorts) GetByID(_ context.Context, id string) (*domain.Cohort, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	c, ok := r.s.data.cohorts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &c, nil
}

func (r cohorts) Create(_ context.Context, c *domain.Cohort) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	now := time.Now()
	c.CreatedAt, c.UpdatedAt = now, now
	r.s.data.cohorts[c.ID] = *c
	return nil
}

func (r cohorts) UpdateOccupancy(_ context.Context, id string, enrolled int, status domain.CohortStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.data.cohorts[id]
	if !ok {
		return repository.ErrNotFound
	}
	c.EnrolledCount = enrolled
	c.Status = status
	c.UpdatedAt = time.Now()
	r.s.data.cohorts[id] = c
	return nil
}

// registrations

type registrations struct{ s *Store }

func (r registrations) Create(_ context.Context, reg *domain.Registration) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.data.registrations {
		if existing.Status == domain.RegistrationStatusCancelled || existing.UserID != reg.UserID {
			continue
		}
		if existing.CohortID == reg.CohortID || existing.ProgramID == reg.ProgramID {
			return domain.ErrAlreadyRegistered
		}
	}
	reg.UpdatedAt = time.Now()
	r.s.data.registrations[reg.ID] = *reg
	return nil
}

func (r registrations) GetByID(_ context.Context, id string) (*domain.Registration, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	reg, ok := r.s.data.registrations[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &reg, nil
}

func (r registrations) findActive(match func(domain.Registration) bool) (*domain.Registration, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, reg := range r.s.data.registrations {
		if reg.Status != domain.RegistrationStatusCancelled && match(reg) {
			return &reg, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r registrations) FindActiveByCohort(_ context.Context, userID, cohortID string) (*domain.Registration, error) {
	return r.findActive(func(reg domain.Registration) bool {
		return reg.UserID == userID && reg.CohortID == cohortID
	})
}

func (r registrations) FindActiveByProgram(_ context.Context, userID, programID string) (*domain.Registration, error) {
	return r.findActive(func(reg domain.Registration) bool {
		return reg.UserID == userID && reg.ProgramID == programID
	})
}

func (r registrations) Update(_ context.Context, reg *domain.Registration) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.data.registrations[reg.ID]; !ok {
		return repository.ErrNotFound
	}
	reg.UpdatedAt = time.Now()
	r.s.data.registrations[reg.ID] = *reg
	return nil
}

func (r registrations) CountSeats(_ context.Context, cohortID string, now time.Time) (int, int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var confirmed, held int
	for _, reg := range r.s.data.registrations {
		if reg.CohortID != cohortID {
			continue
		}
		switch {
		case reg.Status == domain.RegistrationStatusConfirmed:
			confirmed++
		case reg.ActiveHold(now):
			held++
		}
	}
	return confirmed, held, nil
}

func (r registrations) ListExpiredHolds(_ context.Context, now time.Time, limit int) ([]domain.Registration, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []domain.Registration
	for _, reg := range r.s.data.registrations {
		if reg.HoldExpired(now) {
			out = append(out, reg)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExpiresAt.Before(*out[j].ExpiresAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// waitlist

type waitlist struct{ s *Store }

func (r waitlist) Create(_ context.Context, e *domain.WaitlistEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.data.waitlist {
		if existing.UserID == e.UserID && existing.CohortID == e.CohortID && existing.Status.Live() {
			return domain.ErrAlreadyWaitlisted
		}
	}
	e.UpdatedAt = time.Now()
	r.s.data.waitlist[e.ID] = *e
	return nil
}

func (r waitlist) GetLive(_ context.Context, userID, cohortID string) (*domain.WaitlistEntry, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, e := range r.s.data.waitlist {
		if e.UserID == userID && e.CohortID == cohortID && e.Status.Live() {
			return &e, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r waitlist) ListLive(_ context.Context, cohortID string) ([]domain.WaitlistEntry, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []domain.WaitlistEntry
	for _, e := range r.s.data.waitlist {
		if e.CohortID == cohortID && e.Status.Live() {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

func (r waitlist) MaxLivePosition(ctx context.Context, cohortID string) (int, error) {
	live, _ := r.ListLive(ctx, cohortID)
	if len(live) == 0 {
		return 0, nil
	}
	return live[len(live)-1].Position, nil
}

func (r waitlist) NextWaiting(ctx context.Context, cohortID string) (*domain.WaitlistEntry, error) {
	live, _ := r.ListLive(ctx, cohortID)
	for _, e := range live {
		if e.Status == domain.WaitlistStatusWaiting {
			return &e, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r waitlist) Update(_ context.Context, e *domain.WaitlistEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.data.waitlist[e.ID]; !ok {
		return repository.ErrNotFound
	}
	e.UpdatedAt = time.Now()
	r.s.data.waitlist[e.ID] = *e
	return nil
}

func (r waitlist) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.data.waitlist[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.data.waitlist, id)
	return nil
}

func (r waitlist) CloseGap(_ context.Context, cohortID string, position int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, e := range r.s.data.waitlist {
		if e.CohortID == cohortID && e.Status.Live() && e.Position > position {
			e.Position--
			e.UpdatedAt = time.Now()
			r.s.data.waitlist[id] = e
		}
	}
	return nil
}

func (r waitlist) ListLapsedNotified(_ context.Context, now time.Time, limit int) ([]domain.WaitlistEntry, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []domain.WaitlistEntry
	for _, e := range r.s.data.waitlist {
		if e.Status == domain.WaitlistStatusNotified && e.ExpiresAt != nil && !now.Before(*e.ExpiresAt) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExpiresAt.Before(*out[j].ExpiresAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// payments

type payments struct{ s *Store }

func (r payments) Create(_ context.Context, p *domain.Payment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.data.payments {
		if existing.RegistrationID == p.RegistrationID {
			return domain.ErrInvalidTransition
		}
	}
	now := time.Now()
	p.CreatedAt, p.UpdatedAt = now, now
	r.s.data.payments[p.ID] = *p
	return nil
}

func (r payments) GetByID(_ context.Context, id string) (*domain.Payment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.data.payments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (r payments) find(match func(domain.Payment) bool) (*domain.Payment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, p := range r.s.data.payments {
		if match(p) {
			return &p, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r payments) GetByRegistration(_ context.Context, registrationID string) (*domain.Payment, error) {
	return r.find(func(p domain.Payment) bool { return p.RegistrationID == registrationID })
}

func (r payments) GetByProviderPaymentID(_ context.Context, provider domain.PaymentProvider, providerPaymentID string) (*domain.Payment, error) {
	return r.find(func(p domain.Payment) bool {
		return p.Provider == provider && p.ProviderPaymentID == providerPaymentID
	})
}

func (r payments) Update(_ context.Context, p *domain.Payment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.data.payments[p.ID]; !ok {
		return repository.ErrNotFound
	}
	p.UpdatedAt = time.Now()
	r.s.data.payments[p.ID] = *p
	return nil
}

func (r payments) CreateRefund(_ context.Context, ref *domain.Refund) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	now := time.Now()
	ref.CreatedAt, ref.UpdatedAt = now, now
	r.s.data.refunds[ref.ID] = *ref
	return nil
}

func (r payments) UpdateRefund(_ context.Context, ref *domain.Refund) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.data.refunds[ref.ID]; !ok {
		return repository.ErrNotFound
	}
	ref.UpdatedAt = time.Now()
	r.s.data.refunds[ref.ID] = *ref
	return nil
}

func (r payments) ListRefunds(_ context.Context, paymentID string) ([]domain.Refund, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []domain.Refund
	for _, ref := range r.s.data.refunds {
		if ref.PaymentID == paymentID {
			out = append(out, ref)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// promos

type promos struct{ s *Store }

func (r promos) GetByCode(_ context.Context, code string) (*domain.PromoCode, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.data.promos[code]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (r promos) Create(_ context.Context, p *domain.PromoCode) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.data.promos[p.Code] = *p
	return nil
}

func (r promos) IncrementUsage(_ context.Context, code string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.data.promos[code]
	if !ok {
		return repository.ErrNotFound
	}
	if p.MaxUses > 0 && p.UsedCount >= p.MaxUses {
		return domain.ErrPromoExhausted
	}
	p.UsedCount++
	r.s.data.promos[code] = p
	return nil
}

var _ repository.Store = (*Store)(nil)
