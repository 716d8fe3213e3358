package registration

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Domenick1991/cohortseat/internal/domain"
	"github.com/Domenick1991/cohortseat/internal/repository/memory"
	"github.com/Domenick1991/cohortseat/internal/service/ledger"
	"github.com/Domenick1991/cohortseat/internal/service/waitlist"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Send(ctx context.Context, n domain.Notification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	store    *memory.Store
	clock    *clock
	notifier *MockNotifier
	waitlist *waitlist.WaitlistService
	service  *RegistrationService
}

func newFixture(t *testing.T, capacity int) *fixture {
	t.Helper()
	f := &fixture{
		store:    memory.New(),
		clock:    &clock{now: time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)},
		notifier: &MockNotifier{},
	}
	f.notifier.On("Send", mock.Anything, mock.Anything).Return(nil)

	ctx := context.Background()
	require.NoError(t, f.store.Cohorts().Create(ctx, &domain.Cohort{
		ID: "c1", ProgramID: "go-101", Title: "Go 101 / April", Capacity: capacity, Status: domain.CohortStatusOpen,
		RegistrationStartAt: f.clock.now.Add(-24 * time.Hour), RegistrationEndAt: f.clock.now.Add(7 * 24 * time.Hour),
		PriceCents: 49900, Currency: "EUR",
	}))
	require.NoError(t, f.store.Cohorts().Create(ctx, &domain.Cohort{
		ID: "c2", ProgramID: "go-101", Title: "Go 101 / May", Capacity: capacity, Status: domain.CohortStatusUpcoming,
		PriceCents: 49900, Currency: "EUR",
	}))

	seats := ledger.New(ledger.WithClock(f.clock.Now))
	f.waitlist = waitlist.NewWaitlistService(f.store, f.notifier, 24*time.Hour, waitlist.WithClock(f.clock.Now))
	f.service = NewRegistrationService(f.store, seats, f.waitlist, f.notifier, 15*time.Minute, WithClock(f.clock.Now))
	return f
}

func (f *fixture) initiate(t *testing.T, user, cohort string) *domain.Registration {
	t.Helper()
	reg, created, err := f.service.Initiate(context.Background(), InitiateInput{UserID: user, Email: user + "@example.com", CohortID: cohort})
	require.NoError(t, err)
	require.True(t, created)
	return reg
}

func (f *fixture) cohort(t *testing.T, id string) *domain.Cohort {
	t.Helper()
	c, err := f.store.Cohorts().GetByID(context.Background(), id)
	require.NoError(t, err)
	return c
}

func TestRegistrationService_Initiate_CreatesHold(t *testing.T) {
	f := newFixture(t, 2)

	reg := f.initiate(t, "u1", "c1")

	assert.Equal(t, domain.RegistrationStatusPendingPayment, reg.Status)
	assert.Equal(t, "go-101", reg.ProgramID)
	require.NotNil(t, reg.ExpiresAt)
	assert.Equal(t, f.clock.Now().Add(15*time.Minute), *reg.ExpiresAt)
	// Holds do not touch the confirmed count.
	assert.Equal(t, 0, f.cohort(t, "c1").EnrolledCount)
	f.notifier.AssertCalled(t, "Send", mock.Anything, mock.MatchedBy(func(n domain.Notification) bool {
		return n.Template == domain.TemplateRegistrationPending && n.UserID == "u1"
	}))
}

func TestRegistrationService_Initiate_IdempotentRetry(t *testing.T) {
	f := newFixture(t, 2)
	first := f.initiate(t, "u1", "c1")

	again, created, err := f.service.Initiate(context.Background(), InitiateInput{UserID: "u1", Email: "u1@example.com", CohortID: "c1"})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, again.ID)

	// A sibling cohort of the same program hands back the same hold.
	sibling, created, err := f.service.Initiate(context.Background(), InitiateInput{UserID: "u1", Email: "u1@example.com", CohortID: "c2"})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, sibling.ID)
}

func TestRegistrationService_Initiate_RejectsConfirmedInProgram(t *testing.T) {
	f := newFixture(t, 2)
	reg := f.initiate(t, "u1", "c1")
	_, err := f.service.Confirm(context.Background(), reg.ID)
	require.NoError(t, err)

	_, _, err = f.service.Initiate(context.Background(), InitiateInput{UserID: "u1", Email: "u1@example.com", CohortID: "c1"})
	assert.ErrorIs(t, err, domain.ErrAlreadyRegistered)

	_, _, err = f.service.Initiate(context.Background(), InitiateInput{UserID: "u1", Email: "u1@example.com", CohortID: "c2"})
	assert.ErrorIs(t, err, domain.ErrAlreadyRegistered)
}

func TestRegistrationService_Initiate_Preconditions(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()

	_, _, err := f.service.Initiate(ctx, InitiateInput{UserID: "u1", CohortID: "c1"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, _, err = f.service.Initiate(ctx, InitiateInput{UserID: "u1", Email: "u1@example.com", CohortID: "missing"})
	assert.True(t, domain.IsNotFound(err))

	f.clock.Advance(8 * 24 * time.Hour)
	_, _, err = f.service.Initiate(ctx, InitiateInput{UserID: "u1", Email: "u1@example.com", CohortID: "c1"})
	assert.ErrorIs(t, err, domain.ErrRegistrationWindow)

	require.NoError(t, f.store.Cohorts().UpdateOccupancy(ctx, "c2", 0, domain.CohortStatusCancelled))
	_, _, err = f.service.Initiate(ctx, InitiateInput{UserID: "u1", Email: "u1@example.com", CohortID: "c2"})
	assert.ErrorIs(t, err, domain.ErrCohortNotOpen)
}

func TestRegistrationService_Initiate_CapacityExceeded(t *testing.T) {
	f := newFixture(t, 1)
	f.initiate(t, "u1", "c1")

	_, _, err := f.service.Initiate(context.Background(), InitiateInput{UserID: "u2", Email: "u2@example.com", CohortID: "c1"})
	assert.ErrorIs(t, err, domain.ErrCohortFull)
	assert.ErrorIs(t, err, domain.ErrCapacityExceeded)
}

func TestRegistrationService_Initiate_ReplacesLapsedHold(t *testing.T) {
	f := newFixture(t, 1)
	old := f.initiate(t, "u1", "c1")

	f.clock.Advance(15 * time.Minute)
	fresh := f.initiate(t, "u1", "c1")
	assert.NotEqual(t, old.ID, fresh.ID)

	stale, err := f.service.Get(context.Background(), old.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RegistrationStatusCancelled, stale.Status)
	assert.Equal(t, domain.ActorSystem, stale.CancelledBy)
	assert.Equal(t, ReasonHoldExpired, stale.CancelReason)
}

func TestRegistrationService_Initiate_NoOverbookingUnderConcurrency(t *testing.T) {
	const capacity, learners = 5, 40
	f := newFixture(t, capacity)

	var wg sync.WaitGroup
	var mu sync.Mutex
	var admitted, full int
	for i := 0; i < learners; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			user := fmt.Sprintf("u%d", i)
			_, _, err := f.service.Initiate(context.Background(), InitiateInput{UserID: user, Email: user + "@example.com", CohortID: "c1"})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				admitted++
			case errors.Is(err, domain.ErrCapacityExceeded):
				full++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, capacity, admitted)
	assert.Equal(t, learners-capacity, full)
}

func TestRegistrationService_Confirm_IsIdempotent(t *testing.T) {
	f := newFixture(t, 1)
	reg := f.initiate(t, "u1", "c1")

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			confirmed, err := f.service.Confirm(context.Background(), reg.ID)
			assert.NoError(t, err)
			assert.Equal(t, domain.RegistrationStatusConfirmed, confirmed.Status)
		}()
	}
	wg.Wait()

	c := f.cohort(t, "c1")
	assert.Equal(t, 1, c.EnrolledCount)
	assert.Equal(t, domain.CohortStatusFull, c.Status)

	got, err := f.service.Get(context.Background(), reg.ID)
	require.NoError(t, err)
	assert.Nil(t, got.ExpiresAt)
	assert.NotNil(t, got.ConfirmedAt)
}

func TestRegistrationService_Confirm_ExpiredHold(t *testing.T) {
	f := newFixture(t, 1)
	reg := f.initiate(t, "u1", "c1")

	f.clock.Advance(15*time.Minute + time.Second)
	_, err := f.service.Confirm(context.Background(), reg.ID)
	assert.ErrorIs(t, err, domain.ErrHoldExpired)
	assert.Equal(t, 0, f.cohort(t, "c1").EnrolledCount)
}

func TestRegistrationService_Cancel(t *testing.T) {
	f := newFixture(t, 1)
	ctx := context.Background()
	reg := f.initiate(t, "u1", "c1")

	_, err := f.service.Cancel(ctx, reg.ID, domain.Actor("ROBOT"), "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	cancelled, err := f.service.Cancel(ctx, reg.ID, domain.ActorUser, "changed my mind")
	require.NoError(t, err)
	assert.Equal(t, domain.RegistrationStatusCancelled, cancelled.Status)
	assert.Equal(t, domain.ActorUser, cancelled.CancelledBy)
	assert.Equal(t, 0, f.cohort(t, "c1").EnrolledCount)

	_, err = f.service.Cancel(ctx, reg.ID, domain.ActorUser, "again")
	assert.ErrorIs(t, err, domain.ErrRegistrationCancelled)

	_, err = f.service.Confirm(ctx, reg.ID)
	assert.ErrorIs(t, err, domain.ErrRegistrationCancelled)
}

func TestRegistrationService_ExpireHolds(t *testing.T) {
	f := newFixture(t, 2)
	lapsing := f.initiate(t, "u1", "c1")
	f.clock.Advance(10 * time.Minute)
	fresh := f.initiate(t, "u2", "c1")

	f.clock.Advance(5 * time.Minute)
	expired, err := f.service.ExpireHolds(context.Background())
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, lapsing.ID, expired[0].ID)
	assert.Equal(t, domain.ActorSystem, expired[0].CancelledBy)

	still, err := f.service.Get(context.Background(), fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RegistrationStatusPendingPayment, still.Status)

	f.notifier.AssertCalled(t, "Send", mock.Anything, mock.MatchedBy(func(n domain.Notification) bool {
		return n.Template == domain.TemplateHoldExpired && n.UserID == "u1"
	}))
}

func TestRegistrationService_SingleSeatLifecycle(t *testing.T) {
	f := newFixture(t, 1)
	ctx := context.Background()

	a := f.initiate(t, "alice", "c1")
	_, err := f.service.Confirm(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.CohortStatusFull, f.cohort(t, "c1").Status)

	_, _, err = f.service.Initiate(ctx, InitiateInput{UserID: "bob", Email: "bob@example.com", CohortID: "c1"})
	require.ErrorIs(t, err, domain.ErrCohortFull)

	entry, err := f.waitlist.Join(ctx, waitlist.JoinInput{UserID: "bob", Email: "bob@example.com", CohortID: "c1"})
	require.NoError(t, err)
	assert.Equal(t, 1, entry.Position)

	_, err = f.service.Cancel(ctx, a.ID, domain.ActorUser, "schedule conflict")
	require.NoError(t, err)
	c := f.cohort(t, "c1")
	assert.Equal(t, 0, c.EnrolledCount)
	assert.Equal(t, domain.CohortStatusOpen, c.Status)

	offered, err := f.waitlist.Position(ctx, "bob", "c1")
	require.NoError(t, err)
	assert.Equal(t, domain.WaitlistStatusNotified, offered.Status)

	b := f.initiate(t, "bob", "c1")
	_, err = f.service.Confirm(ctx, b.ID)
	require.NoError(t, err)

	c = f.cohort(t, "c1")
	assert.Equal(t, 1, c.EnrolledCount)
	assert.Equal(t, domain.CohortStatusFull, c.Status)
	_, err = f.waitlist.Position(ctx, "bob", "c1")
	assert.True(t, domain.IsNotFound(err))
}
