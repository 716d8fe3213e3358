package api

import (
	"context"

	"github.com/Domenick1991/cohortseat/internal/domain"
	"github.com/Domenick1991/cohortseat/internal/service/cohorts"
	"github.com/Domenick1991/cohortseat/internal/service/payment"
	"github.com/Domenick1991/cohortseat/internal/service/registration"
	"github.com/Domenick1991/cohortseat/internal/service/waitlist"
	"github.com/stretchr/testify/mock"
)

type MockCohortUseCase struct {
	mock.Mock
}

func (m *MockCohortUseCase) List(ctx context.Context) ([]domain.Cohort, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Cohort), args.Error(1)
}

func (m *MockCohortUseCase) Get(ctx context.Context, id string) (*cohorts.CohortView, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cohorts.CohortView), args.Error(1)
}

func (m *MockCohortUseCase) Create(ctx context.Context, input cohorts.CreateInput) (*domain.Cohort, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Cohort), args.Error(1)
}

type MockRegistrationUseCase struct {
	mock.Mock
}

func (m *MockRegistrationUseCase) Initiate(ctx context.Context, input registration.InitiateInput) (*domain.Registration, bool, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, false, args.Error(2)
	}
	return args.Get(0).(*domain.Registration), args.Bool(1), args.Error(2)
}

func (m *MockRegistrationUseCase) Confirm(ctx context.Context, id string) (*domain.Registration, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Registration), args.Error(1)
}

func (m *MockRegistrationUseCase) Cancel(ctx context.Context, id string, actor domain.Actor, reason string) (*domain.Registration, error) {
	args := m.Called(ctx, id, actor, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Registration), args.Error(1)
}

func (m *MockRegistrationUseCase) ExpireHolds(ctx context.Context) ([]domain.Registration, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Registration), args.Error(1)
}

func (m *MockRegistrationUseCase) Get(ctx context.Context, id string) (*domain.Registration, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Registration), args.Error(1)
}

type MockWaitlistUseCase struct {
	mock.Mock
}

func (m *MockWaitlistUseCase) Join(ctx context.Context, input waitlist.JoinInput) (*domain.WaitlistEntry, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.WaitlistEntry), args.Error(1)
}

func (m *MockWaitlistUseCase) Leave(ctx context.Context, userID, cohortID string) error {
	args := m.Called(ctx, userID, cohortID)
	return args.Error(0)
}

func (m *MockWaitlistUseCase) Position(ctx context.Context, userID, cohortID string) (*domain.WaitlistEntry, error) {
	args := m.Called(ctx, userID, cohortID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.WaitlistEntry), args.Error(1)
}

func (m *MockWaitlistUseCase) PromoteNext(ctx context.Context, cohortID string) (*domain.WaitlistEntry, error) {
	args := m.Called(ctx, cohortID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.WaitlistEntry), args.Error(1)
}

func (m *MockWaitlistUseCase) ExpireNotified(ctx context.Context) ([]domain.WaitlistEntry, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.WaitlistEntry), args.Error(1)
}

type MockPaymentUseCase struct {
	mock.Mock
}

func (m *MockPaymentUseCase) Initiate(ctx context.Context, input payment.InitiateInput) (*domain.Payment, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Payment), args.Error(1)
}

func (m *MockPaymentUseCase) Reconcile(ctx context.Context, event domain.PaymentEvent) (payment.Result, error) {
	args := m.Called(ctx, event)
	return args.Get(0).(payment.Result), args.Error(1)
}

func (m *MockPaymentUseCase) Poll(ctx context.Context, paymentID string) (*domain.Payment, error) {
	args := m.Called(ctx, paymentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Payment), args.Error(1)
}

func (m *MockPaymentUseCase) Refund(ctx context.Context, paymentID string, amountCents *int64, reason string) (*domain.Refund, error) {
	args := m.Called(ctx, paymentID, amountCents, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Refund), args.Error(1)
}

func (m *MockPaymentUseCase) Get(ctx context.Context, id string) (*domain.Payment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Payment), args.Error(1)
}

type MockPromoUseCase struct {
	mock.Mock
}

func (m *MockPromoUseCase) Quote(ctx context.Context, code, cohortID string) (domain.Quote, error) {
	args := m.Called(ctx, code, cohortID)
	return args.Get(0).(domain.Quote), args.Error(1)
}

type MockQueue struct {
	mock.Mock
}

func (m *MockQueue) Enqueue(ctx context.Context, event domain.PaymentEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}
