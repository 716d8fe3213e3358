package payment

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
	"github.com/Domenick1991/cohortseat/internal/service/promo"
	"github.com/google/uuid"
)

type PaymentUseCase interface {
	Initiate(ctx context.Context, input InitiateInput) (*domain.Payment, error)
	Reconcile(ctx context.Context, event domain.PaymentEvent) (Result, error)
	Poll(ctx context.Context, paymentID string) (*domain.Payment, error)
	// Refund refunds amountCents, or the remaining balance when nil.
	Refund(ctx context.Context, paymentID string, amountCents *int64, reason string) (*domain.Refund, error)
	Get(ctx context.Context, id string) (*domain.Payment, error)
}

// Confirmer confirms a registration inside an open cohort transaction.
type Confirmer interface {
	ConfirmInTx(ctx context.Context, tx repository.Tx, out *notify.Outbox, id string) (*domain.Registration, bool, error)
}

type InitiateInput struct {
	RegistrationID string                 `json:"registration_id"`
	Provider       domain.PaymentProvider `json:"provider"`
	PromoCode      string                 `json:"promo_code"`
}

type PaymentService struct {
	store     repository.Store
	confirmer Confirmer
	promos    *promo.Evaluator
	adapters  map[domain.PaymentProvider]Adapter
	notifier  notify.Notifier
	now       func() time.Time
}

type PaymentServiceOption func(*PaymentService)

func WithClock(now func() time.Time) PaymentServiceOption {
	return func(s *PaymentService) {
		s.now = now
	}
}

func NewPaymentService(
	store repository.Store,
	confirmer Confirmer,
	promos *promo.Evaluator,
	notifier notify.Notifier,
	adapters []Adapter,
	opts ...PaymentServiceOption,
) *PaymentService {
	s := &PaymentService{
		store:     store,
		confirmer: confirmer,
		promos:    promos,
		adapters:  make(map[domain.PaymentProvider]Adapter, len(adapters)),
		notifier:  notifier,
		now:       time.Now,
	}
	for _, a := range adapters {
		s.adapters[a.Provider()] = a
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *PaymentService) Initiate(ctx context.Context, input InitiateInput) (*domain.Payment, error) {
	adapter, ok := s.adapters[input.Provider]
	if !ok {
		return nil, fmt.Errorf("%q: %w", input.Provider, domain.ErrUnsupportedProvider)
	}

	reg, err := s.store.Registrations().GetByID(ctx, input.RegistrationID)
	if err != nil {
		return nil, err
	}

	existing, err := s.store.Payments().GetByRegistration(ctx, reg.ID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		existing = nil
	case err != nil:
		return nil, err
	case existing.Settled():
		return nil, domain.ErrPaymentAlreadyCompleted
	}

	if err := s.checkPayable(reg); err != nil {
		return nil, err
	}
	// The row keeps one provider id, so a live checkout elsewhere must fail
	// or expire first (Poll refreshes it).
	if existing != nil && existing.Status == domain.PaymentStatusPending && existing.ProviderPaymentID != "" &&
		existing.Provider != input.Provider {
		return nil, fmt.Errorf("%s checkout %s: %w", existing.Provider, existing.ProviderPaymentID, domain.ErrCheckoutPending)
	}
	if existing != nil && existing.Status == domain.PaymentStatusPending && existing.Provider == input.Provider &&
		existing.ProviderPaymentID != "" && promo.Normalize(input.PromoCode) == existing.PromoCode {
		return existing, nil
	}

	cohort, err := s.store.Cohorts().GetByID(ctx, reg.CohortID)
	if err != nil {
		return nil, err
	}
	code, err := s.promos.Lookup(ctx, s.store.Promos(), input.PromoCode)
	if err != nil {
		return nil, err
	}
	quote, err := promo.Evaluate(code, cohort.ProgramID, cohort.PriceCents, cohort.Currency, s.now())
	if err != nil {
		return nil, err
	}

	if quote.TotalCents == 0 {
		return s.completeFree(ctx, reg, existing, input.Provider, quote)
	}

	p := existing
	if p == nil {
		p = &domain.Payment{ID: uuid.NewString(), RegistrationID: reg.ID}
	}
	p.AmountCents = quote.TotalCents
	p.Currency = quote.Currency
	p.Provider = input.Provider
	p.Status = domain.PaymentStatusPending
	p.ProviderPaymentID = ""
	p.CheckoutURL = ""
	p.PromoCode = quote.PromoCode
	p.DiscountCents = quote.DiscountCents
	p.FailureReason = ""
	if existing == nil {
		if err := s.store.Payments().Create(ctx, p); err != nil {
			return nil, err
		}
	} else if err := s.store.Payments().Update(ctx, p); err != nil {
		return nil, err
	}

	checkout, err := adapter.CreatePayment(ctx, domain.CheckoutRequest{
		PaymentID:      p.ID,
		RegistrationID: reg.ID,
		Email:          reg.Email,
		AmountCents:    p.AmountCents,
		Currency:       p.Currency,
		Description:    cohort.Title,
	})
	if err != nil {
		p.Status = domain.PaymentStatusFailed
		p.FailureReason = err.Error()
		if uerr := s.store.Payments().Update(ctx, p); uerr != nil {
			log.Printf("mark payment %s failed error: %v", p.ID, uerr)
		}
		return nil, fmt.Errorf("create %s checkout: %w", p.Provider, err)
	}

	p.ProviderPaymentID = checkout.ProviderPaymentID
	p.CheckoutURL = checkout.RedirectURL
	if err := s.store.Payments().Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// completeFree confirms a fully discounted registration without a provider.
func (s *PaymentService) completeFree(ctx context.Context, reg *domain.Registration, existing *domain.Payment, provider domain.PaymentProvider, quote domain.Quote) (*domain.Payment, error) {
	var p *domain.Payment
	var out notify.Outbox
	err := s.store.WithinCohort(ctx, reg.CohortID, func(ctx context.Context, tx repository.Tx) error {
		if _, _, err := s.confirmer.ConfirmInTx(ctx, tx, &out, reg.ID); err != nil {
			return err
		}
		now := s.now()
		p = &domain.Payment{ID: uuid.NewString(), RegistrationID: reg.ID}
		if existing != nil {
			p = existing
		}
		p.AmountCents = 0
		p.Currency = quote.Currency
		p.Provider = provider
		p.Status = domain.PaymentStatusCompleted
		p.ProviderPaymentID = ""
		p.CheckoutURL = ""
		p.PromoCode = quote.PromoCode
		p.DiscountCents = quote.DiscountCents
		p.FailureReason = ""
		p.CompletedAt = &now
		if existing == nil {
			if err := tx.Payments().Create(ctx, p); err != nil {
				return err
			}
		} else if err := tx.Payments().Update(ctx, p); err != nil {
			return err
		}
		if quote.PromoCode == "" {
			return nil
		}
		return tx.Promos().IncrementUsage(ctx, quote.PromoCode)
	})
	if err != nil {
		return nil, err
	}
	out.Flush(ctx, s.notifier)
	return p, nil
}

func (s *PaymentService) checkPayable(reg *domain.Registration) error {
	switch reg.Status {
	case domain.RegistrationStatusCancelled:
		return domain.ErrRegistrationCancelled
	case domain.RegistrationStatusConfirmed:
		return domain.ErrRegistrationNotPending
	}
	if reg.HoldExpired(s.now()) {
		return domain.ErrHoldExpired
	}
	return nil
}

// Reconcile applies one provider event. Every delivery path (client confirm,
// webhook, poll, operator replay) ends here, and replays of an already
// applied outcome are no-ops.
func (s *PaymentService) Reconcile(ctx context.Context, event domain.PaymentEvent) (Result, error) {
	adapter, ok := s.adapters[event.Provider()]
	if !ok {
		return "", fmt.Errorf("%q: %w", event.Provider(), domain.ErrUnsupportedProvider)
	}

	ref, err := adapter.Identify(ctx, event)
	if err != nil {
		if errors.Is(err, domain.ErrVerificationFailed) {
			log.Printf("SECURITY: rejected %s event: %v", event.Provider(), err)
		}
		return "", err
	}

	p, err := s.lookup(ctx, event.Provider(), ref)
	if errors.Is(err, repository.ErrNotFound) {
		log.Printf("WARNING: %s event for unknown payment %q (registration %q)", event.Provider(), ref.ProviderPaymentID, ref.RegistrationID)
		return ResultUnknownPayment, nil
	}
	if err != nil {
		return "", err
	}
	if p.Settled() {
		return ResultDuplicate, nil
	}

	outcome, err := adapter.Verify(ctx, ref, p)
	if err == nil && outcome.Status == domain.OutcomeSucceeded {
		err = matchAmount(p, outcome)
	}
	if err != nil {
		if errors.Is(err, domain.ErrVerificationFailed) {
			log.Printf("SECURITY: payment %s: %v", p.ID, err)
			s.flag(ctx, p.ID, AttentionVerification+": "+err.Error())
		}
		return "", err
	}

	switch outcome.Status {
	case domain.OutcomeFailed:
		return s.fail(ctx, p, outcome)
	case domain.OutcomeSucceeded:
		return s.complete(ctx, adapter, p, outcome)
	default:
		return ResultPending, nil
	}
}

func (s *PaymentService) lookup(ctx context.Context, provider domain.PaymentProvider, ref *domain.PaymentRef) (*domain.Payment, error) {
	if ref.ProviderPaymentID != "" {
		p, err := s.store.Payments().GetByProviderPaymentID(ctx, provider, ref.ProviderPaymentID)
		if !errors.Is(err, repository.ErrNotFound) {
			return p, err
		}
	}
	if ref.RegistrationID == "" {
		return nil, repository.ErrNotFound
	}
	p, err := s.store.Payments().GetByRegistration(ctx, ref.RegistrationID)
	if err != nil {
		return nil, err
	}
	if p.Provider != provider {
		return nil, repository.ErrNotFound
	}
	return p, nil
}

func matchAmount(p *domain.Payment, outcome *domain.Outcome) error {
	if outcome.VerifiedAmount != p.AmountCents {
		return &domain.VerificationError{
			PaymentID: p.ID,
			Field:     "amount",
			Expected:  strconv.FormatInt(p.AmountCents, 10),
			Actual:    strconv.FormatInt(outcome.VerifiedAmount, 10),
		}
	}
	if outcome.VerifiedCurrency != p.Currency {
		return &domain.VerificationError{PaymentID: p.ID, Field: "currency", Expected: p.Currency, Actual: outcome.VerifiedCurrency}
	}
	return nil
}

func (s *PaymentService) fail(ctx context.Context, p *domain.Payment, outcome *domain.Outcome) (Result, error) {
	result := ResultFailed
	err := s.store.WithinPayment(ctx, p.ID, func(ctx context.Context, tx repository.Tx, current *domain.Payment) error {
		if current.Settled() {
			result = ResultDuplicate
			return nil
		}
		if current.Status == domain.PaymentStatusFailed {
			return nil
		}
		current.Status = domain.PaymentStatusFailed
		current.FailureReason = outcome.Reason
		return tx.Payments().Update(ctx, current)
	})
	if err != nil {
		return "", err
	}
	if result == ResultFailed {
		s.notifyLearner(ctx, p, domain.TemplatePaymentFailed, domain.PriorityHigh, map[string]string{"reason": outcome.Reason})
	}
	return result, nil
}

func (s *PaymentService) complete(ctx context.Context, adapter Adapter, p *domain.Payment, outcome *domain.Outcome) (Result, error) {
	reg, err := s.store.Registrations().GetByID(ctx, p.RegistrationID)
	if err != nil {
		return "", err
	}

	result := ResultConfirmed
	var completed *domain.Payment
	var out notify.Outbox
	err = s.store.WithinCohort(ctx, reg.CohortID, func(ctx context.Context, tx repository.Tx) error {
		current, err := tx.Payments().GetByID(ctx, p.ID)
		if err != nil {
			return err
		}
		if current.Settled() {
			result = ResultDuplicate
			return nil
		}
		if _, _, err := s.confirmer.ConfirmInTx(ctx, tx, &out, reg.ID); err != nil {
			return err
		}

		now := s.now()
		current.Status = domain.PaymentStatusCompleted
		current.CompletedAt = &now
		current.FailureReason = ""
		if current.ProviderPaymentID == "" {
			current.ProviderPaymentID = outcome.ProviderPaymentID
		}
		if err := tx.Payments().Update(ctx, current); err != nil {
			return err
		}
		if current.PromoCode != "" {
			// The learner has paid the discounted price; an exhausted code
			// no longer blocks the seat.
			if err := tx.Promos().IncrementUsage(ctx, current.PromoCode); err != nil && !errors.Is(err, domain.ErrPromoExhausted) {
				return err
			}
		}
		completed = current
		return nil
	})
	if errors.Is(err, domain.ErrHoldExpired) || errors.Is(err, domain.ErrRegistrationCancelled) {
		log.Printf("WARNING: payment %s succeeded for registration %s without a live hold: %v", p.ID, reg.ID, err)
		s.flag(ctx, p.ID, AttentionPaidAfterExpiry)
		return "", domain.ErrHoldExpired
	}
	if err != nil {
		return "", err
	}
	if result == ResultDuplicate {
		return result, nil
	}
	out.Flush(ctx, s.notifier)

	if err := adapter.Settle(ctx, completed); err != nil {
		log.Printf("WARNING: settle payment %s error: %v", completed.ID, err)
		s.flag(ctx, completed.ID, AttentionSettleFailed+": "+err.Error())
	}
	return ResultConfirmed, nil
}

// Poll re-checks a pending payment with its provider. Provider outages are
// logged and the stored state is returned.
func (s *PaymentService) Poll(ctx context.Context, paymentID string) (*domain.Payment, error) {
	p, err := s.store.Payments().GetByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if p.Settled() || p.ProviderPaymentID == "" {
		return p, nil
	}

	_, err = s.Reconcile(ctx, domain.PollEvent{PaymentProvider: p.Provider, ProviderPaymentID: p.ProviderPaymentID})
	if err != nil {
		if !errors.Is(err, domain.ErrProviderUnavailable) {
			return nil, err
		}
		log.Printf("poll payment %s error: %v", p.ID, err)
	}
	return s.store.Payments().GetByID(ctx, paymentID)
}

func (s *PaymentService) Refund(ctx context.Context, paymentID string, amountCents *int64, reason string) (*domain.Refund, error) {
	var (
		refund *domain.Refund
		snap   domain.Payment
	)
	err := s.store.WithinPayment(ctx, paymentID, func(ctx context.Context, tx repository.Tx, p *domain.Payment) error {
		if !refundable(p) {
			return domain.ErrPaymentNotCompleted
		}
		amount := p.RefundableCents()
		if amountCents != nil {
			amount = *amountCents
			if amount <= 0 {
				return domain.ErrInvalidRefundAmount
			}
		}
		if amount <= 0 || p.RefundedCents+amount > p.AmountCents {
			return domain.ErrRefundExceedsPaid
		}

		p.RefundedCents += amount
		if err := tx.Payments().Update(ctx, p); err != nil {
			return err
		}
		refund = &domain.Refund{
			ID:          uuid.NewString(),
			PaymentID:   p.ID,
			AmountCents: amount,
			Reason:      reason,
			Status:      domain.RefundStatusPending,
		}
		if err := tx.Payments().CreateRefund(ctx, refund); err != nil {
			return err
		}
		snap = *p
		return nil
	})
	if err != nil {
		return nil, err
	}

	adapter, ok := s.adapters[snap.Provider]
	if !ok {
		return nil, s.revertRefund(ctx, refund, fmt.Errorf("%q: %w", snap.Provider, domain.ErrUnsupportedProvider))
	}
	providerRefundID, err := adapter.Refund(ctx, &snap, refund.AmountCents, reason)
	if err != nil {
		return nil, s.revertRefund(ctx, refund, err)
	}

	err = s.store.WithinPayment(ctx, paymentID, func(ctx context.Context, tx repository.Tx, p *domain.Payment) error {
		refund.Status = domain.RefundStatusSucceeded
		refund.ProviderRefundID = providerRefundID
		if err := tx.Payments().UpdateRefund(ctx, refund); err != nil {
			return err
		}
		if p.RefundedCents >= p.AmountCents {
			p.Status = domain.PaymentStatusRefunded
			return tx.Payments().Update(ctx, p)
		}
		return nil
	})
	if err != nil {
		// The provider has already paid out; only the bookkeeping is behind.
		log.Printf("WARNING: refund %s succeeded at provider as %s but was not recorded: %v", refund.ID, providerRefundID, err)
		return nil, err
	}

	s.notifyLearner(ctx, &snap, domain.TemplateRefundIssued, domain.PriorityNormal, map[string]string{
		"amount_cents": strconv.FormatInt(refund.AmountCents, 10),
		"currency":     snap.Currency,
	})
	return refund, nil
}

// A payment that arrived after its hold lapsed holds money without a seat
// and may be refunded even though it never completed.
func refundable(p *domain.Payment) bool {
	if p.Status == domain.PaymentStatusCompleted {
		return true
	}
	return p.Status == domain.PaymentStatusPending && p.AttentionReason == AttentionPaidAfterExpiry
}

func (s *PaymentService) revertRefund(ctx context.Context, refund *domain.Refund, cause error) error {
	err := s.store.WithinPayment(ctx, refund.PaymentID, func(ctx context.Context, tx repository.Tx, p *domain.Payment) error {
		p.RefundedCents -= refund.AmountCents
		if p.RefundedCents < 0 {
			p.RefundedCents = 0
		}
		if err := tx.Payments().Update(ctx, p); err != nil {
			return err
		}
		refund.Status = domain.RefundStatusFailed
		return tx.Payments().UpdateRefund(ctx, refund)
	})
	if err != nil {
		log.Printf("WARNING: revert refund %s error: %v", refund.ID, err)
	}
	return fmt.Errorf("refund payment %s: %w", refund.PaymentID, cause)
}

func (s *PaymentService) Get(ctx context.Context, id string) (*domain.Payment, error) {
	return s.store.Payments().GetByID(ctx, id)
}

// flag records an operator follow-up on a payment. Failures are logged only.
func (s *PaymentService) flag(ctx context.Context, paymentID, reason string) {
	err := s.store.WithinPayment(ctx, paymentID, func(ctx context.Context, tx repository.Tx, p *domain.Payment) error {
		p.AttentionReason = reason
		return tx.Payments().Update(ctx, p)
	})
	if err != nil {
		log.Printf("WARNING: flag payment %s (%s) error: %v", paymentID, reason, err)
	}
}

func (s *PaymentService) notifyLearner(ctx context.Context, p *domain.Payment, template domain.NotificationTemplate, priority domain.Priority, data map[string]string) {
	reg, err := s.store.Registrations().GetByID(ctx, p.RegistrationID)
	if err != nil {
		log.Printf("WARNING: load registration %s for %s notification: %v", p.RegistrationID, template, err)
		return
	}
	data["payment_id"] = p.ID
	data["registration_id"] = reg.ID
	var out notify.Outbox
	out.Add(domain.Notification{UserID: reg.UserID, Email: reg.Email, Template: template, Data: data, Priority: priority})
	out.Flush(ctx, s.notifier)
}

var _ PaymentUseCase = (*PaymentService)(nil)
