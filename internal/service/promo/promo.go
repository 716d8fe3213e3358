// Package promo prices a cohort seat after an optional promo code.
package promo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Domenick1991/cohortseat/internal/domain"
	"github.com/Domenick1991/cohortseat/internal/repository"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

type PromoUseCase interface {
	Quote(ctx context.Context, code, cohortID string) (domain.Quote, error)
}

// Evaluate applies promo to a price. It does not read or change usage
// counters. A nil promo returns the undiscounted price.
func Evaluate(promo *domain.PromoCode, programID string, priceCents int64, currency string, now time.Time) (domain.Quote, error) {
	quote := domain.Quote{BaseCents: priceCents, TotalCents: priceCents, Currency: currency}
	if promo == nil {
		return quote, nil
	}

	if !promo.Active {
		return quote, domain.ErrPromoInactive
	}
	if !promo.ValidFrom.IsZero() && now.Before(promo.ValidFrom) {
		return quote, domain.ErrPromoInactive
	}
	if promo.ValidUntil != nil && now.After(*promo.ValidUntil) {
		return quote, domain.ErrPromoInactive
	}
	if promo.ProgramID != "" && promo.ProgramID != programID {
		return quote, domain.ErrPromoNotApplicable
	}
	if promo.MaxUses > 0 && promo.UsedCount >= promo.MaxUses {
		return quote, domain.ErrPromoExhausted
	}

	var discount int64
	switch promo.DiscountType {
	case domain.DiscountPercent:
		if promo.DiscountValue < 0 || promo.DiscountValue > 100 {
			return quote, domain.Invalid("percent discount must be between 0 and 100")
		}
		// Half-up to the minor unit.
		discount = decimal.NewFromInt(priceCents).
			Mul(decimal.NewFromInt(promo.DiscountValue)).
			Div(hundred).
			Round(0).
			IntPart()
	case domain.DiscountFixed:
		if promo.DiscountValue < 0 {
			return quote, domain.Invalid("fixed discount must not be negative")
		}
		discount = promo.DiscountValue
	default:
		return quote, domain.Invalid("unknown discount type")
	}

	if discount > priceCents {
		discount = priceCents
	}
	quote.DiscountCents = discount
	quote.TotalCents = priceCents - discount
	quote.PromoCode = promo.Code
	return quote, nil
}

type Evaluator struct {
	cohorts repository.CohortRepository
	promos  repository.PromoRepository
	now     func() time.Time
}

type EvaluatorOption func(*Evaluator)

func WithClock(now func() time.Time) EvaluatorOption {
	return func(e *Evaluator) {
		e.now = now
	}
}

func NewEvaluator(cohorts repository.CohortRepository, promos repository.PromoRepository, opts ...EvaluatorOption) *Evaluator {
	e := &Evaluator{cohorts: cohorts, promos: promos, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Quote prices a seat in cohortID with an optional code. Codes are
// case-insensitive and stored upper case.
func (e *Evaluator) Quote(ctx context.Context, code, cohortID string) (domain.Quote, error) {
	cohort, err := e.cohorts.GetByID(ctx, cohortID)
	if err != nil {
		return domain.Quote{}, err
	}
	promo, err := e.Lookup(ctx, e.promos, code)
	if err != nil {
		return domain.Quote{}, err
	}
	return Evaluate(promo, cohort.ProgramID, cohort.PriceCents, cohort.Currency, e.now())
}

// Lookup loads a code through promos, which may be bound to a transaction.
// An empty code returns nil.
func (e *Evaluator) Lookup(ctx context.Context, promos repository.PromoRepository, code string) (*domain.PromoCode, error) {
	code = Normalize(code)
	if code == "" {
		return nil, nil
	}
	promo, err := promos.GetByCode(ctx, code)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, domain.ErrPromoNotFound
	}
	return promo, err
}

func (e *Evaluator) Now() time.Time {
	return e.now()
}

func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

var _ PromoUseCase = (*Evaluator)(nil)
