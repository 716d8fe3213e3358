package api

import (
	"time"

	"github.com/Domenick1991/cohortseat/internal/domain"
	"github.com/Domenick1991/cohortseat/internal/service/cohorts"
)

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

type cohortResponse struct {
	ID                  string `json:"id"`
	ProgramID           string `json:"program_id"`
	Title               string `json:"title"`
	Capacity            int    `json:"capacity"`
	EnrolledCount       int    `json:"enrolled_count"`
	Status              string `json:"status"`
	RegistrationStartAt string `json:"registration_start_at,omitempty"`
	RegistrationEndAt   string `json:"registration_end_at,omitempty"`
	PriceCents          int64  `json:"price_cents"`
	Currency            string `json:"currency"`
	Held                *int   `json:"held,omitempty"`
	Available           *int   `json:"available,omitempty"`
}

func toCohortResponse(c domain.Cohort) cohortResponse {
	return cohortResponse{
		ID:                  c.ID,
		ProgramID:           c.ProgramID,
		Title:               c.Title,
		Capacity:            c.Capacity,
		EnrolledCount:       c.EnrolledCount,
		Status:              string(c.Status),
		RegistrationStartAt: formatTime(&c.RegistrationStartAt),
		RegistrationEndAt:   formatTime(&c.RegistrationEndAt),
		PriceCents:          c.PriceCents,
		Currency:            c.Currency,
	}
}

func toCohortView(v *cohorts.CohortView) cohortResponse {
	resp := toCohortResponse(v.Cohort)
	held, available := v.Occupancy.Held, v.Occupancy.Available()
	resp.Held = &held
	resp.Available = &available
	return resp
}

type registrationResponse struct {
	ID           string `json:"id"`
	UserID       string `json:"user_id"`
	CohortID     string `json:"cohort_id"`
	ProgramID    string `json:"program_id"`
	Status       string `json:"status"`
	RegisteredAt string `json:"registered_at"`
	ExpiresAt    string `json:"expires_at,omitempty"`
	ConfirmedAt  string `json:"confirmed_at,omitempty"`
	CancelledAt  string `json:"cancelled_at,omitempty"`
	CancelledBy  string `json:"cancelled_by,omitempty"`
	CancelReason string `json:"cancel_reason,omitempty"`
}

func toRegistrationResponse(r *domain.Registration) registrationResponse {
	return registrationResponse{
		ID:           r.ID,
		UserID:       r.UserID,
		CohortID:     r.CohortID,
		ProgramID:    r.ProgramID,
		Status:       string(r.Status),
		RegisteredAt: formatTime(&r.RegisteredAt),
		ExpiresAt:    formatTime(r.ExpiresAt),
		ConfirmedAt:  formatTime(r.ConfirmedAt),
		CancelledAt:  formatTime(r.CancelledAt),
		CancelledBy:  string(r.CancelledBy),
		CancelReason: r.CancelReason,
	}
}

type waitlistResponse struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	CohortID  string `json:"cohort_id"`
	Position  int    `json:"position"`
	Status    string `json:"status"`
	JoinedAt  string `json:"joined_at"`
	ExpiresAt string `json:"expires_at,omitempty"`
}

func toWaitlistResponse(e *domain.WaitlistEntry) waitlistResponse {
	return waitlistResponse{
		ID:        e.ID,
		UserID:    e.UserID,
		CohortID:  e.CohortID,
		Position:  e.Position,
		Status:    string(e.Status),
		JoinedAt:  formatTime(&e.JoinedAt),
		ExpiresAt: formatTime(e.ExpiresAt),
	}
}

type paymentResponse struct {
	ID                string `json:"id"`
	RegistrationID    string `json:"registration_id"`
	Provider          string `json:"provider"`
	ProviderPaymentID string `json:"provider_payment_id,omitempty"`
	Status            string `json:"status"`
	AmountCents       int64  `json:"amount_cents"`
	DiscountCents     int64  `json:"discount_cents"`
	RefundedCents     int64  `json:"refunded_cents"`
	Currency          string `json:"currency"`
	PromoCode         string `json:"promo_code,omitempty"`
	CheckoutURL       string `json:"checkout_url,omitempty"`
	FailureReason     string `json:"failure_reason,omitempty"`
	CompletedAt       string `json:"completed_at,omitempty"`
}

func toPaymentResponse(p *domain.Payment) paymentResponse {
	return paymentResponse{
		ID:                p.ID,
		RegistrationID:    p.RegistrationID,
		Provider:          string(p.Provider),
		ProviderPaymentID: p.ProviderPaymentID,
		Status:            string(p.Status),
		AmountCents:       p.AmountCents,
		DiscountCents:     p.DiscountCents,
		RefundedCents:     p.RefundedCents,
		Currency:          p.Currency,
		PromoCode:         p.PromoCode,
		CheckoutURL:       p.CheckoutURL,
		FailureReason:     p.FailureReason,
		CompletedAt:       formatTime(p.CompletedAt),
	}
}

type refundResponse struct {
	ID          string `json:"id"`
	PaymentID   string `json:"payment_id"`
	AmountCents int64  `json:"amount_cents"`
	Status      string `json:"status"`
	Reason      string `json:"reason,omitempty"`
}

func toRefundResponse(r *domain.Refund) refundResponse {
	return refundResponse{ID: r.ID, PaymentID: r.PaymentID, AmountCents: r.AmountCents, Status: string(r.Status), Reason: r.Reason}
}

type quoteResponse struct {
	BaseCents     int64  `json:"base_cents"`
	DiscountCents int64  `json:"discount_cents"`
	TotalCents    int64  `json:"total_cents"`
	Currency      string `json:"currency"`
	PromoCode     string `json:"promo_code,omitempty"`
}
