// Package card adapts the card payment gateway.
package card

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/Domenick1991/cohortseat/config"
	"github.com/Domenick1991/cohortseat/internal/domain"
	"github.com/Domenick1991/cohortseat/internal/provider"
)

const (
	statusPaid     = "paid"
	statusFailed   = "failed"
	statusCanceled = "canceled"
)

type Adapter struct {
	client    *provider.Client
	returnURL string
}

func New(cfg config.ProviderConfig) *Adapter {
	return &Adapter{client: provider.NewClient(domain.ProviderCard, cfg), returnURL: cfg.ReturnURL}
}

type createPaymentRequest struct {
	Amount      int64             `json:"amount"`
	Currency    string            `json:"currency"`
	Reference   string            `json:"reference"`
	Description string            `json:"description,omitempty"`
	Email       string            `json:"email,omitempty"`
	ReturnURL   string            `json:"return_url,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

type paymentResponse struct {
	ID            string `json:"id"`
	Status        string `json:"status"`
	Amount        int64  `json:"amount"`
	Currency      string `json:"currency"`
	Reference     string `json:"reference"`
	CheckoutURL   string `json:"checkout_url"`
	FailureReason string `json:"failure_reason"`
}

type refundRequest struct {
	Amount int64  `json:"amount"`
	Reason string `json:"reason,omitempty"`
}

type refundResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

func (a *Adapter) Provider() domain.PaymentProvider {
	return domain.ProviderCard
}

func (a *Adapter) CreatePayment(ctx context.Context, req domain.CheckoutRequest) (*domain.Checkout, error) {
	var resp paymentResponse
	err := a.client.Do(ctx, http.MethodPost, "/v1/payments", createPaymentRequest{
		Amount:      req.AmountCents,
		Currency:    req.Currency,
		Reference:   req.RegistrationID,
		Description: req.Description,
		Email:       req.Email,
		ReturnURL:   a.returnURL,
		Metadata:    map[string]string{"payment_id": req.PaymentID},
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &domain.Checkout{ProviderPaymentID: resp.ID, RedirectURL: resp.CheckoutURL, Status: resp.Status}, nil
}

// Identify accepts the client confirm call and polls. Neither carries a
// signature: the outcome is always read back from the gateway.
func (a *Adapter) Identify(_ context.Context, event domain.PaymentEvent) (*domain.PaymentRef, error) {
	var id string
	switch e := event.(type) {
	case domain.CardEvent:
		id = e.ProviderPaymentID
	case domain.PollEvent:
		id = e.ProviderPaymentID
	default:
		return nil, domain.Invalid(fmt.Sprintf("card adapter cannot handle %T", event))
	}
	if id == "" {
		return nil, domain.Invalid("payment id is required")
	}
	return &domain.PaymentRef{ProviderPaymentID: id}, nil
}

func (a *Adapter) Verify(ctx context.Context, ref *domain.PaymentRef, _ *domain.Payment) (*domain.Outcome, error) {
	var resp paymentResponse
	if err := a.client.Do(ctx, http.MethodGet, "/v1/payments/"+url.PathEscape(ref.ProviderPaymentID), nil, &resp); err != nil {
		return nil, err
	}

	outcome := &domain.Outcome{
		ProviderPaymentID: resp.ID,
		VerifiedAmount:    resp.Amount,
		VerifiedCurrency:  resp.Currency,
		Status:            domain.OutcomePending,
	}
	switch resp.Status {
	case statusPaid:
		outcome.Status = domain.OutcomeSucceeded
	case statusFailed, statusCanceled:
		outcome.Status = domain.OutcomeFailed
		outcome.Reason = resp.FailureReason
		if outcome.Reason == "" {
			outcome.Reason = resp.Status
		}
	}
	return outcome, nil
}

// Settle is a no-op: card payments are captured at checkout.
func (a *Adapter) Settle(context.Context, *domain.Payment) error {
	return nil
}

func (a *Adapter) Refund(ctx context.Context, p *domain.Payment, amountCents int64, reason string) (string, error) {
	var resp refundResponse
	path := "/v1/payments/" + url.PathEscape(p.ProviderPaymentID) + "/refunds"
	if err := a.client.Do(ctx, http.MethodPost, path, refundRequest{Amount: amountCents, Reason: reason}, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}
