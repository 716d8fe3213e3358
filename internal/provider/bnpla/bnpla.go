// Package bnpla adapts installment provider A. Its webhooks are not signed,
// so every outcome is re-fetched from the provider before it is trusted.
package bnpla

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
	statusAuthorized = "authorized"
	statusCaptured   = "captured"
	statusDeclined   = "declined"
	statusExpired    = "expired"
	statusCancelled  = "cancelled"
)

type Adapter struct {
	client    *provider.Client
	returnURL string
}

func New(cfg config.ProviderConfig) *Adapter {
	return &Adapter{client: provider.NewClient(domain.ProviderBNPLA, cfg), returnURL: cfg.ReturnURL}
}

type checkoutRequest struct {
	OrderReference    string `json:"order_reference"`
	MerchantPaymentID string `json:"merchant_payment_id"`
	Amount            int64  `json:"amount"`
	Currency          string `json:"currency"`
	Email             string `json:"email,omitempty"`
	Description       string `json:"description,omitempty"`
	RedirectURL       string `json:"redirect_url,omitempty"`
}

type checkoutResponse struct {
	PaymentID   string `json:"payment_id"`
	RedirectURL string `json:"redirect_url"`
	Status      string `json:"status"`
}

type paymentResponse struct {
	PaymentID      string `json:"payment_id"`
	Status         string `json:"status"`
	Amount         int64  `json:"amount"`
	Currency       string `json:"currency"`
	OrderReference string `json:"order_reference"`
	DeclineReason  string `json:"decline_reason"`
}

type amountRequest struct {
	Amount int64  `json:"amount"`
	Reason string `json:"reason,omitempty"`
}

type refundResponse struct {
	RefundID string `json:"refund_id"`
}

func (a *Adapter) Provider() domain.PaymentProvider {
	return domain.ProviderBNPLA
}

func (a *Adapter) CreatePayment(ctx context.Context, req domain.CheckoutRequest) (*domain.Checkout, error) {
	var resp checkoutResponse
	err := a.client.Do(ctx, http.MethodPost, "/checkouts", checkoutRequest{
		OrderReference:    req.RegistrationID,
		MerchantPaymentID: req.PaymentID,
		Amount:            req.AmountCents,
		Currency:          req.Currency,
		Email:             req.Email,
		Description:       req.Description,
		RedirectURL:       a.returnURL,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &domain.Checkout{ProviderPaymentID: resp.PaymentID, RedirectURL: resp.RedirectURL, Status: resp.Status}, nil
}

func (a *Adapter) Identify(_ context.Context, event domain.PaymentEvent) (*domain.PaymentRef, error) {
	switch e := event.(type) {
	case domain.ProviderAEvent:
		if e.PaymentID == "" && e.OrderReference == "" {
			return nil, domain.Invalid("webhook carries neither payment_id nor order_reference")
		}
		return &domain.PaymentRef{ProviderPaymentID: e.PaymentID, RegistrationID: e.OrderReference}, nil
	case domain.PollEvent:
		return &domain.PaymentRef{ProviderPaymentID: e.ProviderPaymentID}, nil
	default:
		return nil, domain.Invalid(fmt.Sprintf("bnpl_a adapter cannot handle %T", event))
	}
}

func (a *Adapter) Verify(ctx context.Context, ref *domain.PaymentRef, p *domain.Payment) (*domain.Outcome, error) {
	id := ref.ProviderPaymentID
	if id == "" {
		id = p.ProviderPaymentID
	}
	if id == "" {
		return &domain.Outcome{Status: domain.OutcomePending}, nil
	}

	var resp paymentResponse
	if err := a.client.Do(ctx, http.MethodGet, "/payments/"+url.PathEscape(id), nil, &resp); err != nil {
		return nil, err
	}
	if resp.OrderReference != "" && resp.OrderReference != p.RegistrationID {
		return nil, &domain.VerificationError{PaymentID: p.ID, Field: "order_reference", Expected: p.RegistrationID, Actual: resp.OrderReference}
	}

	outcome := &domain.Outcome{
		ProviderPaymentID: resp.PaymentID,
		VerifiedAmount:    resp.Amount,
		VerifiedCurrency:  resp.Currency,
		Status:            domain.OutcomePending,
	}
	switch resp.Status {
	case statusAuthorized, statusCaptured:
		outcome.Status = domain.OutcomeSucceeded
	case statusDeclined, statusExpired, statusCancelled:
		outcome.Status = domain.OutcomeFailed
		outcome.Reason = resp.Status
		if resp.DeclineReason != "" {
			outcome.Reason = resp.Status + ": " + resp.DeclineReason
		}
	}
	return outcome, nil
}

// Settle captures the authorized amount once the seat is confirmed.
func (a *Adapter) Settle(ctx context.Context, p *domain.Payment) error {
	path := "/payments/" + url.PathEscape(p.ProviderPaymentID) + "/capture"
	return a.client.Do(ctx, http.MethodPost, path, amountRequest{Amount: p.AmountCents}, nil)
}

func (a *Adapter) Refund(ctx context.Context, p *domain.Payment, amountCents int64, reason string) (string, error) {
	var resp refundResponse
	path := "/payments/" + url.PathEscape(p.ProviderPaymentID) + "/refunds"
	if err := a.client.Do(ctx, http.MethodPost, path, amountRequest{Amount: amountCents, Reason: reason}, &resp); err != nil {
		return "", err
	}
	return resp.RefundID, nil
}
