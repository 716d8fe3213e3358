// Package bnplb adapts installment provider B. Its webhooks carry an HS256
// token signed with the shared webhook secret; an approved order must still be
// authorized by the merchant before it counts as paid.
package bnplb

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/Domenick1991/cohortseat/config"
	"github.com/Domenick1991/cohortseat/internal/domain"
	"github.com/Domenick1991/cohortseat/internal/provider"
	"github.com/golang-jwt/jwt/v5"
)

const (
	statusApproved   = "approved"
	statusAuthorized = "authorized"
	statusCaptured   = "captured"
	statusRejected   = "rejected"
	statusExpired    = "expired"
	statusCancelled  = "cancelled"
)

// Claims is the payload of a provider B webhook token.
type Claims struct {
	OrderID        string `json:"order_id"`
	OrderReference string `json:"order_reference"`
	Status         string `json:"status"`
	jwt.RegisteredClaims
}

type Adapter struct {
	client    *provider.Client
	secret    []byte
	returnURL string
}

func New(cfg config.ProviderConfig) *Adapter {
	return &Adapter{
		client:    provider.NewClient(domain.ProviderBNPLB, cfg),
		secret:    []byte(cfg.WebhookSecret),
		returnURL: cfg.ReturnURL,
	}
}

type orderRequest struct {
	Reference   string `json:"reference"`
	MerchantRef string `json:"merchant_ref"`
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
	Email       string `json:"email,omitempty"`
	Description string `json:"description,omitempty"`
	ReturnURL   string `json:"return_url,omitempty"`
}

type orderResponse struct {
	OrderID     string `json:"order_id"`
	Reference   string `json:"reference"`
	Status      string `json:"status"`
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
	RedirectURL string `json:"redirect_url"`
	Reason      string `json:"reason"`
}

type amountRequest struct {
	Amount int64  `json:"amount"`
	Reason string `json:"reason,omitempty"`
}

type refundResponse struct {
	RefundID string `json:"refund_id"`
}

func (a *Adapter) Provider() domain.PaymentProvider {
	return domain.ProviderBNPLB
}

func (a *Adapter) CreatePayment(ctx context.Context, req domain.CheckoutRequest) (*domain.Checkout, error) {
	var resp orderResponse
	err := a.client.Do(ctx, http.MethodPost, "/orders", orderRequest{
		Reference:   req.RegistrationID,
		MerchantRef: req.PaymentID,
		Amount:      req.AmountCents,
		Currency:    req.Currency,
		Email:       req.Email,
		Description: req.Description,
		ReturnURL:   a.returnURL,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &domain.Checkout{ProviderPaymentID: resp.OrderID, RedirectURL: resp.RedirectURL, Status: resp.Status}, nil
}

func (a *Adapter) Identify(_ context.Context, event domain.PaymentEvent) (*domain.PaymentRef, error) {
	switch e := event.(type) {
	case domain.ProviderBEvent:
		claims, err := a.parse(e.Token)
		if err != nil {
			return nil, err
		}
		return &domain.PaymentRef{
			ProviderPaymentID: claims.OrderID,
			RegistrationID:    claims.OrderReference,
			Claims:            map[string]string{"status": claims.Status, "jti": claims.ID},
		}, nil
	case domain.PollEvent:
		return &domain.PaymentRef{ProviderPaymentID: e.ProviderPaymentID}, nil
	default:
		return nil, domain.Invalid(fmt.Sprintf("bnpl_b adapter cannot handle %T", event))
	}
}

func (a *Adapter) parse(token string) (*Claims, error) {
	if len(a.secret) == 0 {
		return nil, fmt.Errorf("webhook secret is not configured: %w", domain.ErrInvalidSignature)
	}
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, domain.ErrInvalidSignature)
	}
	if claims.OrderID == "" && claims.OrderReference == "" {
		return nil, domain.Invalid("token carries neither order_id nor order_reference")
	}
	return claims, nil
}

// Verify re-fetches the order. An approved order is checked against the
// stored payment's amount and currency before it is authorized; only the
// authorization result counts.
func (a *Adapter) Verify(ctx context.Context, ref *domain.PaymentRef, p *domain.Payment) (*domain.Outcome, error) {
	id := ref.ProviderPaymentID
	if id == "" {
		id = p.ProviderPaymentID
	}
	if id == "" {
		return &domain.Outcome{Status: domain.OutcomePending}, nil
	}

	order, err := a.order(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.Reference != "" && order.Reference != p.RegistrationID {
		return nil, &domain.VerificationError{PaymentID: p.ID, Field: "order_reference", Expected: p.RegistrationID, Actual: order.Reference}
	}

	if order.Status == statusApproved {
		if order.Amount != p.AmountCents {
			return nil, &domain.VerificationError{
				PaymentID: p.ID,
				Field:     "amount",
				Expected:  strconv.FormatInt(p.AmountCents, 10),
				Actual:    strconv.FormatInt(order.Amount, 10),
			}
		}
		if order.Currency != p.Currency {
			return nil, &domain.VerificationError{PaymentID: p.ID, Field: "currency", Expected: p.Currency, Actual: order.Currency}
		}
		order, err = a.authorize(ctx, id, p.AmountCents)
		if err != nil {
			return nil, err
		}
	}

	outcome := &domain.Outcome{
		ProviderPaymentID: order.OrderID,
		VerifiedAmount:    order.Amount,
		VerifiedCurrency:  order.Currency,
		Status:            domain.OutcomePending,
	}
	switch order.Status {
	case statusAuthorized, statusCaptured:
		outcome.Status = domain.OutcomeSucceeded
	case statusRejected, statusExpired, statusCancelled:
		outcome.Status = domain.OutcomeFailed
		outcome.Reason = order.Status
		if order.Reason != "" {
			outcome.Reason = order.Status + ": " + order.Reason
		}
	}
	return outcome, nil
}

func (a *Adapter) order(ctx context.Context, id string) (*orderResponse, error) {
	var resp orderResponse
	if err := a.client.Do(ctx, http.MethodGet, "/orders/"+url.PathEscape(id), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (a *Adapter) authorize(ctx context.Context, id string, amountCents int64) (*orderResponse, error) {
	var resp orderResponse
	path := "/orders/" + url.PathEscape(id) + "/authorize"
	err := a.client.Do(ctx, http.MethodPost, path, amountRequest{Amount: amountCents}, &resp)
	var perr *domain.ProviderError
	if errors.As(err, &perr) && perr.StatusCode == http.StatusConflict {
		// Authorized by an earlier delivery.
		return a.order(ctx, id)
	}
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// Settle is a no-op: authorization already secures the funds.
func (a *Adapter) Settle(context.Context, *domain.Payment) error {
	return nil
}

func (a *Adapter) Refund(ctx context.Context, p *domain.Payment, amountCents int64, reason string) (string, error) {
	var resp refundResponse
	path := "/orders/" + url.PathEscape(p.ProviderPaymentID) + "/refund"
	if err := a.client.Do(ctx, http.MethodPost, path, amountRequest{Amount: amountCents, Reason: reason}, &resp); err != nil {
		return "", err
	}
	return resp.RefundID, nil
}
