package repository

import (
	"context"
	"fmt"

	"github.com/Domenick1991/cohortseat/internal/domain"
	"github.com/jackc/pgx/v5"
)

type PGPaymentRepository struct {
	db querier
}

const paymentColumns = `id, registration_id, amount_cents, currency, status, provider, provider_payment_id,
	refunded_cents, promo_code, discount_cents, checkout_url, failure_reason, attention_reason,
	completed_at, created_at, updated_at`

func scanPayment(row pgx.Row) (*domain.Payment, error) {
	var p domain.Payment
	if err := row.Scan(&p.ID, &p.RegistrationID, &p.AmountCents, &p.Currency, &p.Status, &p.Provider, &p.ProviderPaymentID,
		&p.RefundedCents, &p.PromoCode, &p.DiscountCents, &p.CheckoutURL, &p.FailureReason, &p.AttentionReason,
		&p.CompletedAt, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, notFound(err, "scan payment")
	}
	return &p, nil
}

func (r *PGPaymentRepository) Create(ctx context.Context, p *domain.Payment) error {
	err := r.db.QueryRow(ctx, `INSERT INTO payments (id, registration_id, amount_cents, currency, status, provider,
			provider_payment_id, refunded_cents, promo_code, discount_cents, checkout_url, failure_reason, attention_reason, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING created_at, updated_at`,
		p.ID, p.RegistrationID, p.AmountCents, p.Currency, p.Status, p.Provider,
		p.ProviderPaymentID, p.RefundedCents, p.PromoCode, p.DiscountCents, p.CheckoutURL, p.FailureReason, p.AttentionReason, p.CompletedAt).
		Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("payment for registration %s already exists: %w", p.RegistrationID, domain.ErrInvalidTransition)
		}
		return fmt.Errorf("insert payment: %w", err)
	}
	return nil
}

func (r *PGPaymentRepository) GetByID(ctx context.Context, id string) (*domain.Payment, error) {
	return scanPayment(r.db.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id=$1`, id))
}

func (r *PGPaymentRepository) GetByRegistration(ctx context.Context, registrationID string) (*domain.Payment, error) {
	return scanPayment(r.db.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE registration_id=$1`, registrationID))
}

func (r *PGPaymentRepository) GetByProviderPaymentID(ctx context.Context, provider domain.PaymentProvider, providerPaymentID string) (*domain.Payment, error) {
	return scanPayment(r.db.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments
		WHERE provider=$1 AND provider_payment_id=$2`, provider, providerPaymentID))
}

func (r *PGPaymentRepository) Update(ctx context.Context, p *domain.Payment) error {
	err := r.db.QueryRow(ctx, `UPDATE payments
		SET amount_cents=$1, currency=$2, status=$3, provider=$4, provider_payment_id=$5, refunded_cents=$6,
			promo_code=$7, discount_cents=$8, checkout_url=$9, failure_reason=$10, attention_reason=$11,
			completed_at=$12, updated_at=now()
		WHERE id=$13
		RETURNING updated_at`,
		p.AmountCents, p.Currency, p.Status, p.Provider, p.ProviderPaymentID, p.RefundedCents,
		p.PromoCode, p.DiscountCents, p.CheckoutURL, p.FailureReason, p.AttentionReason,
		p.CompletedAt, p.ID).Scan(&p.UpdatedAt)
	if err != nil {
		return notFound(err, "update payment")
	}
	return nil
}

func (r *PGPaymentRepository) CreateRefund(ctx context.Context, ref *domain.Refund) error {
	err := r.db.QueryRow(ctx, `INSERT INTO payment_refunds (id, payment_id, amount_cents, reason, status, provider_refund_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at`,
		ref.ID, ref.PaymentID, ref.AmountCents, ref.Reason, ref.Status, ref.ProviderRefundID).
		Scan(&ref.CreatedAt, &ref.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert refund: %w", err)
	}
	return nil
}

func (r *PGPaymentRepository) UpdateRefund(ctx context.Context, ref *domain.Refund) error {
	err := r.db.QueryRow(ctx, `UPDATE payment_refunds SET status=$1, provider_refund_id=$2, updated_at=now()
		WHERE id=$3
		RETURNING updated_at`, ref.Status, ref.ProviderRefundID, ref.ID).Scan(&ref.UpdatedAt)
	if err != nil {
		return notFound(err, "update refund")
	}
	return nil
}

func (r *PGPaymentRepository) ListRefunds(ctx context.Context, paymentID string) ([]domain.Refund, error) {
	rows, err := r.db.Query(ctx, `SELECT id, payment_id, amount_cents, reason, status, provider_refund_id, created_at, updated_at
		FROM payment_refunds WHERE payment_id=$1 ORDER BY created_at`, paymentID)
	if err != nil {
		return nil, fmt.Errorf("list refunds: %w", err)
	}
	defer rows.Close()

	var refunds []domain.Refund
	for rows.Next() {
		var ref domain.Refund
		if err := rows.Scan(&ref.ID, &ref.PaymentID, &ref.AmountCents, &ref.Reason, &ref.Status,
			&ref.ProviderRefundID, &ref.CreatedAt, &ref.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan refund: %w", err)
		}
		refunds = append(refunds, ref)
	}
	return refunds, rows.Err()
}

var _ PaymentRepository = (*PGPaymentRepository)(nil)
