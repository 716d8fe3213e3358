package repository

import (
	"context"
	"fmt"

	"github.com/Domenick1991/cohortseat/internal/domain"
)

type PGPromoRepository struct {
	db querier
}

func (r *PGPromoRepository) GetByCode(ctx context.Context, code string) (*domain.PromoCode, error) {
	var p domain.PromoCode
	err := r.db.QueryRow(ctx, `SELECT code, discount_type, discount_value, COALESCE(program_id, ''), max_uses, used_count,
			valid_from, valid_until, active
		FROM promo_codes WHERE code=$1`, code).
		Scan(&p.Code, &p.DiscountType, &p.DiscountValue, &p.ProgramID, &p.MaxUses, &p.UsedCount, &p.ValidFrom, &p.ValidUntil, &p.Active)
	if err != nil {
		return nil, notFound(err, "get promo code")
	}
	return &p, nil
}

func (r *PGPromoRepository) Create(ctx context.Context, p *domain.PromoCode) error {
	_, err := r.db.Exec(ctx, `INSERT INTO promo_codes (code, discount_type, discount_value, program_id, max_uses, used_count, valid_from, valid_until, active)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7, $8, $9)`,
		p.Code, p.DiscountType, p.DiscountValue, p.ProgramID, p.MaxUses, p.UsedCount, p.ValidFrom, p.ValidUntil, p.Active)
	if err != nil {
		return fmt.Errorf("insert promo code: %w", err)
	}
	return nil
}

// IncrementUsage fails with ErrPromoExhausted once max_uses is reached.
func (r *PGPromoRepository) IncrementUsage(ctx context.Context, code string) error {
	res, err := r.db.Exec(ctx, `UPDATE promo_codes SET used_count = used_count + 1
		WHERE code=$1 AND (max_uses = 0 OR used_count < max_uses)`, code)
	if err != nil {
		return fmt.Errorf("increment promo usage: %w", err)
	}
	if res.RowsAffected() == 0 {
		return domain.ErrPromoExhausted
	}
	return nil
}

var _ PromoRepository = (*PGPromoRepository)(nil)
