package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Domenick1991/cohortseat/internal/domain"
	"github.com/jackc/pgx/v5"
)

type PGCohortRepository struct {
	db querier
}

const cohortColumns = `id, program_id, title, capacity, enrolled_count, status,
	COALESCE(registration_start_at, 'epoch'::timestamptz), COALESCE(registration_end_at, 'epoch'::timestamptz),
	price_cents, currency, created_at, updated_at`

func scanCohort(row pgx.Row) (*domain.Cohort, error) {
	var c domain.Cohort
	if err := row.Scan(&c.ID, &c.ProgramID, &c.Title, &c.Capacity, &c.EnrolledCount, &c.Status,
		&c.RegistrationStartAt, &c.RegistrationEndAt, &c.PriceCents, &c.Currency, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, notFound(err, "scan cohort")
	}
	c.RegistrationStartAt = zeroEpoch(c.RegistrationStartAt)
	c.RegistrationEndAt = zeroEpoch(c.RegistrationEndAt)
	return &c, nil
}

func (r *PGCohortRepository) List(ctx context.Context) ([]domain.Cohort, error) {
	rows, err := r.db.Query(ctx, `SELECT `+cohortColumns+` FROM cohorts ORDER BY registration_start_at NULLS FIRST, id`)
	if err != nil {
		return nil, fmt.Errorf("list cohorts: %w", err)
	}
	defer rows.Close()

	cohorts := make([]domain.Cohort, 0)
	for rows.Next() {
		c, err := scanCohort(rows)
		if err != nil {
			return nil, err
		}
		cohorts = append(cohorts, *c)
	}
	return cohorts, rows.Err()
}

func (r *PGCohortRepository) GetByID(ctx context.Context, id string) (*domain.Cohort, error) {
	return scanCohort(r.db.QueryRow(ctx, `SELECT `+cohortColumns+` FROM cohorts WHERE id=$1`, id))
}

func (r *PGCohortRepository) Create(ctx context.Context, c *domain.Cohort) error {
	err := r.db.QueryRow(ctx, `INSERT INTO cohorts (id, program_id, title, capacity, enrolled_count, status,
		registration_start_at, registration_end_at, price_cents, currency)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at`,
		c.ID, c.ProgramID, c.Title, c.Capacity, c.EnrolledCount, c.Status,
		nullTime(c.RegistrationStartAt), nullTime(c.RegistrationEndAt), c.PriceCents, c.Currency).
		Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert cohort: %w", err)
	}
	return nil
}

func (r *PGCohortRepository) UpdateOccupancy(ctx context.Context, id string, enrolled int, status domain.CohortStatus) error {
	res, err := r.db.Exec(ctx, `UPDATE cohorts SET enrolled_count=$1, status=$2, updated_at=now() WHERE id=$3`, enrolled, status, id)
	if err != nil {
		return fmt.Errorf("update cohort occupancy: %w", err)
	}
	if res.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func zeroEpoch(t time.Time) time.Time {
	if t.Unix() == 0 {
		return time.Time{}
	}
	return t
}

var _ CohortRepository = (*PGCohortRepository)(nil)
