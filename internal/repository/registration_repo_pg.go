package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Domenick1991/cohortseat/internal/domain"
	"github.com/jackc/pgx/v5"
)

type PGRegistrationRepository struct {
	db querier
}

const registrationColumns = `id, user_id, email, cohort_id, program_id, status, registered_at,
	confirmed_at, expires_at, cancelled_at, cancelled_by, cancel_reason, updated_at`

func scanRegistration(row pgx.Row) (*domain.Registration, error) {
	var r domain.Registration
	if err := row.Scan(&r.ID, &r.UserID, &r.Email, &r.CohortID, &r.ProgramID, &r.Status, &r.RegisteredAt,
		&r.ConfirmedAt, &r.ExpiresAt, &r.CancelledAt, &r.CancelledBy, &r.CancelReason, &r.UpdatedAt); err != nil {
		return nil, notFound(err, "scan registration")
	}
	return &r, nil
}

func (r *PGRegistrationRepository) Create(ctx context.Context, reg *domain.Registration) error {
	err := r.db.QueryRow(ctx, `INSERT INTO registrations (id, user_id, email, cohort_id, program_id, status, registered_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING updated_at`,
		reg.ID, reg.UserID, reg.Email, reg.CohortID, reg.ProgramID, reg.Status, reg.RegisteredAt, reg.ExpiresAt).
		Scan(&reg.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyRegistered
		}
		return fmt.Errorf("insert registration: %w", err)
	}
	return nil
}

func (r *PGRegistrationRepository) GetByID(ctx context.Context, id string) (*domain.Registration, error) {
	return scanRegistration(r.db.QueryRow(ctx, `SELECT `+registrationColumns+` FROM registrations WHERE id=$1`, id))
}

func (r *PGRegistrationRepository) FindActiveByCohort(ctx context.Context, userID, cohortID string) (*domain.Registration, error) {
	return scanRegistration(r.db.QueryRow(ctx, `SELECT `+registrationColumns+` FROM registrations
		WHERE user_id=$1 AND cohort_id=$2 AND status <> $3`, userID, cohortID, domain.RegistrationStatusCancelled))
}

func (r *PGRegistrationRepository) FindActiveByProgram(ctx context.Context, userID, programID string) (*domain.Registration, error) {
	return scanRegistration(r.db.QueryRow(ctx, `SELECT `+registrationColumns+` FROM registrations
		WHERE user_id=$1 AND program_id=$2 AND status <> $3`, userID, programID, domain.RegistrationStatusCancelled))
}

func (r *PGRegistrationRepository) Update(ctx context.Context, reg *domain.Registration) error {
	err := r.db.QueryRow(ctx, `UPDATE registrations
		SET status=$1, confirmed_at=$2, expires_at=$3, cancelled_at=$4, cancelled_by=$5, cancel_reason=$6, updated_at=now()
		WHERE id=$7
		RETURNING updated_at`,
		reg.Status, reg.ConfirmedAt, reg.ExpiresAt, reg.CancelledAt, reg.CancelledBy, reg.CancelReason, reg.ID).
		Scan(&reg.UpdatedAt)
	if err != nil {
		return notFound(err, "update registration")
	}
	return nil
}

func (r *PGRegistrationRepository) CountSeats(ctx context.Context, cohortID string, now time.Time) (int, int, error) {
	var confirmed, held int
	err := r.db.QueryRow(ctx, `SELECT
			COUNT(*) FILTER (WHERE status = $2),
			COUNT(*) FILTER (WHERE status = $3 AND expires_at > $4)
		FROM registrations WHERE cohort_id=$1`,
		cohortID, domain.RegistrationStatusConfirmed, domain.RegistrationStatusPendingPayment, now).
		Scan(&confirmed, &held)
	if err != nil {
		return 0, 0, fmt.Errorf("count seats: %w", err)
	}
	return confirmed, held, nil
}

func (r *PGRegistrationRepository) ListExpiredHolds(ctx context.Context, now time.Time, limit int) ([]domain.Registration, error) {
	rows, err := r.db.Query(ctx, `SELECT `+registrationColumns+` FROM registrations
		WHERE status=$1 AND expires_at <= $2
		ORDER BY expires_at
		LIMIT $3`, domain.RegistrationStatusPendingPayment, now, limit)
	if err != nil {
		return nil, fmt.Errorf("list expired holds: %w", err)
	}
	defer rows.Close()

	var expired []domain.Registration
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, err
		}
		expired = append(expired, *reg)
	}
	return expired, rows.Err()
}

var _ RegistrationRepository = (*PGRegistrationRepository)(nil)
