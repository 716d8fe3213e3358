package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Domenick1991/cohortseat/internal/domain"
	"github.com/jackc/pgx/v5"
)

type PGWaitlistRepository struct {
	db querier
}

const waitlistColumns = `id, user_id, email, cohort_id, position, status, joined_at, notified_at, expires_at, updated_at`

var liveStatuses = []string{string(domain.WaitlistStatusWaiting), string(domain.WaitlistStatusNotified)}

func scanWaitlistEntry(row pgx.Row) (*domain.WaitlistEntry, error) {
	var e domain.WaitlistEntry
	if err := row.Scan(&e.ID, &e.UserID, &e.Email, &e.CohortID, &e.Position, &e.Status,
		&e.JoinedAt, &e.NotifiedAt, &e.ExpiresAt, &e.UpdatedAt); err != nil {
		return nil, notFound(err, "scan waitlist entry")
	}
	return &e, nil
}

func collectWaitlist(rows pgx.Rows) ([]domain.WaitlistEntry, error) {
	defer rows.Close()
	var entries []domain.WaitlistEntry
	for rows.Next() {
		e, err := scanWaitlistEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

func (r *PGWaitlistRepository) Create(ctx context.Context, e *domain.WaitlistEntry) error {
	err := r.db.QueryRow(ctx, `INSERT INTO waitlist_entries (id, user_id, email, cohort_id, position, status, joined_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING updated_at`,
		e.ID, e.UserID, e.Email, e.CohortID, e.Position, e.Status, e.JoinedAt).Scan(&e.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyWaitlisted
		}
		return fmt.Errorf("insert waitlist entry: %w", err)
	}
	return nil
}

func (r *PGWaitlistRepository) GetLive(ctx context.Context, userID, cohortID string) (*domain.WaitlistEntry, error) {
	return scanWaitlistEntry(r.db.QueryRow(ctx, `SELECT `+waitlistColumns+` FROM waitlist_entries
		WHERE user_id=$1 AND cohort_id=$2 AND status = ANY($3)`, userID, cohortID, liveStatuses))
}

func (r *PGWaitlistRepository) ListLive(ctx context.Context, cohortID string) ([]domain.WaitlistEntry, error) {
	rows, err := r.db.Query(ctx, `SELECT `+waitlistColumns+` FROM waitlist_entries
		WHERE cohort_id=$1 AND status = ANY($2)
		ORDER BY position`, cohortID, liveStatuses)
	if err != nil {
		return nil, fmt.Errorf("list waitlist: %w", err)
	}
	return collectWaitlist(rows)
}

func (r *PGWaitlistRepository) MaxLivePosition(ctx context.Context, cohortID string) (int, error) {
	var pos int
	err := r.db.QueryRow(ctx, `SELECT COALESCE(MAX(position), 0) FROM waitlist_entries
		WHERE cohort_id=$1 AND status = ANY($2)`, cohortID, liveStatuses).Scan(&pos)
	if err != nil {
		return 0, fmt.Errorf("max waitlist position: %w", err)
	}
	return pos, nil
}

func (r *PGWaitlistRepository) NextWaiting(ctx context.Context, cohortID string) (*domain.WaitlistEntry, error) {
	return scanWaitlistEntry(r.db.QueryRow(ctx, `SELECT `+waitlistColumns+` FROM waitlist_entries
		WHERE cohort_id=$1 AND status=$2
		ORDER BY position
		LIMIT 1`, cohortID, domain.WaitlistStatusWaiting))
}

func (r *PGWaitlistRepository) Update(ctx context.Context, e *domain.WaitlistEntry) error {
	err := r.db.QueryRow(ctx, `UPDATE waitlist_entries
		SET position=$1, status=$2, notified_at=$3, expires_at=$4, updated_at=now()
		WHERE id=$5
		RETURNING updated_at`,
		e.Position, e.Status, e.NotifiedAt, e.ExpiresAt, e.ID).Scan(&e.UpdatedAt)
	if err != nil {
		return notFound(err, "update waitlist entry")
	}
	return nil
}

func (r *PGWaitlistRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.Exec(ctx, `DELETE FROM waitlist_entries WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete waitlist entry: %w", err)
	}
	if res.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PGWaitlistRepository) CloseGap(ctx context.Context, cohortID string, position int) error {
	_, err := r.db.Exec(ctx, `UPDATE waitlist_entries
		SET position = position - 1, updated_at = now()
		WHERE cohort_id=$1 AND position > $2 AND status = ANY($3)`, cohortID, position, liveStatuses)
	if err != nil {
		return fmt.Errorf("compact waitlist: %w", err)
	}
	return nil
}

func (r *PGWaitlistRepository) ListLapsedNotified(ctx context.Context, now time.Time, limit int) ([]domain.WaitlistEntry, error) {
	rows, err := r.db.Query(ctx, `SELECT `+waitlistColumns+` FROM waitlist_entries
		WHERE status=$1 AND expires_at <= $2
		ORDER BY expires_at
		LIMIT $3`, domain.WaitlistStatusNotified, now, limit)
	if err != nil {
		return nil, fmt.Errorf("list lapsed waitlist entries: %w", err)
	}
	return collectWaitlist(rows)
}

var _ WaitlistRepository = (*PGWaitlistRepository)(nil)
