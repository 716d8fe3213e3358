package repository

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"github.com/Domenick1991/cohortseat/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schema string

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type pgTx struct {
	q querier
}

func (t pgTx) Cohorts() CohortRepository             { return &PGCohortRepository{db: t.q} }
func (t pgTx) Registrations() RegistrationRepository { return &PGRegistrationRepository{db: t.q} }
func (t pgTx) Waitlist() WaitlistRepository          { return &PGWaitlistRepository{db: t.q} }
func (t pgTx) Payments() PaymentRepository           { return &PGPaymentRepository{db: t.q} }
func (t pgTx) Promos() PromoRepository               { return &PGPromoRepository{db: t.q} }

// PGStore serialises cohort work with row-level locks: every WithinCohort
// call starts with SELECT ... FOR UPDATE on the cohort row, so concurrent
// callers on the same cohort queue behind each other across all instances.
type PGStore struct {
	pgTx
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *PGStore {
	return &PGStore{pgTx: pgTx{q: db}, db: db}
}

// Migrate applies the embedded schema. It is idempotent.
func Migrate(ctx context.Context, db *pgxpool.Pool) error {
	if _, err := db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

func (s *PGStore) WithinCohort(ctx context.Context, cohortID string, fn func(ctx context.Context, tx Tx) error) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		var id string
		if err := tx.QueryRow(ctx, `SELECT id FROM cohorts WHERE id=$1 FOR UPDATE`, cohortID).Scan(&id); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrNotFound
			}
			return fmt.Errorf("lock cohort: %w", err)
		}
		return fn(ctx, pgTx{q: tx})
	})
}

func (s *PGStore) WithinPayment(ctx context.Context, paymentID string, fn func(ctx context.Context, tx Tx, payment *domain.Payment) error) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		p, err := scanPayment(tx.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id=$1 FOR UPDATE`, paymentID))
		if err != nil {
			return err
		}
		return fn(ctx, pgTx{q: tx}, p)
	})
}

func (s *PGStore) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func notFound(err error, what string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return fmt.Errorf("%s: %w", what, err)
}

var _ Store = (*PGStore)(nil)
