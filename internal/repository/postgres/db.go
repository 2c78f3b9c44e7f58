package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"eventticketing/internal/domain"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx so repositories can run
// standalone or inside a store transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Open connects to Postgres through lib/pq and verifies the connection.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

type repositories struct {
	events        domain.EventRepository
	tickets       domain.TicketRepository
	registrations domain.RegistrationRepository
	transactions  domain.TransactionRepository
}

func newRepositories(db DBTX) *repositories {
	return &repositories{
		events:        NewEventRepository(db),
		tickets:       NewTicketRepository(db),
		registrations: NewRegistrationRepository(db),
		transactions:  NewTransactionRepository(db),
	}
}

func (r *repositories) Events() domain.EventRepository               { return r.events }
func (r *repositories) Tickets() domain.TicketRepository             { return r.tickets }
func (r *repositories) Registrations() domain.RegistrationRepository { return r.registrations }
func (r *repositories) Transactions() domain.TransactionRepository   { return r.transactions }

type store struct {
	*repositories
	DB *sql.DB
}

// NewStore returns a domain.Store backed by db.
func NewStore(db *sql.DB) domain.Store {
	return &store{
		repositories: newRepositories(db),
		DB:           db,
	}
}

func (s *store) WithinTx(ctx context.Context, fn func(ctx context.Context, r domain.Repositories) error) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(ctx, newRepositories(tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// isUniqueViolation reports whether err is a Postgres unique_violation on constraint.
// An empty constraint matches any unique violation.
func isUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	if pqErr.Code != "23505" {
		return false
	}
	return constraint == "" || pqErr.Constraint == constraint
}
