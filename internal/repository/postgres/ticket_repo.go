package postgres

import (
	"context"
	"database/sql"
	"errors"

	"eventticketing/internal/domain"
)

type ticketRepository struct {
	DB DBTX
}

func NewTicketRepository(db DBTX) domain.TicketRepository {
	return &ticketRepository{
		DB: db,
	}
}

func (r *ticketRepository) Create(ctx context.Context, t *domain.Ticket) error {
	query := `
		INSERT INTO tickets (event_id, name, amount, crypto_amount, currency, quantity, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`
	return r.DB.QueryRowContext(ctx, query,
		t.EventID, t.Name, t.Amount, t.CryptoAmount, t.Currency, t.Quantity, t.CreatedAt, t.UpdatedAt,
	).Scan(&t.ID)
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query := `
		SELECT id, event_id, name, amount, crypto_amount, currency, quantity, registered, created_at, updated_at
		FROM tickets
		WHERE id = $1
	`
	t, err := scanTicket(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return t, nil
}

func (r *ticketRepository) ListByEventID(ctx context.Context, eventID string) ([]*domain.Ticket, error) {
	query := `
		SELECT id, event_id, name, amount, crypto_amount, currency, quantity, registered, created_at, updated_at
		FROM tickets
		WHERE event_id = $1
		ORDER BY amount ASC, created_at ASC
	`
	rows, err := r.DB.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	tickets := make([]*domain.Ticket, 0)
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, t)
	}
	return tickets, rows.Err()
}

// IncrementRegistered consumes one unit only while the tier has capacity.
func (r *ticketRepository) IncrementRegistered(ctx context.Context, id string) error {
	query := `
		UPDATE tickets
		SET registered = registered + 1, updated_at = NOW()
		WHERE id = $1 AND (quantity = 0 OR registered < quantity)
	`
	res, err := r.DB.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	var exists bool
	if err := r.DB.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM tickets WHERE id = $1)`, id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return domain.ErrNotFound
	}
	return domain.ErrTicketUnavailable
}

func scanTicket(row rowScanner) (*domain.Ticket, error) {
	t := &domain.Ticket{}
	var cryptoNull sql.NullFloat64
	err := row.Scan(&t.ID, &t.EventID, &t.Name, &t.Amount, &cryptoNull, &t.Currency, &t.Quantity, &t.Registered, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if cryptoNull.Valid {
		t.CryptoAmount = &cryptoNull.Float64
	}
	return t, nil
}
