package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"eventticketing/internal/domain"
)

const eventColumns = `id, email, phone_number, organizer, name, description, location, image_url,
		time, paid, active, dashboard_code, registered, total_amount, attended, created_at, updated_at`

type eventRepository struct {
	DB DBTX
}

func NewEventRepository(db DBTX) domain.EventRepository {
	return &eventRepository{
		DB: db,
	}
}

func (r *eventRepository) Create(ctx context.Context, e *domain.Event) error {
	query := `
		INSERT INTO events (email, phone_number, organizer, name, description, location, image_url,
			time, paid, active, dashboard_code, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id
	`
	err := r.DB.QueryRowContext(ctx, query,
		e.Email, e.PhoneNumber, e.Organizer, e.Name, e.Description, e.Location, e.ImageURL,
		e.Time, e.Paid, e.Active, e.DashboardCode, e.CreatedAt, e.UpdatedAt,
	).Scan(&e.ID)
	if err != nil {
		if isUniqueViolation(err, "events_name_key") {
			return domain.ErrDuplicateEventName
		}
		return err
	}
	return nil
}

func (r *eventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`
	e, err := scanEvent(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return e, nil
}

func (r *eventRepository) GetByDashboardCode(ctx context.Context, code string) (*domain.Event, error) {
	code = strings.TrimSpace(code)
	query := `SELECT ` + eventColumns + ` FROM events WHERE dashboard_code = $1`
	e, err := scanEvent(r.DB.QueryRowContext(ctx, query, code))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return e, nil
}

func (r *eventRepository) List(ctx context.Context, params domain.EventListParams) ([]*domain.Event, int, error) {
	where := eventListFilter(params)
	var total int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM events`+where).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count events: %w", err)
	}
	query := `SELECT ` + eventColumns + ` FROM events` + where + ` ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	rows, err := r.DB.QueryContext(ctx, query, params.Limit(), params.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	events := make([]*domain.Event, 0)
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, 0, err
		}
		events = append(events, e)
	}
	return events, total, rows.Err()
}

// eventListFilter returns the WHERE clause for params. Conditions are fixed
// SQL with no user input.
func eventListFilter(params domain.EventListParams) string {
	var conds []string
	if params.ActiveOnly {
		conds = append(conds, "active = TRUE")
	}
	if params.UpcomingOnly {
		conds = append(conds, "time > NOW()")
	}
	if len(conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(conds, " AND ")
}

// IncrementRegistered is evaluated by the database so concurrent approvals never lose an update.
func (r *eventRepository) IncrementRegistered(ctx context.Context, id string, amount int64) error {
	query := `
		UPDATE events
		SET registered = registered + 1, total_amount = total_amount + $2, updated_at = NOW()
		WHERE id = $1
	`
	res, err := r.DB.ExecContext(ctx, query, id, amount)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (*domain.Event, error) {
	e := &domain.Event{}
	var phoneNull, imageNull sql.NullString
	err := row.Scan(
		&e.ID, &e.Email, &phoneNull, &e.Organizer, &e.Name, &e.Description, &e.Location, &imageNull,
		&e.Time, &e.Paid, &e.Active, &e.DashboardCode, &e.Registered, &e.TotalAmount, &e.Attended,
		&e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if phoneNull.Valid {
		e.PhoneNumber = &phoneNull.String
	}
	if imageNull.Valid {
		e.ImageURL = &imageNull.String
	}
	return e, nil
}
