package postgres

import (
	"context"
	"database/sql"
	"errors"

	"eventticketing/internal/domain"
)

type registrationRepository struct {
	DB DBTX
}

func NewRegistrationRepository(db DBTX) domain.RegistrationRepository {
	return &registrationRepository{
		DB: db,
	}
}

func (r *registrationRepository) Create(ctx context.Context, reg *domain.Registration) error {
	query := `
		INSERT INTO registrations (id, full_name, email, phone_number, event_id, ticket_id, status,
			access_code, transaction_id, verified, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := r.DB.ExecContext(ctx, query,
		reg.ID, reg.FullName, reg.Email, reg.PhoneNumber, reg.EventID, reg.TicketID, string(reg.Status),
		reg.AccessCode, reg.TransactionID, reg.Verified, reg.CreatedAt, reg.UpdatedAt,
	)
	return err
}

func (r *registrationRepository) GetByID(ctx context.Context, id string) (*domain.Registration, error) {
	query := `
		SELECT id, full_name, email, phone_number, event_id, ticket_id, status, access_code,
			transaction_id, verified, created_at, updated_at
		FROM registrations
		WHERE id = $1
	`
	reg := &domain.Registration{}
	var phoneNull, ticketNull, codeNull, trxNull sql.NullString
	var status string
	err := r.DB.QueryRowContext(ctx, query, id).Scan(
		&reg.ID, &reg.FullName, &reg.Email, &phoneNull, &reg.EventID, &ticketNull, &status, &codeNull,
		&trxNull, &reg.Verified, &reg.CreatedAt, &reg.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	reg.Status = domain.RegistrationStatus(status)
	reg.PhoneNumber = nullStringPtr(phoneNull)
	reg.TicketID = nullStringPtr(ticketNull)
	reg.AccessCode = nullStringPtr(codeNull)
	reg.TransactionID = nullStringPtr(trxNull)
	return reg, nil
}

func (r *registrationRepository) LinkTransaction(ctx context.Context, id, transactionID string) error {
	query := `UPDATE registrations SET transaction_id = $2, updated_at = NOW() WHERE id = $1`
	return execOne(ctx, r.DB, query, id, transactionID)
}

func (r *registrationRepository) Approve(ctx context.Context, id, accessCode string) error {
	query := `
		UPDATE registrations
		SET status = 'Approved', access_code = $2, updated_at = NOW()
		WHERE id = $1
	`
	return execOne(ctx, r.DB, query, id, accessCode)
}

func (r *registrationRepository) Reject(ctx context.Context, id string) error {
	query := `
		UPDATE registrations
		SET status = 'Rejected', updated_at = NOW()
		WHERE id = $1 AND status = 'Pending'
	`
	_, err := r.DB.ExecContext(ctx, query, id)
	return err
}

// execOne runs an update that must touch exactly one row.
func execOne(ctx context.Context, db DBTX, query string, args ...any) error {
	res, err := db.ExecContext(ctx, query, args...)
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

func nullStringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
