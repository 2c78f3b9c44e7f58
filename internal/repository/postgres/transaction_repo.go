package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"eventticketing/internal/domain"
)

const transactionColumns = `id, full_name, email, phone_number, event_id, ticket_id, amount, currency,
		reference, type, status, gateway_reference, gateway_status, payment_link, registration_id,
		registration_completed, created_at, updated_at`

type transactionRepository struct {
	DB DBTX
}

func NewTransactionRepository(db DBTX) domain.TransactionRepository {
	return &transactionRepository{
		DB: db,
	}
}

func (r *transactionRepository) Create(ctx context.Context, trx *domain.Transaction) error {
	query := `
		INSERT INTO transactions (id, full_name, email, phone_number, event_id, ticket_id, amount, currency,
			reference, type, status, gateway_reference, gateway_status, payment_link, registration_id,
			registration_completed, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`
	_, err := r.DB.ExecContext(ctx, query,
		trx.ID, trx.FullName, trx.Email, trx.PhoneNumber, trx.EventID, trx.TicketID, trx.Amount, trx.Currency,
		trx.Reference, string(trx.Type), string(trx.Status), trx.GatewayReference, trx.GatewayStatus,
		trx.PaymentLink, trx.RegistrationID, trx.RegistrationCompleted, trx.CreatedAt, trx.UpdatedAt,
	)
	return err
}

func (r *transactionRepository) GetByGatewayReference(ctx context.Context, gatewayReference string) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE gateway_reference = $1`
	trx, err := scanTransaction(r.DB.QueryRowContext(ctx, query, gatewayReference))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return trx, nil
}

func (r *transactionRepository) GetByReference(ctx context.Context, reference string) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE reference = $1`
	trx, err := scanTransaction(r.DB.QueryRowContext(ctx, query, reference))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return trx, nil
}

func (r *transactionRepository) Finalize(ctx context.Context, gatewayReference string, status domain.TransactionStatus, rawStatus string) (*domain.Transaction, error) {
	query := `
		UPDATE transactions
		SET status = $2, gateway_status = $3, updated_at = NOW()
		WHERE gateway_reference = $1 AND status = 'Pending'
		RETURNING ` + transactionColumns
	trx, err := scanTransaction(r.DB.QueryRowContext(ctx, query, gatewayReference, string(status), rawStatus))
	if err == nil {
		return trx, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	// Either unknown or already terminal.
	trx, err = r.GetByGatewayReference(ctx, gatewayReference)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	return trx, err
}

func (r *transactionRepository) MarkRegistrationCompleted(ctx context.Context, gatewayReference string) (bool, error) {
	query := `
		UPDATE transactions
		SET registration_completed = TRUE, updated_at = NOW()
		WHERE gateway_reference = $1
			AND registration_completed = FALSE
			AND registration_id IS NOT NULL
			AND status = 'Successful'
	`
	res, err := r.DB.ExecContext(ctx, query, gatewayReference)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *transactionRepository) ListStalePending(ctx context.Context, trxType domain.TransactionType, olderThan time.Time, limit int) ([]*domain.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE status = 'Pending' AND type = $1 AND created_at < $2
		ORDER BY created_at ASC
		LIMIT $3
	`
	rows, err := r.DB.QueryContext(ctx, query, string(trxType), olderThan, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]*domain.Transaction, 0)
	for rows.Next() {
		trx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, trx)
	}
	return out, rows.Err()
}

func scanTransaction(row rowScanner) (*domain.Transaction, error) {
	trx := &domain.Transaction{}
	var phoneNull, ticketNull, gatewayStatusNull, regNull sql.NullString
	var trxType, status string
	err := row.Scan(
		&trx.ID, &trx.FullName, &trx.Email, &phoneNull, &trx.EventID, &ticketNull, &trx.Amount, &trx.Currency,
		&trx.Reference, &trxType, &status, &trx.GatewayReference, &gatewayStatusNull, &trx.PaymentLink, &regNull,
		&trx.RegistrationCompleted, &trx.CreatedAt, &trx.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	trx.Type = domain.TransactionType(trxType)
	trx.Status = domain.TransactionStatus(status)
	trx.PhoneNumber = nullStringPtr(phoneNull)
	trx.TicketID = nullStringPtr(ticketNull)
	trx.GatewayStatus = nullStringPtr(gatewayStatusNull)
	trx.RegistrationID = nullStringPtr(regNull)
	return trx, nil
}
