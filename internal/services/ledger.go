package services

import (
	"context"
	"fmt"
	"time"

	"eventticketing/internal/domain"
)

type transactionLedger struct{}

// NewTransactionLedger returns a ledger that writes through the repositories
// it is handed, so callers decide which unit a write belongs to.
func NewTransactionLedger() domain.TransactionLedger {
	return &transactionLedger{}
}

// Record stores trx as Pending through repos, which may be bound to a unit.
func (l *transactionLedger) Record(ctx context.Context, repos domain.Repositories, trx *domain.Transaction) error {
	now := time.Now()
	if trx.CreatedAt.IsZero() {
		trx.CreatedAt = now
	}
	trx.UpdatedAt = now
	trx.Status = domain.TransactionPending
	trx.RegistrationCompleted = false
	if err := repos.Transactions().Create(ctx, trx); err != nil {
		return fmt.Errorf("create transaction: %w", err)
	}
	return nil
}

// Finalize returns nil for an unknown reference and the stored row when the
// transaction already left Pending.
func (l *transactionLedger) Finalize(ctx context.Context, repos domain.Repositories, gatewayReference string, confirmed bool, rawStatus string) (*domain.Transaction, error) {
	status := domain.TransactionFailed
	if confirmed {
		status = domain.TransactionSuccessful
	}
	trx, err := repos.Transactions().Finalize(ctx, gatewayReference, status, rawStatus)
	if err != nil {
		return nil, fmt.Errorf("finalize transaction: %w", err)
	}
	return trx, nil
}
