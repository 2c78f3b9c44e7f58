package domain

import (
	"context"
	"time"
)

// TransactionStatus is the lifecycle state of a payment attempt.
type TransactionStatus string

const (
	TransactionPending    TransactionStatus = "Pending"
	TransactionSuccessful TransactionStatus = "Successful"
	TransactionFailed     TransactionStatus = "Failed"
)

// TransactionType selects the payment gateway.
type TransactionType string

const (
	TransactionCard   TransactionType = "Card"
	TransactionCrypto TransactionType = "Crypto"
)

// ParseTransactionType maps a client-supplied payment type to a TransactionType.
func ParseTransactionType(s string) (TransactionType, error) {
	switch TransactionType(s) {
	case TransactionCard, TransactionCrypto:
		return TransactionType(s), nil
	}
	return "", ErrInvalidPaymentType
}

// Transaction is the durable record of one external charge attempt.
// RegistrationCompleted latches once the linked registration was approved.
// swagger:model Transaction
type Transaction struct {
	ID                    string            `json:"id"`
	FullName              string            `json:"full_name"`
	Email                 string            `json:"email"`
	PhoneNumber           *string           `json:"phone_number,omitempty"`
	EventID               string            `json:"event_id"`
	TicketID              *string           `json:"ticket_id,omitempty"`
	Amount                float64           `json:"amount"`
	Currency              string            `json:"currency"`
	Reference             string            `json:"reference"`
	Type                  TransactionType   `json:"type"`
	Status                TransactionStatus `json:"status"`
	GatewayReference      string            `json:"gateway_reference"`
	GatewayStatus         *string           `json:"gateway_status,omitempty"`
	PaymentLink           string            `json:"payment_link"`
	RegistrationID        *string           `json:"registration_id,omitempty"`
	RegistrationCompleted bool              `json:"registration_completed"`
	CreatedAt             time.Time         `json:"created_at"`
	UpdatedAt             time.Time         `json:"updated_at"`
}

// TransactionRepository defines storage operations for transactions.
type TransactionRepository interface {
	Create(ctx context.Context, trx *Transaction) error
	GetByGatewayReference(ctx context.Context, gatewayReference string) (*Transaction, error)
	GetByReference(ctx context.Context, reference string) (*Transaction, error)
	// Finalize moves a Pending transaction to status and stores rawStatus.
	// It returns (nil, nil) for an unknown reference and the stored row
	// unchanged when the transaction is no longer Pending.
	Finalize(ctx context.Context, gatewayReference string, status TransactionStatus, rawStatus string) (*Transaction, error)
	// MarkRegistrationCompleted sets the completion latch. It returns false
	// when the latch was already set or the transaction is not eligible.
	MarkRegistrationCompleted(ctx context.Context, gatewayReference string) (bool, error)
	// ListStalePending returns Pending transactions of type created before olderThan.
	ListStalePending(ctx context.Context, trxType TransactionType, olderThan time.Time, limit int) ([]*Transaction, error)
}

// TransactionLedger records payment attempts and their terminal outcome.
type TransactionLedger interface {
	Record(ctx context.Context, repos Repositories, trx *Transaction) error
	Finalize(ctx context.Context, repos Repositories, gatewayReference string, confirmed bool, rawStatus string) (*Transaction, error)
}
