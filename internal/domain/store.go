package domain

import "context"

// Repositories groups the repositories bound to one connection or transaction.
type Repositories interface {
	Events() EventRepository
	Tickets() TicketRepository
	Registrations() RegistrationRepository
	Transactions() TransactionRepository
}

// Store is the relational store. WithinTx runs fn in one atomic unit: the
// Repositories passed to fn are bound to the transaction, which commits when
// fn returns nil and rolls back otherwise.
type Store interface {
	Repositories
	WithinTx(ctx context.Context, fn func(ctx context.Context, r Repositories) error) error
}
