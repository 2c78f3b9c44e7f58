package domain

import (
	"context"
	"time"
)

// RegistrationStatus is the lifecycle state of a registration.
type RegistrationStatus string

const (
	RegistrationPending  RegistrationStatus = "Pending"
	RegistrationApproved RegistrationStatus = "Approved"
	RegistrationRejected RegistrationStatus = "Rejected"
)

// Registration represents an attendee's registration for an event.
// swagger:model Registration
type Registration struct {
	ID            string             `json:"id"`
	FullName      string             `json:"full_name"`
	Email         string             `json:"email"`
	PhoneNumber   *string            `json:"phone_number,omitempty"`
	EventID       string             `json:"event_id"`
	TicketID      *string            `json:"ticket_id,omitempty"`
	Status        RegistrationStatus `json:"status"`
	AccessCode    *string            `json:"access_code"`
	TransactionID *string            `json:"transaction_id,omitempty"`
	Verified      bool               `json:"verified"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

// RegistrationRepository defines storage operations for registrations.
type RegistrationRepository interface {
	Create(ctx context.Context, reg *Registration) error
	GetByID(ctx context.Context, id string) (*Registration, error)
	LinkTransaction(ctx context.Context, id, transactionID string) error
	// Approve sets the access code and moves the registration to Approved.
	Approve(ctx context.Context, id, accessCode string) error
	// Reject moves a Pending registration to Rejected; other states are left alone.
	Reject(ctx context.Context, id string) error
}

// RegisterInput is the attendee request to register for an event.
type RegisterInput struct {
	EventID     string
	TicketID    *string
	FullName    string
	Email       string
	PhoneNumber *string
	// PaymentType is the raw payment type string ("Card" or "Crypto").
	PaymentType string
}

// RegistrationResult is returned to the attendee after registering.
// swagger:model RegistrationResult
type RegistrationResult struct {
	Registration *Registration `json:"registration"`
	Event        *Event        `json:"event"`
	PaymentLink  *string       `json:"payment_link,omitempty"`
}

// RegistrationService runs the registration workflow.
type RegistrationService interface {
	Register(ctx context.Context, in RegisterInput) (*RegistrationResult, error)
}
