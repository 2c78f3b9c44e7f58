package domain

import "errors"

// Error categories. Every *Error unwraps to exactly one of these, so callers
// can branch with errors.Is without knowing individual codes.
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrConflict     = errors.New("conflict")
	ErrGateway      = errors.New("payment gateway error")
)

// Error is a caller-fixable failure with a stable code.
type Error struct {
	Code     string
	Message  string
	Category error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Category }

func newError(category error, code, message string) *Error {
	return &Error{Code: code, Message: message, Category: category}
}

// Registration workflow failures.
var (
	ErrEventNotFound          = newError(ErrNotFound, "EventNotFound", "event not found")
	ErrEventInactive          = newError(ErrInvalidInput, "EventInactive", "event is not active")
	ErrTicketNotFound         = newError(ErrNotFound, "TicketNotFound", "ticket not found")
	ErrMissingTicketSelection = newError(ErrInvalidInput, "MissingTicketSelection", "a ticket must be selected for this event")
	ErrTicketUnavailable      = newError(ErrConflict, "TicketUnavailable", "ticket is sold out")
	ErrMissingPaymentType     = newError(ErrInvalidInput, "MissingPaymentType", "payment type is required for paid events")
	ErrInvalidPaymentType     = newError(ErrInvalidInput, "InvalidPaymentType", `payment type must be either "Card" or "Crypto"`)
	ErrUnsupportedPaymentType = newError(ErrConflict, "UnsupportedPaymentType", "payment type is not supported")
	ErrNoTicketTiers          = newError(ErrInvalidInput, "NoTicketTiers", "paid event has no ticket tiers")
	ErrDuplicateEventName     = newError(ErrConflict, "DuplicateEventName", "an event with this name already exists")
)

// Reconciliation failures and outcomes.
var (
	ErrTransactionNotFound     = newError(ErrNotFound, "TransactionNotFound", "transaction not found")
	ErrRegistrationNotFound    = newError(ErrNotFound, "RegistrationNotFound", "registration not found")
	ErrInvalidSignature        = newError(ErrInvalidInput, "InvalidSignature", "webhook signature is invalid")
	ErrInvalidOrderToken       = newError(ErrInvalidInput, "InvalidOrderToken", "order token does not match")
	ErrVerificationUnsupported = newError(ErrConflict, "VerificationUnsupported", "gateway does not support pull verification")
)

// GatewayError reports a failed call to an external payment provider.
// It unwraps to ErrGateway.
type GatewayError struct {
	Provider   string
	Op         string
	StatusCode int
	Err        error
}

func (e *GatewayError) Error() string {
	msg := e.Provider + " " + e.Op + " failed"
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *GatewayError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrGateway}
	}
	return []error{ErrGateway, e.Err}
}

// ErrorCode returns the stable code of a domain error, or "" for anything else.
func ErrorCode(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// NewValidationError reports a malformed request field.
func NewValidationError(message string) *Error {
	return newError(ErrInvalidInput, "ValidationError", message)
}
