package domain

import (
	"context"
	"time"
)

// PaymentOutcome is how a provider status string maps onto the ledger.
type PaymentOutcome int

const (
	// PaymentOutcomePending leaves the transaction untouched.
	PaymentOutcomePending PaymentOutcome = iota
	PaymentOutcomeConfirmed
	PaymentOutcomeFailed
)

func (o PaymentOutcome) String() string {
	switch o {
	case PaymentOutcomeConfirmed:
		return "confirmed"
	case PaymentOutcomeFailed:
		return "failed"
	}
	return "pending"
}

// PaymentRequest is what a gateway needs to start a charge.
type PaymentRequest struct {
	Reference      string
	RegistrationID string
	EventID        string
	EventName      string
	Description    string
	TicketID       string
	PayerEmail     string
	PayerName      string
	PayerPhone     *string
	Amount         int64
	Currency       string
	CryptoAmount   float64
	Metadata       map[string]string
}

// PaymentInit is the uniform result of initializing a charge.
type PaymentInit struct {
	Reference        string
	GatewayReference string
	PaymentLink      string
	// Amount and Currency are what the provider will actually charge.
	Amount   float64
	Currency string
}

// PaymentVerification is the result of a pull-style verification.
type PaymentVerification struct {
	Confirmed bool
	RawStatus string
}

// PaymentNotification is a provider-pushed status change, already authenticated
// where the provider supports it.
type PaymentNotification struct {
	// Reference is the key used to resolve the transaction. For card webhooks it
	// is the gateway reference, for crypto callbacks the order reference.
	Reference string
	Token     string
	RawStatus string
}

// PaymentGateway is one external payment provider.
type PaymentGateway interface {
	Type() TransactionType
	Initialize(ctx context.Context, req PaymentRequest) (*PaymentInit, error)
	// Verify asks the provider for the current status. Gateways without a pull
	// API return ErrVerificationUnsupported.
	Verify(ctx context.Context, gatewayReference string) (*PaymentVerification, error)
	// Classify maps a raw provider status onto an outcome.
	Classify(rawStatus string) PaymentOutcome
}

// WebhookParser authenticates and decodes a pushed provider payload.
type WebhookParser interface {
	ParseWebhook(payload []byte, signature string) (*PaymentNotification, error)
}

// PaymentGateways is the dispatch table keyed by transaction type.
type PaymentGateways map[TransactionType]PaymentGateway

// NewPaymentGateways builds the dispatch table from the configured adapters.
func NewPaymentGateways(gateways ...PaymentGateway) PaymentGateways {
	table := make(PaymentGateways, len(gateways))
	for _, g := range gateways {
		if g != nil {
			table[g.Type()] = g
		}
	}
	return table
}

// Get returns the gateway for t or ErrUnsupportedPaymentType.
func (p PaymentGateways) Get(t TransactionType) (PaymentGateway, error) {
	g, ok := p[t]
	if !ok {
		return nil, ErrUnsupportedPaymentType
	}
	return g, nil
}

// CurrencyConverter converts a fiat amount into the crypto settlement currency.
type CurrencyConverter interface {
	Convert(ctx context.Context, amount float64, fiat string) (float64, error)
}

// OrderTokenIssuer issues and checks the opaque token embedded in crypto orders.
type OrderTokenIssuer interface {
	Issue(orderReference string, expiry time.Duration) (string, error)
	Verify(token string) (orderReference string, err error)
}

// WebhookDisposition describes what a reconciliation call did.
type WebhookDisposition string

const (
	DispositionApplied           WebhookDisposition = "applied"
	DispositionFailed            WebhookDisposition = "failed"
	DispositionPending           WebhookDisposition = "pending"
	DispositionDuplicate         WebhookDisposition = "duplicate"
	DispositionUnknownReference  WebhookDisposition = "unknown_reference"
	DispositionInvalidSignature  WebhookDisposition = "invalid_signature"
	DispositionRejectedSoldOut   WebhookDisposition = "rejected_sold_out"
	DispositionUnsupportedSource WebhookDisposition = "unsupported"
)

// ReconciliationResult is the uniform acknowledgment of a reconciliation call.
type ReconciliationResult struct {
	Disposition WebhookDisposition `json:"disposition"`
	Transaction *Transaction       `json:"transaction,omitempty"`
}

// CryptoCallback is the crypto provider's pushed payload.
type CryptoCallback struct {
	Status  string
	OrderID string
	Token   string
}

// ReconciliationService turns provider-confirmed payments into approved registrations.
type ReconciliationService interface {
	// HandleCallback verifies the reference with the provider (pull path).
	HandleCallback(ctx context.Context, reference string) (*ReconciliationResult, error)
	// HandleCardWebhook authenticates and applies a signed card webhook.
	HandleCardWebhook(ctx context.Context, payload []byte, signature string) (*ReconciliationResult, error)
	// HandleCryptoWebhook applies a crypto provider callback.
	HandleCryptoWebhook(ctx context.Context, cb CryptoCallback) (*ReconciliationResult, error)
	// CompleteRegistration approves the registration behind a confirmed payment exactly once.
	CompleteRegistration(ctx context.Context, gatewayReference string) (WebhookDisposition, error)
	// SweepPending re-verifies or expires stale Pending transactions.
	SweepPending(ctx context.Context) (int, error)
}
