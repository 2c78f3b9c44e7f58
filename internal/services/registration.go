package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"eventticketing/internal/domain"
)

type registrationService struct {
	store     domain.Store
	inventory domain.InventoryService
	ledger    domain.TransactionLedger
	gateways  domain.PaymentGateways
	converter domain.CurrencyConverter
	notifier  domain.NotificationService
	logger    *slog.Logger
}

// NewRegistrationService returns the registration workflow.
func NewRegistrationService(store domain.Store,
	inventory domain.InventoryService,
	ledger domain.TransactionLedger,
	gateways domain.PaymentGateways,
	converter domain.CurrencyConverter,
	notifier domain.NotificationService,
	logger *slog.Logger,
) domain.RegistrationService {
	return &registrationService{
		store:     store,
		inventory: inventory,
		ledger:    ledger,
		gateways:  gateways,
		converter: converter,
		notifier:  notifier,
		logger:    logger,
	}
}

// Register validates the request, then either approves a free registration
// immediately or records a Pending registration with its payment.
func (s *registrationService) Register(ctx context.Context, in domain.RegisterInput) (*domain.RegistrationResult, error) {
	if err := validateRegisterInput(in); err != nil {
		return nil, err
	}

	event, err := s.store.Events().GetByID(ctx, in.EventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrEventNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	if !event.Active {
		return nil, domain.ErrEventInactive
	}

	tickets, err := s.store.Tickets().ListByEventID(ctx, event.ID)
	if err != nil {
		return nil, fmt.Errorf("list tickets: %w", err)
	}
	event.Tickets = tickets

	var ticket *domain.Ticket
	if in.TicketID != nil && *in.TicketID != "" {
		ticket = findTicket(tickets, *in.TicketID)
		if ticket == nil {
			return nil, domain.ErrTicketNotFound
		}
	}
	if event.Paid {
		// Nothing to charge without a tier; CreateEvent refuses such events.
		if len(tickets) == 0 {
			return nil, domain.ErrNoTicketTiers
		}
		if ticket == nil {
			return nil, domain.ErrMissingTicketSelection
		}
	}
	if ticket != nil {
		availability, _, err := s.inventory.CheckAvailability(ctx, ticket.ID)
		if err != nil {
			return nil, err
		}
		switch availability {
		case domain.SoldOut:
			return nil, domain.ErrTicketUnavailable
		case domain.TierNotFound:
			return nil, domain.ErrTicketNotFound
		}
	}

	if event.Paid && ticket.Amount > 0 {
		return s.registerPaid(ctx, in, event, ticket)
	}
	return s.registerFree(ctx, in, event, ticket)
}

func validateRegisterInput(in domain.RegisterInput) error {
	if strings.TrimSpace(in.EventID) == "" {
		return domain.NewValidationError("event_id is required")
	}
	if strings.TrimSpace(in.FullName) == "" {
		return domain.NewValidationError("full_name is required")
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		return domain.NewValidationError("a valid email is required")
	}
	return nil
}

func findTicket(tickets []*domain.Ticket, id string) *domain.Ticket {
	for _, t := range tickets {
		if t.ID == id {
			return t
		}
	}
	return nil
}

// registerFree approves in one unit. A failed confirmation email rolls the
// registration and the inventory increment back.
func (s *registrationService) registerFree(ctx context.Context, in domain.RegisterInput, event *domain.Event, ticket *domain.Ticket) (*domain.RegistrationResult, error) {
	id, err := newID()
	if err != nil {
		return nil, fmt.Errorf("generate registration id: %w", err)
	}
	code, err := generateAccessCode()
	if err != nil {
		return nil, fmt.Errorf("generate access code: %w", err)
	}
	now := time.Now()
	reg := &domain.Registration{
		ID:          id,
		FullName:    strings.TrimSpace(in.FullName),
		Email:       strings.TrimSpace(in.Email),
		PhoneNumber: in.PhoneNumber,
		EventID:     event.ID,
		Status:      domain.RegistrationApproved,
		AccessCode:  &code,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	var amount int64
	if ticket != nil {
		reg.TicketID = &ticket.ID
		amount = ticket.Amount
	}

	err = s.store.WithinTx(ctx, func(ctx context.Context, r domain.Repositories) error {
		if err := r.Registrations().Create(ctx, reg); err != nil {
			return fmt.Errorf("create registration: %w", err)
		}
		if err := s.inventory.ReserveOnApprove(ctx, r, event.ID, reg.TicketID, amount); err != nil {
			return err
		}
		return s.notifier.SendRegistrationConfirmation(ctx, event, reg, ticket)
	})
	if err != nil {
		return nil, err
	}

	event.Registered++
	event.TotalAmount += amount
	if ticket != nil {
		ticket.Registered++
	}
	s.logger.Info("free registration approved", "registration_id", reg.ID, "event_id", event.ID)
	return &domain.RegistrationResult{Registration: reg, Event: event}, nil
}

// registerPaid initializes the charge before opening the unit, so no store
// transaction is held across the gateway call and a gateway failure writes nothing.
func (s *registrationService) registerPaid(ctx context.Context, in domain.RegisterInput, event *domain.Event, ticket *domain.Ticket) (*domain.RegistrationResult, error) {
	if strings.TrimSpace(in.PaymentType) == "" {
		return nil, domain.ErrMissingPaymentType
	}
	trxType, err := domain.ParseTransactionType(in.PaymentType)
	if err != nil {
		return nil, err
	}
	gateway, err := s.gateways.Get(trxType)
	if err != nil {
		return nil, err
	}

	regID, err := newID()
	if err != nil {
		return nil, fmt.Errorf("generate registration id: %w", err)
	}
	trxID, err := newID()
	if err != nil {
		return nil, fmt.Errorf("generate transaction id: %w", err)
	}
	reference, err := newOrderReference()
	if err != nil {
		return nil, fmt.Errorf("generate reference: %w", err)
	}

	req := domain.PaymentRequest{
		Reference:      reference,
		RegistrationID: regID,
		EventID:        event.ID,
		EventName:      event.Name,
		Description:    fmt.Sprintf("%s ticket for %s", ticket.Name, event.Name),
		TicketID:       ticket.ID,
		PayerEmail:     strings.TrimSpace(in.Email),
		PayerName:      strings.TrimSpace(in.FullName),
		PayerPhone:     in.PhoneNumber,
		Amount:         ticket.Amount,
		Currency:       ticket.Currency,
	}
	if trxType == domain.TransactionCrypto {
		req.CryptoAmount, err = s.cryptoAmount(ctx, ticket)
		if err != nil {
			return nil, err
		}
	}

	payment, err := gateway.Initialize(ctx, req)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	reg := &domain.Registration{
		ID:          regID,
		FullName:    req.PayerName,
		Email:       req.PayerEmail,
		PhoneNumber: in.PhoneNumber,
		EventID:     event.ID,
		TicketID:    &ticket.ID,
		Status:      domain.RegistrationPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	trx := &domain.Transaction{
		ID:               trxID,
		FullName:         reg.FullName,
		Email:            reg.Email,
		PhoneNumber:      in.PhoneNumber,
		EventID:          event.ID,
		TicketID:         &ticket.ID,
		Amount:           payment.Amount,
		Currency:         payment.Currency,
		Reference:        reference,
		Type:             trxType,
		GatewayReference: payment.GatewayReference,
		PaymentLink:      payment.PaymentLink,
		RegistrationID:   &regID,
		CreatedAt:        now,
	}

	err = s.store.WithinTx(ctx, func(ctx context.Context, r domain.Repositories) error {
		if err := r.Registrations().Create(ctx, reg); err != nil {
			return fmt.Errorf("create registration: %w", err)
		}
		if err := s.ledger.Record(ctx, r, trx); err != nil {
			return err
		}
		if err := r.Registrations().LinkTransaction(ctx, reg.ID, trx.ID); err != nil {
			return fmt.Errorf("link transaction: %w", err)
		}
		return nil
	})
	if err != nil {
		s.logger.Warn("payment initialized but registration not stored",
			"reference", reference, "gateway_reference", payment.GatewayReference, "error", err)
		return nil, err
	}
	reg.TransactionID = &trx.ID

	s.logger.Info("paid registration pending", "registration_id", reg.ID, "reference", reference, "type", trxType)
	link := payment.PaymentLink
	return &domain.RegistrationResult{Registration: reg, Event: event, PaymentLink: &link}, nil
}

func (s *registrationService) cryptoAmount(ctx context.Context, ticket *domain.Ticket) (float64, error) {
	if ticket.CryptoAmount != nil && *ticket.CryptoAmount > 0 {
		return *ticket.CryptoAmount, nil
	}
	if s.converter == nil {
		return 0, domain.ErrUnsupportedPaymentType
	}
	v, err := s.converter.Convert(ctx, float64(ticket.Amount), ticket.Currency)
	if err != nil {
		return 0, &domain.GatewayError{Provider: "coingecko", Op: "convert", Err: err}
	}
	return v, nil
}
