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

type eventService struct {
	store          domain.Store
	converter      domain.CurrencyConverter
	notifier       domain.NotificationService
	logger         *slog.Logger
	contextTimeout time.Duration
}

// NewEventService returns the organizer and public event operations.
// converter may be nil, in which case crypto prices are left unset.
func NewEventService(store domain.Store,
	converter domain.CurrencyConverter,
	notifier domain.NotificationService,
	logger *slog.Logger,
	timeout time.Duration,
) domain.EventService {
	return &eventService{
		store:          store,
		converter:      converter,
		notifier:       notifier,
		logger:         logger,
		contextTimeout: timeout,
	}
}

func (s *eventService) CreateEvent(ctx context.Context, in domain.CreateEventInput) (*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if err := validateCreateEvent(in); err != nil {
		return nil, err
	}

	code, err := generateDashboardCode()
	if err != nil {
		return nil, fmt.Errorf("generate dashboard code: %w", err)
	}
	now := time.Now()
	event := &domain.Event{
		Email:         strings.TrimSpace(in.Email),
		PhoneNumber:   in.PhoneNumber,
		Organizer:     strings.TrimSpace(in.Organizer),
		Name:          strings.TrimSpace(in.Name),
		Description:   in.Description,
		Location:      in.Location,
		ImageURL:      in.ImageURL,
		Time:          in.Time,
		Paid:          in.Paid,
		Active:        true,
		DashboardCode: code,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	// Rates are fetched before the unit opens.
	tickets := make([]*domain.Ticket, 0, len(in.Tickets))
	for _, ti := range in.Tickets {
		t := &domain.Ticket{
			Name:         strings.TrimSpace(ti.Name),
			Amount:       ti.Amount,
			CryptoAmount: ti.CryptoAmount,
			Currency:     strings.ToUpper(ti.Currency),
			Quantity:     ti.Quantity,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if t.CryptoAmount == nil && t.Amount > 0 && s.converter != nil {
			v, err := s.converter.Convert(ctx, float64(t.Amount), t.Currency)
			if err != nil {
				s.logger.Warn("crypto price not derived", "ticket", t.Name, "currency", t.Currency, "error", err)
			} else {
				t.CryptoAmount = &v
			}
		}
		tickets = append(tickets, t)
	}

	err = s.store.WithinTx(ctx, func(ctx context.Context, r domain.Repositories) error {
		if err := r.Events().Create(ctx, event); err != nil {
			if errors.Is(err, domain.ErrDuplicateEventName) {
				return err
			}
			return fmt.Errorf("create event: %w", err)
		}
		for _, t := range tickets {
			t.EventID = event.ID
			if err := r.Tickets().Create(ctx, t); err != nil {
				return fmt.Errorf("create ticket %q: %w", t.Name, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	event.Tickets = tickets

	if err := s.notifier.SendEventCreated(ctx, event); err != nil {
		s.logger.Error("event created email failed", "event_id", event.ID, "error", err)
	}
	return event, nil
}

func validateCreateEvent(in domain.CreateEventInput) error {
	if strings.TrimSpace(in.Name) == "" {
		return domain.NewValidationError("name is required")
	}
	if strings.TrimSpace(in.Organizer) == "" {
		return domain.NewValidationError("organizer is required")
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		return domain.NewValidationError("a valid organizer email is required")
	}
	if in.Time.IsZero() {
		return domain.NewValidationError("time is required")
	}
	if in.Paid && len(in.Tickets) == 0 {
		return domain.ErrNoTicketTiers
	}
	for _, t := range in.Tickets {
		if strings.TrimSpace(t.Name) == "" {
			return domain.NewValidationError("ticket name is required")
		}
		if t.Amount < 0 || t.Quantity < 0 {
			return domain.NewValidationError("ticket amount and quantity must not be negative")
		}
		if t.Amount > 0 && strings.TrimSpace(t.Currency) == "" {
			return domain.NewValidationError("ticket currency is required for priced tickets")
		}
	}
	return nil
}

func (s *eventService) GetEvent(ctx context.Context, id string) (*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.store.Events().GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrEventNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	if err := s.attachTickets(ctx, event); err != nil {
		return nil, err
	}
	return event, nil
}

func (s *eventService) ListEvents(ctx context.Context, params domain.EventListParams) ([]*domain.Event, int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	events, total, err := s.store.Events().List(ctx, params)
	if err != nil {
		return nil, 0, fmt.Errorf("list events: %w", err)
	}
	return events, total, nil
}

// GetDashboard returns the organizer view of the event owning code.
func (s *eventService) GetDashboard(ctx context.Context, code string) (*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.store.Events().GetByDashboardCode(ctx, code)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrEventNotFound
		}
		return nil, fmt.Errorf("get event by dashboard code: %w", err)
	}
	if err := s.attachTickets(ctx, event); err != nil {
		return nil, err
	}
	return event, nil
}

func (s *eventService) attachTickets(ctx context.Context, event *domain.Event) error {
	tickets, err := s.store.Tickets().ListByEventID(ctx, event.ID)
	if err != nil {
		return fmt.Errorf("list tickets: %w", err)
	}
	event.Tickets = tickets
	return nil
}
