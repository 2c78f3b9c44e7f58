package services

import (
	"context"
	"errors"
	"fmt"

	"eventticketing/internal/domain"
)

type inventoryService struct {
	tickets domain.TicketRepository
}

// NewInventoryService returns the inventory store over tickets.
func NewInventoryService(tickets domain.TicketRepository) domain.InventoryService {
	return &inventoryService{tickets: tickets}
}

// CheckAvailability is a soft check: it does not hold any capacity.
func (s *inventoryService) CheckAvailability(ctx context.Context, ticketID string) (domain.Availability, *domain.Ticket, error) {
	t, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.TierNotFound, nil, nil
		}
		return "", nil, fmt.Errorf("get ticket: %w", err)
	}
	if !t.Available() {
		return domain.SoldOut, t, nil
	}
	return domain.Available, t, nil
}

// ReserveOnApprove consumes the tier first so a full tier fails before the
// event counters move. Both increments run on repos, inside the caller's unit.
func (s *inventoryService) ReserveOnApprove(ctx context.Context, repos domain.Repositories, eventID string, ticketID *string, amount int64) error {
	if ticketID != nil {
		if err := repos.Tickets().IncrementRegistered(ctx, *ticketID); err != nil {
			switch {
			case errors.Is(err, domain.ErrTicketUnavailable):
				return domain.ErrTicketUnavailable
			case errors.Is(err, domain.ErrNotFound):
				return domain.ErrTicketNotFound
			}
			return fmt.Errorf("increment ticket: %w", err)
		}
	}
	if err := repos.Events().IncrementRegistered(ctx, eventID, amount); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrEventNotFound
		}
		return fmt.Errorf("increment event: %w", err)
	}
	return nil
}
