package domain

import (
	"context"
	"time"
)

// Event is an organizer's event. Registered and TotalAmount are aggregates
// mutated only through InventoryService.
// swagger:model Event
type Event struct {
	ID            string    `json:"id"`
	Email         string    `json:"email,omitempty"`
	PhoneNumber   *string   `json:"phone_number,omitempty"`
	Organizer     string    `json:"organizer"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	Location      string    `json:"location"`
	ImageURL      *string   `json:"image_url,omitempty"`
	Time          time.Time `json:"time"`
	Paid          bool      `json:"paid"`
	Active        bool      `json:"active"`
	DashboardCode string    `json:"-"`
	Registered    int       `json:"registered"`
	TotalAmount   int64     `json:"total_amount"`
	Attended      int       `json:"attended"`
	Tickets       []*Ticket `json:"tickets,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Ticket is a priced tier under an event. Quantity 0 means unlimited.
// swagger:model Ticket
type Ticket struct {
	ID           string    `json:"id"`
	EventID      string    `json:"event_id"`
	Name         string    `json:"name"`
	Amount       int64     `json:"amount"`
	CryptoAmount *float64  `json:"crypto_amount,omitempty"`
	Currency     string    `json:"currency"`
	Quantity     int       `json:"quantity"`
	Registered   int       `json:"registered"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Available reports whether one more approval fits in the tier.
func (t *Ticket) Available() bool {
	return t.Quantity == 0 || t.Registered < t.Quantity
}

// Availability is the result of a tier availability check.
type Availability string

const (
	Available    Availability = "available"
	SoldOut      Availability = "sold_out"
	TierNotFound Availability = "not_found"
)

// EventListParams pages and filters the public event listing.
type EventListParams struct {
	PaginationParams
	// ActiveOnly hides events that no longer accept registrations.
	ActiveOnly bool
	// UpcomingOnly hides events whose start time has passed.
	UpcomingOnly bool
}

// EventRepository defines storage for events and their aggregate counters.
type EventRepository interface {
	Create(ctx context.Context, e *Event) error
	GetByID(ctx context.Context, id string) (*Event, error)
	GetByDashboardCode(ctx context.Context, code string) (*Event, error)
	List(ctx context.Context, params EventListParams) ([]*Event, int, error)
	// IncrementRegistered adds one registration and amount to the event totals.
	IncrementRegistered(ctx context.Context, id string, amount int64) error
}

// TicketRepository defines storage for ticket tiers.
type TicketRepository interface {
	Create(ctx context.Context, t *Ticket) error
	GetByID(ctx context.Context, id string) (*Ticket, error)
	ListByEventID(ctx context.Context, eventID string) ([]*Ticket, error)
	// IncrementRegistered consumes one unit of the tier. Returns
	// ErrTicketUnavailable when the tier is full and ErrNotFound when missing.
	IncrementRegistered(ctx context.Context, id string) error
}

// InventoryService checks and commits ticket inventory.
type InventoryService interface {
	CheckAvailability(ctx context.Context, ticketID string) (Availability, *Ticket, error)
	// ReserveOnApprove must be called with repositories bound to the caller's
	// atomic unit.
	ReserveOnApprove(ctx context.Context, repos Repositories, eventID string, ticketID *string, amount int64) error
}

// CreateEventInput is the organizer-supplied data for a new event.
type CreateEventInput struct {
	Email       string
	PhoneNumber *string
	Organizer   string
	Name        string
	Description string
	Location    string
	ImageURL    *string
	Time        time.Time
	Paid        bool
	Tickets     []CreateTicketInput
}

// CreateTicketInput describes one tier of a new event.
type CreateTicketInput struct {
	Name         string
	Amount       int64
	CryptoAmount *float64
	Currency     string
	Quantity     int
}

// EventService defines organizer and public event operations.
type EventService interface {
	CreateEvent(ctx context.Context, in CreateEventInput) (*Event, error)
	GetEvent(ctx context.Context, id string) (*Event, error)
	ListEvents(ctx context.Context, params EventListParams) ([]*Event, int, error)
	GetDashboard(ctx context.Context, code string) (*Event, error)
}
