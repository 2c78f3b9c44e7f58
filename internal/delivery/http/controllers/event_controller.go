package controllers

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"eventticketing/internal/delivery/http/helpers"
	"eventticketing/internal/domain"
)

// CreateTicketRequest is one tier in the body of POST /events.
type CreateTicketRequest struct {
	Name         string   `json:"name"`
	Amount       int64    `json:"amount"`
	CryptoAmount *float64 `json:"crypto_amount"`
	Currency     string   `json:"currency"`
	Quantity     int      `json:"quantity"`
}

// CreateEventRequest is the request body for POST /events.
type CreateEventRequest struct {
	Email       string                `json:"email"`
	PhoneNumber *string               `json:"phone_number"`
	Organizer   string                `json:"organizer"`
	Name        string                `json:"name"`
	Description string                `json:"description"`
	Location    string                `json:"location"`
	ImageURL    *string               `json:"image_url"`
	Time        time.Time             `json:"time"`
	Paid        bool                  `json:"paid"`
	Tickets     []CreateTicketRequest `json:"tickets"`
}

// Validate implements Validator. Returns error messages for required fields.
func (c CreateEventRequest) Validate() []string {
	var errs []string
	if strings.TrimSpace(c.Name) == "" {
		errs = append(errs, "name is required")
	}
	if strings.TrimSpace(c.Organizer) == "" {
		errs = append(errs, "organizer is required")
	}
	if strings.TrimSpace(c.Email) == "" {
		errs = append(errs, "email is required")
	}
	if c.Time.IsZero() {
		errs = append(errs, "time is required")
	}
	for i, t := range c.Tickets {
		if strings.TrimSpace(t.Name) == "" {
			errs = append(errs, "tickets["+strconv.Itoa(i)+"].name is required")
		}
	}
	return errs
}

func (c CreateEventRequest) toInput() domain.CreateEventInput {
	in := domain.CreateEventInput{
		Email:       strings.TrimSpace(c.Email),
		PhoneNumber: c.PhoneNumber,
		Organizer:   strings.TrimSpace(c.Organizer),
		Name:        strings.TrimSpace(c.Name),
		Description: c.Description,
		Location:    c.Location,
		ImageURL:    c.ImageURL,
		Time:        c.Time,
		Paid:        c.Paid,
	}
	for _, t := range c.Tickets {
		in.Tickets = append(in.Tickets, domain.CreateTicketInput{
			Name:         strings.TrimSpace(t.Name),
			Amount:       t.Amount,
			CryptoAmount: t.CryptoAmount,
			Currency:     strings.TrimSpace(t.Currency),
			Quantity:     t.Quantity,
		})
	}
	return in
}

// EventSuccessResponse is the success response envelope for a single event.
type EventSuccessResponse struct {
	Data  *domain.Event     `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// DashboardResponse is the organizer view of an event. Unlike the public
// event it carries the dashboard code.
type DashboardResponse struct {
	*domain.Event
	DashboardCode string `json:"dashboard_code"`
}

// DashboardSuccessResponse is the success envelope for GET /events/dashboard/{code}.
type DashboardSuccessResponse struct {
	Data  DashboardResponse `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// ListEventsResponse is the paginated body of GET /events.
type ListEventsResponse struct {
	Items      []*domain.Event        `json:"items"`
	Pagination helpers.PaginationMeta `json:"pagination"`
}

// ListEventsSuccessResponse is the success envelope for GET /events.
type ListEventsSuccessResponse struct {
	Data  ListEventsResponse `json:"data"`
	Error *helpers.APIError  `json:"error"`
}

type EventController struct {
	Logger  *slog.Logger
	Service domain.EventService
}

func NewEventController(logger *slog.Logger, svc domain.EventService) *EventController {
	return &EventController{
		Logger:  logger,
		Service: svc,
	}
}

// CreateEvent godoc
// @Summary Create a new event
// @Description Creates an event with its ticket tiers. Paid events need at least one tier. The organizer receives the dashboard code by email.
// @Tags events
// @Accept json
// @Produce json
// @Param event body CreateEventRequest true "Event with ticket tiers"
// @Success 201 {object} controllers.DashboardSuccessResponse "data contains the created event and its dashboard code"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request, ValidationError or NoTicketTiers"
// @Failure 409 {object} helpers.APIResponse "error.code: DuplicateEventName"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events [post]
func (c *EventController) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req CreateEventRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	event, err := c.Service.CreateEvent(r.Context(), req.toInput())
	if err != nil {
		helpers.WriteDomainError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, DashboardResponse{Event: event, DashboardCode: event.DashboardCode})
}

// ListEvents godoc
// @Summary List events
// @Description Returns events newest first with their ticket tiers.
// @Tags events
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param page_size query int false "Page size (max 100)" default(20)
// @Param active query bool false "Only events accepting registrations"
// @Param upcoming query bool false "Only events that have not started"
// @Success 200 {object} controllers.ListEventsSuccessResponse
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events [get]
func (c *EventController) ListEvents(w http.ResponseWriter, r *http.Request) {
	params := helpers.ParseEventListParams(r)
	events, total, err := c.Service.ListEvents(r.Context(), params)
	if err != nil {
		helpers.WriteDomainError(w, r, c.Logger, err)
		return
	}
	if events == nil {
		events = []*domain.Event{}
	}
	meta := helpers.NewPaginationMeta(params.PaginationParams, total)
	helpers.WriteJSONSuccess(w, http.StatusOK, ListEventsResponse{Items: events, Pagination: meta})
}

// GetEvent godoc
// @Summary Get an event by ID
// @Tags events
// @Produce json
// @Param eventID path string true "Event ID"
// @Success 200 {object} controllers.EventSuccessResponse
// @Failure 404 {object} helpers.APIResponse "error.code: EventNotFound"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID} [get]
func (c *EventController) GetEvent(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("eventID")
	if eventID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing eventID")
		return
	}
	event, err := c.Service.GetEvent(r.Context(), eventID)
	if err != nil {
		helpers.WriteDomainError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, event)
}

// GetDashboard godoc
// @Summary Organizer dashboard
// @Description Looks an event up by its dashboard code and returns it with registration totals.
// @Tags events
// @Produce json
// @Param code path string true "Dashboard code"
// @Success 200 {object} controllers.DashboardSuccessResponse
// @Failure 404 {object} helpers.APIResponse "error.code: EventNotFound"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/dashboard/{code} [get]
func (c *EventController) GetDashboard(w http.ResponseWriter, r *http.Request) {
	code := strings.ToUpper(strings.TrimSpace(r.PathValue("code")))
	if code == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing code")
		return
	}
	event, err := c.Service.GetDashboard(r.Context(), code)
	if err != nil {
		helpers.WriteDomainError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, DashboardResponse{Event: event, DashboardCode: event.DashboardCode})
}
