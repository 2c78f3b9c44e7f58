package controllers

import (
	"log/slog"
	"net/http"
	"strings"

	"eventticketing/internal/delivery/http/helpers"
	"eventticketing/internal/domain"
)

// RegisterRequest is the request body for POST /registrations.
type RegisterRequest struct {
	EventID     string  `json:"event_id"`
	TicketID    *string `json:"ticket_id"`
	FullName    string  `json:"full_name"`
	Email       string  `json:"email"`
	PhoneNumber *string `json:"phone_number"`
	PaymentType string  `json:"payment_type"`
}

// Validate implements Validator.
func (r RegisterRequest) Validate() []string {
	var errs []string
	if strings.TrimSpace(r.EventID) == "" {
		errs = append(errs, "event_id is required")
	}
	if strings.TrimSpace(r.FullName) == "" {
		errs = append(errs, "full_name is required")
	}
	if strings.TrimSpace(r.Email) == "" {
		errs = append(errs, "email is required")
	}
	return errs
}

// RegisterSuccessResponse is the success envelope for POST /registrations (201).
type RegisterSuccessResponse struct {
	Data  *domain.RegistrationResult `json:"data"`
	Error *helpers.APIError          `json:"error"`
}

type RegistrationController struct {
	Logger  *slog.Logger
	Service domain.RegistrationService
}

func NewRegistrationController(logger *slog.Logger, svc domain.RegistrationService) *RegistrationController {
	return &RegistrationController{
		Logger:  logger,
		Service: svc,
	}
}

// Register godoc
// @Summary Register for an event
// @Description Free registrations are approved immediately and the access code is emailed. Paid registrations stay Pending and return a payment_link; approval follows payment confirmation.
// @Tags registrations
// @Accept json
// @Produce json
// @Param registration body RegisterRequest true "Registration (payment_type is Card or Crypto for paid events)"
// @Success 201 {object} controllers.RegisterSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: ValidationError, EventInactive, MissingTicketSelection, MissingPaymentType or InvalidPaymentType"
// @Failure 404 {object} helpers.APIResponse "error.code: EventNotFound or TicketNotFound"
// @Failure 409 {object} helpers.APIResponse "error.code: TicketUnavailable or UnsupportedPaymentType"
// @Failure 502 {object} helpers.APIResponse "error.code: gateway_error"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /registrations [post]
func (c *RegistrationController) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	res, err := c.Service.Register(r.Context(), domain.RegisterInput{
		EventID:     strings.TrimSpace(req.EventID),
		TicketID:    req.TicketID,
		FullName:    req.FullName,
		Email:       req.Email,
		PhoneNumber: req.PhoneNumber,
		PaymentType: req.PaymentType,
	})
	if err != nil {
		helpers.WriteDomainError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, res)
}
