package services

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/gosimple/slug"

	"eventticketing/internal/domain"
)

const (
	qrAttachmentName = "event_qrcode.png"
	eventTimeLayout  = "Monday, 2 January 2006 at 3:04 PM MST"
)

type notificationService struct {
	mailer   domain.Mailer
	renderer domain.EmailTemplateRenderer
	qr       domain.QRGenerator
	baseURL  string
	logger   *slog.Logger
}

// NewNotificationService returns a NotificationService that renders templates,
// attaches a QR code and hands the message to mailer. baseURL is the public
// frontend used for event links.
func NewNotificationService(mailer domain.Mailer, renderer domain.EmailTemplateRenderer, qr domain.QRGenerator, baseURL string, logger *slog.Logger) domain.NotificationService {
	return &notificationService{
		mailer:   mailer,
		renderer: renderer,
		qr:       qr,
		baseURL:  strings.TrimRight(baseURL, "/"),
		logger:   logger,
	}
}

// EventURL is the public page of an event.
func EventURL(baseURL string, event *domain.Event) string {
	return strings.TrimRight(baseURL, "/") + "/events/" + slug.Make(event.Name)
}

// SendRegistrationConfirmation sends the "registration_confirmed" email with
// a QR code encoding the event link and access code.
func (s *notificationService) SendRegistrationConfirmation(ctx context.Context, event *domain.Event, reg *domain.Registration, ticket *domain.Ticket) error {
	if event == nil || reg == nil {
		return fmt.Errorf("registration email data is nil")
	}
	if reg.AccessCode == nil {
		return fmt.Errorf("registration %s has no access code", reg.ID)
	}
	eventURL := EventURL(s.baseURL, event)
	data := domain.RegistrationEmailData{
		Email:      reg.Email,
		FullName:   reg.FullName,
		EventName:  event.Name,
		EventTime:  event.Time.Format(eventTimeLayout),
		Location:   event.Location,
		AccessCode: *reg.AccessCode,
		EventURL:   eventURL,
	}
	if ticket != nil {
		data.TicketName = ticket.Name
	}
	subject, htmlBody, textBody, err := s.renderer.Render("registration_confirmed", data)
	if err != nil {
		return fmt.Errorf("failed to render registration_confirmed template: %w", err)
	}

	q := url.Values{}
	q.Set("access_code", *reg.AccessCode)
	png, err := s.qr.PNG(eventURL + "?" + q.Encode())
	if err != nil {
		return fmt.Errorf("generate qr code: %w", err)
	}

	msg := domain.EmailMessage{
		To:      reg.Email,
		Subject: subject,
		HTML:    htmlBody,
		Text:    textBody,
		Attachments: []domain.Attachment{
			{Filename: qrAttachmentName, ContentType: "image/png", Content: png},
		},
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		return fmt.Errorf("failed to send registration email: %w", err)
	}
	s.logger.Info("registration email sent", "registration_id", reg.ID, "event_id", event.ID)
	return nil
}

// SendEventCreated sends the organizer their dashboard code.
func (s *notificationService) SendEventCreated(ctx context.Context, event *domain.Event) error {
	if event == nil {
		return fmt.Errorf("event is nil")
	}
	data := domain.EventCreatedEmailData{
		Email:         event.Email,
		Organizer:     event.Organizer,
		EventName:     event.Name,
		DashboardCode: event.DashboardCode,
		EventURL:      EventURL(s.baseURL, event),
		DashboardURL:  s.baseURL + "/dashboard/" + url.PathEscape(event.DashboardCode),
	}
	subject, htmlBody, textBody, err := s.renderer.Render("event_created", data)
	if err != nil {
		return fmt.Errorf("failed to render event_created template: %w", err)
	}
	if err := s.mailer.Send(ctx, domain.EmailMessage{To: event.Email, Subject: subject, HTML: htmlBody, Text: textBody}); err != nil {
		return fmt.Errorf("failed to send event created email: %w", err)
	}
	s.logger.Info("event created email sent", "event_id", event.ID)
	return nil
}
