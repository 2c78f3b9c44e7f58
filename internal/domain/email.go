package domain

import "context"

// Attachment is a file attached to an outgoing email.
type Attachment struct {
	Filename    string
	ContentType string
	Content     []byte
}

// EmailMessage is a fully rendered email.
type EmailMessage struct {
	To          string
	Subject     string
	HTML        string
	Text        string
	Attachments []Attachment
}

// Mailer defines the contract for sending emails (infrastructure port).
type Mailer interface {
	Send(ctx context.Context, msg EmailMessage) error
}

// EmailTemplateRenderer renders email content from a named template with the given data.
type EmailTemplateRenderer interface {
	Render(templateName string, data any) (subject, htmlBody, textBody string, err error)
}

// QRGenerator renders content as a PNG QR code.
type QRGenerator interface {
	PNG(content string) ([]byte, error)
}

// RegistrationEmailData holds data for the registration confirmation email.
type RegistrationEmailData struct {
	Email      string
	FullName   string
	EventName  string
	EventTime  string
	Location   string
	TicketName string
	AccessCode string
	EventURL   string
}

// EventCreatedEmailData holds data for the organizer's event created email.
type EventCreatedEmailData struct {
	Email         string
	Organizer     string
	EventName     string
	DashboardCode string
	EventURL      string
	DashboardURL  string
}

// NotificationService sends domain-level emails.
type NotificationService interface {
	SendRegistrationConfirmation(ctx context.Context, event *Event, reg *Registration, ticket *Ticket) error
	SendEventCreated(ctx context.Context, event *Event) error
}
