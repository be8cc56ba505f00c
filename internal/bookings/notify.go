package bookings

import (
	"context"
	"fmt"
	"html"
	"strings"

	"go.uber.org/zap"

	"github.com/ecohaven/backend/internal/models"
	"github.com/ecohaven/backend/pkg/queue"
)

// EmailQueue enqueues transactional emails.
type EmailQueue interface {
	EnqueueEmail(ctx context.Context, payload queue.EmailPayload) error
}

// Notifier queues booking confirmation emails. Failures are logged and never returned,
// so a booking is never rolled back because its email could not be queued.
type Notifier struct {
	emails EmailQueue
	logger *zap.Logger
}

// NewNotifier creates a notifier.
func NewNotifier(emails EmailQueue, logger *zap.Logger) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notifier{emails: emails, logger: logger}
}

// Confirmation queues one email to the primary attendee listing every QR token of b.
func (n *Notifier) Confirmation(ctx context.Context, b *models.Booking, eventName, location, timeOfDay string) {
	if n == nil || n.emails == nil {
		return
	}
	payload := queue.EmailPayload{
		EmailType:      models.EmailTypeBookingConfirmation,
		Reference:      b.ID,
		RecipientEmail: b.Email,
		Subject:        "Your EcoHaven booking for " + eventName,
		BodyHTML:       ConfirmationHTML(b, eventName, location, timeOfDay),
	}
	if err := n.emails.EnqueueEmail(ctx, payload); err != nil {
		n.logger.Warn("enqueue booking confirmation failed", zap.String("booking_id", b.ID), zap.Error(err))
	}
}

// ConfirmationHTML renders the confirmation email body.
func ConfirmationHTML(b *models.Booking, eventName, location, timeOfDay string) string {
	var sb strings.Builder
	esc := html.EscapeString
	fmt.Fprintf(&sb, "<p>Hi %s,</p>", esc(b.Name))
	fmt.Fprintf(&sb, "<p>Your booking for <strong>%s</strong> is confirmed.</p>", esc(eventName))
	sb.WriteString("<ul>")
	fmt.Fprintf(&sb, "<li>Booking ID: %s</li>", esc(b.ID))
	fmt.Fprintf(&sb, "<li>Date: %s</li>", b.Date.Format(models.DateLayout))
	if timeOfDay != "" {
		fmt.Fprintf(&sb, "<li>Time: %s</li>", esc(timeOfDay))
	}
	if location != "" {
		fmt.Fprintf(&sb, "<li>Location: %s</li>", esc(location))
	}
	fmt.Fprintf(&sb, "<li>Attendees: %d</li>", b.Pax)
	sb.WriteString("</ul>")
	sb.WriteString("<p>Show the QR code below at the entrance. Each attendee has their own code.</p>")

	checkIns := b.CheckIns
	if len(checkIns) == 0 {
		checkIns = []models.CheckIn{{AttendeeName: b.Name, QRCodeText: b.QRCodeText, QRCodeURL: b.QRCodeURL}}
	}
	for _, ci := range checkIns {
		fmt.Fprintf(&sb, `<p><strong>%s</strong><br><img src="%s" alt="QR code"><br>Code: %s</p>`,
			esc(ci.AttendeeName), esc(ci.QRCodeURL), esc(ci.QRCodeText))
	}
	return sb.String()
}
