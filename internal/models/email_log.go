package models

import (
	"time"

	"github.com/google/uuid"
)

// EmailType for transactional emails.
const (
	EmailTypeBookingConfirmation = "booking_confirmation"
	EmailTypePasswordReset       = "password_reset"
	EmailTypeRefundDecision      = "refund_decision"
	EmailTypeRedemption          = "redemption"
)

// EmailLogStatus for delivery.
const (
	EmailLogStatusPending = "pending"
	EmailLogStatusSent    = "sent"
	EmailLogStatusFailed  = "failed"
)

// EmailLog records delivery of a transactional email.
type EmailLog struct {
	ID             uuid.UUID  `json:"id"`
	EmailType      string     `json:"email_type"`
	Reference      string     `json:"reference,omitempty"`
	RecipientEmail string     `json:"recipient_email"`
	Subject        string     `json:"subject,omitempty"`
	Status         string     `json:"status"`
	SentAt         *time.Time `json:"sent_at,omitempty"`
	ErrorMessage   string     `json:"error_message,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}
