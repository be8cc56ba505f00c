package models

import (
	"time"

	"github.com/google/uuid"
)

// PaymentStatus for payments.
const (
	PaymentStatusPaid     = "Paid"
	PaymentStatusRefunded = "Refunded"
)

// Payment is a completed card payment for a paid event booking.
// Only the last four card digits are kept; the CVV is never stored.
// PendingID is unique, so a pending booking can be paid at most once.
type Payment struct {
	ID          uuid.UUID `json:"id"`
	PendingID   string    `json:"pending_id,omitempty"`
	AccountID   uuid.UUID `json:"account_id"`
	EventID     uuid.UUID `json:"event_id"`
	EventName   string    `json:"event_name"`
	EventDate   time.Time `json:"event_date"`
	AmountCents int       `json:"amount_cents"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Phone       string    `json:"phone"`
	Address     string    `json:"address"`
	PostalCode  string    `json:"postal_code"`
	CardHolder  string    `json:"card_holder"`
	CardLast4   string    `json:"card_last4"`
	CardExpiry  string    `json:"card_expiry"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
