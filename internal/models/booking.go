package models

import (
	"time"

	"github.com/google/uuid"
)

// BookingStatus is Active or Cancelled.
type BookingStatus string

const (
	BookingActive    BookingStatus = "Active"
	BookingCancelled BookingStatus = "Cancelled"
)

// Booking is one reservation against an Event by an Account.
// Pax counts every attendee; PaxNames/PaxEmails list the Pax-1 additional attendees in order.
type Booking struct {
	ID         string        `json:"id"`
	EventID    uuid.UUID     `json:"event_id"`
	AccountID  uuid.UUID     `json:"account_id"`
	PaymentID  *uuid.UUID    `json:"payment_id,omitempty"`
	Name       string        `json:"name"`
	Phone      string        `json:"phone"`
	Email      string        `json:"email"`
	Date       time.Time     `json:"date"`
	Pax        int           `json:"pax"`
	PaxNames   []string      `json:"pax_names"`
	PaxEmails  []string      `json:"pax_emails"`
	Status     BookingStatus `json:"status"`
	QRCodeText string        `json:"qr_code_text"`
	QRCodeURL  string        `json:"qr_code_url"`
	LeafPoints int           `json:"leaf_points"`
	CheckIns   []CheckIn     `json:"check_ins,omitempty"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
}
