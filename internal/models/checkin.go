package models

import (
	"time"

	"github.com/google/uuid"
)

// CheckInStatus values for CheckIn.QRCodeStatus.
const (
	CheckInNotChecked = "Not Checked"
	CheckInChecked    = "Checked"
)

// CheckIn is the attendance record for one attendee of a Booking.
// The primary attendee's row shares the booking's QR token.
type CheckIn struct {
	ID            uuid.UUID  `json:"id"`
	BookingID     string     `json:"booking_id"`
	EventID       uuid.UUID  `json:"event_id"`
	AccountID     *uuid.UUID `json:"account_id,omitempty"`
	AttendeeName  string     `json:"attendee_name"`
	AttendeeEmail string     `json:"attendee_email"`
	QRCodeText    string     `json:"qr_code_text"`
	QRCodeURL     string     `json:"qr_code_url,omitempty"`
	QRCodeChecked bool       `json:"qr_code_checked"`
	QRCodeStatus  string     `json:"qr_code_status"`
	CheckInTime   *time.Time `json:"check_in_time,omitempty"`
	LeafPoints    int        `json:"leaf_points"`
	CreatedAt     time.Time  `json:"created_at"`
}
