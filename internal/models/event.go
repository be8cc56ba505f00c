package models

import (
	"time"

	"github.com/google/uuid"
)

// EventCategory is the kind of activity.
type EventCategory string

const (
	CategoryRecycling  EventCategory = "recycling"
	CategoryUpcycling  EventCategory = "upcycling"
	CategoryWorkshop   EventCategory = "workshop"
	CategoryGardenWalk EventCategory = "garden-walk"
)

// EventStatus says whether booking requires payment.
type EventStatus string

const (
	EventFree EventStatus = "Free"
	EventPaid EventStatus = "Paid"
)

// DateLayout is the wire format of calendar dates (start/end/booking dates).
const DateLayout = "2006-01-02"

// Event is a bookable activity.
type Event struct {
	ID          uuid.UUID     `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Category    EventCategory `json:"category"`
	Location    string        `json:"location"`
	StartDate   time.Time     `json:"start_date"`
	EndDate     time.Time     `json:"end_date"`
	Time        string        `json:"time"`
	Status      EventStatus   `json:"status"`
	AmountCents int           `json:"amount_cents"`
	LeafPoints  int           `json:"leaf_points"`
	Organiser   string        `json:"organiser"`
	PictureKey  string        `json:"-"`
	PictureURL  string        `json:"picture_url,omitempty"`
	CreatedBy   *uuid.UUID    `json:"created_by,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// IsPaid reports whether booking this event requires a payment first.
func (e *Event) IsPaid() bool {
	return e.Status == EventPaid
}

// Covers reports whether day falls within [StartDate, EndDate], compared by calendar date.
func (e *Event) Covers(day time.Time) bool {
	d := truncateDay(day)
	return !d.Before(truncateDay(e.StartDate)) && !d.After(truncateDay(e.EndDate))
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
