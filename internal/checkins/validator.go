package checkins

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ecohaven/backend/internal/models"
)

var (
	ErrTokenNotFound    = errors.New("qr code not found")
	ErrAlreadyCheckedIn = errors.New("qr code already checked in")
	ErrBookingCancelled = errors.New("booking is cancelled")
	ErrEmptyToken       = errors.New("token is required")
)

// Preview is a check-in looked up without consuming it.
type Preview struct {
	models.CheckIn
	EventName     string               `json:"event_name"`
	BookingStatus models.BookingStatus `json:"booking_status"`
}

// Store persists check-in state. Consume must flip an unchecked row of an Active booking
// and credit its leaf points in one transaction.
type Store interface {
	Consume(ctx context.Context, token string) (*models.CheckIn, error)
	Preview(ctx context.Context, token string) (*Preview, error)
	ListByEvent(ctx context.Context, eventID uuid.UUID) ([]models.CheckIn, error)
}

// Broadcaster pushes successful check-ins to an event's live feed.
type Broadcaster interface {
	PublishCheckIn(eventID uuid.UUID, payload interface{})
}

// FeedItem is the payload sent to live feed clients.
type FeedItem struct {
	CheckInID    uuid.UUID `json:"check_in_id"`
	BookingID    string    `json:"booking_id"`
	AttendeeName string    `json:"attendee_name"`
	LeafPoints   int       `json:"leaf_points"`
	CheckedInAt  time.Time `json:"checked_in_at"`
	CheckedInBy  uuid.UUID `json:"checked_in_by"`
}

// Validator consumes QR tokens at the venue.
type Validator struct {
	store  Store
	feed   Broadcaster
	logger *zap.Logger
}

// NewValidator creates a check-in validator. feed may be nil.
func NewValidator(store Store, feed Broadcaster, logger *zap.Logger) *Validator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Validator{store: store, feed: feed, logger: logger}
}

// CheckIn consumes token. Each token succeeds at most once; later attempts return ErrAlreadyCheckedIn
// and credit nothing.
func (v *Validator) CheckIn(ctx context.Context, token string, staffID uuid.UUID) (*models.CheckIn, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrEmptyToken
	}
	ci, err := v.store.Consume(ctx, token)
	if err != nil {
		return nil, err
	}
	v.logger.Info("checked in",
		zap.String("booking_id", ci.BookingID),
		zap.String("check_in_id", ci.ID.String()),
		zap.String("staff_id", staffID.String()),
		zap.Int("leaf_points", ci.LeafPoints),
	)
	if v.feed != nil {
		item := FeedItem{
			CheckInID:    ci.ID,
			BookingID:    ci.BookingID,
			AttendeeName: ci.AttendeeName,
			LeafPoints:   ci.LeafPoints,
			CheckedInBy:  staffID,
		}
		if ci.CheckInTime != nil {
			item.CheckedInAt = *ci.CheckInTime
		}
		v.feed.PublishCheckIn(ci.EventID, item)
	}
	return ci, nil
}

// Preview returns the check-in behind token without consuming it.
func (v *Validator) Preview(ctx context.Context, token string) (*Preview, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrEmptyToken
	}
	return v.store.Preview(ctx, token)
}

// ListByEvent returns every attendee row of an event.
func (v *Validator) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]models.CheckIn, error) {
	return v.store.ListByEvent(ctx, eventID)
}
