package bookings

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ecohaven/backend/internal/events"
	"github.com/ecohaven/backend/internal/models"
)

var (
	ErrEventNotFound   = errors.New("event not found")
	ErrInvalidPax      = errors.New("pax must be at least 1 with one name and email per additional attendee")
	ErrDateOutOfRange  = errors.New("date is outside the event's dates")
	ErrTokenCollision  = errors.New("qr token collision")
	ErrPendingNotFound = errors.New("pending booking not found or expired")
	ErrBookingNotFound = errors.New("booking not found")
	ErrNotActive       = errors.New("booking is not active")
)

// maxTokenAttempts bounds regeneration after a token collision.
const maxTokenAttempts = 3

// Request is the input for a booking. Pax counts every attendee including the primary one.
type Request struct {
	EventID   uuid.UUID `json:"event_id"`
	AccountID uuid.UUID `json:"account_id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	Email     string    `json:"email"`
	Date      time.Time `json:"date"`
	Pax       int       `json:"pax"`
	PaxNames  []string  `json:"pax_names"`
	PaxEmails []string  `json:"pax_emails"`
}

// Result is either a persisted booking (free event) or a pending one awaiting payment.
type Result struct {
	Booking *models.Booking
	Pending *PendingBooking
}

// EventLookup loads events.
type EventLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error)
}

// BookingWriter persists a booking with its check-ins in one transaction.
// A duplicate token must be reported as ErrTokenCollision.
type BookingWriter interface {
	Create(ctx context.Context, b *models.Booking) error
}

// PersistFunc persists a finished booking. Payments pass one that also writes the payment.
type PersistFunc func(ctx context.Context, b *models.Booking) error

// Issuer creates bookings and their QR tokens.
type Issuer struct {
	events     EventLookup
	writer     BookingWriter
	pending    PendingStore
	notifier   *Notifier
	qrBaseURL  string
	pendingTTL time.Duration
	logger     *zap.Logger
}

// NewIssuer creates a booking issuer.
func NewIssuer(ev EventLookup, writer BookingWriter, pending PendingStore, notifier *Notifier, qrBaseURL string, pendingTTL time.Duration, logger *zap.Logger) *Issuer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Issuer{
		events:     ev,
		writer:     writer,
		pending:    pending,
		notifier:   notifier,
		qrBaseURL:  qrBaseURL,
		pendingTTL: pendingTTL,
		logger:     logger,
	}
}

func (s *Issuer) validate(ev *models.Event, req *Request) error {
	if req.Pax < 1 || len(req.PaxNames) != req.Pax-1 || len(req.PaxEmails) != req.Pax-1 {
		return ErrInvalidPax
	}
	for i := range req.PaxNames {
		if strings.TrimSpace(req.PaxNames[i]) == "" || strings.TrimSpace(req.PaxEmails[i]) == "" {
			return ErrInvalidPax
		}
	}
	if !ev.Covers(req.Date) {
		return ErrDateOutOfRange
	}
	return nil
}

// Issue books req. Free events are persisted immediately and a confirmation email is queued.
// Paid events only produce a pending booking; nothing is written until Complete.
func (s *Issuer) Issue(ctx context.Context, req Request) (*Result, error) {
	ev, err := s.events.GetByID(ctx, req.EventID)
	if err != nil {
		if errors.Is(err, events.ErrEventNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}
	if err := s.validate(ev, &req); err != nil {
		return nil, err
	}

	if ev.IsPaid() {
		p := &PendingBooking{
			ID:          uuid.NewString(),
			Request:     req,
			EventName:   ev.Name,
			EventDate:   req.Date,
			AmountCents: ev.AmountCents * req.Pax,
			LeafPoints:  ev.LeafPoints,
			ExpiresAt:   time.Now().Add(s.pendingTTL),
		}
		if err := s.pending.Save(ctx, p, s.pendingTTL); err != nil {
			return nil, fmt.Errorf("save pending booking: %w", err)
		}
		s.logger.Info("booking pending payment", zap.String("pending_id", p.ID), zap.String("event_id", ev.ID.String()), zap.Int("amount_cents", p.AmountCents))
		return &Result{Pending: p}, nil
	}

	b, err := s.persist(ctx, req, ev.LeafPoints, nil, s.writer.Create)
	if err != nil {
		return nil, err
	}
	s.logger.Info("booking created", zap.String("booking_id", b.ID), zap.String("event_id", ev.ID.String()), zap.Int("pax", b.Pax))
	s.notifier.Confirmation(ctx, b, ev.Name, ev.Location, ev.Time)
	return &Result{Booking: b}, nil
}

// Pending returns a pending booking.
func (s *Issuer) Pending(ctx context.Context, id string) (*PendingBooking, error) {
	return s.pending.Get(ctx, id)
}

// Complete turns a paid pending booking into a booking via persist, then drops the pending
// entry and queues the confirmation email.
func (s *Issuer) Complete(ctx context.Context, p *PendingBooking, paymentID uuid.UUID, persist PersistFunc) (*models.Booking, error) {
	b, err := s.persist(ctx, p.Request, p.LeafPoints, &paymentID, persist)
	if err != nil {
		return nil, err
	}
	if err := s.pending.Delete(ctx, p.ID); err != nil {
		s.logger.Warn("delete pending booking failed", zap.String("pending_id", p.ID), zap.Error(err))
	}
	s.logger.Info("paid booking created", zap.String("booking_id", b.ID), zap.String("payment_id", paymentID.String()))

	location, timeOfDay := "", ""
	if ev, err := s.events.GetByID(ctx, p.Request.EventID); err == nil {
		location, timeOfDay = ev.Location, ev.Time
	}
	s.notifier.Confirmation(ctx, b, p.EventName, location, timeOfDay)
	return b, nil
}

// persist builds the booking with fresh tokens and retries when a token collides.
func (s *Issuer) persist(ctx context.Context, req Request, leafPoints int, paymentID *uuid.UUID, write PersistFunc) (*models.Booking, error) {
	var lastErr error
	for attempt := 1; attempt <= maxTokenAttempts; attempt++ {
		b, err := s.build(req, leafPoints, paymentID)
		if err != nil {
			return nil, err
		}
		err = write(ctx, b)
		if err == nil {
			return b, nil
		}
		if !errors.Is(err, ErrTokenCollision) {
			return nil, err
		}
		lastErr = err
		s.logger.Warn("qr token collision, regenerating", zap.Int("attempt", attempt))
	}
	return nil, fmt.Errorf("issue booking: %w", lastErr)
}

// build assembles a booking with one check-in per attendee. The primary attendee's check-in
// shares the booking token; every additional attendee gets a token of its own.
func (s *Issuer) build(req Request, leafPoints int, paymentID *uuid.UUID) (*models.Booking, error) {
	token, err := NewToken()
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}
	b := &models.Booking{
		ID:         uuid.NewString(),
		EventID:    req.EventID,
		AccountID:  req.AccountID,
		PaymentID:  paymentID,
		Name:       req.Name,
		Phone:      req.Phone,
		Email:      req.Email,
		Date:       req.Date,
		Pax:        req.Pax,
		PaxNames:   append([]string{}, req.PaxNames...),
		PaxEmails:  append([]string{}, req.PaxEmails...),
		Status:     models.BookingActive,
		QRCodeText: token,
		QRCodeURL:  QRCodeURL(s.qrBaseURL, token),
		LeafPoints: leafPoints,
	}
	accountID := req.AccountID
	b.CheckIns = append(b.CheckIns, models.CheckIn{
		BookingID:     b.ID,
		EventID:       req.EventID,
		AccountID:     &accountID,
		AttendeeName:  req.Name,
		AttendeeEmail: req.Email,
		QRCodeText:    token,
		QRCodeURL:     b.QRCodeURL,
		QRCodeStatus:  models.CheckInNotChecked,
		LeafPoints:    leafPoints,
	})
	for i := range req.PaxNames {
		paxToken, err := NewToken()
		if err != nil {
			return nil, fmt.Errorf("generate token: %w", err)
		}
		b.CheckIns = append(b.CheckIns, models.CheckIn{
			BookingID:     b.ID,
			EventID:       req.EventID,
			AttendeeName:  req.PaxNames[i],
			AttendeeEmail: req.PaxEmails[i],
			QRCodeText:    paxToken,
			QRCodeURL:     QRCodeURL(s.qrBaseURL, paxToken),
			QRCodeStatus:  models.CheckInNotChecked,
			LeafPoints:    leafPoints,
		})
	}
	return b, nil
}
