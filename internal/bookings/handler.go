package bookings

import (
	"context"
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ecohaven/backend/internal/middleware"
	"github.com/ecohaven/backend/internal/models"
	"github.com/ecohaven/backend/pkg/response"
)

// BookingStore reads and cancels bookings.
type BookingStore interface {
	GetByID(ctx context.Context, id string) (*models.Booking, error)
	ListByAccount(ctx context.Context, accountID uuid.UUID) ([]*models.Booking, error)
	ListByEvent(ctx context.Context, eventID uuid.UUID) ([]*models.Booking, error)
	Cancel(ctx context.Context, id string) error
}

// CreateRequest is the body for POST /api/bookings. Pax counts the primary attendee;
// pax_names and pax_emails list the others.
type CreateRequest struct {
	EventID   string   `json:"event_id" binding:"required,uuid"`
	Name      string   `json:"name" binding:"required"`
	Phone     string   `json:"phone" binding:"required,digits8"`
	Email     string   `json:"email" binding:"required,email"`
	Date      string   `json:"date" binding:"required"`
	Pax       int      `json:"pax" binding:"required,min=1,max=20"`
	PaxNames  []string `json:"pax_names"`
	PaxEmails []string `json:"pax_emails" binding:"omitempty,dive,email"`
}

// PendingResponse is returned for paid events: the client continues with POST /pay.
type PendingResponse struct {
	PendingID   string    `json:"pending_id"`
	EventName   string    `json:"event_name"`
	AmountCents int       `json:"amount_cents"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// SendEmailRequest is the body for POST /send-email.
type SendEmailRequest struct {
	BookingID string `json:"booking_id" binding:"required"`
}

// Handler handles booking HTTP endpoints.
type Handler struct {
	issuer   *Issuer
	repo     BookingStore
	events   EventLookup
	notifier *Notifier
	logger   *zap.Logger
}

// NewHandler creates a booking handler.
func NewHandler(issuer *Issuer, repo BookingStore, ev EventLookup, notifier *Notifier, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{issuer: issuer, repo: repo, events: ev, notifier: notifier, logger: logger}
}

// Create handles POST /api/bookings. Free events answer 201 with the booking,
// paid events 202 with the pending booking to pay for.
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	date, err := time.Parse(models.DateLayout, req.Date)
	if err != nil {
		response.BadRequest(c, "invalid date")
		return
	}
	s := middleware.CurrentSession(c)
	res, err := h.issuer.Issue(c.Request.Context(), Request{
		EventID:   uuid.MustParse(req.EventID),
		AccountID: s.AccountID,
		Name:      req.Name,
		Phone:     req.Phone,
		Email:     req.Email,
		Date:      date,
		Pax:       req.Pax,
		PaxNames:  req.PaxNames,
		PaxEmails: req.PaxEmails,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrEventNotFound):
			response.NotFound(c, err.Error())
		case errors.Is(err, ErrInvalidPax), errors.Is(err, ErrDateOutOfRange):
			response.BadRequest(c, err.Error())
		default:
			h.logger.Error("issue booking failed", zap.String("event_id", req.EventID), zap.Error(err))
			response.Internal(c, "failed to create booking")
		}
		return
	}
	if res.Pending != nil {
		response.Accepted(c, PendingResponse{
			PendingID:   res.Pending.ID,
			EventName:   res.Pending.EventName,
			AmountCents: res.Pending.AmountCents,
			ExpiresAt:   res.Pending.ExpiresAt,
		})
		return
	}
	response.Created(c, res.Booking)
}

// Mine handles GET /api/bookings/mine.
func (h *Handler) Mine(c *gin.Context) {
	s := middleware.CurrentSession(c)
	list, err := h.repo.ListByAccount(c.Request.Context(), s.AccountID)
	if err != nil {
		response.Internal(c, "failed to list bookings")
		return
	}
	response.OK(c, list)
}

// load returns the booking if the caller owns it or is staff.
func (h *Handler) load(c *gin.Context, id string) (*models.Booking, bool) {
	b, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, ErrBookingNotFound) {
			response.NotFound(c, "booking not found")
			return nil, false
		}
		response.Internal(c, "failed to load booking")
		return nil, false
	}
	s := middleware.CurrentSession(c)
	if b.AccountID != s.AccountID && !s.IsStaff() {
		response.Forbidden(c, "not your booking")
		return nil, false
	}
	return b, true
}

// GetByID handles GET /api/bookings/:id (owner or staff).
func (h *Handler) GetByID(c *gin.Context) {
	b, ok := h.load(c, c.Param("id"))
	if !ok {
		return
	}
	response.OK(c, b)
}

// Cancel handles POST /api/bookings/:id/cancel (owner).
func (h *Handler) Cancel(c *gin.Context) {
	b, ok := h.load(c, c.Param("id"))
	if !ok {
		return
	}
	s := middleware.CurrentSession(c)
	if b.AccountID != s.AccountID {
		response.Forbidden(c, "only the booker can cancel a booking")
		return
	}
	if b.PaymentID != nil {
		response.Conflict(c, "paid bookings are cancelled through a refund request")
		return
	}
	if err := h.repo.Cancel(c.Request.Context(), b.ID); err != nil {
		switch {
		case errors.Is(err, ErrNotActive):
			response.Conflict(c, err.Error())
		case errors.Is(err, ErrBookingNotFound):
			response.NotFound(c, "booking not found")
		default:
			response.Internal(c, "failed to cancel booking")
		}
		return
	}
	h.logger.Info("booking cancelled", zap.String("booking_id", b.ID))
	b.Status = models.BookingCancelled
	response.OK(c, b)
}

// ListByEvent handles GET /api/events/:id/bookings (staff).
func (h *Handler) ListByEvent(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	list, err := h.repo.ListByEvent(c.Request.Context(), eventID)
	if err != nil {
		response.Internal(c, "failed to list bookings")
		return
	}
	response.OK(c, list)
}

// SendEmail handles POST /send-email: queues the confirmation email again (owner or staff).
func (h *Handler) SendEmail(c *gin.Context) {
	var req SendEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	b, ok := h.load(c, req.BookingID)
	if !ok {
		return
	}
	if b.Status != models.BookingActive {
		response.Conflict(c, ErrNotActive.Error())
		return
	}
	ev, err := h.events.GetByID(c.Request.Context(), b.EventID)
	if err != nil {
		response.NotFound(c, "event not found")
		return
	}
	h.notifier.Confirmation(c.Request.Context(), b, ev.Name, ev.Location, ev.Time)
	response.Accepted(c, gin.H{"booking_id": b.ID, "email": b.Email})
}
