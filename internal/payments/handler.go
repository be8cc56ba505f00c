package payments

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ecohaven/backend/internal/bookings"
	"github.com/ecohaven/backend/internal/middleware"
	"github.com/ecohaven/backend/pkg/response"
	"github.com/ecohaven/backend/pkg/validation"
)

// Handler handles payment HTTP endpoints.
type Handler struct {
	processor *Processor
	store     Store
	logger    *zap.Logger
}

// NewHandler creates a payment handler.
func NewHandler(processor *Processor, store Store, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{processor: processor, store: store, logger: logger}
}

// Pay handles POST /pay. Invalid forms answer 422 with per-field messages.
func (h *Handler) Pay(c *gin.Context) {
	var form Form
	if err := c.ShouldBindJSON(&form); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	s := middleware.CurrentSession(c)
	res, err := h.processor.Pay(c.Request.Context(), s.AccountID, form)
	if err != nil {
		var fields validation.Errors
		switch {
		case errors.As(err, &fields):
			response.Invalid(c, fields)
		case errors.Is(err, bookings.ErrPendingNotFound):
			response.NotFound(c, err.Error())
		case errors.Is(err, ErrAlreadyPaid):
			response.Conflict(c, ErrAlreadyPaid.Error())
		default:
			h.logger.Error("payment failed", zap.String("pending_id", form.PendingID), zap.Error(err))
			response.Internal(c, "payment could not be processed")
		}
		return
	}
	response.Created(c, res)
}

// Mine handles GET /api/payments/mine.
func (h *Handler) Mine(c *gin.Context) {
	s := middleware.CurrentSession(c)
	list, err := h.store.ListByAccount(c.Request.Context(), s.AccountID)
	if err != nil {
		response.Internal(c, "failed to list payments")
		return
	}
	response.OK(c, list)
}

// List handles GET /api/payments (staff).
func (h *Handler) List(c *gin.Context) {
	list, err := h.store.List(c.Request.Context())
	if err != nil {
		response.Internal(c, "failed to list payments")
		return
	}
	response.OK(c, list)
}

// GetByID handles GET /api/payments/:id (owner or staff).
func (h *Handler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid payment id")
		return
	}
	p, err := h.store.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, ErrPaymentNotFound) {
			response.NotFound(c, err.Error())
			return
		}
		response.Internal(c, "failed to load payment")
		return
	}
	s := middleware.CurrentSession(c)
	if p.AccountID != s.AccountID && !s.IsStaff() {
		response.Forbidden(c, "not your payment")
		return
	}
	response.OK(c, p)
}
