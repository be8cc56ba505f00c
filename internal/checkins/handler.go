package checkins

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ecohaven/backend/internal/middleware"
	"github.com/ecohaven/backend/pkg/response"
)

// CheckInRequest is the body for POST /api/checkins.
type CheckInRequest struct {
	Token string `json:"token" binding:"required"`
}

// Handler handles check-in HTTP endpoints. All routes are staff only.
type Handler struct {
	validator *Validator
	logger    *zap.Logger
}

// NewHandler creates a check-in handler.
func NewHandler(validator *Validator, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{validator: validator, logger: logger}
}

func (h *Handler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrEmptyToken):
		response.BadRequest(c, err.Error())
	case errors.Is(err, ErrTokenNotFound):
		response.NotFound(c, err.Error())
	case errors.Is(err, ErrAlreadyCheckedIn), errors.Is(err, ErrBookingCancelled):
		response.Conflict(c, err.Error())
	default:
		h.logger.Error("check-in failed", zap.Error(err))
		response.Internal(c, "check-in could not be processed")
	}
}

// CheckIn handles POST /api/checkins.
func (h *Handler) CheckIn(c *gin.Context) {
	var req CheckInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	ci, err := h.validator.CheckIn(c.Request.Context(), req.Token, middleware.CurrentSession(c).AccountID)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, ci)
}

// Preview handles GET /api/checkins/:token.
func (h *Handler) Preview(c *gin.Context) {
	p, err := h.validator.Preview(c.Request.Context(), c.Param("token"))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, p)
}

// ListByEvent handles GET /api/events/:id/checkins.
func (h *Handler) ListByEvent(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	list, err := h.validator.ListByEvent(c.Request.Context(), eventID)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, list)
}
