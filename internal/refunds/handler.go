package refunds

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ecohaven/backend/internal/middleware"
	"github.com/ecohaven/backend/internal/models"
	"github.com/ecohaven/backend/pkg/response"
)

// CreateRequest is the body for POST /api/refunds.
type CreateRequest struct {
	PaymentID string `json:"payment_id" binding:"required,uuid"`
	Name      string `json:"name" binding:"required"`
	Email     string `json:"email" binding:"required,email"`
	Method    string `json:"method" binding:"required"`
	Reason    string `json:"reason" binding:"required"`
}

// DecideRequest is the body for PATCH /api/refunds/:id.
type DecideRequest struct {
	Status string `json:"status" binding:"required,oneof=Approved Rejected"`
}

// Handler handles refund HTTP endpoints.
type Handler struct {
	svc    *Service
	logger *zap.Logger
}

// NewHandler creates a refund handler.
func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, logger: logger}
}

func (h *Handler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrRefundNotFound), errors.Is(err, ErrPaymentNotFound):
		response.NotFound(c, err.Error())
	case errors.Is(err, ErrNotOwner):
		response.Forbidden(c, err.Error())
	case errors.Is(err, ErrDuplicateRequest), errors.Is(err, ErrNotPending), errors.Is(err, ErrPaymentNotPaid):
		response.Conflict(c, err.Error())
	default:
		h.logger.Error("refund operation failed", zap.Error(err))
		response.Internal(c, "refund could not be processed")
	}
}

// Create handles POST /api/refunds.
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	s := middleware.CurrentSession(c)
	r, err := h.svc.Request(c.Request.Context(), s.AccountID, s.IsStaff(), RequestInput{
		PaymentID: uuid.MustParse(req.PaymentID),
		Name:      req.Name,
		Email:     req.Email,
		Method:    req.Method,
		Reason:    req.Reason,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Created(c, r)
}

// Mine handles GET /api/refunds/mine.
func (h *Handler) Mine(c *gin.Context) {
	s := middleware.CurrentSession(c)
	list, err := h.svc.ListByAccount(c.Request.Context(), s.AccountID)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, list)
}

// List handles GET /api/refunds (staff). Optional ?status=Pending|Approved|Rejected.
func (h *Handler) List(c *gin.Context) {
	status := c.Query("status")
	switch status {
	case "", models.RefundPending, models.RefundApproved, models.RefundRejected:
	default:
		response.BadRequest(c, "invalid status")
		return
	}
	list, err := h.svc.List(c.Request.Context(), status)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, list)
}

// Decide handles PATCH /api/refunds/:id (staff).
func (h *Handler) Decide(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid refund id")
		return
	}
	var req DecideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	s := middleware.CurrentSession(c)
	r, err := h.svc.Decide(c.Request.Context(), id, req.Status == models.RefundApproved, s.AccountID)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, r)
}
