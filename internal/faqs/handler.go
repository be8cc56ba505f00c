package faqs

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ecohaven/backend/internal/models"
	"github.com/ecohaven/backend/pkg/response"
)

// Store is the FAQ persistence used by Handler.
type Store interface {
	Create(ctx context.Context, f *models.FAQ) error
	List(ctx context.Context) ([]models.FAQ, error)
	Update(ctx context.Context, f *models.FAQ) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// Request is the body for POST /faqs and PUT /faqs/:id.
type Request struct {
	Question  string `json:"question" binding:"required"`
	Answer    string `json:"answer" binding:"required"`
	SortOrder int    `json:"sort_order"`
}

// Handler handles FAQ HTTP endpoints.
type Handler struct {
	repo   Store
	logger *zap.Logger
}

// NewHandler creates a FAQ handler.
func NewHandler(repo Store, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, logger: logger}
}

func (h *Handler) fail(c *gin.Context, err error) {
	if errors.Is(err, ErrFAQNotFound) {
		response.NotFound(c, err.Error())
		return
	}
	h.logger.Error("faq operation failed", zap.Error(err))
	response.Internal(c, "request could not be processed")
}

// List handles GET /faqs.
func (h *Handler) List(c *gin.Context) {
	list, err := h.repo.List(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, list)
}

// Create handles POST /faqs (staff).
func (h *Handler) Create(c *gin.Context) {
	var req Request
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	f := &models.FAQ{Question: req.Question, Answer: req.Answer, SortOrder: req.SortOrder}
	if err := h.repo.Create(c.Request.Context(), f); err != nil {
		h.fail(c, err)
		return
	}
	response.Created(c, f)
}

// Update handles PUT /faqs/:id (staff).
func (h *Handler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid faq id")
		return
	}
	var req Request
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	f := &models.FAQ{ID: id, Question: req.Question, Answer: req.Answer, SortOrder: req.SortOrder}
	if err := h.repo.Update(c.Request.Context(), f); err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, f)
}

// Delete handles DELETE /faqs/:id (staff).
func (h *Handler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid faq id")
		return
	}
	if err := h.repo.Delete(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	response.NoContent(c)
}
