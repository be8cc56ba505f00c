package reviews

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ecohaven/backend/internal/middleware"
	"github.com/ecohaven/backend/internal/models"
	"github.com/ecohaven/backend/pkg/response"
)

// Store is the review persistence used by Handler.
type Store interface {
	Create(ctx context.Context, rv *models.Review) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Review, error)
	List(ctx context.Context, eventID *uuid.UUID) ([]models.Review, error)
	Update(ctx context.Context, rv *models.Review) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// CreateRequest is the body for POST /reviews.
type CreateRequest struct {
	EventID string `json:"event_id" binding:"omitempty,uuid"`
	Rating  int    `json:"rating" binding:"required,min=1,max=5"`
	Comment string `json:"comment" binding:"max=2000"`
}

// UpdateRequest is the body for PUT /reviews/:id.
type UpdateRequest struct {
	Rating  int    `json:"rating" binding:"required,min=1,max=5"`
	Comment string `json:"comment" binding:"max=2000"`
}

// Handler handles review HTTP endpoints.
type Handler struct {
	repo   Store
	logger *zap.Logger
}

// NewHandler creates a review handler.
func NewHandler(repo Store, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, logger: logger}
}

func (h *Handler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrReviewNotFound), errors.Is(err, ErrEventNotFound):
		response.NotFound(c, err.Error())
	default:
		h.logger.Error("review operation failed", zap.Error(err))
		response.Internal(c, "request could not be processed")
	}
}

// List handles GET /reviews. Optional ?event_id=.
func (h *Handler) List(c *gin.Context) {
	var eventID *uuid.UUID
	if v := c.Query("event_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			response.BadRequest(c, "invalid event_id")
			return
		}
		eventID = &id
	}
	list, err := h.repo.List(c.Request.Context(), eventID)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, list)
}

// Create handles POST /reviews. The reviewer's name comes from the session.
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	s := middleware.CurrentSession(c)
	rv := &models.Review{AccountID: s.AccountID, Name: s.Name, Rating: req.Rating, Comment: req.Comment}
	if req.EventID != "" {
		id := uuid.MustParse(req.EventID)
		rv.EventID = &id
	}
	if err := h.repo.Create(c.Request.Context(), rv); err != nil {
		h.fail(c, err)
		return
	}
	response.Created(c, rv)
}

// owned loads the review at :id and checks the caller may change it.
func (h *Handler) owned(c *gin.Context) (*models.Review, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid review id")
		return nil, false
	}
	rv, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return nil, false
	}
	s := middleware.CurrentSession(c)
	if rv.AccountID != s.AccountID && !s.IsStaff() {
		response.Forbidden(c, "not your review")
		return nil, false
	}
	return rv, true
}

// Update handles PUT /reviews/:id (owner or staff).
func (h *Handler) Update(c *gin.Context) {
	rv, ok := h.owned(c)
	if !ok {
		return
	}
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	rv.Rating = req.Rating
	rv.Comment = req.Comment
	if err := h.repo.Update(c.Request.Context(), rv); err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, rv)
}

// Delete handles DELETE /reviews/:id (owner or staff).
func (h *Handler) Delete(c *gin.Context) {
	rv, ok := h.owned(c)
	if !ok {
		return
	}
	if err := h.repo.Delete(c.Request.Context(), rv.ID); err != nil {
		h.fail(c, err)
		return
	}
	response.NoContent(c)
}
