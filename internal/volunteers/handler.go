package volunteers

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ecohaven/backend/internal/models"
	"github.com/ecohaven/backend/pkg/response"
)

// Store is the volunteer persistence used by Handler.
type Store interface {
	Create(ctx context.Context, v *models.Volunteer) error
	List(ctx context.Context) ([]models.Volunteer, error)
	Update(ctx context.Context, v *models.Volunteer) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// Request is the body for POST /volunteer and PUT /volunteer/:id. Availability is YYYY-MM-DD.
type Request struct {
	Name         string   `json:"name" binding:"required"`
	Email        string   `json:"email" binding:"required,email"`
	Phone        string   `json:"phone" binding:"required,digits8"`
	Interests    []string `json:"interests" binding:"required,min=1,dive,required"`
	Availability string   `json:"availability" binding:"required"`
}

func (req Request) volunteer() (*models.Volunteer, error) {
	day, err := time.Parse(models.DateLayout, req.Availability)
	if err != nil {
		return nil, errors.New("invalid availability date")
	}
	interests := make([]string, 0, len(req.Interests))
	for _, s := range req.Interests {
		interests = append(interests, strings.TrimSpace(s))
	}
	return &models.Volunteer{
		Name:         strings.TrimSpace(req.Name),
		Email:        strings.TrimSpace(req.Email),
		Phone:        req.Phone,
		Interests:    interests,
		Availability: day,
	}, nil
}

// Handler handles volunteer HTTP endpoints.
type Handler struct {
	repo   Store
	logger *zap.Logger
}

// NewHandler creates a volunteer handler.
func NewHandler(repo Store, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, logger: logger}
}

func (h *Handler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrVolunteerNotFound):
		response.NotFound(c, err.Error())
	case errors.Is(err, ErrDuplicateEmail):
		response.Conflict(c, err.Error())
	default:
		h.logger.Error("volunteer operation failed", zap.Error(err))
		response.Internal(c, "request could not be processed")
	}
}

// SignUp handles POST /volunteer.
func (h *Handler) SignUp(c *gin.Context) {
	var req Request
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	v, err := req.volunteer()
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if err := h.repo.Create(c.Request.Context(), v); err != nil {
		h.fail(c, err)
		return
	}
	h.logger.Info("volunteer signed up", zap.String("volunteer_id", v.ID.String()))
	response.Created(c, v)
}

// List handles GET /volunteer/getvolunteer (staff).
func (h *Handler) List(c *gin.Context) {
	list, err := h.repo.List(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, list)
}

// Update handles PUT /volunteer/:id (staff).
func (h *Handler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid volunteer id")
		return
	}
	var req Request
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	v, err := req.volunteer()
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	v.ID = id
	if err := h.repo.Update(c.Request.Context(), v); err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, v)
}

// Delete handles DELETE /volunteer/:id (staff).
func (h *Handler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid volunteer id")
		return
	}
	if err := h.repo.Delete(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	response.NoContent(c)
}
