package emaillogs

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ecohaven/backend/internal/models"
	"github.com/ecohaven/backend/pkg/response"
)

// Store is the email log query surface used by Handler.
type Store interface {
	List(ctx context.Context, f Filter) ([]*models.EmailLog, error)
	CountByStatus(ctx context.Context) ([]StatusCount, error)
}

// Overview is the body of GET /dash/emails.
type Overview struct {
	Counts []StatusCount      `json:"counts"`
	Logs   []*models.EmailLog `json:"logs"`
}

// Handler handles email log HTTP endpoints.
type Handler struct {
	repo   Store
	logger *zap.Logger
}

// NewHandler creates an email logs handler.
func NewHandler(repo Store, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, logger: logger}
}

// List handles GET /dash/emails (staff). Optional ?status=, ?reference= and ?limit=.
func (h *Handler) List(c *gin.Context) {
	f := Filter{Status: c.Query("status"), Reference: c.Query("reference")}
	switch f.Status {
	case "", models.EmailLogStatusPending, models.EmailLogStatusSent, models.EmailLogStatusFailed:
	default:
		response.BadRequest(c, "invalid status")
		return
	}
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			response.BadRequest(c, "invalid limit")
			return
		}
		f.Limit = n
	}
	ctx := c.Request.Context()
	counts, err := h.repo.CountByStatus(ctx)
	if err != nil {
		h.logger.Error("count email logs failed", zap.Error(err))
		response.Internal(c, "failed to load email logs")
		return
	}
	logs, err := h.repo.List(ctx, f)
	if err != nil {
		h.logger.Error("list email logs failed", zap.Error(err))
		response.Internal(c, "failed to load email logs")
		return
	}
	response.OK(c, Overview{Counts: counts, Logs: logs})
}
