package dashboard

import (
	"context"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ecohaven/backend/pkg/redis"
	"github.com/ecohaven/backend/pkg/response"
)

const (
	cachePrefix   = "dash:"
	defaultMonths = 12
	maxMonths     = 36
)

// Stats runs the aggregate queries behind the dashboard.
type Stats interface {
	Summary(ctx context.Context) (*Summary, error)
	Events(ctx context.Context) ([]EventStats, error)
	Revenue(ctx context.Context, months int) ([]RevenueMonth, error)
}

// Handler serves the staff dashboard. Results are cached in Redis for ttl.
type Handler struct {
	stats  Stats
	cache  *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewHandler creates a dashboard handler. cache may be nil to disable caching.
func NewHandler(stats Stats, cache *redis.Client, ttl time.Duration, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{stats: stats, cache: cache, ttl: ttl, logger: logger}
}

func cached[T any](ctx context.Context, h *Handler, key string, fn func() (T, error)) (T, error) {
	if h.cache == nil || h.ttl <= 0 {
		return fn()
	}
	return redis.GetOrSet(ctx, h.cache, cachePrefix+key, h.ttl, fn)
}

// Summary handles GET /dash/summary.
func (h *Handler) Summary(c *gin.Context) {
	ctx := c.Request.Context()
	out, err := cached(ctx, h, "summary", func() (*Summary, error) { return h.stats.Summary(ctx) })
	if err != nil {
		h.logger.Error("dashboard summary failed", zap.Error(err))
		response.Internal(c, "failed to load summary")
		return
	}
	response.OK(c, out)
}

// Events handles GET /dash/events.
func (h *Handler) Events(c *gin.Context) {
	ctx := c.Request.Context()
	out, err := cached(ctx, h, "events", func() ([]EventStats, error) { return h.stats.Events(ctx) })
	if err != nil {
		h.logger.Error("dashboard events failed", zap.Error(err))
		response.Internal(c, "failed to load event stats")
		return
	}
	response.OK(c, out)
}

// Revenue handles GET /dash/revenue. Optional ?months= (1-36, default 12).
func (h *Handler) Revenue(c *gin.Context) {
	months := defaultMonths
	if v := c.Query("months"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxMonths {
			response.BadRequest(c, "months must be between 1 and 36")
			return
		}
		months = n
	}
	ctx := c.Request.Context()
	out, err := cached(ctx, h, "revenue:"+strconv.Itoa(months), func() ([]RevenueMonth, error) {
		return h.stats.Revenue(ctx, months)
	})
	if err != nil {
		h.logger.Error("dashboard revenue failed", zap.Error(err))
		response.Internal(c, "failed to load revenue")
		return
	}
	response.OK(c, out)
}
