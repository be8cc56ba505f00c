package events

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
	"github.com/ecohaven/backend/pkg/storage"
)

var ErrInvalidDateRange = errors.New("end_date must not be before start_date")

// EventStore is the event persistence used by Handler.
type EventStore interface {
	Create(ctx context.Context, e *models.Event) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error)
	List(ctx context.Context, f Filter) ([]models.Event, error)
	Update(ctx context.Context, e *models.Event) error
	SetPicture(ctx context.Context, id uuid.UUID, key string) (string, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// EventRequest is the body for POST /api/events and PUT /api/events/:id. Dates are YYYY-MM-DD.
type EventRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	Category    string `json:"category" binding:"required,oneof=recycling upcycling workshop garden-walk"`
	Location    string `json:"location" binding:"required"`
	StartDate   string `json:"start_date" binding:"required"`
	EndDate     string `json:"end_date" binding:"required"`
	Time        string `json:"time"`
	Status      string `json:"status" binding:"required,oneof=Free Paid"`
	AmountCents int    `json:"amount_cents" binding:"gte=0"`
	LeafPoints  int    `json:"leaf_points" binding:"gte=0"`
	Organiser   string `json:"organiser"`
}

// apply validates req and copies it onto e.
func (req EventRequest) apply(e *models.Event) error {
	start, err := time.Parse(models.DateLayout, req.StartDate)
	if err != nil {
		return errors.New("invalid start_date")
	}
	end, err := time.Parse(models.DateLayout, req.EndDate)
	if err != nil {
		return errors.New("invalid end_date")
	}
	if end.Before(start) {
		return ErrInvalidDateRange
	}
	status := models.EventStatus(req.Status)
	amount := req.AmountCents
	if status == models.EventPaid && amount <= 0 {
		return errors.New("amount_cents must be greater than 0 for paid events")
	}
	if status == models.EventFree {
		amount = 0
	}
	e.Name = req.Name
	e.Description = req.Description
	e.Category = models.EventCategory(req.Category)
	e.Location = req.Location
	e.StartDate = start
	e.EndDate = end
	e.Time = req.Time
	e.Status = status
	e.AmountCents = amount
	e.LeafPoints = req.LeafPoints
	e.Organiser = req.Organiser
	return nil
}

// PictureURL is the public path serving an event's picture.
func PictureURL(id uuid.UUID) string {
	return "/api/event-picture/" + id.String()
}

func withPicture(e *models.Event) *models.Event {
	if e.PictureKey != "" {
		e.PictureURL = PictureURL(e.ID)
	}
	return e
}

// Handler handles event HTTP endpoints.
type Handler struct {
	repo     EventStore
	store    storage.Store
	maxBytes int64
	logger   *zap.Logger
}

// NewHandler creates an event handler. store holds event pictures.
func NewHandler(repo EventStore, store storage.Store, maxBytes int64, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, store: store, maxBytes: maxBytes, logger: logger}
}

// List handles GET /api/events. Optional ?category= and ?status= filters.
func (h *Handler) List(c *gin.Context) {
	f := Filter{
		Category: models.EventCategory(c.Query("category")),
		Status:   models.EventStatus(c.Query("status")),
	}
	list, err := h.repo.List(c.Request.Context(), f)
	if err != nil {
		h.logger.Error("list events failed", zap.Error(err))
		response.Internal(c, "failed to list events")
		return
	}
	for i := range list {
		withPicture(&list[i])
	}
	response.OK(c, list)
}

// GetByID handles GET /api/events/:id.
func (h *Handler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	e, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		response.NotFound(c, "event not found")
		return
	}
	response.OK(c, withPicture(e))
}

// Create handles POST /api/events (staff).
func (h *Handler) Create(c *gin.Context) {
	var req EventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	e := &models.Event{}
	if err := req.apply(e); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	s := middleware.CurrentSession(c)
	e.CreatedBy = &s.AccountID
	if err := h.repo.Create(c.Request.Context(), e); err != nil {
		h.logger.Error("create event failed", zap.Error(err))
		response.Internal(c, "failed to create event")
		return
	}
	h.logger.Info("event created", zap.String("event_id", e.ID.String()), zap.String("by", s.AccountID.String()))
	response.Created(c, e)
}

// Update handles PUT /api/events/:id (staff).
func (h *Handler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	var req EventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	e, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		response.NotFound(c, "event not found")
		return
	}
	if err := req.apply(e); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if err := h.repo.Update(c.Request.Context(), e); err != nil {
		if errors.Is(err, ErrEventNotFound) {
			response.NotFound(c, "event not found")
			return
		}
		response.Internal(c, "failed to update event")
		return
	}
	response.OK(c, withPicture(e))
}

// Delete handles DELETE /api/events/:id (staff). Events with bookings cannot be deleted.
func (h *Handler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	e, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		response.NotFound(c, "event not found")
		return
	}
	if err := h.repo.Delete(c.Request.Context(), id); err != nil {
		switch {
		case errors.Is(err, ErrEventNotFound):
			response.NotFound(c, "event not found")
		case errors.Is(err, ErrEventInUse):
			response.Conflict(c, err.Error())
		default:
			response.Internal(c, "failed to delete event")
		}
		return
	}
	if e.PictureKey != "" {
		if err := h.store.Delete(c.Request.Context(), e.PictureKey); err != nil {
			h.logger.Warn("delete event picture failed", zap.String("key", e.PictureKey), zap.Error(err))
		}
	}
	response.NoContent(c)
}

// UploadPicture handles POST /api/events/:id/picture (staff), multipart field "picture".
func (h *Handler) UploadPicture(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	if _, err := h.repo.GetByID(c.Request.Context(), id); err != nil {
		response.NotFound(c, "event not found")
		return
	}
	fh, err := c.FormFile("picture")
	if err != nil {
		response.BadRequest(c, "missing file (form field: picture)")
		return
	}
	key, err := storage.SaveImage(c.Request.Context(), h.store, storage.FolderEvents, id.String(), fh, h.maxBytes)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrTooLarge):
			response.TooLarge(c, err.Error())
		case errors.Is(err, storage.ErrInvalidImage):
			response.BadRequest(c, err.Error())
		default:
			h.logger.Error("save event picture failed", zap.String("event_id", id.String()), zap.Error(err))
			response.Internal(c, "failed to save picture")
		}
		return
	}
	prev, err := h.repo.SetPicture(c.Request.Context(), id, key)
	if err != nil {
		_ = h.store.Delete(c.Request.Context(), key)
		response.Internal(c, "failed to save picture")
		return
	}
	if prev != "" && prev != key {
		if err := h.store.Delete(c.Request.Context(), prev); err != nil {
			h.logger.Warn("delete old event picture failed", zap.String("key", prev), zap.Error(err))
		}
	}
	response.OK(c, gin.H{"picture_url": PictureURL(id)})
}

// Picture handles GET /api/event-picture/:eventId.
func (h *Handler) Picture(c *gin.Context) {
	id, err := uuid.Parse(c.Param("eventId"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	e, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil || e.PictureKey == "" {
		response.NotFound(c, "picture not found")
		return
	}
	servePicture(c, h.store, e.PictureKey, h.logger)
}

// servePicture streams a stored picture with its content type.
func servePicture(c *gin.Context, store storage.Store, key string, logger *zap.Logger) {
	body, contentType, err := store.Open(c.Request.Context(), key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			response.NotFound(c, "picture not found")
			return
		}
		logger.Error("open picture failed", zap.String("key", key), zap.Error(err))
		response.Internal(c, "failed to load picture")
		return
	}
	defer body.Close()
	response.Stream(c, contentType, body)
}
