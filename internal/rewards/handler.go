package rewards

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ecohaven/backend/internal/middleware"
	"github.com/ecohaven/backend/internal/models"
	"github.com/ecohaven/backend/pkg/response"
	"github.com/ecohaven/backend/pkg/storage"
)

// ProductRequest is the body for POST /eco/products and PUT /eco/products/:id.
type ProductRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	LeafCost    int    `json:"leaf_cost" binding:"required,gt=0"`
	Stock       int    `json:"stock" binding:"gte=0"`
}

func (req ProductRequest) apply(p *models.Product) {
	p.Name = req.Name
	p.Description = req.Description
	p.LeafCost = req.LeafCost
	p.Stock = req.Stock
}

// RedeemRequest is the body for POST /eco/redeem.
type RedeemRequest struct {
	ProductID string `json:"product_id" binding:"required,uuid"`
	Quantity  int    `json:"quantity" binding:"required,min=1,max=100"`
}

// ImageURL is the public path serving a product's image.
func ImageURL(id uuid.UUID) string {
	return "/eco/product-image/" + id.String()
}

func withImage(p *models.Product) *models.Product {
	if p.ImageKey != "" {
		p.ImageURL = ImageURL(p.ID)
	}
	return p
}

// Handler handles reward shop HTTP endpoints.
type Handler struct {
	svc      *Service
	repo     Store
	store    storage.Store
	maxBytes int64
	logger   *zap.Logger
}

// NewHandler creates a rewards handler. store holds product images.
func NewHandler(svc *Service, repo Store, store storage.Store, maxBytes int64, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, repo: repo, store: store, maxBytes: maxBytes, logger: logger}
}

func (h *Handler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrProductNotFound), errors.Is(err, ErrCollectionNotFound):
		response.NotFound(c, err.Error())
	case errors.Is(err, ErrOutOfStock), errors.Is(err, ErrInsufficientPoints),
		errors.Is(err, ErrAlreadyCollected), errors.Is(err, ErrProductInUse):
		response.Conflict(c, err.Error())
	case errors.Is(err, ErrInvalidQuantity):
		response.BadRequest(c, err.Error())
	default:
		h.logger.Error("rewards operation failed", zap.Error(err))
		response.Internal(c, "request could not be processed")
	}
}

func productID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid product id")
		return uuid.Nil, false
	}
	return id, true
}

// ListProducts handles GET /eco/products.
func (h *Handler) ListProducts(c *gin.Context) {
	list, err := h.repo.ListProducts(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	for i := range list {
		withImage(&list[i])
	}
	response.OK(c, list)
}

// GetProduct handles GET /eco/products/:id.
func (h *Handler) GetProduct(c *gin.Context) {
	id, ok := productID(c)
	if !ok {
		return
	}
	p, err := h.repo.GetProduct(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, withImage(p))
}

// CreateProduct handles POST /eco/products (staff).
func (h *Handler) CreateProduct(c *gin.Context) {
	var req ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	p := &models.Product{}
	req.apply(p)
	if err := h.repo.CreateProduct(c.Request.Context(), p); err != nil {
		h.fail(c, err)
		return
	}
	response.Created(c, p)
}

// UpdateProduct handles PUT /eco/products/:id (staff).
func (h *Handler) UpdateProduct(c *gin.Context) {
	id, ok := productID(c)
	if !ok {
		return
	}
	var req ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	p, err := h.repo.GetProduct(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	req.apply(p)
	if err := h.repo.UpdateProduct(c.Request.Context(), p); err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, withImage(p))
}

// DeleteProduct handles DELETE /eco/products/:id (staff).
func (h *Handler) DeleteProduct(c *gin.Context) {
	id, ok := productID(c)
	if !ok {
		return
	}
	p, err := h.repo.GetProduct(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	if err := h.repo.DeleteProduct(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	if p.ImageKey != "" {
		if err := h.store.Delete(c.Request.Context(), p.ImageKey); err != nil {
			h.logger.Warn("delete product image failed", zap.String("key", p.ImageKey), zap.Error(err))
		}
	}
	response.NoContent(c)
}

// UploadImage handles POST /eco/products/:id/image (staff), multipart field "image".
func (h *Handler) UploadImage(c *gin.Context) {
	id, ok := productID(c)
	if !ok {
		return
	}
	if _, err := h.repo.GetProduct(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	fh, err := c.FormFile("image")
	if err != nil {
		response.BadRequest(c, "missing file (form field: image)")
		return
	}
	key, err := storage.SaveImage(c.Request.Context(), h.store, storage.FolderProducts, id.String(), fh, h.maxBytes)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrTooLarge):
			response.TooLarge(c, err.Error())
		case errors.Is(err, storage.ErrInvalidImage):
			response.BadRequest(c, err.Error())
		default:
			h.logger.Error("save product image failed", zap.String("product_id", id.String()), zap.Error(err))
			response.Internal(c, "failed to save image")
		}
		return
	}
	prev, err := h.repo.SetProductImage(c.Request.Context(), id, key)
	if err != nil {
		_ = h.store.Delete(c.Request.Context(), key)
		h.fail(c, err)
		return
	}
	if prev != "" && prev != key {
		if err := h.store.Delete(c.Request.Context(), prev); err != nil {
			h.logger.Warn("delete old product image failed", zap.String("key", prev), zap.Error(err))
		}
	}
	response.OK(c, gin.H{"image_url": ImageURL(id)})
}

// Image handles GET /eco/product-image/:id.
func (h *Handler) Image(c *gin.Context) {
	id, ok := productID(c)
	if !ok {
		return
	}
	p, err := h.repo.GetProduct(c.Request.Context(), id)
	if err != nil || p.ImageKey == "" {
		response.NotFound(c, "image not found")
		return
	}
	body, contentType, err := h.store.Open(c.Request.Context(), p.ImageKey)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			response.NotFound(c, "image not found")
			return
		}
		h.logger.Error("open product image failed", zap.String("key", p.ImageKey), zap.Error(err))
		response.Internal(c, "failed to load image")
		return
	}
	defer body.Close()
	response.Stream(c, contentType, body)
}

// Redeem handles POST /eco/redeem.
func (h *Handler) Redeem(c *gin.Context) {
	var req RedeemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	s := middleware.CurrentSession(c)
	out, err := h.svc.Redeem(c.Request.Context(), s.AccountID, s.Email, uuid.MustParse(req.ProductID), req.Quantity)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Created(c, out)
}

// MyCollections handles GET /eco/collections/mine.
func (h *Handler) MyCollections(c *gin.Context) {
	list, err := h.repo.ListCollectionsByAccount(c.Request.Context(), middleware.CurrentSession(c).AccountID)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, list)
}

// Collections handles GET /eco/collections (staff). Optional ?status=Pending|Collected.
func (h *Handler) Collections(c *gin.Context) {
	status := c.Query("status")
	if status != "" && status != models.CollectPending && status != models.CollectCollected {
		response.BadRequest(c, "invalid status")
		return
	}
	list, err := h.repo.ListCollections(c.Request.Context(), status)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, list)
}

// MarkCollected handles PATCH /eco/collections/:id/collected (staff).
func (h *Handler) MarkCollected(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid collection id")
		return
	}
	out, err := h.svc.MarkCollected(c.Request.Context(), id, middleware.CurrentSession(c).AccountID)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, out)
}
