package rewards

import (
	"context"
	"errors"
	"fmt"
	"html"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ecohaven/backend/internal/models"
	"github.com/ecohaven/backend/pkg/queue"
	"github.com/ecohaven/backend/pkg/utils"
)

var (
	ErrProductNotFound       = errors.New("product not found")
	ErrProductInUse          = errors.New("product has been redeemed and cannot be deleted")
	ErrOutOfStock            = errors.New("not enough stock")
	ErrInsufficientPoints    = errors.New("not enough leaf points")
	ErrCollectionNotFound    = errors.New("collection not found")
	ErrAlreadyCollected      = errors.New("collection already collected")
	ErrCollectionIDCollision = errors.New("collection id collision")
	ErrInvalidQuantity       = errors.New("quantity must be at least 1")
)

const (
	collectionPrefix  = "ECO-"
	collectionCodeLen = 8
	maxCodeAttempts   = 3
	// DefaultLocation is where redeemed rewards are picked up.
	DefaultLocation = "EcoHaven Community Hub"
)

// Store persists products and collections. Redeem must take stock, debit the balance and insert
// the collection atomically.
type Store interface {
	CreateProduct(ctx context.Context, p *models.Product) error
	GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
	ListProducts(ctx context.Context) ([]models.Product, error)
	UpdateProduct(ctx context.Context, p *models.Product) error
	SetProductImage(ctx context.Context, id uuid.UUID, key string) (string, error)
	DeleteProduct(ctx context.Context, id uuid.UUID) error
	Redeem(ctx context.Context, c *models.CollectInformation) (int, error)
	ListCollections(ctx context.Context, status string) ([]models.CollectInformation, error)
	ListCollectionsByAccount(ctx context.Context, accountID uuid.UUID) ([]models.CollectInformation, error)
	MarkCollected(ctx context.Context, id uuid.UUID) (*models.CollectInformation, error)
}

// EmailQueue enqueues transactional emails.
type EmailQueue interface {
	EnqueueEmail(ctx context.Context, payload queue.EmailPayload) error
}

// Redemption is the outcome of a successful redeem.
type Redemption struct {
	Collection *models.CollectInformation `json:"collection"`
	LeafPoints int                        `json:"leaf_points"`
}

// Service redeems leaf points for products.
type Service struct {
	store  Store
	emails EmailQueue
	logger *zap.Logger
}

// NewService creates a rewards service.
func NewService(store Store, emails EmailQueue, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, emails: emails, logger: logger}
}

// NewCollectionID returns a fresh pickup code such as ECO-7KQ2M4XA.
func NewCollectionID() (string, error) {
	code, err := utils.RandomCode(collectionCodeLen)
	if err != nil {
		return "", err
	}
	return collectionPrefix + code, nil
}

// Redeem exchanges quantity units of a product for leaf points and emails the pickup code to email.
func (s *Service) Redeem(ctx context.Context, accountID uuid.UUID, email string, productID uuid.UUID, quantity int) (*Redemption, error) {
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}
	var (
		c       *models.CollectInformation
		balance int
	)
	for attempt := 1; ; attempt++ {
		id, err := NewCollectionID()
		if err != nil {
			return nil, fmt.Errorf("collection id: %w", err)
		}
		c = &models.CollectInformation{
			AccountID:    accountID,
			ProductID:    productID,
			Quantity:     quantity,
			CollectionID: id,
			Location:     DefaultLocation,
		}
		balance, err = s.store.Redeem(ctx, c)
		if err == nil {
			break
		}
		if !errors.Is(err, ErrCollectionIDCollision) || attempt == maxCodeAttempts {
			return nil, err
		}
		s.logger.Warn("collection id collision, retrying", zap.Int("attempt", attempt))
	}
	s.logger.Info("reward redeemed",
		zap.String("collection_id", c.CollectionID),
		zap.String("account_id", accountID.String()),
		zap.Int("leaf_points", c.LeafPoints),
	)

	body := fmt.Sprintf("<p>You redeemed %d x %s for %d leaf points.</p><p>Show <strong>%s</strong> at %s to collect it.</p>",
		c.Quantity, html.EscapeString(c.ProductName), c.LeafPoints, c.CollectionID, html.EscapeString(c.Location))
	if err := s.emails.EnqueueEmail(ctx, queue.EmailPayload{
		EmailType:      models.EmailTypeRedemption,
		Reference:      c.CollectionID,
		RecipientEmail: email,
		Subject:        "Your EcoHaven reward " + c.CollectionID,
		BodyHTML:       body,
	}); err != nil {
		s.logger.Warn("enqueue redemption email failed", zap.String("collection_id", c.CollectionID), zap.Error(err))
	}
	return &Redemption{Collection: c, LeafPoints: balance}, nil
}

// MarkCollected records that a collection was picked up.
func (s *Service) MarkCollected(ctx context.Context, id uuid.UUID, staffID uuid.UUID) (*models.CollectInformation, error) {
	c, err := s.store.MarkCollected(ctx, id)
	if err != nil {
		return nil, err
	}
	s.logger.Info("reward collected", zap.String("collection_id", c.CollectionID), zap.String("by", staffID.String()))
	return c, nil
}
