package models

import (
	"time"

	"github.com/google/uuid"
)

// Product is an item in the reward shop, priced in leaf points.
type Product struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	LeafCost    int       `json:"leaf_cost"`
	Stock       int       `json:"stock"`
	ImageKey    string    `json:"-"`
	ImageURL    string    `json:"image_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Collection status values.
const (
	CollectPending   = "Pending"
	CollectCollected = "Collected"
)

// CollectInformation tracks a redeemed reward until it is picked up with its collection id.
type CollectInformation struct {
	ID           uuid.UUID  `json:"id"`
	AccountID    uuid.UUID  `json:"account_id"`
	ProductID    uuid.UUID  `json:"product_id"`
	ProductName  string     `json:"product_name"`
	Quantity     int        `json:"quantity"`
	LeafPoints   int        `json:"leaf_points"`
	CollectionID string     `json:"collection_id"`
	Location     string     `json:"location"`
	Status       string     `json:"status"`
	CollectedAt  *time.Time `json:"collected_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}
