package bookings

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/ecohaven/backend/pkg/redis"
)

const pendingKeyPrefix = "booking:pending:"

// PendingBooking is a booking parked until its payment succeeds.
type PendingBooking struct {
	ID          string    `json:"pending_id"`
	Request     Request   `json:"request"`
	EventName   string    `json:"event_name"`
	EventDate   time.Time `json:"event_date"`
	AmountCents int       `json:"amount_cents"`
	LeafPoints  int       `json:"leaf_points"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// PendingStore keeps pending bookings between POST /api/bookings and POST /pay.
type PendingStore interface {
	Save(ctx context.Context, p *PendingBooking, ttl time.Duration) error
	Get(ctx context.Context, id string) (*PendingBooking, error)
	Delete(ctx context.Context, id string) error
}

// RedisPendingStore stores pending bookings as JSON under booking:pending:<id>.
type RedisPendingStore struct {
	client *redis.Client
}

// NewRedisPendingStore creates a Redis-backed pending store.
func NewRedisPendingStore(client *redis.Client) *RedisPendingStore {
	return &RedisPendingStore{client: client}
}

func (s *RedisPendingStore) Save(ctx context.Context, p *PendingBooking, ttl time.Duration) error {
	return s.client.SetJSON(ctx, pendingKeyPrefix+p.ID, p, ttl)
}

func (s *RedisPendingStore) Get(ctx context.Context, id string) (*PendingBooking, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrPendingNotFound
	}
	var p PendingBooking
	if err := s.client.GetJSON(ctx, pendingKeyPrefix+id, &p); err != nil {
		if errors.Is(err, redis.ErrCacheMiss) {
			return nil, ErrPendingNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (s *RedisPendingStore) Delete(ctx context.Context, id string) error {
	return s.client.Del(ctx, pendingKeyPrefix+id).Err()
}
