package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ErrCacheMiss is returned by GetJSON when the key does not exist.
var ErrCacheMiss = errors.New("cache miss")

// Client wraps go-redis client with optional logger.
type Client struct {
	*redis.Client
	logger *zap.Logger
}

// NewClient creates a Redis client and verifies connectivity.
func NewClient(ctx context.Context, addr, password string, db int, logger *zap.Logger) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	logger.Info("Redis client connected", zap.String("addr", addr))
	return &Client{Client: rdb, logger: logger}, nil
}

// SetJSON stores value as JSON with expiration.
func (c *Client) SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	return c.Set(ctx, key, data, expiration).Err()
}

// GetJSON decodes the JSON stored at key into dest. Missing keys return ErrCacheMiss.
func (c *Client) GetJSON(ctx context.Context, key string, dest interface{}) error {
	data, err := c.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrCacheMiss
		}
		return err
	}
	return json.Unmarshal(data, dest)
}

// GetOrSet returns the cached value at key, or calls fn and caches its result.
// Cache read and write failures fall through to fn; they are logged, not returned.
func GetOrSet[T any](ctx context.Context, c *Client, key string, expiration time.Duration, fn func() (T, error)) (T, error) {
	var result T
	err := c.GetJSON(ctx, key, &result)
	if err == nil {
		return result, nil
	}
	if !errors.Is(err, ErrCacheMiss) && c.logger != nil {
		c.logger.Warn("cache read failed", zap.String("key", key), zap.Error(err))
	}

	result, err = fn()
	if err != nil {
		return result, err
	}
	if err := c.SetJSON(ctx, key, result, expiration); err != nil && c.logger != nil {
		c.logger.Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}
	return result, nil
}
