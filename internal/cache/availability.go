package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "github.com/altastore/commerce/pkg/errors"
)

const keyPrefix = "availability:"

// Availability is the cached stock view served to read-heavy endpoints.
// It is a projection, not the aggregate; the write path always goes
// through PostgreSQL.
type Availability struct {
	ProductID string    `json:"product_id"`
	Available int       `json:"available"`
	Reserved  int       `json:"reserved"`
	CachedAt  time.Time `json:"cached_at"`
}

// AvailabilityCache stores per-product availability in Redis with a TTL.
// Entries are invalidated whenever the owning aggregate is written, so a
// stale read is bounded by the TTL even if an invalidation is lost.
type AvailabilityCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewAvailabilityCache creates a Redis-backed availability cache.
func NewAvailabilityCache(client *redis.Client, ttl time.Duration) *AvailabilityCache {
	return &AvailabilityCache{
		client: client,
		ttl:    ttl,
	}
}

// Get retrieves the cached availability for a product.
func (c *AvailabilityCache) Get(ctx context.Context, productID string) (*Availability, error) {
	key := keyPrefix + productID

	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, apperrors.NotFound("availability", productID)
		}
		return nil, fmt.Errorf("redis get availability: %w", err)
	}

	var availability Availability
	if err := json.Unmarshal(data, &availability); err != nil {
		return nil, fmt.Errorf("unmarshal availability: %w", err)
	}

	return &availability, nil
}

// Set caches the availability for a product with the configured TTL.
func (c *AvailabilityCache) Set(ctx context.Context, availability *Availability) error {
	key := keyPrefix + availability.ProductID

	data, err := json.Marshal(availability)
	if err != nil {
		return fmt.Errorf("marshal availability: %w", err)
	}

	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set availability: %w", err)
	}

	return nil
}

// Invalidate removes the cached availability for a product.
func (c *AvailabilityCache) Invalidate(ctx context.Context, productID string) error {
	key := keyPrefix + productID

	if err := c.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis del availability: %w", err)
	}

	return nil
}
