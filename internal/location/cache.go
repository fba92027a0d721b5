// internal/location/cache.go
package location

import (
	"context"
	"encoding/json"
	"time"

	"nearby-engine/internal/common/database"
	"nearby-engine/internal/models"
)

// WarmStartCache persists the last accepted coordinate so a restarted process
// has a position before the first fix arrives. Writes are best effort.
type WarmStartCache struct {
	redis *database.RedisClient
	ttl   time.Duration
}

func NewWarmStartCache(redis *database.RedisClient, ttl time.Duration) *WarmStartCache {
	return &WarmStartCache{redis: redis, ttl: ttl}
}

func (c *WarmStartCache) key(userID string) string {
	return "location:last:" + userID
}

// Store writes the coordinate for userID.
func (c *WarmStartCache) Store(ctx context.Context, userID string, coord models.Coordinate) error {
	data, err := json.Marshal(coord)
	if err != nil {
		return err
	}
	return c.redis.Set(ctx, c.key(userID), data, c.ttl)
}

// Load returns the cached coordinate for userID, or false if none is cached
// or the entry cannot be decoded into a usable position.
func (c *WarmStartCache) Load(ctx context.Context, userID string) (models.Coordinate, bool) {
	val, err := c.redis.Get(ctx, c.key(userID))
	if err != nil {
		return models.Coordinate{}, false
	}
	var coord models.Coordinate
	if err := json.Unmarshal([]byte(val), &coord); err != nil || coord.IsZero() {
		return models.Coordinate{}, false
	}
	return coord, true
}
