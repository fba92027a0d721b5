// internal/location/provider.go
package location

import (
	"context"
	"time"

	"nearby-engine/internal/models"
)

// Options mirror the positioning subsystem contract.
type Options struct {
	HighAccuracy bool
	Timeout      time.Duration
	MaxCacheAge  time.Duration
}

// WatchHandle identifies a continuous watch subscription.
type WatchHandle int64

// Provider abstracts the platform positioning capability. Watch callbacks run
// on the provider's own goroutine; callers must not mutate shared state from
// them directly.
type Provider interface {
	Current(ctx context.Context, opts Options) (models.Coordinate, error)
	Watch(cb func(models.Coordinate), opts Options) (WatchHandle, error)
	ClearWatch(handle WatchHandle)
}
