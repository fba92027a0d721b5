// internal/location/tracker.go
package location

import (
	"context"
	"sync"
	"time"

	"nearby-engine/internal/common/logger"
	"nearby-engine/internal/common/metrics"
	"nearby-engine/internal/geo"
	"nearby-engine/internal/models"
)

// Sink receives accepted coordinates for write-back to the profile store.
// Failures are logged, never propagated.
type Sink interface {
	UpdateLocation(ctx context.Context, coord models.Coordinate) error
}

// Config holds the tracker knobs.
type Config struct {
	UserID             string
	AcquireTimeout     time.Duration
	SignificanceMeters float64
	HighAccuracy       bool
	MaxCacheAge        time.Duration
}

// Tracker owns the single authoritative current position for the local user
// and decides which raw readings are significant enough to act on.
type Tracker struct {
	provider Provider
	cache    *WarmStartCache
	sink     Sink
	cfg      Config
	logger   logger.Logger

	mu       sync.Mutex
	current  models.Coordinate
	hasFix   bool
	watching bool
	handle   WatchHandle
}

func NewTracker(provider Provider, cache *WarmStartCache, sink Sink, cfg Config, log logger.Logger) *Tracker {
	if cfg.AcquireTimeout <= 0 {
		cfg.AcquireTimeout = 10 * time.Second
	}
	if cfg.SignificanceMeters <= 0 {
		cfg.SignificanceMeters = 10
	}

	t := &Tracker{
		provider: provider,
		cache:    cache,
		sink:     sink,
		cfg:      cfg,
		logger:   log.WithFields(map[string]interface{}{"component": "location-tracker"}),
	}

	// Warm start: an expired or missing cache entry just means no fix yet.
	if cache != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if coord, ok := cache.Load(ctx, cfg.UserID); ok {
			if cfg.MaxCacheAge <= 0 || time.Since(coord.CapturedAt) <= cfg.MaxCacheAge {
				t.current = coord
				t.hasFix = true
			}
		}
	}

	return t
}

// AcquireOnce performs a single bounded position read and stores the result
// as the current position.
func (t *Tracker) AcquireOnce(ctx context.Context) (models.Coordinate, error) {
	opts := Options{
		HighAccuracy: t.cfg.HighAccuracy,
		Timeout:      t.cfg.AcquireTimeout,
		MaxCacheAge:  t.cfg.MaxCacheAge,
	}

	coord, err := t.provider.Current(ctx, opts)
	if err != nil {
		return models.Coordinate{}, err
	}

	t.accept(coord)
	return coord, nil
}

// Current returns the last accepted coordinate, if any.
func (t *Tracker) Current() (models.Coordinate, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current, t.hasFix
}

// StartTracking begins a continuous watch. Raw readings within the
// significance threshold of the last accepted coordinate are dropped to keep
// GPS jitter from flooding downstream consumers.
func (t *Tracker) StartTracking(onSignificantChange func(models.Coordinate)) error {
	t.mu.Lock()
	if t.watching {
		t.mu.Unlock()
		return nil
	}
	t.watching = true
	t.mu.Unlock()

	opts := Options{
		HighAccuracy: t.cfg.HighAccuracy,
		MaxCacheAge:  t.cfg.MaxCacheAge,
	}

	handle, err := t.provider.Watch(func(coord models.Coordinate) {
		if !t.significant(coord) {
			metrics.LocationUpdates.WithLabelValues("jitter").Inc()
			return
		}
		metrics.LocationUpdates.WithLabelValues("accepted").Inc()
		t.accept(coord)
		if onSignificantChange != nil {
			onSignificantChange(coord)
		}
	}, opts)
	if err != nil {
		t.mu.Lock()
		t.watching = false
		t.mu.Unlock()
		return err
	}

	t.mu.Lock()
	t.handle = handle
	t.mu.Unlock()
	return nil
}

// StopTracking cancels the watch subscription. Safe to call repeatedly or
// when tracking was never started.
func (t *Tracker) StopTracking() {
	t.mu.Lock()
	if !t.watching {
		t.mu.Unlock()
		return
	}
	handle := t.handle
	t.watching = false
	t.mu.Unlock()

	t.provider.ClearWatch(handle)
}

func (t *Tracker) significant(coord models.Coordinate) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.hasFix {
		return true
	}
	return geo.DistanceMeters(t.current, coord) > t.cfg.SignificanceMeters
}

// accept replaces the stored coordinate and persists it best effort.
func (t *Tracker) accept(coord models.Coordinate) {
	t.mu.Lock()
	t.current = coord
	t.hasFix = true
	t.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if t.cache != nil {
		if err := t.cache.Store(ctx, t.cfg.UserID, coord); err != nil {
			t.logger.Warn("warm-start cache write failed", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}
	if t.sink != nil {
		if err := t.sink.UpdateLocation(ctx, coord); err != nil {
			t.logger.Warn("profile location write failed", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}
}
