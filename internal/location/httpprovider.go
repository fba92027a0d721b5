// internal/location/httpprovider.go
package location

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	commonerrors "nearby-engine/internal/common/errors"
	commonhttp "nearby-engine/internal/common/http"
	"nearby-engine/internal/common/logger"
	"nearby-engine/internal/models"
)

// positionResponse is the wire format of the device agent's position endpoint.
type positionResponse struct {
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	Accuracy   float64   `json:"accuracy,omitempty"`
	CapturedAt time.Time `json:"capturedAt"`
}

// HTTPProvider reads positions from a local device agent over HTTP. A watch is
// a polling goroutine; the agent itself decides how it sources fixes.
type HTTPProvider struct {
	baseURL      string
	client       *commonhttp.Client
	pollInterval time.Duration
	logger       logger.Logger

	mu      sync.Mutex
	nextID  WatchHandle
	watches map[WatchHandle]context.CancelFunc
}

func NewHTTPProvider(baseURL string, pollInterval time.Duration, log logger.Logger) *HTTPProvider {
	return &HTTPProvider{
		baseURL:      baseURL,
		client:       commonhttp.NewClient(0), // per-call deadlines come from ctx
		pollInterval: pollInterval,
		logger:       log.WithFields(map[string]interface{}{"component": "location-provider"}),
		watches:      make(map[WatchHandle]context.CancelFunc),
	}
}

// Current performs a single position read.
func (p *HTTPProvider) Current(ctx context.Context, opts Options) (models.Coordinate, error) {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	url := fmt.Sprintf("%s/position?highAccuracy=%t&maxAgeMs=%d",
		p.baseURL, opts.HighAccuracy, opts.MaxCacheAge.Milliseconds())

	var pos positionResponse
	if err := p.client.GetJSON(ctx, url, nil, &pos); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return models.Coordinate{}, commonerrors.NewLocationTimeoutError(opts.Timeout)
		}
		return models.Coordinate{}, p.mapError(err)
	}

	coord := models.Coordinate{
		Latitude:       pos.Latitude,
		Longitude:      pos.Longitude,
		AccuracyMeters: pos.Accuracy,
		CapturedAt:     pos.CapturedAt,
	}
	if coord.CapturedAt.IsZero() {
		coord.CapturedAt = time.Now().UTC()
	}
	return coord, nil
}

// Watch polls the agent until ClearWatch is called. Read errors are logged
// and skipped; the next poll is the retry.
func (p *HTTPProvider) Watch(cb func(models.Coordinate), opts Options) (WatchHandle, error) {
	ctx, cancel := context.WithCancel(context.Background())

	p.mu.Lock()
	p.nextID++
	handle := p.nextID
	p.watches[handle] = cancel
	p.mu.Unlock()

	go func() {
		ticker := time.NewTicker(p.pollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				coord, err := p.Current(ctx, opts)
				if err != nil {
					if ctx.Err() == nil {
						p.logger.Warn("position read failed", map[string]interface{}{
							"handle": int64(handle),
							"error":  err.Error(),
						})
					}
					continue
				}
				cb(coord)
			}
		}
	}()

	return handle, nil
}

// ClearWatch cancels a watch. Unknown handles are a no-op.
func (p *HTTPProvider) ClearWatch(handle WatchHandle) {
	p.mu.Lock()
	cancel, ok := p.watches[handle]
	if ok {
		delete(p.watches, handle)
	}
	p.mu.Unlock()
	if ok {
		cancel()
	}
}

func (p *HTTPProvider) mapError(err error) error {
	if se, ok := statusOf(err); ok {
		switch se {
		case http.StatusForbidden, http.StatusUnauthorized:
			return commonerrors.NewPermissionDeniedError(err.Error())
		case http.StatusNotFound, http.StatusServiceUnavailable:
			return commonerrors.NewLocationUnavailableError(err.Error())
		}
	}
	return commonerrors.NewLocationUnavailableError(err.Error())
}

// statusOf pulls an HTTP status code out of the transport error message. The
// common client folds non-2xx statuses into errors rather than typed values.
func statusOf(err error) (int, bool) {
	var code int
	if _, scanErr := fmt.Sscanf(err.Error(), "unexpected status %d", &code); scanErr == nil {
		return code, true
	}
	return 0, false
}
