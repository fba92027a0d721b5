// internal/location/tracker_test.go
package location

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nearby-engine/internal/common/database"
	"nearby-engine/internal/common/logger"
	"nearby-engine/internal/models"
)

// fakeProvider drives watch callbacks by hand.
type fakeProvider struct {
	mu       sync.Mutex
	current  models.Coordinate
	err      error
	cb       func(models.Coordinate)
	cleared  []WatchHandle
	nextID   WatchHandle
	watching bool
}

func (f *fakeProvider) Current(ctx context.Context, opts Options) (models.Coordinate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return models.Coordinate{}, f.err
	}
	return f.current, nil
}

func (f *fakeProvider) Watch(cb func(models.Coordinate), opts Options) (WatchHandle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cb = cb
	f.nextID++
	f.watching = true
	return f.nextID, nil
}

func (f *fakeProvider) ClearWatch(handle WatchHandle) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cleared = append(f.cleared, handle)
	f.watching = false
}

func (f *fakeProvider) emit(coord models.Coordinate) {
	f.mu.Lock()
	cb := f.cb
	f.mu.Unlock()
	if cb != nil {
		cb(coord)
	}
}

func testCoord(lat, lng float64) models.Coordinate {
	return models.Coordinate{Latitude: lat, Longitude: lng, CapturedAt: time.Now().UTC()}
}

func newTestTracker(t *testing.T, provider Provider) *Tracker {
	return NewTracker(provider, nil, nil, Config{
		UserID:             "user-1",
		SignificanceMeters: 10,
	}, logger.NewTestLogger(t))
}

func TestAcquireOnce_StoresCurrent(t *testing.T) {
	fp := &fakeProvider{current: testCoord(52.52, 13.405)}
	tr := newTestTracker(t, fp)

	coord, err := tr.AcquireOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 52.52, coord.Latitude)

	got, ok := tr.Current()
	require.True(t, ok)
	assert.Equal(t, coord, got)
}

func TestAcquireOnce_PropagatesProviderError(t *testing.T) {
	fp := &fakeProvider{err: assert.AnError}
	tr := newTestTracker(t, fp)

	_, err := tr.AcquireOnce(context.Background())
	assert.Error(t, err)

	_, ok := tr.Current()
	assert.False(t, ok)
}

func TestSignificanceFilter(t *testing.T) {
	fp := &fakeProvider{current: testCoord(52.520000, 13.405000)}
	tr := newTestTracker(t, fp)

	_, err := tr.AcquireOnce(context.Background())
	require.NoError(t, err)

	var changes []models.Coordinate
	var mu sync.Mutex
	require.NoError(t, tr.StartTracking(func(c models.Coordinate) {
		mu.Lock()
		changes = append(changes, c)
		mu.Unlock()
	}))
	defer tr.StopTracking()

	// ~5.5 m north: inside the 10 m threshold, must be dropped.
	fp.emit(testCoord(52.520050, 13.405000))
	mu.Lock()
	assert.Empty(t, changes)
	mu.Unlock()

	// ~16.7 m north: outside the threshold, must fire.
	fp.emit(testCoord(52.520150, 13.405000))
	mu.Lock()
	require.Len(t, changes, 1)
	assert.Equal(t, 52.520150, changes[0].Latitude)
	mu.Unlock()

	// The accepted coordinate replaces the comparison baseline.
	got, ok := tr.Current()
	require.True(t, ok)
	assert.Equal(t, 52.520150, got.Latitude)
}

func TestStartTracking_FirstReadingAlwaysSignificant(t *testing.T) {
	fp := &fakeProvider{}
	tr := newTestTracker(t, fp)

	fired := make(chan models.Coordinate, 1)
	require.NoError(t, tr.StartTracking(func(c models.Coordinate) { fired <- c }))
	defer tr.StopTracking()

	fp.emit(testCoord(52.52, 13.405))
	select {
	case c := <-fired:
		assert.Equal(t, 52.52, c.Latitude)
	default:
		t.Fatal("expected first reading to fire the callback")
	}
}

func TestStopTracking_Idempotent(t *testing.T) {
	fp := &fakeProvider{}
	tr := newTestTracker(t, fp)

	// Never started: must be a no-op.
	tr.StopTracking()
	assert.Empty(t, fp.cleared)

	require.NoError(t, tr.StartTracking(nil))
	tr.StopTracking()
	tr.StopTracking()
	assert.Len(t, fp.cleared, 1)
}

func TestStartTracking_SecondCallIsNoOp(t *testing.T) {
	fp := &fakeProvider{}
	tr := newTestTracker(t, fp)

	require.NoError(t, tr.StartTracking(nil))
	require.NoError(t, tr.StartTracking(nil))
	assert.Equal(t, WatchHandle(1), fp.nextID)
	tr.StopTracking()
}

func TestTracker_WarmStartCache(t *testing.T) {
	srv := miniredis.RunT(t)
	rc := &database.RedisClient{Client: redis.NewClient(&redis.Options{Addr: srv.Addr()})}
	cache := NewWarmStartCache(rc, time.Hour)

	fp := &fakeProvider{current: testCoord(52.52, 13.405)}
	tr := NewTracker(fp, cache, nil, Config{UserID: "user-1", SignificanceMeters: 10}, logger.NewTestLogger(t))

	_, err := tr.AcquireOnce(context.Background())
	require.NoError(t, err)

	// A second tracker warm starts from the persisted coordinate.
	tr2 := NewTracker(fp, cache, nil, Config{UserID: "user-1", SignificanceMeters: 10}, logger.NewTestLogger(t))
	coord, ok := tr2.Current()
	require.True(t, ok)
	assert.Equal(t, 52.52, coord.Latitude)

	// Expired entries are ignored.
	tr3 := NewTracker(fp, cache, nil, Config{
		UserID:             "user-1",
		SignificanceMeters: 10,
		MaxCacheAge:        time.Nanosecond,
	}, logger.NewTestLogger(t))
	_, ok = tr3.Current()
	assert.False(t, ok)
}

func TestWarmStartCache_EmptyEntryIgnored(t *testing.T) {
	srv := miniredis.RunT(t)
	rc := &database.RedisClient{Client: redis.NewClient(&redis.Options{Addr: srv.Addr()})}
	cache := NewWarmStartCache(rc, time.Hour)

	require.NoError(t, srv.Set("location:last:user-1", "{}"))
	_, ok := cache.Load(context.Background(), "user-1")
	assert.False(t, ok)
}

func TestTracker_CacheFailureDoesNotPropagate(t *testing.T) {
	srv := miniredis.RunT(t)
	rc := &database.RedisClient{Client: redis.NewClient(&redis.Options{Addr: srv.Addr()})}
	cache := NewWarmStartCache(rc, time.Hour)
	srv.Close() // writes will fail from here on

	fp := &fakeProvider{current: testCoord(52.52, 13.405)}
	tr := NewTracker(fp, cache, nil, Config{UserID: "user-1", SignificanceMeters: 10}, logger.NewTestLogger(t))

	_, err := tr.AcquireOnce(context.Background())
	assert.NoError(t, err)
}
