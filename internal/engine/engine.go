// internal/engine/engine.go
package engine

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	commonerrors "nearby-engine/internal/common/errors"
	"nearby-engine/internal/common/logger"
	"nearby-engine/internal/common/metrics"
	"nearby-engine/internal/common/observability"
	"nearby-engine/internal/models"
	"nearby-engine/internal/nearby"
	"nearby-engine/internal/scoring"
)

// State is the engine lifecycle state.
type State int32

const (
	StateIdle State = iota
	StateStarting
	StateActive
	StateStopping
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStarting:
		return "starting"
	case StateActive:
		return "active"
	case StateStopping:
		return "stopping"
	}
	return "unknown"
}

// ErrAlreadyStarted is returned by Start when a session is already running.
var ErrAlreadyStarted = errors.New("matching already started")

// LocationSource is the tracker contract the engine depends on.
type LocationSource interface {
	AcquireOnce(ctx context.Context) (models.Coordinate, error)
	Current() (models.Coordinate, bool)
	StartTracking(onSignificantChange func(models.Coordinate)) error
	StopTracking()
}

// ProfileSource provides the read-only profile snapshot the scorer runs
// against. Snapshot is read once per cycle; InvalidateCache forces the next
// read through to the store, used on explicit restart.
type ProfileSource interface {
	Snapshot(ctx context.Context) (*models.UserProfile, error)
	InvalidateCache(ctx context.Context)
}

// MatchSink receives newly surfaced candidates.
type MatchSink interface {
	Dispatch(ctx context.Context, candidates []models.Candidate)
}

// Config holds the engine knobs.
type Config struct {
	Interval     time.Duration
	RadiusMeters int
	QueryTimeout time.Duration
}

// Engine runs the periodic matching cycle: read position, query candidates,
// score, diff against the previous cycle, dispatch what is new. A single
// goroutine owns the cycle, so two cycles can never run concurrently for the
// same user; ticks and significant-change triggers that arrive mid-cycle are
// dropped, not queued.
type Engine struct {
	tracker    LocationSource
	nearbyAPI  nearby.Client
	profiles   ProfileSource
	dispatcher MatchSink
	cfg        Config
	logger     logger.Logger
	obs        *observability.Observability

	mu      sync.Mutex
	state   State
	cancel  context.CancelFunc
	done    chan struct{}
	trigger chan struct{}

	// profile is the last successfully read snapshot. Seeded in Start,
	// refreshed every cycle, owned by the run goroutine while Active.
	profile *models.UserProfile

	// matchState maps userId -> last surfaced candidate. Written only by the
	// run goroutine; rebuilt wholesale every cycle.
	matchState map[string]models.Candidate

	resultsMu sync.Mutex
	results   []models.Candidate
}

func New(tracker LocationSource, nearbyAPI nearby.Client, profiles ProfileSource, dispatcher MatchSink, cfg Config, log logger.Logger, obs *observability.Observability) *Engine {
	if cfg.Interval <= 0 {
		cfg.Interval = 10 * time.Second
	}
	if cfg.RadiusMeters <= 0 {
		cfg.RadiusMeters = 5000
	}
	if cfg.QueryTimeout <= 0 {
		cfg.QueryTimeout = 15 * time.Second
	}
	return &Engine{
		tracker:    tracker,
		nearbyAPI:  nearbyAPI,
		profiles:   profiles,
		dispatcher: dispatcher,
		cfg:        cfg,
		logger:     log.WithFields(map[string]interface{}{"component": "matching-engine"}),
		obs:        obs,
	}
}

// State returns the current lifecycle state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Matches returns a copy of the most recent scored candidate list, sorted by
// score then distance.
func (e *Engine) Matches() []models.Candidate {
	e.resultsMu.Lock()
	defer e.resultsMu.Unlock()
	out := make([]models.Candidate, len(e.results))
	copy(out, e.results)
	return out
}

// Start enters Active after a profile completeness check and an initial
// location acquisition. Failures surface to the caller and leave the engine
// Idle; all of them are recoverable on a later Start.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StateIdle {
		return ErrAlreadyStarted
	}
	e.setState(StateStarting)

	// An explicit restart re-reads completeness from the store, not the cache.
	e.profiles.InvalidateCache(ctx)

	profile, err := e.profiles.Snapshot(ctx)
	if err != nil {
		e.setState(StateIdle)
		return err
	}
	if !profile.HasInterests() {
		e.setState(StateIdle)
		return commonerrors.NewProfileIncompleteError("add at least one interest to start matching")
	}

	if _, err := e.tracker.AcquireOnce(ctx); err != nil {
		e.setState(StateIdle)
		return err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel
	e.done = make(chan struct{})
	e.trigger = make(chan struct{}, 1)
	e.profile = profile
	e.matchState = make(map[string]models.Candidate)

	// The watch callback runs on the provider goroutine; it only nudges the
	// cycle loop, it never touches match state itself.
	trigger := e.trigger
	if err := e.tracker.StartTracking(func(models.Coordinate) {
		select {
		case trigger <- struct{}{}:
		default:
		}
	}); err != nil {
		cancel()
		e.setState(StateIdle)
		return err
	}

	go e.run(runCtx)
	e.setState(StateActive)

	e.logger.Info("matching started", map[string]interface{}{
		"userId":       profile.ID,
		"interval":     e.cfg.Interval.String(),
		"radiusMeters": e.cfg.RadiusMeters,
	})
	return nil
}

// Stop cancels the cycle loop and the location watch. It is synchronous: the
// state is Idle once it returns, and any in-flight query result is discarded.
// Calling Stop from Idle is a no-op.
func (e *Engine) Stop() {
	e.mu.Lock()
	if e.state != StateActive {
		e.mu.Unlock()
		return
	}
	e.setState(StateStopping)
	cancel := e.cancel
	done := e.done
	e.mu.Unlock()

	cancel()
	e.tracker.StopTracking()
	<-done

	e.mu.Lock()
	e.matchState = nil
	e.profile = nil
	e.setState(StateIdle)
	e.mu.Unlock()

	e.logger.Info("matching stopped", nil)
}

func (e *Engine) run(ctx context.Context) {
	defer close(e.done)

	ticker := time.NewTicker(e.cfg.Interval)
	defer ticker.Stop()

	// Immediate first run, then the fixed interval.
	for {
		e.cycle(ctx)

		// Ticks and triggers that arrived while the cycle ran are stale:
		// drop them instead of running a back-to-back cycle.
		select {
		case <-e.trigger:
		default:
		}
		select {
		case <-ticker.C:
		default:
		}

		select {
		case <-ctx.Done():
			return
		case <-e.trigger:
		case <-ticker.C:
		}
	}
}

func (e *Engine) cycle(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	start := time.Now()
	metrics.CyclesRun.Inc()

	coord, ok := e.tracker.Current()
	if !ok {
		// Transient: no fix yet, the next cycle retries naturally.
		metrics.CyclesSkipped.WithLabelValues("no_location").Inc()
		e.recordCycle(ctx, start, "skipped")
		return
	}

	// Fresh snapshot every cycle so a mid-session profile edit changes the
	// next scoring pass. A failed read keeps the previous snapshot in effect;
	// the next cycle retries. Completeness is only re-checked on restart.
	profile, err := e.profiles.Snapshot(ctx)
	if err != nil {
		e.logger.Warn("profile snapshot read failed, reusing previous", map[string]interface{}{
			"error": err.Error(),
		})
		profile = e.profile
	} else {
		e.profile = profile
	}

	qctx, cancel := context.WithTimeout(ctx, e.cfg.QueryTimeout)
	candidates, err := e.nearbyAPI.FindNearby(qctx, coord, e.cfg.RadiusMeters)
	cancel()
	if err != nil {
		if ctx.Err() != nil {
			return // stopped mid-query, result irrelevant
		}
		// No candidates this cycle, which is not the same as zero matches.
		// The interval already throttles retries, so no backoff.
		metrics.CyclesSkipped.WithLabelValues("query_failed").Inc()
		e.logger.Warn("proximity query failed, skipping cycle", map[string]interface{}{
			"error": err.Error(),
		})
		e.recordCycle(ctx, start, "query_failed")
		return
	}

	scored := make([]models.Candidate, 0, len(candidates))
	for _, c := range candidates {
		scored = append(scored, scoring.Apply(profile, c))
	}
	metrics.CandidatesScored.Add(float64(len(scored)))

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].MatchScore != scored[j].MatchScore {
			return scored[i].MatchScore > scored[j].MatchScore
		}
		return scored[i].DistanceMeters < scored[j].DistanceMeters
	})

	fresh := make(map[string]models.Candidate, len(scored))
	var newMatches []models.Candidate
	for _, c := range scored {
		prev, seen := e.matchState[c.UserID]
		if !seen || prev.MatchScore != c.MatchScore {
			newMatches = append(newMatches, c)
		}
		fresh[c.UserID] = c
	}

	if ctx.Err() != nil {
		return // stopped while scoring, discard the stale result
	}

	// Wholesale replacement prunes candidates that left the radius; their
	// disappearance needs no notification.
	e.matchState = fresh

	e.resultsMu.Lock()
	e.results = scored
	e.resultsMu.Unlock()

	if len(newMatches) > 0 {
		metrics.NewMatches.Add(float64(len(newMatches)))
		e.dispatcher.Dispatch(ctx, newMatches)
	}

	metrics.CycleDuration.Observe(time.Since(start).Seconds())
	e.recordCycle(ctx, start, "ok")

	e.logger.Debug("cycle completed", map[string]interface{}{
		"candidates": len(scored),
		"newMatches": len(newMatches),
	})
}

func (e *Engine) recordCycle(ctx context.Context, start time.Time, status string) {
	if e.obs == nil {
		return
	}
	e.obs.RecordCycle(ctx, status)
	e.obs.RecordCycleDuration(ctx, time.Since(start), status)
}

// setState must be called with e.mu held.
func (e *Engine) setState(s State) {
	e.state = s
	metrics.EngineState.Set(float64(s))
}
