// cmd/nearby-engine/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"nearby-engine/internal/common/config"
	"nearby-engine/internal/common/database"
	"nearby-engine/internal/common/logger"
	"nearby-engine/internal/common/observability"
	"nearby-engine/internal/engine"
	"nearby-engine/internal/location"
	"nearby-engine/internal/nearby"
	"nearby-engine/internal/notify"
	"nearby-engine/internal/profile"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2 // Exponential backoff
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()

	// Wrap zap logger with our logger interface
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting nearby engine...",
		zap.String("userId", cfg.App.UserID),
		zap.String("environment", cfg.App.Environment),
	)

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")

	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init Redis with retry ---
	var rdb *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		rdb, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return rdb.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")

	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer rdb.Close()
	zapLog.Info("Redis connected successfully")

	// --- Profile store ---
	profiles := profile.NewStore(
		pg.DB, rdb.Client, cfg.App.UserID,
		time.Duration(cfg.Matching.ProfileCacheTTL)*time.Second,
		log,
	)

	// --- Location provider + tracker ---
	provider := location.NewHTTPProvider(
		cfg.Location.ProviderURL,
		time.Duration(cfg.Location.WatchInterval)*time.Millisecond,
		log,
	)
	warmCache := location.NewWarmStartCache(rdb, time.Duration(cfg.Location.WarmStartCacheTTL)*time.Second)
	tracker := location.NewTracker(provider, warmCache, profiles, location.Config{
		UserID:             cfg.App.UserID,
		AcquireTimeout:     time.Duration(cfg.Location.AcquireTimeout) * time.Millisecond,
		SignificanceMeters: float64(cfg.Location.SignificanceMeters),
		HighAccuracy:       cfg.Location.HighAccuracy,
		MaxCacheAge:        time.Duration(cfg.Location.MaxCacheAge) * time.Millisecond,
	}, log)

	// --- Proximity query client ---
	nearbyClient, err := nearby.NewRPCClient(
		cfg.Matching.QueryURL,
		cfg.Matching.APIKey,
		time.Duration(cfg.Matching.QueryTimeout)*time.Millisecond,
		log,
	)
	if err != nil {
		zapLog.Fatal("nearby query client failed", zap.Error(err))
	}

	// --- Notification channel (optional) ---
	var channel notify.Channel
	if cfg.Notifications.Enabled {
		snsChannel, err := notify.NewSNSChannel(ctx, cfg.Notifications.AWSRegion, cfg.Notifications.TopicARN)
		if err != nil {
			zapLog.Fatal("sns channel failed", zap.Error(err))
		}
		channel = snsChannel
		zapLog.Info("SNS notification channel initialized", zap.String("topicArn", cfg.Notifications.TopicARN))
	}

	permission := notify.NewStorePermissionChecker(pg.DB, cfg.App.UserID)
	dispatcher := notify.NewDispatcher(ctx, permission, channel, log)
	zapLog.Info("Notification permission resolved", zap.String("permission", string(dispatcher.Permission())))

	// Drain the in-process event stream; in a larger deployment this feeds a
	// UI gateway, here it goes to the log.
	go func() {
		for ev := range dispatcher.Events() {
			zapLog.Info("match surfaced",
				zap.String("matchUserId", ev.Candidate.UserID),
				zap.Int("score", ev.Candidate.MatchScore),
				zap.String("reason", ev.Reason),
				zap.Bool("notified", ev.Notified),
			)
		}
	}()

	// --- Matching engine ---
	eng := engine.New(tracker, nearbyClient, profiles, dispatcher, engine.Config{
		Interval:     time.Duration(cfg.Matching.Interval) * time.Millisecond,
		RadiusMeters: cfg.Matching.RadiusMeters,
		QueryTimeout: time.Duration(cfg.Matching.QueryTimeout) * time.Millisecond,
	}, log, obs)

	if err := eng.Start(ctx); err != nil {
		zapLog.Fatal("matching failed to start", zap.Error(err))
	}

	// --- Health & Metrics Server ---
	if cfg.Metrics.Enabled {
		go func() {
			http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusOK)
				json.NewEncoder(w).Encode(map[string]string{
					"status": "healthy",
					"state":  eng.State().String(),
					"time":   time.Now().Format(time.RFC3339),
				})
			})
			http.HandleFunc("/matches", func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusOK)
				json.NewEncoder(w).Encode(eng.Matches())
			})
			http.Handle("/metrics", promhttp.Handler())
			zapLog.Info("Health/Metrics server listening", zap.String("address", cfg.Metrics.Address))
			if err := http.ListenAndServe(cfg.Metrics.Address, nil); err != nil {
				zapLog.Error("Health/Metrics server failed", zap.Error(err))
			}
		}()
	}

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping engine...")
	eng.Stop()

	zapLog.Info("Nearby engine stopped gracefully")
}
