// internal/profile/store.go
package profile

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	commonerrors "nearby-engine/internal/common/errors"
	"nearby-engine/internal/common/logger"
	"nearby-engine/internal/models"
)

// Store reads the local user's profile from the external profile store and
// writes location updates back to it. Snapshots are cached in Redis with a
// short TTL; the cache is bypassed transparently when Redis is down.
type Store struct {
	db       *sql.DB
	redis    *redis.Client
	userID   string
	cacheTTL time.Duration
	logger   logger.Logger
}

func NewStore(db *sql.DB, rdb *redis.Client, userID string, cacheTTL time.Duration, log logger.Logger) *Store {
	return &Store{
		db:       db,
		redis:    rdb,
		userID:   userID,
		cacheTTL: cacheTTL,
		logger:   log.WithFields(map[string]interface{}{"component": "profile-store"}),
	}
}

func (s *Store) cacheKey() string {
	return "profile:snapshot:" + s.userID
}

// Snapshot returns a read-only snapshot of the local user's profile.
func (s *Store) Snapshot(ctx context.Context) (*models.UserProfile, error) {
	if s.redis != nil {
		if val, err := s.redis.Get(ctx, s.cacheKey()).Result(); err == nil {
			var profile models.UserProfile
			if err := json.Unmarshal([]byte(val), &profile); err == nil {
				return &profile, nil
			}
		}
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT username, interests, looking_for, is_online, is_discoverable
		FROM profiles WHERE id = $1`, s.userID)

	var profile models.UserProfile
	var interests pq.StringArray
	var lookingFor sql.NullString
	err := row.Scan(&profile.Username, &interests, &lookingFor, &profile.IsOnline, &profile.IsDiscoverable)
	if err != nil {
		return nil, commonerrors.NewProfileFetchFailedError(err)
	}

	profile.ID = s.userID
	profile.Interests = interests
	if lookingFor.Valid {
		profile.LookingFor = lookingFor.String
	}

	if s.redis != nil {
		data, _ := json.Marshal(profile)
		if err := s.redis.Set(ctx, s.cacheKey(), data, s.cacheTTL).Err(); err != nil {
			s.logger.Warn("profile cache write failed", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}

	return &profile, nil
}

// UpdateLocation writes the accepted coordinate back to the profile store so
// other users' proximity queries see the fresh position.
func (s *Store) UpdateLocation(ctx context.Context, coord models.Coordinate) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE profiles
		SET location = ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography,
		    location_accuracy = $3,
		    location_updated_at = $4
		WHERE id = $5`,
		coord.Longitude, coord.Latitude, coord.AccuracyMeters, coord.CapturedAt, s.userID)
	return err
}

// InvalidateCache drops the cached snapshot, forcing the next Snapshot call
// to hit the store. Used on explicit restart.
func (s *Store) InvalidateCache(ctx context.Context) {
	if s.redis == nil {
		return
	}
	if err := s.redis.Del(ctx, s.cacheKey()).Err(); err != nil {
		s.logger.Warn("profile cache invalidation failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
}
