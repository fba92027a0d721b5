// internal/profile/store_test.go
package profile

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	commonerrors "nearby-engine/internal/common/errors"
	"nearby-engine/internal/common/logger"
	"nearby-engine/internal/models"
)

func setupStore(t *testing.T) (*Store, sqlmock.Sqlmock, *miniredis.Miniredis) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	srv := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: srv.Addr()})

	store := NewStore(db, rdb, "user-1", 10*time.Minute, logger.NewTestLogger(t))
	return store, mock, srv
}

func profileRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"username", "interests", "looking_for", "is_online", "is_discoverable"}).
		AddRow("ada", []byte(`{music,tech}`), "jam sessions", true, true)
}

func TestSnapshot_ReadsFromDatabase(t *testing.T) {
	store, mock, _ := setupStore(t)

	mock.ExpectQuery("SELECT username, interests, looking_for").
		WithArgs("user-1").
		WillReturnRows(profileRows())

	profile, err := store.Snapshot(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "user-1", profile.ID)
	assert.Equal(t, "ada", profile.Username)
	assert.Equal(t, []string{"music", "tech"}, profile.Interests)
	assert.Equal(t, "jam sessions", profile.LookingFor)
	assert.True(t, profile.IsOnline)
	assert.True(t, profile.IsDiscoverable)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSnapshot_SecondCallHitsCache(t *testing.T) {
	store, mock, _ := setupStore(t)

	mock.ExpectQuery("SELECT username, interests, looking_for").
		WithArgs("user-1").
		WillReturnRows(profileRows())

	_, err := store.Snapshot(context.Background())
	require.NoError(t, err)

	// No second query expectation: a DB hit here would fail the test.
	profile, err := store.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ada", profile.Username)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSnapshot_NullLookingFor(t *testing.T) {
	store, mock, _ := setupStore(t)

	rows := sqlmock.NewRows([]string{"username", "interests", "looking_for", "is_online", "is_discoverable"}).
		AddRow("ada", []byte(`{}`), nil, true, false)
	mock.ExpectQuery("SELECT username, interests, looking_for").
		WithArgs("user-1").
		WillReturnRows(rows)

	profile, err := store.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "", profile.LookingFor)
	assert.Empty(t, profile.Interests)
	assert.False(t, profile.HasInterests())
}

func TestSnapshot_DatabaseErrorIsProfileFetchFailed(t *testing.T) {
	store, mock, srv := setupStore(t)
	srv.Close() // force the cache read to miss

	mock.ExpectQuery("SELECT username, interests, looking_for").
		WithArgs("user-1").
		WillReturnError(assert.AnError)

	_, err := store.Snapshot(context.Background())
	require.Error(t, err)
	assert.True(t, commonerrors.IsCode(err, commonerrors.ErrCodeProfileFetchFailed))
	assert.True(t, commonerrors.IsRetryable(err))
}

func TestSnapshot_RedisDownFallsBackToDatabase(t *testing.T) {
	store, mock, srv := setupStore(t)
	srv.Close()

	mock.ExpectQuery("SELECT username, interests, looking_for").
		WithArgs("user-1").
		WillReturnRows(profileRows())

	profile, err := store.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ada", profile.Username)
}

func TestUpdateLocation(t *testing.T) {
	store, mock, _ := setupStore(t)

	captured := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectExec("UPDATE profiles").
		WithArgs(13.405, 52.52, 8.0, captured, "user-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.UpdateLocation(context.Background(), models.Coordinate{
		Latitude:       52.52,
		Longitude:      13.405,
		AccuracyMeters: 8.0,
		CapturedAt:     captured,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInvalidateCache_ForcesReload(t *testing.T) {
	store, mock, _ := setupStore(t)

	mock.ExpectQuery("SELECT username, interests, looking_for").
		WithArgs("user-1").
		WillReturnRows(profileRows())
	mock.ExpectQuery("SELECT username, interests, looking_for").
		WithArgs("user-1").
		WillReturnRows(profileRows())

	_, err := store.Snapshot(context.Background())
	require.NoError(t, err)

	store.InvalidateCache(context.Background())

	_, err = store.Snapshot(context.Background())
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
