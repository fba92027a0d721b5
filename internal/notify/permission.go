// internal/notify/permission.go
package notify

import (
	"context"
	"database/sql"

	"nearby-engine/internal/models"
)

// StorePermissionChecker reads the user's notification preference from the
// profile store. A missing row or NULL preference maps to unknown, which
// suppresses the external channel but never the matching cycle.
type StorePermissionChecker struct {
	db     *sql.DB
	userID string
}

func NewStorePermissionChecker(db *sql.DB, userID string) *StorePermissionChecker {
	return &StorePermissionChecker{db: db, userID: userID}
}

func (c *StorePermissionChecker) Permission(ctx context.Context) models.Permission {
	var enabled sql.NullBool
	err := c.db.QueryRowContext(ctx,
		`SELECT notifications_enabled FROM profiles WHERE id = $1`, c.userID).Scan(&enabled)
	if err != nil || !enabled.Valid {
		return models.PermissionUnknown
	}
	if enabled.Bool {
		return models.PermissionGranted
	}
	return models.PermissionDenied
}

// StaticPermission is a fixed permission result, used in tests and when the
// permission is supplied by configuration.
type StaticPermission models.Permission

func (p StaticPermission) Permission(ctx context.Context) models.Permission {
	return models.Permission(p)
}
