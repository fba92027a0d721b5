// internal/models/notification.go
package models

import "time"

// Permission is the cached notification permission for the session. It is
// queried once when the dispatcher is built; a denial suppresses only the
// external channel, never the matching cycle.
type Permission string

const (
	PermissionUnknown Permission = "unknown"
	PermissionGranted Permission = "granted"
	PermissionDenied  Permission = "denied"
)

// MatchEvent is the in-process event emitted for every newly surfaced
// candidate, regardless of permission state.
type MatchEvent struct {
	ID         string    `json:"id"`
	Candidate  Candidate `json:"candidate"`
	Reason     string    `json:"reason"`
	Notified   bool      `json:"notified"`
	OccurredAt time.Time `json:"occurredAt"`
}

// Notification is the payload handed to the external channel. Tag is stable
// per match identity so the OS-level channel can de-duplicate.
type Notification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Tag   string `json:"tag"`
}
