// internal/models/coordinate.go
package models

import "time"

// Coordinate is an immutable position reading. AccuracyMeters is zero when the
// provider does not report accuracy.
type Coordinate struct {
	Latitude       float64   `json:"latitude"`
	Longitude      float64   `json:"longitude"`
	AccuracyMeters float64   `json:"accuracy,omitempty"`
	CapturedAt     time.Time `json:"capturedAt"`
}

// IsZero reports whether the coordinate has never been set.
func (c Coordinate) IsZero() bool {
	return c.CapturedAt.IsZero() && c.Latitude == 0 && c.Longitude == 0
}
