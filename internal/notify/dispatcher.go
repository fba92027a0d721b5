// internal/notify/dispatcher.go
package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"nearby-engine/internal/common/logger"
	"nearby-engine/internal/common/metrics"
	"nearby-engine/internal/models"
)

// PermissionChecker resolves the notification permission. It is consulted
// once when the dispatcher is built; the result is cached for the session.
type PermissionChecker interface {
	Permission(ctx context.Context) models.Permission
}

// Channel delivers a notification to the external provider.
type Channel interface {
	Send(ctx context.Context, n models.Notification) error
}

// Dispatcher converts newly surfaced candidates into at most one external
// alert each, plus an in-process MatchEvent regardless of permission state.
// Delivery is best effort: failures are logged and never affect match state.
type Dispatcher struct {
	channel    Channel
	permission models.Permission
	events     chan models.MatchEvent
	logger     logger.Logger
}

const eventBuffer = 64

func NewDispatcher(ctx context.Context, checker PermissionChecker, channel Channel, log logger.Logger) *Dispatcher {
	permission := models.PermissionUnknown
	if checker != nil {
		permission = checker.Permission(ctx)
	}

	return &Dispatcher{
		channel:    channel,
		permission: permission,
		events:     make(chan models.MatchEvent, eventBuffer),
		logger: log.WithFields(map[string]interface{}{
			"component":  "notify-dispatcher",
			"permission": string(permission),
		}),
	}
}

// Permission returns the cached session permission.
func (d *Dispatcher) Permission() models.Permission {
	return d.permission
}

// Events exposes the in-process match event stream for UI consumers.
func (d *Dispatcher) Events() <-chan models.MatchEvent {
	return d.events
}

// Dispatch handles one batch of newly surfaced candidates.
func (d *Dispatcher) Dispatch(ctx context.Context, candidates []models.Candidate) {
	for _, c := range candidates {
		d.dispatchOne(ctx, c)
	}
}

func (d *Dispatcher) dispatchOne(ctx context.Context, c models.Candidate) {
	reason := BuildReason(c)
	notified := false

	if d.permission == models.PermissionGranted && d.channel != nil {
		n := models.Notification{
			Title: "New match nearby",
			Body:  fmt.Sprintf("%s is %s away — %s", c.Username, formatDistance(c.DistanceMeters), reason),
			Tag:   "match-" + c.UserID,
		}
		if err := d.channel.Send(ctx, n); err != nil {
			// The entry stays marked as seen upstream; retrying here would
			// cause notification storms on flaky channels.
			metrics.NotificationsDispatched.WithLabelValues("failed").Inc()
			d.logger.Warn("notification delivery failed", map[string]interface{}{
				"userId": c.UserID,
				"error":  err.Error(),
			})
		} else {
			metrics.NotificationsDispatched.WithLabelValues("sent").Inc()
			notified = true
		}
	} else {
		metrics.NotificationsDispatched.WithLabelValues("suppressed").Inc()
	}

	event := models.MatchEvent{
		ID:         uuid.New().String(),
		Candidate:  c,
		Reason:     reason,
		Notified:   notified,
		OccurredAt: time.Now().UTC(),
	}

	select {
	case d.events <- event:
	default:
		d.logger.Warn("match event dropped, consumer too slow", map[string]interface{}{
			"userId": c.UserID,
		})
	}
}

// BuildReason produces the human-readable match explanation. Interest overlap
// and the looking-for bonus are independent; zero, one or both can apply.
func BuildReason(c models.Candidate) string {
	var parts []string
	if c.CommonInterestCount > 0 {
		noun := "shared interests"
		if c.CommonInterestCount == 1 {
			noun = "shared interest"
		}
		parts = append(parts, fmt.Sprintf("%d %s", c.CommonInterestCount, noun))
	}
	if c.LookingForMatched {
		parts = append(parts, "looking for the same thing")
	}
	if len(parts) == 0 {
		return "nearby now"
	}
	return strings.Join(parts, " • ")
}

func formatDistance(meters float64) string {
	if meters < 1000 {
		return fmt.Sprintf("%.0f m", meters)
	}
	return fmt.Sprintf("%.1f km", meters/1000)
}
