// Package notify reports terminal job outcomes to external webhook channels.
package notify

import (
	"context"
	"fmt"
	"time"
)

// Status is the terminal job outcome carried in a notification.
type Status string

const (
	// StatusCompleted marks a successful distribution.
	StatusCompleted Status = "completed"
	// StatusFailed marks an aborted job.
	StatusFailed Status = "failed"
)

// Succeeded reports whether the status is the successful outcome.
func (s Status) Succeeded() bool { return s == StatusCompleted }

// JobStatusPayload captures the canonical data sinks render into their
// platform-specific message shape.
type JobStatusPayload struct {
	JobID    string
	Project  string
	Platform string
	Source   string
	Services []string
	Status   Status
	Error    string

	StartedAt   *time.Time
	CompletedAt *time.Time

	// CDNURL is the first content-delivery download URL, when any CDN
	// upload succeeded.
	CDNURL string
	// SteamBuildID/SteamBranch describe the first Steam upload result,
	// when one exists.
	SteamBuildID string
	SteamBranch  string
}

// Duration renders the distribution time as a compact human string
// ("2m 5s"), or "" when either timestamp is missing.
func (p JobStatusPayload) Duration() string {
	if p.StartedAt == nil || p.CompletedAt == nil {
		return ""
	}
	return FormatDuration(p.CompletedAt.Sub(*p.StartedAt))
}

// FormatDuration renders a duration as "1h 15m 30s", omitting zero leading
// units.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		return "N/A"
	}
	total := int(d.Seconds())
	hours := total / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60
	switch {
	case hours > 0:
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	case minutes > 0:
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	default:
		return fmt.Sprintf("%ds", seconds)
	}
}

// Sink describes a destination capable of consuming job status
// notifications.
type Sink interface {
	SendJobStatus(ctx context.Context, payload JobStatusPayload) error
}

// SinkFunc adapts a function to the Sink interface (useful for tests).
type SinkFunc func(ctx context.Context, payload JobStatusPayload) error

// SendJobStatus implements the Sink interface.
func (f SinkFunc) SendJobStatus(ctx context.Context, payload JobStatusPayload) error {
	if f == nil {
		return nil
	}
	return f(ctx, payload)
}
