package valkey

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/buildrelay/relay-worker/internal/core"
)

// StreamKeyPrefix prefixes per-job log stream keys.
const StreamKeyPrefix = "job_stream:"

// LogStreams hands out the append-only log stream for each job.
type LogStreams struct {
	client redis.UniversalClient
	logger *slog.Logger
}

var _ core.LogStreams = (*LogStreams)(nil)

// NewLogStreams creates the per-job log stream factory.
func NewLogStreams(client redis.UniversalClient, logger *slog.Logger) *LogStreams {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogStreams{client: client, logger: logger}
}

// ForJob returns the log sink writing to job_stream:{jobID}.
func (s *LogStreams) ForJob(jobID string) core.LogSink {
	return &streamSink{
		client: s.client,
		logger: s.logger,
		key:    StreamKeyPrefix + jobID,
	}
}

type streamSink struct {
	client redis.UniversalClient
	logger *slog.Logger
	key    string
}

// Log appends one line to the job stream. Entries carry the line, an RFC 3339
// timestamp and a single-letter level code, matching what the dashboard
// consumes. Delivery failures are logged, never surfaced to the caller.
func (s *streamSink) Log(ctx context.Context, line string, level core.LogLevel) {
	err := s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: s.key,
		Values: map[string]any{
			"line":      line,
			"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
			"level":     levelCode(level),
		},
	}).Err()
	if err != nil {
		s.logger.ErrorContext(ctx, "append job log line", "stream", s.key, "error", err)
	}
}

func levelCode(level core.LogLevel) string {
	v := strings.ToLower(string(level))
	if v == "" {
		return "i"
	}
	return v[:1]
}
