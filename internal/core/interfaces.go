// Package core defines the ports shared between the worker, its drivers and
// the infrastructure adapters. Adapters implement these interfaces; services
// accept them so tests can substitute fakes.
package core

import (
	"context"

	"github.com/buildrelay/relay-worker/internal/domain/model"
)

// LogLevel classifies a job log line.
type LogLevel string

const (
	LevelInfo    LogLevel = "info"
	LevelWarning LogLevel = "warning"
	LevelError   LogLevel = "error"
)

// LogSink is an append-only, per-job ordered log destination. Implementations
// must not fail the caller; delivery problems are their own concern.
type LogSink interface {
	Log(ctx context.Context, line string, level LogLevel)
}

// LogSinkFunc adapts a function to the LogSink interface (useful for tests).
type LogSinkFunc func(ctx context.Context, line string, level LogLevel)

// Log implements the LogSink interface.
func (f LogSinkFunc) Log(ctx context.Context, line string, level LogLevel) {
	if f != nil {
		f(ctx, line, level)
	}
}

// LogStreams yields the log sink for a given job.
type LogStreams interface {
	ForJob(jobID string) LogSink
}

// JobQueue is the durable FIFO work queue feeding the worker.
type JobQueue interface {
	// Dequeue blocks until a raw job payload is available or ctx is done.
	Dequeue(ctx context.Context) ([]byte, error)
	Enqueue(ctx context.Context, job *model.Job) error
}

// JobStore is the keyed lifecycle record store. Records are indexed by job id
// with a status field; transitions are atomic compare-and-set operations, so
// concurrent writers can never leave stale duplicates behind.
type JobStore interface {
	// Transition persists job and atomically moves it from status `from`
	// to job.Status. It fails when the stored status no longer matches.
	Transition(ctx context.Context, job *model.Job, from model.JobStatus) error
	Get(ctx context.Context, id string) (*model.Job, error)
	// Counts returns the number of jobs per status.
	Counts(ctx context.Context) (map[model.JobStatus]int64, error)
}

// ObjectStore is the minimal contract against the bucket-like destination of
// a single content-delivery channel.
type ObjectStore interface {
	PutObject(ctx context.Context, filePath, bucket, key string) error
	// SetPublicRead applies a public-read policy to an uploaded object.
	// Callers treat failures as best-effort.
	SetPublicRead(ctx context.Context, bucket, key string) error
}

// ObjectStoreFactory builds an ObjectStore from per-channel credentials.
type ObjectStoreFactory func(cfg model.CDNChannel) (ObjectStore, error)

// ProcessRunner spawns an external command, streams its merged
// stdout/stderr line-by-line through onLine as the process produces them,
// waits for completion and reports the exit code. err covers spawn and
// stream failures only; a non-zero exit is reported through the code.
type ProcessRunner interface {
	Run(ctx context.Context, name string, args []string, onLine func(line string)) (exitCode int, err error)
}

// Resolver classifies an artifact path and produces a path usable by a given
// destination kind.
type Resolver interface {
	// ForCDN returns a single uploadable file, archiving directories.
	ForCDN(ctx context.Context, jobID, absPath string, sink LogSink) (string, error)
	// ForSteam returns a build directory, extracting zip archives.
	ForSteam(ctx context.Context, jobID, absPath string, sink LogSink) (string, error)
}

// CDNDriver uploads one prepared file to one content-delivery channel.
type CDNDriver interface {
	Upload(ctx context.Context, cfg model.CDNChannel, filePath string, sink LogSink) (model.CDNUploadResult, error)
}

// SteamDriver publishes one prepared build directory to one Steam channel.
type SteamDriver interface {
	Upload(ctx context.Context, cfg model.SteamChannel, buildDir, description string, sink LogSink) (model.SteamUploadResult, error)
}

// ArtifactFetcher downloads a remote artifact referenced by job metadata and
// returns its local path.
type ArtifactFetcher interface {
	Fetch(ctx context.Context, job *model.Job, sink LogSink) (string, error)
}

// NotifyStatus is the terminal outcome reported to notification sinks.
type NotifyStatus string

const (
	NotifyCompleted NotifyStatus = "completed"
	NotifyFailed    NotifyStatus = "failed"
)

// Notifier reports job completion or failure to external channels. It must
// not raise: delivery failures are swallowed and logged by the implementation.
type Notifier interface {
	NotifyJobStatus(ctx context.Context, job *model.Job, status NotifyStatus, errMsg string)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(ctx context.Context, job *model.Job, status NotifyStatus, errMsg string)

// NotifyJobStatus implements the Notifier interface.
func (f NotifierFunc) NotifyJobStatus(ctx context.Context, job *model.Job, status NotifyStatus, errMsg string) {
	if f != nil {
		f(ctx, job, status, errMsg)
	}
}
