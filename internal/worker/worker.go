// Package worker contains the queue loop, the job lifecycle state machine
// and the upload fan-out orchestrator.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/buildrelay/relay-worker/internal/core"
	"github.com/buildrelay/relay-worker/internal/domain/model"
	"github.com/buildrelay/relay-worker/internal/observability/metrics"
	"github.com/buildrelay/relay-worker/internal/observability/statsd"
)

// dequeueRetryDelay throttles the loop when the queue backend errors, so a
// dead connection does not spin hot.
const dequeueRetryDelay = time.Second

// Options configures the worker.
type Options struct {
	Queue       core.JobQueue
	Store       core.JobStore
	Streams     core.LogStreams
	Distributor Distributor
	Notifier    core.Notifier
	Logger      *slog.Logger
	Metrics     statsd.Sink
}

// Worker dequeues jobs, drives the orchestrator and persists lifecycle
// transitions. One instance processes one job at a time; a job that starts
// runs to completion or failure with no external abort.
type Worker struct {
	queue       core.JobQueue
	store       core.JobStore
	streams     core.LogStreams
	distributor Distributor
	notifier    core.Notifier
	logger      *slog.Logger
	metrics     statsd.Sink
}

// New validates dependencies and constructs a worker.
func New(opts Options) (*Worker, error) {
	if opts.Queue == nil {
		return nil, errors.New("job queue is required")
	}
	if opts.Store == nil {
		return nil, errors.New("job store is required")
	}
	if opts.Streams == nil {
		return nil, errors.New("log streams are required")
	}
	if opts.Distributor == nil {
		return nil, errors.New("distributor is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	notifier := opts.Notifier
	if notifier == nil {
		notifier = core.NotifierFunc(nil)
	}

	return &Worker{
		queue:       opts.Queue,
		store:       opts.Store,
		streams:     opts.Streams,
		distributor: opts.Distributor,
		notifier:    notifier,
		logger:      logger,
		metrics:     opts.Metrics,
	}, nil
}

// Run blocks on the queue and processes jobs until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.InfoContext(ctx, "worker started, waiting for jobs")

	for {
		raw, err := w.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			w.logger.ErrorContext(ctx, "dequeue failed", "error", err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(dequeueRetryDelay):
			}
			continue
		}

		job, err := model.DecodeJob(raw)
		if err != nil {
			// Malformed payloads are dropped; there is no dead-letter
			// queue and no re-enqueue.
			w.logger.ErrorContext(ctx, "invalid job payload, dropping", "error", err)
			continue
		}

		w.logger.InfoContext(ctx, "processing job", "job_id", job.ID)
		sink := w.streams.ForJob(job.ID)
		sink.Log(ctx, fmt.Sprintf("Analyzing job %s...", job.ID), core.LevelInfo)
		w.process(ctx, job, sink)
	}
}

// process drives one job through running to a terminal status.
func (w *Worker) process(ctx context.Context, job *model.Job, sink core.LogSink) {
	start := time.Now()

	startedAt := start.UTC()
	job.Status = model.JobStatusRunning
	job.StartedAt = &startedAt
	if err := w.store.Transition(ctx, job, model.JobStatusQueued); err != nil {
		// Another writer already owns this job; leave it alone.
		w.logger.ErrorContext(ctx, "mark job running failed", "job_id", job.ID, "error", err)
		return
	}
	job.EnsureResults()

	if err := w.distributor.Distribute(ctx, job, sink); err != nil {
		sink.Log(ctx, fmt.Sprintf("Job processing failed: %v", err), core.LevelError)
		w.abort(ctx, job, sink, err)
		metrics.EmitJobLifecycle(w.metrics, metrics.JobMetric{
			Transition: model.JobStatusFailed.String(),
			Result:     metrics.ResultError,
			Duration:   time.Since(start),
			Err:        err,
		})
		return
	}

	completedAt := time.Now().UTC()
	job.Status = model.JobStatusComplete
	job.CompletedAt = &completedAt
	if err := w.store.Transition(ctx, job, model.JobStatusRunning); err != nil {
		w.logger.ErrorContext(ctx, "mark job complete failed", "job_id", job.ID, "error", err)
	}
	w.logger.InfoContext(ctx, "processed job", "job_id", job.ID)
	w.notifier.NotifyJobStatus(ctx, job, core.NotifyCompleted, "")

	metrics.EmitJobLifecycle(w.metrics, metrics.JobMetric{
		Transition: model.JobStatusComplete.String(),
		Result:     metrics.ResultSuccess,
		Duration:   time.Since(start),
	})
}

// abort moves a running job to failed, records the error text verbatim and
// dispatches the failure notification. Channel results appended before the
// failure remain on the job.
func (w *Worker) abort(ctx context.Context, job *model.Job, sink core.LogSink, cause error) {
	errMsg := fmt.Sprintf("Job processing failed: %v", cause)
	sink.Log(ctx, fmt.Sprintf("Aborting job %s: %s", job.ID, errMsg), core.LevelError)
	w.logger.ErrorContext(ctx, "aborting job", "job_id", job.ID, "error", cause)

	job.Status = model.JobStatusFailed
	job.Error = errMsg
	if err := w.store.Transition(ctx, job, model.JobStatusRunning); err != nil {
		w.logger.ErrorContext(ctx, "mark job failed failed", "job_id", job.ID, "error", err)
	}
	w.notifier.NotifyJobStatus(ctx, job, core.NotifyFailed, errMsg)
}
