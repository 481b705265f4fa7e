package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/buildrelay/relay-worker/internal/core"
	"github.com/buildrelay/relay-worker/internal/domain/model"
)

// ServiceOptions configures the notification fan-out service.
type ServiceOptions struct {
	Sinks  []Sink
	Logger *slog.Logger
	// Timeout bounds each sink delivery. Defaults to 10s.
	Timeout time.Duration
}

// Service fans job status notifications out to every configured sink. It
// implements the worker's Notifier port and never surfaces delivery errors:
// a job's fate must not depend on a webhook being up.
type Service struct {
	sinks   []Sink
	logger  *slog.Logger
	timeout time.Duration
}

var _ core.Notifier = (*Service)(nil)

// NewService constructs the fan-out service.
func NewService(opts ServiceOptions) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Service{sinks: opts.Sinks, logger: logger, timeout: timeout}
}

// NotifyJobStatus delivers the job outcome to all configured sinks,
// sequentially. Failures are logged and swallowed.
func (s *Service) NotifyJobStatus(ctx context.Context, job *model.Job, status core.NotifyStatus, errMsg string) {
	if len(s.sinks) == 0 {
		s.logger.DebugContext(ctx, "no notification sinks configured, skipping", "job_id", job.ID)
		return
	}

	payload := buildPayload(job, status, errMsg)
	s.logger.InfoContext(ctx, "sending job notification", "job_id", job.ID, "status", payload.Status)

	for _, sink := range s.sinks {
		sendCtx, cancel := context.WithTimeout(ctx, s.timeout)
		if err := sink.SendJobStatus(sendCtx, payload); err != nil {
			s.logger.ErrorContext(ctx, "job notification delivery failed", "job_id", job.ID, "error", err)
		}
		cancel()
	}
}

func buildPayload(job *model.Job, status core.NotifyStatus, errMsg string) JobStatusPayload {
	payload := JobStatusPayload{
		JobID:       job.ID,
		Project:     job.Project,
		Platform:    job.Platform,
		Source:      job.Source,
		Services:    job.Services,
		Status:      Status(status),
		Error:       errMsg,
		StartedAt:   job.StartedAt,
		CompletedAt: job.CompletedAt,
	}

	if job.UploadResults != nil {
		for _, res := range job.UploadResults.CDN {
			if res.Success && res.URL != "" {
				payload.CDNURL = res.URL
				break
			}
		}
		for _, res := range job.UploadResults.Steam {
			if res.BuildID != nil {
				payload.SteamBuildID = *res.BuildID
				if res.BranchSet != nil {
					payload.SteamBranch = *res.BranchSet
				}
				break
			}
		}
	}
	return payload
}
