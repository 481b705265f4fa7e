package worker

import (
	"context"
	"fmt"

	"github.com/buildrelay/relay-worker/internal/core"
	"github.com/buildrelay/relay-worker/internal/domain/model"
)

// Distributor fans one job's artifact out to its configured destinations.
type Distributor interface {
	Distribute(ctx context.Context, job *model.Job, sink core.LogSink) error
}

// OrchestratorOptions configures the upload fan-out orchestrator.
type OrchestratorOptions struct {
	Resolver core.Resolver
	CDN      core.CDNDriver
	Steam    core.SteamDriver
	// Fetcher downloads remote artifacts for unity-cloud sourced jobs.
	// Optional; jobs with a remote source fail when absent.
	Fetcher core.ArtifactFetcher
}

// Orchestrator drives the ingest resolver and both upload drivers across all
// of a job's channels, strictly sequentially: CDN channels first in list
// order, then Steam channels in list order. The first channel failure aborts
// the whole job; results appended before the failure stay on the job.
type Orchestrator struct {
	resolver core.Resolver
	cdn      core.CDNDriver
	steam    core.SteamDriver
	fetcher  core.ArtifactFetcher
}

var _ Distributor = (*Orchestrator)(nil)

// NewOrchestrator constructs the fan-out orchestrator.
func NewOrchestrator(opts OrchestratorOptions) *Orchestrator {
	return &Orchestrator{
		resolver: opts.Resolver,
		cdn:      opts.CDN,
		steam:    opts.Steam,
		fetcher:  opts.Fetcher,
	}
}

// Distribute processes every configured channel for one job. Phases with
// zero configured channels are skipped entirely.
func (o *Orchestrator) Distribute(ctx context.Context, job *model.Job, sink core.LogSink) error {
	job.EnsureResults()

	if job.Source == model.SourceUnityCloud {
		if err := o.fetchArtifact(ctx, job, sink); err != nil {
			return err
		}
	}

	if len(job.CDNChannels) > 0 && job.HasIngest() {
		if err := o.distributeCDN(ctx, job, sink); err != nil {
			return err
		}
	}

	if len(job.SteamChannels) > 0 && job.HasIngest() {
		if err := o.distributeSteam(ctx, job, sink); err != nil {
			return err
		}
	}

	return nil
}

func (o *Orchestrator) fetchArtifact(ctx context.Context, job *model.Job, sink core.LogSink) error {
	sink.Log(ctx, "Processing Unity Cloud Build job...", core.LevelInfo)
	if o.fetcher == nil {
		return fmt.Errorf("job %s has a unity-cloud source but no artifact fetcher is configured", job.ID)
	}
	path, err := o.fetcher.Fetch(ctx, job, sink)
	if err != nil {
		sink.Log(ctx, fmt.Sprintf("Failed to process Unity Cloud Build artifact: %v", err), core.LevelError)
		return err
	}
	// Downstream resolvers handle extraction when the artifact is a zip.
	job.IngestPath = path
	job.AbsoluteIngestPath = path
	return nil
}

func (o *Orchestrator) distributeCDN(ctx context.Context, job *model.Job, sink core.LogSink) error {
	sink.Log(ctx, fmt.Sprintf("Preparing build for CDN upload from %s...", job.IngestPath), core.LevelInfo)
	filePath, err := o.resolver.ForCDN(ctx, job.ID, job.AbsoluteIngestPath, sink)
	if err != nil {
		return err
	}

	for _, channel := range job.CDNChannels {
		sink.Log(ctx, fmt.Sprintf("Uploading to CDN channel '%s'...", channel.Label), core.LevelInfo)
		result, uerr := o.cdn.Upload(ctx, channel, filePath, sink)
		if uerr != nil {
			sink.Log(ctx, fmt.Sprintf("CDN upload failed: %v", uerr), core.LevelError)
			return uerr
		}
		job.UploadResults.CDN = append(job.UploadResults.CDN, result)
	}
	return nil
}

func (o *Orchestrator) distributeSteam(ctx context.Context, job *model.Job, sink core.LogSink) error {
	sink.Log(ctx, fmt.Sprintf("Preparing build for Steam upload from %s...", job.IngestPath), core.LevelInfo)
	buildDir, err := o.resolver.ForSteam(ctx, job.ID, job.AbsoluteIngestPath, sink)
	if err != nil {
		return err
	}

	for _, channel := range job.SteamChannels {
		sink.Log(ctx, fmt.Sprintf("Preparing Steam upload to channel '%s' for app %s...", channel.Label, channel.AppID), core.LevelInfo)
		result, uerr := o.steam.Upload(ctx, channel, buildDir, job.Description, sink)
		if uerr != nil {
			sink.Log(ctx, fmt.Sprintf("Steam upload failed: %v", uerr), core.LevelError)
			return uerr
		}
		job.UploadResults.Steam = append(job.UploadResults.Steam, result)
	}
	return nil
}
