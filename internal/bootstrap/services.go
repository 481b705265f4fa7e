package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/buildrelay/relay-worker/config"
	s3adapter "github.com/buildrelay/relay-worker/internal/adapters/s3"
	"github.com/buildrelay/relay-worker/internal/adapters/steamcmd"
	"github.com/buildrelay/relay-worker/internal/adapters/valkey"
	"github.com/buildrelay/relay-worker/internal/ingest"
	"github.com/buildrelay/relay-worker/internal/observability/notify"
	"github.com/buildrelay/relay-worker/internal/observability/notify/discord"
	"github.com/buildrelay/relay-worker/internal/observability/notify/slack"
	"github.com/buildrelay/relay-worker/internal/observability/statsd"
	"github.com/buildrelay/relay-worker/internal/service/cdn"
	"github.com/buildrelay/relay-worker/internal/service/steam"
	"github.com/buildrelay/relay-worker/internal/service/unitycloud"
	"github.com/buildrelay/relay-worker/internal/worker"
)

// WorkerDeps groups dependencies for worker construction.
type WorkerDeps struct {
	Config *config.AppConfig
	Client redis.UniversalClient
	Logger *slog.Logger
}

// WorkerContainer holds the assembled worker and the resources it owns.
type WorkerContainer struct {
	Worker  *worker.Worker
	Metrics *statsd.Client
}

// BuildWorker wires adapters, drivers and the orchestrator into a runnable
// worker.
func BuildWorker(deps WorkerDeps) (*WorkerContainer, error) {
	cfg := deps.Config
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	metricsSink, err := buildMetrics(cfg.Observability.Metrics, logger)
	if err != nil {
		return nil, err
	}

	notifier := notify.NewService(notify.ServiceOptions{
		Sinks:   buildNotifySinks(cfg.Observability, logger),
		Logger:  logger,
		Timeout: cfg.Worker.NotifyTimeout,
	})

	resolver := ingest.NewPathResolver(cfg.Worker.TempBuildPath)
	orchestrator := worker.NewOrchestrator(worker.OrchestratorOptions{
		Resolver: resolver,
		CDN:      cdn.NewUploader(s3adapter.Factory),
		Steam: steam.NewUploader(steam.UploaderOptions{
			Account:     cfg.Steam.Username,
			Tool:        cfg.Steam.Tool,
			Runner:      steamcmd.NewRunner(),
			Descriptors: steam.NewDescriptorBuilder(cfg.Worker.TempBuildPath),
		}),
		Fetcher: unitycloud.NewFetcher(unitycloud.FetcherOptions{
			TempDir: cfg.Worker.TempBuildPath,
		}),
	})

	w, err := worker.New(worker.Options{
		Queue:       valkey.NewJobQueueWithKey(deps.Client, cfg.Worker.QueueKey),
		Store:       valkey.NewJobStore(deps.Client),
		Streams:     valkey.NewLogStreams(deps.Client, logger),
		Distributor: orchestrator,
		Notifier:    notifier,
		Logger:      logger,
		Metrics:     metricsSink,
	})
	if err != nil {
		return nil, fmt.Errorf("build worker: %w", err)
	}

	return &WorkerContainer{Worker: w, Metrics: metricsSink}, nil
}

func buildMetrics(cfg config.MetricsConfig, logger *slog.Logger) (*statsd.Client, error) {
	if !cfg.IsEnabled() {
		return nil, nil
	}
	client, err := statsd.NewClient(statsd.Config{
		Enabled: true,
		Address: cfg.StatsdAddress,
		Prefix:  "buildrelay",
		Logger:  logger,
	})
	if err != nil {
		return nil, fmt.Errorf("initialise statsd client: %w", err)
	}
	return client, nil
}

func buildNotifySinks(cfg config.ObservabilityConfig, logger *slog.Logger) []notify.Sink {
	var sinks []notify.Sink

	if cfg.SlackWebhookURL != "" {
		client, err := slack.NewClient(slack.Config{WebhookURL: cfg.SlackWebhookURL})
		if err != nil {
			logger.Error("slack notifications disabled", "error", err)
		} else {
			logger.Info("slack notifications enabled")
			sinks = append(sinks, client)
		}
	}
	if cfg.DiscordWebhookURL != "" {
		client, err := discord.NewClient(discord.Config{WebhookURL: cfg.DiscordWebhookURL})
		if err != nil {
			logger.Error("discord notifications disabled", "error", err)
		} else {
			logger.Info("discord notifications enabled")
			sinks = append(sinks, client)
		}
	}
	return sinks
}

// RunWithShutdown runs the worker until SIGINT/SIGTERM, then releases the
// resources it owns.
func RunWithShutdown(ctx context.Context, container *WorkerContainer, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return container.Worker.Run(gctx)
	})

	err := g.Wait()
	if container.Metrics != nil {
		if cerr := container.Metrics.Close(); cerr != nil && logger != nil {
			logger.Error("close statsd client", "error", cerr)
		}
	}
	if err != nil && ctx.Err() != nil {
		// Clean shutdown on signal.
		return nil
	}
	return err
}
