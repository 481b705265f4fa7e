package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/buildrelay/relay-worker/internal/bootstrap"
)

func main() {
	ctx := context.Background()
	logger := bootstrap.InitLogger()
	if err := run(ctx, logger); err != nil {
		logger.ErrorContext(ctx, "fatal error", "error", err)
		os.Exit(1) //nolint:forbidigo // Main entrypoint should exit with non-zero status on fatal errors.
	}
}

func run(ctx context.Context, logger *slog.Logger) error {
	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		return err
	}

	logger.InfoContext(ctx, "starting relay worker",
		"valkey_addr", cfg.Valkey.Addr(),
		"queue", cfg.Worker.QueueKey,
		"temp_build_path", cfg.Worker.TempBuildPath,
		"slack_notifications", cfg.Observability.SlackWebhookURL != "",
		"discord_notifications", cfg.Observability.DiscordWebhookURL != "")

	client, err := bootstrap.ConnectValkey(cfg.Valkey, logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := client.Close(); cerr != nil {
			logger.ErrorContext(ctx, "close valkey failed", "error", cerr)
		}
	}()

	container, err := bootstrap.BuildWorker(bootstrap.WorkerDeps{
		Config: &cfg,
		Client: client,
		Logger: logger,
	})
	if err != nil {
		return err
	}

	return bootstrap.RunWithShutdown(ctx, container, logger)
}
