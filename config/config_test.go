package config

import (
	"testing"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppConfigDefaults(t *testing.T) {
	var cfg AppConfig
	require.NoError(t, env.Parse(&cfg))
	cfg.Sanitize()

	assert.False(t, cfg.IsDev)
	assert.Equal(t, "valkey", cfg.Valkey.Host)
	assert.Equal(t, 6379, cfg.Valkey.Port)
	assert.Equal(t, "valkey:6379", cfg.Valkey.Addr())
	assert.False(t, cfg.Valkey.UseTLS)

	assert.Equal(t, "queued_jobs", cfg.Worker.QueueKey)
	assert.Equal(t, "/tmp", cfg.Worker.TempBuildPath)
	assert.Equal(t, 10*time.Second, cfg.Worker.NotifyTimeout)

	assert.Empty(t, cfg.Steam.Username)
	assert.Equal(t, "steamcmd", cfg.Steam.Tool)

	assert.Empty(t, cfg.Observability.SlackWebhookURL)
	assert.Empty(t, cfg.Observability.DiscordWebhookURL)
	assert.False(t, cfg.Observability.Metrics.IsEnabled())
}

func TestAppConfigFromEnvironment(t *testing.T) {
	t.Setenv("DEV", "true")
	t.Setenv("VALKEY_HOST", "valkey.internal")
	t.Setenv("VALKEY_PORT", "16379")
	t.Setenv("VALKEY_PASSWORD", "hunter2")
	t.Setenv("VALKEY_USE_SSL", "true")
	t.Setenv("WORKER_QUEUE_KEY", "priority_jobs")
	t.Setenv("TEMP_BUILD_PATH", "/var/builds")
	t.Setenv("NOTIFY_TIMEOUT", "30s")
	t.Setenv("STEAM_USERNAME", "builder")
	t.Setenv("STEAMCMD_PATH", "/opt/steam/steamcmd.sh")
	t.Setenv("SLACK_WEBHOOK_URL", "https://hooks.slack.com/services/T/B/x")
	t.Setenv("DISCORD_WEBHOOK_URL", "https://discord.com/api/webhooks/1/x")
	t.Setenv("METRICS_ENABLED", "true")
	t.Setenv("STATSD_ADDRESS", "statsd:8125")

	var cfg AppConfig
	require.NoError(t, env.Parse(&cfg))
	cfg.Sanitize()

	assert.True(t, cfg.IsDev)
	assert.Equal(t, "valkey.internal:16379", cfg.Valkey.Addr())
	assert.Equal(t, "hunter2", cfg.Valkey.Password)
	assert.True(t, cfg.Valkey.UseTLS)

	assert.Equal(t, "priority_jobs", cfg.Worker.QueueKey)
	assert.Equal(t, "/var/builds", cfg.Worker.TempBuildPath)
	assert.Equal(t, 30*time.Second, cfg.Worker.NotifyTimeout)

	assert.Equal(t, "builder", cfg.Steam.Username)
	assert.Equal(t, "/opt/steam/steamcmd.sh", cfg.Steam.Tool)

	assert.Equal(t, "https://hooks.slack.com/services/T/B/x", cfg.Observability.SlackWebhookURL)
	assert.True(t, cfg.Observability.Metrics.IsEnabled())
}

func TestSanitizeGuardrails(t *testing.T) {
	cfg := AppConfig{
		Valkey: ValkeyConfig{Host: "   ", Port: -1},
		Worker: WorkerConfig{QueueKey: "  ", TempBuildPath: " ", NotifyTimeout: 0},
		Observability: ObservabilityConfig{
			SlackWebhookURL: "  https://hooks.slack.com/x  ",
			Metrics:         MetricsConfig{Enabled: true, StatsdAddress: "  "},
		},
	}
	cfg.Sanitize()

	assert.Equal(t, "valkey", cfg.Valkey.Host)
	assert.Equal(t, 6379, cfg.Valkey.Port)
	assert.Equal(t, "queued_jobs", cfg.Worker.QueueKey)
	assert.Equal(t, "/tmp", cfg.Worker.TempBuildPath)
	assert.Equal(t, 10*time.Second, cfg.Worker.NotifyTimeout)
	assert.Equal(t, "https://hooks.slack.com/x", cfg.Observability.SlackWebhookURL)
	// Enabled flag alone is not enough without an address.
	assert.False(t, cfg.Observability.Metrics.IsEnabled())
}
