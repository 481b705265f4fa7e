package config

import (
	"strings"
	"time"
)

// WorkerConfig contains the distribution worker configuration.
type WorkerConfig struct {
	// QueueKey is the Valkey list the worker blocks on.
	QueueKey string `env:"WORKER_QUEUE_KEY" envDefault:"queued_jobs"`

	// TempBuildPath is where archives, extracted trees, descriptors and
	// downloaded artifacts are staged.
	TempBuildPath string `env:"TEMP_BUILD_PATH" envDefault:"/tmp"`

	// NotifyTimeout bounds each notification webhook delivery.
	NotifyTimeout time.Duration `env:"NOTIFY_TIMEOUT" envDefault:"10s"`
}

// Sanitize applies guardrails to worker configuration values.
func (c *WorkerConfig) Sanitize() {
	c.QueueKey = strings.TrimSpace(c.QueueKey)
	if c.QueueKey == "" {
		c.QueueKey = "queued_jobs"
	}
	c.TempBuildPath = strings.TrimSpace(c.TempBuildPath)
	if c.TempBuildPath == "" {
		c.TempBuildPath = "/tmp"
	}
	if c.NotifyTimeout <= 0 {
		c.NotifyTimeout = 10 * time.Second
	}
}

// SteamConfig contains the steamcmd uploader configuration. The login
// session itself is cached by steamcmd in its home volume; only the account
// name is needed here.
type SteamConfig struct {
	// Username is the steamcmd login account. Required for Steam uploads;
	// jobs with Steam channels fail fast when it is empty.
	Username string `env:"STEAM_USERNAME"`

	// Tool overrides the steamcmd binary path.
	Tool string `env:"STEAMCMD_PATH" envDefault:"steamcmd"`
}
