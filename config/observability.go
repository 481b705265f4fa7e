package config

import "strings"

// ObservabilityConfig groups notification and metrics configuration.
type ObservabilityConfig struct {
	// SlackWebhookURL enables Slack notifications when set.
	SlackWebhookURL string `env:"SLACK_WEBHOOK_URL"`

	// DiscordWebhookURL enables Discord notifications when set.
	DiscordWebhookURL string `env:"DISCORD_WEBHOOK_URL"`

	Metrics MetricsConfig
}

// MetricsConfig contains StatsD emission configuration.
type MetricsConfig struct {
	Enabled       bool   `env:"METRICS_ENABLED" envDefault:"false"`
	StatsdAddress string `env:"STATSD_ADDRESS"  envDefault:""`
}

// IsEnabled reports whether metrics should be emitted.
func (c *MetricsConfig) IsEnabled() bool {
	return c.Enabled && strings.TrimSpace(c.StatsdAddress) != ""
}

// Sanitize applies guardrails to observability configuration values.
func (c *ObservabilityConfig) Sanitize() {
	c.SlackWebhookURL = strings.TrimSpace(c.SlackWebhookURL)
	c.DiscordWebhookURL = strings.TrimSpace(c.DiscordWebhookURL)
	c.Metrics.StatsdAddress = strings.TrimSpace(c.Metrics.StatsdAddress)
}
