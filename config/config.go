// Package config holds the application configuration, loaded from
// environment variables via github.com/caarlos0/env. See the individual
// domain config files for the available variables:
//   - valkey.go: Valkey/Redis connection configuration
//   - services.go: worker and Steam uploader configuration
//   - observability.go: notification webhooks and metrics
package config

// AppConfig is the main application configuration struct that composes
// domain-specific configuration from separate files.
type AppConfig struct {
	// IsDev controls development mode behavior. Set DEV=true to enable.
	IsDev bool `env:"DEV" envDefault:"false"`

	// Valkey connection configuration
	Valkey ValkeyConfig `envPrefix:"VALKEY_"`

	// Worker configuration
	Worker WorkerConfig

	// Steam uploader configuration
	Steam SteamConfig

	// Observability configuration
	Observability ObservabilityConfig
}

// Sanitize applies guardrails to configuration values loaded from env.
// This should be called after loading configuration from environment
// variables.
func (c *AppConfig) Sanitize() {
	c.Valkey.Sanitize()
	c.Worker.Sanitize()
	c.Observability.Sanitize()
}
