package config

import (
	"net"
	"strconv"
	"strings"
)

// ValkeyConfig contains Valkey/Redis connection configuration. The variable
// names match what the enqueueing API and dashboard already use.
type ValkeyConfig struct {
	Host     string `env:"HOST"     envDefault:"valkey"`
	Port     int    `env:"PORT"     envDefault:"6379"`
	Password string `env:"PASSWORD" envDefault:""`
	// UseTLS enables TLS on the connection (VALKEY_USE_SSL in the
	// original deployment).
	UseTLS bool `env:"USE_SSL" envDefault:"false"`
}

// Addr returns the host:port address for the client.
func (c *ValkeyConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Sanitize applies guardrails to connection values.
func (c *ValkeyConfig) Sanitize() {
	c.Host = strings.TrimSpace(c.Host)
	if c.Host == "" {
		c.Host = "valkey"
	}
	if c.Port <= 0 || c.Port > 65535 {
		c.Port = 6379
	}
}
