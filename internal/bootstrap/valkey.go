package bootstrap

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/buildrelay/relay-worker/config"
)

// ConnectValkey establishes and verifies a connection to the Valkey server
// backing the queue, job store and log streams.
//
//nolint:ireturn // returning redis.UniversalClient keeps client selection flexible.
func ConnectValkey(cfg config.ValkeyConfig, logger *slog.Logger) (redis.UniversalClient, error) {
	opts := &redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       0,
	}
	if cfg.UseTLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		if cerr := client.Close(); cerr != nil && logger != nil {
			logger.ErrorContext(ctx, "close valkey after ping failure", "error", cerr)
		}
		return nil, fmt.Errorf("ping valkey at %s: %w", cfg.Addr(), err)
	}

	if logger != nil {
		logger.Info("valkey connected", "addr", cfg.Addr(), "tls", cfg.UseTLS)
	}
	return client, nil
}
