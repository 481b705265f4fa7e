package valkey

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/buildrelay/relay-worker/internal/core"
	"github.com/buildrelay/relay-worker/internal/testutil"
)

func TestLogStreamsAppendInOrder(t *testing.T) {
	client := testutil.SetupTestValkey(t)
	streams := NewLogStreams(client, nil)
	ctx := context.Background()

	sink := streams.ForJob("job-1")
	sink.Log(ctx, "Analyzing job job-1...", core.LevelInfo)
	sink.Log(ctx, "Could not extract Build ID from output", core.LevelWarning)
	sink.Log(ctx, "CDN upload failed: boom", core.LevelError)

	entries, err := client.XRange(ctx, StreamKeyPrefix+"job-1", "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, "Analyzing job job-1...", entries[0].Values["line"])
	assert.Equal(t, "i", entries[0].Values["level"])
	assert.Equal(t, "w", entries[1].Values["level"])
	assert.Equal(t, "e", entries[2].Values["level"])

	// Timestamps are RFC 3339 and parseable.
	ts, ok := entries[0].Values["timestamp"].(string)
	require.True(t, ok)
	_, parseErr := time.Parse(time.RFC3339Nano, ts)
	require.NoError(t, parseErr)
}

func TestLogStreamsIsolatePerJob(t *testing.T) {
	client := testutil.SetupTestValkey(t)
	streams := NewLogStreams(client, nil)
	ctx := context.Background()

	streams.ForJob("job-a").Log(ctx, "line a", core.LevelInfo)
	streams.ForJob("job-b").Log(ctx, "line b", core.LevelInfo)

	a, err := client.XRange(ctx, StreamKeyPrefix+"job-a", "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, a, 1)
	assert.Equal(t, "line a", a[0].Values["line"])

	b, err := client.XRange(ctx, StreamKeyPrefix+"job-b", "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, b, 1)
	assert.Equal(t, "line b", b[0].Values["line"])
}

func TestLogStreamsSwallowDeliveryFailures(t *testing.T) {
	// A client pointed at a dead address must not panic or surface errors.
	dead := redis.NewClient(&redis.Options{Addr: "localhost:1", DialTimeout: 100 * time.Millisecond})
	t.Cleanup(func() { _ = dead.Close() })

	streams := NewLogStreams(dead, nil)
	assert.NotPanics(t, func() {
		streams.ForJob("job-x").Log(context.Background(), "line", core.LevelInfo)
	})
}

func TestLevelCode(t *testing.T) {
	assert.Equal(t, "i", levelCode(core.LevelInfo))
	assert.Equal(t, "w", levelCode(core.LevelWarning))
	assert.Equal(t, "e", levelCode(core.LevelError))
	assert.Equal(t, "i", levelCode(""))
}
