package statsd

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// listenUDP starts a local UDP listener and returns it with a line reader.
func listenUDP(t *testing.T) (net.PacketConn, func() string) {
	t.Helper()

	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	readLine := func() string {
		buf := make([]byte, 4096)
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		n, _, readErr := conn.ReadFrom(buf)
		require.NoError(t, readErr)
		return string(buf[:n])
	}
	return conn, readLine
}

func TestClientCount(t *testing.T) {
	conn, readLine := listenUDP(t)

	client, err := NewClient(Config{
		Enabled: true,
		Address: conn.LocalAddr().String(),
		Prefix:  "buildrelay",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	client.Count("job.transition", 1, map[string]string{"result": "success", "transition": "complete"})
	assert.Equal(t, "buildrelay.job.transition:1|c|#result:success,transition:complete", readLine())
}

func TestClientTiming(t *testing.T) {
	conn, readLine := listenUDP(t)

	client, err := NewClient(Config{Enabled: true, Address: conn.LocalAddr().String()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	client.Timing("job.duration", 1500*time.Millisecond, nil)
	assert.Equal(t, "job.duration:1500|ms", readLine())
}

func TestClientMergesGlobalTags(t *testing.T) {
	conn, readLine := listenUDP(t)

	client, err := NewClient(Config{
		Enabled:    true,
		Address:    conn.LocalAddr().String(),
		GlobalTags: map[string]string{"env": "test", "result": "global"},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	// Local tags win; output is sorted by key.
	client.Count("hits", 2, map[string]string{"result": "local"})
	assert.Equal(t, "hits:2|c|#env:test,result:local", readLine())
}

func TestDisabledClientIsNoOp(t *testing.T) {
	client, err := NewClient(Config{Enabled: false, Address: "localhost:8125"})
	require.NoError(t, err)

	assert.NotPanics(t, func() {
		client.Count("x", 1, nil)
		client.Timing("y", time.Second, nil)
	})
	require.NoError(t, client.Close())
}

func TestEnabledWithoutAddressIsNoOp(t *testing.T) {
	client, err := NewClient(Config{Enabled: true, Address: "  "})
	require.NoError(t, err)
	assert.NotPanics(t, func() { client.Count("x", 1, nil) })
}

func TestNilClientIsSafe(t *testing.T) {
	var client *Client
	assert.NotPanics(t, func() {
		client.Count("x", 1, nil)
		client.Timing("y", time.Second, nil)
		_ = client.Close()
	})
}

func TestCloseIsIdempotent(t *testing.T) {
	conn, _ := listenUDP(t)
	client, err := NewClient(Config{Enabled: true, Address: conn.LocalAddr().String()})
	require.NoError(t, err)
	require.NoError(t, client.Close())
	require.NoError(t, client.Close())
}

func TestFormatTags(t *testing.T) {
	assert.Empty(t, formatTags(nil, nil))
	assert.Equal(t, "|#a:1", formatTags(map[string]string{"a": "1"}, nil))
	assert.Equal(t, "|#a:1,b:2", formatTags(map[string]string{"b": "2"}, map[string]string{"a": "1"}))
	// Empty values render as bare tags.
	assert.Equal(t, "|#flag", formatTags(nil, map[string]string{"flag": ""}))
}
