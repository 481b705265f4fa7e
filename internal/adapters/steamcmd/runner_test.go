package steamcmd

import (
	"context"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("test requires a POSIX shell")
	}
}

func TestRunStreamsLinesInWriteOrder(t *testing.T) {
	requireShell(t)

	var lines []string
	r := NewRunner()
	code, err := r.Run(context.Background(), "/bin/sh",
		[]string{"-c", "echo one; echo two >&2; echo three"},
		func(line string) { lines = append(lines, line) })

	require.NoError(t, err)
	assert.Zero(t, code)
	// Stdout and stderr share one pipe, so the interleaved order the process
	// wrote in is preserved.
	assert.Equal(t, []string{"one", "two", "three"}, lines)
}

func TestRunReportsNonZeroExitWithoutError(t *testing.T) {
	requireShell(t)

	var lines []string
	r := NewRunner()
	code, err := r.Run(context.Background(), "/bin/sh",
		[]string{"-c", "echo failing; exit 8"},
		func(line string) { lines = append(lines, line) })

	require.NoError(t, err)
	assert.Equal(t, 8, code)
	assert.Equal(t, []string{"failing"}, lines)
}

func TestRunSpawnFailure(t *testing.T) {
	r := NewRunner()
	_, err := r.Run(context.Background(), "/nonexistent/steamcmd", nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "start")
}

func TestRunNilOnLine(t *testing.T) {
	requireShell(t)

	r := NewRunner()
	code, err := r.Run(context.Background(), "/bin/sh", []string{"-c", "echo ignored"}, nil)
	require.NoError(t, err)
	assert.Zero(t, code)
}

func TestRunHonorsContextCancellation(t *testing.T) {
	requireShell(t)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	r := NewRunner()
	start := time.Now()
	code, err := r.Run(ctx, "/bin/sh", []string{"-c", "sleep 30"}, nil)

	assert.Less(t, time.Since(start), 5*time.Second)
	// A killed process surfaces as a non-zero exit code, not a stream error.
	if err == nil {
		assert.NotZero(t, code)
	}
}
