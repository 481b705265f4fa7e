package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/buildrelay/relay-worker/internal/core"
	"github.com/buildrelay/relay-worker/internal/domain/model"
	"github.com/buildrelay/relay-worker/internal/testutil"
)

type capturedLine struct {
	line  string
	level core.LogLevel
}

func captureSink(lines *[]capturedLine) core.LogSink {
	return core.LogSinkFunc(func(_ context.Context, line string, level core.LogLevel) {
		*lines = append(*lines, capturedLine{line: line, level: level})
	})
}

func TestNewPathResolverDefaultsTempDir(t *testing.T) {
	assert.Equal(t, os.TempDir(), NewPathResolver("").TempDir)
	assert.Equal(t, os.TempDir(), NewPathResolver("   ").TempDir)
	assert.Equal(t, "/var/builds", NewPathResolver("/var/builds").TempDir)
}

func TestForCDNFilePassesThrough(t *testing.T) {
	dir := t.TempDir()
	filePath := filepath.Join(dir, "game.zip")
	require.NoError(t, os.WriteFile(filePath, []byte("archive"), 0o644))

	var lines []capturedLine
	r := NewPathResolver(t.TempDir())
	got, err := r.ForCDN(context.Background(), "job-1", filePath, captureSink(&lines))
	require.NoError(t, err)
	assert.Equal(t, filePath, got)
}

func TestForCDNDirectoryIsArchived(t *testing.T) {
	srcDir := t.TempDir()
	testutil.WriteTestTree(t, srcDir, map[string]string{
		"game.exe":        "bin",
		"data/level1.dat": "lvl",
	})

	tempDir := t.TempDir()
	var lines []capturedLine
	r := NewPathResolver(tempDir)
	got, err := r.ForCDN(context.Background(), "job-2", srcDir, captureSink(&lines))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(tempDir, "job-2.zip"), got)

	info, statErr := os.Stat(got)
	require.NoError(t, statErr)
	assert.Positive(t, info.Size())
}

func TestForCDNMissingPath(t *testing.T) {
	var lines []capturedLine
	r := NewPathResolver(t.TempDir())
	_, err := r.ForCDN(context.Background(), "job-3", filepath.Join(t.TempDir(), "gone"), captureSink(&lines))
	require.Error(t, err)

	var pathErr *model.PathError
	require.True(t, errors.As(err, &pathErr))

	require.NotEmpty(t, lines)
	assert.Equal(t, core.LevelError, lines[len(lines)-1].level)
}

func TestForSteamDirectoryPassesThrough(t *testing.T) {
	srcDir := t.TempDir()
	var lines []capturedLine
	r := NewPathResolver(t.TempDir())
	got, err := r.ForSteam(context.Background(), "job-4", srcDir, captureSink(&lines))
	require.NoError(t, err)
	assert.Equal(t, srcDir, got)
}

func TestForSteamZipIsExtracted(t *testing.T) {
	srcDir := t.TempDir()
	files := map[string]string{
		"game.exe":        "bin",
		"data/level1.dat": "lvl",
	}
	testutil.WriteTestTree(t, srcDir, files)

	tempDir := t.TempDir()
	archivePath := filepath.Join(tempDir, "build.ZIP") // extension match is case-insensitive
	require.NoError(t, ZipDir(srcDir, archivePath))

	var lines []capturedLine
	r := NewPathResolver(tempDir)
	got, err := r.ForSteam(context.Background(), "job-5", archivePath, captureSink(&lines))
	require.NoError(t, err)

	assert.Contains(t, filepath.Base(got), "job-5_steam_")
	assert.Equal(t, files, testutil.ReadTestTree(t, got))
}

func TestForSteamLooseFileResolvesToParent(t *testing.T) {
	dir := t.TempDir()
	filePath := filepath.Join(dir, "game.exe")
	require.NoError(t, os.WriteFile(filePath, []byte("bin"), 0o644))

	var lines []capturedLine
	r := NewPathResolver(t.TempDir())
	got, err := r.ForSteam(context.Background(), "job-6", filePath, captureSink(&lines))
	require.NoError(t, err)
	assert.Equal(t, dir, got)
}

func TestForSteamMissingPath(t *testing.T) {
	var lines []capturedLine
	r := NewPathResolver(t.TempDir())
	_, err := r.ForSteam(context.Background(), "job-7", filepath.Join(t.TempDir(), "gone"), captureSink(&lines))
	require.Error(t, err)

	var pathErr *model.PathError
	require.True(t, errors.As(err, &pathErr))
}

func TestForCDNIsIdempotentForSameJob(t *testing.T) {
	srcDir := t.TempDir()
	testutil.WriteTestTree(t, srcDir, map[string]string{"a.txt": "a"})

	tempDir := t.TempDir()
	var lines []capturedLine
	r := NewPathResolver(tempDir)

	first, err := r.ForCDN(context.Background(), "job-8", srcDir, captureSink(&lines))
	require.NoError(t, err)
	second, err := r.ForCDN(context.Background(), "job-8", srcDir, captureSink(&lines))
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
