// Package ingest classifies build artifact paths and prepares them for a
// destination kind: a single archive file for CDN uploads, a directory tree
// for Steam uploads.
package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/buildrelay/relay-worker/internal/core"
	"github.com/buildrelay/relay-worker/internal/domain/model"
)

const archiveExt = ".zip"

// PathResolver resolves a job's ingest path into something a driver can
// consume. Temporary files and directories it creates are not cleaned up
// here; the deployment prunes the temp build path out of band.
type PathResolver struct {
	// TempDir is where archives and extracted trees land.
	// Defaults to os.TempDir().
	TempDir string
}

var _ core.Resolver = (*PathResolver)(nil)

// NewPathResolver builds a resolver rooted at tempDir.
func NewPathResolver(tempDir string) *PathResolver {
	if strings.TrimSpace(tempDir) == "" {
		tempDir = os.TempDir()
	}
	return &PathResolver{TempDir: tempDir}
}

// ForCDN returns a single uploadable file for absPath: regular files pass
// through unchanged, directories are zipped into {TempDir}/{jobID}.zip.
func (r *PathResolver) ForCDN(ctx context.Context, jobID, absPath string, sink core.LogSink) (string, error) {
	info, err := os.Stat(absPath)
	if err != nil {
		sink.Log(ctx, fmt.Sprintf("Path does not exist: %s", absPath), core.LevelError)
		return "", &model.PathError{Path: absPath, Reason: "build path does not exist"}
	}

	switch {
	case info.Mode().IsRegular():
		sink.Log(ctx, fmt.Sprintf("Found file: %s", absPath), core.LevelInfo)
		return absPath, nil
	case info.IsDir():
		sink.Log(ctx, fmt.Sprintf("Found directory: %s, creating zip archive...", absPath), core.LevelInfo)
		archivePath := filepath.Join(r.TempDir, jobID+archiveExt)
		if zerr := ZipDir(absPath, archivePath); zerr != nil {
			sink.Log(ctx, fmt.Sprintf("Error creating zip: %v", zerr), core.LevelError)
			return "", fmt.Errorf("create archive for %s: %w", absPath, zerr)
		}
		sink.Log(ctx, fmt.Sprintf("Successfully created zip file: %s", archivePath), core.LevelInfo)
		return archivePath, nil
	default:
		return "", &model.PathError{Path: absPath, Reason: "unsupported path kind"}
	}
}

// ForSteam returns a build directory for absPath. Directories pass through,
// zip archives are extracted into a fresh temp directory. A single non-zip
// file resolves to its parent directory: loose files are assumed to sit
// beside their real build tree.
func (r *PathResolver) ForSteam(ctx context.Context, jobID, absPath string, sink core.LogSink) (string, error) {
	info, err := os.Stat(absPath)
	if err != nil {
		sink.Log(ctx, fmt.Sprintf("Path does not exist: %s", absPath), core.LevelError)
		return "", &model.PathError{Path: absPath, Reason: "build path does not exist"}
	}

	switch {
	case info.IsDir():
		sink.Log(ctx, fmt.Sprintf("Found directory: %s", absPath), core.LevelInfo)
		return absPath, nil
	case info.Mode().IsRegular():
		if strings.HasSuffix(strings.ToLower(absPath), archiveExt) {
			sink.Log(ctx, fmt.Sprintf("Found zip file: %s, extracting to temp directory...", absPath), core.LevelInfo)
			destDir, mkErr := os.MkdirTemp(r.TempDir, jobID+"_steam_")
			if mkErr != nil {
				return "", fmt.Errorf("create extraction directory: %w", mkErr)
			}
			if uerr := Unzip(absPath, destDir); uerr != nil {
				sink.Log(ctx, fmt.Sprintf("Error extracting zip: %v", uerr), core.LevelError)
				return "", fmt.Errorf("extract %s: %w", absPath, uerr)
			}
			return destDir, nil
		}
		sink.Log(ctx, fmt.Sprintf("Found single file (not zip): %s, using parent directory", absPath), core.LevelInfo)
		return filepath.Dir(absPath), nil
	default:
		return "", &model.PathError{Path: absPath, Reason: "unsupported path kind"}
	}
}
