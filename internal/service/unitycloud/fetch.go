// Package unitycloud downloads build artifacts referenced by Unity Cloud
// Build webhook payloads attached to a job's metadata.
package unitycloud

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/buildrelay/relay-worker/internal/core"
	"github.com/buildrelay/relay-worker/internal/domain/model"
)

// FetcherOptions configures the artifact fetcher.
type FetcherOptions struct {
	// TempDir is where downloaded artifacts land. Defaults to os.TempDir().
	TempDir string
	// Client is the HTTP client used for downloads. Defaults to a client
	// with a 5 minute timeout; artifacts can be large.
	Client *http.Client
}

// Fetcher downloads the primary artifact of a unity-cloud sourced job.
type Fetcher struct {
	tempDir string
	client  *http.Client
}

var _ core.ArtifactFetcher = (*Fetcher)(nil)

// NewFetcher constructs an artifact fetcher.
func NewFetcher(opts FetcherOptions) *Fetcher {
	tempDir := strings.TrimSpace(opts.TempDir)
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Minute}
	}
	return &Fetcher{tempDir: tempDir, client: client}
}

// webhookMetadata mirrors the slice of the Unity Cloud Build webhook payload
// we consume: the artifact link list.
type webhookMetadata struct {
	Links struct {
		Artifacts []struct {
			Primary bool `json:"primary"`
			Files   []struct {
				Href     string `json:"href"`
				Filename string `json:"filename"`
			} `json:"files"`
		} `json:"artifacts"`
	} `json:"links"`
}

// Fetch downloads the job's primary artifact to
// {TempDir}/unity_cloud_{jobID}_{filename} and returns the local path.
func (f *Fetcher) Fetch(ctx context.Context, job *model.Job, sink core.LogSink) (string, error) {
	href, filename, err := primaryArtifact(job.Metadata)
	if err != nil {
		return "", err
	}

	target := filepath.Join(f.tempDir, fmt.Sprintf("unity_cloud_%s_%s", job.ID, filename))
	sink.Log(ctx, fmt.Sprintf("Downloading Unity Cloud Build artifact: %s", filename), core.LevelInfo)

	if err := f.download(ctx, href, target); err != nil {
		return "", fmt.Errorf("download artifact %s: %w", filename, err)
	}

	sink.Log(ctx, fmt.Sprintf("Successfully downloaded artifact to: %s", target), core.LevelInfo)
	return target, nil
}

func primaryArtifact(raw json.RawMessage) (href, filename string, err error) {
	if len(raw) == 0 {
		return "", "", errors.New("no primary artifact found in job metadata")
	}
	var meta webhookMetadata
	if err := json.Unmarshal(raw, &meta); err != nil {
		return "", "", fmt.Errorf("parse job metadata: %w", err)
	}
	for _, artifact := range meta.Links.Artifacts {
		if !artifact.Primary || len(artifact.Files) == 0 {
			continue
		}
		file := artifact.Files[0]
		if file.Href == "" || file.Filename == "" {
			return "", "", errors.New("primary artifact missing URL or filename")
		}
		return file.Href, file.Filename, nil
	}
	return "", "", errors.New("no primary artifact found in job metadata")
}

func (f *Fetcher) download(ctx context.Context, href, target string) (err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, href, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close response body: %w", cerr)
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	out, err := os.Create(target)
	if err != nil {
		return fmt.Errorf("create artifact file: %w", err)
	}
	if _, copyErr := io.Copy(out, resp.Body); copyErr != nil {
		if cerr := out.Close(); cerr != nil {
			return errors.Join(copyErr, cerr)
		}
		return copyErr
	}
	return out.Close()
}
