// Package model defines the core data types used throughout the relay worker.
package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// JobStatus represents the current lifecycle state of a job.
type JobStatus string

const (
	// JobStatusQueued indicates a job is waiting on the work queue.
	JobStatusQueued JobStatus = "queued"
	// JobStatusRunning indicates a job is currently being processed.
	JobStatusRunning JobStatus = "running"
	// JobStatusComplete indicates a job finished successfully.
	JobStatusComplete JobStatus = "complete"
	// JobStatusFailed indicates a job failed to complete.
	JobStatusFailed JobStatus = "failed"
)

// Valid returns true if the JobStatus is one of the supported values.
func (s JobStatus) Valid() bool {
	switch s {
	case JobStatusQueued, JobStatusRunning, JobStatusComplete, JobStatusFailed:
		return true
	default:
		return false
	}
}

// String returns the string representation of the job status.
func (s JobStatus) String() string {
	return string(s)
}

// CanTransitionTo reports whether the status machine allows moving from s to
// next. The only legal edges are queued→running and running→{complete,failed};
// there is no re-entry.
func (s JobStatus) CanTransitionTo(next JobStatus) bool {
	switch s {
	case JobStatusQueued:
		return next == JobStatusRunning
	case JobStatusRunning:
		return next == JobStatusComplete || next == JobStatusFailed
	default:
		return false
	}
}

// SourceUnityCloud marks jobs whose artifact must first be downloaded from a
// Unity Cloud Build webhook payload.
const SourceUnityCloud = "unity-cloud"

// Job is the unit of work consumed from the queue. The JSON shape matches the
// payloads produced by the enqueueing API; absent optional fields stay zero.
type Job struct {
	ID          string `json:"id"`
	Project     string `json:"project,omitempty"`
	Platform    string `json:"platform,omitempty"`
	Source      string `json:"source,omitempty"`
	Description string `json:"description,omitempty"`

	// Services lists the human-readable distribution targets for
	// notification display (e.g. "cdn", "steam").
	Services []string `json:"services,omitempty"`

	IngestPath         string `json:"ingestPath,omitempty"`
	AbsoluteIngestPath string `json:"absoluteIngestPath,omitempty"`

	CDNChannels   []CDNChannel   `json:"cdn_channels,omitempty"`
	SteamChannels []SteamChannel `json:"steam_channels,omitempty"`

	Status      JobStatus  `json:"status,omitempty"`
	Error       string     `json:"error,omitempty"`
	StartedAt   *time.Time `json:"startedAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`

	UploadResults *UploadResults `json:"upload_results,omitempty"`

	// Metadata carries the original webhook payload for unity-cloud
	// sourced jobs. Opaque to the state machine.
	Metadata json.RawMessage `json:"metadata,omitempty"`
}

// DecodeJob parses a raw queue payload into a Job. Malformed payloads yield a
// DecodeError; the worker loop drops those without entering any status list.
func DecodeJob(raw []byte) (*Job, error) {
	var job Job
	if err := json.Unmarshal(raw, &job); err != nil {
		return nil, &DecodeError{Err: err}
	}
	if strings.TrimSpace(job.ID) == "" {
		return nil, &DecodeError{Err: fmt.Errorf("job payload missing id")}
	}
	return &job, nil
}

// HasIngest reports whether the job carries a usable ingest path. Uploads are
// only attempted when both the raw and resolved paths are present.
func (j *Job) HasIngest() bool {
	return j.IngestPath != "" && j.AbsoluteIngestPath != ""
}

// EnsureResults initialises the per-channel result collection.
func (j *Job) EnsureResults() {
	if j.UploadResults == nil {
		j.UploadResults = &UploadResults{
			CDN:   []CDNUploadResult{},
			Steam: []SteamUploadResult{},
		}
	}
}

// CDNChannel is an immutable content-delivery destination attached to a job
// at enqueue time.
type CDNChannel struct {
	Label           string `json:"label,omitempty"`
	BucketName      string `json:"bucketName"`
	Region          string `json:"region"`
	AccessKeyID     string `json:"accessKeyId"`
	SecretAccessKey string `json:"secretAccessKey"`
	// Path is an optional key prefix inside the bucket.
	Path string `json:"path,omitempty"`
	// Endpoint overrides the AWS endpoint for S3-compatible services
	// such as MinIO; when set, public URLs use path-style addressing.
	Endpoint string `json:"endpoint,omitempty"`
	IsPublic bool   `json:"isPublic,omitempty"`
}

// SteamChannel is a release destination on Steam: one app, its depots and an
// optional branch to set live.
type SteamChannel struct {
	Label  string  `json:"label,omitempty"`
	AppID  string  `json:"appId"`
	Depots []Depot `json:"depots"`
	Branch string  `json:"branch,omitempty"`
}

// Depot maps a Steam depot id to a content root relative to the build
// directory.
type Depot struct {
	ID   string `json:"id"`
	Path string `json:"path,omitempty"`
}

// UploadResults aggregates per-channel outcomes, split by destination kind.
type UploadResults struct {
	CDN   []CDNUploadResult   `json:"cdn"`
	Steam []SteamUploadResult `json:"steam"`
}

// CDNUploadResult records the outcome of one content-delivery upload.
type CDNUploadResult struct {
	Channel  string `json:"channel,omitempty"`
	URL      string `json:"url"`
	Bucket   string `json:"bucket"`
	Key      string `json:"key"`
	IsPublic bool   `json:"isPublic"`
	Success  bool   `json:"success"`
}

// SteamUploadResult records the outcome of one Steam channel upload.
// BuildID is nil when no id could be extracted from the uploader output;
// BranchSet is nil unless a branch was requested and a build id was found.
type SteamUploadResult struct {
	Channel   string  `json:"channel,omitempty"`
	AppID     string  `json:"app_id"`
	BuildID   *string `json:"build_id"`
	BranchSet *string `json:"branch_set"`
	Success   bool    `json:"success"`
}
