// Package cdn uploads prepared build files to S3-compatible content-delivery
// buckets and computes their public download URLs.
package cdn

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/buildrelay/relay-worker/internal/core"
	"github.com/buildrelay/relay-worker/internal/domain/model"
)

// Uploader is the content-delivery upload driver. Destinations are described
// entirely by per-channel config; the object-storage client is built per
// channel through the injected factory.
type Uploader struct {
	newStore core.ObjectStoreFactory
}

var _ core.CDNDriver = (*Uploader)(nil)

// NewUploader constructs a CDN upload driver backed by the given store
// factory.
func NewUploader(factory core.ObjectStoreFactory) *Uploader {
	return &Uploader{newStore: factory}
}

// ValidateChannel checks the channel carries every field required to reach
// its bucket. Runs before any client construction or network call.
func ValidateChannel(cfg model.CDNChannel) error {
	subject := cdnChannelSubject(cfg)
	for _, field := range []struct {
		name  string
		value string
	}{
		{"region", cfg.Region},
		{"accessKeyId", cfg.AccessKeyID},
		{"secretAccessKey", cfg.SecretAccessKey},
		{"bucketName", cfg.BucketName},
	} {
		if strings.TrimSpace(field.value) == "" {
			return &model.ConfigError{Subject: subject, Field: field.name}
		}
	}
	return nil
}

// ObjectKey computes the destination key: `{prefix}/{filename}` when a path
// prefix is configured, else `{filename}`.
func ObjectKey(cfg model.CDNChannel, filePath string) string {
	name := filepath.Base(filePath)
	prefix := strings.Trim(cfg.Path, "/")
	if prefix == "" {
		return name
	}
	return prefix + "/" + name
}

// PublicURL computes the downloadable URL for an uploaded object:
// virtual-hosted-style on AWS, path-style when a custom endpoint is set.
func PublicURL(cfg model.CDNChannel, key string) string {
	if cfg.Endpoint != "" {
		return strings.TrimRight(cfg.Endpoint, "/") + "/" + cfg.BucketName + "/" + key
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", cfg.BucketName, cfg.Region, key)
}

// Upload transfers filePath to the channel's bucket and returns the
// destination description. A missing source file or transfer failure yields
// an UploadError; failing to apply the public-read policy only logs a
// warning.
func (u *Uploader) Upload(ctx context.Context, cfg model.CDNChannel, filePath string, sink core.LogSink) (model.CDNUploadResult, error) {
	if err := ValidateChannel(cfg); err != nil {
		return model.CDNUploadResult{}, err
	}

	key := ObjectKey(cfg, filePath)
	if _, err := os.Stat(filePath); err != nil {
		return model.CDNUploadResult{}, &model.UploadError{Bucket: cfg.BucketName, Key: key, Err: fmt.Errorf("file not found: %s", filePath)}
	}

	store, err := u.newStore(cfg)
	if err != nil {
		return model.CDNUploadResult{}, fmt.Errorf("build object store for %s: %w", cdnChannelSubject(cfg), err)
	}

	sink.Log(ctx, fmt.Sprintf("Uploading %s to bucket %s...", filepath.Base(filePath), cfg.BucketName), core.LevelInfo)
	if err := store.PutObject(ctx, filePath, cfg.BucketName, key); err != nil {
		uploadErr := &model.UploadError{Bucket: cfg.BucketName, Key: key, Err: err}
		sink.Log(ctx, fmt.Sprintf("CDN upload error: %v", uploadErr), core.LevelError)
		return model.CDNUploadResult{}, uploadErr
	}

	if cfg.IsPublic {
		sink.Log(ctx, "Setting object ACL to public...", core.LevelInfo)
		if aclErr := store.SetPublicRead(ctx, cfg.BucketName, key); aclErr != nil {
			// Best effort: the object is uploaded either way.
			sink.Log(ctx, fmt.Sprintf("Could not set public ACL: %v", aclErr), core.LevelWarning)
		} else {
			sink.Log(ctx, "Object is now publicly readable", core.LevelInfo)
		}
	}

	url := PublicURL(cfg, key)
	sink.Log(ctx, fmt.Sprintf("Successfully uploaded to %s", url), core.LevelInfo)

	return model.CDNUploadResult{
		Channel:  cfg.Label,
		URL:      url,
		Bucket:   cfg.BucketName,
		Key:      key,
		IsPublic: cfg.IsPublic,
		Success:  true,
	}, nil
}

func cdnChannelSubject(cfg model.CDNChannel) string {
	if cfg.Label != "" {
		return fmt.Sprintf("cdn channel %q", cfg.Label)
	}
	return "cdn channel"
}
