// Package s3 adapts the AWS SDK to the object-storage port used by the CDN
// upload driver. Each content-delivery channel carries its own credentials,
// so a client is built per channel; custom endpoints (MinIO and friends)
// switch the client to path-style addressing.
package s3

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/buildrelay/relay-worker/internal/core"
	"github.com/buildrelay/relay-worker/internal/domain/model"
)

// Store implements the object-storage port over one S3-compatible
// destination.
type Store struct {
	client *awss3.Client
}

var _ core.ObjectStore = (*Store)(nil)

// NewStore builds an S3 client from per-channel credentials.
func NewStore(ctx context.Context, cfg model.CDNChannel) (*Store, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := awss3.NewFromConfig(awsCfg, func(o *awss3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return &Store{client: client}, nil
}

// Factory adapts NewStore to the ObjectStoreFactory port.
//
//nolint:ireturn // factories return the port type by design of the port.
func Factory(cfg model.CDNChannel) (core.ObjectStore, error) {
	return NewStore(context.Background(), cfg)
}

// PutObject uploads the file at filePath to bucket under key.
func (s *Store) PutObject(ctx context.Context, filePath, bucket, key string) (err error) {
	f, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("open %s: %w", filePath, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", filePath, cerr)
		}
	}()

	_, err = s.client.PutObject(ctx, &awss3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   f,
	})
	if err != nil {
		return fmt.Errorf("put object s3://%s/%s: %w", bucket, key, err)
	}
	return nil
}

// SetPublicRead applies a public-read canned ACL to an uploaded object.
func (s *Store) SetPublicRead(ctx context.Context, bucket, key string) error {
	if bucket == "" || key == "" {
		return errors.New("bucket and key are required")
	}
	_, err := s.client.PutObjectAcl(ctx, &awss3.PutObjectAclInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		ACL:    types.ObjectCannedACLPublicRead,
	})
	if err != nil {
		return fmt.Errorf("put object acl s3://%s/%s: %w", bucket, key, err)
	}
	return nil
}
