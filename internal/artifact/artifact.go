// Package artifact persists rendered charts and run results to object storage.
package artifact

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"path"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Content types used for run artifacts.
const (
	ContentTypeJSON = "application/json"
	ContentTypePNG  = "image/png"
)

// Store writes run artifacts. Implementations must be safe for concurrent use.
type Store interface {
	Put(ctx context.Context, key, contentType string, data []byte) error
}

// Key returns the object key for a run artifact.
func Key(runID, name string) string {
	return path.Join("runs", runID, name)
}

// Config holds the MinIO connection settings.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	Region    string
}

// MinIOStore writes artifacts to a MinIO (or any S3-compatible) bucket.
type MinIOStore struct {
	client *minio.Client
	bucket string
	region string
	logger *slog.Logger

	bucketMu    sync.Mutex
	bucketReady bool
}

// NewMinIOStore creates a store. The bucket is created on first write.
func NewMinIOStore(cfg Config, logger *slog.Logger) (*MinIOStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("creating minio client: %w", err)
	}

	return &MinIOStore{
		client: client,
		bucket: cfg.Bucket,
		region: cfg.Region,
		logger: logger.With("component", "artifact"),
	}, nil
}

// Put uploads data under key.
func (s *MinIOStore) Put(ctx context.Context, key, contentType string, data []byte) error {
	if err := s.ensureBucket(ctx); err != nil {
		return err
	}

	info, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}

	s.logger.Debug("artifact stored", "bucket", s.bucket, "key", key, "size", info.Size)
	return nil
}

// ensureBucket creates the bucket if it does not exist. A failed check is
// retried on the next call; success is remembered for the process lifetime.
func (s *MinIOStore) ensureBucket(ctx context.Context) error {
	s.bucketMu.Lock()
	defer s.bucketMu.Unlock()

	if s.bucketReady {
		return nil
	}

	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("checking bucket %s: %w", s.bucket, err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region}); err != nil {
			return fmt.Errorf("creating bucket %s: %w", s.bucket, err)
		}
		s.logger.Info("bucket created", "bucket", s.bucket)
	}

	s.bucketReady = true
	return nil
}

// Verify interface compliance at compile time.
var _ Store = (*MinIOStore)(nil)

// NopStore discards artifacts. Used when object storage is not configured.
type NopStore struct{}

// Put does nothing.
func (NopStore) Put(context.Context, string, string, []byte) error { return nil }

var _ Store = NopStore{}
