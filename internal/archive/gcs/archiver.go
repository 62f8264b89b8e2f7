// Package gcs implements a Google Cloud Storage page archiver.
package gcs

import (
	"context"
	"fmt"

	"cloud.google.com/go/storage"
	"go.uber.org/zap"
)

// Archiver uploads raw page snapshots to a GCS bucket.
type Archiver struct {
	client *storage.Client
	bucket string
	logger *zap.Logger
}

// New initializes a GCS client and verifies the bucket is reachable, failing
// fast on startup if the configuration is wrong. Authentication is handled
// via Google's Application Default Credentials.
func New(ctx context.Context, bucketName string, logger *zap.Logger) (*Archiver, error) {
	if bucketName == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create gcs client: %w", err)
	}

	if _, err := client.Bucket(bucketName).Attrs(ctx); err != nil {
		if closeErr := client.Close(); closeErr != nil {
			logger.Warn("Failed to close GCS client after bucket check failure", zap.Error(closeErr))
		}
		return nil, fmt.Errorf("get gcs bucket %q attributes: %w", bucketName, err)
	}

	return &Archiver{client: client, bucket: bucketName, logger: logger}, nil
}

// Save uploads the given data to an object in the bucket.
func (a *Archiver) Save(ctx context.Context, objectName string, data []byte) error {
	wc := a.client.Bucket(a.bucket).Object(objectName).NewWriter(ctx)
	if _, err := wc.Write(data); err != nil {
		// Close is still required to release the writer after a failed write.
		if closeErr := wc.Close(); closeErr != nil {
			a.logger.Warn("Failed to close GCS writer after write failure", zap.Error(closeErr))
		}
		return fmt.Errorf("write gcs object %s: %w", objectName, err)
	}
	// Close finalizes the upload and flushes any buffered data.
	if err := wc.Close(); err != nil {
		return fmt.Errorf("close gcs writer for object %s: %w", objectName, err)
	}
	return nil
}

// Close releases the underlying client.
func (a *Archiver) Close() error {
	if a == nil || a.client == nil {
		return nil
	}
	return a.client.Close()
}
