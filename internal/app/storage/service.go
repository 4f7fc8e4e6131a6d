/*
Package storage handles avatar files on S3-compatible object storage.

Uploads never pass through the server: clients receive a short-lived
presigned PUT URL and talk to the bucket directly. The server only validates
the request and records the resulting avatar URL on the profile.
*/
package storage

import (
	"context"
	"time"
)

// ServiceConfig holds the configuration required to connect to the storage service.
type ServiceConfig struct {
	S3BucketName      string
	S3Endpoint        string
	S3AccessKeyID     string
	S3SecretAccessKey string
}

// Service defines the public interface for the avatar storage backend.
type Service interface {
	// PresignUpload generates a pre-signed URL for uploading a file.
	PresignUpload(
		ctx context.Context,
		key string,
		mimeType string,
		fileSize int64,
		duration time.Duration,
	) (string, error)

	// PresignDownload generates a pre-signed URL for downloading a file.
	PresignDownload(ctx context.Context, key string, duration time.Duration) (string, error)

	// Delete removes the file specified by the given key.
	Delete(ctx context.Context, key string) error

	// GetObjectMetadata retrieves the object's metadata.
	GetObjectMetadata(ctx context.Context, key string) (map[string]string, error)
}

// NewService is the factory function for Service.
// It initializes and returns a concrete implementation based on the provided configuration.
func NewService(cfg ServiceConfig) (Service, error) {
	// Currently, only S3 compatible implementations are supported.
	return newS3Client(cfg)
}
