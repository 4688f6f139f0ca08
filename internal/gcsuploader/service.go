package gcsuploader

import (
	"context"
	"io"

	"cloud.google.com/go/storage"
)

// Service wraps the package operations around a shared storage client and
// a fixed bucket.
type Service struct {
	client *storage.Client
	bucket string
}

// NewService creates a storage service for the given bucket.
func NewService(client *storage.Client, bucket string) *Service {
	return &Service{client: client, bucket: bucket}
}

// UploadReceipt delegates to UploadReceipt with the shared client.
func (s *Service) UploadReceipt(ctx context.Context, userID, filename, contentType string, r io.Reader) (string, error) {
	return UploadReceipt(ctx, s.client, s.bucket, userID, filename, contentType, r)
}

// Fetch delegates to Fetch with the shared client.
func (s *Service) Fetch(ctx context.Context, gcsURI string) ([]byte, error) {
	return Fetch(ctx, s.client, gcsURI)
}
