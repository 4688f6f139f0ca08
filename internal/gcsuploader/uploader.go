package gcsuploader

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
)

// uploadTimeout bounds a single object upload.
const uploadTimeout = 2 * time.Minute

// UploadReceipt streams an uploaded receipt into the bucket under
// receipts/<userID>/<uuid>_<filename> and returns its gs:// URI. The
// filename is reduced to its base name so client-supplied paths cannot
// escape the user's prefix.
func UploadReceipt(ctx context.Context, client *storage.Client, bucket, userID, filename, contentType string, r io.Reader) (string, error) {
	objectName := fmt.Sprintf("receipts/%s/%s_%s", userID, uuid.NewString(), path.Base(filename))

	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	w := client.Bucket(bucket).Object(objectName).NewWriter(ctx)
	w.ContentType = contentType

	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("UploadReceipt: copying to GCS writer: %w", err)
	}

	if err := w.Close(); err != nil {
		return "", fmt.Errorf("UploadReceipt: finalizing upload: %w", err)
	}

	return fmt.Sprintf("gs://%s/%s", bucket, objectName), nil
}

// Fetch downloads the object bytes behind a gs:// URI.
func Fetch(ctx context.Context, client *storage.Client, gcsURI string) ([]byte, error) {
	bucket, object, err := ObjectName(gcsURI)
	if err != nil {
		return nil, err
	}

	rc, err := client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("Fetch: reading object %s/%s: %w", bucket, object, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("Fetch: reading bytes: %w", err)
	}

	return data, nil
}

// ObjectName splits a gs://bucket/path URI into bucket and object path.
func ObjectName(gcsURI string) (string, string, error) {
	if !strings.HasPrefix(gcsURI, "gs://") {
		return "", "", fmt.Errorf("invalid GCS URI: %s", gcsURI)
	}

	trimmed := strings.TrimPrefix(gcsURI, "gs://")
	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) != 2 || parts[1] == "" {
		return "", "", fmt.Errorf("invalid GCS URI (no object path): %s", gcsURI)
	}

	return parts[0], parts[1], nil
}
