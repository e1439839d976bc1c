package importer

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"
)

// Source opens an import file by URI.
type Source interface {
	Open(ctx context.Context, uri string) (io.ReadCloser, error)
}

// GCSSource reads import files from Cloud Storage. It assumes Application Default
// Credentials are configured.
type GCSSource struct {
	client *storage.Client
}

// NewGCSSource creates a source with its own storage client.
func NewGCSSource(ctx context.Context) (*GCSSource, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("NewGCSSource: create storage client: %w", err)
	}
	return &GCSSource{client: client}, nil
}

// Close closes the storage client.
func (s *GCSSource) Close() error {
	return s.client.Close()
}

// Open implements Source for gs://bucket/object URIs.
func (s *GCSSource) Open(ctx context.Context, uri string) (io.ReadCloser, error) {
	bucket, object, err := ParseGCSURI(uri)
	if err != nil {
		return nil, err
	}
	rc, err := s.client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("GCSSource.Open: reading object %s/%s: %w", bucket, object, err)
	}
	return rc, nil
}

// Upload copies a local file into the bucket and returns its gs:// URI.
func (s *GCSSource) Upload(ctx context.Context, bucket, object, filePath string) (string, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("open file %q: %w", filePath, err)
	}
	defer f.Close()

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := s.client.Bucket(bucket).Object(object).NewWriter(ctx)
	w.ContentType = "text/csv"
	if _, err := io.Copy(w, f); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("copy file to GCS writer: %w", err)
	}
	// Close finalizes the upload.
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("finalize upload: %w", err)
	}
	return "gs://" + bucket + "/" + object, nil
}

// ParseGCSURI splits gs://bucket/path/to/object into bucket and object.
func ParseGCSURI(uri string) (bucket, object string, err error) {
	if !strings.HasPrefix(uri, "gs://") {
		return "", "", fmt.Errorf("invalid GCS URI: %s", uri)
	}
	parts := strings.SplitN(strings.TrimPrefix(uri, "gs://"), "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid GCS URI (no object path): %s", uri)
	}
	return parts[0], parts[1], nil
}

// FilenameFromURI returns the last path element of a gs:// URI,
// e.g. "gs://bucket/exports/march.csv" -> "march.csv".
func FilenameFromURI(uri string) string {
	trimmed := strings.TrimPrefix(uri, "gs://")
	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) < 2 {
		return trimmed
	}
	return path.Base(parts[1])
}
