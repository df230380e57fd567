package blobstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"cloud.google.com/go/storage"

	"subroflow/contexts/subrogation/demand-service/ports"
)

// GCS backs the object store with a single Cloud Storage bucket. Logical
// containers become key prefixes: "{container}/{path}".
type GCS struct {
	client *storage.Client
	bucket string
	logger *slog.Logger
}

var _ ports.ObjectStore = (*GCS)(nil)

func NewGCS(ctx context.Context, bucket string, logger *slog.Logger) (*GCS, error) {
	if bucket == "" {
		return nil, errors.New("storage bucket is required")
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return &GCS{
		client: client,
		bucket: bucket,
		logger: logger,
	}, nil
}

func (s *GCS) Upload(ctx context.Context, container, path string, content []byte, contentType string) error {
	w := s.client.Bucket(s.bucket).Object(objectKey(container, path)).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := io.Copy(w, bytes.NewReader(content)); err != nil {
		_ = w.Close()
		return fmt.Errorf("write object %s: %w", objectKey(container, path), err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalize object %s: %w", objectKey(container, path), err)
	}
	if s.logger != nil {
		s.logger.Info("object uploaded",
			"event", "object_uploaded",
			"module", "internal/platform/blobstore",
			"layer", "platform",
			"bucket", s.bucket,
			"key", objectKey(container, path),
			"size_bytes", len(content),
		)
	}
	return nil
}

func (s *GCS) Download(ctx context.Context, container, path string) ([]byte, error) {
	r, err := s.client.Bucket(s.bucket).Object(objectKey(container, path)).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("open object %s: %w", objectKey(container, path), err)
	}
	defer r.Close()
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read object %s: %w", objectKey(container, path), err)
	}
	return content, nil
}

// Delete tolerates a missing object so a retried cleanup converges.
func (s *GCS) Delete(ctx context.Context, container, path string) error {
	err := s.client.Bucket(s.bucket).Object(objectKey(container, path)).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("delete object %s: %w", objectKey(container, path), err)
	}
	return nil
}

func (s *GCS) Close() error {
	return s.client.Close()
}

func objectKey(container, path string) string {
	return container + "/" + path
}
