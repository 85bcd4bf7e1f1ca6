package snapshot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/yungbote/lifeboard-backend/internal/platform/gcp"
)

const DefaultGCSObject = "lifeboard/boards.json"

// GCSStore keeps the encoded document as a single Cloud Storage object.
type GCSStore struct {
	client *storage.Client
	bucket string
	object string
}

func NewGCSStore(ctx context.Context, bucket, object string, opts ...option.ClientOption) (*GCSStore, error) {
	bucket = strings.TrimSpace(bucket)
	if bucket == "" {
		return nil, fmt.Errorf("missing gcs bucket")
	}
	object = strings.TrimSpace(object)
	if object == "" {
		object = DefaultGCSObject
	}
	if len(opts) == 0 {
		opts = gcp.StorageClientOptions()
	}
	if gcp.EmulatorHost() == "" {
		opts = append(opts, option.WithScopes(storage.ScopeReadWrite))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	return &GCSStore{client: client, bucket: bucket, object: object}, nil
}

func (s *GCSStore) Name() string { return "gcs" }

func (s *GCSStore) Load(ctx context.Context) (*Document, error) {
	r, err := s.client.Bucket(s.bucket).Object(s.object).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("open gs://%s/%s: %w", s.bucket, s.object, err)
	}
	defer r.Close()
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read gs://%s/%s: %w", s.bucket, s.object, err)
	}
	if len(strings.TrimSpace(string(raw))) == 0 {
		return nil, ErrNoSnapshot
	}
	return Decode(raw)
}

func (s *GCSStore) Save(ctx context.Context, doc *Document) error {
	raw, err := Encode(doc)
	if err != nil {
		return err
	}
	w := s.client.Bucket(s.bucket).Object(s.object).NewWriter(ctx)
	w.ContentType = "application/json"
	if _, err := w.Write(raw); err != nil {
		_ = w.Close()
		return fmt.Errorf("failed to write data to GCS: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close GCS writer: %w", err)
	}
	return nil
}

func (s *GCSStore) Close() error { return s.client.Close() }
