package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
)

// GCSStore is an ObjectStore backed by Google Cloud Storage.
type GCSStore struct {
	client *storage.Client
}

// NewGCSStore creates a client using opts.
func NewGCSStore(ctx context.Context, opts GCSOptions) (*GCSStore, error) {
	clientOpts, err := opts.ClientOptions(ctx)
	if err != nil {
		return nil, fmt.Errorf("gcs client config: %w", err)
	}

	client, err := storage.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create gcs client: %w", err)
	}

	slog.Debug("gcs store initialized", "project", opts.Project, "impersonate", opts.Impersonate)
	return &GCSStore{client: client}, nil
}

func (s *GCSStore) Download(ctx context.Context, bucket, name, dst string) error {
	reader, err := s.client.Bucket(bucket).Object(name).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return fmt.Errorf("gs://%s/%s: %w", bucket, name, ErrNotFound)
		}
		return fmt.Errorf("open gs://%s/%s: %w", bucket, name, err)
	}
	defer reader.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("create download dir: %w", err)
	}

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}

	if _, err := io.Copy(out, reader); err != nil {
		out.Close()
		return fmt.Errorf("download gs://%s/%s: %w", bucket, name, err)
	}
	return out.Close()
}

func (s *GCSStore) Upload(ctx context.Context, src, bucket, name string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close()

	// Cancelling the writer's context aborts the upload; Close alone would
	// commit whatever was already sent.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	w := s.client.Bucket(bucket).Object(name).NewWriter(ctx)
	w.ContentType = "text/csv"

	if err := writeObject(w, in, cancel); err != nil {
		return fmt.Errorf("upload gs://%s/%s: %w", bucket, name, err)
	}
	return nil
}

// writeObject copies src into w and closes it. If the copy fails, abort runs
// before w is closed so a partial object is never committed.
func writeObject(w io.WriteCloser, src io.Reader, abort func()) error {
	if _, err := io.Copy(w, src); err != nil {
		abort()
		w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalize: %w", err)
	}
	return nil
}

func (s *GCSStore) List(ctx context.Context, bucket, prefix string) ([]ObjectInfo, error) {
	it := s.client.Bucket(bucket).Objects(ctx, &storage.Query{Prefix: prefix})

	var out []ObjectInfo
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list gs://%s/%s: %w", bucket, prefix, err)
		}
		out = append(out, ObjectInfo{Bucket: bucket, Name: attrs.Name, Size: attrs.Size})
	}
	return out, nil
}

func (s *GCSStore) Exists(ctx context.Context, bucket, name string) (bool, error) {
	_, err := s.client.Bucket(bucket).Object(name).Attrs(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("stat gs://%s/%s: %w", bucket, name, err)
	}
	return true, nil
}

func (s *GCSStore) Close() error {
	return s.client.Close()
}

var _ ObjectStore = (*GCSStore)(nil)
