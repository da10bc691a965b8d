package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/cloo-solutions/shiftlog/internal/domain"
)

// GCSConfig configures a GCSStore. Endpoint is only set for emulators.
type GCSConfig struct {
	Bucket          string
	CredentialsFile string
	Endpoint        string
}

// GCSStore keeps originals in a Cloud Storage bucket.
type GCSStore struct {
	client *gcs.Client
	bucket *gcs.BucketHandle
}

func NewGCSStore(ctx context.Context, cfg GCSConfig) (*GCSStore, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint), option.WithoutAuthentication())
	}

	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	return &GCSStore{client: client, bucket: client.Bucket(cfg.Bucket)}, nil
}

func (s *GCSStore) Backend() string { return "gcs" }

// Save writes with a does-not-exist precondition so a name collision never
// overwrites another upload.
func (s *GCSStore) Save(ctx context.Context, localPath, filename string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", localPath, err)
	}
	defer f.Close()

	name := NewStoredName(filename)
	w := s.bucket.Object(name).If(gcs.Conditions{DoesNotExist: true}).NewWriter(ctx)
	w.ContentType = mime.TypeByExtension(filepath.Ext(name))
	w.Metadata = map[string]string{"original-filename": filepath.Base(filename)}

	if _, err := io.Copy(w, f); err != nil {
		_ = w.Close()
		return "", domain.Wrap(domain.ErrStorageOperationFail, fmt.Errorf("failed to write to GCS: %w", err))
	}
	if err := w.Close(); err != nil {
		return "", domain.Wrap(domain.ErrStorageOperationFail, fmt.Errorf("failed to finalize GCS write: %w", err))
	}
	return name, nil
}

func (s *GCSStore) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	r, err := s.bucket.Object(name).NewReader(ctx)
	if err != nil {
		if errors.Is(err, gcs.ErrObjectNotExist) {
			return nil, domain.ErrFileNotFound
		}
		return nil, domain.Wrap(domain.ErrStorageOperationFail, err)
	}
	return r, nil
}

// Close releases the underlying client.
func (s *GCSStore) Close() error {
	return s.client.Close()
}
