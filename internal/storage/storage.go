package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/asmaravianti/ecg-compression/internal/config"
)

// Store abstracts where uploaded artifacts live. The default is the local
// uploads directory; deployments with an S3-compatible bucket configured
// get object storage instead.
type Store interface {
	// Save writes the file under the given key and returns the key it was
	// stored as. Keys are slash-separated relative paths built from
	// sanitized components.
	Save(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	// Open returns the stored file for reading.
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// FromConfig picks the backend based on process configuration.
func FromConfig() (Store, error) {
	cfg := config.AppConfig
	if cfg.S3AccountID != "" {
		return NewS3Store(cfg.S3AccountID, cfg.S3AccessKeyID, cfg.S3SecretAccessKey, cfg.S3BucketName)
	}
	return NewLocalStore(cfg.UploadDir)
}

// LocalStore keeps uploads on disk under a single root directory. Every
// key is re-checked against the root so a hostile key cannot escape it.
type LocalStore struct {
	root string
}

func NewLocalStore(root string) (*LocalStore, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create uploads root: %w", err)
	}
	return &LocalStore{root: abs}, nil
}

func (s *LocalStore) resolve(key string) (string, error) {
	full := filepath.Join(s.root, filepath.FromSlash(key))
	// Keys are built from sanitized components, but verify anyway.
	if !strings.HasPrefix(full, s.root+string(os.PathSeparator)) {
		return "", fmt.Errorf("storage key escapes uploads root")
	}
	return full, nil
}

func (s *LocalStore) Save(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	full, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return err
	}
	f, err := os.Create(full)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		os.Remove(full)
		return err
	}
	return nil
}

func (s *LocalStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	full, err := s.resolve(key)
	if err != nil {
		return nil, err
	}
	return os.Open(full)
}
