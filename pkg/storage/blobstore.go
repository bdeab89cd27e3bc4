package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// BlobStore archives raw uploaded files off the hot path. Failures are
// treated as non-fatal by the ingestion pipeline, so implementations should
// report errors rather than retry internally.
type BlobStore interface {
	Store(ctx context.Context, name string, data []byte, contentType string) error
}

// LocalStore persists uploads on disk under a base directory. It stands in
// for an object-store client in deployments without one configured.
type LocalStore struct {
	baseDir string
}

// NewLocalStore ensures the base directory exists and returns a handle.
func NewLocalStore(baseDir string) (*LocalStore, error) {
	if baseDir == "" {
		baseDir = "./uploads"
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload directory: %w", err)
	}
	return &LocalStore{baseDir: baseDir}, nil
}

// Store writes the given bytes under the base directory. The content type is
// ignored by the filesystem implementation.
func (s *LocalStore) Store(_ context.Context, name string, data []byte, _ string) error {
	path := filepath.Join(s.baseDir, filepath.Base(name))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("archive upload %s: %w", name, err)
	}
	return nil
}

// Open returns a read-only handle for an archived file.
func (s *LocalStore) Open(name string) (*os.File, error) {
	file, err := os.Open(filepath.Join(s.baseDir, filepath.Base(name)))
	if err != nil {
		return nil, fmt.Errorf("open archived upload: %w", err)
	}
	return file, nil
}

// SafeFilename prefixes the original filename with a timestamp so repeated
// uploads of the same report never collide in the archive.
func SafeFilename(original string) string {
	base := filepath.Base(strings.TrimSpace(original))
	if base == "" || base == "." {
		base = "upload"
	}
	return fmt.Sprintf("%s_%s", time.Now().UTC().Format("20060102_150405"), base)
}
