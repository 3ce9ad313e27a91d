package repositories

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// LocalBlobStore implements BlobStore as a directory mirror of the same
// keys. It is the fallback when no S3 credentials are configured.
type LocalBlobStore struct {
	root string
}

// NewLocalBlobStore creates a filesystem-backed blob store rooted at dir
func NewLocalBlobStore(dir string) (*LocalBlobStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, NewBlobStoreError("init", "", err, "failed to create storage directory")
	}
	return &LocalBlobStore{root: dir}, nil
}

// Put writes bytes under key, creating intermediate directories
func (s *LocalBlobStore) Put(ctx context.Context, key string, data []byte) error {
	path, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return NewBlobStoreError("put_object", key, err, "")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return NewBlobStoreError("put_object", key, err, "")
	}
	return nil
}

// Get reads the bytes stored under key
func (s *LocalBlobStore) Get(ctx context.Context, key string) ([]byte, error) {
	path, err := s.resolve(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, BlobNotFoundError(key)
		}
		return nil, NewBlobStoreError("get_object", key, err, "")
	}
	return data, nil
}

// Delete removes the file stored under key
func (s *LocalBlobStore) Delete(ctx context.Context, key string) error {
	path, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return NewBlobStoreError("delete_object", key, err, "")
	}
	return nil
}

// SignedURL returns a file:// URL; local mode has no expiry semantics.
func (s *LocalBlobStore) SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	path, err := s.resolve(key)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", BlobNotFoundError(key)
		}
		return "", NewBlobStoreError("signed_url", key, err, "")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", NewBlobStoreError("signed_url", key, err, "")
	}
	return "file://" + abs, nil
}

// resolve maps a key to a path under root and rejects traversal
func (s *LocalBlobStore) resolve(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(key))
	if clean == "." || strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return "", NewBlobStoreError("resolve", key, nil, "invalid blob key: "+key)
	}
	return filepath.Join(s.root, clean), nil
}
