package repositories

import (
	"context"
	"time"
)

// BlobStore defines the interface for byte storage of uploads and export
// artifacts. Keys are forward-slash-separated paths chosen by the caller
// (uploads/{uuid}.pdf, exports/{project_id}.zip).
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// BlobStoreError represents errors from a blob store backend
type BlobStoreError struct {
	Operation string
	Key       string
	Err       error
	Message   string
}

func (e *BlobStoreError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	prefix := e.Operation
	if e.Key != "" {
		prefix += " (key: " + e.Key + ")"
	}
	if e.Err != nil {
		return prefix + ": " + e.Err.Error()
	}
	return prefix + ": unknown error"
}

func (e *BlobStoreError) Unwrap() error {
	return e.Err
}

// NewBlobStoreError creates a new blob store error
func NewBlobStoreError(operation string, key string, err error, message string) *BlobStoreError {
	return &BlobStoreError{
		Operation: operation,
		Key:       key,
		Err:       err,
		Message:   message,
	}
}

// BlobNotFoundError indicates the object does not exist. Not retryable.
func BlobNotFoundError(key string) error {
	return NewBlobStoreError(
		"get_object",
		key,
		nil,
		"object not found: "+key,
	)
}

// IsBlobNotFound reports whether err is an object-missing error.
func IsBlobNotFound(err error) bool {
	if e, ok := err.(*BlobStoreError); ok {
		return e.Operation == "get_object" && e.Err == nil
	}
	return false
}
