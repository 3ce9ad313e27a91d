package repositories

import (
	"bytes"
	"context"
	"io"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// S3BlobStore implements BlobStore against any S3-compatible endpoint using
// signature v4 and region "auto" (Cloudflare R2 compatible).
type S3BlobStore struct {
	client *minio.Client
	bucket string
}

// S3Config holds configuration for the S3-compatible backend
type S3Config struct {
	Endpoint  string
	Bucket    string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Region    string
}

// NewS3BlobStore creates a blob store backed by an S3-compatible endpoint
func NewS3BlobStore(config S3Config) (*S3BlobStore, error) {
	if config.Region == "" {
		config.Region = "auto"
	}

	client, err := minio.New(config.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(config.AccessKey, config.SecretKey, ""),
		Secure: config.UseSSL,
		Region: config.Region,
	})
	if err != nil {
		return nil, NewBlobStoreError("connect", "", err, "failed to create s3 client")
	}

	return &S3BlobStore{
		client: client,
		bucket: config.Bucket,
	}, nil
}

// Put uploads bytes under key. Content-only, no ACLs.
func (s *S3BlobStore) Put(ctx context.Context, key string, data []byte) error {
	reader := bytes.NewReader(data)
	_, err := s.client.PutObject(ctx, s.bucket, key, reader, int64(len(data)), minio.PutObjectOptions{
		ContentType: "application/octet-stream",
	})
	if err != nil {
		return NewBlobStoreError("put_object", key, err, "")
	}
	return nil
}

// Get downloads the object bytes for key
func (s *S3BlobStore) Get(ctx context.Context, key string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, NewBlobStoreError("get_object", key, err, "")
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		if resp := minio.ToErrorResponse(err); resp.Code == "NoSuchKey" {
			return nil, BlobNotFoundError(key)
		}
		return nil, NewBlobStoreError("get_object", key, err, "")
	}
	return data, nil
}

// Delete removes the object at key
func (s *S3BlobStore) Delete(ctx context.Context, key string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return NewBlobStoreError("delete_object", key, err, "")
	}
	return nil
}

// SignedURL returns a pre-signed download URL valid for ttl
func (s *S3BlobStore) SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	u, err := s.client.PresignedGetObject(ctx, s.bucket, key, ttl, nil)
	if err != nil {
		return "", NewBlobStoreError("signed_url", key, err, "")
	}
	return u.String(), nil
}
