// Package blob stores card and document images in S3-compatible object storage.
package blob

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/hpungsan/meishi/internal/config"
	"github.com/hpungsan/meishi/internal/errors"
	"github.com/hpungsan/meishi/internal/extract"
	"github.com/hpungsan/meishi/internal/record"
)

// Store provides access to object storage.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error)
	Delete(ctx context.Context, key string) error
}

// MinioStore implements Store for MinIO/S3 compatible storage.
type MinioStore struct {
	client *minio.Client
	bucket string
}

// NewMinioStore connects to MinIO and ensures the bucket exists.
func NewMinioStore(ctx context.Context, endpoint, accessKey, secretKey, bucket string, useSSL bool) (*MinioStore, error) {
	s, err := newMinioStore(endpoint, accessKey, secretKey, bucket, useSSL, "")
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	exists, err := s.client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket: %w", err)
		}
	}
	return s, nil
}

// FromConfig returns a MinioStore, or nil when no endpoint is configured.
func FromConfig(ctx context.Context, cfg *config.Config) (*MinioStore, error) {
	if cfg.MinioEndpoint == "" {
		return nil, nil
	}
	return NewMinioStore(ctx, cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
}

func newMinioStore(endpoint, accessKey, secretKey, bucket string, useSSL bool, region string) (*MinioStore, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio client: %w", err)
	}
	return &MinioStore{client: client, bucket: bucket}, nil
}

// Put uploads an object.
func (m *MinioStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	_, err := m.client.PutObject(ctx, m.bucket, key, r, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("put object: %w", err)
	}
	return nil
}

// PresignGet generates a pre-signed GET URL.
func (m *MinioStore) PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error) {
	url, err := m.client.PresignedGetObject(ctx, m.bucket, key, expiry, nil)
	if err != nil {
		return "", fmt.Errorf("presign get: %w", err)
	}
	return url.String(), nil
}

// Delete removes an object.
func (m *MinioStore) Delete(ctx context.Context, key string) error {
	if err := m.client.RemoveObject(ctx, m.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("delete object: %w", err)
	}
	return nil
}

// ImageKey names an image object: images/<ulid>.<ext>.
func ImageKey(now time.Time, img extract.Image) string {
	return "images/" + record.NewULID(now) + "." + img.Ext()
}

// SaveImages uploads images in order and returns their object keys.
// Keys are the image references stored on records.
func SaveImages(ctx context.Context, s Store, now time.Time, images []extract.Image) ([]string, error) {
	keys := make([]string, 0, len(images))
	for _, img := range images {
		key := ImageKey(now, img)
		if err := s.Put(ctx, key, bytes.NewReader(img.Data), int64(len(img.Data)), img.MIMEType); err != nil {
			return keys, errors.NewExternalServiceFailure("object storage", err)
		}
		keys = append(keys, key)
	}
	return keys, nil
}
