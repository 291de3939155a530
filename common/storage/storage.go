package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/genomeai/platform/common/config"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ObjectStore is the S3-compatible surface the services use
type ObjectStore interface {
	EnsureBucket(ctx context.Context, bucket string) error
	PutFile(ctx context.Context, bucket, key, path string) error
	Put(ctx context.Context, bucket, key string, body io.Reader, size int64, contentType string) error
}

// URI formats an object location as s3://bucket/key
func URI(bucket, key string) string {
	return fmt.Sprintf("s3://%s/%s", bucket, key)
}

// MinioStore implements ObjectStore on minio-go
type MinioStore struct {
	client    *minio.Client
	region    string
	transport *http.Transport
}

// NewMinioStore builds a client from S3_* settings. The endpoint may carry a
// scheme; https implies TLS regardless of S3_USE_SSL.
func NewMinioStore(cfg config.StorageConfig) (*MinioStore, error) {
	host, secure, err := splitEndpoint(cfg.Endpoint)
	if err != nil {
		return nil, err
	}
	secure = secure || cfg.UseSSL

	transport := &http.Transport{
		MaxIdleConns:          50,
		MaxIdleConnsPerHost:   20,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		DisableCompression:    true,
	}

	cli, err := minio.New(host, &minio.Options{
		Creds:     credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure:    secure,
		Region:    cfg.Region,
		Transport: transport,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	return &MinioStore{client: cli, region: cfg.Region, transport: transport}, nil
}

func splitEndpoint(endpoint string) (string, bool, error) {
	if !strings.Contains(endpoint, "://") {
		return endpoint, false, nil
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", false, fmt.Errorf("invalid S3_ENDPOINT %q: %w", endpoint, err)
	}
	if u.Host == "" {
		return "", false, fmt.Errorf("invalid S3_ENDPOINT %q: missing host", endpoint)
	}
	return u.Host, u.Scheme == "https", nil
}

// EnsureBucket creates the bucket if it does not exist. Safe to call concurrently
// from several processes.
func (s *MinioStore) EnsureBucket(ctx context.Context, bucket string) error {
	exists, err := s.client.BucketExists(ctx, bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket %s: %w", bucket, err)
	}
	if exists {
		return nil
	}

	err = s.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: s.region})
	if err != nil {
		// Lost a creation race
		if resp := minio.ToErrorResponse(err); resp.Code == "BucketAlreadyOwnedByYou" || resp.Code == "BucketAlreadyExists" {
			return nil
		}
		return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
	}
	return nil
}

// PutFile uploads a local file
func (s *MinioStore) PutFile(ctx context.Context, bucket, key, path string) error {
	_, err := s.client.FPutObject(ctx, bucket, key, path, minio.PutObjectOptions{
		ContentType: contentTypeFor(path),
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s to %s: %w", path, URI(bucket, key), err)
	}
	return nil
}

// Put uploads a stream. size may be -1 when unknown.
func (s *MinioStore) Put(ctx context.Context, bucket, key string, body io.Reader, size int64, contentType string) error {
	_, err := s.client.PutObject(ctx, bucket, key, body, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", URI(bucket, key), err)
	}
	return nil
}

// Close releases idle connections
func (s *MinioStore) Close() {
	s.transport.CloseIdleConnections()
}

func contentTypeFor(path string) string {
	switch {
	case strings.HasSuffix(path, ".html"):
		return "text/html"
	case strings.HasSuffix(path, ".txt"):
		return "text/plain"
	default:
		return "application/octet-stream"
	}
}
