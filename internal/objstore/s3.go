package objstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/nhle/todo-agent/internal/model"
)

// S3Config addresses one bucket on an S3-compatible service.
type S3Config struct {
	Endpoint        string
	Bucket          string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	UseSSL          bool
}

// S3ConfigFrom combines the storage config section with the secret key.
func S3ConfigFrom(cfg model.StorageConfig, secret string) S3Config {
	return S3Config{
		Endpoint:        cfg.Endpoint,
		Bucket:          cfg.Bucket,
		Region:          cfg.Region,
		AccessKeyID:     cfg.AccessKeyID,
		SecretAccessKey: secret,
		UseSSL:          cfg.UseSSL,
	}
}

// S3Store implements ObjectStore on S3, Aliyun OSS, Tencent COS or MinIO.
type S3Store struct {
	client *minio.Client
	bucket string
}

var _ ObjectStore = (*S3Store)(nil)

// NewS3Store creates a client for cfg. Requests use path-style addressing,
// which every supported service accepts.
func NewS3Store(cfg S3Config) (*S3Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket must not be empty")
	}
	endpoint, secure := normalizeEndpoint(cfg.Endpoint, cfg.UseSSL)
	if endpoint == "" {
		return nil, fmt.Errorf("endpoint must not be empty")
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:        credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure:       secure,
		Region:       cfg.Region,
		BucketLookup: minio.BucketLookupPath,
	})
	if err != nil {
		return nil, fmt.Errorf("creating s3 client for %s: %w", endpoint, err)
	}

	return &S3Store{client: client, bucket: cfg.Bucket}, nil
}

// normalizeEndpoint strips a URL scheme, letting it decide TLS when present.
func normalizeEndpoint(endpoint string, useSSL bool) (string, bool) {
	endpoint = strings.TrimSpace(endpoint)
	switch {
	case strings.HasPrefix(endpoint, "https://"):
		endpoint, useSSL = strings.TrimPrefix(endpoint, "https://"), true
	case strings.HasPrefix(endpoint, "http://"):
		endpoint, useSSL = strings.TrimPrefix(endpoint, "http://"), false
	}
	return strings.TrimRight(endpoint, "/"), useSSL
}

// Get downloads the object at key, or returns ErrNotFound.
func (s *S3Store) Get(ctx context.Context, key string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, mapError(fmt.Sprintf("getting %s/%s", s.bucket, key), err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, mapError(fmt.Sprintf("reading %s/%s", s.bucket, key), err)
	}
	return data, nil
}

// Put uploads data to key, overwriting any existing object. The payload is
// sent unsigned since OSS and COS reject chunked payload signatures.
func (s *S3Store) Put(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := s.client.PutObject(ctx, s.bucket, key,
		bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{
			ContentType:          contentType,
			SendContentMd5:       true,
			DisableContentSha256: true,
		},
	)
	if err != nil {
		return mapError(fmt.Sprintf("putting %s/%s", s.bucket, key), err)
	}
	return nil
}

// mapError turns a missing key into ErrNotFound. A missing bucket stays an
// error since it means the configuration is wrong.
func mapError(op string, err error) error {
	resp := minio.ToErrorResponse(err)
	if resp.Code == "NoSuchKey" {
		return ErrNotFound
	}
	if resp.StatusCode == http.StatusNotFound && resp.Code != "NoSuchBucket" {
		return ErrNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}
