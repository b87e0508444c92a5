package clients

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type S3Config struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	UseSSL          bool
	Region          string
	Prefix          string
	URLExpiry       time.Duration
}

// objectAPI is the part of *minio.Client the store needs.
type objectAPI interface {
	PutObject(ctx context.Context, bucket, key string, reader io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	PresignedGetObject(ctx context.Context, bucket, key string, expiry time.Duration, params url.Values) (*url.URL, error)
}

type S3Storage struct {
	raw    objectAPI
	bucket string
	prefix string
	expiry time.Duration
}

func NewS3Storage(cfg S3Config) (*S3Storage, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create s3 client: %w", err)
	}
	return newS3Storage(client, cfg), nil
}

func newS3Storage(raw objectAPI, cfg S3Config) *S3Storage {
	expiry := cfg.URLExpiry
	if expiry <= 0 {
		expiry = 24 * time.Hour
	}
	return &S3Storage{
		raw:    raw,
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
		expiry: expiry,
	}
}

// Save uploads under prefix/YYYY/MM/DD/name.
func (c *S3Storage) Save(ctx context.Context, name string, data []byte, contentType string) (string, error) {
	if c.raw == nil {
		return "", errors.New("s3 client is nil")
	}

	key := c.prefix + path.Join(time.Now().UTC().Format("2006/01/02"), path.Base(name))

	_, err := c.raw.PutObject(ctx, c.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("put object %q failed: %w", key, err)
	}

	return key, nil
}

func (c *S3Storage) URL(ctx context.Context, key string) (string, error) {
	if c.raw == nil {
		return "", errors.New("s3 client is nil")
	}

	u, err := c.raw.PresignedGetObject(ctx, c.bucket, key, c.expiry, nil)
	if err != nil {
		return "", fmt.Errorf("presign get object %q failed: %w", key, err)
	}

	return u.String(), nil
}
