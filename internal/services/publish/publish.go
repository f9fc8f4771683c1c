// Package publish uploads rendered dashboards to S3-compatible object storage.
package publish

import (
	"context"
	"errors"
	"fmt"
	"path"
	"path/filepath"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/j-veylop/cursor-usage-dashboard/internal/config"
	"github.com/j-veylop/cursor-usage-dashboard/internal/logger"
)

const contentType = "text/html; charset=utf-8"

// ErrDisabled is returned by New when no object store is configured.
var ErrDisabled = errors.New("object store is not configured")

// objectClient is the subset of *minio.Client used for uploads.
type objectClient interface {
	BucketExists(ctx context.Context, bucket string) (bool, error)
	MakeBucket(ctx context.Context, bucket string, opts minio.MakeBucketOptions) error
	FPutObject(ctx context.Context, bucket, object, filePath string, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// Publisher uploads dashboards into a bucket under a key prefix.
type Publisher struct {
	client objectClient
	bucket string
	prefix string
	// ensured is set once the bucket is known to exist.
	ensured bool
}

// New creates a publisher for cfg.
func New(cfg config.ObjectStoreConfig) (*Publisher, error) {
	if !cfg.Enabled() {
		return nil, ErrDisabled
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create object store client: %w", err)
	}
	return newPublisher(client, cfg.Bucket, cfg.Prefix), nil
}

func newPublisher(client objectClient, bucket, prefix string) *Publisher {
	return &Publisher{client: client, bucket: bucket, prefix: prefix}
}

// Key returns the object key a dashboard file is stored under.
func (p *Publisher) Key(filePath string) string {
	return path.Join(p.prefix, filepath.Base(filePath))
}

// Upload stores the dashboard at filePath and returns its object URI.
func (p *Publisher) Upload(ctx context.Context, filePath string) (string, error) {
	if err := p.ensureBucket(ctx); err != nil {
		return "", err
	}

	key := p.Key(filePath)
	info, err := p.client.FPutObject(ctx, p.bucket, key, filePath, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}

	uri := fmt.Sprintf("s3://%s/%s", p.bucket, key)
	logger.Info("Published dashboard", "uri", uri, "size", info.Size)
	return uri, nil
}

func (p *Publisher) ensureBucket(ctx context.Context) error {
	if p.ensured {
		return nil
	}
	exists, err := p.client.BucketExists(ctx, p.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", p.bucket, err)
	}
	if !exists {
		if err := p.client.MakeBucket(ctx, p.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("create bucket %s: %w", p.bucket, err)
		}
		logger.Info("Created bucket", "bucket", p.bucket)
	}
	p.ensured = true
	return nil
}
