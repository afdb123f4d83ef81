package storage

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/interntrack/tracker/internal/config"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const exportContentType = "application/json"

// ExportArchive keeps a copy of every export in a MinIO bucket.
type ExportArchive struct {
	client *minio.Client
	bucket string
}

// NewExportArchive creates a MinIO client and ensures the bucket exists.
func NewExportArchive(ctx context.Context, cfg config.MinIOConfig) (*ExportArchive, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("minio config missing")
	}
	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("minio new: %w", err)
	}
	a := &ExportArchive{client: mc, bucket: cfg.Bucket}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := mc.MakeBucket(ctx, a.bucket, minio.MakeBucketOptions{}); err != nil {
		// ignore "already exists" style errors
		exist, xerr := mc.BucketExists(ctx, a.bucket)
		if xerr != nil || !exist {
			return nil, fmt.Errorf("minio bucket ensure: %w", err)
		}
	}
	return a, nil
}

// Bucket returns the target bucket name.
func (a *ExportArchive) Bucket() string { return a.bucket }

// Archive stores data under name. Later exports on the same day overwrite
// the earlier object.
func (a *ExportArchive) Archive(ctx context.Context, name string, data []byte) error {
	_, err := a.client.PutObject(ctx, a.bucket, name, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: exportContentType})
	if err != nil {
		return fmt.Errorf("archive %s/%s: %w", a.bucket, name, err)
	}
	return nil
}

// PresignedURL returns a GET URL for an archived export valid for expires.
func (a *ExportArchive) PresignedURL(ctx context.Context, name string, expires time.Duration) (string, error) {
	u, err := a.client.PresignedGetObject(ctx, a.bucket, name, expires, make(url.Values))
	if err != nil {
		return "", err
	}
	return u.String(), nil
}
