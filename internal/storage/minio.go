// Package storage keeps message attachments (delivery challans, quotation
// PDFs, photos) in an S3-compatible object store.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/sirupsen/logrus"
)

// AttachmentStore is what the handlers depend on; the zero-value Disabled
// implementation keeps the attachment endpoints working without a configured
// object store.
type AttachmentStore interface {
	Upload(ctx context.Context, data []byte, originalFilename string) (string, error)
	PresignedURL(ctx context.Context, filename string) (string, error)
}

type Options struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

type MinioStore struct {
	client *minio.Client
	bucket string
}

// NewMinioStore connects and ensures the bucket exists.
func NewMinioStore(ctx context.Context, opts Options) (*MinioStore, error) {
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, opts.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, opts.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket: %w", err)
		}
		logrus.WithField("bucket", opts.Bucket).Info("attachment bucket created")
	}

	return &MinioStore{client: client, bucket: opts.Bucket}, nil
}

// Upload stores the file under a generated name and returns that name.
func (s *MinioStore) Upload(ctx context.Context, data []byte, originalFilename string) (string, error) {
	ext := filepath.Ext(originalFilename)
	name := fmt.Sprintf("attachment_%s_%d%s", uuid.New().String()[:8], time.Now().Unix(), ext)

	_, err := s.client.PutObject(ctx, s.bucket, name, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentTypeFor(ext)})
	if err != nil {
		return "", fmt.Errorf("upload attachment: %w", err)
	}
	return name, nil
}

// PresignedURL returns a one-hour download link.
func (s *MinioStore) PresignedURL(ctx context.Context, filename string) (string, error) {
	url, err := s.client.PresignedGetObject(ctx, s.bucket, filename, time.Hour, nil)
	if err != nil {
		return "", fmt.Errorf("presign attachment: %w", err)
	}
	return url.String(), nil
}

func contentTypeFor(ext string) string {
	switch strings.ToLower(ext) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".webp":
		return "image/webp"
	case ".pdf":
		return "application/pdf"
	}
	return "application/octet-stream"
}

// Disabled is the no-store fallback.
type Disabled struct{}

func (Disabled) Upload(context.Context, []byte, string) (string, error) {
	return "", fmt.Errorf("attachment storage is not configured")
}

func (Disabled) PresignedURL(context.Context, string) (string, error) {
	return "", fmt.Errorf("attachment storage is not configured")
}
