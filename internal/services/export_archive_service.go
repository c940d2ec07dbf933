package services

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ExportArchiveService keeps a copy of every generated CSV export in object
// storage so large downloads can be re-fetched without re-running the query.
type ExportArchiveService interface {
	EnsureBucket(ctx context.Context) error
	Archive(ctx context.Context, tenantID uuid.UUID, data []byte) (string, error)
}

type minioArchiveService struct {
	client *minio.Client
	bucket string
}

func NewMinioArchiveService(endpoint, accessKey, secretKey string, useSSL bool, bucket string) (ExportArchiveService, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}
	return &minioArchiveService{client: client, bucket: bucket}, nil
}

func (s *minioArchiveService) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket %s: %w", s.bucket, err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", s.bucket, err)
	}
	log.Printf("Created export bucket %s", s.bucket)
	return nil
}

// Archive stores one export under <tenant>/<timestamp>.csv and returns the
// object name. Failures only cost the archived copy, never the download the
// user already received, so callers may ignore the error.
func (s *minioArchiveService) Archive(ctx context.Context, tenantID uuid.UUID, data []byte) (string, error) {
	objectName := fmt.Sprintf("%s/transactions-%s.csv", tenantID, time.Now().UTC().Format("20060102-150405"))
	_, err := s.client.PutObject(ctx, s.bucket, objectName, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "text/csv",
	})
	if err != nil {
		return "", fmt.Errorf("failed to archive export %s: %w", objectName, err)
	}
	return objectName, nil
}
