package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ObjectStore is the subset of *minio.Client the archive needs.
type ObjectStore interface {
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
}

// ArchiveService writes JSON documents (statistics snapshots) to object storage.
type ArchiveService interface {
	EnsureBucket(ctx context.Context) error
	ArchiveSnapshot(ctx context.Context, name string, payload interface{}) error
	Ping(ctx context.Context) error
}

type archiveService struct {
	store  ObjectStore
	bucket string
}

func NewMinioClient(endpoint, accessKey, secretKey string, useSSL bool) (*minio.Client, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}
	return client, nil
}

func NewArchiveService(store ObjectStore, bucket string) ArchiveService {
	return &archiveService{store: store, bucket: bucket}
}

func (a *archiveService) EnsureBucket(ctx context.Context) error {
	found, err := a.store.BucketExists(ctx, a.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket %s: %w", a.bucket, err)
	}
	if found {
		return nil
	}
	if err := a.store.MakeBucket(ctx, a.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", a.bucket, err)
	}
	return nil
}

func (a *archiveService) ArchiveSnapshot(ctx context.Context, name string, payload interface{}) error {
	body, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	_, err = a.store.PutObject(ctx, a.bucket, name, bytes.NewReader(body), int64(len(body)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", name, err)
	}
	return nil
}

// Ping reports whether the archive bucket is reachable.
func (a *archiveService) Ping(ctx context.Context) error {
	found, err := a.store.BucketExists(ctx, a.bucket)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("bucket %s does not exist", a.bucket)
	}
	return nil
}
