package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/sandeepkv93/cms-admin-backend/internal/observability"
)

const (
	maxUserImageSize    = maxImageKilobytes * 1024
	presignedURLTTL     = 15 * time.Minute
	userImagePathPrefix = "users"
)

var (
	ErrStorageDisabled      = errors.New("image storage is disabled")
	ErrFileTooBig           = errors.New("file size exceeds 1MB limit")
	ErrInvalidFileType      = errors.New("invalid file type, only PNG, JPEG and GIF images are allowed")
	ErrBucketCreationFailed = errors.New("failed to create storage bucket")
	ErrUploadFailed         = errors.New("failed to upload file")
	ErrDeleteFailed         = errors.New("failed to delete file")
	ErrURLGenerationFailed  = errors.New("failed to generate presigned URL")
	ErrInvalidObjectKey     = errors.New("invalid object key")

	allowedImageTypes = map[string]string{
		"image/jpeg": ".jpg",
		"image/png":  ".png",
		"image/gif":  ".gif",
	}
)

// MinIOImageStorage stores user pictures in an S3-compatible bucket.
type MinIOImageStorage struct {
	client     *minio.Client
	bucketName string
	initOnce   sync.Once
	initErr    error
}

// NewMinIOImageStorage creates the client only. The bucket is created on
// first use so startup does not depend on MinIO being reachable.
func NewMinIOImageStorage(endpoint, accessKey, secretKey, bucketName string, useSSL bool) (*MinIOImageStorage, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}
	return &MinIOImageStorage{client: client, bucketName: bucketName}, nil
}

func (s *MinIOImageStorage) Enabled() bool { return true }

func (s *MinIOImageStorage) lazyInit(ctx context.Context) error {
	s.initOnce.Do(func() {
		s.initErr = s.ensureBucketExists(ctx)
	})
	return s.initErr
}

func (s *MinIOImageStorage) ensureBucketExists(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucketName)
	if err != nil {
		return fmt.Errorf("%w: check bucket existence: %v", ErrBucketCreationFailed, err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucketName, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("%w: create bucket: %v", ErrBucketCreationFailed, err)
		}
	}
	return nil
}

// UploadUserImage stores the picture under users/<id>/. The type is taken
// from the leading bytes, never from the client.
func (s *MinIOImageStorage) UploadUserImage(ctx context.Context, userID uint, file io.Reader, fileSize int64, _ string) (string, error) {
	if fileSize > maxUserImageSize {
		observability.RecordStorageOperation(ctx, "upload", "too_big")
		return "", ErrFileTooBig
	}

	buf := make([]byte, 512)
	n, err := io.ReadFull(file, buf)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return "", fmt.Errorf("%w: read file for content detection: %v", ErrUploadFailed, err)
	}
	buf = buf[:n]
	detected := strings.ToLower(http.DetectContentType(buf))
	ext, allowed := allowedImageTypes[detected]
	if !allowed {
		observability.RecordStorageOperation(ctx, "upload", "rejected_type")
		return "", ErrInvalidFileType
	}

	if err := s.lazyInit(ctx); err != nil {
		observability.RecordStorageOperation(ctx, "upload", "error")
		return "", err
	}

	objectKey := fmt.Sprintf("%s/%d/%s%s", userImagePathPrefix, userID, uuid.NewString(), ext)
	_, err = s.client.PutObject(ctx, s.bucketName, objectKey, io.MultiReader(bytes.NewReader(buf), file), fileSize, minio.PutObjectOptions{
		ContentType: detected,
		UserMetadata: map[string]string{
			"User-ID":     fmt.Sprintf("%d", userID),
			"Uploaded-At": time.Now().UTC().Format(time.RFC3339),
		},
	})
	if err != nil {
		observability.RecordStorageOperation(ctx, "upload", "error")
		return "", fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}
	observability.RecordStorageOperation(ctx, "upload", "success")
	observability.RecordStorageUploadSize(ctx, detected, fileSize)
	return objectKey, nil
}

func (s *MinIOImageStorage) DeleteUserImage(ctx context.Context, objectKey string) error {
	if strings.TrimSpace(objectKey) == "" {
		return nil
	}
	if strings.Contains(objectKey, "..") || !strings.HasPrefix(objectKey, userImagePathPrefix+"/") {
		return ErrInvalidObjectKey
	}
	if err := s.lazyInit(ctx); err != nil {
		return err
	}
	if err := s.client.RemoveObject(ctx, s.bucketName, objectKey, minio.RemoveObjectOptions{}); err != nil {
		observability.RecordStorageOperation(ctx, "delete", "error")
		return fmt.Errorf("%w: %v", ErrDeleteFailed, err)
	}
	observability.RecordStorageOperation(ctx, "delete", "success")
	return nil
}

func (s *MinIOImageStorage) ImageURL(ctx context.Context, objectKey string) (string, error) {
	if strings.TrimSpace(objectKey) == "" {
		return "", fmt.Errorf("%w: empty object key", ErrURLGenerationFailed)
	}
	if err := s.lazyInit(ctx); err != nil {
		return "", err
	}
	u, err := s.client.PresignedGetObject(ctx, s.bucketName, objectKey, presignedURLTTL, url.Values{})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrURLGenerationFailed, err)
	}
	return u.String(), nil
}

// NoopImageStorage is used when storage is disabled. Uploads are refused;
// deletes succeed so user removal never depends on storage.
type NoopImageStorage struct{}

func NewNoopImageStorage() *NoopImageStorage { return &NoopImageStorage{} }

func (NoopImageStorage) Enabled() bool { return false }

func (NoopImageStorage) UploadUserImage(context.Context, uint, io.Reader, int64, string) (string, error) {
	return "", ErrStorageDisabled
}

func (NoopImageStorage) DeleteUserImage(context.Context, string) error { return nil }

func (NoopImageStorage) ImageURL(context.Context, string) (string, error) {
	return "", ErrStorageDisabled
}

// Ping reports whether the bucket can be reached.
func (s *MinIOImageStorage) Ping(ctx context.Context) error {
	if _, err := s.client.BucketExists(ctx, s.bucketName); err != nil {
		return fmt.Errorf("check bucket %s: %w", s.bucketName, err)
	}
	return nil
}
