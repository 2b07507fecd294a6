package integration

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/sandeepkv93/cms-admin-backend/internal/service"
)

const (
	defaultMinioTestImage = "docker.io/minio/minio:RELEASE.2025-09-07T16-13-09Z"
	minioRootUser         = "minioadmin"
	minioRootPassword     = "minioadmin"
)

// imageBucket is a throwaway MinIO server holding one bucket of user images.
// storage is the code under test, client inspects the bucket behind its back.
type imageBucket struct {
	bucket  string
	storage *service.MinIOImageStorage
	client  *minio.Client
}

func newMinIOIntegrationEnv(t *testing.T) *imageBucket {
	t.Helper()
	ctx := context.Background()

	image := strings.TrimSpace(os.Getenv("MINIO_TEST_IMAGE"))
	if image == "" {
		image = defaultMinioTestImage
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image: image,
			Env: map[string]string{
				"MINIO_ROOT_USER":     minioRootUser,
				"MINIO_ROOT_PASSWORD": minioRootPassword,
			},
			ExposedPorts: []string{"9000/tcp"},
			Cmd:          []string{"server", "/data", "--address", ":9000"},
			WaitingFor:   wait.ForHTTP("/minio/health/ready").WithPort("9000/tcp").WithStartupTimeout(45 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("start minio container: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	endpoint, err := container.PortEndpoint(ctx, "9000/tcp", "")
	if err != nil {
		t.Fatalf("resolve minio endpoint: %v", err)
	}

	bucket := fmt.Sprintf("user-images-it-%d", time.Now().UnixNano())
	storage, err := service.NewMinIOImageStorage(endpoint, minioRootUser, minioRootPassword, bucket, false)
	if err != nil {
		t.Fatalf("create image storage: %v", err)
	}
	client, err := minio.New(endpoint, &minio.Options{Creds: credentials.NewStaticV4(minioRootUser, minioRootPassword, "")})
	if err != nil {
		t.Fatalf("create minio client: %v", err)
	}
	return &imageBucket{bucket: bucket, storage: storage, client: client}
}

func (b *imageBucket) stat(key string) (minio.ObjectInfo, error) {
	return b.client.StatObject(context.Background(), b.bucket, key, minio.StatObjectOptions{})
}

func (b *imageBucket) mustStatObject(t *testing.T, key string) minio.ObjectInfo {
	t.Helper()
	obj, err := b.stat(key)
	if err != nil {
		t.Fatalf("stat %q: %v", key, err)
	}
	return obj
}

func (b *imageBucket) mustObjectExists(t *testing.T, key string) bool {
	t.Helper()
	_, err := b.stat(key)
	switch {
	case err == nil:
		return true
	case isObjectNotFound(err):
		return false
	}
	t.Fatalf("stat %q: %v", key, err)
	return false
}

func (b *imageBucket) countObjects(t *testing.T, prefix string) int {
	t.Helper()
	n := 0
	for obj := range b.client.ListObjects(context.Background(), b.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			if isObjectNotFound(obj.Err) {
				return 0
			}
			t.Fatalf("list %q: %v", prefix, obj.Err)
		}
		n++
	}
	return n
}

func isObjectNotFound(err error) bool {
	var resp minio.ErrorResponse
	if errors.As(err, &resp) {
		return resp.Code == "NoSuchKey" || resp.Code == "NoSuchBucket"
	}
	return false
}
