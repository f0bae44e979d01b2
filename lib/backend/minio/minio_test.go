package minio

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/ValentinKolb/tKV/lib/backend"
	backendtesting "github.com/ValentinKolb/tKV/lib/backend/testing"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envOr(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}

// TestMinioBackend_Integration requires a running MinIO instance.
// Skip if not available.
func TestMinioBackend_Integration(t *testing.T) {
	endpoint := envOr("TKV_MINIO_ENDPOINT", "localhost:9000")
	accessKey := envOr("TKV_MINIO_ACCESS_KEY", "minioadmin")
	secretKey := envOr("TKV_MINIO_SECRET_KEY", "minioadmin")
	bucket := "test-tkv"

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: false,
	})
	if err != nil {
		t.Skipf("MinIO client creation failed: %v", err)
	}

	ctx := context.Background()
	if _, err = client.ListBuckets(ctx); err != nil {
		t.Skipf("MinIO not available: %v", err)
	}

	b := NewBackend(client, Options{Bucket: bucket, Prefix: "test-prefix/"})
	require.NoError(t, b.EnsureBucket(ctx))

	backendtesting.RunBackendTests(t, "MinIO", func() backend.IBackend { return b })

	t.Run("MissingKey", func(t *testing.T) {
		buf := make([]byte, 8)
		_, err := b.Get("never-written", buf)
		assert.True(t, errors.Is(err, backend.ErrNotFound))
		assert.NoError(t, b.Delete("never-written"))
	})
}

func TestObjectName(t *testing.T) {
	b := NewBackend(nil, Options{Bucket: "bucket", Prefix: "tkv"})
	assert.Equal(t, "tkv/key", b.ObjectName("key"))
	assert.Equal(t, "tkv/a%2Fb", b.ObjectName("a/b"))
	assert.Equal(t, defaultTimeout, b.opts.Timeout)
}
