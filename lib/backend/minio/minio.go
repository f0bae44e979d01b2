// Package minio implements a durable backend for MinIO and other S3-compatible
// object stores. Every key is stored as one object below a common prefix.
package minio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/ValentinKolb/tKV/lib/backend"
	"github.com/minio/minio-go/v7"
)

const defaultTimeout = 10 * time.Second

// Options configures the MinIO backend
type Options struct {
	Bucket string
	// Prefix is prepended to all object names (e.g. "tkv/")
	Prefix string
	// Timeout bounds every single request. Default: 10s
	Timeout time.Duration
}

// Backend stores entries as objects in a MinIO bucket
type Backend struct {
	client *minio.Client
	opts   Options
}

// NewBackend creates a MinIO backend
func NewBackend(client *minio.Client, opts Options) *Backend {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	return &Backend{
		client: client,
		opts:   opts,
	}
}

// EnsureBucket creates the configured bucket if it does not exist yet
func (b *Backend) EnsureBucket(ctx context.Context) error {
	exists, err := b.client.BucketExists(ctx, b.opts.Bucket)
	if err != nil {
		return fmt.Errorf("minio backend: check bucket %q: %w", b.opts.Bucket, err)
	}
	if exists {
		return nil
	}
	if err := b.client.MakeBucket(ctx, b.opts.Bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("minio backend: create bucket %q: %w", b.opts.Bucket, err)
	}
	return nil
}

// ObjectName returns the object name used for key
func (b *Backend) ObjectName(key string) string {
	return path.Join(b.opts.Prefix, backend.EscapeKey(key))
}

// Insert uploads value as the object for key
func (b *Backend) Insert(key string, value []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), b.opts.Timeout)
	defer cancel()

	_, err := b.client.PutObject(ctx, b.opts.Bucket, b.ObjectName(key), bytes.NewReader(value), int64(len(value)), minio.PutObjectOptions{})
	if err != nil {
		return fmt.Errorf("minio backend: put %q: %w", key, err)
	}
	return nil
}

// Get downloads the object for key into buf
func (b *Backend) Get(key string, buf []byte) (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), b.opts.Timeout)
	defer cancel()

	obj, err := b.client.GetObject(ctx, b.opts.Bucket, b.ObjectName(key), minio.GetObjectOptions{})
	if err != nil {
		return 0, b.mapError("get", key, err)
	}
	defer obj.Close()

	// GetObject is lazy, Stat performs the request
	info, err := obj.Stat()
	if err != nil {
		return 0, b.mapError("get", key, err)
	}
	if info.Size > int64(len(buf)) {
		return 0, fmt.Errorf("%w: object has %d bytes, buffer %d", backend.ErrBufferTooSmall, info.Size, len(buf))
	}

	n, err := io.ReadFull(obj, buf[:info.Size])
	if err != nil {
		return 0, fmt.Errorf("minio backend: read %q: %w", key, err)
	}
	return n, nil
}

// Delete removes the object for key. Missing objects are ignored.
func (b *Backend) Delete(key string) error {
	ctx, cancel := context.WithTimeout(context.Background(), b.opts.Timeout)
	defer cancel()

	if err := b.client.RemoveObject(ctx, b.opts.Bucket, b.ObjectName(key), minio.RemoveObjectOptions{}); err != nil {
		if isNotFound(err) {
			return nil
		}
		return fmt.Errorf("minio backend: delete %q: %w", key, err)
	}
	return nil
}

func (b *Backend) mapError(op, key string, err error) error {
	if isNotFound(err) {
		return backend.ErrNotFound
	}
	return fmt.Errorf("minio backend: %s %q: %w", op, key, err)
}

func isNotFound(err error) bool {
	code := minio.ToErrorResponse(err).Code
	return code == "NoSuchKey" || code == "NotFound"
}

var _ backend.IBackend = (*Backend)(nil)
