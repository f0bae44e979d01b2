// Package s3 implements a durable backend that stores one object per key in an
// Amazon S3 bucket. Keys are path-escaped before they are joined with the prefix,
// so every key maps to exactly one object.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/ValentinKolb/tKV/lib/backend"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

const defaultTimeout = 10 * time.Second

// Client is the subset of the S3 API used by the backend
type Client interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// Options configures the S3 backend
type Options struct {
	Bucket string
	// Prefix is prepended to all object names (e.g. "tkv/")
	Prefix string
	// Timeout bounds every single request. Default: 10s
	Timeout time.Duration
}

// Backend stores entries as objects in an S3 bucket
type Backend struct {
	client Client
	opts   Options
}

// NewBackend creates an S3 backend
func NewBackend(client Client, opts Options) *Backend {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	return &Backend{
		client: client,
		opts:   opts,
	}
}

// ObjectName returns the object name used for key
func (b *Backend) ObjectName(key string) string {
	return path.Join(b.opts.Prefix, backend.EscapeKey(key))
}

// Insert uploads value as the object for key
func (b *Backend) Insert(key string, value []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), b.opts.Timeout)
	defer cancel()

	if _, err := b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(b.opts.Bucket),
		Key:           aws.String(b.ObjectName(key)),
		Body:          bytes.NewReader(value),
		ContentLength: aws.Int64(int64(len(value))),
	}); err != nil {
		return fmt.Errorf("s3 backend: put %q: %w", key, err)
	}
	return nil
}

// Get downloads the object for key into buf
func (b *Backend) Get(key string, buf []byte) (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), b.opts.Timeout)
	defer cancel()

	out, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.opts.Bucket),
		Key:    aws.String(b.ObjectName(key)),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return 0, backend.ErrNotFound
		}
		var nf *types.NotFound
		if errors.As(err, &nf) {
			return 0, backend.ErrNotFound
		}
		return 0, fmt.Errorf("s3 backend: get %q: %w", key, err)
	}
	defer out.Body.Close()

	if out.ContentLength != nil && *out.ContentLength > int64(len(buf)) {
		return 0, fmt.Errorf("%w: object has %d bytes, buffer %d", backend.ErrBufferTooSmall, *out.ContentLength, len(buf))
	}
	return readInto(out.Body, buf)
}

// Delete removes the object for key. S3 does not report missing objects on delete.
func (b *Backend) Delete(key string) error {
	ctx, cancel := context.WithTimeout(context.Background(), b.opts.Timeout)
	defer cancel()

	if _, err := b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(b.opts.Bucket),
		Key:    aws.String(b.ObjectName(key)),
	}); err != nil {
		return fmt.Errorf("s3 backend: delete %q: %w", key, err)
	}
	return nil
}

// readInto reads r completely into buf and fails if r holds more than len(buf) bytes
func readInto(r io.Reader, buf []byte) (int, error) {
	var extra [1]byte
	n, err := io.ReadFull(r, buf)
	switch {
	case errors.Is(err, io.ErrUnexpectedEOF), errors.Is(err, io.EOF):
		return n, nil
	case err != nil:
		return 0, err
	}
	// buffer is full, the object must end here
	if m, _ := io.ReadFull(r, extra[:]); m > 0 {
		return 0, fmt.Errorf("%w: object larger than %d bytes", backend.ErrBufferTooSmall, len(buf))
	}
	return n, nil
}

var _ backend.IBackend = (*Backend)(nil)
