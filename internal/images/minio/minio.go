// Package minio stores student images as objects in a MinIO / S3 bucket.
package minio

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/thedynamicdoers/institute-api/internal/images"
)

const noSuchKey = "NoSuchKey"

// minioAPI is the subset of *minio.Client used here; tests swap in a fake.
type minioAPI interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (io.ReadCloser, error)
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
	StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
}

type clientWrapper struct{ c *minio.Client }

func (w clientWrapper) BucketExists(ctx context.Context, bucketName string) (bool, error) {
	return w.c.BucketExists(ctx, bucketName)
}
func (w clientWrapper) MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error {
	return w.c.MakeBucket(ctx, bucketName, opts)
}
func (w clientWrapper) PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	return w.c.PutObject(ctx, bucketName, objectName, reader, objectSize, opts)
}
func (w clientWrapper) GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (io.ReadCloser, error) {
	obj, err := w.c.GetObject(ctx, bucketName, objectName, opts)
	if err != nil {
		return nil, err
	}
	return obj, nil
}
func (w clientWrapper) RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error {
	return w.c.RemoveObject(ctx, bucketName, objectName, opts)
}
func (w clientWrapper) StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error) {
	return w.c.StatObject(ctx, bucketName, objectName, opts)
}

var _ images.Store = (*Bucket)(nil)

// Bucket is an images.Store backed by one bucket; object keys are the
// image file names.
type Bucket struct {
	api    minioAPI
	bucket string
}

// Options describes how to reach the object store.
type Options struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// New dials the endpoint and makes sure the bucket exists.
func New(ctx context.Context, opts Options) (*Bucket, error) {
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio.New: %w", err)
	}

	return NewWithAPI(ctx, clientWrapper{c: client}, opts.Bucket)
}

// NewWithAPI allows injecting a mockable API.
func NewWithAPI(ctx context.Context, api minioAPI, bucket string) (*Bucket, error) {
	b := &Bucket{api: api, bucket: bucket}

	if err := b.ensureBucketExists(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure bucket exists: %w", err)
	}

	return b, nil
}

func (b *Bucket) ensureBucketExists(ctx context.Context) error {
	exists, err := b.api.BucketExists(ctx, b.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}

	if !exists {
		if err := b.api.MakeBucket(ctx, b.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	return nil
}

func (b *Bucket) Write(ctx context.Context, name string, data []byte) error {
	_, err := b.api.PutObject(ctx, b.bucket, name, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: images.ContentType})
	if err != nil {
		return fmt.Errorf("write image %s: %w", name, err)
	}
	return nil
}

// Read fetches the whole object. minio reports a missing key lazily, on
// the first read, so both GetObject and ReadAll errors are checked.
func (b *Bucket) Read(ctx context.Context, name string) ([]byte, error) {
	obj, err := b.api.GetObject(ctx, b.bucket, name, minio.GetObjectOptions{})
	if err != nil {
		return nil, b.readErr(name, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, b.readErr(name, err)
	}

	return data, nil
}

func (b *Bucket) readErr(name string, err error) error {
	if minio.ToErrorResponse(err).Code == noSuchKey {
		return fmt.Errorf("read image %s: %w", name, images.ErrNotExist)
	}
	return fmt.Errorf("read image %s: %w", name, err)
}

// Delete removes the object. S3 deletes are idempotent, so a stat call
// first tells callers whether anything was there.
func (b *Bucket) Delete(ctx context.Context, name string) error {
	if _, err := b.api.StatObject(ctx, b.bucket, name, minio.StatObjectOptions{}); err != nil {
		if minio.ToErrorResponse(err).Code == noSuchKey {
			return fmt.Errorf("delete image %s: %w", name, images.ErrNotExist)
		}
		return fmt.Errorf("delete image %s: %w", name, err)
	}

	if err := b.api.RemoveObject(ctx, b.bucket, name, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("delete image %s: %w", name, err)
	}

	return nil
}
