// Package s3 implements the storage backend on an S3 bucket.
//
// Downloads can be offloaded to the bucket (or a CDN in front of it) by
// advertising presigned GET URLs, which the asset handler turns into 307
// redirects.
package s3

import (
	"bytes"
	"context"
	"errors"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/NicoZweifel/aquila/internal/pkg/apierrors"
	"github.com/NicoZweifel/aquila/internal/storage"
)

// Backend stores blobs and manifests in a single bucket. Keys mirror the
// canonical layout: blobs at /<hash>, manifests at /manifests/<version>.
type Backend struct {
	client     *awss3.Client
	uploader   *manager.Uploader
	presigner  *awss3.PresignClient
	bucket     string
	presignTTL time.Duration
	redirect   bool
}

// Option configures the backend.
type Option func(*Backend)

// WithPresignedDownloads advertises presigned GET URLs valid for ttl.
func WithPresignedDownloads(ttl time.Duration) Option {
	return func(b *Backend) {
		b.redirect = true
		b.presignTTL = ttl
	}
}

// New returns a driver for bucket using client.
func New(client *awss3.Client, bucket string, opts ...Option) *Backend {
	b := &Backend{
		client:     client,
		uploader:   manager.NewUploader(client),
		presigner:  awss3.NewPresignClient(client),
		bucket:     bucket,
		presignTTL: 15 * time.Minute,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Backend) WriteBlob(ctx context.Context, hash string, data []byte) (bool, error) {
	return b.WriteBlobStream(ctx, hash, bytes.NewReader(data), int64(len(data)))
}

func (b *Backend) WriteBlobStream(ctx context.Context, hash string, r io.Reader, size int64) (bool, error) {
	exists, err := b.Exists(ctx, hash)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	_, err = b.uploader.Upload(ctx, &awss3.PutObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(hash),
		Body:   r,
	})
	if err != nil {
		return false, apierrors.StorageSystemErr("s3 upload: %v", err)
	}
	return true, nil
}

func (b *Backend) WriteManifest(ctx context.Context, version string, data []byte) error {
	// A single PutObject is atomic on S3: the key serves the old object
	// until the new one is fully committed.
	_, err := b.client.PutObject(ctx, &awss3.PutObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(storage.ManifestPath(version)),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return apierrors.StorageSystemErr("s3 put manifest: %v", err)
	}
	return nil
}

func (b *Backend) ReadFile(ctx context.Context, path string) ([]byte, error) {
	out, err := b.client.GetObject(ctx, &awss3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(path),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, apierrors.StorageNotFoundErr(path)
		}
		return nil, apierrors.StorageSystemErr("s3 get: %v", err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, apierrors.StorageIOErr(err)
	}
	return data, nil
}

func (b *Backend) Exists(ctx context.Context, path string) (bool, error) {
	_, err := b.client.HeadObject(ctx, &awss3.HeadObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(path),
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return false, nil
		}
		return false, apierrors.StorageSystemErr("s3 head: %v", err)
	}
	return true, nil
}

func (b *Backend) DeleteFile(ctx context.Context, path string) error {
	_, err := b.client.DeleteObject(ctx, &awss3.DeleteObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(path),
	})
	if err != nil {
		return apierrors.StorageSystemErr("s3 delete: %v", err)
	}
	return nil
}

func (b *Backend) DownloadURL(ctx context.Context, path string) (string, error) {
	if !b.redirect {
		return "", nil
	}

	req, err := b.presigner.PresignGetObject(ctx, &awss3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(path),
	}, awss3.WithPresignExpires(b.presignTTL))
	if err != nil {
		return "", apierrors.StorageSystemErr("s3 presign: %v", err)
	}
	return req.URL, nil
}
