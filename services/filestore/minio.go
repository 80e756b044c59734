package filestore

import (
	"context"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/pkg/errors"

	"github.com/trezcool/eteeap/core"
)

// MinioStore keeps files as objects of a single bucket.
type MinioStore struct {
	client *minio.Client
	bucket string
}

var _ core.FileStore = (*MinioStore)(nil)

// NewMinioStore connects to the configured endpoint and creates the bucket when missing.
func NewMinioStore(ctx context.Context, conf *core.Config) (*MinioStore, error) {
	client, err := minio.New(conf.Storage.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(conf.Storage.AccessKey, conf.Storage.SecretKey, ""),
		Secure: conf.Storage.UseSSL,
	})
	if err != nil {
		return nil, errors.Wrap(err, "creating minio client")
	}

	exists, err := client.BucketExists(ctx, conf.Storage.Bucket)
	if err != nil {
		return nil, errors.Wrap(err, "checking bucket")
	}
	if !exists {
		if err = client.MakeBucket(ctx, conf.Storage.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, errors.Wrap(err, "creating bucket")
		}
	}
	return &MinioStore{client: client, bucket: conf.Storage.Bucket}, nil
}

func (s *MinioStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	_, err := s.client.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{ContentType: contentType})
	return errors.Wrap(err, "putting object")
}

func (s *MinioStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, errors.Wrap(err, "getting object")
	}
	// GetObject is lazy: stat to surface a missing key now
	if _, err = obj.Stat(); err != nil {
		_ = obj.Close()
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, core.ErrFileNotFound
		}
		return nil, errors.Wrap(err, "getting object")
	}
	return obj, nil
}

func (s *MinioStore) Delete(ctx context.Context, key string) error {
	return errors.Wrap(s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}), "removing object")
}
