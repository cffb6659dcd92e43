package minio

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"

	"img-thumbs/internal/config"
	"img-thumbs/internal/repository"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"
)

type FileRepository struct {
	client    *minio.Client
	bucket    string
	publicURL string
	retries   retry.Strategy
	logger    *zlog.Zerolog
}

func NewMinIORepository(cfg *config.Config, retries retry.Strategy, logger *zlog.Zerolog) (*FileRepository, error) {
	client, err := minio.New(cfg.MinIO.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinIO.AccessKey, cfg.MinIO.SecretKey, ""),
		Secure: cfg.MinIO.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	repo := &FileRepository{
		client:    client,
		bucket:    cfg.MinIO.Bucket,
		publicURL: cfg.MinIO.PublicURL,
		retries:   retries,
		logger:    logger,
	}

	if err := repo.ensureBucket(context.Background()); err != nil {
		return nil, err
	}

	return repo, nil
}

func (r *FileRepository) ensureBucket(ctx context.Context) error {
	return retry.Do(func() error {
		exists, err := r.client.BucketExists(ctx, r.bucket)
		if err != nil {
			return fmt.Errorf("failed to check bucket %s: %w", r.bucket, err)
		}
		if exists {
			return nil
		}

		if err := r.client.MakeBucket(ctx, r.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", r.bucket, err)
		}

		r.logger.Info().Str("bucket", r.bucket).Msg("Bucket created")
		return nil
	}, r.retries)
}

// Put stores data under path, overwriting any existing object.
func (r *FileRepository) Put(ctx context.Context, path string, data []byte, contentType string) error {
	err := retry.Do(func() error {
		_, err := r.client.PutObject(ctx, r.bucket, path, bytes.NewReader(data), int64(len(data)),
			minio.PutObjectOptions{ContentType: contentType})
		return err
	}, r.retries)
	if err != nil {
		r.logger.Error().Err(err).Str("path", path).Msg("Failed to put object")
		return fmt.Errorf("%w: failed to put %s: %w", repository.ErrStorageError, path, err)
	}

	return nil
}

func (r *FileRepository) Delete(ctx context.Context, path string) error {
	err := retry.Do(func() error {
		return r.client.RemoveObject(ctx, r.bucket, path, minio.RemoveObjectOptions{})
	}, r.retries)
	if err != nil {
		resp := minio.ToErrorResponse(err)
		if resp.Code == "NoSuchKey" {
			return repository.ErrFileNotFound
		}
		return fmt.Errorf("%w: failed to delete %s: %w", repository.ErrStorageError, path, err)
	}

	return nil
}

// URL returns the public address of the object stored at path.
func (r *FileRepository) URL(path string) string {
	segments := strings.Split(path, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return r.publicURL + "/" + strings.Join(segments, "/")
}
