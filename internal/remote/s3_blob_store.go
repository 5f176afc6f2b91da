package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/TheMichaelB/notesync/internal/events"
	"github.com/TheMichaelB/notesync/internal/models"
)

// S3BlobStore implements BlobStore on an S3 bucket.
type S3BlobStore struct {
	client *s3.Client
	bucket string
	prefix string
	logger *events.Logger
}

// NewS3BlobStore creates an S3-backed blob store.
func NewS3BlobStore(ctx context.Context, bucket, prefix string, logger *events.Logger) (*S3BlobStore, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return &S3BlobStore{
		client: s3.NewFromConfig(cfg),
		bucket: bucket,
		prefix: prefix,
		logger: logger.WithField("component", "s3_blob_store"),
	}, nil
}

func (s *S3BlobStore) buildKey(key string) string {
	if s.prefix == "" {
		return key
	}
	return path.Join(s.prefix, key)
}

// Upload stores a payload.
func (s *S3BlobStore) Upload(ctx context.Context, key string, data []byte) (string, error) {
	objectKey := s.buildKey(key)

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return "", fmt.Errorf("s3 put object: %w", err)
	}

	s.logger.WithFields(map[string]interface{}{
		"key":  objectKey,
		"size": len(data),
	}).Debug("Uploaded blob to S3")

	return fmt.Sprintf("s3://%s/%s", s.bucket, objectKey), nil
}

// Download retrieves a payload.
func (s *S3BlobStore) Download(ctx context.Context, key string) ([]byte, error) {
	objectKey := s.buildKey(key)

	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, models.ErrBlobNotFound
		}
		return nil, fmt.Errorf("s3 get object: %w", err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, fmt.Errorf("read s3 object: %w", err)
	}
	return data, nil
}

// Delete removes a payload.
func (s *S3BlobStore) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.buildKey(key)),
	})
	if err != nil {
		return fmt.Errorf("s3 delete object: %w", err)
	}
	return nil
}
