package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"

	"github.com/pentesthub/hubvault/internal/config"
	"github.com/pentesthub/hubvault/internal/events"
	"github.com/pentesthub/hubvault/internal/models"
)

// S3Store implements Store against an S3 bucket. The locator is a key
// prefix inside the configured bucket; revision tags are object ETags,
// and conditional writes use If-Match.
type S3Store struct {
	client  *s3.Client
	bucket  string
	prefix  string
	timeout time.Duration
	logger  *events.Logger
}

// NewS3Store creates an S3-backed remote store.
func NewS3Store(ctx context.Context, cfg *config.RemoteConfig, logger *events.Logger) (*S3Store, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return &S3Store{
		client:  s3.NewFromConfig(awsCfg),
		bucket:  cfg.Bucket,
		prefix:  cfg.Prefix,
		timeout: cfg.Timeout,
		logger:  logger.WithField("component", "s3_remote"),
	}, nil
}

// Read fetches an object and its ETag.
func (s *S3Store) Read(ctx context.Context, locator, path string) (*Resource, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(locator, path)),
	})
	if err != nil {
		return nil, s.mapError(err, locator, path)
	}
	defer result.Body.Close()

	content, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, fmt.Errorf("read object body: %w", err)
	}

	s.logger.WithFields(map[string]interface{}{
		"path": path,
		"size": len(content),
	}).Debug("Read object from S3")

	return &Resource{
		Content:     content,
		RevisionTag: aws.ToString(result.ETag),
	}, nil
}

// Write stores an object, conditionally when expectedRevision is set.
func (s *S3Store) Write(ctx context.Context, locator, path string, content []byte, expectedRevision string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(locator, path)),
		Body:   bytes.NewReader(content),
	}
	if expectedRevision != "" {
		input.IfMatch = aws.String(expectedRevision)
	}

	result, err := s.client.PutObject(ctx, input)
	if err != nil {
		return "", s.mapError(err, locator, path)
	}

	s.logger.WithFields(map[string]interface{}{
		"path": path,
		"size": len(content),
	}).Debug("Wrote object to S3")

	return aws.ToString(result.ETag), nil
}

// Probe checks object existence with HeadObject.
func (s *S3Store) Probe(ctx context.Context, locator, path string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(locator, path)),
	})
	if err != nil {
		mapped := s.mapError(err, locator, path)
		if errors.Is(mapped, models.ErrRemoteNotFound) {
			return false, nil
		}
		return false, mapped
	}
	return true, nil
}

// Create returns the configured prefix: the bucket is the container
// and already exists.
func (s *S3Store) Create(ctx context.Context, name string) (string, error) {
	if s.prefix != "" {
		return s.prefix, nil
	}
	return name, nil
}

func (s *S3Store) objectKey(locator, path string) string {
	parts := make([]string, 0, 3)
	if s.prefix != "" && s.prefix != locator {
		parts = append(parts, strings.Trim(s.prefix, "/"))
	}
	if locator != "" {
		parts = append(parts, strings.Trim(locator, "/"))
	}
	parts = append(parts, path)
	return strings.Join(parts, "/")
}

func (s *S3Store) mapError(err error, locator, path string) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", models.ErrNetworkTimeout, err)
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return models.ErrRemoteNotFound
		case "PreconditionFailed":
			return models.ErrRemoteConflict
		}
		return &models.RemoteError{
			StatusCode: 0,
			Message:    apiErr.ErrorCode() + ": " + apiErr.ErrorMessage(),
			Locator:    locator,
			Path:       path,
		}
	}

	return fmt.Errorf("%w: %v", models.ErrRemoteUnavailable, err)
}
