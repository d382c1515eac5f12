package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/noah-isme/studybase-api/pkg/config"
)

const (
	s3UploadTimeout = 2 * time.Minute
	s3OpTimeout     = 30 * time.Second
)

// S3API is the subset of the S3 client used by S3Store.
type S3API interface {
	manager.UploadAPIClient
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Store keeps course materials in an S3 (or S3-compatible) bucket.
type S3Store struct {
	client    S3API
	uploader  *manager.Uploader
	bucket    string
	region    string
	publicURL string
}

// NewS3Client builds an S3 client from static credentials. A custom endpoint switches to path-style addressing.
func NewS3Client(ctx context.Context, cfg config.S3Config) (*s3.Client, error) {
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("s3 credentials not set")
	}
	if cfg.Region == "" {
		return nil, fmt.Errorf("s3 region not set")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(
		ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

// NewS3Store wraps an S3 client for a bucket. publicURL overrides the virtual-hosted URL format.
func NewS3Store(client S3API, bucket, region, publicURL string) *S3Store {
	return &S3Store{
		client:    client,
		uploader:  manager.NewUploader(client),
		bucket:    bucket,
		region:    region,
		publicURL: publicURL,
	}
}

// Put uploads body under key.
func (s *S3Store) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (*Object, error) {
	ctxUpload, cancel := context.WithTimeout(ctx, s3UploadTimeout)
	defer cancel()

	input := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	}
	if size > 0 {
		input.ContentLength = aws.Int64(size)
	}
	if _, err := s.uploader.Upload(ctxUpload, input); err != nil {
		return nil, fmt.Errorf("s3 upload %s: %w", key, err)
	}
	return &Object{Key: key, URL: s.URL(key), Size: size, ContentType: contentType}, nil
}

// Get streams an object body. The caller closes it.
func (s *S3Store) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	resp, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("s3 get %s: %w", key, err)
	}
	return resp.Body, nil
}

// Delete removes an object; a missing key is not an error.
func (s *S3Store) Delete(ctx context.Context, key string) error {
	ctxDel, cancel := context.WithTimeout(ctx, s3OpTimeout)
	defer cancel()

	_, err := s.client.DeleteObject(ctxDel, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil
		}
		return fmt.Errorf("s3 delete %s: %w", key, err)
	}
	return nil
}

// URL returns the public object URL.
func (s *S3Store) URL(key string) string {
	if s.publicURL != "" {
		return fmt.Sprintf("%s/%s", s.publicURL, escapeKey(key))
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, escapeKey(key))
}
