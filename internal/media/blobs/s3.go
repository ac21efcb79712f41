package blobs

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Scheme prefixes references produced by S3Storage.
const S3Scheme = "s3://"

// S3API is the subset of the S3 client used here.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Config configures an S3-compatible backend such as AWS, R2 or MinIO.
type S3Config struct {
	Endpoint      string // empty for AWS; set for R2/MinIO
	Region        string
	Bucket        string
	AccessKey     string
	SecretKey     string
	PublicBaseURL string
}

// S3Storage stores objects in an S3-compatible bucket.
type S3Storage struct {
	client        S3API
	bucket        string
	publicBaseURL string
}

// NewS3Storage builds a client from cfg. Static credentials are used when
// both keys are set; otherwise the default AWS credential chain applies.
func NewS3Storage(ctx context.Context, cfg S3Config) (*S3Storage, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket cannot be empty")
	}
	region := cfg.Region
	if region == "" {
		region = "auto"
	}

	opts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load s3 config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return NewS3StorageWithClient(client, cfg.Bucket, cfg.PublicBaseURL), nil
}

// NewS3StorageWithClient wraps an existing client.
func NewS3StorageWithClient(client S3API, bucket, publicBaseURL string) *S3Storage {
	return &S3Storage{
		client:        client,
		bucket:        bucket,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
	}
}

// Store uploads data and returns an "s3://bucket/key" reference.
func (s *S3Storage) Store(ctx context.Context, data []byte, contentType, hint string) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("blob data cannot be empty")
	}

	key := ObjectKey(hint, contentType)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to s3: %w", err)
	}
	return S3Scheme + s.bucket + "/" + key, nil
}

// Release deletes the object behind ref. S3 deletes are idempotent.
func (s *S3Storage) Release(ctx context.Context, ref string) error {
	key, err := s.keyFromRef(ref)
	if err != nil {
		return err
	}

	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete from s3: %w", err)
	}
	return nil
}

// PublicURL maps a reference to its CDN URL, or returns ref unchanged when no
// public base URL is configured.
func (s *S3Storage) PublicURL(ref string) string {
	key, err := s.keyFromRef(ref)
	if err != nil || s.publicBaseURL == "" {
		return ref
	}
	return s.publicBaseURL + "/" + key
}

func (s *S3Storage) keyFromRef(ref string) (string, error) {
	rest, ok := strings.CutPrefix(ref, S3Scheme)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownRef, ref)
	}
	bucket, key, ok := strings.Cut(rest, "/")
	if !ok || bucket != s.bucket || !validKey(key) {
		return "", fmt.Errorf("%w: %q", ErrUnknownRef, ref)
	}
	return key, nil
}
