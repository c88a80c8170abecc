package blobstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3Store keeps blobs in an S3 compatible bucket
type S3Store struct {
	client *s3.Client
	bucket string
	prefix string // Optional key prefix (e.g., "uploads/")
}

// S3StoreConfig holds configuration for S3Store.
type S3StoreConfig struct {
	Bucket   string
	Region   string
	Endpoint string // Optional custom endpoint (for MinIO, LocalStack, etc.)
	Prefix   string
}

// NewS3Store creates a new S3-backed blob store.
func NewS3Store(ctx context.Context, cfg S3StoreConfig) (*S3Store, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("S3 bucket is required")
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true // Required for MinIO/LocalStack
		}
	})

	log.Printf("☁️  [BLOB] S3 blob store: bucket=%s prefix=%q", cfg.Bucket, cfg.Prefix)
	return &S3Store{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix}, nil
}

func (s *S3Store) Backend() string { return "s3" }

func (s *S3Store) key(name string) (string, string, error) {
	clean, err := SanitizeName(name)
	if err != nil {
		return "", "", err
	}
	return clean, s.prefix + clean, nil
}

func (s *S3Store) Put(ctx context.Context, name string, data []byte, contentType string) (*Object, error) {
	clean, key, err := s.key(name)
	if err != nil {
		return nil, err
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return nil, fmt.Errorf("s3 put failed for %s: %w", clean, err)
	}

	return &Object{Name: clean, Size: int64(len(data)), ContentType: contentType}, nil
}

func (s *S3Store) Get(ctx context.Context, name string) ([]byte, *Object, error) {
	clean, key, err := s.key(name)
	if err != nil {
		return nil, nil, err
	}

	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, fmt.Errorf("s3 get failed for %s: %w", clean, err)
	}
	defer func() { _ = result.Body.Close() }()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("s3 read failed for %s: %w", clean, err)
	}

	return data, &Object{
		Name:        clean,
		Size:        int64(len(data)),
		ContentType: aws.ToString(result.ContentType),
	}, nil
}

func (s *S3Store) Exists(ctx context.Context, name string) (bool, error) {
	_, key, err := s.key(name)
	if err != nil {
		return false, err
	}

	_, err = s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return false, nil
		}
		return false, fmt.Errorf("s3 head failed: %w", err)
	}
	return true, nil
}
