// Package objectstore fronts the object store: crawl transfer fetches
// archive files through it, and the result presenter writes query-result
// JSON through it. The interface keeps both callers ignorant of the
// concrete backend.
package objectstore

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/Sentimentron/sentropy"
)

// Store fetches and writes objects by bucket/key.
type Store interface {
	Get(ctx context.Context, bucket, key string) ([]byte, error)
	Put(ctx context.Context, bucket, key string, data []byte, contentType string) error
}

// S3Store is the concrete Store backed by aws-sdk-go-v2/service/s3.
type S3Store struct {
	client *s3.Client
}

// NewS3Store loads the default AWS config, optionally pointed at a custom
// endpoint (sentropy.Config.ObjectStore.Endpoint, for S3-compatible test
// doubles like MinIO).
func NewS3Store(ctx context.Context) (*S3Store, error) {
	opts := []func(*config.LoadOptions) error{
		config.WithRegion(sentropy.Config.ObjectStore.Region),
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("objectstore: load aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if sentropy.Config.ObjectStore.Endpoint != "" {
			o.BaseEndpoint = aws.String(sentropy.Config.ObjectStore.Endpoint)
			o.UsePathStyle = true
		}
	})
	return &S3Store{client: client}, nil
}

// Get downloads an object in full. Used by Crawl Transfer to fetch an
// archive file before handing it to internal/archive.
func (s *S3Store) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("objectstore: get %s/%s: %w", bucket, key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("objectstore: read %s/%s: %w", bucket, key, err)
	}
	return data, nil
}

// Put uploads data as a new object, used by the Result Presenter to write
// query-result JSON to Config.ObjectStore.ResultBucket.
func (s *S3Store) Put(ctx context.Context, bucket, key string, data []byte, contentType string) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("objectstore: put %s/%s: %w", bucket, key, err)
	}
	return nil
}
