// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package objectstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/taibuivan/mknursery/internal/backend"
	"github.com/taibuivan/mknursery/internal/platform/apperr"
)

// S3Config locates the bucket service.
type S3Config struct {
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string

	// PublicURL is the base under which buckets are publicly readable.
	PublicURL string
	Timeout   time.Duration
}

// putObjectAPI is the slice of the S3 client the store needs.
type putObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3 is a [backend.Storage] on an S3-compatible service (AWS, MinIO, R2).
type S3 struct {
	client  putObjectAPI
	public  string
	timeout time.Duration
}

var _ backend.Storage = (*S3)(nil)

// NewS3 builds the client with static credentials when they are configured
// and the default AWS credential chain otherwise.
func NewS3(ctx context.Context, cfg S3Config) (*S3, error) {
	options := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		options = append(options, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsConfig, err := config.LoadDefaultConfig(ctx, options...)
	if err != nil {
		return nil, fmt.Errorf("objectstore: load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return newS3WithClient(client, cfg), nil
}

func newS3WithClient(client putObjectAPI, cfg S3Config) *S3 {
	return &S3{client: client, public: cfg.PublicURL, timeout: cfg.Timeout}
}

func (store *S3) Upload(ctx context.Context, bucket, key string, body io.Reader, contentType string) error {
	// Buffer the body so the request can be signed and retried.
	payload, err := io.ReadAll(body)
	if err != nil {
		return apperr.Remote(fmt.Errorf("read upload body: %w", err))
	}

	if store.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, store.timeout)
		defer cancel()
	}

	_, err = store.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(payload),
		ContentLength: aws.Int64(int64(len(payload))),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return apperr.Remote(err)
	}
	return nil
}

func (store *S3) PublicURL(bucket, key string) string {
	return publicURL(store.public, bucket, key)
}
