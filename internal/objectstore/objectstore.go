// Package objectstore retrieves vendor export objects from S3-compatible
// storage when a file-arrival event triggers an ingestion run.
package objectstore

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/ruleforge/ruleforge/internal/logger"
)

// Config holds connection settings for the export bucket. Endpoint and
// PathStyle support S3-compatible stores (MinIO, LocalStack) in development.
type Config struct {
	Region    string
	Endpoint  string
	PathStyle bool
	AccessKey string
	SecretKey string
}

// Client fetches export objects.
type Client struct {
	api *s3.Client
}

// New builds a client from config. Static credentials are optional; without
// them the ambient credential chain applies.
func New(ctx context.Context, cfg Config) (*Client, error) {
	var opts []func(*awsconfig.LoadOptions) error
	opts = append(opts, awsconfig.WithRegion(cfg.Region))

	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		})
	}
	if cfg.PathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}

	return &Client{api: s3.NewFromConfig(awsCfg, s3Opts...)}, nil
}

// Fetch streams one object. The caller closes the returned body.
func (c *Client) Fetch(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	out, err := c.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("get object s3://%s/%s: %w", bucket, key, err)
	}

	logger.WithFields(map[string]interface{}{
		"bucket": bucket,
		"key":    key,
		"size":   aws.ToInt64(out.ContentLength),
	}).Debug("fetched export object")

	return out.Body, nil
}
