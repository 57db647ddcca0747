// Package archive stores verified webhook payloads in S3-compatible storage.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"
)

// Archiver persists raw webhook payloads.
type Archiver interface {
	Archive(ctx context.Context, provider, eventID string, payload []byte) (string, error)
}

type putObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Client wraps the S3 client with archive-specific functionality
type Client struct {
	s3Client putObjectAPI
	config   *Config
	now      func() time.Time
}

// NewClient creates a new S3 archive client
func NewClient(ctx context.Context, cfg *Config) (*Client, error) {
	if !cfg.IsEnabled() {
		return nil, fmt.Errorf("webhook archive is disabled")
	}

	awsConfig, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	s3Client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		if cfg.EndpointURL != "" {
			o.BaseEndpoint = aws.String(cfg.EndpointURL)
			o.UsePathStyle = true
		}
	})

	log.Info().Str("bucket", cfg.BucketName).Msg("[Archive] Initialized webhook archive")
	return newClient(s3Client, cfg), nil
}

func newClient(api putObjectAPI, cfg *Config) *Client {
	return &Client{s3Client: api, config: cfg, now: time.Now}
}

// Archive uploads payload and returns the object key.
func (c *Client) Archive(ctx context.Context, provider, eventID string, payload []byte) (string, error) {
	key := c.config.ObjectKey(provider, eventID, c.now())
	_, err := c.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(c.config.BucketName),
		Key:         aws.String(key),
		Body:        bytes.NewReader(payload),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to archive webhook %s: %w", eventID, err)
	}
	return key, nil
}
