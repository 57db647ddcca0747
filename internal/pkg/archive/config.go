package archive

import (
	"errors"
	"fmt"
	"time"

	"github.com/ManuelReschke/BizDesk/internal/pkg/env"
)

// Config holds webhook archive configuration
type Config struct {
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	BucketName      string
	EndpointURL     string // Optional for S3-compatible services
	Prefix          string
	Enabled         bool
}

// LoadConfig loads archive configuration from environment variables
func LoadConfig() (*Config, error) {
	config := &Config{
		AccessKeyID:     env.GetEnv("WEBHOOK_ARCHIVE_ACCESS_KEY_ID", ""),
		SecretAccessKey: env.GetEnv("WEBHOOK_ARCHIVE_SECRET_ACCESS_KEY", ""),
		Region:          env.GetEnv("WEBHOOK_ARCHIVE_REGION", "us-east-1"),
		BucketName:      env.GetEnv("WEBHOOK_ARCHIVE_BUCKET", ""),
		EndpointURL:     env.GetEnv("WEBHOOK_ARCHIVE_ENDPOINT_URL", ""),
		Prefix:          env.GetEnv("WEBHOOK_ARCHIVE_PREFIX", "webhooks"),
		Enabled:         env.GetEnv("WEBHOOK_ARCHIVE_ENABLED", "false") == "true",
	}

	// Validate required fields if the archive is enabled
	if config.Enabled {
		if config.AccessKeyID == "" {
			return nil, errors.New("WEBHOOK_ARCHIVE_ACCESS_KEY_ID is required when the webhook archive is enabled")
		}
		if config.SecretAccessKey == "" {
			return nil, errors.New("WEBHOOK_ARCHIVE_SECRET_ACCESS_KEY is required when the webhook archive is enabled")
		}
		if config.BucketName == "" {
			return nil, errors.New("WEBHOOK_ARCHIVE_BUCKET is required when the webhook archive is enabled")
		}
	}

	return config, nil
}

// IsEnabled returns true if the webhook archive is enabled
func (c *Config) IsEnabled() bool {
	return c != nil && c.Enabled
}

// ObjectKey generates the object key for one delivery.
// Format: <prefix>/<provider>/YYYY/MM/DD/<eventID>.json
func (c *Config) ObjectKey(provider, eventID string, at time.Time) string {
	at = at.UTC()
	return fmt.Sprintf("%s/%s/%04d/%02d/%02d/%s.json", c.Prefix, provider, at.Year(), int(at.Month()), at.Day(), eventID)
}
