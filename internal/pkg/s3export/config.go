package s3export

import (
	"errors"
	"fmt"
	"time"

	"github.com/ManuelReschke/CleanConnect/internal/pkg/env"
)

// Config holds S3 export configuration
type Config struct {
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	BucketName      string
	EndpointURL     string // Optional for S3-compatible services
	Enabled         bool
}

// LoadConfig loads S3 configuration from environment variables
func LoadConfig() (*Config, error) {
	config := &Config{
		AccessKeyID:     env.GetEnv("S3_ACCESS_KEY_ID", ""),
		SecretAccessKey: env.GetEnv("S3_SECRET_ACCESS_KEY", ""),
		Region:          env.GetEnv("S3_REGION", "us-east-1"),
		BucketName:      env.GetEnv("S3_BUCKET_NAME", ""),
		EndpointURL:     env.GetEnv("S3_ENDPOINT_URL", ""),
		Enabled:         env.GetEnvBool("S3_EXPORT_ENABLED", false),
	}

	if config.Enabled {
		if config.AccessKeyID == "" {
			return nil, errors.New("S3_ACCESS_KEY_ID is required when S3 export is enabled")
		}
		if config.SecretAccessKey == "" {
			return nil, errors.New("S3_SECRET_ACCESS_KEY is required when S3 export is enabled")
		}
		if config.BucketName == "" {
			return nil, errors.New("S3_BUCKET_NAME is required when S3 export is enabled")
		}
	}

	return config, nil
}

// IsEnabled returns true if S3 export is enabled
func (c *Config) IsEnabled() bool {
	return c.Enabled
}

// ReportObjectKey builds the key of an archived contribution report.
// Format: reports/YYYY/MM/<owner>/<timestamp>.csv
func (c *Config) ReportObjectKey(owner string, at time.Time) string {
	at = at.UTC()
	return fmt.Sprintf("reports/%04d/%02d/%s/%s.csv", at.Year(), int(at.Month()), owner, at.Format("20060102T150405Z"))
}
