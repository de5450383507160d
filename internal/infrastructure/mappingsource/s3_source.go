package mappingsource

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"github.com/channelsync/backend/internal/domain/integration"
	infraconfig "github.com/channelsync/backend/internal/infrastructure/config"
)

// S3Source loads the attribute mapping table from an object store. Any
// S3-compatible service works; a custom endpoint points it at MinIO or
// similar. The object is fetched on every Load call so an updated table
// reaches the next sync run without a redeploy.
type S3Source struct {
	client *s3.Client
	bucket string
	key    string
	logger *zap.Logger
}

// S3Option customizes an S3Source
type S3Option func(*S3Source)

// WithLogger sets a custom logger for the source
func WithLogger(logger *zap.Logger) S3Option {
	return func(s *S3Source) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewS3Source creates an S3-backed mapping source from configuration.
// When no static credentials are configured the default AWS credential
// chain is used, which covers instance profiles and env credentials.
func NewS3Source(ctx context.Context, cfg *infraconfig.MappingConfig, opts ...S3Option) (*S3Source, error) {
	if cfg == nil {
		return nil, fmt.Errorf("mapping configuration is required")
	}
	if cfg.S3Bucket == "" {
		return nil, fmt.Errorf("mapping S3 bucket is required")
	}
	if cfg.S3Key == "" {
		return nil, fmt.Errorf("mapping S3 key is required")
	}
	if (cfg.S3AccessKey == "") != (cfg.S3SecretKey == "") {
		return nil, fmt.Errorf("mapping S3 access key and secret key must be set together")
	}

	region := cfg.S3Region
	if region == "" {
		region = "us-east-1"
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(region),
	}
	if cfg.S3AccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3AccessKey, cfg.S3SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.S3UsePathStyle
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(normalizeEndpoint(cfg.S3Endpoint, cfg.S3UseSSL))
		}
	})

	src := &S3Source{
		client: client,
		bucket: cfg.S3Bucket,
		key:    cfg.S3Key,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(src)
	}

	return src, nil
}

// normalizeEndpoint adds the protocol prefix custom endpoints are usually
// configured without
func normalizeEndpoint(endpoint string, useSSL bool) string {
	if strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://") {
		return endpoint
	}
	if useSSL {
		return "https://" + endpoint
	}
	return "http://" + endpoint
}

// Load implements integration.MappingSource
func (s *S3Source) Load(ctx context.Context) ([]integration.AttributeMapping, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		return nil, &integration.ConfigError{
			Reason: fmt.Sprintf("cannot fetch mapping object s3://%s/%s", s.bucket, s.key),
			Err:    err,
		}
	}
	defer out.Body.Close()

	raw, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, &integration.ConfigError{
			Reason: fmt.Sprintf("cannot read mapping object s3://%s/%s", s.bucket, s.key),
			Err:    err,
		}
	}

	mappings, err := integration.ParseMappingConfig(raw)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("Loaded attribute mapping table from S3",
		zap.String("bucket", s.bucket),
		zap.String("key", s.key),
		zap.Int("mappings", len(mappings)))

	return mappings, nil
}

var _ integration.MappingSource = (*S3Source)(nil)
