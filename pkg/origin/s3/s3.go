// Package s3 serves corpus images from an S3 bucket (or any S3-compatible
// service such as MinIO or LocalStack).
package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/marmos91/labelhub/internal/logger"
	lherrors "github.com/marmos91/labelhub/pkg/errors"
	"github.com/marmos91/labelhub/pkg/origin"
)

// Config selects the bucket and the credentials used to read it.
type Config struct {
	Bucket string `mapstructure:"bucket" yaml:"bucket"`
	// Prefix is prepended to every image name, e.g. "corpus/2024/".
	Prefix          string `mapstructure:"prefix" yaml:"prefix,omitempty"`
	Region          string `mapstructure:"region" yaml:"region,omitempty"`
	Endpoint        string `mapstructure:"endpoint" yaml:"endpoint,omitempty"`
	AccessKeyID     string `mapstructure:"access_key_id" yaml:"access_key_id,omitempty"`
	SecretAccessKey string `mapstructure:"secret_access_key" yaml:"secret_access_key,omitempty"`
	ForcePathStyle  bool   `mapstructure:"force_path_style" yaml:"force_path_style,omitempty"`
}

// Origin reads images stored as objects under a common prefix. Only objects
// directly under the prefix are listed.
type Origin struct {
	client *s3.Client
	bucket string
	prefix string
}

// New wraps an existing client.
func New(client *s3.Client, cfg Config) *Origin {
	prefix := cfg.Prefix
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &Origin{client: client, bucket: cfg.Bucket, prefix: prefix}
}

// NewFromConfig builds the S3 client from cfg. Static credentials are used
// when both keys are set; otherwise the SDK default chain applies.
func NewFromConfig(ctx context.Context, cfg Config) (*Origin, error) {
	if cfg.Bucket == "" {
		return nil, lherrors.NewConfigError("s3 origin requires a bucket")
	}

	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.ForcePathStyle
	})

	return New(client, cfg), nil
}

// List implements origin.Origin.
func (o *Origin) List(ctx context.Context) ([]string, error) {
	paginator := s3.NewListObjectsV2Paginator(o.client, &s3.ListObjectsV2Input{
		Bucket:    aws.String(o.bucket),
		Prefix:    aws.String(o.prefix),
		Delimiter: aws.String("/"),
	})

	var names []string
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, lherrors.NewNetworkError("s3 list objects", err)
		}
		for _, obj := range page.Contents {
			names = append(names, path.Base(aws.ToString(obj.Key)))
		}
	}

	logger.Debug("Listed S3 corpus", logger.KeyBucket, o.bucket, "prefix", o.prefix, "objects", len(names))
	return origin.FilterImages(names), nil
}

// Open implements origin.Origin.
func (o *Origin) Open(ctx context.Context, name string) ([]byte, error) {
	if err := origin.ValidateFilename(name); err != nil {
		return nil, err
	}

	resp, err := o.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(o.bucket),
		Key:    aws.String(o.prefix + name),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, lherrors.NewNotFoundError("", "image "+name)
		}
		return nil, lherrors.NewNetworkError("s3 get object", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, lherrors.NewNetworkError("s3 read object body", err)
	}
	return data, nil
}

// Healthcheck implements origin.Origin with a HeadBucket call.
func (o *Origin) Healthcheck(ctx context.Context) error {
	if _, err := o.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(o.bucket)}); err != nil {
		return fmt.Errorf("s3 health check failed: %w", err)
	}
	return nil
}

func isNotFound(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	return false
}

var _ origin.Origin = (*Origin)(nil)
