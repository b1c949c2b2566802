package publish

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/mitchellh/mapstructure"
)

// DefaultMaxAttempts is used when Options.MaxRetries is zero.
const DefaultMaxAttempts = 3

var (
	// ErrNoBucket is returned when no bucket is configured.
	ErrNoBucket = errors.New("no bucket configured")

	// ErrNoRegion is returned when no region is configured.
	ErrNoRegion = errors.New("no region configured")
)

// Options describes where an album is published.
type Options struct {
	Bucket          string `mapstructure:"bucket"`
	Prefix          string `mapstructure:"prefix"`
	Region          string `mapstructure:"region"`
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"accessKeyId"`
	SecretAccessKey string `mapstructure:"secretAccessKey"`
	MaxRetries      int    `mapstructure:"maxRetries"`
}

// OptionsFrom decodes publish settings from a map or from any struct that
// carries the same mapstructure tags, such as the publish section of the
// configuration.
func OptionsFrom(src any) (Options, error) {
	var opts Options
	if err := mapstructure.Decode(src, &opts); err != nil {
		return Options{}, fmt.Errorf("failed to decode publish options: %w", err)
	}
	opts.Prefix = strings.Trim(opts.Prefix, "/")
	return opts, nil
}

// Validate checks that the options name a destination.
func (o Options) Validate() error {
	if o.Bucket == "" {
		return ErrNoBucket
	}
	if o.Region == "" {
		return ErrNoRegion
	}
	return nil
}

// Key returns the object key for a slash-separated path relative to the
// album directory.
func (o Options) Key(rel string) string {
	if o.Prefix == "" {
		return rel
	}
	return path.Join(o.Prefix, rel)
}

// URL returns the address the object for rel can be fetched from.
func (o Options) URL(rel string) string {
	key := (&url.URL{Path: o.Key(rel)}).EscapedPath()
	if o.Endpoint != "" {
		return strings.TrimSuffix(o.Endpoint, "/") + "/" + o.Bucket + "/" + key
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", o.Bucket, o.Region, key)
}

// NewClient builds an S3 client for opts.
//
// Static credentials are used when both keys are set, otherwise the
// default AWS credential chain. A custom endpoint switches to path-style
// addressing for compatibility with MinIO and Localstack.
func NewClient(ctx context.Context, opts Options) (*s3.Client, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	var configOptions []func(*awsConfig.LoadOptions) error
	configOptions = append(configOptions, awsConfig.WithRegion(opts.Region))

	if opts.AccessKeyID != "" && opts.SecretAccessKey != "" {
		credProvider := credentials.NewStaticCredentialsProvider(
			opts.AccessKeyID,
			opts.SecretAccessKey,
			"", // session token (empty for static credentials)
		)
		configOptions = append(configOptions, awsConfig.WithCredentialsProvider(credProvider))
	}

	maxAttempts := opts.MaxRetries
	if maxAttempts == 0 {
		maxAttempts = DefaultMaxAttempts
	}
	configOptions = append(configOptions, awsConfig.WithRetryer(func() aws.Retryer {
		return retry.NewStandard(func(o *retry.StandardOptions) {
			o.MaxAttempts = maxAttempts
		})
	}))

	cfg, err := awsConfig.LoadDefaultConfig(ctx, configOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})

	log.Debug("S3 client for bucket %s in %s", opts.Bucket, opts.Region)
	return client, nil
}
