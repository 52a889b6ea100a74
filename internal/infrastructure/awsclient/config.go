package awsclient

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
)

type Options struct {
	Region string
	// Endpoint overrides every service endpoint, e.g. MinIO or LocalStack.
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
}

// Load resolves the shared AWS configuration. Static keys win over the default chain.
func Load(ctx context.Context, opts Options) (aws.Config, error) {
	loaders := []func(*awsconfig.LoadOptions) error{}
	if region := strings.TrimSpace(opts.Region); region != "" {
		loaders = append(loaders, awsconfig.WithRegion(region))
	}
	if opts.AccessKeyID != "" && opts.SecretAccessKey != "" {
		loaders = append(loaders, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, ""),
		))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loaders...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("load aws config: %w", err)
	}
	if opts.Endpoint != "" {
		cfg.BaseEndpoint = aws.String(opts.Endpoint)
	}
	return cfg, nil
}
