package awsclient

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/sirupsen/logrus"
)

// Config selects the AWS account and endpoint. Empty values fall back to
// the SDK's default chain.
type Config struct {
	Region  string
	Profile string
	// Endpoint overrides every service endpoint, e.g. for LocalStack.
	Endpoint     string
	UsePathStyle bool
}

// Clients bundles the service clients the application uses.
type Clients struct {
	S3  *s3.Client
	SNS *sns.Client
	SSM *ssm.Client
}

// New loads the shared AWS configuration and builds the service clients.
func New(ctx context.Context, log logrus.FieldLogger, cfg Config) (*Clients, error) {
	var opts []func(*awsconfig.LoadOptions) error

	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}

	if cfg.Profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(cfg.Profile))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	log.WithFields(logrus.Fields{
		"component": "aws",
		"region":    awsCfg.Region,
		"endpoint":  cfg.Endpoint,
	}).Info("Loaded AWS configuration")

	var endpoint *string
	if cfg.Endpoint != "" {
		endpoint = aws.String(cfg.Endpoint)
	}

	return &Clients{
		S3: s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			o.BaseEndpoint = endpoint
			o.UsePathStyle = cfg.UsePathStyle
		}),
		SNS: sns.NewFromConfig(awsCfg, func(o *sns.Options) {
			o.BaseEndpoint = endpoint
		}),
		SSM: ssm.NewFromConfig(awsCfg, func(o *ssm.Options) {
			o.BaseEndpoint = endpoint
		}),
	}, nil
}
