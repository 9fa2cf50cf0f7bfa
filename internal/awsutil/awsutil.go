// Package awsutil loads the shared AWS configuration used by Bedrock, Polly,
// S3, DynamoDB and Secrets Manager clients.
package awsutil

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"go.opentelemetry.io/contrib/instrumentation/github.com/aws/aws-sdk-go-v2/otelaws"
)

// LoadConfig resolves credentials through the default chain and instruments
// every client built from the result with OpenTelemetry spans. An empty
// region falls back to AWS_REGION / the shared config file.
func LoadConfig(ctx context.Context, region string) (aws.Config, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("load AWS config: %w", err)
	}

	otelaws.AppendMiddlewares(&cfg.APIOptions)
	return cfg, nil
}
