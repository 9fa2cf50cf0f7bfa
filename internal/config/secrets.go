package config

import (
	"context"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"

	"github.com/apresai/paperpod/internal/awsutil"
)

// SecretGetter is the subset of the Secrets Manager client used here.
type SecretGetter interface {
	GetSecretValue(ctx context.Context, in *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

var secretKeyNames = []string{"OPENAI_API_KEY", "ANTHROPIC_API_KEY", "GEMINI_API_KEY", "ELEVENLABS_API_KEY"}

// LoadSecrets fills API keys that are still empty from AWS Secrets Manager,
// reading "{aws.secrets_prefix}{ENV_NAME}". It is a no-op without a prefix.
// Lookup failures are logged; keys that stay missing are caught later by
// RequireKeys.
func (c *Config) LoadSecrets(ctx context.Context, logger *slog.Logger) error {
	if c.AWS.SecretsPrefix == "" {
		return nil
	}
	awsCfg, err := awsutil.LoadConfig(ctx, c.AWS.Region)
	if err != nil {
		return err
	}
	c.fillSecrets(ctx, secretsmanager.NewFromConfig(awsCfg), logger)
	return nil
}

func (c *Config) fillSecrets(ctx context.Context, client SecretGetter, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	for _, name := range secretKeyNames {
		if c.Keys.lookup(name) != "" {
			continue
		}
		secretID := c.AWS.SecretsPrefix + name
		out, err := client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{SecretId: &secretID})
		if err != nil {
			logger.Info("secret not found", "secret_id", secretID, "error", err)
			continue
		}
		if out.SecretString != nil && *out.SecretString != "" {
			c.Keys.set(name, *out.SecretString)
			logger.Info("loaded secret", "secret_id", secretID)
		}
	}
}
