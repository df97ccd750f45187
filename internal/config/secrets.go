package config

import (
	"context"
	"encoding/json"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

type mailSecret struct {
	ResendAPIKey string `json:"resend_api_key"`
	FromAddress  string `json:"from_address"`
	SigningKey   string `json:"read_link_signing_key"`
}

// ApplySecrets overlays mail credentials from AWS Secrets Manager onto the
// config when secrets.secret_id is set. Values already present in the config
// file are only replaced by non-empty secret fields.
func ApplySecrets(ctx context.Context, c *Config) error {
	if c.Secrets.SecretID == "" {
		return nil
	}

	opts := []func(*awsconfig.LoadOptions) error{}
	if c.Secrets.Region != "" {
		opts = append(opts, awsconfig.WithRegion(c.Secrets.Region))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return fmt.Errorf("failed to load aws config: %w", err)
	}

	client := secretsmanager.NewFromConfig(awsCfg)
	out, err := client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: &c.Secrets.SecretID,
	})
	if err != nil {
		return fmt.Errorf("failed to fetch secret %s: %w", c.Secrets.SecretID, err)
	}
	if out.SecretString == nil {
		return fmt.Errorf("secret %s has no string payload", c.Secrets.SecretID)
	}

	var s mailSecret
	if err := json.Unmarshal([]byte(*out.SecretString), &s); err != nil {
		return fmt.Errorf("failed to decode secret %s: %w", c.Secrets.SecretID, err)
	}

	if s.ResendAPIKey != "" {
		c.Mail.ResendAPIKey = s.ResendAPIKey
	}
	if s.FromAddress != "" {
		c.Mail.FromAddress = s.FromAddress
	}
	if s.SigningKey != "" {
		c.ReadLink.SigningKey = s.SigningKey
	}
	return nil
}
