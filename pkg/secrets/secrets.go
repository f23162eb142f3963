package secrets

import (
	"context"
	"errors"

	"intern-portal/backend/pkg/config"
	"intern-portal/backend/pkg/logger"
)

// Common errors
var (
	ErrSecretNotFound = errors.New("secret not found")
	ErrNoVaultToken   = errors.New("no vault token provided")
)

// Manager provides access to secrets from various sources
type Manager interface {
	// GetSecret retrieves a secret by key
	GetSecret(ctx context.Context, key string) (string, error)
}

// Secret keys looked up at startup
const (
	KeyJWTSecret  = "jwt_secret"
	KeyDBPassword = "db_password"
	KeyS3Secret   = "s3_secret_key"
)

// ResolveConfig overwrites the sensitive fields of cfg with values found in m.
// A key that is missing keeps its environment value; any other error aborts.
func ResolveConfig(ctx context.Context, m Manager, cfg *config.Config, log *logger.Logger) error {
	targets := map[string]*string{
		KeyJWTSecret:  &cfg.JWT.Secret,
		KeyDBPassword: &cfg.Database.Password,
		KeyS3Secret:   &cfg.Uploads.S3SecretKey,
	}

	for key, field := range targets {
		value, err := m.GetSecret(ctx, key)
		if errors.Is(err, ErrSecretNotFound) {
			log.Debug("Secret not in vault, keeping environment value", "key", key)
			continue
		}
		if err != nil {
			return err
		}
		*field = value
		log.Info("Secret resolved from vault", "key", key)
	}

	return nil
}
