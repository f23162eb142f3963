package secrets

import (
	"context"
	"fmt"
	"strings"
	"time"

	"intern-portal/backend/pkg/cache"
	"intern-portal/backend/pkg/logger"

	vault "github.com/hashicorp/vault/api"
)

// VaultConfig holds configuration for Vault client
type VaultConfig struct {
	Address    string
	Token      string
	Namespace  string
	Timeout    time.Duration
	MaxRetries int
	// SecretsPath is the KV v2 path, either "mount/data/name" or "name" under the "secret" mount
	SecretsPath string
	CacheTTL    time.Duration
}

// VaultManager reads secrets from a KV v2 engine
type VaultManager struct {
	client *vault.Client
	mount  string
	path   string
	cache  *cache.Cache[string, string]
	log    *logger.Logger
}

// NewVaultManager creates a new Vault manager instance
func NewVaultManager(ctx context.Context, cfg VaultConfig, log *logger.Logger) (*VaultManager, error) {
	if cfg.Token == "" {
		return nil, ErrNoVaultToken
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = 5 * time.Minute
	}

	vaultConfig := vault.DefaultConfig()
	vaultConfig.Address = cfg.Address
	vaultConfig.Timeout = cfg.Timeout
	vaultConfig.MaxRetries = cfg.MaxRetries

	client, err := vault.NewClient(vaultConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}

	client.SetToken(cfg.Token)
	if cfg.Namespace != "" {
		client.SetNamespace(cfg.Namespace)
	}

	mount, path := splitKVPath(cfg.SecretsPath)

	return &VaultManager{
		client: client,
		mount:  mount,
		path:   path,
		cache:  cache.New[string, string](ctx, cache.Options{TTL: cfg.CacheTTL, CleanupInterval: cfg.CacheTTL}),
		log:    log,
	}, nil
}

// splitKVPath turns "secret/data/intern-portal" into ("secret", "intern-portal")
func splitKVPath(p string) (string, string) {
	parts := strings.SplitN(strings.Trim(p, "/"), "/", 3)
	if len(parts) == 3 && parts[1] == "data" {
		return parts[0], parts[2]
	}
	return "secret", strings.Trim(p, "/")
}

// GetSecret retrieves a secret from Vault
func (m *VaultManager) GetSecret(ctx context.Context, key string) (string, error) {
	if value, found := m.cache.Get(key); found {
		return value, nil
	}

	secret, err := m.client.KVv2(m.mount).Get(ctx, m.path)
	if err != nil {
		m.log.Error("Failed to read secret from Vault",
			"mount", m.mount,
			"path", m.path,
			"error", err.Error(),
		)
		return "", fmt.Errorf("failed to read secret: %w", err)
	}

	if secret == nil || secret.Data == nil {
		return "", ErrSecretNotFound
	}

	value, ok := secret.Data[key].(string)
	if !ok || value == "" {
		return "", ErrSecretNotFound
	}

	m.cache.Set(key, value)
	return value, nil
}
