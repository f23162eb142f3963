package secrets

import (
	"context"
	"errors"
	"testing"

	"intern-portal/backend/pkg/config"
	"intern-portal/backend/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapManager struct {
	values map[string]string
	err    error
}

func (m mapManager) GetSecret(_ context.Context, key string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	v, ok := m.values[key]
	if !ok {
		return "", ErrSecretNotFound
	}
	return v, nil
}

func TestResolveConfig(t *testing.T) {
	cfg := &config.Config{}
	cfg.JWT.Secret = "from-env"
	cfg.Database.Password = "env-db"

	m := mapManager{values: map[string]string{
		KeyJWTSecret: "from-vault",
		KeyS3Secret:  "s3-secret",
	}}

	require.NoError(t, ResolveConfig(context.Background(), m, cfg, logger.Discard()))
	assert.Equal(t, "from-vault", cfg.JWT.Secret)
	assert.Equal(t, "env-db", cfg.Database.Password, "missing keys keep the environment value")
	assert.Equal(t, "s3-secret", cfg.Uploads.S3SecretKey)
}

func TestResolveConfig_Error(t *testing.T) {
	boom := errors.New("vault sealed")
	err := ResolveConfig(context.Background(), mapManager{err: boom}, &config.Config{}, logger.Discard())
	assert.ErrorIs(t, err, boom)
}

func TestSplitKVPath(t *testing.T) {
	mount, p := splitKVPath("kv/data/intern-portal")
	assert.Equal(t, "kv", mount)
	assert.Equal(t, "intern-portal", p)

	mount, p = splitKVPath("/intern-portal/")
	assert.Equal(t, "secret", mount)
	assert.Equal(t, "intern-portal", p)
}
