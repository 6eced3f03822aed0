package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
server:
  port: 8080
  allowed_origins: ["http://localhost:5173"]
database:
  host: localhost
  user: restaurant
  database: restaurant
rabbitmq:
  host: localhost
  user: guest
  password: guest
auth:
  jwt_secret: secret
lifecycle:
  block_terminal_updates: false
  reduction_mode: transactional
`

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, []string{"http://localhost:5173"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "disable", cfg.Database.SSLMode)
	assert.Equal(t, 5672, cfg.RabbitMQ.Port)
	assert.Equal(t, 1, cfg.RabbitMQ.Prefetch)
	assert.False(t, cfg.Lifecycle.BlockTerminal())
	assert.Equal(t, ReductionTransactional, cfg.Lifecycle.ReductionMode)
	assert.NoError(t, cfg.Validate())
}

func TestBlockTerminalDefaultsOn(t *testing.T) {
	cfg, err := Parse([]byte("database:\n  host: db\n"))
	require.NoError(t, err)
	assert.True(t, cfg.Lifecycle.BlockTerminal())
	assert.Equal(t, ReductionBestEffort, cfg.Lifecycle.ReductionMode)
}

func TestValidate(t *testing.T) {
	cfg, err := Parse([]byte("lifecycle:\n  reduction_mode: sometimes\n"))
	require.NoError(t, err)

	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database host")
	assert.Contains(t, err.Error(), "jwt_secret")
	assert.Contains(t, err.Error(), "reduction_mode")
}

func TestLoadAppliesEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0o600))

	t.Setenv("JWT_SECRET", "from-env")
	t.Setenv("DB_PASSWORD", "pg-secret")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Auth.JWTSecret)
	assert.Equal(t, "pg-secret", cfg.Database.Password)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
