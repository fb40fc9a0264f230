package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, k := range []string{"LLM_PROVIDER", "OPENAI_API_KEY", "OPENAI_MODEL", "ENGINE_BASE_URL",
		"ENGINE_API_KEY", "ENGINE_FUNCTION_NAME", "DATABASE_DRIVER", "REDIS_URL", "SERVER_PORT"} {
		t.Setenv(k, "")
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())

	cfg, err := Load("does-not-exist.yaml")
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "openai", cfg.Engine.Provider)
	assert.Equal(t, 60*time.Second, cfg.Engine.Timeout)
	assert.Equal(t, 2, cfg.Retry.MaxRetries)
	assert.Equal(t, int64(256<<10), cfg.Limits.MaxCodeBytes)
}

func TestLoadYAMLAndEnvOverrides(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9000
engine:
  provider: edge
  baseURL: https://example.supabase.co/functions/v1/analyze-code
  timeout: 15s
retry:
  maxRetries: 4
  baseDelay: 100ms
database:
  driver: postgres
  host: db
  port: 5432
  user: app
  password: secret
  name: polycode
  sslMode: require
  maxOpenConns: 5
auth:
  apiKeys:
    acme: key-1
`), 0o600))

	t.Setenv("SERVER_PORT", "9100")
	t.Setenv("ENGINE_API_KEY", "anon-key")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, "edge", cfg.Engine.Provider)
	assert.Equal(t, "anon-key", cfg.Engine.APIKey)
	assert.Equal(t, 15*time.Second, cfg.Engine.Timeout)
	assert.Equal(t, 4, cfg.Retry.MaxRetries)
	assert.Equal(t, 100*time.Millisecond, cfg.Retry.BaseDelay)
	assert.Equal(t, map[string]string{"acme": "key-1"}, cfg.Auth.APIKeys)
	assert.Equal(t, 5, cfg.Database.MaxOpenConns)
	assert.Equal(t, 10, cfg.Database.MaxIdleConns)
	assert.Equal(t, 30*time.Minute, cfg.Database.ConnMaxLifetime)
	assert.Equal(t, "host=db port=5432 user=app password=secret dbname=polycode sslmode=require", cfg.PostgresDSN())
}

func TestValidateRejectsUnknownProviderAndDriver(t *testing.T) {
	cfg := Default()
	cfg.Engine.Provider = "claude"
	assert.ErrorContains(t, cfg.Validate(), "unsupported engine provider")

	cfg = Default()
	cfg.Database.Driver = "sqlite"
	assert.ErrorContains(t, cfg.Validate(), "unsupported database driver")

	cfg = Default()
	cfg.Engine.Provider = "lambda"
	assert.ErrorContains(t, cfg.Validate(), "functionName")
}

func TestMySQLDSN(t *testing.T) {
	cfg := Default()
	cfg.Database.User, cfg.Database.Password = "root", "pw"
	cfg.Database.Host, cfg.Database.Name = "localhost", "polycode"
	assert.Equal(t, "root:pw@tcp(localhost:3306)/polycode?parseTime=true&charset=utf8mb4&loc=UTC", cfg.MySQLDSN())
}
