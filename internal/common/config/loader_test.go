// internal/common/config/loader_test.go
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const minimalConfig = `
mission:
  name: padre
dispatch:
  function_name: padre-processing-lambda
`

func TestLoadFromFile_Defaults(t *testing.T) {
	cfg, err := LoadFromFile(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, "padre", cfg.Mission.Name)
	assert.Equal(t, "configs/instrument-registry.json", cfg.Mission.RegistryPath)
	assert.Equal(t, "requests", cfg.Archive.Root)
	assert.Equal(t, "memory", cfg.Archive.Reservation.Backend)
	assert.Equal(t, "static", cfg.Catalog.Backend)
	assert.Equal(t, "lambda", cfg.Dispatch.Backend)
	assert.Equal(t, 3, cfg.Dispatch.GetMaxAttempts())
	assert.Equal(t, 500*time.Millisecond, cfg.Dispatch.GetInitialBackoff())
	assert.Equal(t, 30*time.Second, cfg.Dispatch.GetTimeout())
	assert.Equal(t, 4, cfg.Dispatch.GetMaxParallel())
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadFromFile_Overrides(t *testing.T) {
	cfg, err := LoadFromFile(writeConfig(t, `
mission:
  name: padre
archive:
  root: /var/lib/intake/requests
  reservation:
    backend: redis
    redis:
      address: redis.internal:6379
dispatch:
  backend: sns
  topic_arn: arn:aws:sns:us-east-1:123456789012:reprocess
  max_attempts: 5
  initial_backoff: 250
`))
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/intake/requests", cfg.Archive.Root)
	assert.Equal(t, "redis", cfg.Archive.Reservation.Backend)
	assert.Equal(t, "redis.internal:6379", cfg.Archive.Reservation.Redis.Address)
	assert.Equal(t, "sns", cfg.Dispatch.Backend)
	assert.Equal(t, 5, cfg.Dispatch.GetMaxAttempts())
	assert.Equal(t, 250*time.Millisecond, cfg.Dispatch.GetInitialBackoff())
}

func TestLoadFromFile_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name:    "missing mission name",
			content: "dispatch:\n  function_name: fn\n",
		},
		{
			name:    "lambda backend without function name",
			content: "mission:\n  name: padre\n",
		},
		{
			name:    "sns backend without topic",
			content: "mission:\n  name: padre\ndispatch:\n  backend: sns\n",
		},
		{
			name:    "unknown reservation backend",
			content: minimalConfig + "archive:\n  reservation:\n    backend: zookeeper\n",
		},
		{
			name:    "redis backend without address",
			content: minimalConfig + "archive:\n  reservation:\n    backend: redis\n",
		},
		{
			name:    "elasticsearch catalog without addresses",
			content: minimalConfig + "catalog:\n  backend: elasticsearch\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFromFile(writeConfig(t, tt.content))
			assert.Error(t, err)
		})
	}
}

func TestPostgresConfig_GetDSN(t *testing.T) {
	p := PostgresConfig{
		Host:     "db.internal",
		Port:     5432,
		Database: "intake",
		User:     "intake",
		Password: "secret",
		SSLMode:  "require",
	}
	assert.Equal(t,
		"host=db.internal port=5432 user=intake password=secret dbname=intake sslmode=require",
		p.GetDSN())
}
