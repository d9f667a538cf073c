package config

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testYAML = `
server:
  port: "9090"
  mode: debug
database:
  driver: memory
jwt:
  secret: short-secret
  expire_hours: 12
storage:
  type: minio
  local_path: %s
kiosk:
  app_origin: http://localhost:3000
`

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	uploads := filepath.Join(dir, "uploads")
	content := []byte(fmt.Sprintf(testYAML, uploads))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), content, 0644))

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, "memory", cfg.Database.Driver)
	assert.Equal(t, 12*time.Hour, cfg.JWT.ExpireTime)
	assert.Equal(t, "gemini", cfg.AI.Provider)
	assert.True(t, cfg.Kiosk.AutoSubmitOnBlur)
	assert.Equal(t, 1000, cfg.Kiosk.ReloadDelayMs)
	assert.Equal(t, []string{"Escape", "Tab"}, cfg.Kiosk.BlockedKeys)

	t.Run("release mode rejects a short secret", func(t *testing.T) {
		t.Setenv("SERVER_MODE", "release")
		_, err := LoadConfig(dir)
		assert.Error(t, err)
	})
}

func TestConfigMissing(t *testing.T) {
	cfg := &Config{}
	cfg.Database.Driver = "memory"
	cfg.Storage.Type = "minio"
	cfg.Kiosk.AppOrigin = "http://localhost:3000"

	assert.ElementsMatch(t, []string{
		"jwt.secret",
		"ai.api_key",
		"storage.minio_endpoint",
		"storage.minio_bucket",
	}, cfg.Missing())

	cfg.Database.Driver = "mysql"
	cfg.Database.Host = "db"
	assert.Contains(t, cfg.Missing(), "database.user")
	assert.NotContains(t, cfg.Missing(), "database.host")
}
