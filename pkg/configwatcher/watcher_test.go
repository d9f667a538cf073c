package configwatcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"quizdesk_backend/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const configTemplate = `
database:
  driver: memory
storage:
  type: local
  local_path: %s
kiosk:
  auto_submit_on_blur: %t
`

func writeConfig(t *testing.T, dir string, autoSubmit bool) {
	content := fmt.Sprintf(configTemplate, filepath.Join(dir, "uploads"), autoSubmit)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0644))
}

func TestWatchConfigReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, true)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloaded := make(chan *config.Config, 1)
	done := make(chan error, 1)
	go func() {
		done <- WatchConfig(ctx, dir, func(cfg *config.Config) {
			select {
			case reloaded <- cfg:
			default:
			}
		})
	}()

	// 等待监听建立
	time.Sleep(200 * time.Millisecond)
	writeConfig(t, dir, false)

	select {
	case cfg := <-reloaded:
		assert.False(t, cfg.Kiosk.AutoSubmitOnBlur)
	case <-time.After(5 * time.Second):
		t.Fatal("config was not reloaded")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestWatchConfigMissingDir(t *testing.T) {
	err := WatchConfig(context.Background(), filepath.Join(t.TempDir(), "missing"), func(*config.Config) {})
	assert.Error(t, err)
}
