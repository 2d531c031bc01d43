package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 16*time.Millisecond, cfg.DispatchTimeout)
	assert.Equal(t, 2, cfg.Swapchain.Images)
	assert.True(t, cfg.ExitOnLastClose)
}

func TestParseEmptyUsesDefaults(t *testing.T) {
	cfg, err := Parse([]byte("# empty\n"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestParseOverrides(t *testing.T) {
	cfg, err := Parse([]byte(`
display: wayland-9
app_id: dev.kyo.test
dispatch_timeout: 5ms
default_size:
  width: 800
  height: 600
decorations: client
swapchain:
  images: 3
  present_mode: mailbox
exit_on_last_close: false
log_level: debug
`))
	require.NoError(t, err)
	assert.Equal(t, "wayland-9", cfg.Display)
	assert.Equal(t, "dev.kyo.test", cfg.AppID)
	assert.Equal(t, 5*time.Millisecond, cfg.DispatchTimeout)
	assert.Equal(t, Size{Width: 800, Height: 600}, cfg.DefaultSize)
	assert.Equal(t, DecorationsClient, cfg.Decorations)
	assert.Equal(t, 3, cfg.Swapchain.Images)
	assert.Equal(t, PresentMailbox, cfg.Swapchain.PresentMode)
	assert.Equal(t, FormatARGB8888, cfg.Swapchain.Format)
	assert.False(t, cfg.ExitOnLastClose)
	assert.Equal(t, 16, cfg.CloseQueue)
}

func TestParseRejectsUnknownKeys(t *testing.T) {
	_, err := Parse([]byte("no_such_key: 1\n"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		path   string
	}{
		{"images", func(c *Config) { c.Swapchain.Images = 5 }, "swapchain.images"},
		{"mode", func(c *Config) { c.Swapchain.PresentMode = "immediate" }, "swapchain.present_mode"},
		{"format", func(c *Config) { c.Swapchain.Format = "rgb565" }, "swapchain.format"},
		{"decorations", func(c *Config) { c.Decorations = "none" }, "decorations"},
		{"size", func(c *Config) { c.DefaultSize.Width = 0 }, "default_size"},
		{"timeout", func(c *Config) { c.DispatchTimeout = -time.Second }, "dispatch_timeout"},
		{"queue", func(c *Config) { c.CloseQueue = 0 }, "close_queue"},
		{"level", func(c *Config) { c.LogLevel = "loud" }, "log_level"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			cfg := Default()
			test.modify(&cfg)

			var verr *ValidationError
			require.True(t, errors.As(cfg.Validate(), &verr))
			assert.Equal(t, test.path, verr.Path)
		})
	}
}

func TestLoadFromPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("close_queue: 4\n"), 0644))

	cfg, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.CloseQueue)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv(EnvPath, "")
	os.Unsetenv(EnvPath)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "kyo"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "kyo", "config.yaml"), []byte("app_id: found\n"), 0644))
	cfg, err = Load()
	require.NoError(t, err)
	assert.Equal(t, "found", cfg.AppID)

	t.Setenv(EnvPath, filepath.Join(dir, "missing.yaml"))
	_, err = Load()
	assert.ErrorIs(t, err, os.ErrNotExist)
}
