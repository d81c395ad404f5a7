package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/browserd/pkg/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8000", cfg.ListenAddr)
	assert.Equal(t, 5, cfg.MaxSessions)
	assert.Equal(t, 5*time.Minute, cfg.IdleTimeout.Std())
	assert.Equal(t, 10*time.Second, cfg.LockWait.Std())
	assert.True(t, cfg.DefaultHeadless)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoad_YAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "browserd.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
listen_addr: ":9000"
max_sessions: 10
idle_timeout: 2m
default_headless: false
`), 0o600))

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.ListenAddr)
	assert.Equal(t, 10, cfg.MaxSessions)
	assert.Equal(t, 2*time.Minute, cfg.IdleTimeout.Std())
	assert.False(t, cfg.DefaultHeadless)
	// Unset keys keep their defaults.
	assert.Equal(t, 30*time.Second, cfg.NavTimeout.Std())
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "browserd.yaml")
	require.NoError(t, os.WriteFile(path, []byte("max_sessions: 10\n"), 0o600))

	t.Setenv("BROWSERD_MAX_SESSIONS", "3")
	t.Setenv("BROWSERD_IDLE_TIMEOUT", "90s")

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.MaxSessions)
	assert.Equal(t, 90*time.Second, cfg.IdleTimeout.Std())
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"empty listen addr", func(c *config.Config) { c.ListenAddr = "" }},
		{"zero max sessions", func(c *config.Config) { c.MaxSessions = 0 }},
		{"negative idle timeout", func(c *config.Config) { c.IdleTimeout = config.Duration(-time.Second) }},
		{"zero lock wait", func(c *config.Config) { c.LockWait = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	assert.NoError(t, config.Default().Validate())
}
