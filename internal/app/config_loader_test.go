package app

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
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadConfig_FromFile(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
  public_base_url: https://api.example
worker:
  base_url: https://worker.example
  api_key: secret
resolver:
  poll_interval: 500ms
  poll_timeout: 30s
  preview_quality: 480p
proxy:
  allowed_hosts:
    - video.cdn.example
`)

	config, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, config.Server.Port)
	assert.Equal(t, "https://api.example", config.Server.PublicBaseURL)
	assert.Equal(t, "https://worker.example", config.Worker.BaseURL)
	assert.Equal(t, "secret", config.Worker.APIKey)
	assert.Equal(t, "/download", config.Worker.SubmitPath)
	assert.Equal(t, 500*time.Millisecond, config.Resolver.PollInterval)
	assert.Equal(t, 30*time.Second, config.Resolver.PollTimeout)
	assert.Equal(t, []string{"video.cdn.example"}, config.Proxy.AllowedHosts)
	assert.True(t, config.Resolver.DeduplicateInFly)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 9090\n")
	t.Setenv("SONOVA_WORKER_BASE_URL", "http://worker.internal:8000")
	t.Setenv("SONOVA_WORKER_API_KEY", "from-env")
	t.Setenv("SONOVA_SERVER_PORT", "7070")

	config, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "http://worker.internal:8000", config.Worker.BaseURL)
	assert.Equal(t, "from-env", config.Worker.APIKey)
	assert.Equal(t, 7070, config.Server.Port)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad port", "server:\n  port: 70000\n"},
		{"bad worker url", "worker:\n  base_url: worker.example\n"},
		{"timeout shorter than interval", "resolver:\n  poll_interval: 2s\n  poll_timeout: 1s\n"},
		{"bad preview", "resolver:\n  preview_quality: 999\n"},
		{"bad rate limit", "rate_limit:\n  enabled: true\n  burst: 0\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.content))
			assert.Error(t, err)
		})
	}
}

func TestLoadConfig_MissingFileFails(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
