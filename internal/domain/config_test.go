package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	assert.NotNil(t, config)
	assert.Equal(t, "localhost", config.Server.Host)
	assert.Equal(t, 8080, config.Server.Port)
	assert.Equal(t, 30*time.Second, config.Server.ShutdownTimeout)
	assert.Empty(t, config.Worker.BaseURL)
	assert.Equal(t, "/download", config.Worker.SubmitPath)
	assert.Equal(t, "/progress", config.Worker.ProgressPath)
	assert.Equal(t, "x-api-key", config.Worker.APIKeyHeader)
	assert.Equal(t, 1200*time.Millisecond, config.Resolver.PollInterval)
	assert.Equal(t, 60*time.Second, config.Resolver.PollTimeout)
	assert.Equal(t, "360", config.Resolver.PreviewQuality)
	assert.True(t, config.Resolver.PreviewEnabled)
	assert.True(t, config.Resolver.DeduplicateInFly)
	assert.Contains(t, config.Proxy.AllowedHosts, "*.googlevideo.com")
	assert.Equal(t, "video", config.Proxy.DefaultFilename)
	assert.True(t, config.RateLimit.Enabled)
	assert.Equal(t, "info", config.Logging.Level)
}
