package app

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/yourusername/sonova-go/internal/domain"
)

// LoadConfig loads configuration from file and environment
func LoadConfig(configPath string) (*domain.Config, error) {
	// Start with default config
	config := domain.DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Look for config in standard locations
		v.SetConfigName("config")
		v.AddConfigPath("./configs")
		v.AddConfigPath("$HOME/.sonova")
		v.AddConfigPath("/etc/sonova")
	}

	// Read environment variables, e.g. SONOVA_WORKER_API_KEY
	v.SetEnvPrefix("SONOVA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvKeys(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, use defaults
	}

	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if config.Logging.OutputPath != "stdout" && config.Logging.OutputPath != "stderr" {
		config.Logging.OutputPath = expandPath(config.Logging.OutputPath)
	}
	config.Logging.LogsDir = expandPath(config.Logging.LogsDir)

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// bindEnvKeys makes env-only values visible to Unmarshal, which only sees keys viper knows about
func bindEnvKeys(v *viper.Viper) {
	keys := []string{
		"server.host", "server.port", "server.public_base_url", "server.shutdown_timeout",
		"worker.base_url", "worker.submit_path", "worker.progress_path",
		"worker.api_key", "worker.api_key_header", "worker.request_timeout",
		"resolver.poll_interval", "resolver.poll_timeout", "resolver.preview_quality",
		"resolver.preview_enabled", "resolver.deduplicate_in_flight",
		"proxy.allowed_hosts", "proxy.user_agent", "proxy.default_filename", "proxy.response_timeout",
		"rate_limit.enabled", "rate_limit.requests_per_second", "rate_limit.burst",
		"logging.level", "logging.format", "logging.output_path", "logging.logs_dir",
	}
	for _, key := range keys {
		_ = v.BindEnv(key)
	}
}

// expandPath expands environment variables and ~ in paths
func expandPath(path string) string {
	if path == "" {
		return path
	}

	path = os.ExpandEnv(path)

	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(home, path[2:])
		}
	}

	return path
}

// validateConfig validates the configuration
func validateConfig(config *domain.Config) error {
	if config.Server.Port < 1 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	if config.Worker.BaseURL != "" {
		u, err := url.Parse(config.Worker.BaseURL)
		if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
			return fmt.Errorf("invalid worker base url: %q", config.Worker.BaseURL)
		}
	}

	if config.Resolver.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive")
	}

	if config.Resolver.PollTimeout < config.Resolver.PollInterval {
		return fmt.Errorf("poll timeout (%s) must not be shorter than poll interval (%s)",
			config.Resolver.PollTimeout, config.Resolver.PollInterval)
	}

	if config.Resolver.PreviewEnabled {
		if _, err := domain.ParseQualityTier(config.Resolver.PreviewQuality); err != nil {
			return fmt.Errorf("invalid preview quality: %w", err)
		}
	}

	if len(config.Proxy.AllowedHosts) == 0 {
		return fmt.Errorf("proxy allowed hosts not configured")
	}

	if config.RateLimit.Enabled && (config.RateLimit.RequestsPerSecond <= 0 || config.RateLimit.Burst < 1) {
		return fmt.Errorf("rate limit requires positive requests_per_second and burst")
	}

	if config.Logging.Level == "" {
		config.Logging.Level = "info"
	}

	return nil
}
