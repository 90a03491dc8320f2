package domain

import "time"

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Worker    WorkerConfig    `mapstructure:"worker"`
	Resolver  ResolverConfig  `mapstructure:"resolver"`
	Proxy     ProxyConfig     `mapstructure:"proxy"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig contains server-related configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	PublicBaseURL   string        `mapstructure:"public_base_url"` // Prefix for client-callable links, empty for relative
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// WorkerConfig contains the extraction worker endpoint configuration
type WorkerConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	SubmitPath     string        `mapstructure:"submit_path"`
	ProgressPath   string        `mapstructure:"progress_path"`
	APIKey         string        `mapstructure:"api_key"`
	APIKeyHeader   string        `mapstructure:"api_key_header"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// ResolverConfig contains resolution and polling configuration
type ResolverConfig struct {
	PollInterval     time.Duration `mapstructure:"poll_interval"`
	PollTimeout      time.Duration `mapstructure:"poll_timeout"`
	PreviewQuality   string        `mapstructure:"preview_quality"`
	PreviewEnabled   bool          `mapstructure:"preview_enabled"`
	DeduplicateInFly bool          `mapstructure:"deduplicate_in_flight"`
}

// ProxyConfig contains media proxy configuration
type ProxyConfig struct {
	AllowedHosts    []string      `mapstructure:"allowed_hosts"`
	UserAgent       string        `mapstructure:"user_agent"`
	DefaultFilename string        `mapstructure:"default_filename"`
	ResponseTimeout time.Duration `mapstructure:"response_timeout"` // Time to first response header
}

// RateLimitConfig contains inbound rate limiting configuration
type RateLimitConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

// LoggingConfig contains logging-related configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`       // debug, info, warn, error
	Format     string `mapstructure:"format"`      // json, console
	OutputPath string `mapstructure:"output_path"` // stdout, stderr, or file path
	LogsDir    string `mapstructure:"logs_dir"`    // Optional directory for the abuse log
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "localhost",
			Port:            8080,
			ShutdownTimeout: 30 * time.Second,
		},
		Worker: WorkerConfig{
			SubmitPath:     "/download",
			ProgressPath:   "/progress",
			APIKeyHeader:   "x-api-key",
			RequestTimeout: 20 * time.Second,
		},
		Resolver: ResolverConfig{
			PollInterval:     1200 * time.Millisecond,
			PollTimeout:      60 * time.Second,
			PreviewQuality:   string(Quality360),
			PreviewEnabled:   true,
			DeduplicateInFly: true,
		},
		Proxy: ProxyConfig{
			AllowedHosts: []string{
				"*.googlevideo.com",
				"*.youtube.com",
				"*.ytimg.com",
			},
			UserAgent:       "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36",
			DefaultFilename: "video",
			ResponseTimeout: 30 * time.Second,
		},
		RateLimit: RateLimitConfig{
			Enabled:           true,
			RequestsPerSecond: 20,
			Burst:             40,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "console",
			OutputPath: "stdout",
		},
	}
}
