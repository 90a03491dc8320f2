package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogCategory represents different log categories
type LogCategory string

const (
	CategoryAccess  LogCategory = "access"  // Inbound HTTP requests
	CategoryResolve LogCategory = "resolve" // Job submission, polling and tier fallback
	CategoryAbuse   LogCategory = "abuse"   // Rejected proxy targets and other abuse signals
)

// MultiLogger provides categorized loggers derived from one base logger.
// The abuse category is also written to a dated JSON file when LogsDir is set.
type MultiLogger struct {
	base    *zap.Logger
	loggers map[LogCategory]*zap.Logger
	files   []*os.File
}

// MultiLoggerConfig contains configuration for categorized logging
type MultiLoggerConfig struct {
	Level   string // Level for file-backed categories
	LogsDir string // Optional directory for file-backed categories
}

// NewMultiLogger creates categorized loggers on top of base
func NewMultiLogger(base *zap.Logger, config MultiLoggerConfig) (*MultiLogger, error) {
	if base == nil {
		base = zap.NewNop()
	}

	ml := &MultiLogger{
		base:    base,
		loggers: make(map[LogCategory]*zap.Logger),
	}

	ml.loggers[CategoryAccess] = base.Named(string(CategoryAccess))
	ml.loggers[CategoryResolve] = base.Named(string(CategoryResolve))
	ml.loggers[CategoryAbuse] = base.Named(string(CategoryAbuse))

	if config.LogsDir == "" {
		return ml, nil
	}

	if err := os.MkdirAll(config.LogsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create logs directory: %w", err)
	}

	level, err := zapcore.ParseLevel(config.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	fileCore, err := ml.createFileCore(config.LogsDir, CategoryAbuse, level)
	if err != nil {
		return nil, fmt.Errorf("failed to create abuse logger: %w", err)
	}
	ml.loggers[CategoryAbuse] = ml.loggers[CategoryAbuse].WithOptions(
		zap.WrapCore(func(c zapcore.Core) zapcore.Core {
			return zapcore.NewTee(c, fileCore)
		}),
	)

	return ml, nil
}

// createFileCore creates a JSON core writing to <logsDir>/<category>-<date>.log
func (ml *MultiLogger) createFileCore(logsDir string, category LogCategory, level zapcore.Level) (zapcore.Core, error) {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "ts"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.CallerKey = ""

	filename := fmt.Sprintf("%s-%s.log", category, time.Now().Format("20060102"))
	file, err := os.OpenFile(filepath.Join(logsDir, filename), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	ml.files = append(ml.files, file)

	return zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), zapcore.AddSync(file), level), nil
}

// Base returns the uncategorized logger
func (ml *MultiLogger) Base() *zap.Logger {
	return ml.base
}

// GetLogger returns the logger for a category, falling back to the base logger
func (ml *MultiLogger) GetLogger(category LogCategory) *zap.Logger {
	if logger, ok := ml.loggers[category]; ok {
		return logger
	}
	return ml.base
}

// Access returns the HTTP access logger
func (ml *MultiLogger) Access() *zap.Logger {
	return ml.GetLogger(CategoryAccess)
}

// Resolve returns the resolution logger
func (ml *MultiLogger) Resolve() *zap.Logger {
	return ml.GetLogger(CategoryResolve)
}

// Abuse returns the abuse-signal logger
func (ml *MultiLogger) Abuse() *zap.Logger {
	return ml.GetLogger(CategoryAbuse)
}

// Sync flushes all loggers
func (ml *MultiLogger) Sync() error {
	var lastErr error
	for _, logger := range ml.loggers {
		if err := logger.Sync(); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

// Close syncs and closes file-backed categories
func (ml *MultiLogger) Close() error {
	_ = ml.Sync()
	var lastErr error
	for _, f := range ml.files {
		if err := f.Close(); err != nil {
			lastErr = err
		}
	}
	return lastErr
}
