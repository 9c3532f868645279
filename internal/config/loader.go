package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variable names recognized by the loaders.
const (
	EnvConfigFile      = "CONFIG_FILE"
	EnvPort            = "PORT"
	EnvAllowedOrigins  = "ALLOWED_ORIGINS"
	EnvMaxMessageSize  = "MAX_MESSAGE_SIZE"
	EnvRateLimitBurst  = "RATE_LIMIT_BURST"
	EnvRateLimitRefill = "RATE_LIMIT_REFILL_INTERVAL"
	EnvStaticDir       = "STATIC_DIR"
	EnvLogLevel        = "LOG_LEVEL"
	EnvLogFormat       = "LOG_FORMAT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"
)

// LoadFile reads a YAML config file and expands environment variables.
// Sections or fields missing from the file keep their default values.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	// Expand ${VAR} environment variables
	expanded := os.ExpandEnv(string(data))

	f := File{
		Relay:  DefaultRelay(),
		Static: DefaultStatic(),
	}
	if err := yaml.Unmarshal([]byte(expanded), &f); err != nil {
		return nil, fmt.Errorf("parse config yaml: %w", err)
	}

	return &f, nil
}

// LoadRelay builds the relay configuration from defaults, CONFIG_FILE and
// environment variables, then applies defaults and validates.
func LoadRelay() (*RelayConfig, error) {
	cfg := DefaultRelay()
	if path := os.Getenv(EnvConfigFile); path != "" {
		f, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		cfg = f.Relay
	}

	applyRelayEnv(&cfg)
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate relay config: %w", err)
	}
	return &cfg, nil
}

// LoadStatic builds the static server configuration the same way as LoadRelay.
func LoadStatic() (*StaticConfig, error) {
	cfg := DefaultStatic()
	if path := os.Getenv(EnvConfigFile); path != "" {
		f, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		cfg = f.Static
	}

	applyStaticEnv(&cfg)
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate static config: %w", err)
	}
	return &cfg, nil
}

func applyRelayEnv(cfg *RelayConfig) {
	if port := os.Getenv(EnvPort); port != "" {
		cfg.Port = port
	}

	if origins := os.Getenv(EnvAllowedOrigins); origins != "" {
		cfg.AllowedOrigins = parseOrigins(origins)
	}

	if maxSize := os.Getenv(EnvMaxMessageSize); maxSize != "" {
		cfg.MaxMessageSize = parseMaxMessageSize(maxSize, cfg.MaxMessageSize)
	}

	if burst := os.Getenv(EnvRateLimitBurst); burst != "" {
		cfg.RateLimit.Burst = parseIntValue(burst, cfg.RateLimit.Burst)
	}

	if interval := os.Getenv(EnvRateLimitRefill); interval != "" {
		cfg.RateLimit.RefillInterval = parseDuration(interval, cfg.RateLimit.RefillInterval)
	}

	if timeout := os.Getenv(EnvShutdownTimeout); timeout != "" {
		cfg.ShutdownTimeout = parseDuration(timeout, cfg.ShutdownTimeout)
	}

	applyLogEnv(&cfg.Log)
}

func applyStaticEnv(cfg *StaticConfig) {
	if port := os.Getenv(EnvPort); port != "" {
		cfg.Port = port
	}

	if dir := os.Getenv(EnvStaticDir); dir != "" {
		cfg.Dir = dir
	}

	if timeout := os.Getenv(EnvShutdownTimeout); timeout != "" {
		cfg.ShutdownTimeout = parseDuration(timeout, cfg.ShutdownTimeout)
	}

	applyLogEnv(&cfg.Log)
}

func applyLogEnv(cfg *LogConfig) {
	if level := os.Getenv(EnvLogLevel); level != "" {
		cfg.Level = level
	}
	if format := os.Getenv(EnvLogFormat); format != "" {
		cfg.Format = format
	}
}

func parseOrigins(origins string) []string {
	parts := strings.Split(origins, ",")
	parsed := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			parsed = append(parsed, trimmed)
		}
	}
	return parsed
}

func parseMaxMessageSize(value string, defaultValue int64) int64 {
	if size, err := strconv.ParseInt(value, 10, 64); err == nil && size > 0 {
		return size
	}
	return defaultValue
}

func parseIntValue(value string, defaultValue int) int {
	if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
		return parsed
	}
	return defaultValue
}

// parseDuration accepts either a Go duration ("500ms") or a whole number of seconds.
func parseDuration(value string, defaultValue time.Duration) time.Duration {
	if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	if d, err := time.ParseDuration(value); err == nil && d > 0 {
		return d
	}
	return defaultValue
}
