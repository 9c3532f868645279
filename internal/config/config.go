package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Default values for optional configuration fields.
const (
	DefaultRelayPort       = ":3001"
	DefaultStaticPort      = ":3000"
	DefaultStaticDir       = "./public"
	DefaultMaxMessageSize  = 64 * 1024
	DefaultRateLimitBurst  = 20
	DefaultRefillInterval  = time.Second
	DefaultShutdownTimeout = 10 * time.Second
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "text"

	wildcardOrigin = "*"
	maxPortNumber  = 65535
)

// RateLimitConfig defines the parameters for per-connection message rate limiting.
// Burst messages are allowed per RefillInterval.
type RateLimitConfig struct {
	Burst          int           `yaml:"burst"`
	RefillInterval time.Duration `yaml:"refill_interval"`
}

// LogConfig selects the slog handler installed at startup.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// RelayConfig holds the game-state relay settings including connection limits.
type RelayConfig struct {
	Port            string          `yaml:"port"`
	AllowedOrigins  []string        `yaml:"allowed_origins"`
	MaxMessageSize  int64           `yaml:"max_message_size"`
	RateLimit       RateLimitConfig `yaml:"rate_limit"`
	ShutdownTimeout time.Duration   `yaml:"shutdown_timeout"`
	Log             LogConfig       `yaml:"log"`
}

// StaticConfig holds the static file server settings.
type StaticConfig struct {
	Port            string        `yaml:"port"`
	Dir             string        `yaml:"dir"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	Log             LogConfig     `yaml:"log"`
}

// File is the on-disk layout of CONFIG_FILE. Both servers may share one file.
type File struct {
	Relay  RelayConfig  `yaml:"relay"`
	Static StaticConfig `yaml:"static"`
}

// DefaultRelay returns a RelayConfig populated with default values for all settings.
func DefaultRelay() RelayConfig {
	return RelayConfig{
		Port:           DefaultRelayPort,
		AllowedOrigins: []string{wildcardOrigin},
		MaxMessageSize: DefaultMaxMessageSize,
		RateLimit: RateLimitConfig{
			Burst:          DefaultRateLimitBurst,
			RefillInterval: DefaultRefillInterval,
		},
		ShutdownTimeout: DefaultShutdownTimeout,
		Log:             defaultLog(),
	}
}

// DefaultStatic returns a StaticConfig populated with default values.
func DefaultStatic() StaticConfig {
	return StaticConfig{
		Port:            DefaultStaticPort,
		Dir:             DefaultStaticDir,
		ShutdownTimeout: DefaultShutdownTimeout,
		Log:             defaultLog(),
	}
}

func defaultLog() LogConfig {
	return LogConfig{Level: DefaultLogLevel, Format: DefaultLogFormat}
}

func (c *RelayConfig) applyDefaults() {
	c.Port = normalizePort(c.Port, DefaultRelayPort)
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = DefaultMaxMessageSize
	}
	if c.RateLimit.Burst <= 0 {
		c.RateLimit.Burst = DefaultRateLimitBurst
	}
	if c.RateLimit.RefillInterval <= 0 {
		c.RateLimit.RefillInterval = DefaultRefillInterval
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = DefaultShutdownTimeout
	}
	c.Log.applyDefaults()
}

func (c *StaticConfig) applyDefaults() {
	c.Port = normalizePort(c.Port, DefaultStaticPort)
	if strings.TrimSpace(c.Dir) == "" {
		c.Dir = DefaultStaticDir
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = DefaultShutdownTimeout
	}
	c.Log.applyDefaults()
}

func (l *LogConfig) applyDefaults() {
	l.Level = strings.ToLower(strings.TrimSpace(l.Level))
	if l.Level == "" {
		l.Level = DefaultLogLevel
	}
	l.Format = strings.ToLower(strings.TrimSpace(l.Format))
	if l.Format == "" {
		l.Format = DefaultLogFormat
	}
}

// Validate checks that all fields hold usable values.
func (c *RelayConfig) Validate() error {
	if err := validatePort(c.Port); err != nil {
		return err
	}
	if !hasOrigin(c.AllowedOrigins) {
		return errors.New("allowed_origins must list at least one origin or *")
	}
	if c.MaxMessageSize < 1 {
		return errors.New("max_message_size must be >= 1")
	}
	if c.RateLimit.Burst < 1 {
		return errors.New("rate_limit.burst must be >= 1")
	}
	if c.RateLimit.RefillInterval <= 0 {
		return errors.New("rate_limit.refill_interval must be positive")
	}
	return c.Log.validate()
}

// Validate checks that all fields hold usable values.
func (c *StaticConfig) Validate() error {
	if err := validatePort(c.Port); err != nil {
		return err
	}
	if c.Dir == "" {
		return errors.New("dir is required")
	}
	return c.Log.validate()
}

func hasOrigin(origins []string) bool {
	for _, origin := range origins {
		if strings.TrimSpace(origin) != "" {
			return true
		}
	}
	return false
}

func (l *LogConfig) validate() error {
	switch l.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of debug, info, warn, error, got %q", l.Level)
	}
	switch l.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", l.Format)
	}
	return nil
}

// normalizePort turns a bare port number such as "3001" into a listen address.
func normalizePort(port, fallback string) string {
	port = strings.TrimSpace(port)
	if port == "" {
		return fallback
	}
	if _, err := strconv.Atoi(port); err == nil {
		return ":" + port
	}
	return port
}

func validatePort(addr string) error {
	if addr == "" {
		return errors.New("port is required")
	}
	idx := strings.LastIndex(addr, ":")
	if idx < 0 {
		return fmt.Errorf("port %q must be of the form [host]:port", addr)
	}
	n, err := strconv.Atoi(addr[idx+1:])
	if err != nil {
		return fmt.Errorf("port %q is not numeric: %w", addr, err)
	}
	if n < 0 || n > maxPortNumber {
		return fmt.Errorf("port must be between 0 and %d, got %d", maxPortNumber, n)
	}
	return nil
}
