package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		EnvConfigFile, EnvPort, EnvAllowedOrigins, EnvMaxMessageSize,
		EnvRateLimitBurst, EnvRateLimitRefill, EnvStaticDir,
		EnvLogLevel, EnvLogFormat, EnvShutdownTimeout,
	} {
		t.Setenv(key, "")
	}
}

func TestLoadRelayDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadRelay()
	if err != nil {
		t.Fatalf("LoadRelay failed: %v", err)
	}

	if cfg.Port != ":3001" {
		t.Errorf("Port = %q, want %q", cfg.Port, ":3001")
	}
	if !reflect.DeepEqual(cfg.AllowedOrigins, []string{"*"}) {
		t.Errorf("AllowedOrigins = %v, want [*]", cfg.AllowedOrigins)
	}
	if cfg.MaxMessageSize != DefaultMaxMessageSize {
		t.Errorf("MaxMessageSize = %d, want %d", cfg.MaxMessageSize, DefaultMaxMessageSize)
	}
	if cfg.RateLimit.Burst != DefaultRateLimitBurst {
		t.Errorf("RateLimit.Burst = %d, want %d", cfg.RateLimit.Burst, DefaultRateLimitBurst)
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "text" {
		t.Errorf("Log = %+v, want info/text", cfg.Log)
	}
}

func TestLoadStaticDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadStatic()
	if err != nil {
		t.Fatalf("LoadStatic failed: %v", err)
	}

	if cfg.Port != ":3000" {
		t.Errorf("Port = %q, want %q", cfg.Port, ":3000")
	}
	if cfg.Dir != DefaultStaticDir {
		t.Errorf("Dir = %q, want %q", cfg.Dir, DefaultStaticDir)
	}
}

func TestLoadRelayFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvPort, "4100")
	t.Setenv(EnvAllowedOrigins, "http://a.example, https://b.example")
	t.Setenv(EnvMaxMessageSize, "2048")
	t.Setenv(EnvRateLimitBurst, "3")
	t.Setenv(EnvRateLimitRefill, "2")
	t.Setenv(EnvLogLevel, "DEBUG")
	t.Setenv(EnvLogFormat, "json")

	cfg, err := LoadRelay()
	if err != nil {
		t.Fatalf("LoadRelay failed: %v", err)
	}

	if cfg.Port != ":4100" {
		t.Errorf("Port = %q, want %q", cfg.Port, ":4100")
	}
	wantOrigins := []string{"http://a.example", "https://b.example"}
	if !reflect.DeepEqual(cfg.AllowedOrigins, wantOrigins) {
		t.Errorf("AllowedOrigins = %v, want %v", cfg.AllowedOrigins, wantOrigins)
	}
	if cfg.MaxMessageSize != 2048 {
		t.Errorf("MaxMessageSize = %d, want 2048", cfg.MaxMessageSize)
	}
	if cfg.RateLimit.Burst != 3 {
		t.Errorf("RateLimit.Burst = %d, want 3", cfg.RateLimit.Burst)
	}
	if cfg.RateLimit.RefillInterval != 2*time.Second {
		t.Errorf("RateLimit.RefillInterval = %v, want 2s", cfg.RateLimit.RefillInterval)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "json" {
		t.Errorf("Log = %+v, want debug/json", cfg.Log)
	}
}

func TestLoadRelayRejectsBlankOrigins(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvAllowedOrigins, " , ")

	if _, err := LoadRelay(); err == nil || !strings.Contains(err.Error(), "allowed_origins") {
		t.Errorf("LoadRelay() error = %v, want allowed_origins error", err)
	}
}

func TestParseOriginsSkipsBlanks(t *testing.T) {
	got := parseOrigins(" http://a.example, ,,https://b.example ")
	want := []string{"http://a.example", "https://b.example"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("parseOrigins = %v, want %v", got, want)
	}
}

func TestLoadRelayIgnoresInvalidNumbers(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvMaxMessageSize, "-5")
	t.Setenv(EnvRateLimitBurst, "lots")
	t.Setenv(EnvRateLimitRefill, "soon")

	cfg, err := LoadRelay()
	if err != nil {
		t.Fatalf("LoadRelay failed: %v", err)
	}

	if cfg.MaxMessageSize != DefaultMaxMessageSize {
		t.Errorf("MaxMessageSize = %d, want default", cfg.MaxMessageSize)
	}
	if cfg.RateLimit.Burst != DefaultRateLimitBurst {
		t.Errorf("RateLimit.Burst = %d, want default", cfg.RateLimit.Burst)
	}
	if cfg.RateLimit.RefillInterval != DefaultRefillInterval {
		t.Errorf("RateLimit.RefillInterval = %v, want default", cfg.RateLimit.RefillInterval)
	}
}

func TestLoadFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("TEST_RELAY_PORT", "5005")

	yaml := `
relay:
  port: "${TEST_RELAY_PORT}"
  allowed_origins:
    - https://htl.example
  rate_limit:
    burst: 7
    refill_interval: 500ms
static:
  dir: /srv/htl
`
	path := writeTempFile(t, yaml)

	f, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}

	if f.Relay.Port != "5005" {
		t.Errorf("Relay.Port = %q, want %q", f.Relay.Port, "5005")
	}
	if f.Relay.RateLimit.Burst != 7 {
		t.Errorf("Relay.RateLimit.Burst = %d, want 7", f.Relay.RateLimit.Burst)
	}
	if f.Relay.RateLimit.RefillInterval != 500*time.Millisecond {
		t.Errorf("Relay.RateLimit.RefillInterval = %v, want 500ms", f.Relay.RateLimit.RefillInterval)
	}
	// Fields absent from the file keep defaults.
	if f.Relay.MaxMessageSize != DefaultMaxMessageSize {
		t.Errorf("Relay.MaxMessageSize = %d, want default", f.Relay.MaxMessageSize)
	}
	if f.Static.Dir != "/srv/htl" {
		t.Errorf("Static.Dir = %q, want %q", f.Static.Dir, "/srv/htl")
	}
	if f.Static.Port != DefaultStaticPort {
		t.Errorf("Static.Port = %q, want default", f.Static.Port)
	}
}

func TestLoadRelayFileThenEnv(t *testing.T) {
	clearEnv(t)
	path := writeTempFile(t, "relay:\n  port: \"7000\"\n  max_message_size: 1000\n")
	t.Setenv(EnvConfigFile, path)
	t.Setenv(EnvPort, "7001")

	cfg, err := LoadRelay()
	if err != nil {
		t.Fatalf("LoadRelay failed: %v", err)
	}

	if cfg.Port != ":7001" {
		t.Errorf("Port = %q, want env override %q", cfg.Port, ":7001")
	}
	if cfg.MaxMessageSize != 1000 {
		t.Errorf("MaxMessageSize = %d, want 1000 from file", cfg.MaxMessageSize)
	}
}

func TestLoadFileErrors(t *testing.T) {
	clearEnv(t)

	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}

	path := writeTempFile(t, "relay: [unterminated")
	if _, err := LoadFile(path); err == nil || !strings.Contains(err.Error(), "parse config yaml") {
		t.Errorf("expected parse error, got %v", err)
	}

	t.Setenv(EnvConfigFile, path)
	if _, err := LoadRelay(); err == nil {
		t.Error("LoadRelay should surface file errors")
	}
}

func TestRelayValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*RelayConfig)
		wantErr string
	}{
		{"valid", func(*RelayConfig) {}, ""},
		{"ephemeral port", func(c *RelayConfig) { c.Port = ":0" }, ""},
		{"host and port", func(c *RelayConfig) { c.Port = "127.0.0.1:3001" }, ""},
		{"missing port", func(c *RelayConfig) { c.Port = "" }, "port is required"},
		{"no colon", func(c *RelayConfig) { c.Port = "localhost" }, "[host]:port"},
		{"port out of range", func(c *RelayConfig) { c.Port = ":70000" }, "between 0 and 65535"},
		{"no origins", func(c *RelayConfig) { c.AllowedOrigins = nil }, "allowed_origins"},
		{"blank origins", func(c *RelayConfig) { c.AllowedOrigins = []string{"", " "} }, "allowed_origins"},
		{"zero message size", func(c *RelayConfig) { c.MaxMessageSize = 0 }, "max_message_size"},
		{"zero burst", func(c *RelayConfig) { c.RateLimit.Burst = 0 }, "rate_limit.burst"},
		{"zero refill", func(c *RelayConfig) { c.RateLimit.RefillInterval = 0 }, "rate_limit.refill_interval"},
		{"bad level", func(c *RelayConfig) { c.Log.Level = "trace" }, "log.level"},
		{"bad format", func(c *RelayConfig) { c.Log.Format = "xml" }, "log.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultRelay()
			tt.modify(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestStaticValidate(t *testing.T) {
	cfg := DefaultStatic()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default static config invalid: %v", err)
	}

	cfg.Dir = ""
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for empty dir")
	}
}

func TestNormalizePort(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ":3001"},
		{"3001", ":3001"},
		{" 8080 ", ":8080"},
		{":9000", ":9000"},
		{"0.0.0.0:9000", "0.0.0.0:9000"},
	}
	for _, tt := range tests {
		if got := normalizePort(tt.in, DefaultRelayPort); got != tt.want {
			t.Errorf("normalizePort(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}
