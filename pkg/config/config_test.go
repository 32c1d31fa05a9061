package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// helper to build a minimal valid config that can be tweaked in tests.
func validBaseConfig() *Config {
	cfg := DefaultConfig()
	cfg.RateLimiting.Enabled = true
	cfg.RateLimiting.HTTP.RequestsPerSecond = 10
	cfg.RateLimiting.HTTP.Burst = 20
	cfg.RateLimiting.HTTP.MaxConcurrent = 5
	cfg.RateLimiting.Auth.RequestsPerSecond = 1
	cfg.RateLimiting.Auth.Burst = 3
	return cfg
}

func TestDefaultConfig_IsValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected default config to be valid, got: %v", err)
	}
	if cfg.Session.VerificationDelay != 1200*time.Millisecond {
		t.Fatalf("unexpected verification delay %v", cfg.Session.VerificationDelay)
	}
	if cfg.Notifications.DismissAfter != 3500*time.Millisecond {
		t.Fatalf("unexpected dismiss interval %v", cfg.Notifications.DismissAfter)
	}
}

func TestValidate_RateLimitingDisabled_AllowsZeroValues(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RateLimiting.Enabled = false
	// Zero out rate limiting values to ensure they are ignored when disabled.
	cfg.RateLimiting.HTTP.RequestsPerSecond = 0
	cfg.RateLimiting.HTTP.Burst = 0
	cfg.RateLimiting.HTTP.MaxConcurrent = 0
	cfg.RateLimiting.Auth.RequestsPerSecond = 0
	cfg.RateLimiting.Auth.Burst = 0

	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected config to be valid when rate limiting disabled, got error: %v", err)
	}
}

func TestValidate_InvalidValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"http rps must be > 0", func(c *Config) { c.RateLimiting.HTTP.RequestsPerSecond = 0 }},
		{"http burst must be > 0", func(c *Config) { c.RateLimiting.HTTP.Burst = 0 }},
		{"http max concurrent must be >= 0", func(c *Config) { c.RateLimiting.HTTP.MaxConcurrent = -1 }},
		{"auth rps must be > 0", func(c *Config) { c.RateLimiting.Auth.RequestsPerSecond = 0 }},
		{"auth burst must be > 0", func(c *Config) { c.RateLimiting.Auth.Burst = 0 }},
		{"unknown storage driver", func(c *Config) { c.Storage.Driver = "postgres" }},
		{"sqlite needs a path", func(c *Config) {
			c.Storage.Driver = DriverSQLite
			c.Storage.SQLitePath = ""
		}},
		{"redis driver needs redis", func(c *Config) {
			c.Storage.Driver = DriverRedis
			c.Redis.Enabled = false
		}},
		{"tick interval must be > 0", func(c *Config) { c.Session.TickInterval = 0 }},
		{"negative verification delay", func(c *Config) { c.Session.VerificationDelay = -time.Second }},
		{"pong must outlast ping", func(c *Config) { c.Feeds.PongTimeout = c.Feeds.PingInterval }},
		{"media prefix must be absolute", func(c *Config) { c.Media.URLPrefix = "media" }},
		{"empty jwt secret", func(c *Config) { c.Auth.JWTSecret = "" }},
		{"backup needs an interval", func(c *Config) {
			c.Backup.Enabled = true
			c.Backup.Interval = 0
		}},
		{"backup needs a dir", func(c *Config) {
			c.Backup.Enabled = true
			c.Backup.Dir = ""
		}},
		{"sample rate above one", func(c *Config) {
			c.Tracing.Enabled = true
			c.Tracing.SampleRate = 1.5
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validBaseConfig()
			tc.mutate(cfg)

			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected validation error for case %q, got nil", tc.name)
			}
		})
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Storage.Driver != DriverMemory {
		t.Fatalf("expected memory driver, got %q", cfg.Storage.Driver)
	}
}

func TestLoad_FileAndEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := []byte(`
server:
  address: ":9000"
storage:
  driver: sqlite
  sqlite_path: /tmp/x.db
session:
  verification_delay: 2s
`)
	if err := os.WriteFile(path, yaml, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("SECURESHIELD_LOG_LEVEL", "debug")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Address != ":9000" {
		t.Errorf("expected address from file, got %q", cfg.Server.Address)
	}
	if cfg.Storage.Driver != DriverSQLite || cfg.Storage.SQLitePath != "/tmp/x.db" {
		t.Errorf("unexpected storage section %+v", cfg.Storage)
	}
	if cfg.Session.VerificationDelay != 2*time.Second {
		t.Errorf("expected 2s delay, got %v", cfg.Session.VerificationDelay)
	}
	if cfg.Session.TickInterval != time.Second {
		t.Errorf("expected default tick interval to survive, got %v", cfg.Session.TickInterval)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected env override, got %q", cfg.Logging.Level)
	}
}

func TestLoad_InvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("storage:\n  driver: floppy\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected validation error")
	}
}
