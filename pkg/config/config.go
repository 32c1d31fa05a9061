package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v2"
)

// Storage drivers.
const (
	DriverMemory = "memory"
	DriverRedis  = "redis"
	DriverSQLite = "sqlite"
)

type Config struct {
	Server struct {
		Address         string        `yaml:"address"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`

	Feeds struct {
		PingInterval time.Duration `yaml:"ping_interval"`
		PongTimeout  time.Duration `yaml:"pong_timeout"`
		WriteTimeout time.Duration `yaml:"write_timeout"`
	} `yaml:"feeds"`

	Monitoring struct {
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
	} `yaml:"monitoring"`

	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`

	Tracing struct {
		Enabled     bool    `yaml:"enabled"`
		ServiceName string  `yaml:"service_name"`
		JaegerURL   string  `yaml:"jaeger_url"`
		Environment string  `yaml:"environment"`
		SampleRate  float64 `yaml:"sample_rate"`
	} `yaml:"tracing"`

	Storage struct {
		Driver     string `yaml:"driver"`
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"storage"`

	Redis struct {
		Enabled             bool   `yaml:"enabled"`
		Address             string `yaml:"address"`
		Password            string `yaml:"password"`
		DB                  int    `yaml:"db"`
		PoolSize            int    `yaml:"pool_size"`
		ConnectAttempts     int    `yaml:"connect_attempts"`
		NotificationChannel string `yaml:"notification_channel"`
	} `yaml:"redis"`

	Auth struct {
		JWTSecret      string        `yaml:"jwt_secret"`
		AccessTokenTTL time.Duration `yaml:"access_token_ttl"`
		AllowedOrigins []string      `yaml:"allowed_origins"`
	} `yaml:"auth"`

	Session struct {
		VerificationDelay time.Duration `yaml:"verification_delay"`
		TickInterval      time.Duration `yaml:"tick_interval"`
		Retention         time.Duration `yaml:"retention"`
	} `yaml:"session"`

	Backup struct {
		Enabled  bool          `yaml:"enabled"`
		Dir      string        `yaml:"dir"`
		Interval time.Duration `yaml:"interval"`
		MaxAge   time.Duration `yaml:"max_age"`
		// RestoreOnStart names a snapshot, or "latest", to load before serving.
		RestoreOnStart string `yaml:"restore_on_start"`
	} `yaml:"backup"`

	Media struct {
		Dir            string `yaml:"dir"`
		URLPrefix      string `yaml:"url_prefix"`
		MaxUploadBytes int64  `yaml:"max_upload_bytes"`
	} `yaml:"media"`

	Notifications struct {
		DismissAfter time.Duration `yaml:"dismiss_after"`
		Buffer       int           `yaml:"buffer"`
	} `yaml:"notifications"`

	RateLimiting struct {
		Enabled bool `yaml:"enabled"`

		HTTP struct {
			RequestsPerSecond float64 `yaml:"requests_per_second"`
			Burst             int     `yaml:"burst"`
			MaxConcurrent     int     `yaml:"max_concurrent"` // global concurrent HTTP requests
		} `yaml:"http"`

		// Auth applies to login and registration on top of the HTTP limit.
		Auth struct {
			RequestsPerSecond float64 `yaml:"requests_per_second"`
			Burst             int     `yaml:"burst"`
		} `yaml:"auth"`
	} `yaml:"rate_limiting"`
}

// Validate checks that configuration values are within acceptable ranges.
func (c *Config) Validate() error {
	// Server
	if c.Server.Address == "" {
		return fmt.Errorf("server.address must not be empty")
	}
	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server.read_timeout must be > 0")
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server.write_timeout must be > 0")
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("server.shutdown_timeout must be > 0")
	}

	// Feeds
	if c.Feeds.PingInterval <= 0 {
		return fmt.Errorf("feeds.ping_interval must be > 0")
	}
	if c.Feeds.PongTimeout <= c.Feeds.PingInterval {
		return fmt.Errorf("feeds.pong_timeout must be > feeds.ping_interval")
	}
	if c.Feeds.WriteTimeout <= 0 {
		return fmt.Errorf("feeds.write_timeout must be > 0")
	}

	// Logging
	if c.Logging.Level == "" {
		return fmt.Errorf("logging.level must not be empty")
	}

	// Tracing
	if c.Tracing.Enabled {
		if c.Tracing.JaegerURL == "" {
			return fmt.Errorf("tracing.jaeger_url must not be empty when tracing.enabled=true")
		}
		if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
			return fmt.Errorf("tracing.sample_rate must be within [0, 1]")
		}
	}

	// Backup
	if c.Backup.Enabled {
		if c.Backup.Dir == "" {
			return fmt.Errorf("backup.dir must not be empty when backup.enabled=true")
		}
		if c.Backup.Interval <= 0 {
			return fmt.Errorf("backup.interval must be > 0 when backup.enabled=true")
		}
		if c.Backup.MaxAge < 0 {
			return fmt.Errorf("backup.max_age must be >= 0")
		}
	}

	// Storage
	switch c.Storage.Driver {
	case DriverMemory:
	case DriverRedis:
		if !c.Redis.Enabled {
			return fmt.Errorf("storage.driver=redis requires redis.enabled=true")
		}
	case DriverSQLite:
		if c.Storage.SQLitePath == "" {
			return fmt.Errorf("storage.sqlite_path must not be empty when storage.driver=sqlite")
		}
	default:
		return fmt.Errorf("storage.driver must be one of memory, redis, sqlite; got %q", c.Storage.Driver)
	}

	// Redis
	if c.Redis.Enabled {
		if c.Redis.Address == "" {
			return fmt.Errorf("redis.address must not be empty when redis.enabled=true")
		}
		if c.Redis.PoolSize <= 0 {
			return fmt.Errorf("redis.pool_size must be > 0 when redis.enabled=true")
		}
		if c.Redis.NotificationChannel == "" {
			return fmt.Errorf("redis.notification_channel must not be empty when redis.enabled=true")
		}
	}

	// Auth
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret must not be empty")
	}
	if c.Auth.AccessTokenTTL <= 0 {
		return fmt.Errorf("auth.access_token_ttl must be > 0")
	}

	// Session
	if c.Session.VerificationDelay < 0 {
		return fmt.Errorf("session.verification_delay must be >= 0")
	}
	if c.Session.TickInterval <= 0 {
		return fmt.Errorf("session.tick_interval must be > 0")
	}
	if c.Session.Retention <= 0 {
		return fmt.Errorf("session.retention must be > 0")
	}

	// Media
	if c.Media.Dir == "" {
		return fmt.Errorf("media.dir must not be empty")
	}
	if !strings.HasPrefix(c.Media.URLPrefix, "/") {
		return fmt.Errorf("media.url_prefix must start with /")
	}
	if c.Media.MaxUploadBytes <= 0 {
		return fmt.Errorf("media.max_upload_bytes must be > 0")
	}

	// Notifications
	if c.Notifications.DismissAfter <= 0 {
		return fmt.Errorf("notifications.dismiss_after must be > 0")
	}
	if c.Notifications.Buffer <= 0 {
		return fmt.Errorf("notifications.buffer must be > 0")
	}

	// Rate limiting
	if c.RateLimiting.Enabled {
		if c.RateLimiting.HTTP.RequestsPerSecond <= 0 {
			return fmt.Errorf("rate_limiting.http.requests_per_second must be > 0 when rate limiting is enabled")
		}
		if c.RateLimiting.HTTP.Burst <= 0 {
			return fmt.Errorf("rate_limiting.http.burst must be > 0 when rate limiting is enabled")
		}
		if c.RateLimiting.HTTP.MaxConcurrent < 0 {
			return fmt.Errorf("rate_limiting.http.max_concurrent must be >= 0 when rate limiting is enabled")
		}
		if c.RateLimiting.Auth.RequestsPerSecond <= 0 {
			return fmt.Errorf("rate_limiting.auth.requests_per_second must be > 0 when rate limiting is enabled")
		}
		if c.RateLimiting.Auth.Burst <= 0 {
			return fmt.Errorf("rate_limiting.auth.burst must be > 0 when rate limiting is enabled")
		}
	}

	return nil
}

// Load reads configuration from YAML file, applies defaults and env overrides.
func Load(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(configPath)
	switch {
	case os.IsNotExist(err):
		// No file: defaults plus environment.
	case err != nil:
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config yaml: %w", err)
		}
	}

	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// DefaultConfig returns configuration with sane defaults.
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Server.Address = ":8080"
	cfg.Server.ReadTimeout = 30 * time.Second
	cfg.Server.WriteTimeout = 30 * time.Second
	cfg.Server.ShutdownTimeout = 30 * time.Second

	cfg.Feeds.PingInterval = 30 * time.Second
	cfg.Feeds.PongTimeout = 60 * time.Second
	cfg.Feeds.WriteTimeout = 10 * time.Second

	cfg.Monitoring.PrometheusEnabled = true

	cfg.Logging.Level = "info"
	cfg.Logging.Format = "json"

	cfg.Tracing.Enabled = false
	cfg.Tracing.ServiceName = "secureshield"
	cfg.Tracing.JaegerURL = "http://localhost:14268/api/traces"
	cfg.Tracing.Environment = "development"
	cfg.Tracing.SampleRate = 1.0

	cfg.Storage.Driver = DriverMemory
	cfg.Storage.SQLitePath = "data/secureshield.db"

	cfg.Redis.Enabled = false
	cfg.Redis.Address = "localhost:6379"
	cfg.Redis.DB = 0
	cfg.Redis.PoolSize = 10
	cfg.Redis.ConnectAttempts = 3
	cfg.Redis.NotificationChannel = "secureshield:notifications"

	cfg.Auth.JWTSecret = "change-me-in-production"
	cfg.Auth.AccessTokenTTL = 8 * time.Hour
	cfg.Auth.AllowedOrigins = []string{"*"}

	cfg.Session.VerificationDelay = 1200 * time.Millisecond
	cfg.Session.TickInterval = time.Second
	cfg.Session.Retention = 10 * time.Minute

	cfg.Backup.Enabled = false
	cfg.Backup.Dir = "data/backups"
	cfg.Backup.Interval = 6 * time.Hour
	cfg.Backup.MaxAge = 7 * 24 * time.Hour

	cfg.Media.Dir = "data/media"
	cfg.Media.URLPrefix = "/media"
	cfg.Media.MaxUploadBytes = 100 << 20

	cfg.Notifications.DismissAfter = 3500 * time.Millisecond
	cfg.Notifications.Buffer = 16

	// Rate limiting defaults (disabled by default)
	cfg.RateLimiting.Enabled = false
	cfg.RateLimiting.HTTP.RequestsPerSecond = 50
	cfg.RateLimiting.HTTP.Burst = 100
	cfg.RateLimiting.HTTP.MaxConcurrent = 0
	cfg.RateLimiting.Auth.RequestsPerSecond = 1
	cfg.RateLimiting.Auth.Burst = 5

	return cfg
}

func (c *Config) applyEnvOverrides() {
	if addr := os.Getenv("SECURESHIELD_SERVER_ADDRESS"); addr != "" {
		c.Server.Address = addr
	}
	if level := os.Getenv("SECURESHIELD_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	if secret := os.Getenv("SECURESHIELD_JWT_SECRET"); secret != "" {
		c.Auth.JWTSecret = secret
	}
	if driver := os.Getenv("SECURESHIELD_STORAGE_DRIVER"); driver != "" {
		c.Storage.Driver = strings.ToLower(driver)
	}
	if path := os.Getenv("SECURESHIELD_SQLITE_PATH"); path != "" {
		c.Storage.SQLitePath = path
	}
	if addr := os.Getenv("SECURESHIELD_REDIS_ADDRESS"); addr != "" {
		c.Redis.Enabled = true
		c.Redis.Address = addr
	}
	if dir := os.Getenv("SECURESHIELD_MEDIA_DIR"); dir != "" {
		c.Media.Dir = dir
	}
}
