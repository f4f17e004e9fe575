package config

import (
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Auth       AuthConfig       `yaml:"auth"`
	Refresh    RefreshConfig    `yaml:"refresh"`
	Push       PushConfig       `yaml:"push"`
	WorkerPool WorkerPoolConfig `yaml:"worker_pool"`
}

// ServerConfig holds the server-related configuration.
type ServerConfig struct {
	Port            int     `yaml:"port"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int     `yaml:"rate_limit_burst"`
	CacheTTLSeconds int     `yaml:"cache_ttl_seconds"`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	Driver                 string `yaml:"driver"` // "sqlite" or "postgres"
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
}

// AuthConfig holds the JWT verification settings.
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
}

// RefreshConfig holds the recurring-task periods of the refresh service.
type RefreshConfig struct {
	Enabled                  bool          `yaml:"enabled"`
	ListIntervalSeconds      int           `yaml:"list_interval_seconds"`
	SweepIntervalSeconds     int           `yaml:"sweep_interval_seconds"`
	CountdownIntervalSeconds int           `yaml:"countdown_interval_seconds"`
	ListInterval             time.Duration `yaml:"-"`
	SweepInterval            time.Duration `yaml:"-"`
	CountdownInterval        time.Duration `yaml:"-"`
}

// PushConfig holds the VAPID keys for web push notifications.
type PushConfig struct {
	PublicKey  string `yaml:"vapid_public_key"`
	PrivateKey string `yaml:"vapid_private_key"`
	Subject    string `yaml:"subject"`
	TTL        int    `yaml:"ttl"`
}

// WorkerPoolConfig holds the configuration for the notification worker pool.
type WorkerPoolConfig struct {
	Size int `yaml:"size"`
}

// Load reads the configuration from the given path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "sqlite"
	}

	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 5
	}
	if cfg.Server.CacheTTLSeconds <= 0 {
		cfg.Server.CacheTTLSeconds = 30
	}

	if cfg.Refresh.ListIntervalSeconds <= 0 {
		cfg.Refresh.ListIntervalSeconds = 30
	}
	if cfg.Refresh.SweepIntervalSeconds <= 0 {
		cfg.Refresh.SweepIntervalSeconds = 60
	}
	if cfg.Refresh.CountdownIntervalSeconds <= 0 {
		cfg.Refresh.CountdownIntervalSeconds = 1
	}
	cfg.Refresh.ListInterval = time.Duration(cfg.Refresh.ListIntervalSeconds) * time.Second
	cfg.Refresh.SweepInterval = time.Duration(cfg.Refresh.SweepIntervalSeconds) * time.Second
	cfg.Refresh.CountdownInterval = time.Duration(cfg.Refresh.CountdownIntervalSeconds) * time.Second

	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 3600
	}

	if cfg.WorkerPool.Size <= 0 {
		log.Printf("worker_pool.size is not set or invalid; defaulting to 1")
		cfg.WorkerPool.Size = 1
	}

	return &cfg, nil
}
