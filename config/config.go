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
	Facility   FacilityConfig   `yaml:"facility"`
	Database   DatabaseConfig   `yaml:"database"`
	Notify     NotifyConfig     `yaml:"notify"`
	Push       PushConfig       `yaml:"push"`
	Auth       AuthConfig       `yaml:"auth"`
	WorkerPool WorkerPoolConfig `yaml:"worker_pool"`
}

// ServerConfig holds the server-related configuration.
type ServerConfig struct {
	Port            int     `yaml:"port"`
	RequestIPHeader string  `yaml:"request_ip_header"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`
	CacheTTLSeconds int     `yaml:"cache_ttl_seconds"`
}

// FacilityConfig identifies the running environment and controls when
// capacity alerts fire.
type FacilityConfig struct {
	Environment     string         `yaml:"environment"`
	Timezone        string         `yaml:"timezone"`
	Location        *time.Location `yaml:"-"` // Ignored by YAML parser
	NotifyThreshold int            `yaml:"notify_threshold"`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
}

// NotifyConfig holds the outbound webhook settings for capacity alerts.
type NotifyConfig struct {
	WebhookURL     string        `yaml:"webhook_url"`
	TimeoutSeconds int           `yaml:"timeout_seconds"`
	Timeout        time.Duration `yaml:"-"` // Ignored by YAML parser
}

// PushConfig holds the VAPID keys for web push notifications.
type PushConfig struct {
	PublicKey  string `yaml:"vapid_public_key"`
	PrivateKey string `yaml:"vapid_private_key"`
	Subject    string `yaml:"subject"`
	TTL        int    `yaml:"ttl"`
}

// AuthConfig holds the settings for verifying bearer tokens minted by the
// external login flow.
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
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

	if cfg.Facility.Environment == "" {
		cfg.Facility.Environment = "production"
	}

	if cfg.Facility.Timezone == "" {
		cfg.Facility.Timezone = "Asia/Seoul"
	}
	loc, err := time.LoadLocation(cfg.Facility.Timezone)
	if err != nil {
		return nil, err
	}
	cfg.Facility.Location = loc

	if cfg.Facility.NotifyThreshold <= 0 {
		cfg.Facility.NotifyThreshold = 5
	}

	if cfg.Notify.TimeoutSeconds <= 0 {
		cfg.Notify.TimeoutSeconds = 5
	}
	cfg.Notify.Timeout = time.Duration(cfg.Notify.TimeoutSeconds) * time.Second

	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 3600
	}

	if cfg.WorkerPool.Size <= 0 {
		log.Printf("worker_pool.size is not set or invalid; defaulting to 1")
		cfg.WorkerPool.Size = 1
	}

	return &cfg, nil
}
