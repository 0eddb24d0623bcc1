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
	Council    CouncilConfig    `yaml:"council"`
	Poller     PollerConfig     `yaml:"poller"`
	Database   DatabaseConfig   `yaml:"database"`
	Push       PushConfig       `yaml:"push"`
	WorkerPool WorkerPoolConfig `yaml:"worker_pool"`
}

// WorkerPoolConfig holds the configuration for the notification worker pool.
type WorkerPoolConfig struct {
	Size int `yaml:"size"`
}

// PushConfig holds the VAPID keys for web push notifications.
type PushConfig struct {
	Enabled    bool   `yaml:"enabled"`
	PublicKey  string `yaml:"vapid_public_key"`
	PrivateKey string `yaml:"vapid_private_key"`
	Subject    string `yaml:"subject"`
	TTL        int    `yaml:"ttl"`
}

// ServerConfig holds the server-related configuration.
type ServerConfig struct {
	Port            int     `yaml:"port"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int     `yaml:"rate_limit_burst"`
	CacheTTLSeconds int     `yaml:"cache_ttl_seconds"`
}

// CouncilConfig holds the upstream council API configuration.
type CouncilConfig struct {
	LookupBaseURL  string `yaml:"lookup_base_url"`
	DetailsBaseURL string `yaml:"details_base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	HTTPProxy      string `yaml:"http_proxy"`
	Timezone       string `yaml:"timezone"`
}

// PollerConfig holds the refresh intervals for the per-address coordinators.
// The short interval applies on collection days only.
type PollerConfig struct {
	Enabled              bool          `yaml:"enabled"`
	IntervalSeconds      int           `yaml:"interval_seconds"`
	ShortIntervalSeconds int           `yaml:"short_interval_seconds"`
	Interval             time.Duration `yaml:"-"` // Ignored by YAML parser
	ShortInterval        time.Duration `yaml:"-"`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	Driver                 string `yaml:"driver"`
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
}

const (
	// DefaultLookupBaseURL resolves postcodes to addresses (UPRN + label).
	DefaultLookupBaseURL = "https://webapps.southglos.gov.uk/Webservices/SGC.RefuseCollectionService/RefuseCollectionService.svc"
	// DefaultDetailsBaseURL serves per-UPRN collection schedules and live status.
	DefaultDetailsBaseURL = "https://api.southglos.gov.uk/wastecomp"
)

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

	cfg.ApplyDefaults()
	return &cfg, nil
}

// ApplyDefaults fills in defaults for any unset values.
func (cfg *Config) ApplyDefaults() {
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 5
	}
	if cfg.Server.CacheTTLSeconds <= 0 {
		cfg.Server.CacheTTLSeconds = 60
	}

	if cfg.Council.LookupBaseURL == "" {
		cfg.Council.LookupBaseURL = DefaultLookupBaseURL
	}
	if cfg.Council.DetailsBaseURL == "" {
		cfg.Council.DetailsBaseURL = DefaultDetailsBaseURL
	}
	if cfg.Council.TimeoutSeconds <= 0 {
		cfg.Council.TimeoutSeconds = 30
	}
	if cfg.Council.Timezone == "" {
		cfg.Council.Timezone = "Europe/London"
	}

	if cfg.Poller.IntervalSeconds <= 0 {
		cfg.Poller.IntervalSeconds = 24 * 60 * 60
	}
	if cfg.Poller.ShortIntervalSeconds <= 0 {
		cfg.Poller.ShortIntervalSeconds = 15 * 60
	}
	cfg.Poller.Interval = time.Duration(cfg.Poller.IntervalSeconds) * time.Second
	cfg.Poller.ShortInterval = time.Duration(cfg.Poller.ShortIntervalSeconds) * time.Second

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "sqlite"
	}
	if cfg.Database.DSN == "" {
		cfg.Database.DSN = "binsd.db"
	}

	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 3600
	}

	if cfg.WorkerPool.Size <= 0 {
		log.Printf("worker_pool.size is not set or invalid; defaulting to 1")
		cfg.WorkerPool.Size = 1
	}
}
