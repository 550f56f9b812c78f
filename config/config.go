package config

import (
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Database    DatabaseConfig    `yaml:"database"`
	Library     LibraryConfig     `yaml:"library"`
	Maintenance MaintenanceConfig `yaml:"maintenance"`
	Push        PushConfig        `yaml:"push"`
	WorkerPool  WorkerPoolConfig  `yaml:"worker_pool"`
}

// WorkerPoolConfig holds the configuration for the notification worker pool.
type WorkerPoolConfig struct {
	Size int `yaml:"size"`
}

// PushConfig holds the VAPID keys for web push notifications.
type PushConfig struct {
	PublicKey  string `yaml:"vapid_public_key"`
	PrivateKey string `yaml:"vapid_private_key"`
	Subject    string `yaml:"subject"`
	TTL        int    `yaml:"ttl"`
}

// ServerConfig holds the server-related configuration.
type ServerConfig struct {
	Port            int     `yaml:"port"`
	RequestIPHeader string  `yaml:"request_ip_header"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`
	CacheTTLSeconds int     `yaml:"cache_ttl_seconds"`
}

// LibraryConfig holds the lending-domain settings.
type LibraryConfig struct {
	// Admins are the emails granted the admin flag on authentication.
	Admins []string `yaml:"admins"`
	// Categories are seeded into the database at startup.
	Categories []string `yaml:"categories"`
	// EmailPattern restricts visitor emails to the organization.
	EmailPattern string `yaml:"email_pattern"`
	// SearchMaxID is the largest numeric search key treated as an id
	// lookup rather than a text match.
	SearchMaxID int64 `yaml:"search_max_id"`
}

// MaintenanceConfig drives the scheduled reminder and purge jobs.
type MaintenanceConfig struct {
	Enabled                 bool          `yaml:"enabled"`
	ReminderIntervalSeconds int           `yaml:"reminder_interval_seconds"`
	ReminderInterval        time.Duration `yaml:"-"` // Ignored by YAML parser
	ExpireDaysAhead         int           `yaml:"expire_days_ahead"`
	PurgeMaxAgeDays         int           `yaml:"purge_max_age_days"`
	PurgeIntervalHours      int           `yaml:"purge_interval_hours"`
	PurgeInterval           time.Duration `yaml:"-"` // Ignored by YAML parser
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
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

	if cfg.Library.EmailPattern == "" {
		cfg.Library.EmailPattern = `^[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`
	}
	if cfg.Library.SearchMaxID <= 0 {
		cfg.Library.SearchMaxID = 10000
	}

	if cfg.Maintenance.ReminderIntervalSeconds <= 0 {
		cfg.Maintenance.ReminderIntervalSeconds = 3600
	}
	cfg.Maintenance.ReminderInterval = time.Duration(cfg.Maintenance.ReminderIntervalSeconds) * time.Second

	if cfg.Maintenance.ExpireDaysAhead <= 0 {
		cfg.Maintenance.ExpireDaysAhead = 1
	}
	if cfg.Maintenance.PurgeMaxAgeDays <= 0 {
		cfg.Maintenance.PurgeMaxAgeDays = 365
	}
	if cfg.Maintenance.PurgeIntervalHours <= 0 {
		cfg.Maintenance.PurgeIntervalHours = 24
	}
	cfg.Maintenance.PurgeInterval = time.Duration(cfg.Maintenance.PurgeIntervalHours) * time.Hour

	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 3600
	}

	if cfg.WorkerPool.Size <= 0 {
		log.Printf("worker_pool.size is not set or invalid; defaulting to 1")
		cfg.WorkerPool.Size = 1
	}

	return &cfg, nil
}
