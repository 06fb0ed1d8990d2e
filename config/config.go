package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"
	_ "time/tzdata" // booking.timezone must load on images without zoneinfo

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Booking    BookingConfig    `yaml:"booking"`
	Watcher    WatcherConfig    `yaml:"watcher"`
	Push       PushConfig       `yaml:"push"`
	WorkerPool WorkerPoolConfig `yaml:"worker_pool"`
	Auth       AuthConfig       `yaml:"auth"`
	Events     EventsConfig     `yaml:"events"`
	Metrics    MetricsConfig    `yaml:"metrics"`
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
	Port                   int     `yaml:"port"`
	RequestIPHeader        string  `yaml:"request_ip_header"`
	RateLimitPerSec        float64 `yaml:"rate_limit_per_sec"`
	RateLimitBurst         int     `yaml:"rate_limit_burst"`
	CacheTTLSeconds        int     `yaml:"cache_ttl_seconds"`
	ShutdownTimeoutSeconds int     `yaml:"shutdown_timeout_seconds"`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	Driver                 string `yaml:"driver"` // postgres or sqlite
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
	EnableSlotIndex        bool   `yaml:"enable_slot_index"`
}

// BookingConfig holds the booking rules and the slot catalogs.
type BookingConfig struct {
	Timezone         string                  `yaml:"timezone"`
	Location         *time.Location          `yaml:"-"`
	EnforceSlotGuard bool                    `yaml:"enforce_slot_guard"`
	Grounds          map[string]GroundConfig `yaml:"grounds"`
	Payment          PaymentConfig           `yaml:"payment"`
}

// GroundConfig overrides the slot catalog of one ground.
type GroundConfig struct {
	Slots   []string `yaml:"slots"`
	FullDay string   `yaml:"full_day"`
}

// PaymentConfig describes the UPI payee shown to users.
type PaymentConfig struct {
	UPIID        string `yaml:"upi_id"`
	MerchantName string `yaml:"merchant_name"`
	AmountPaise  int    `yaml:"amount_paise"`
}

// WatcherConfig holds the pending-booking watcher configuration.
type WatcherConfig struct {
	Enabled         bool          `yaml:"enabled"`
	IntervalSeconds int           `yaml:"interval_seconds"`
	Interval        time.Duration `yaml:"-"` // Ignored by YAML parser
	NotifyExisting  bool          `yaml:"notify_existing"`
}

// AuthConfig holds the settings used to verify bearer tokens.
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
	Issuer    string `yaml:"issuer"`
}

// EventsConfig holds the broker the booking change feed is published to.
type EventsConfig struct {
	AMQPURL  string `yaml:"amqp_url"`
	Exchange string `yaml:"exchange"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// envOverrides lists the values deployments set through GROUND_* variables.
type envOverrides struct {
	Port            int    `envconfig:"PORT"`
	DatabaseDSN     string `envconfig:"DATABASE_DSN"`
	JWTSecret       string `envconfig:"JWT_SECRET"`
	VAPIDPublicKey  string `envconfig:"VAPID_PUBLIC_KEY"`
	VAPIDPrivateKey string `envconfig:"VAPID_PRIVATE_KEY"`
	AMQPURL         string `envconfig:"AMQP_URL"`
}

// Load reads the configuration from the given path, then applies a .env file
// (when present) and GROUND_* environment overrides.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	// Defaults for booleans that are true unless the file turns them off.
	cfg := Config{Booking: BookingConfig{EnforceSlotGuard: true}}
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) error {
	var env envOverrides
	if err := envconfig.Process("ground", &env); err != nil {
		return fmt.Errorf("failed to read environment overrides: %w", err)
	}
	if env.Port > 0 {
		cfg.Server.Port = env.Port
	}
	if env.DatabaseDSN != "" {
		cfg.Database.DSN = env.DatabaseDSN
	}
	if env.JWTSecret != "" {
		cfg.Auth.JWTSecret = env.JWTSecret
	}
	if env.VAPIDPublicKey != "" {
		cfg.Push.PublicKey = env.VAPIDPublicKey
	}
	if env.VAPIDPrivateKey != "" {
		cfg.Push.PrivateKey = env.VAPIDPrivateKey
	}
	if env.AMQPURL != "" {
		cfg.Events.AMQPURL = env.AMQPURL
	}
	return nil
}

func (cfg *Config) applyDefaults() error {
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
		cfg.Server.CacheTTLSeconds = 30
	}
	if cfg.Server.ShutdownTimeoutSeconds <= 0 {
		cfg.Server.ShutdownTimeoutSeconds = 5
	}

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "postgres"
	}

	if cfg.Booking.Timezone == "" {
		cfg.Booking.Timezone = "Asia/Kolkata"
	}
	loc, err := time.LoadLocation(cfg.Booking.Timezone)
	if err != nil {
		return fmt.Errorf("failed to load timezone %q: %w", cfg.Booking.Timezone, err)
	}
	cfg.Booking.Location = loc

	if cfg.Booking.Payment.UPIID == "" {
		cfg.Booking.Payment.UPIID = "groundbooking@ybl"
	}
	if cfg.Booking.Payment.MerchantName == "" {
		cfg.Booking.Payment.MerchantName = "Ground Booking App"
	}
	if cfg.Booking.Payment.AmountPaise <= 0 {
		cfg.Booking.Payment.AmountPaise = 25000
	}

	if cfg.Watcher.IntervalSeconds <= 0 {
		cfg.Watcher.IntervalSeconds = 15
	}
	cfg.Watcher.Interval = time.Duration(cfg.Watcher.IntervalSeconds) * time.Second

	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 3600
	}

	if cfg.WorkerPool.Size <= 0 {
		log.Printf("worker_pool.size is not set or invalid; defaulting to 1")
		cfg.WorkerPool.Size = 1
	}

	if cfg.Events.Exchange == "" {
		cfg.Events.Exchange = "ground.bookings"
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
	return nil
}
