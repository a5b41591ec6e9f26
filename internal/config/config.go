// Package config handles loading and validating the application configuration
// from YAML files with environment variable substitution.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Database      DatabaseConfig      `yaml:"database"`
	Ebay          EbayConfig          `yaml:"ebay"`
	Relist        RelistConfig        `yaml:"relist"`
	Schedule      ScheduleConfig      `yaml:"schedule"`
	Auth          AuthConfig          `yaml:"auth"`
	Notifications NotificationsConfig `yaml:"notifications"`
	Telemetry     TelemetryConfig     `yaml:"telemetry"`
	Logging       LoggingConfig       `yaml:"logging"`
}

// ServerConfig defines the Echo HTTP server settings.
type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// DatabaseConfig defines PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
	PoolSize int    `yaml:"pool_size"`
}

// DSN returns a PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		d.Host, d.Port, d.Name, d.User, d.Password, d.SSLMode,
	)
}

// EbayConfig defines eBay API settings for both protocol generations.
type EbayConfig struct {
	AppID       string          `yaml:"app_id"`
	CertID      string          `yaml:"cert_id"`
	TokenURL    string          `yaml:"token_url"`
	SellURL     string          `yaml:"sell_url"`
	TradingURL  string          `yaml:"trading_url"`
	Marketplace string          `yaml:"marketplace"`
	RateLimit   RateLimitConfig `yaml:"rate_limit"`
}

// RateLimitConfig defines eBay API rate limiting settings.
type RateLimitConfig struct {
	PerSecond  float64 `yaml:"per_second"`
	Burst      int     `yaml:"burst"`
	DailyLimit int64   `yaml:"daily_limit"`
}

// RelistConfig defines relist cycle timing.
type RelistConfig struct {
	DefaultDelay  time.Duration `yaml:"default_delay"`
	SettleDelay   time.Duration `yaml:"settle_delay"`
	LeaseTTL      time.Duration `yaml:"lease_ttl"`
	Concurrency   int           `yaml:"concurrency"`
	MaxPerCycle   int           `yaml:"max_per_cycle"`
	CycleInterval time.Duration `yaml:"cycle_interval"`
}

// ScheduleConfig defines cron intervals for the engine sweeps.
type ScheduleConfig struct {
	DueInterval    time.Duration `yaml:"due_interval"`
	ResumeInterval time.Duration `yaml:"resume_interval"`
}

// AuthConfig defines API authentication settings.
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
}

// NotificationsConfig defines notification targets.
type NotificationsConfig struct {
	Discord DiscordConfig `yaml:"discord"`
	Nats    NatsConfig    `yaml:"nats"`
}

// DiscordConfig defines Discord webhook settings.
type DiscordConfig struct {
	Enabled    bool   `yaml:"enabled"`
	WebhookURL string `yaml:"webhook_url"`
}

// NatsConfig defines NATS Streaming publish settings.
type NatsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	ClusterID string `yaml:"cluster_id"`
	ClientID  string `yaml:"client_id"`
	URL       string `yaml:"url"`
	Subject   string `yaml:"subject"`
}

// TelemetryConfig defines distributed tracing settings.
type TelemetryConfig struct {
	Enabled           bool    `yaml:"enabled"`
	CollectorEndpoint string  `yaml:"collector_endpoint"`
	SamplingRatio     float64 `yaml:"sampling_ratio"`
	Insecure          bool    `yaml:"insecure"`
}

// LoggingConfig defines logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// Load reads and parses a YAML config file, performing environment variable
// substitution and validation.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // config path from trusted CLI flag
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the YAML content.
	expanded := os.ExpandEnv(string(data))

	cfg := &Config{}
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	applyDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func applyDefaults(cfg *Config) {
	applyServerDefaults(&cfg.Server)
	applyDatabaseDefaults(&cfg.Database)
	applyEbayDefaults(&cfg.Ebay)
	applyRelistDefaults(&cfg.Relist)
	applyScheduleDefaults(&cfg.Schedule)
	applyTelemetryDefaults(&cfg.Telemetry)
	applyNatsDefaults(&cfg.Notifications.Nats)
	applyLoggingDefaults(&cfg.Logging)
}

func applyServerDefaults(s *ServerConfig) {
	if s.Host == "" {
		s.Host = "0.0.0.0"
	}
	if s.Port == 0 {
		s.Port = 8080
	}
	if s.ReadTimeout == 0 {
		s.ReadTimeout = 30 * time.Second
	}
	if s.WriteTimeout == 0 {
		s.WriteTimeout = 30 * time.Second
	}
}

func applyDatabaseDefaults(d *DatabaseConfig) {
	if d.Port == 0 {
		d.Port = 5432
	}
	if d.SSLMode == "" {
		d.SSLMode = "disable"
	}
	if d.PoolSize == 0 {
		d.PoolSize = 10
	}
}

func applyEbayDefaults(e *EbayConfig) {
	if e.TokenURL == "" {
		e.TokenURL = "https://api.ebay.com/identity/v1/oauth2/token"
	}
	if e.SellURL == "" {
		e.SellURL = "https://api.ebay.com/sell/inventory/v1"
	}
	if e.TradingURL == "" {
		e.TradingURL = "https://api.ebay.com/ws/api.dll"
	}
	if e.Marketplace == "" {
		e.Marketplace = "EBAY_US"
	}
	applyRateLimitDefaults(&e.RateLimit)
}

func applyRateLimitDefaults(r *RateLimitConfig) {
	if r.PerSecond == 0 {
		r.PerSecond = 5.0
	}
	if r.Burst == 0 {
		r.Burst = 10
	}
	if r.DailyLimit == 0 {
		r.DailyLimit = 5000
	}
}

func applyRelistDefaults(r *RelistConfig) {
	if r.DefaultDelay == 0 {
		r.DefaultDelay = 30 * time.Second
	}
	if r.SettleDelay == 0 {
		r.SettleDelay = 2 * time.Second
	}
	if r.LeaseTTL == 0 {
		r.LeaseTTL = 10 * time.Minute
	}
	if r.Concurrency == 0 {
		r.Concurrency = 4
	}
	if r.MaxPerCycle == 0 {
		r.MaxPerCycle = 50
	}
	if r.CycleInterval == 0 {
		r.CycleInterval = 24 * time.Hour
	}
}

func applyScheduleDefaults(s *ScheduleConfig) {
	if s.DueInterval == 0 {
		s.DueInterval = 5 * time.Minute
	}
	if s.ResumeInterval == 0 {
		s.ResumeInterval = 30 * time.Second
	}
}

func applyTelemetryDefaults(t *TelemetryConfig) {
	if t.SamplingRatio == 0 {
		t.SamplingRatio = 1.0
	}
}

func applyNatsDefaults(n *NatsConfig) {
	if n.Subject == "" {
		n.Subject = "relist.outcomes"
	}
	if n.ClientID == "" {
		n.ClientID = "qventory-backend"
	}
}

func applyLoggingDefaults(l *LoggingConfig) {
	if l.Level == "" {
		l.Level = "info"
	}
	if l.Format == "" {
		l.Format = "text"
	}
}

func validate(cfg *Config) error {
	var errs []error

	if cfg.Database.Host == "" {
		errs = append(errs, fmt.Errorf("database.host is required"))
	}
	if cfg.Database.Name == "" {
		errs = append(errs, fmt.Errorf("database.name is required"))
	}
	if cfg.Database.User == "" {
		errs = append(errs, fmt.Errorf("database.user is required"))
	}

	if cfg.Ebay.AppID == "" {
		errs = append(errs, fmt.Errorf("ebay.app_id is required"))
	}
	if cfg.Ebay.CertID == "" {
		errs = append(errs, fmt.Errorf("ebay.cert_id is required"))
	}

	if cfg.Auth.JWTSecret == "" {
		errs = append(errs, fmt.Errorf("auth.jwt_secret is required"))
	}

	if cfg.Notifications.Discord.Enabled && cfg.Notifications.Discord.WebhookURL == "" {
		errs = append(errs, fmt.Errorf("notifications.discord.webhook_url is required when discord is enabled"))
	}
	if cfg.Notifications.Nats.Enabled {
		if cfg.Notifications.Nats.ClusterID == "" {
			errs = append(errs, fmt.Errorf("notifications.nats.cluster_id is required when nats is enabled"))
		}
		if cfg.Notifications.Nats.URL == "" {
			errs = append(errs, fmt.Errorf("notifications.nats.url is required when nats is enabled"))
		}
	}

	if cfg.Telemetry.Enabled && cfg.Telemetry.CollectorEndpoint == "" {
		errs = append(errs, fmt.Errorf("telemetry.collector_endpoint is required when telemetry is enabled"))
	}

	return errors.Join(errs...)
}
