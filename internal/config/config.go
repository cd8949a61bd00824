// Package config provides YAML-based configuration loading for taskcycle.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Database drivers.
const (
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
)

// Config is the top-level taskcycle configuration, loaded from taskcycle.yaml.
type Config struct {
	Database     DatabaseConfig     `yaml:"database"`
	Verification VerificationConfig `yaml:"verification"`
	Recurrence   RecurrenceConfig   `yaml:"recurrence"`
	Notify       NotifyConfig       `yaml:"notify"`
	Server       ServerConfig       `yaml:"server"`
	Worker       WorkerConfig       `yaml:"worker"`
	Directory    []DirectoryUser    `yaml:"directory"`
}

// DirectoryUser seeds the static directory for single-org deployments where
// no external identity system is wired in.
type DirectoryUser struct {
	ID        string   `yaml:"id"`
	CoreTasks []string `yaml:"core_tasks"`
	Active    bool     `yaml:"active"`
	HR        bool     `yaml:"hr"`
}

// DatabaseConfig holds connection settings for the relational store.
type DatabaseConfig struct {
	Driver   string `yaml:"driver"`
	Path     string `yaml:"path"` // sqlite only
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
}

// VerificationConfig tunes the scoring/acknowledgment cycle.
type VerificationConfig struct {
	// MaxScoringCycles bounds the number of score rounds before a task
	// association is forwarded to HR.
	MaxScoringCycles int `yaml:"max_scoring_cycles"`
}

// RecurrenceConfig tunes recurring-task materialization.
type RecurrenceConfig struct {
	// Cron is a standard 5-field expression for the daily materialization job.
	Cron string `yaml:"cron"`
	// HorizonDays caps queue expansion for recurrence rules with no COUNT or
	// UNTIL bound.
	HorizonDays int `yaml:"horizon_days"`
	// AbandonAfterDays is how long a queue row may stay skipped for lack of an
	// eligible assignee before it is marked abandoned.
	AbandonAfterDays int `yaml:"abandon_after_days"`
}

// NotifyConfig selects notification delivery channels.
type NotifyConfig struct {
	Slack   SlackConfig   `yaml:"slack"`
	Discord DiscordConfig `yaml:"discord"`
}

// SlackConfig holds Slack delivery settings.
type SlackConfig struct {
	BotToken string `yaml:"bot_token"`
	Channel  string `yaml:"channel"`
}

// DiscordConfig holds Discord delivery settings.
type DiscordConfig struct {
	Token   string `yaml:"token"`
	Channel string `yaml:"channel"`
}

// ServerConfig holds HTTP API settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// WorkerConfig holds background worker settings.
type WorkerConfig struct {
	PollIntervalSeconds int `yaml:"poll_interval_seconds"`
	LeaseTTLSeconds     int `yaml:"lease_ttl_seconds"`
}

// Load reads a YAML config file from path and returns a validated Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse unmarshals YAML bytes into a validated Config.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a Config with all defaults applied, suitable when no
// config file exists.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// applyDefaults fills in derived and default values.
func (c *Config) applyDefaults() {
	if c.Database.Driver == "" {
		c.Database.Driver = DriverSQLite
	}
	if c.Database.Path == "" {
		c.Database.Path = "taskcycle.db"
	}
	if c.Database.Host == "" {
		c.Database.Host = "127.0.0.1"
	}
	if c.Database.Port == 0 {
		c.Database.Port = 3306
	}
	if c.Database.Name == "" {
		c.Database.Name = "taskcycle"
	}
	if c.Verification.MaxScoringCycles == 0 {
		c.Verification.MaxScoringCycles = 2
	}
	if c.Recurrence.Cron == "" {
		c.Recurrence.Cron = "0 0 * * *"
	}
	if c.Recurrence.HorizonDays == 0 {
		c.Recurrence.HorizonDays = 365
	}
	if c.Recurrence.AbandonAfterDays == 0 {
		c.Recurrence.AbandonAfterDays = 7
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Worker.PollIntervalSeconds == 0 {
		c.Worker.PollIntervalSeconds = 30
	}
	if c.Worker.LeaseTTLSeconds == 0 {
		c.Worker.LeaseTTLSeconds = 300
	}
}

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	switch c.Database.Driver {
	case DriverSQLite, DriverMySQL:
	default:
		errs = append(errs, fmt.Sprintf("database.driver must be %q or %q", DriverSQLite, DriverMySQL))
	}
	if c.Database.Driver == DriverMySQL && c.Database.User == "" {
		errs = append(errs, "database.user is required for mysql")
	}
	if c.Verification.MaxScoringCycles < 1 {
		errs = append(errs, "verification.max_scoring_cycles must be at least 1")
	}
	if c.Recurrence.HorizonDays < 1 {
		errs = append(errs, "recurrence.horizon_days must be at least 1")
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
