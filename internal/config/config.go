package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Config represents the top-level ledger.yaml configuration.
type Config struct {
	Company   CompanyConfig   `yaml:"company"`
	Database  DatabaseConfig  `yaml:"database"`
	Ledger    LedgerConfig    `yaml:"ledger"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
}

// CompanyConfig identifies the default company for CLI commands.
type CompanyConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// DatabaseConfig selects the gorm driver.
type DatabaseConfig struct {
	Driver       string `yaml:"driver"` // "sqlite" or "postgres"
	DSN          string `yaml:"dsn"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
	MaxOpenConns int    `yaml:"max_open_conns"`
}

// LedgerConfig controls posting behavior.
type LedgerConfig struct {
	EntryPrefix      string `yaml:"entry_prefix"`
	BalanceTolerance string `yaml:"balance_tolerance"`
	ConflictRetries  int    `yaml:"conflict_retries"`
}

// Tolerance parses BalanceTolerance, falling back to 0.01.
func (c LedgerConfig) Tolerance() decimal.Decimal {
	d, err := decimal.NewFromString(c.BalanceTolerance)
	if err != nil || !d.IsPositive() {
		return decimal.New(1, -2)
	}
	return d
}

// SchedulerConfig controls the recurring scheduler.
type SchedulerConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Spec     string        `yaml:"spec"` // cron expression, e.g. "@daily"
	Identity string        `yaml:"identity"`
	LockKey  string        `yaml:"lock_key"`
	LockTTL  time.Duration `yaml:"lock_ttl"`
	Redis    RedisConfig   `yaml:"redis"`
}

// RedisConfig points at the lock server. An empty Addr selects the in-process lock.
type RedisConfig struct {
	Addr     string `yaml:"addr,omitempty"`
	Password string `yaml:"password,omitempty"`
	DB       int    `yaml:"db,omitempty"`
}

// ServerConfig controls the HTTP API.
type ServerConfig struct {
	Port string `yaml:"port"`
	Mode string `yaml:"mode"` // "debug" or "release"
}

// LogConfig controls zap output.
type LogConfig struct {
	Mode string `yaml:"mode"` // "debug" for console, anything else for JSON
}

// Load reads a ledger.yaml file from disk and applies LEDGER_* environment overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg := Default("", "")
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadEnv loads .env files into the process environment. A missing default
// .env is not an error; an explicitly named file that is missing is.
func LoadEnv(paths ...string) error {
	if len(paths) == 0 {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("loading .env: %w", err)
		}
		return nil
	}
	if err := godotenv.Load(paths...); err != nil {
		return fmt.Errorf("loading env files: %w", err)
	}
	return nil
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Default returns a Config with sensible defaults for a new project.
func Default(companyID, companyName string) *Config {
	return &Config{
		Company: CompanyConfig{
			ID:   companyID,
			Name: companyName,
		},
		Database: DatabaseConfig{
			Driver:       "sqlite",
			DSN:          "ledger.db",
			MaxIdleConns: 2,
			MaxOpenConns: 10,
		},
		Ledger: LedgerConfig{
			EntryPrefix:      "JE",
			BalanceTolerance: "0.01",
			ConflictRetries:  5,
		},
		Scheduler: SchedulerConfig{
			Enabled:  true,
			Spec:     "@daily",
			Identity: "system:recurring",
			LockKey:  "ledger:recurring:process-due",
			LockTTL:  10 * time.Minute,
		},
		Server: ServerConfig{
			Port: "8080",
			Mode: "release",
		},
		Log: LogConfig{
			Mode: "production",
		},
	}
}

func applyEnv(cfg *Config) error {
	setString := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}

	setString("LEDGER_COMPANY_ID", &cfg.Company.ID)
	setString("LEDGER_DB_DRIVER", &cfg.Database.Driver)
	setString("LEDGER_DB_DSN", &cfg.Database.DSN)
	setString("LEDGER_REDIS_ADDR", &cfg.Scheduler.Redis.Addr)
	setString("LEDGER_REDIS_PASSWORD", &cfg.Scheduler.Redis.Password)
	setString("LEDGER_SERVER_PORT", &cfg.Server.Port)
	setString("LEDGER_LOG_MODE", &cfg.Log.Mode)

	if v, ok := os.LookupEnv("LEDGER_SCHEDULER_ENABLED"); ok && v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid LEDGER_SCHEDULER_ENABLED: %w", err)
		}
		cfg.Scheduler.Enabled = enabled
	}
	return nil
}
