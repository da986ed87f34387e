package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/pelletier/go-toml/v2"

	"worklog/backend/internal/model"
)

// PathEnv names the optional TOML config file.
const PathEnv = "WORKLOG_CONFIG"

const maxWorkNormMinutes = 24 * 60

type Config struct {
	Port            string   `toml:"port" env:"PORT"`
	DBPath          string   `toml:"db_path" env:"WORKLOG_DB_PATH"`
	LockPath        string   `toml:"lock_path" env:"WORKLOG_LOCK_PATH"`
	WorkNormMinutes int      `toml:"work_norm_minutes" env:"WORKLOG_WORK_NORM_MINUTES"`
	Timezone        string   `toml:"timezone" env:"WORKLOG_TIMEZONE"`
	JWTSecret       string   `toml:"jwt_secret" env:"WORKLOG_JWT_SECRET"`
	TokenTTLHours   int      `toml:"token_ttl_hours" env:"WORKLOG_TOKEN_TTL_HOURS"`
	PasswordHash    string   `toml:"password_hash" env:"WORKLOG_PASSWORD_HASH"`
	CORSOrigins     []string `toml:"cors_origins" env:"WORKLOG_CORS_ORIGINS" envSeparator:","`
	LogLevel        string   `toml:"log_level" env:"WORKLOG_LOG_LEVEL"`
	LogFormat       string   `toml:"log_format" env:"WORKLOG_LOG_FORMAT"`
}

func Default() Config {
	return Config{
		Port:            "8080",
		DBPath:          "./data/worklog.db",
		WorkNormMinutes: model.DefaultWorkNormMinutes,
		JWTSecret:       "change-this-secret",
		TokenTTLHours:   72,
		CORSOrigins:     []string{"http://localhost:5173", "http://127.0.0.1:5173"},
		LogLevel:        "info",
		LogFormat:       "text",
	}
}

// Load reads defaults, then the file named by WORKLOG_CONFIG, then the environment.
func Load() (Config, error) {
	return LoadFile(os.Getenv(PathEnv))
}

// LoadFile is Load with an explicit config file path. An empty path skips the file.
func LoadFile(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		file, err := os.Open(path)
		if err != nil {
			return Config{}, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()
		if err := toml.NewDecoder(file).Decode(&cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	cfg.CORSOrigins = trimList(cfg.CORSOrigins)
	if cfg.LockPath == "" {
		cfg.LockPath = cfg.DBPath + ".lock"
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.DBPath) == "" {
		errs = append(errs, errors.New("db_path is required"))
	}
	if c.WorkNormMinutes < 1 || c.WorkNormMinutes > maxWorkNormMinutes {
		errs = append(errs, fmt.Errorf("work_norm_minutes must be between 1 and %d, got %d", maxWorkNormMinutes, c.WorkNormMinutes))
	}
	if c.TokenTTLHours <= 0 {
		errs = append(errs, fmt.Errorf("token_ttl_hours must be positive, got %d", c.TokenTTLHours))
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, err)
	}
	switch strings.ToLower(c.LogFormat) {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log_format must be text or json, got %q", c.LogFormat))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// Location resolves Timezone; empty means the local zone.
func (c Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

func (c Config) TokenTTL() time.Duration {
	return time.Duration(c.TokenTTLHours) * time.Hour
}

func trimList(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
