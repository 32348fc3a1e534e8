/*
Package config loads service settings.

SOURCES (later wins):
  1. Defaults below
  2. Optional YAML file (--config, or ./hedge.yaml)
  3. .env file loaded into the environment (godotenv)
  4. Environment variables with the HEDGE_ prefix (HEDGE_DB_PATH, ...)
  5. Command-line flags bound by cmd/server

KEYS:
  port             HTTP port                          8080
  db_path          SQLite file, ":memory:" for none   ./hedge.db
  log_level        debug, info, warn, error           info
  log_format       text, json                         text
  redis_addr       host:port, empty for in-process    ""
  cache_ttl        portfolio summary TTL              5m
  expiry_schedule  cron expression for expiry sweeps  @hourly
  cors_origins     comma separated                    http://localhost:5173
  default_markup   CLP added to the all-in rate       1
*/
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

const EnvPrefix = "HEDGE"

type Config struct {
	Port           int
	DBPath         string
	LogLevel       string
	LogFormat      string
	RedisAddr      string
	CacheTTL       time.Duration
	ExpirySchedule string
	CORSOrigins    []string
	DefaultMarkup  decimal.Decimal
}

// New returns a viper instance with defaults and environment binding.
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault("port", 8080)
	v.SetDefault("db_path", "./hedge.db")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("redis_addr", "")
	v.SetDefault("cache_ttl", "5m")
	v.SetDefault("expiry_schedule", "@hourly")
	v.SetDefault("cors_origins", "http://localhost:5173,http://localhost:8080")
	v.SetDefault("default_markup", "1")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

// LoadDotEnv loads .env files into the process environment. Missing files
// are skipped; variables already set are kept.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// Load reads configFile (or ./hedge.yaml when empty and present) into v
// and returns the resolved configuration.
func Load(v *viper.Viper, configFile string) (Config, error) {
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("hedge")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("failed to read config: %w", err)
		}
	}
	return FromViper(v)
}

// FromViper resolves and validates the settings held by v.
func FromViper(v *viper.Viper) (Config, error) {
	markup, err := decimal.NewFromString(strings.TrimSpace(v.GetString("default_markup")))
	if err != nil {
		return Config{}, fmt.Errorf("default_markup: %w", err)
	}

	c := Config{
		Port:           v.GetInt("port"),
		DBPath:         v.GetString("db_path"),
		LogLevel:       strings.ToLower(v.GetString("log_level")),
		LogFormat:      strings.ToLower(v.GetString("log_format")),
		RedisAddr:      v.GetString("redis_addr"),
		CacheTTL:       v.GetDuration("cache_ttl"),
		ExpirySchedule: v.GetString("expiry_schedule"),
		CORSOrigins:    splitList(v.GetString("cors_origins")),
		DefaultMarkup:  markup,
	}
	return c, c.Validate()
}

func (c Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if c.DBPath == "" {
		return errors.New("db_path is required")
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("log_format must be text or json, got %q", c.LogFormat)
	}
	if c.CacheTTL < 0 {
		return fmt.Errorf("cache_ttl cannot be negative")
	}
	if _, err := cron.ParseStandard(c.ExpirySchedule); err != nil {
		return fmt.Errorf("expiry_schedule: %w", err)
	}
	if c.DefaultMarkup.IsNegative() {
		return fmt.Errorf("default_markup cannot be negative")
	}
	return nil
}

// Logger builds the process logger.
func (c Config) Logger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	if c.LogFormat == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	return logger
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
