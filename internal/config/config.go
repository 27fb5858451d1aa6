package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
)

// Config holds all configuration for our application
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Business  BusinessConfig  `mapstructure:"business"`
	Health    HealthConfig    `mapstructure:"health"`
}

type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	Host         string        `mapstructure:"host"`
	Env          string        `mapstructure:"env"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	CORSOrigins  []string      `mapstructure:"cors_origins"`
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	URL             string        `mapstructure:"url"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	URL      string `mapstructure:"url"`
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type CacheConfig struct {
	LoanTTL       time.Duration `mapstructure:"loan_ttl"`
	ClientNameTTL time.Duration `mapstructure:"client_name_ttl"`
}

type SchedulerConfig struct {
	OverdueDigestSpec string `mapstructure:"overdue_digest_spec"`
	Timezone          string `mapstructure:"timezone"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type BusinessConfig struct {
	DefaultCurrency         string `mapstructure:"default_currency"`
	UnidentifiedClientLabel string `mapstructure:"unidentified_client_label"`
}

type HealthConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

var defaults = map[string]any{
	"server.port":                        "8080",
	"server.host":                        "0.0.0.0",
	"server.env":                         "development",
	"server.read_timeout":                "15s",
	"server.write_timeout":               "15s",
	"server.cors_origins":                []string{"*"},
	"database.driver":                    DriverPostgres,
	"database.url":                       "",
	"database.max_open_conns":            10,
	"database.max_idle_conns":            5,
	"database.conn_max_lifetime":         "5m",
	"database.auto_migrate":              true,
	"redis.enabled":                      false,
	"redis.url":                          "",
	"redis.host":                         "localhost",
	"redis.port":                         "6379",
	"redis.password":                     "",
	"redis.db":                           0,
	"cache.loan_ttl":                     "10m",
	"cache.client_name_ttl":              "1h",
	"scheduler.overdue_digest_spec":      "0 0 6 * * *",
	"scheduler.timezone":                 "UTC",
	"logging.level":                      "info",
	"logging.format":                     "json",
	"business.default_currency":          "Pesos",
	"business.unidentified_client_label": "unidentified client",
	"health.timeout":                     "5s",
}

// Load reads configuration from .env files, environment variables and defaults.
// Environment variables use the upper-cased key with dots replaced by
// underscores, e.g. DATABASE_URL or SERVER_PORT.
func Load() (*Config, error) {
	// Don't fail if .env files don't exist
	_ = godotenv.Load(".env")
	_ = godotenv.Load("deployments/.env")

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("SERVER_PORT is required")
	}

	switch c.Database.Driver {
	case DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("DATABASE_DRIVER must be %q or %q, got %q", DriverPostgres, DriverSQLite, c.Database.Driver)
	}

	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	switch c.Business.DefaultCurrency {
	case "Pesos", "Dolar":
	default:
		return fmt.Errorf("BUSINESS_DEFAULT_CURRENCY must be Pesos or Dolar, got %q", c.Business.DefaultCurrency)
	}

	if c.Business.UnidentifiedClientLabel == "" {
		return fmt.Errorf("BUSINESS_UNIDENTIFIED_CLIENT_LABEL is required")
	}

	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	if _, err := parser.Parse(c.Scheduler.OverdueDigestSpec); err != nil {
		return fmt.Errorf("SCHEDULER_OVERDUE_DIGEST_SPEC must be a valid cron spec: %w", err)
	}

	if _, err := time.LoadLocation(c.Scheduler.Timezone); err != nil {
		return fmt.Errorf("SCHEDULER_TIMEZONE must be a valid location: %w", err)
	}

	if c.Health.Timeout <= 0 {
		return fmt.Errorf("HEALTH_TIMEOUT must be greater than 0")
	}

	return nil
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development" || c.Server.Env == "dev"
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production" || c.Server.Env == "prod"
}

// RedisAddr returns host:port of the Redis server.
func (c *Config) RedisAddr() string {
	return c.Redis.Host + ":" + c.Redis.Port
}

// SchedulerLocation returns the timezone the scheduler evaluates "today" in.
func (c *Config) SchedulerLocation() *time.Location {
	loc, err := time.LoadLocation(c.Scheduler.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
