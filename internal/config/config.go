package config

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds all configuration for our application
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Sweep    SweepConfig    `mapstructure:"sweep"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Billing  BillingConfig  `mapstructure:"billing"`
	Push     PushConfig     `mapstructure:"push"`
	Health   HealthConfig   `mapstructure:"health"`
}

type ServerConfig struct {
	Port         string        `mapstructure:"SERVER_PORT"`
	Host         string        `mapstructure:"SERVER_HOST"`
	Env          string        `mapstructure:"ENV"`
	ReadTimeout  time.Duration `mapstructure:"SERVER_READ_TIMEOUT"`
	WriteTimeout time.Duration `mapstructure:"SERVER_WRITE_TIMEOUT"`
}

type DatabaseConfig struct {
	URL             string        `mapstructure:"DATABASE_URL"`
	MaxOpenConns    int           `mapstructure:"DATABASE_MAX_OPEN_CONNS"`
	MaxIdleConns    int           `mapstructure:"DATABASE_MAX_IDLE_CONNS"`
	ConnMaxLifetime time.Duration `mapstructure:"DATABASE_CONN_MAX_LIFETIME"`
}

type RedisConfig struct {
	Host     string `mapstructure:"REDIS_HOST"`
	Port     string `mapstructure:"REDIS_PORT"`
	Password string `mapstructure:"REDIS_PASSWORD"`
	DB       int    `mapstructure:"REDIS_DB"`
}

// SweepConfig controls the periodic re-evaluation cadence.
type SweepConfig struct {
	PendingInterval  string `mapstructure:"SWEEP_PENDING_INTERVAL"`
	ReminderInterval string `mapstructure:"SWEEP_REMINDER_INTERVAL"`
	PendingCron      string `mapstructure:"SWEEP_PENDING_CRON"`
	ReminderCron     string `mapstructure:"SWEEP_REMINDER_CRON"`
	JanitorCron      string `mapstructure:"SWEEP_JANITOR_CRON"`
	Timezone         string `mapstructure:"SWEEP_TIMEZONE"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"LOG_LEVEL"`
	Pretty bool   `mapstructure:"LOG_PRETTY"`
}

// BillingConfig holds the business thresholds of the due-date and
// notification pipeline.
type BillingConfig struct {
	PendingAgeThreshold  string `mapstructure:"PENDING_AGE_THRESHOLD"`
	RateGuardWindow      string `mapstructure:"RATE_GUARD_WINDOW"`
	DefaultWeeklyAmount  string `mapstructure:"DEFAULT_WEEKLY_AMOUNT"`
	DefaultMonthlyAmount string `mapstructure:"DEFAULT_MONTHLY_AMOUNT"`
}

// PushConfig points at the managed push platform's token endpoint.
type PushConfig struct {
	APIURL  string `mapstructure:"PUSH_API_URL"`
	Timeout string `mapstructure:"PUSH_API_TIMEOUT"`
}

type HealthConfig struct {
	Timeout string `mapstructure:"HEALTH_CHECK_TIMEOUT"`
}

// Load reads configuration from environment variables and files
func Load() (*Config, error) {
	// Set defaults
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("SERVER_HOST", "0.0.0.0")
	viper.SetDefault("ENV", "development")
	viper.SetDefault("SERVER_READ_TIMEOUT", "10s")
	viper.SetDefault("SERVER_WRITE_TIMEOUT", "10s")
	viper.SetDefault("DATABASE_MAX_OPEN_CONNS", 25)
	viper.SetDefault("DATABASE_MAX_IDLE_CONNS", 5)
	viper.SetDefault("DATABASE_CONN_MAX_LIFETIME", "5m")
	viper.SetDefault("REDIS_HOST", "localhost")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("LOG_PRETTY", false)
	viper.SetDefault("SWEEP_PENDING_INTERVAL", "10m")
	viper.SetDefault("SWEEP_REMINDER_INTERVAL", "5h")
	viper.SetDefault("SWEEP_PENDING_CRON", "0 */10 * * * *")
	viper.SetDefault("SWEEP_REMINDER_CRON", "0 0 */5 * * *")
	viper.SetDefault("SWEEP_JANITOR_CRON", "0 0 0 * * *")
	viper.SetDefault("SWEEP_TIMEZONE", "America/Sao_Paulo")
	viper.SetDefault("PENDING_AGE_THRESHOLD", "1m")
	viper.SetDefault("RATE_GUARD_WINDOW", "5m")
	viper.SetDefault("DEFAULT_WEEKLY_AMOUNT", "250.00")
	viper.SetDefault("DEFAULT_MONTHLY_AMOUNT", "1000.00")
	viper.SetDefault("PUSH_API_URL", "")
	viper.SetDefault("PUSH_API_TIMEOUT", "15s")
	viper.SetDefault("HEALTH_CHECK_TIMEOUT", "5s")

	// Read from environment variables
	viper.AutomaticEnv()

	// Try to read from .env file (optional)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./deployments")

	// Don't fail if .env file doesn't exist
	_ = viper.ReadInConfig()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Validate configuration
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

	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	for name, value := range map[string]string{
		"SWEEP_PENDING_INTERVAL":  c.Sweep.PendingInterval,
		"SWEEP_REMINDER_INTERVAL": c.Sweep.ReminderInterval,
		"PENDING_AGE_THRESHOLD":   c.Billing.PendingAgeThreshold,
		"RATE_GUARD_WINDOW":       c.Billing.RateGuardWindow,
		"PUSH_API_TIMEOUT":        c.Push.Timeout,
		"HEALTH_CHECK_TIMEOUT":    c.Health.Timeout,
	} {
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("%s must be a valid duration: %w", name, err)
		}
	}

	for name, value := range map[string]string{
		"DEFAULT_WEEKLY_AMOUNT":  c.Billing.DefaultWeeklyAmount,
		"DEFAULT_MONTHLY_AMOUNT": c.Billing.DefaultMonthlyAmount,
	} {
		if _, err := decimal.NewFromString(value); err != nil {
			return fmt.Errorf("%s must be a valid decimal: %w", name, err)
		}
	}

	if _, err := time.LoadLocation(c.Sweep.Timezone); err != nil {
		return fmt.Errorf("SWEEP_TIMEZONE must be a valid IANA zone: %w", err)
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

// GetPendingInterval returns the pending-payment sweep interval
func (c *Config) GetPendingInterval() time.Duration {
	d, _ := time.ParseDuration(c.Sweep.PendingInterval)
	return d
}

// GetReminderInterval returns the due-reminder sweep interval
func (c *Config) GetReminderInterval() time.Duration {
	d, _ := time.ParseDuration(c.Sweep.ReminderInterval)
	return d
}

// GetPendingAgeThreshold returns the minimum age before a pending payment
// triggers a nudge
func (c *Config) GetPendingAgeThreshold() time.Duration {
	d, _ := time.ParseDuration(c.Billing.PendingAgeThreshold)
	return d
}

// GetRateGuardWindow returns the minimum gap between pending-payment
// dispatches
func (c *Config) GetRateGuardWindow() time.Duration {
	d, _ := time.ParseDuration(c.Billing.RateGuardWindow)
	return d
}

// GetDefaultWeeklyAmount returns the fallback weekly amount as decimal
func (c *Config) GetDefaultWeeklyAmount() decimal.Decimal {
	amount, _ := decimal.NewFromString(c.Billing.DefaultWeeklyAmount)
	return amount
}

// GetDefaultMonthlyAmount returns the fallback monthly amount as decimal
func (c *Config) GetDefaultMonthlyAmount() decimal.Decimal {
	amount, _ := decimal.NewFromString(c.Billing.DefaultMonthlyAmount)
	return amount
}

// GetPushTimeout returns the push platform request timeout as duration
func (c *Config) GetPushTimeout() time.Duration {
	timeout, _ := time.ParseDuration(c.Push.Timeout)
	return timeout
}

// GetHealthTimeout returns the health check timeout as duration
func (c *Config) GetHealthTimeout() time.Duration {
	timeout, _ := time.ParseDuration(c.Health.Timeout)
	return timeout
}

// GetLocation returns the sweep timezone
func (c *Config) GetLocation() *time.Location {
	loc, _ := time.LoadLocation(c.Sweep.Timezone)
	return loc
}
