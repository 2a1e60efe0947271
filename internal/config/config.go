// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

const envPrefix = "PADEL"

type DatabaseConfig struct {
	Driver   string `yaml:"driver"`
	Filename string `yaml:"filename"`
}

type BookingConfig struct {
	Timezone            string `yaml:"timezone"`
	DefaultSlotMinutes  int    `yaml:"default_slot_minutes"`
	AllowEndPastClosing bool   `yaml:"allow_end_past_closing"`
}

type PaymentsConfig struct {
	Currency              string `yaml:"currency"`
	GatewayTimeoutSeconds int    `yaml:"gateway_timeout_seconds"`
	PhoneRegion           string `yaml:"phone_region"`
	StripeSecretKey       string `yaml:"-"`
	StripeWebhookSecret   string `yaml:"-"`
}

type NotificationsConfig struct {
	Sender    string `yaml:"sender"`
	AWSRegion string `yaml:"aws_region"`
	AMQPURL   string `yaml:"amqp_url"`
	Exchange  string `yaml:"exchange"`
	Queue     string `yaml:"queue"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	DB       int    `yaml:"db"`
	Password string `yaml:"-"`
	LockTTL  int    `yaml:"lock_ttl_seconds"`
}

type StorageConfig struct {
	Driver   string `yaml:"driver"`
	LocalDir string `yaml:"local_dir"`
	Bucket   string `yaml:"bucket"`
	Region   string `yaml:"region"`
	Prefix   string `yaml:"prefix"`
}

type SchedulerConfig struct {
	ReservationReminderCron string `yaml:"reservation_reminder_cron"`
	PaymentReminderCron     string `yaml:"payment_reminder_cron"`
	CompletionCron          string `yaml:"completion_cron"`
}

type AuthConfig struct {
	MaxLoginAttempts   int    `yaml:"max_login_attempts"`
	LoginWindowMinutes int    `yaml:"login_window_minutes"`
	ClerkSecretKey     string `yaml:"-"`
}

type Config struct {
	App struct {
		Name                   string `yaml:"name"`
		Environment            string `yaml:"environment"`
		Port                   int    `yaml:"port"`
		BaseURL                string `yaml:"base_url"`
		LogLevel               string `yaml:"log_level"`
		ShutdownTimeoutSeconds int    `yaml:"shutdown_timeout_seconds"`
		SecretKey              string `yaml:"-"` // Loaded from environment
	} `yaml:"app"`

	Database      DatabaseConfig      `yaml:"database"`
	Booking       BookingConfig       `yaml:"booking"`
	Payments      PaymentsConfig      `yaml:"payments"`
	Notifications NotificationsConfig `yaml:"notifications"`
	Redis         RedisConfig         `yaml:"redis"`
	Storage       StorageConfig       `yaml:"storage"`
	Scheduler     SchedulerConfig     `yaml:"scheduler"`
	Auth          AuthConfig          `yaml:"auth"`

	Features struct {
		EnableScheduler bool `yaml:"enable_scheduler"`
		EnableDebug     bool `yaml:"enable_debug"`
	} `yaml:"features"`
}

// envOverlay holds deployment values and secrets read from PADEL_* variables.
// Empty values leave the YAML setting untouched.
type envOverlay struct {
	Environment         string `envconfig:"ENVIRONMENT"`
	Port                int    `envconfig:"PORT"`
	DatabaseFilename    string `envconfig:"DATABASE_FILENAME"`
	SecretKey           string `envconfig:"APP_SECRET_KEY"`
	StripeSecretKey     string `envconfig:"STRIPE_SECRET_KEY"`
	StripeWebhookSecret string `envconfig:"STRIPE_WEBHOOK_SECRET"`
	AMQPURL             string `envconfig:"AMQP_URL"`
	RedisAddr           string `envconfig:"REDIS_ADDR"`
	RedisPassword       string `envconfig:"REDIS_PASSWORD"`
	ClerkSecretKey      string `envconfig:"CLERK_SECRET_KEY"`
}

// Load loads .env, the yaml configuration and the PADEL_* environment overlay
func Load(configPath string) (*Config, error) {
	// Load .env file if it exists
	envPath := filepath.Join(filepath.Dir(configPath), ".env")
	if err := godotenv.Load(envPath); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Parse decodes yaml and fills defaults. It does not read the environment or validate.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyEnv() error {
	var env envOverlay
	if err := envconfig.Process(envPrefix, &env); err != nil {
		return fmt.Errorf("error reading environment: %w", err)
	}

	if env.Environment != "" {
		c.App.Environment = env.Environment
	}
	if env.Port != 0 {
		c.App.Port = env.Port
	}
	if env.DatabaseFilename != "" {
		c.Database.Filename = env.DatabaseFilename
	}
	if env.AMQPURL != "" {
		c.Notifications.AMQPURL = env.AMQPURL
	}
	if env.RedisAddr != "" {
		c.Redis.Addr = env.RedisAddr
	}
	c.App.SecretKey = env.SecretKey
	c.Payments.StripeSecretKey = env.StripeSecretKey
	c.Payments.StripeWebhookSecret = env.StripeWebhookSecret
	c.Redis.Password = env.RedisPassword
	c.Auth.ClerkSecretKey = env.ClerkSecretKey
	return nil
}

func (c *Config) applyDefaults() {
	if c.App.Environment == "" {
		c.App.Environment = "development"
	}
	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
	}
	if c.App.ShutdownTimeoutSeconds == 0 {
		c.App.ShutdownTimeoutSeconds = 30
	}
	if c.Booking.Timezone == "" {
		c.Booking.Timezone = "UTC"
	}
	if c.Booking.DefaultSlotMinutes == 0 {
		c.Booking.DefaultSlotMinutes = 60
	}
	if c.Payments.Currency == "" {
		c.Payments.Currency = "USD"
	}
	if c.Payments.GatewayTimeoutSeconds == 0 {
		c.Payments.GatewayTimeoutSeconds = 10
	}
	if c.Payments.PhoneRegion == "" {
		c.Payments.PhoneRegion = "VE"
	}
	if c.Notifications.Exchange == "" {
		c.Notifications.Exchange = "padelicious.notifications"
	}
	if c.Notifications.Queue == "" {
		c.Notifications.Queue = "notifications.email"
	}
	if c.Redis.LockTTL == 0 {
		c.Redis.LockTTL = 15
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "local"
	}
	if c.Storage.LocalDir == "" {
		c.Storage.LocalDir = "data/proofs"
	}
	if c.Scheduler.ReservationReminderCron == "" {
		c.Scheduler.ReservationReminderCron = "0 9 * * *"
	}
	if c.Scheduler.PaymentReminderCron == "" {
		c.Scheduler.PaymentReminderCron = "0 */4 * * *"
	}
	if c.Scheduler.CompletionCron == "" {
		c.Scheduler.CompletionCron = "*/15 * * * *"
	}
	if c.Auth.MaxLoginAttempts == 0 {
		c.Auth.MaxLoginAttempts = 5
	}
	if c.Auth.LoginWindowMinutes == 0 {
		c.Auth.LoginWindowMinutes = 15
	}
}

func (c *Config) Validate() error {
	if c.App.Name == "" {
		return fmt.Errorf("app name is required")
	}
	if c.App.Port == 0 {
		return fmt.Errorf("app port is required")
	}
	if c.Database.Driver == "" {
		return fmt.Errorf("database driver is required")
	}

	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Filename == "" {
			return fmt.Errorf("database filename is required for sqlite")
		}
	default:
		return fmt.Errorf("unsupported database driver: %s", c.Database.Driver)
	}

	if _, err := time.LoadLocation(c.Booking.Timezone); err != nil {
		return fmt.Errorf("invalid booking timezone %q: %w", c.Booking.Timezone, err)
	}
	if c.Booking.DefaultSlotMinutes < 0 {
		return fmt.Errorf("booking default_slot_minutes must be positive")
	}
	if len(c.Payments.Currency) != 3 {
		return fmt.Errorf("payments currency must be a 3-letter ISO code")
	}
	if c.Payments.GatewayTimeoutSeconds < 0 {
		return fmt.Errorf("payments gateway_timeout_seconds must be positive")
	}

	switch c.Storage.Driver {
	case "local":
		if c.Storage.LocalDir == "" {
			return fmt.Errorf("storage local_dir is required for local storage")
		}
	case "s3":
		if c.Storage.Bucket == "" {
			return fmt.Errorf("storage bucket is required for s3")
		}
	default:
		return fmt.Errorf("unsupported storage driver: %s", c.Storage.Driver)
	}

	for name, spec := range map[string]string{
		"reservation_reminder_cron": c.Scheduler.ReservationReminderCron,
		"payment_reminder_cron":     c.Scheduler.PaymentReminderCron,
		"completion_cron":           c.Scheduler.CompletionCron,
	} {
		if _, err := cron.ParseStandard(spec); err != nil {
			return fmt.Errorf("scheduler %s %q: %w", name, spec, err)
		}
	}

	return nil
}

func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.App.Environment, "development")
}

func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.App.ShutdownTimeoutSeconds) * time.Second
}

func (c *Config) GatewayTimeout() time.Duration {
	return time.Duration(c.Payments.GatewayTimeoutSeconds) * time.Second
}

func (c *Config) DefaultSlot() time.Duration {
	return time.Duration(c.Booking.DefaultSlotMinutes) * time.Minute
}

func (c *Config) LoginWindow() time.Duration {
	return time.Duration(c.Auth.LoginWindowMinutes) * time.Minute
}

func (c *Config) LockTTL() time.Duration {
	return time.Duration(c.Redis.LockTTL) * time.Second
}

// Location returns the club's timezone. Validate has already checked it loads.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Booking.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
