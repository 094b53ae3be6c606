package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the process configuration, read from CHORESTAR_* environment variables.
type Config struct {
	Port      string `env:"CHORESTAR_PORT" envDefault:"8080"`
	DBPath    string `env:"CHORESTAR_DB_PATH" envDefault:"chorestar.db"`
	LogLevel  string `env:"CHORESTAR_LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"CHORESTAR_LOG_FORMAT" envDefault:"text"`
	Timezone  string `env:"CHORESTAR_TIMEZONE" envDefault:"Local"`

	// Requests per minute per client IP on mutating API routes.
	RateLimit int `env:"CHORESTAR_RATE_LIMIT" envDefault:"120"`

	S3 S3Config

	BackupPassphrase    string `env:"CHORESTAR_BACKUP_PASSPHRASE"`
	BackupHour          int    `env:"CHORESTAR_BACKUP_HOUR" envDefault:"3"`
	BackupRetentionDays int    `env:"CHORESTAR_BACKUP_RETENTION_DAYS" envDefault:"30"`

	VAPIDPublicKey  string `env:"CHORESTAR_VAPID_PUBLIC_KEY"`
	VAPIDPrivateKey string `env:"CHORESTAR_VAPID_PRIVATE_KEY"`
	PushSubscriber  string `env:"CHORESTAR_PUSH_SUBSCRIBER" envDefault:"mailto:noreply@chorestar.app"`
	ReminderHour    int    `env:"CHORESTAR_REMINDER_HOUR" envDefault:"17"`

	ShutdownTimeout time.Duration `env:"CHORESTAR_SHUTDOWN_TIMEOUT" envDefault:"5s"`
}

type S3Config struct {
	Endpoint  string `env:"CHORESTAR_S3_ENDPOINT"`
	Bucket    string `env:"CHORESTAR_S3_BUCKET"`
	Region    string `env:"CHORESTAR_S3_REGION" envDefault:"auto"`
	AccessKey string `env:"CHORESTAR_S3_ACCESS_KEY"`
	SecretKey string `env:"CHORESTAR_S3_SECRET_KEY"`
}

// Load parses the environment into a Config and validates it.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Location resolves the configured timezone. Week boundaries are computed in it.
func (c Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

func (c Config) validate() error {
	if c.BackupHour < 0 || c.BackupHour > 23 {
		return fmt.Errorf("CHORESTAR_BACKUP_HOUR must be 0-23")
	}
	if c.ReminderHour < 0 || c.ReminderHour > 23 {
		return fmt.Errorf("CHORESTAR_REMINDER_HOUR must be 0-23")
	}
	if c.RateLimit < 1 {
		return fmt.Errorf("CHORESTAR_RATE_LIMIT must be positive")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}
