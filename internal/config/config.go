// Package config loads process settings from the environment (optionally
// seeded from a .env file) and the desk file describing roles and routing.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// Store backends.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Config holds process-level settings.
type Config struct {
	HTTPAddr  string `env:"HTTP_ADDR" envDefault:":8080"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"console"`

	DeskFile string `env:"DESK_FILE" envDefault:"config/desk.yaml"`

	StoreBackend   string   `env:"STORE_BACKEND" envDefault:"memory"`
	RedisAddrs     []string `env:"REDIS_ADDRS" envSeparator:"," envDefault:"localhost:6379"`
	RedisPassword  string   `env:"REDIS_PASS"`
	RedisCluster   bool     `env:"REDIS_CLUSTER"`
	RedisNamespace string   `env:"REDIS_NAMESPACE" envDefault:"desk"`

	// PostgresDSN enables the Postgres vouch repository when set.
	PostgresDSN string `env:"POSTGRES_DSN"`

	WizardTimeout  time.Duration `env:"WIZARD_TIMEOUT" envDefault:"5m"`
	ConfirmTimeout time.Duration `env:"CONFIRM_TIMEOUT" envDefault:"2m"`
	SweepInterval  time.Duration `env:"WIZARD_SWEEP_INTERVAL" envDefault:"1m"`

	TranscriptDir     string `env:"TRANSCRIPT_DIR" envDefault:"transcripts"`
	TranscriptWorkers int    `env:"TRANSCRIPT_WORKERS" envDefault:"2"`
	TranscriptQueue   int    `env:"TRANSCRIPT_QUEUE_SIZE" envDefault:"100"`

	GCSBucket        string `env:"GCS_BUCKET"`
	BigQueryProject  string `env:"BQ_PROJECT"`
	BigQueryDataset  string `env:"BQ_DATASET" envDefault:"exchange"`
	NotionToken      string `env:"NOTION_TOKEN"`
	NotionDatabaseID string `env:"NOTION_EXCHANGE_LOG_DB"`
}

// Load reads an optional .env file and parses the environment into Config.
func Load(log zerolog.Logger) (Config, error) {
	if err := godotenv.Load(); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load .env: %w", err)
		}
		log.Debug().Msg("No .env file found, relying on system env vars")
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values env tags cannot express.
func (c Config) Validate() error {
	switch c.StoreBackend {
	case BackendMemory, BackendRedis:
	default:
		return fmt.Errorf("STORE_BACKEND must be %q or %q, got %q", BackendMemory, BackendRedis, c.StoreBackend)
	}
	if c.WizardTimeout <= 0 || c.ConfirmTimeout <= 0 {
		return fmt.Errorf("wizard and confirm timeouts must be positive")
	}
	if c.ConfirmTimeout > c.WizardTimeout {
		return fmt.Errorf("CONFIRM_TIMEOUT (%s) must not exceed WIZARD_TIMEOUT (%s)", c.ConfirmTimeout, c.WizardTimeout)
	}
	if c.TranscriptWorkers < 1 {
		return fmt.Errorf("TRANSCRIPT_WORKERS must be at least 1")
	}
	return nil
}
