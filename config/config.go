package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Storage backends for ledger snapshots.
const (
	StoragePostgres = "postgres"
	StorageFile     = "file"
	StorageR2       = "r2"
	StorageDynamo   = "dynamo"
)

type R2 struct {
	AccountID       string `env:"CLOUDFLARE_ACCOUNT_ID"`
	AccessKeyID     string `env:"R2_ACCESS_KEY_ID"`
	AccessKeySecret string `env:"R2_ACCESS_KEY_SECRET"`
	Bucket          string `env:"R2_BUCKET_NAME"`
}

type Dynamo struct {
	Region   string `env:"AWS_REGION" envDefault:"us-east-2"`
	Table    string `env:"DYNAMO_TABLE"`
	Endpoint string `env:"DYNAMO_ENDPOINT"`
}

type Config struct {
	Port           string   `env:"PORT" envDefault:"5200"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envDefault:"http://localhost:3000" envSeparator:","`
	GatewayToken   string   `env:"CAMPAIGN_SERVICE_TOKEN,required,notEmpty"`
	Debug          bool     `env:"LOG_DEBUG" envDefault:"false"`

	Storage     string `env:"STORAGE_BACKEND" envDefault:"file"`
	DataDir     string `env:"DATA_DIR" envDefault:"./data"`
	DatabaseURL string `env:"DATABASE_URL"`
	R2          R2
	Dynamo      Dynamo

	KafkaBrokers string `env:"KAFKA_BROKERS"`
	KafkaTopic   string `env:"KAFKA_TOPIC_PROGRESS" envDefault:"airdrop-progress-events"`

	ProfileServiceURL   string `env:"PROFILE_SERVICE_URL"`
	ProfileServiceToken string `env:"PROFILE_SERVICE_TOKEN"`

	SpinTimezone      string        `env:"SPIN_TIMEZONE" envDefault:"UTC"`
	RevealDelay       time.Duration `env:"SPIN_REVEAL_DELAY" envDefault:"3s"`
	ReconcileInterval time.Duration `env:"RECONCILE_INTERVAL" envDefault:"5m"`
	CatalogFile       string        `env:"TASK_CATALOG_FILE"`
}

// Load reads .env (if any) and the process environment.
func Load() (Config, bool, error) {
	dotenv := godotenv.Load() == nil

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return cfg, dotenv, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, dotenv, err
	}
	return cfg, dotenv, nil
}

// Validate checks the combinations env tags cannot express.
func (c Config) Validate() error {
	switch c.Storage {
	case StorageFile:
		if c.DataDir == "" {
			return fmt.Errorf("DATA_DIR is required for the file backend")
		}
	case StoragePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres backend")
		}
	case StorageR2:
		if c.R2.AccountID == "" || c.R2.Bucket == "" {
			return fmt.Errorf("CLOUDFLARE_ACCOUNT_ID and R2_BUCKET_NAME are required for the r2 backend")
		}
	case StorageDynamo:
		if c.Dynamo.Table == "" {
			return fmt.Errorf("DYNAMO_TABLE is required for the dynamo backend")
		}
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND %q", c.Storage)
	}
	if c.RevealDelay < 0 {
		return fmt.Errorf("SPIN_REVEAL_DELAY must not be negative")
	}
	if c.ReconcileInterval < time.Second {
		return fmt.Errorf("RECONCILE_INTERVAL must be at least 1s")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves SPIN_TIMEZONE.
func (c Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.SpinTimezone)
	if err != nil {
		return nil, fmt.Errorf("invalid SPIN_TIMEZONE %q: %w", c.SpinTimezone, err)
	}
	return loc, nil
}
