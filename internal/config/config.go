// Package config loads the server configuration from the environment.
//
// An optional .env file in the working directory is loaded first (values
// already present in the environment win), then the environment is parsed
// into Config. The result is passed explicitly to everything that needs it;
// nothing else reads environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

// Store drivers.
const (
	DriverSQLite = "sqlite"
	DriverMongo  = "mongo"
)

// Image store backends.
const (
	ImageStoreDisk  = "disk"
	ImageStoreMinio = "minio"
)

// MinJWTSecretLength matches auth.MinSecretLength.
const MinJWTSecretLength = 16

// Config holds every setting the server reads at startup.
type Config struct {
	Port      int    `env:"PORT" envDefault:"3060"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`

	// JWTSecret signs every bearer token. Required.
	JWTSecret string `env:"JWT_SECRET"`

	StoreDriver string `env:"STORE_DRIVER" envDefault:"sqlite"`
	DBPath      string `env:"DB_PATH" envDefault:"data/secondchance.db"`
	MongoURL    string `env:"MONGO_URL"`
	MongoDB     string `env:"MONGO_DB" envDefault:"secondChance"`

	ImageStore     string `env:"IMAGE_STORE" envDefault:"disk"`
	ImageDir       string `env:"IMAGE_DIR" envDefault:"public/images"`
	MinioEndpoint  string `env:"MINIO_ENDPOINT"`
	MinioAccessKey string `env:"MINIO_ACCESS_KEY"`
	MinioSecretKey string `env:"MINIO_SECRET_KEY"`
	MinioBucket    string `env:"MINIO_BUCKET" envDefault:"secondchance-images"`
	MinioUseSSL    bool   `env:"MINIO_USE_SSL"`

	MaxUploadBytes     int64         `env:"MAX_UPLOAD_BYTES" envDefault:"10485760"`
	CORSAllowedOrigins []string      `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`
	ShutdownTimeout    time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`
}

// Load reads .env (if present) and the process environment, then validates
// the result.
func Load() (*Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("config: loading .env: %w", err)
		}
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: parsing environment: %w", err)
	}

	cfg.StoreDriver = strings.ToLower(strings.TrimSpace(cfg.StoreDriver))
	cfg.ImageStore = strings.ToLower(strings.TrimSpace(cfg.ImageStore))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every problem at once so a misconfigured deploy can be
// fixed in one pass.
func (c *Config) Validate() error {
	var errs []error

	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT %d out of range", c.Port))
	}
	if len(c.JWTSecret) < MinJWTSecretLength {
		errs = append(errs, fmt.Errorf("JWT_SECRET must be set and at least %d characters", MinJWTSecretLength))
	}

	switch c.StoreDriver {
	case DriverSQLite:
		if c.DBPath == "" {
			errs = append(errs, errors.New("DB_PATH is required for the sqlite driver"))
		}
	case DriverMongo:
		if c.MongoURL == "" {
			errs = append(errs, errors.New("MONGO_URL is required for the mongo driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("STORE_DRIVER %q is not one of sqlite, mongo", c.StoreDriver))
	}

	switch c.ImageStore {
	case ImageStoreDisk:
		if c.ImageDir == "" {
			errs = append(errs, errors.New("IMAGE_DIR is required for the disk image store"))
		}
	case ImageStoreMinio:
		if c.MinioEndpoint == "" || c.MinioAccessKey == "" || c.MinioSecretKey == "" || c.MinioBucket == "" {
			errs = append(errs, errors.New("MINIO_ENDPOINT, MINIO_ACCESS_KEY, MINIO_SECRET_KEY and MINIO_BUCKET are required for the minio image store"))
		}
	default:
		errs = append(errs, fmt.Errorf("IMAGE_STORE %q is not one of disk, minio", c.ImageStore))
	}

	if c.MaxUploadBytes <= 0 {
		errs = append(errs, errors.New("MAX_UPLOAD_BYTES must be positive"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}
