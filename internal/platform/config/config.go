// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package config handles application-wide settings and environment parsing.

It leverages 'caarlos0/env' to map OS environment variables into a strongly-typed
Go struct. An optional .env file is loaded first through 'joho/godotenv' so local
runs need no exported variables; real environment variables always win.

Usage:

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal(err)
	}

Once loaded, configuration is read-only and passed to components via constructors.
*/
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// # Backend Selection

const (
	// BackendPostgres stores rows in PostgreSQL and identity in Redis.
	BackendPostgres = "postgres"
	// BackendMemory keeps everything in process. Used for demos and tests.
	BackendMemory = "memory"
)

const (
	StorageS3     = "s3"
	StorageLocal  = "local"
	StorageMemory = "memory"
)

// # Configuration Schema

// Config holds all runtime configuration for the nursery site.
type Config struct {

	// Server settings
	ServerPort  string `env:"SERVER_PORT"  envDefault:"8080"`
	Environment string `env:"ENVIRONMENT"  envDefault:"development"`
	Debug       bool   `env:"DEBUG"        envDefault:"false"`

	// PublicURL is the externally visible origin, used to build password reset links.
	PublicURL string `env:"PUBLIC_URL" envDefault:"http://localhost:8080"`

	// Backend selects the data and identity implementation.
	Backend string `env:"BACKEND" envDefault:"postgres"`

	// Relational Database (PostgreSQL)
	DatabaseURL string `env:"DATABASE_URL"`

	// MigrationPath is the filesystem path to the SQL migrations directory.
	MigrationPath string `env:"MIGRATION_PATH" envDefault:"./data/migrations"`

	// Key-Value Store (Redis): sessions, reset tokens, change events, form locks.
	RedisURL string `env:"REDIS_URL"`

	// Session signing and lifetime
	SessionSecret       string        `env:"SESSION_SECRET,required"`
	SessionTTL          time.Duration `env:"SESSION_TTL"           envDefault:"12h"`
	SessionCheckTimeout time.Duration `env:"SESSION_CHECK_TIMEOUT" envDefault:"5s"`
	CookieSecure        bool          `env:"COOKIE_SECURE"         envDefault:"false"`

	// Seed admin for BACKEND=memory. PostgreSQL deployments use cmd/admin instead.
	SeedAdminEmail    string `env:"SEED_ADMIN_EMAIL"`
	SeedAdminPassword string `env:"SEED_ADMIN_PASSWORD"`

	// BackendTimeout bounds every single remote data or storage call.
	BackendTimeout time.Duration `env:"BACKEND_TIMEOUT" envDefault:"10s"`

	// Object Storage (S3-compatible, local directory, or in memory)
	StorageDriver    string `env:"STORAGE_DRIVER"     envDefault:"local"`
	StorageBucket    string `env:"STORAGE_BUCKET"     envDefault:"plants"`
	StorageLocalPath string `env:"STORAGE_LOCAL_PATH" envDefault:"./data/storage"`
	StoragePublicURL string `env:"STORAGE_PUBLIC_URL" envDefault:"/storage"`
	S3Region         string `env:"S3_REGION"          envDefault:"auto"`
	S3Endpoint       string `env:"S3_ENDPOINT"`
	S3AccessKey      string `env:"S3_ACCESS_KEY"`
	S3SecretKey      string `env:"S3_SECRET_KEY"`
	UploadMaxBytes   int64  `env:"UPLOAD_MAX_BYTES"   envDefault:"5242880"`

	// Log file rotation. Stdout is always written.
	LogFile        string `env:"LOG_FILE"`
	LogMaxSizeMB   int    `env:"LOG_MAX_SIZE_MB"   envDefault:"100"`
	LogMaxBackups  int    `env:"LOG_MAX_BACKUPS"   envDefault:"5"`
	LogMaxAgeDays  int    `env:"LOG_MAX_AGE_DAYS"  envDefault:"30"`
	LogCompression bool   `env:"LOG_COMPRESS"      envDefault:"true"`
}

// # Configuration Loading

// Load reads an optional .env file and parses environment variables into a [Config].
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}

	// A missing .env is normal outside development.
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: failed to read env file: %w", err)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks cross-field requirements that struct tags cannot express.
func (c *Config) Validate() error {
	var problems []string

	switch c.Backend {
	case BackendPostgres:
		if c.DatabaseURL == "" {
			problems = append(problems, "DATABASE_URL is required when BACKEND=postgres")
		}
		if c.RedisURL == "" {
			problems = append(problems, "REDIS_URL is required when BACKEND=postgres")
		}
	case BackendMemory:
	default:
		problems = append(problems, fmt.Sprintf("BACKEND must be %q or %q", BackendPostgres, BackendMemory))
	}

	switch c.StorageDriver {
	case StorageS3:
		if c.S3Endpoint == "" && c.S3Region == "auto" {
			problems = append(problems, "S3_ENDPOINT or a concrete S3_REGION is required when STORAGE_DRIVER=s3")
		}
	case StorageLocal, StorageMemory:
	default:
		problems = append(problems, fmt.Sprintf("STORAGE_DRIVER must be %q, %q or %q", StorageS3, StorageLocal, StorageMemory))
	}

	if len(c.SessionSecret) < 32 {
		problems = append(problems, "SESSION_SECRET must be at least 32 bytes")
	}

	if len(problems) > 0 {
		return fmt.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// IsDevelopment reports whether the server is running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction reports whether the server is running in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
