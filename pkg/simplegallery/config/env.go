package config

import (
	"fmt"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"
)

// envConfig mirrors ServerConfig for environment loading. Its defaults
// match defaults().
type envConfig struct {
	Environment              string `env:"ENVIRONMENT" env-default:"development"`
	DatabaseURL              string `env:"DATABASE_URL" env-default:"memory"`
	DBSchema                 string `env:"DB_SCHEMA" env-default:"gallery"`
	OutputRoot               string `env:"OUTPUT_ROOT" env-default:"./data/collections"`
	URLPrefix                string `env:"URL_PREFIX" env-default:"/assets/images/collections"`
	StrictMime               bool   `env:"STRICT_MIME" env-default:"false"`
	MaxUploadBytes           int64  `env:"MAX_UPLOAD_BYTES" env-default:"26214400"`
	MaxConcurrentGenerations int    `env:"MAX_CONCURRENT_GENERATIONS" env-default:"0"`
	MaxAllocAttempts         int    `env:"MAX_ALLOC_ATTEMPTS" env-default:"5"`
	AdminAPIKeySHA256        string `env:"ADMIN_API_KEY_SHA256"`
	LogLevel                 string `env:"LOG_LEVEL" env-default:"info"`
	LogFormat                string `env:"LOG_FORMAT" env-default:"text"`
}

// WithEnv reads configuration from environment variables:
//
//	ENVIRONMENT                 development | production | testing
//	DATABASE_URL                "memory" or postgres://... / postgresql://...
//	DB_SCHEMA                   Postgres search_path (default gallery)
//	OUTPUT_ROOT                 directory holding collection folders
//	URL_PREFIX                  public path of OUTPUT_ROOT
//	STRICT_MIME                 reject declared/sniffed type mismatches
//	MAX_UPLOAD_BYTES            upload size limit (default 25 MiB)
//	MAX_CONCURRENT_GENERATIONS  0 means GOMAXPROCS
//	MAX_ALLOC_ATTEMPTS          retries after identifier conflicts
//	ADMIN_API_KEY_SHA256        SHA-256 of the admin API key
//	LOG_LEVEL, LOG_FORMAT       slog level and text | json
//
// Apply it before programmatic options that should win over the environment.
func WithEnv() Option {
	return func(c *ServerConfig) error {
		var env envConfig
		if err := cleanenv.ReadEnv(&env); err != nil {
			return fmt.Errorf("read environment: %w", err)
		}

		c.Environment = env.Environment
		if err := applyDatabaseURL(c, env.DatabaseURL); err != nil {
			return err
		}
		c.DBSchema = env.DBSchema
		c.OutputRoot = env.OutputRoot
		c.URLPrefix = env.URLPrefix
		c.StrictMime = env.StrictMime
		c.MaxUploadBytes = env.MaxUploadBytes
		if env.MaxConcurrentGenerations > 0 {
			c.MaxConcurrentGenerations = env.MaxConcurrentGenerations
		}
		c.MaxAllocAttempts = env.MaxAllocAttempts
		c.AdminAPIKeySHA256 = env.AdminAPIKeySHA256
		c.LogLevel = env.LogLevel
		c.LogFormat = env.LogFormat
		return nil
	}
}

// applyDatabaseURL auto-detects the database type from the URL.
func applyDatabaseURL(c *ServerConfig, dbURL string) error {
	switch {
	case dbURL == "" || dbURL == "memory":
		c.DatabaseType = "memory"
		c.DatabaseURL = ""
	case strings.HasPrefix(dbURL, "postgres://"), strings.HasPrefix(dbURL, "postgresql://"):
		c.DatabaseType = "postgres"
		c.DatabaseURL = dbURL
	default:
		return fmt.Errorf("unsupported DATABASE_URL format (use 'memory' or 'postgres://...')")
	}
	return nil
}
