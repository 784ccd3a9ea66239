package config

import (
	"fmt"

	"github.com/tendant/simple-gallery/pkg/simplegallery"
)

// WithEnvironment sets the environment (development, production, testing)
func WithEnvironment(env string) Option {
	return func(c *ServerConfig) error {
		if env == "" {
			return fmt.Errorf("environment cannot be empty")
		}
		c.Environment = env
		return nil
	}
}

// WithDatabase configures the database backend
func WithDatabase(dbType, url string) Option {
	return func(c *ServerConfig) error {
		if dbType != "memory" && dbType != "postgres" {
			return fmt.Errorf("database type must be 'memory' or 'postgres', got: %s", dbType)
		}
		if dbType == "postgres" && url == "" {
			return fmt.Errorf("database URL is required for postgres")
		}
		c.DatabaseType = dbType
		c.DatabaseURL = url
		return nil
	}
}

// WithDatabaseSchema sets the database schema (for Postgres)
func WithDatabaseSchema(schema string) Option {
	return func(c *ServerConfig) error {
		c.DBSchema = schema
		return nil
	}
}

// WithOutputRoot sets the directory derivatives are written to
func WithOutputRoot(dir string) Option {
	return func(c *ServerConfig) error {
		if dir == "" {
			return fmt.Errorf("output root cannot be empty")
		}
		c.OutputRoot = dir
		return nil
	}
}

// WithURLPrefix sets the public path of the output root
func WithURLPrefix(prefix string) Option {
	return func(c *ServerConfig) error {
		c.URLPrefix = prefix
		return nil
	}
}

// WithStrictMime rejects uploads whose content differs from the declared type
func WithStrictMime(strict bool) Option {
	return func(c *ServerConfig) error {
		c.StrictMime = strict
		return nil
	}
}

// WithMaxConcurrentGenerations caps concurrent derivative rendering
func WithMaxConcurrentGenerations(n int) Option {
	return func(c *ServerConfig) error {
		if n <= 0 {
			return fmt.Errorf("max concurrent generations must be positive")
		}
		c.MaxConcurrentGenerations = n
		return nil
	}
}

// WithSizes overrides the derivative size table
func WithSizes(sizes []simplegallery.SizeSpec) Option {
	return func(c *ServerConfig) error {
		if len(sizes) == 0 {
			return fmt.Errorf("size table cannot be empty")
		}
		c.Sizes = sizes
		return nil
	}
}

// WithAdminAPIKeySHA256 sets the hashed admin API key
func WithAdminAPIKeySHA256(sum string) Option {
	return func(c *ServerConfig) error {
		c.AdminAPIKeySHA256 = sum
		return nil
	}
}

// WithLogging sets the log level and format
func WithLogging(level, format string) Option {
	return func(c *ServerConfig) error {
		c.LogLevel = level
		c.LogFormat = format
		return nil
	}
}
