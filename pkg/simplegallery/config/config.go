package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tendant/simple-gallery/pkg/simplegallery"
	"github.com/tendant/simple-gallery/pkg/simplegallery/derive"
	"github.com/tendant/simple-gallery/pkg/simplegallery/objectkey"
	"github.com/tendant/simple-gallery/pkg/simplegallery/repo/memory"
	repopg "github.com/tendant/simple-gallery/pkg/simplegallery/repo/postgres"
	fsstorage "github.com/tendant/simple-gallery/pkg/simplegallery/storage/fs"
	"github.com/tendant/simple-gallery/pkg/simplegallery/verify"
)

// DefaultMaxUploadBytes is the largest accepted upload.
const DefaultMaxUploadBytes = 25 << 20

// Option applies configuration to a ServerConfig instance.
type Option func(*ServerConfig) error

// Load constructs a ServerConfig by applying the supplied options on top of library defaults.
func Load(opts ...Option) (*ServerConfig, error) {
	cfg := defaults()

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func defaults() ServerConfig {
	return ServerConfig{
		Environment:              "development",
		DatabaseType:             "memory",
		DBSchema:                 "gallery",
		OutputRoot:               "./data/collections",
		URLPrefix:                objectkey.DefaultURLPrefix,
		MaxUploadBytes:           DefaultMaxUploadBytes,
		MaxConcurrentGenerations: runtime.GOMAXPROCS(0),
		MaxAllocAttempts:         simplegallery.DefaultMaxAllocAttempts,
		LogLevel:                 "info",
		LogFormat:                "text",
	}
}

// ServerConfig represents configuration for the gallery ingestion service
type ServerConfig struct {
	Environment string // development, production, testing

	// Database configuration
	DatabaseURL  string
	DatabaseType string // "memory", "postgres"
	DBSchema     string // Postgres schema to use (default: gallery)

	// Derivative storage
	OutputRoot string
	URLPrefix  string

	// Ingestion
	StrictMime               bool
	MaxUploadBytes           int64
	MaxConcurrentGenerations int
	MaxAllocAttempts         int
	Sizes                    []simplegallery.SizeSpec // nil means DefaultSizes

	// Admin surface
	AdminAPIKeySHA256 string

	// Logging
	LogLevel  string // debug, info, warn, error
	LogFormat string // text, json
}

// Validate validates the server configuration
func (c *ServerConfig) Validate() error {
	if c.DatabaseType != "memory" && c.DatabaseType != "postgres" {
		return errors.New("database_type must be 'memory' or 'postgres'")
	}
	if c.DatabaseType == "postgres" && c.DatabaseURL == "" {
		return errors.New("database_url is required when using postgres")
	}
	if c.OutputRoot == "" {
		return errors.New("output_root is required")
	}
	if !strings.HasPrefix(c.URLPrefix, "/") {
		return fmt.Errorf("url_prefix must start with '/', got %q", c.URLPrefix)
	}
	if c.MaxUploadBytes <= 0 {
		return errors.New("max_upload_bytes must be positive")
	}
	if c.MaxConcurrentGenerations <= 0 {
		return errors.New("max_concurrent_generations must be positive")
	}
	if c.MaxAllocAttempts <= 0 {
		return errors.New("max_alloc_attempts must be positive")
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("log_format must be 'text' or 'json', got %q", c.LogFormat)
	}
	return nil
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("invalid log_level %q", s)
	}
	return level, nil
}

// NewLogger builds the process logger described by the configuration.
func (c *ServerConfig) NewLogger() *slog.Logger {
	level, err := parseLevel(c.LogLevel)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// Runtime holds the assembled service and what must be released with it.
type Runtime struct {
	Config  *ServerConfig
	Service simplegallery.Service
	Catalog simplegallery.Catalog
	Store   *fsstorage.Backend
	pool    *pgxpool.Pool
}

// Close releases the database pool, if any.
func (r *Runtime) Close() {
	if r.pool != nil {
		r.pool.Close()
	}
}

// Migrate applies the catalog schema when the catalog is postgres.
func (r *Runtime) Migrate(ctx context.Context) error {
	pg, ok := r.Catalog.(*repopg.Repository)
	if !ok {
		return nil
	}
	return pg.Migrate(ctx)
}

// BuildService creates a Service instance from the server configuration
func (c *ServerConfig) BuildService(ctx context.Context, logger *slog.Logger) (*Runtime, error) {
	if logger == nil {
		logger = c.NewLogger()
	}
	rt := &Runtime{Config: c}

	catalog, pool, err := c.buildCatalog(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to build catalog: %w", err)
	}
	rt.Catalog, rt.pool = catalog, pool

	store, err := fsstorage.New(fsstorage.Config{BaseDir: c.OutputRoot})
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("failed to build derivative store: %w", err)
	}
	rt.Store = store

	options := []simplegallery.Option{
		simplegallery.WithCatalog(catalog),
		simplegallery.WithStore(store),
		simplegallery.WithVerifier(verify.New(verify.Config{Strict: c.StrictMime})),
		simplegallery.WithGenerator(derive.New(
			derive.WithMaxConcurrent(c.MaxConcurrentGenerations),
			derive.WithLogger(logger),
		)),
		simplegallery.WithLogger(logger),
		simplegallery.WithURLPrefix(c.URLPrefix),
		simplegallery.WithMaxAllocAttempts(c.MaxAllocAttempts),
	}
	if c.Sizes != nil {
		options = append(options, simplegallery.WithSizes(c.Sizes))
	}

	svc, err := simplegallery.New(options...)
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.Service = svc
	return rt, nil
}

// buildCatalog creates a Catalog based on the configuration
func (c *ServerConfig) buildCatalog(ctx context.Context) (simplegallery.Catalog, *pgxpool.Pool, error) {
	switch c.DatabaseType {
	case "memory":
		return memory.New(), nil, nil
	case "postgres":
		pool, err := newPool(ctx, c.DatabaseURL, c.DBSchema)
		if err != nil {
			return nil, nil, err
		}
		return repopg.NewWithPool(pool), pool, nil
	default:
		return nil, nil, fmt.Errorf("unsupported database type: %s", c.DatabaseType)
	}
}

func newPool(ctx context.Context, databaseURL, schema string) (*pgxpool.Pool, error) {
	if databaseURL == "" {
		return nil, errors.New("database_url is required")
	}
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DATABASE_URL: %w", err)
	}
	if schema != "" {
		cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
			// set search_path for this session
			_, err := conn.Exec(ctx, "SET search_path TO "+pgx.Identifier{schema}.Sanitize())
			return err
		}
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create pgx pool: %w", err)
	}
	return pool, nil
}

// PingPostgres verifies connectivity to Postgres and that the schema, when
// provided, is usable.
func PingPostgres(ctx context.Context, databaseURL, schema string) error {
	pool, err := newPool(ctx, databaseURL, schema)
	if err != nil {
		return err
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("failed to ping postgres: %w", err)
	}
	return nil
}
