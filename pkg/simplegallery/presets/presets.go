// Package presets assembles ready-to-use gallery services for local
// development and tests.
package presets

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/tendant/simple-gallery/pkg/simplegallery"
	"github.com/tendant/simple-gallery/pkg/simplegallery/derive"
	memoryrepo "github.com/tendant/simple-gallery/pkg/simplegallery/repo/memory"
	fsstorage "github.com/tendant/simple-gallery/pkg/simplegallery/storage/fs"
	"github.com/tendant/simple-gallery/pkg/simplegallery/verify"
)

// NewDevelopment creates a service configured for local development.
//
// Features:
//   - In-memory catalog (instant startup, no setup required)
//   - Derivatives written to ./dev-data/collections
//   - Lenient MIME policy with mismatch warnings on the default logger
//
// The returned cleanup function removes the output directory.
//
// Example:
//
//	svc, cleanup, err := presets.NewDevelopment()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer cleanup()
func NewDevelopment(opts ...DevelopmentOption) (simplegallery.Service, func(), error) {
	cfg := &devConfig{
		outputRoot: "./dev-data/collections",
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	store, err := fsstorage.New(fsstorage.Config{BaseDir: cfg.outputRoot})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create filesystem storage: %w", err)
	}

	svc, err := simplegallery.New(
		simplegallery.WithCatalog(memoryrepo.New()),
		simplegallery.WithStore(store),
		simplegallery.WithVerifier(verify.New(verify.Config{})),
		simplegallery.WithGenerator(derive.New(derive.WithLogger(cfg.logger))),
		simplegallery.WithLogger(cfg.logger),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create service: %w", err)
	}

	cleanup := func() {
		os.RemoveAll(cfg.outputRoot)
	}
	return svc, cleanup, nil
}

// NewTesting creates a service for unit tests. Derivatives go to a
// t.TempDir() unless WithTestOutputRoot is given, logging is discarded and
// everything is removed when the test ends.
//
// Example:
//
//	func TestMyFeature(t *testing.T) {
//	    svc := presets.NewTesting(t)
//	    // Use service...
//	}
func NewTesting(t *testing.T, opts ...TestingOption) simplegallery.Service {
	t.Helper()

	cfg := &testConfig{
		maxConcurrent: 4,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.outputRoot == "" {
		cfg.outputRoot = t.TempDir()
	}
	if cfg.catalog == nil {
		cfg.catalog = memoryrepo.New()
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	store, err := fsstorage.New(fsstorage.Config{BaseDir: cfg.outputRoot})
	if err != nil {
		t.Fatalf("failed to create filesystem storage: %v", err)
	}

	options := []simplegallery.Option{
		simplegallery.WithCatalog(cfg.catalog),
		simplegallery.WithStore(store),
		simplegallery.WithVerifier(verify.New(verify.Config{Strict: cfg.strict})),
		simplegallery.WithGenerator(derive.New(
			derive.WithMaxConcurrent(cfg.maxConcurrent),
			derive.WithLogger(logger),
		)),
		simplegallery.WithLogger(logger),
	}
	if cfg.hooks != nil {
		options = append(options, simplegallery.WithHooks(cfg.hooks))
	}
	if cfg.sizes != nil {
		options = append(options, simplegallery.WithSizes(cfg.sizes))
	}

	svc, err := simplegallery.New(options...)
	if err != nil {
		t.Fatalf("failed to create test service: %v", err)
	}
	return svc
}

type devConfig struct {
	outputRoot string
	logger     *slog.Logger
}

type testConfig struct {
	outputRoot    string
	catalog       simplegallery.Catalog
	hooks         *simplegallery.Hooks
	sizes         []simplegallery.SizeSpec
	strict        bool
	maxConcurrent int
}

// DevelopmentOption configures development preset
type DevelopmentOption func(*devConfig)

// WithDevOutputRoot sets the derivative directory for development
func WithDevOutputRoot(dir string) DevelopmentOption {
	return func(c *devConfig) {
		c.outputRoot = dir
	}
}

// WithDevLogger sets the development logger
func WithDevLogger(l *slog.Logger) DevelopmentOption {
	return func(c *devConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// TestingOption configures testing preset
type TestingOption func(*testConfig)

// WithTestOutputRoot writes derivatives to dir so the test can inspect it.
func WithTestOutputRoot(dir string) TestingOption {
	return func(c *testConfig) {
		c.outputRoot = dir
	}
}

// WithTestCatalog replaces the in-memory catalog, e.g. with a fault injecting wrapper.
func WithTestCatalog(catalog simplegallery.Catalog) TestingOption {
	return func(c *testConfig) {
		c.catalog = catalog
	}
}

// WithTestHooks installs lifecycle hooks.
func WithTestHooks(h *simplegallery.Hooks) TestingOption {
	return func(c *testConfig) {
		c.hooks = h
	}
}

// WithTestSizes overrides the derivative table.
func WithTestSizes(sizes []simplegallery.SizeSpec) TestingOption {
	return func(c *testConfig) {
		c.sizes = sizes
	}
}

// WithTestStrictMime rejects declared/sniffed type mismatches.
func WithTestStrictMime() TestingOption {
	return func(c *testConfig) {
		c.strict = true
	}
}

// WithTestMaxConcurrent bounds concurrent derivative rendering.
func WithTestMaxConcurrent(n int) TestingOption {
	return func(c *testConfig) {
		c.maxConcurrent = n
	}
}
