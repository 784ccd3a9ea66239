package config

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/simple-gallery/pkg/simplegallery"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.DatabaseType)
	assert.Equal(t, "/assets/images/collections", cfg.URLPrefix)
	assert.Equal(t, int64(DefaultMaxUploadBytes), cfg.MaxUploadBytes)
	assert.Equal(t, simplegallery.DefaultMaxAllocAttempts, cfg.MaxAllocAttempts)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ServerConfig)
	}{
		{"unknown database", func(c *ServerConfig) { c.DatabaseType = "sqlite" }},
		{"postgres without url", func(c *ServerConfig) { c.DatabaseType = "postgres" }},
		{"empty output root", func(c *ServerConfig) { c.OutputRoot = "" }},
		{"relative url prefix", func(c *ServerConfig) { c.URLPrefix = "assets" }},
		{"zero upload limit", func(c *ServerConfig) { c.MaxUploadBytes = 0 }},
		{"zero concurrency", func(c *ServerConfig) { c.MaxConcurrentGenerations = 0 }},
		{"zero attempts", func(c *ServerConfig) { c.MaxAllocAttempts = 0 }},
		{"bad log level", func(c *ServerConfig) { c.LogLevel = "loud" }},
		{"bad log format", func(c *ServerConfig) { c.LogFormat = "xml" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaults()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestOptions(t *testing.T) {
	_, err := Load(WithDatabase("postgres", ""))
	assert.Error(t, err)

	_, err = Load(WithMaxConcurrentGenerations(0))
	assert.Error(t, err)

	_, err = Load(WithSizes(nil))
	assert.Error(t, err)

	cfg, err := Load(
		WithEnvironment("testing"),
		WithDatabaseSchema("photos"),
		WithStrictMime(true),
		WithLogging("debug", "json"),
		WithAdminAPIKeySHA256("abc"),
	)
	require.NoError(t, err)
	assert.Equal(t, "testing", cfg.Environment)
	assert.Equal(t, "photos", cfg.DBSchema)
	assert.True(t, cfg.StrictMime)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "abc", cfg.AdminAPIKeySHA256)
}

func TestBuildServiceMemory(t *testing.T) {
	cfg, err := Load(WithOutputRoot(t.TempDir()), WithEnvironment("testing"))
	require.NoError(t, err)

	rt, err := cfg.BuildService(context.Background(), nil)
	require.NoError(t, err)
	defer rt.Close()

	require.NotNil(t, rt.Service)
	require.NoError(t, rt.Migrate(context.Background()))

	col, err := rt.Service.CreateCollection(context.Background(), simplegallery.CreateCollectionRequest{
		Name: simplegallery.LocalizedText{ES: "Cabo San Lucas"},
	})
	require.NoError(t, err)
	assert.Equal(t, "cabo-san-lucas", col.ID)
}

func TestBuildServicePostgresBadURL(t *testing.T) {
	cfg, err := Load(WithDatabase("postgres", "postgres://%zz"), WithOutputRoot(t.TempDir()))
	require.NoError(t, err)

	_, err = cfg.BuildService(context.Background(), nil)
	assert.Error(t, err)
}
