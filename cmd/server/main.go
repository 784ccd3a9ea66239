package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/tendant/chi-demo/app"
	"github.com/tendant/chi-demo/middleware"

	"github.com/tendant/simple-gallery/pkg/simplegallery/api"
	"github.com/tendant/simple-gallery/pkg/simplegallery/config"
)

func main() {
	// A missing .env is fine; the environment may already be set.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("Failed to read .env file", "err", err)
	}

	cfg, err := config.Load(config.WithEnv())
	if err != nil {
		slog.Error("Failed to read configuration", "err", err)
		os.Exit(1)
	}
	logger := cfg.NewLogger()
	slog.SetDefault(logger)

	ctx := context.Background()
	if cfg.DatabaseType == "postgres" {
		if err := config.PingPostgres(ctx, cfg.DatabaseURL, cfg.DBSchema); err != nil {
			slog.Error("Failed to connect to database", "err", err)
			os.Exit(1)
		}
	}

	rt, err := cfg.BuildService(ctx, logger)
	if err != nil {
		slog.Error("Failed to build gallery service", "err", err)
		os.Exit(1)
	}
	defer rt.Close()

	server := app.DefaultApp()

	app.RoutesHealthz(server.R)
	app.RoutesHealthzReady(server.R)

	handler := api.NewHandler(rt.Service,
		api.WithLogger(logger),
		api.WithMaxUploadBytes(cfg.MaxUploadBytes),
	)

	apiKeyMiddleware, err := middleware.ApiKeyMiddleware(middleware.ApiKeyConfig{
		APIKeys: map[string]string{
			"admin": cfg.AdminAPIKeySHA256,
		},
	})
	if err != nil {
		slog.Error("Failed initialize API Key middleware", "err", err)
		return
	}
	server.R.Route("/api/v1", func(r chi.Router) {
		r.Use(api.RequestIDMiddleware, api.LoggingMiddleware(logger), api.RecoveryMiddleware(logger))
		r.Group(func(r chi.Router) {
			r.Use(apiKeyMiddleware)
			r.Mount("/images", handler.ImageRoutes())
			r.Mount("/collections", handler.CollectionRoutes())
		})
	})

	// Published derivatives are plain files under the output root.
	prefix := strings.TrimSuffix(cfg.URLPrefix, "/")
	files := http.StripPrefix(prefix, hideDotFiles(http.FileServer(http.Dir(rt.Store.BaseDir()))))
	server.R.Handle(prefix+"/*", files)

	slog.Info("Gallery server starting",
		"environment", cfg.Environment,
		"database", cfg.DatabaseType,
		"output_root", rt.Store.BaseDir(),
		"url_prefix", prefix)

	server.Run()
}

// hideDotFiles keeps staged and temporary files out of the static tree.
func hideDotFiles(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for _, seg := range strings.Split(r.URL.Path, "/") {
			if strings.HasPrefix(seg, ".") {
				http.NotFound(w, r)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}
