package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/tendant/simple-gallery/pkg/simplegallery/config"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func NewRootCommand() *cobra.Command {
	var envFile string
	var verbose bool

	rootCmd := &cobra.Command{
		Use:   "gallery-admin",
		Short: "Gallery administration CLI",
		Long: `Gallery administration command line interface.

Runs the ingestion pipeline directly against the configured catalog and
output root. Configuration is read from the environment (and an optional
.env file) using the same variables as the server.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file to load before reading the environment")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(NewMigrateCommand())
	rootCmd.AddCommand(NewIngestCommand())
	rootCmd.AddCommand(NewCreateCollectionCommand())
	rootCmd.AddCommand(NewListCommand())
	rootCmd.AddCommand(NewDeleteImageCommand())
	rootCmd.AddCommand(NewDeleteCollectionCommand())
	rootCmd.AddCommand(NewAuditCommand())

	return rootCmd
}

// runtimeFromFlags builds the service described by the environment.
func runtimeFromFlags(ctx context.Context, cmd *cobra.Command) (*config.Runtime, error) {
	envFile, _ := cmd.Flags().GetString("env-file")
	verbose, _ := cmd.Flags().GetBool("verbose")

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	opts := []config.Option{config.WithEnv()}
	if verbose {
		opts = append(opts, config.WithLogging("debug", "text"))
	}
	cfg, err := config.Load(opts...)
	if err != nil {
		return nil, err
	}

	logger := cfg.NewLogger()
	slog.SetDefault(logger)
	return cfg.BuildService(ctx, logger)
}
