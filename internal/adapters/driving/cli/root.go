// Package cli implements the sercha-loader command line.
package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-loader/internal/config"
	"github.com/custodia-labs/sercha-loader/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-loader/internal/logger"
)

// version is set at build time with -ldflags "-X ...cli.version=...".
var version = "dev"

var (
	verbose    bool
	configPath string
)

// Factory builds an ingestor from configuration. The returned function
// releases every adapter the ingestor uses.
type Factory func(ctx context.Context, cfg *config.Config) (driving.Ingestor, func() error, error)

var (
	factory    Factory
	loadConfig = config.Load
)

// errNotConfigured is returned when no Factory has been set.
var errNotConfigured = errors.New("ingestion not configured")

// SetFactory sets the function commands use to build the ingestor.
func SetFactory(f Factory) {
	factory = f
}

var rootCmd = &cobra.Command{
	Use:   "sercha-loader",
	Short: "Load web pages into a vector collection",
	Long: `sercha-loader fetches a list of web pages, splits their text into
overlapping chunks, embeds each chunk and stores the vectors together
with their source URL in a vector collection.

Credentials are read from the environment or a .env file
(GEMINI_API_KEY, ASTRA_DB_*), optionally layered over sercha-loader.toml.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "print progress for every source and chunk")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"configuration file (default: ./sercha-loader.toml if present)")
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// buildIngestor loads configuration, lets mutate adjust it and builds the ingestor.
func buildIngestor(ctx context.Context, mutate func(*config.Config)) (driving.Ingestor, *config.Config, func() error, error) {
	if factory == nil {
		return nil, nil, nil, errNotConfigured
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, nil, nil, err
	}
	if mutate != nil {
		mutate(cfg)
	}
	if cfg.Path != "" {
		logger.Debug("Loaded configuration from %s", cfg.Path)
	}

	ingestor, closeFn, err := factory(ctx, cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	return ingestor, cfg, closeFn, nil
}
