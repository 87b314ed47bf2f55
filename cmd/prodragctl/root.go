package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/prodrag/internal/app"
	"github.com/kailas-cloud/prodrag/internal/config"
	logpkg "github.com/kailas-cloud/prodrag/internal/logger"
)

var (
	envName string
	verbose bool
	noColor bool
)

var rootCmd = &cobra.Command{
	Use:   "prodragctl",
	Short: "Maintain and query the product inquiry retrieval layer",
	Long: `prodragctl rebuilds the products and reviews collections from the catalog files,
precomputes the filterable vocabulary and runs retrieval or chat queries
against the configured vector store.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		_ = godotenv.Load()
		if noColor {
			color.NoColor = true
		}
		if envName == "" {
			envName = config.GetEnv()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&envName, "env", "e", "", "config environment (default: $ENV or local)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
}

func loadConfig() (config.Config, error) {
	cfg, err := config.Load(envName)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// newLogger keeps the terminal quiet unless --verbose is set.
func newLogger(cfg config.Config) (*zap.Logger, error) {
	level := "warn"
	if verbose {
		level = "debug"
	}
	logger, err := logpkg.NewLogger(envName, logpkg.Options{
		Level:         level,
		File:          cfg.Logging.File,
		RotationHours: cfg.Logging.RotationHours,
		MaxAgeHours:   cfg.Logging.MaxAgeHours,
	})
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	return logger, nil
}

// buildApp loads config, creates the logger and wires all services.
func buildApp(ctx context.Context) (*app.App, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}
	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("build services: %w", err)
	}
	return a, nil
}
