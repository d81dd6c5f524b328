// Package cmd defines the CLI commands for the pagemill executable.
package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pagemill/pagemill/internal/app"
	"github.com/pagemill/pagemill/internal/config"
	"github.com/pagemill/pagemill/internal/logging"
)

var cfgFile string

type appKeyType struct{}

var appKey appKeyType

// newApp is the application factory, replaceable in tests.
var newApp = func(ctx context.Context, cfg config.Config) (*app.App, error) {
	return app.New(ctx, cfg)
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pagemill",
		Short: "Crawl orchestration and content normalization service.",
		Long: `pagemill drives site crawls through an external crawling engine,
normalizes the returned pages into clean markdown records, and keeps
per-site session status current while it works.`,
		SilenceUsage: true,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			if err := logging.Init(cfg.Logging.Development); err != nil {
				return fmt.Errorf("initialize logging: %w", err)
			}

			a, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return fmt.Errorf("initialize application services: %w", err)
			}
			cmd.SetContext(context.WithValue(cmd.Context(), appKey, a))
			return nil
		},

		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if a, ok := cmd.Context().Value(appKey).(*app.App); ok && a != nil {
				if err := a.Close(cmd.Context()); err != nil {
					logging.L.Warn("shutdown left errors", zap.Error(err))
				}
			}
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path")
	cmd.AddCommand(newCrawlCmd(), newScrapeCmd(), newServeCmd())
	return cmd
}

func resolveApp(ctx context.Context) (*app.App, error) {
	a, ok := ctx.Value(appKey).(*app.App)
	if !ok || a == nil {
		return nil, errors.New("application services not initialized")
	}
	return a, nil
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		logging.L.Fatal("command failed", zap.Error(err))
	}
}
