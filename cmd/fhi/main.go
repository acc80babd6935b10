// FHI - Financial health index scoring and what-if simulation.
// Copyright (c) 2025 opensource.finance
// Licensed under the Apache License 2.0

package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/opensource-finance/fhi/internal/config"
	"github.com/opensource-finance/fhi/internal/domain"
)

// Version information (set via ldflags)
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

var cfg *domain.Config

var rootCmd = &cobra.Command{
	Use:   "fhi",
	Short: "Financial health index scoring service",
	Long: `Scores financial profiles into a 0-100 health index with five weighted
components, simulates what-if scenarios, and serves both over HTTP.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return eris.Wrap(err, "load config")
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return eris.Wrap(err, "init logger")
		}
		if name := cfg.Tracing.ServiceName; name != "" {
			zap.ReplaceGlobals(zap.L().With(zap.String("service", name)))
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
