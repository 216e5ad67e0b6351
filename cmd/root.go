package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/policyengine/simprof/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "simprof",
	Short: "Profile reform overhead in tax-benefit simulation construction",
	Long:  "Builds a baseline and a reformed simulation under the CPU profiler, measures how much construction slows down when parameter overrides are applied, and reports the functions responsible.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := c.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	registerEngines()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
