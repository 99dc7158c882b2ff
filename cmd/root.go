package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/schoolrail/schoolrail-cli/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "schoolrail",
	Short: "School and train-station proximity mapping pipeline",
	Long:  "Scrapes ranked schools and railway stations, geocodes both sets, filters stations within a radius of any school, and renders an interactive map.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
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
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
