package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gridfeed/gridfeed/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "gridfeed",
	Short: "Record view builder for remote table sources",
	Long:  "Fetches tabular records from a runtime-schema table source, classifies columns into semantic field types, and builds a sorted, limited, category-filtered record view for rendering.",
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
