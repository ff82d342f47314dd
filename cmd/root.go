package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lotworks/vinvalue/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "vinvalue",
	Short: "Batch vehicle valuation against the KBB InfoDriver API",
	Long:  "Resolves locally-described vehicles (VIN or year/make/model/trim plus option text) against the KBB catalog and prices the best-matching configuration.",
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
