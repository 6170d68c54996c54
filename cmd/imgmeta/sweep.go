package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/phambaophuc/image-seo-metadata/internal/services/retention"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Remove every batch directory under the output root",
	Long: `Remove every batch directory under the output root and mark the
matching batch records as no longer downloadable. Run it while no server is
processing batches.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, err := openStore(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to open result store: %w", err)
		}
		defer repo.Close()

		sweeper := retention.NewSweeper(repo, cfg.Storage.ProcessedPath, logger)
		n, err := sweeper.SweepAll(cmd.Context())
		logger.Info("Sweep finished",
			zap.String("root", cfg.Storage.ProcessedPath),
			zap.Int("removed", n),
		)
		return err
	},
}

func init() {
	rootCmd.AddCommand(sweepCmd)
}
