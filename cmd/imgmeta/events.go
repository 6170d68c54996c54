package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/phambaophuc/image-seo-metadata/internal/models"
	"github.com/phambaophuc/image-seo-metadata/internal/services/queue"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Consume batch events from RabbitMQ and log them",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		q, err := queue.NewQueueService(cfg.RabbitMQ.URL, cfg.RabbitMQ.Queue, logger)
		if err != nil {
			return err
		}
		defer q.Close()

		workers, _ := cmd.Flags().GetInt("workers")
		for i := 1; i <= workers; i++ {
			if err := q.StartWorker(ctx, i, logEvent); err != nil {
				return fmt.Errorf("failed to start worker %d: %w", i, err)
			}
		}

		<-ctx.Done()
		return nil
	},
}

func init() {
	eventsCmd.Flags().IntP("workers", "w", 1, "Number of consumers")
	rootCmd.AddCommand(eventsCmd)
}

func logEvent(_ context.Context, ev models.Event) error {
	fields := []zap.Field{
		zap.String("batch_id", ev.BatchID),
		zap.String("type", string(ev.Type)),
		zap.Time("timestamp", ev.Timestamp),
	}
	switch {
	case ev.Start != nil:
		fields = append(fields, zap.Int("total", ev.Start.Total))
	case ev.Progress != nil:
		fields = append(fields,
			zap.Int("completed", ev.Progress.Completed),
			zap.Int("total", ev.Progress.Total),
			zap.String("file", ev.Progress.CurrentResult.Filename),
		)
	case ev.Error != nil:
		fields = append(fields, zap.String("file", ev.Error.File), zap.String("error", ev.Error.Error))
	case ev.Complete != nil:
		fields = append(fields, zap.Int("items", len(ev.Complete.Results.Data)))
	}
	logger.Info("Batch event", fields...)
	return nil
}
