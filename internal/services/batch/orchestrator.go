package batch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/phambaophuc/image-seo-metadata/internal/models"
)

type ItemProcessor interface {
	Process(ctx context.Context, item models.UploadedItem, outputDir string) (*models.ItemResult, error)
}

type Saver interface {
	Save(ctx context.Context, batchID string, items []models.ItemResult) (*models.BatchRecord, error)
}

type Publisher interface {
	Publish(ev models.Event)
}

// Scheduler arranges for the batch directory to be swept later.
type Scheduler interface {
	Schedule(ctx context.Context, batchID, dir string) error
}

type Orchestrator struct {
	processor  ItemProcessor
	store      Saver
	publisher  Publisher
	scheduler  Scheduler
	outputRoot string
	logger     *zap.Logger
}

func NewOrchestrator(
	processor ItemProcessor,
	store Saver,
	publisher Publisher,
	scheduler Scheduler,
	outputRoot string,
	logger *zap.Logger,
) *Orchestrator {
	return &Orchestrator{
		processor:  processor,
		store:      store,
		publisher:  publisher,
		scheduler:  scheduler,
		outputRoot: outputRoot,
		logger:     logger,
	}
}

// Begin allocates a batch id and its own output directory.
func (o *Orchestrator) Begin() (*models.Batch, error) {
	id := uuid.NewString()
	dir := filepath.Join(o.outputRoot, id)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create batch directory: %w", err)
	}

	return &models.Batch{
		ID:        id,
		OutputDir: dir,
		State:     models.BatchCreated,
		CreatedAt: time.Now(),
	}, nil
}

// Run processes items one at a time. A failed item is reported and left out
// of the record; it never stops the batch.
func (o *Orchestrator) Run(ctx context.Context, b *models.Batch, items []models.UploadedItem) (*models.BatchRecord, error) {
	total := len(items)
	logger := o.logger.With(zap.String("batch_id", b.ID))

	b.State = models.BatchProcessing
	o.publisher.Publish(models.NewStartEvent(b.ID, total))
	logger.Info("Batch started", zap.Int("total", total))

	results := make([]models.ItemResult, 0, total)
	for _, item := range items {
		result, err := o.processor.Process(ctx, item, b.OutputDir)
		if err != nil {
			logger.Error("Image processing failed",
				zap.String("file", item.OriginalName),
				zap.Error(err),
			)
			o.publisher.Publish(models.NewErrorEvent(b.ID, item.OriginalName, err.Error()))
			continue
		}

		results = append(results, *result)
		o.publisher.Publish(models.NewProgressEvent(b.ID, len(results), total, *result))
	}

	record, err := o.store.Save(ctx, b.ID, results)
	if err != nil {
		logger.Error("Failed to save batch", zap.Error(err))
		o.publisher.Publish(models.NewErrorEvent(b.ID, "", fmt.Sprintf("failed to save batch: %v", err)))
		o.schedule(ctx, b, logger)
		return nil, fmt.Errorf("failed to save batch %s: %w", b.ID, err)
	}

	b.State = models.BatchCompleted
	o.publisher.Publish(models.NewCompleteEvent(*record))
	logger.Info("Batch completed",
		zap.Int("succeeded", len(results)),
		zap.Int("failed", total-len(results)),
	)

	o.schedule(ctx, b, logger)
	return record, nil
}

// RunBatch is Begin followed by Run.
func (o *Orchestrator) RunBatch(ctx context.Context, items []models.UploadedItem) (*models.BatchRecord, error) {
	b, err := o.Begin()
	if err != nil {
		return nil, err
	}
	return o.Run(ctx, b, items)
}

func (o *Orchestrator) schedule(ctx context.Context, b *models.Batch, logger *zap.Logger) {
	if o.scheduler == nil {
		return
	}
	if err := o.scheduler.Schedule(ctx, b.ID, b.OutputDir); err != nil {
		logger.Error("Failed to schedule retention sweep", zap.Error(err))
	}
}
