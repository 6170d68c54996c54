package retention

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/phambaophuc/image-seo-metadata/internal/models"
	"github.com/phambaophuc/image-seo-metadata/internal/services/store"
)

type Marker interface {
	MarkUndownloadable(ctx context.Context, batchID string) (*models.BatchRecord, error)
}

// Sweeper deletes batch output directories and retires their records.
type Sweeper struct {
	store      Marker
	outputRoot string
	logger     *zap.Logger
}

func NewSweeper(marker Marker, outputRoot string, logger *zap.Logger) *Sweeper {
	return &Sweeper{
		store:      marker,
		outputRoot: outputRoot,
		logger:     logger,
	}
}

// Sweep marks the batch undownloadable, then removes its directory. The
// record flips first so a downloadable record always has files behind it.
// A missing record or an already removed directory is not an error.
func (s *Sweeper) Sweep(ctx context.Context, batchID, dir string) error {
	dir, err := s.batchDir(batchID, dir)
	if err != nil {
		return err
	}
	logger := s.logger.With(zap.String("batch_id", batchID))

	if _, err := s.store.MarkUndownloadable(ctx, batchID); err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("failed to mark batch %s undownloadable: %w", batchID, err)
		}
		logger.Warn("No record for swept batch")
	}

	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to delete directory %s: %w", dir, err)
	}

	logger.Info("Deleted batch directory", zap.String("dir", dir))
	return nil
}

// SweepAll removes every batch directory under the output root. It is run at
// start-up, when no batch can be in flight.
func (s *Sweeper) SweepAll(ctx context.Context) (int, error) {
	entries, err := os.ReadDir(s.outputRoot)
	if errors.Is(err, os.ErrNotExist) {
		return 0, os.MkdirAll(s.outputRoot, 0755)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read %s: %w", s.outputRoot, err)
	}

	if len(entries) == 0 {
		s.logger.Info("No existing processed folders to clean up")
		return 0, nil
	}

	var (
		swept int
		errs  []error
	)
	for _, entry := range entries {
		path := filepath.Join(s.outputRoot, entry.Name())
		if !entry.IsDir() {
			if err := os.Remove(path); err != nil {
				errs = append(errs, err)
			}
			continue
		}
		if err := s.Sweep(ctx, entry.Name(), path); err != nil {
			errs = append(errs, err)
			continue
		}
		swept++
	}

	s.logger.Info("Start-up sweep finished", zap.Int("swept", swept), zap.Int("failed", len(errs)))
	return swept, errors.Join(errs...)
}

// batchDir resolves the directory to delete and refuses anything that is not
// a direct child of the output root.
func (s *Sweeper) batchDir(batchID, dir string) (string, error) {
	if batchID == "" {
		return "", errors.New("batch id is required")
	}
	if dir == "" {
		dir = filepath.Join(s.outputRoot, batchID)
	}

	rel, err := filepath.Rel(s.outputRoot, dir)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") || strings.ContainsRune(rel, filepath.Separator) {
		return "", fmt.Errorf("refusing to delete %s outside %s", dir, s.outputRoot)
	}
	return dir, nil
}
