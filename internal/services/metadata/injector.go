package metadata

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/phambaophuc/image-seo-metadata/internal/models"
)

// BackupSuffix ends the name of the temporary copy Update keeps while it
// rewrites a file.
const BackupSuffix = ".backup"

type Injector struct {
	sessions SessionRunner
	logger   *zap.Logger
	locks    *pathLocks

	// skipKeywordPass disables the PNG keyword-only second write.
	skipKeywordPass bool
}

func NewInjector(sessions SessionRunner, logger *zap.Logger) *Injector {
	return &Injector{
		sessions: sessions,
		logger:   logger,
		locks:    newPathLocks(),
	}
}

// Inject copies sourcePath into outputDir and writes md into the copy. The
// source is never modified. On failure no output file is left behind.
func (i *Injector) Inject(ctx context.Context, sourcePath string, md *models.MetadataRecord, outputDir string) (string, error) {
	if sourcePath == "" || md == nil || outputDir == "" {
		return "", fmt.Errorf("%w: image path, metadata and output directory are required", ErrMissingInput)
	}

	ext, err := validateSource(sourcePath)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	outputPath := filepath.Join(outputDir, filepath.Base(sourcePath))
	if samePath(sourcePath, outputPath) {
		if _, err := i.Update(ctx, outputPath, &models.MetadataUpdate{
			Title:       &md.Title,
			Description: &md.Description,
			Keywords:    &md.Keywords,
		}); err != nil {
			return "", err
		}
		return outputPath, nil
	}

	unlock := i.locks.lock(outputPath)
	defer unlock()

	if err := copyFile(sourcePath, outputPath); err != nil {
		return "", fmt.Errorf("failed to copy image: %w", err)
	}

	err = i.sessions.With(ctx, func(s Session) error {
		return i.writeAndVerify(s, outputPath, *md, ext, false)
	})
	if err != nil {
		if rmErr := os.Remove(outputPath); rmErr != nil && !os.IsNotExist(rmErr) {
			i.logger.Warn("Failed to remove partial output", zap.String("path", outputPath), zap.Error(rmErr))
		}
		return "", fmt.Errorf("failed to add metadata: %w", err)
	}

	i.logger.Debug("Metadata injected",
		zap.String("source", sourcePath),
		zap.String("output", outputPath),
	)
	return outputPath, nil
}

// Update merges upd into the metadata already stored in path and rewrites the
// file in place. The file is restored byte for byte if anything fails, and the
// backup never outlives the call. Updates to the same path run one at a time.
func (i *Injector) Update(ctx context.Context, path string, upd *models.MetadataUpdate) (*models.MetadataRecord, error) {
	if path == "" || upd == nil {
		return nil, fmt.Errorf("%w: image path and metadata are required", ErrMissingInput)
	}

	ext, err := validateSource(path)
	if err != nil {
		return nil, err
	}

	unlock := i.locks.lock(path)
	defer unlock()

	backup, err := backupFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create backup: %w", err)
	}
	defer func() {
		if err := os.Remove(backup); err != nil && !os.IsNotExist(err) {
			i.logger.Warn("Failed to remove backup", zap.String("path", backup), zap.Error(err))
		}
	}()

	var merged models.MetadataRecord
	err = i.sessions.With(ctx, func(s Session) error {
		records, err := s.ReadMetadata(path)
		if err != nil {
			return fmt.Errorf("failed to read existing metadata: %w", err)
		}
		if len(records) == 0 {
			return fmt.Errorf("%w: no existing metadata records", ErrVerification)
		}

		existing := ExistingRecord(records[0])
		merged = upd.Apply(existing)
		clearKeywords := len(existing.Keywords) > 0 && len(merged.Keywords) == 0
		return i.writeAndVerify(s, path, merged, ext, clearKeywords)
	})
	if err != nil {
		if restoreErr := copyFile(backup, path); restoreErr != nil {
			i.logger.Error("Failed to restore image from backup",
				zap.String("path", path),
				zap.Error(restoreErr),
			)
		}
		return nil, fmt.Errorf("failed to update metadata: %w", err)
	}

	return &merged, nil
}

// writeAndVerify writes md and reads it back. clearKeywords forces the PNG
// keyword pass for an empty list so stale keyword chunks are removed.
func (i *Injector) writeAndVerify(s Session, path string, md models.MetadataRecord, ext string, clearKeywords bool) error {
	if err := s.WriteMetadata(path, PrepareFields(md, ext)); err != nil {
		return fmt.Errorf("failed to write metadata: %w", err)
	}

	if ext == ".png" && (len(md.Keywords) > 0 || clearKeywords) && !i.skipKeywordPass {
		if err := s.WriteMetadata(path, pngKeywordFields(md.Keywords)); err != nil {
			return fmt.Errorf("failed to write png keywords: %w", err)
		}
	}

	records, err := s.ReadMetadata(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrVerification, err)
	}
	if len(records) == 0 {
		return ErrVerification
	}
	return nil
}

func validateSource(path string) (string, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: image file not found: %s", ErrMissingInput, path)
		}
		return "", err
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return "", fmt.Errorf("%w: file has no extension", ErrUnsupportedFormat)
	}
	if !IsSupported(ext) {
		return "", fmt.Errorf("%w: %s (supported: %s)", ErrUnsupportedFormat, ext, strings.Join(SupportedFormats, ", "))
	}
	return ext, nil
}

func samePath(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	return errA == nil && errB == nil && absA == absB
}

// backupFile copies path to a uniquely named sibling and returns its name.
func backupFile(path string) (string, error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*"+BackupSuffix)
	if err != nil {
		return "", err
	}
	name := tmp.Name()
	if err := tmp.Close(); err != nil {
		os.Remove(name)
		return "", err
	}
	if err := copyFile(path, name); err != nil {
		os.Remove(name)
		return "", err
	}
	return name, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// pathLocks hands out one mutex per absolute file path. Entries are dropped
// once nobody holds or waits on them.
type pathLocks struct {
	mu sync.Mutex
	m  map[string]*pathLock
}

type pathLock struct {
	mu   sync.Mutex
	refs int
}

func newPathLocks() *pathLocks {
	return &pathLocks{m: make(map[string]*pathLock)}
}

func (l *pathLocks) lock(path string) func() {
	key := path
	if abs, err := filepath.Abs(path); err == nil {
		key = abs
	}

	l.mu.Lock()
	pl, ok := l.m[key]
	if !ok {
		pl = &pathLock{}
		l.m[key] = pl
	}
	pl.refs++
	l.mu.Unlock()

	pl.mu.Lock()
	return func() {
		pl.mu.Unlock()
		l.mu.Lock()
		pl.refs--
		if pl.refs == 0 {
			delete(l.m, key)
		}
		l.mu.Unlock()
	}
}
