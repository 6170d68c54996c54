package processor

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/phambaophuc/image-seo-metadata/internal/models"
)

type Captioner interface {
	Caption(ctx context.Context, imagePath, mimeSubtype string) (*models.MetadataRecord, error)
}

type MetadataWriter interface {
	Inject(ctx context.Context, sourcePath string, md *models.MetadataRecord, outputDir string) (string, error)
}

// Mirror copies a finished image to remote storage and returns its URL.
type Mirror interface {
	Mirror(ctx context.Context, localPath, key string) (string, error)
}

type Options struct {
	OutputRoot   string
	PublicPrefix string
	MaxFileSize  int64
	Mirror       Mirror
}

// ImageProcessor turns one uploaded file into a captioned, tagged image.
type ImageProcessor struct {
	captioner Captioner
	injector  MetadataWriter
	opts      Options
	logger    *zap.Logger
}

func NewImageProcessor(captioner Captioner, injector MetadataWriter, opts Options, logger *zap.Logger) *ImageProcessor {
	return &ImageProcessor{
		captioner: captioner,
		injector:  injector,
		opts:      opts,
		logger:    logger,
	}
}

// Process captions the item, writes the metadata into a copy under outputDir
// and returns its result. The temp upload is removed on every path.
func (p *ImageProcessor) Process(ctx context.Context, item models.UploadedItem, outputDir string) (*models.ItemResult, error) {
	defer p.removeTemp(item.TempPath)

	if err := p.ValidateItem(item); err != nil {
		return nil, err
	}

	md, err := p.captioner.Caption(ctx, item.TempPath, mimeSubtype(item))
	if err != nil {
		return nil, fmt.Errorf("failed to caption %s: %w", item.OriginalName, err)
	}

	outputPath, err := p.injector.Inject(ctx, item.TempPath, md, outputDir)
	if err != nil {
		return nil, fmt.Errorf("failed to write metadata for %s: %w", item.OriginalName, err)
	}

	imageURL, err := p.publicURL(outputPath)
	if err != nil {
		return nil, err
	}

	result := &models.ItemResult{
		ID:       uuid.NewString(),
		Filename: filepath.Base(outputPath),
		ImageURL: imageURL,
		Metadata: *md,
	}

	if p.opts.Mirror != nil {
		key := strings.TrimPrefix(imageURL, p.opts.PublicPrefix)
		key = strings.TrimPrefix(key, "/")
		mirrorURL, err := p.opts.Mirror.Mirror(ctx, outputPath, key)
		if err != nil {
			p.logger.Warn("Failed to mirror image",
				zap.String("file", result.Filename),
				zap.Error(err),
			)
		} else {
			result.MirrorURL = mirrorURL
		}
	}

	return result, nil
}

// publicURL maps a file under the output root to its public path, keeping
// the batch subdirectory.
func (p *ImageProcessor) publicURL(outputPath string) (string, error) {
	rel, err := filepath.Rel(p.opts.OutputRoot, outputPath)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("output %s is outside %s", outputPath, p.opts.OutputRoot)
	}
	return path.Join("/", p.opts.PublicPrefix, filepath.ToSlash(rel)), nil
}

func (p *ImageProcessor) removeTemp(tempPath string) {
	if tempPath == "" {
		return
	}
	if err := os.Remove(tempPath); err != nil && !os.IsNotExist(err) {
		p.logger.Warn("Failed to remove temp upload", zap.String("path", tempPath), zap.Error(err))
	}
}

func mimeSubtype(item models.UploadedItem) string {
	if sub, ok := strings.CutPrefix(item.MIMEType, "image/"); ok && sub != "" {
		return sub
	}
	ext := strings.TrimPrefix(strings.ToLower(item.Extension), ".")
	if ext == "jpg" {
		return "jpeg"
	}
	return ext
}
