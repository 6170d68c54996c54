package processor

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"

	_ "golang.org/x/image/webp"

	"github.com/phambaophuc/image-seo-metadata/internal/models"
)

// ValidateItem checks the staged file against the size limit and makes sure
// it decodes as an image.
func (p *ImageProcessor) ValidateItem(item models.UploadedItem) error {
	file, err := os.Open(item.TempPath)
	if err != nil {
		return fmt.Errorf("failed to open upload: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat upload: %w", err)
	}
	if p.opts.MaxFileSize > 0 && info.Size() > p.opts.MaxFileSize {
		return fmt.Errorf("file size %d exceeds maximum allowed size %d", info.Size(), p.opts.MaxFileSize)
	}

	if _, _, err := image.DecodeConfig(file); err != nil {
		return fmt.Errorf("invalid image format: %w", err)
	}
	return nil
}
