package caption

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

// prepareUpload returns a path small enough to send to the provider. Images
// within maxDim are sent as-is; larger ones are fitted into a temporary copy
// that cleanup removes. The stored image is never resized.
func prepareUpload(path, mimeType string, maxDim int) (string, string, func(), error) {
	noop := func() {}
	if maxDim <= 0 {
		return path, mimeType, noop, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return "", "", noop, err
	}
	cfg, _, err := image.DecodeConfig(f)
	f.Close()
	if err != nil || (cfg.Width <= maxDim && cfg.Height <= maxDim) {
		return path, mimeType, noop, nil
	}

	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return "", "", noop, fmt.Errorf("failed to decode image: %w", err)
	}
	fitted := imaging.Fit(img, maxDim, maxDim, imaging.Lanczos)

	// imaging cannot encode webp, so those go up as png.
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".webp" || ext == "" {
		ext = ".png"
		mimeType = "image/png"
	}

	tmp, err := os.CreateTemp("", "caption-*"+ext)
	if err != nil {
		return "", "", noop, err
	}
	tmpPath := tmp.Name()
	tmp.Close()

	if err := imaging.Save(fitted, tmpPath, imaging.JPEGQuality(90)); err != nil {
		os.Remove(tmpPath)
		return "", "", noop, fmt.Errorf("failed to save downscaled image: %w", err)
	}
	return tmpPath, mimeType, func() { os.Remove(tmpPath) }, nil
}
