package handlers

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/phambaophuc/image-seo-metadata/internal/models"
	"github.com/phambaophuc/image-seo-metadata/internal/services/store"
	"github.com/phambaophuc/image-seo-metadata/pkg/utils"
)

// === REQUEST PARSING ===

func (h *ImageHandler) parseMultipartFiles(c *gin.Context) ([]*multipart.FileHeader, error) {
	limit := h.config.Storage.MaxFileSize*int64(h.config.Storage.MaxFiles) + multipartMemory
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)

	if err := c.Request.ParseMultipartForm(multipartMemory); err != nil {
		return nil, fmt.Errorf("failed to parse form data: %v", err)
	}

	files := c.Request.MultipartForm.File[imagesParamKey]
	if len(files) == 0 {
		return nil, fmt.Errorf("no images provided")
	}

	return files, nil
}

func (h *ImageHandler) validateUploads(files []*multipart.FileHeader) error {
	if len(files) > h.config.Storage.MaxFiles {
		return fmt.Errorf("too many files: maximum is %d", h.config.Storage.MaxFiles)
	}

	for _, fh := range files {
		ct := fh.Header.Get("Content-Type")
		if !utils.IsValidImageType(ct, h.config.Storage.AllowedTypes) {
			return fmt.Errorf("unsupported file type for %s: %s", fh.Filename, ct)
		}
		if fh.Size > h.config.Storage.MaxFileSize {
			return fmt.Errorf("file %s exceeds maximum size of %d bytes", fh.Filename, h.config.Storage.MaxFileSize)
		}
	}
	return nil
}

// resolveImagePath maps a public image URL back to its batch id and the file
// under the output root.
func (h *ImageHandler) resolveImagePath(imagePath string) (string, string, error) {
	p := imagePath
	if u, err := url.Parse(imagePath); err == nil && u.Path != "" {
		p = u.Path
	}

	prefix := "/" + strings.Trim(h.config.Storage.PublicPrefix, "/")
	if prefix != "/" {
		if !strings.HasPrefix(p, prefix+"/") {
			return "", "", fmt.Errorf("imagePath must start with %s/", prefix)
		}
		p = strings.TrimPrefix(p, prefix)
	}

	rel := strings.Trim(p, "/")
	parts := strings.Split(rel, "/")
	if len(parts) != 2 || !utils.IsSafeSegment(parts[0]) || !utils.IsSafeSegment(parts[1]) {
		return "", "", fmt.Errorf("invalid imagePath: %s", imagePath)
	}

	path, err := utils.ResolveUnder(h.config.Storage.ProcessedPath, rel)
	if err != nil {
		return "", "", fmt.Errorf("invalid imagePath: %w", err)
	}
	return parts[0], path, nil
}

// === FILE OPERATIONS ===

func (h *ImageHandler) stageUploads(c *gin.Context, dir string, files []*multipart.FileHeader) ([]models.UploadedItem, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create staging directory: %w", err)
	}

	items := make([]models.UploadedItem, 0, len(files))
	for _, fh := range files {
		name := utils.SafeFilename(fh.Filename)
		dst := utils.UniqueFilename(dir, name)
		if err := c.SaveUploadedFile(fh, dst); err != nil {
			return nil, fmt.Errorf("failed to save %s: %w", fh.Filename, err)
		}

		items = append(items, models.UploadedItem{
			OriginalName: fh.Filename,
			MIMEType:     fh.Header.Get("Content-Type"),
			Extension:    strings.ToLower(filepath.Ext(dst)),
			TempPath:     dst,
			Size:         fh.Size,
		})
	}

	return items, nil
}

// === RESPONSE HANDLING ===

func (h *ImageHandler) respondError(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, models.APIResponse{
		Success: false,
		Error:   message,
	})
}

func (h *ImageHandler) respondStoreError(c *gin.Context, err error) {
	if errors.Is(err, store.ErrNotFound) {
		h.respondError(c, http.StatusNotFound, "Batch not found")
		return
	}
	h.logger.Error("Result store failed", zap.Error(err))
	h.respondError(c, http.StatusInternalServerError, "Failed to load batch")
}
