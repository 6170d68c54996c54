package handlers

import (
	"archive/zip"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/klauspost/compress/flate"
	"go.uber.org/zap"

	"github.com/phambaophuc/image-seo-metadata/internal/services/metadata"
	"github.com/phambaophuc/image-seo-metadata/pkg/utils"
)

// DownloadBatch streams every file of a still-downloadable batch as a zip.
// Backup copies of files being updated are left out.
func (h *ImageHandler) DownloadBatch(c *gin.Context) {
	batchID := c.Param(requestIDParamKey)
	if !utils.IsSafeSegment(batchID) {
		h.respondError(c, http.StatusBadRequest, "Invalid request id")
		return
	}

	rec, err := h.repo.Get(c.Request.Context(), batchID)
	if err != nil || !rec.Downloadable {
		if err != nil {
			h.logger.Debug("Download lookup failed", zap.String("batch_id", batchID), zap.Error(err))
		}
		h.respondError(c, http.StatusNotFound, "Directory not found or expired")
		return
	}

	dir := filepath.Join(h.config.Storage.ProcessedPath, batchID)
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		h.respondError(c, http.StatusNotFound, "Directory not found or expired")
		return
	}

	c.Header("Content-Type", "application/zip")
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.zip"`, batchID))
	c.Status(http.StatusOK)

	if err := writeZip(c.Writer, dir); err != nil {
		// Headers are already sent.
		_ = c.Error(fmt.Errorf("batch %s: %w", batchID, err))
	}
}

func writeZip(w io.Writer, dir string) error {
	zw := zip.NewWriter(w)
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, flate.BestCompression)
	})

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || isBackup(d.Name()) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		header, err := zip.FileInfoHeader(info)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		header.Name = filepath.ToSlash(rel)
		header.Method = zip.Deflate

		entry, err := zw.CreateHeader(header)
		if err != nil {
			return err
		}

		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()

		_, err = io.Copy(entry, f)
		return err
	})
	if err != nil {
		zw.Close()
		return fmt.Errorf("failed to write archive: %w", err)
	}

	return zw.Close()
}

func isBackup(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), metadata.BackupSuffix)
}

// ServeProcessed serves files under the processed directory at the public
// prefix. Backup copies answer 404.
func (h *ImageHandler) ServeProcessed() gin.HandlerFunc {
	files := http.StripPrefix(h.config.Storage.PublicPrefix,
		http.FileServer(gin.Dir(h.config.Storage.ProcessedPath, false)))

	return func(c *gin.Context) {
		if isBackup(c.Param("filepath")) {
			c.Status(http.StatusNotFound)
			return
		}
		files.ServeHTTP(c.Writer, c.Request)
	}
}
