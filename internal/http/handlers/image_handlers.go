package handlers

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/phambaophuc/image-seo-metadata/internal/config"
	"github.com/phambaophuc/image-seo-metadata/internal/models"
	"github.com/phambaophuc/image-seo-metadata/internal/services/events"
	"github.com/phambaophuc/image-seo-metadata/internal/services/metadata"
	"github.com/phambaophuc/image-seo-metadata/internal/services/store"
)

const (
	imagesParamKey     = "images"
	existingIDParamKey = "existingId"
	batchIDQueryKey    = "batchId"
	requestIDParamKey  = "requestId"
	multipartMemory    = 32 << 20
	eventBuffer        = 64
	heartbeatInterval  = 15 * time.Second
)

// BatchRunner allocates batches and processes their staged uploads.
type BatchRunner interface {
	Begin() (*models.Batch, error)
	Run(ctx context.Context, b *models.Batch, items []models.UploadedItem) (*models.BatchRecord, error)
}

type EventSource interface {
	Subscribe(batchID string, buffer int) *events.Subscription
	Unsubscribe(sub *events.Subscription)
}

type MetadataUpdater interface {
	Update(ctx context.Context, path string, upd *models.MetadataUpdate) (*models.MetadataRecord, error)
}

type HealthReporter interface {
	HealthCheck(ctx context.Context) map[string]string
}

// HealthFunc adapts a plain function to HealthReporter.
type HealthFunc func(ctx context.Context) map[string]string

func (f HealthFunc) HealthCheck(ctx context.Context) map[string]string { return f(ctx) }

// StatsFunc reports counters of one backend for the stats endpoint.
type StatsFunc func(ctx context.Context) (map[string]interface{}, error)

type ImageHandler struct {
	batches  BatchRunner
	events   EventSource
	repo     store.Repository
	injector MetadataUpdater
	health   []HealthReporter
	stats    map[string]StatsFunc
	logger   *zap.Logger
	config   *config.Config

	inflight sync.WaitGroup
}

func NewImageHandler(
	batches BatchRunner,
	events EventSource,
	repo store.Repository,
	injector MetadataUpdater,
	logger *zap.Logger,
	config *config.Config,
	health ...HealthReporter,
) *ImageHandler {
	return &ImageHandler{
		batches:  batches,
		events:   events,
		repo:     repo,
		injector: injector,
		health:   health,
		stats:    make(map[string]StatsFunc),
		logger:   logger,
		config:   config,
	}
}

// ProcessImages stages the uploaded files and answers immediately. The batch
// keeps running after the client disconnects; progress goes out as events.
func (h *ImageHandler) ProcessImages(c *gin.Context) {
	files, err := h.parseMultipartFiles(c)
	if err != nil {
		h.respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.validateUploads(files); err != nil {
		h.respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	if existing := c.PostForm(existingIDParamKey); existing != "" {
		h.logger.Info("Ignoring existingId hint, a new batch is always created",
			zap.String("existing_id", existing))
	}

	b, err := h.batches.Begin()
	if err != nil {
		h.logger.Error("Failed to allocate batch", zap.Error(err))
		h.respondError(c, http.StatusInternalServerError, "Failed to start processing")
		return
	}

	stageDir := filepath.Join(h.config.Storage.UploadPath, b.ID)
	items, err := h.stageUploads(c, stageDir, files)
	if err != nil {
		h.logger.Error("Failed to stage uploads", zap.String("batch_id", b.ID), zap.Error(err))
		_ = os.RemoveAll(stageDir)
		_ = os.RemoveAll(b.OutputDir)
		h.respondError(c, http.StatusInternalServerError, "Failed to store uploaded files")
		return
	}

	ctx := context.WithoutCancel(c.Request.Context())
	h.inflight.Add(1)
	go func() {
		defer h.inflight.Done()
		defer os.RemoveAll(stageDir)

		if _, err := h.batches.Run(ctx, b, items); err != nil {
			h.logger.Error("Batch failed", zap.String("batch_id", b.ID), zap.Error(err))
		}
	}()

	c.JSON(http.StatusOK, models.ProcessImagesResponse{
		Success:     true,
		Message:     "Processing started",
		TotalImages: len(items),
		RequestID:   b.ID,
	})
}

// UpdateImage rewrites the metadata of one processed image and persists the
// merged fields on its batch record.
func (h *ImageHandler) UpdateImage(c *gin.Context) {
	var req models.UpdateImageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}
	if req.UpdateData.IsEmpty() {
		h.respondError(c, http.StatusBadRequest, "No update data provided")
		return
	}
	if req.UpdateData.HasLineBreak() {
		h.respondError(c, http.StatusBadRequest, "Metadata values must be single-line")
		return
	}

	batchID, path, err := h.resolveImagePath(req.ImagePath)
	if err != nil {
		h.respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	if req.BatchID != "" && req.BatchID != batchID {
		h.respondError(c, http.StatusBadRequest, "imagePath does not belong to batch "+req.BatchID)
		return
	}

	ctx := c.Request.Context()
	rec, err := h.repo.Get(ctx, batchID)
	if err != nil {
		h.respondStoreError(c, err)
		return
	}
	item := rec.Item(req.ItemID)
	if item == nil || item.Filename != filepath.Base(path) {
		h.respondError(c, http.StatusNotFound, "Image not found")
		return
	}

	if _, err := h.injector.Update(ctx, path, &req.UpdateData); err != nil {
		h.logger.Error("Failed to update image metadata",
			zap.String("batch_id", batchID),
			zap.String("path", path),
			zap.Error(err),
		)
		switch {
		case errors.Is(err, metadata.ErrMissingInput):
			h.respondError(c, http.StatusNotFound, "Image file not found or expired")
		case errors.Is(err, metadata.ErrUnsupportedFormat), errors.Is(err, metadata.ErrInvalidValue):
			h.respondError(c, http.StatusBadRequest, err.Error())
		default:
			h.respondError(c, http.StatusInternalServerError, "Failed to update image metadata")
		}
		return
	}

	updated, err := h.repo.UpdateItemFields(ctx, batchID, req.ItemID, req.UpdateData)
	if err != nil {
		h.respondStoreError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.UpdateImageResponse{
		Success:       true,
		UpdatedFields: req.UpdateData.Fields(),
		Metadata:      updated.Metadata,
	})
}

func (h *ImageHandler) GetBatch(c *gin.Context) {
	rec, err := h.repo.Get(c.Request.Context(), c.Param(requestIDParamKey))
	if err != nil {
		h.respondStoreError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.APIResponse{
		Success: true,
		Data:    rec,
	})
}

// HealthCheck
func (h *ImageHandler) HealthCheck(c *gin.Context) {
	services := make(map[string]string)
	for _, r := range h.health {
		for name, status := range r.HealthCheck(c.Request.Context()) {
			services[name] = status
		}
	}
	report := models.NewHealthCheck(services)

	statusCode := http.StatusOK
	if !report.Healthy() {
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, models.APIResponse{
		Success: report.Healthy(),
		Data:    report,
	})
}

// AddStats registers a backend for GET /api/v1/stats. Call before serving.
func (h *ImageHandler) AddStats(name string, fn StatsFunc) {
	h.stats[name] = fn
}

func (h *ImageHandler) GetStats(c *gin.Context) {
	out := make(map[string]interface{}, len(h.stats))
	for name, fn := range h.stats {
		s, err := fn(c.Request.Context())
		if err != nil {
			h.logger.Warn("Failed to collect stats", zap.String("backend", name), zap.Error(err))
			out[name] = gin.H{"error": err.Error()}
			continue
		}
		out[name] = s
	}

	c.JSON(http.StatusOK, models.APIResponse{
		Success: true,
		Data:    out,
	})
}

// Wait blocks until running batches finish or ctx is done.
func (h *ImageHandler) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		h.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
