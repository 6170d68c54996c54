package caption

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/phambaophuc/image-seo-metadata/internal/models"
)

const cacheKeyPrefix = "caption_cache:"

// Cache stores raw caption records by key. A nil slice with a nil error is a miss.
type Cache interface {
	GetFromCache(ctx context.Context, key string) ([]byte, error)
	SetCache(ctx context.Context, key string, data []byte) error
}

type Adapter struct {
	generator Generator
	cache     Cache
	prompt    Prompt
	maxDim    int
	logger    *zap.Logger
}

type Option func(*Adapter)

func WithCache(c Cache) Option {
	return func(a *Adapter) { a.cache = c }
}

func WithMaxUploadDimension(px int) Option {
	return func(a *Adapter) { a.maxDim = px }
}

func NewAdapter(generator Generator, prompt Prompt, logger *zap.Logger, opts ...Option) *Adapter {
	a := &Adapter{
		generator: generator,
		prompt:    prompt,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Caption asks the provider for a metadata record describing the image.
// mimeSubtype is the part after "image/". All failures are *ProviderError.
func (a *Adapter) Caption(ctx context.Context, imagePath, mimeSubtype string) (*models.MetadataRecord, error) {
	key := a.cacheKey(imagePath)
	if rec := a.cached(ctx, key); rec != nil {
		a.logger.Debug("Caption cache hit", zap.String("path", imagePath))
		return rec, nil
	}

	uploadPath, mimeType, cleanup, err := prepareUpload(imagePath, "image/"+mimeSubtype, a.maxDim)
	if err != nil {
		return nil, &ProviderError{Op: "prepare image", Err: err}
	}
	defer cleanup()

	text, err := a.generator.Generate(ctx, Request{
		ImagePath:   uploadPath,
		MIMEType:    mimeType,
		BasePrompt:  a.prompt.Base,
		Instruction: a.prompt.Instruction(),
	})
	if err != nil {
		return nil, &ProviderError{Op: "generate", Err: err}
	}

	rec, err := ParseResponse(text)
	if err != nil {
		return nil, err
	}

	a.store(ctx, key, rec)
	return rec, nil
}

// cacheKey hashes the image bytes together with the prompt. Empty when
// caching is off or the file cannot be read.
func (a *Adapter) cacheKey(imagePath string) string {
	if a.cache == nil {
		return ""
	}

	f, err := os.Open(imagePath)
	if err != nil {
		return ""
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return ""
	}
	fmt.Fprintf(h, "|%s|%s", a.prompt.Base, a.prompt.Instruction())
	return cacheKeyPrefix + hex.EncodeToString(h.Sum(nil))
}

func (a *Adapter) cached(ctx context.Context, key string) *models.MetadataRecord {
	if key == "" {
		return nil
	}

	data, err := a.cache.GetFromCache(ctx, key)
	if err != nil {
		a.logger.Warn("Caption cache lookup failed", zap.Error(err))
		return nil
	}
	if data == nil {
		return nil
	}

	var rec models.MetadataRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil
	}
	return &rec
}

func (a *Adapter) store(ctx context.Context, key string, rec *models.MetadataRecord) {
	if key == "" {
		return
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return
	}
	if err := a.cache.SetCache(ctx, key, data); err != nil {
		a.logger.Warn("Failed to cache caption", zap.Error(err))
	}
}
