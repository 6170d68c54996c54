package caption

import (
	"context"
	"errors"
	"image"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/disintegration/imaging"
	"go.uber.org/zap/zaptest"
)

type fakeGenerator struct {
	mu       sync.Mutex
	response string
	err      error
	calls    []Request
	sizes    []image.Point
}

func (g *fakeGenerator) Generate(_ context.Context, req Request) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, req)
	if img, err := imaging.Open(req.ImagePath); err == nil {
		g.sizes = append(g.sizes, img.Bounds().Size())
	}
	return g.response, g.err
}

type memoryCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (c *memoryCache) GetFromCache(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.data[key], nil
}

func (c *memoryCache) SetCache(_ context.Context, key string, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.data == nil {
		c.data = make(map[string][]byte)
	}
	c.data[key] = data
	return nil
}

const validResponse = "```json\n{\"title\":\"Green forest\",\"description\":\"Sunlight through trees\",\"keywords\":[\"forest\",\"trees\"]}\n```"

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestAdapter_Caption(t *testing.T) {
	prompt := DefaultPrompt(90, 120, 45)

	t.Run("returns the parsed record", func(t *testing.T) {
		gen := &fakeGenerator{response: validResponse}
		a := NewAdapter(gen, prompt, zaptest.NewLogger(t))
		path := writeFile(t, "forest.jpg", []byte("not really a jpeg"))

		rec, err := a.Caption(context.Background(), path, "jpeg")
		if err != nil {
			t.Fatalf("Caption() error = %v", err)
		}
		if rec.Title != "Green forest" || len(rec.Keywords) != 2 {
			t.Errorf("Caption() = %+v", rec)
		}
		if gen.calls[0].MIMEType != "image/jpeg" {
			t.Errorf("MIMEType = %v", gen.calls[0].MIMEType)
		}
		if gen.calls[0].ImagePath != path {
			t.Errorf("ImagePath = %v, want original", gen.calls[0].ImagePath)
		}
	})

	t.Run("generator failure is a provider error", func(t *testing.T) {
		gen := &fakeGenerator{err: errors.New("quota exceeded")}
		a := NewAdapter(gen, prompt, zaptest.NewLogger(t))
		path := writeFile(t, "forest.jpg", []byte("x"))

		_, err := a.Caption(context.Background(), path, "jpeg")
		var pe *ProviderError
		if !errors.As(err, &pe) || pe.Op != "generate" {
			t.Fatalf("Caption() error = %v", err)
		}
	})

	t.Run("invalid json is a provider error", func(t *testing.T) {
		gen := &fakeGenerator{response: "no json here"}
		a := NewAdapter(gen, prompt, zaptest.NewLogger(t))
		path := writeFile(t, "forest.jpg", []byte("x"))

		_, err := a.Caption(context.Background(), path, "jpeg")
		var pe *ProviderError
		if !errors.As(err, &pe) {
			t.Fatalf("Caption() error = %v, want *ProviderError", err)
		}
	})

	t.Run("identical image is served from cache", func(t *testing.T) {
		gen := &fakeGenerator{response: validResponse}
		cache := &memoryCache{}
		a := NewAdapter(gen, prompt, zaptest.NewLogger(t), WithCache(cache))
		first := writeFile(t, "a.jpg", []byte("same bytes"))
		second := writeFile(t, "b.jpg", []byte("same bytes"))

		if _, err := a.Caption(context.Background(), first, "jpeg"); err != nil {
			t.Fatal(err)
		}
		rec, err := a.Caption(context.Background(), second, "jpeg")
		if err != nil {
			t.Fatal(err)
		}
		if len(gen.calls) != 1 {
			t.Errorf("generator calls = %d, want 1", len(gen.calls))
		}
		if rec.Title != "Green forest" {
			t.Errorf("cached Title = %v", rec.Title)
		}
	})

	t.Run("oversized image is downscaled for upload only", func(t *testing.T) {
		gen := &fakeGenerator{response: validResponse}
		a := NewAdapter(gen, prompt, zaptest.NewLogger(t), WithMaxUploadDimension(64))

		path := filepath.Join(t.TempDir(), "big.png")
		if err := imaging.Save(imaging.New(200, 100, image.White.C), path); err != nil {
			t.Fatal(err)
		}

		if _, err := a.Caption(context.Background(), path, "png"); err != nil {
			t.Fatalf("Caption() error = %v", err)
		}
		if gen.calls[0].ImagePath == path {
			t.Error("generator received the original path")
		}
		if len(gen.sizes) != 1 || gen.sizes[0] != (image.Point{X: 64, Y: 32}) {
			t.Errorf("uploaded size = %v, want 64x32", gen.sizes)
		}
		if _, err := os.Stat(gen.calls[0].ImagePath); !os.IsNotExist(err) {
			t.Error("temporary upload was not removed")
		}
		original, err := imaging.Open(path)
		if err != nil || original.Bounds().Dx() != 200 {
			t.Error("original image was modified")
		}
	})
}
