package storage

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/phambaophuc/image-seo-metadata/internal/config"
)

func TestStorageService_Disabled(t *testing.T) {
	s := NewStorageService(&config.Config{}, zaptest.NewLogger(t))
	ctx := context.Background()

	if s.MirrorEnabled() || s.CacheEnabled() {
		t.Fatal("backends should be disabled without configuration")
	}

	data, err := s.GetFromCache(ctx, "caption_cache:x")
	if data != nil || err != nil {
		t.Errorf("GetFromCache() = %v, %v; want miss", data, err)
	}
	if err := s.SetCache(ctx, "caption_cache:x", []byte("{}")); err != nil {
		t.Errorf("SetCache() error = %v", err)
	}
	if _, err := s.Mirror(ctx, "/tmp/x.jpg", "b/x.jpg"); err == nil {
		t.Error("Mirror() should fail when disabled")
	}

	status := s.HealthCheck(ctx)
	if status["redis"] != "disabled" || status["supabase"] != "disabled" {
		t.Errorf("HealthCheck() = %v", status)
	}
	if err := s.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestCountKeys(t *testing.T) {
	t.Run("follows the cursor across pages", func(t *testing.T) {
		pages := map[uint64]struct {
			keys []string
			next uint64
		}{
			0:  {[]string{"caption_cache:a", "caption_cache:b"}, 17},
			17: {nil, 42},
			42: {[]string{"caption_cache:b", "caption_cache:c"}, 0},
		}
		var cursors []uint64
		n, err := countKeys(func(cursor uint64) ([]string, uint64, error) {
			cursors = append(cursors, cursor)
			p := pages[cursor]
			return p.keys, p.next, nil
		})
		if err != nil {
			t.Fatalf("countKeys() error = %v", err)
		}
		if n != 3 {
			t.Errorf("countKeys() = %d, want 3", n)
		}
		if len(cursors) != 3 || cursors[1] != 17 || cursors[2] != 42 {
			t.Errorf("cursors = %v", cursors)
		}
	})

	t.Run("returns scan errors", func(t *testing.T) {
		wantErr := errors.New("connection reset")
		if _, err := countKeys(func(uint64) ([]string, uint64, error) {
			return nil, 0, wantErr
		}); !errors.Is(err, wantErr) {
			t.Errorf("countKeys() error = %v", err)
		}
	})
}

func TestGetCacheStats_Disabled(t *testing.T) {
	s := NewStorageService(&config.Config{}, zaptest.NewLogger(t))
	if _, err := s.GetCacheStats(context.Background()); err == nil {
		t.Error("GetCacheStats() should fail when redis is disabled")
	}
}
