package metadata

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

var pngKeywordKeys = map[string]bool{
	"Keywords":          true,
	"PNG:Keywords":      true,
	"PNG-iTXt:Keywords": true,
}

var keywordPassKeys = map[string]bool{
	"Keywords":          true,
	"XMP:Subject":       true,
	"XMP-dc:Subject":    true,
	"PNG:Keywords":      true,
	"PNG-iTXt:Keywords": true,
}

// fakeBackend keeps tags in memory, keyed by file path. Combined PNG writes
// drop the keyword tags, which is the behaviour the second pass works around.
// A nil value deletes the tag.
type fakeBackend struct {
	mu        sync.Mutex
	files     map[string]Fields
	writes    []Fields
	opened    int
	closed    int
	failWrite bool

	// onWrite runs before every write, outside the backend lock. A non-nil
	// error fails the write.
	onWrite func(path string) error
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{files: make(map[string]Fields)}
}

func (b *fakeBackend) Open() (Session, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.opened++
	return &fakeSession{b: b}, nil
}

func (b *fakeBackend) stored(path string) Fields {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.files[path]
}

type fakeSession struct {
	b *fakeBackend
}

func (s *fakeSession) WriteMetadata(path string, fields Fields) error {
	if s.b.onWrite != nil {
		if err := s.b.onWrite(path); err != nil {
			return err
		}
	}

	s.b.mu.Lock()
	defer s.b.mu.Unlock()

	if s.b.failWrite {
		_ = os.WriteFile(path, []byte("corrupted"), 0644)
		return errors.New("exiftool: write failed")
	}

	s.b.writes = append(s.b.writes, fields)
	stored := s.b.files[path]
	if stored == nil {
		stored = Fields{}
		s.b.files[path] = stored
	}

	keywordOnly := true
	for k := range fields {
		if !keywordPassKeys[k] {
			keywordOnly = false
		}
	}
	png := strings.EqualFold(filepath.Ext(path), ".png")

	for k, v := range fields {
		if png && !keywordOnly && pngKeywordKeys[k] {
			continue
		}
		if v == nil {
			delete(stored, k)
			continue
		}
		stored[k] = v
	}
	return nil
}

func (s *fakeSession) ReadMetadata(path string) ([]Fields, error) {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()

	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	out := Fields{"FileName": filepath.Base(path)}
	for k, v := range s.b.files[path] {
		out[k] = v
	}
	return []Fields{out}, nil
}

func (s *fakeSession) Close() error {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	s.b.closed++
	return nil
}
