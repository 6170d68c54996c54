package batch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/phambaophuc/image-seo-metadata/internal/models"
)

type scriptedProcessor struct {
	fail map[string]bool
}

func (p *scriptedProcessor) Process(_ context.Context, item models.UploadedItem, outputDir string) (*models.ItemResult, error) {
	if p.fail[item.OriginalName] {
		return nil, errors.New("caption provider: generate: quota exceeded")
	}
	return &models.ItemResult{
		ID:       "id-" + item.OriginalName,
		Filename: item.OriginalName,
		ImageURL: "/processed/" + filepath.Base(outputDir) + "/" + item.OriginalName,
	}, nil
}

type memorySaver struct {
	err     error
	records map[string]*models.BatchRecord
}

func (s *memorySaver) Save(_ context.Context, batchID string, items []models.ItemResult) (*models.BatchRecord, error) {
	if s.err != nil {
		return nil, s.err
	}
	rec := &models.BatchRecord{ID: batchID, Downloadable: true, Data: items}
	if s.records == nil {
		s.records = make(map[string]*models.BatchRecord)
	}
	s.records[batchID] = rec
	return rec, nil
}

type eventLog struct {
	mu     sync.Mutex
	events []models.Event
}

func (l *eventLog) Publish(ev models.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
}

func (l *eventLog) ofType(typ models.EventType) []models.Event {
	var out []models.Event
	for _, ev := range l.events {
		if ev.Type == typ {
			out = append(out, ev)
		}
	}
	return out
}

type recordingScheduler struct {
	batchID string
	dir     string
}

func (s *recordingScheduler) Schedule(_ context.Context, batchID, dir string) error {
	s.batchID, s.dir = batchID, dir
	return nil
}

func items(names ...string) []models.UploadedItem {
	out := make([]models.UploadedItem, 0, len(names))
	for _, n := range names {
		out = append(out, models.UploadedItem{OriginalName: n, MIMEType: "image/jpeg"})
	}
	return out
}

func TestOrchestrator_RunBatch(t *testing.T) {
	t.Run("partial failure", func(t *testing.T) {
		root := t.TempDir()
		events := &eventLog{}
		saver := &memorySaver{}
		scheduler := &recordingScheduler{}
		o := NewOrchestrator(&scriptedProcessor{fail: map[string]bool{"two.jpg": true}},
			saver, events, scheduler, root, zaptest.NewLogger(t))

		rec, err := o.RunBatch(context.Background(), items("one.jpg", "two.jpg", "three.jpg"))
		if err != nil {
			t.Fatalf("RunBatch() error = %v", err)
		}

		if len(rec.Data) != 2 || rec.Data[0].Filename != "one.jpg" || rec.Data[1].Filename != "three.jpg" {
			t.Errorf("Data = %+v", rec.Data)
		}
		errs := events.ofType(models.EventProcessError)
		if len(errs) != 1 || errs[0].Error.File != "two.jpg" {
			t.Errorf("error events = %+v", errs)
		}
		if _, ok := saver.records[rec.ID]; !ok {
			t.Error("record was not saved")
		}
		if scheduler.batchID != rec.ID || scheduler.dir != filepath.Join(root, rec.ID) {
			t.Errorf("scheduled %q %q", scheduler.batchID, scheduler.dir)
		}
	})

	t.Run("events are ordered and progress is monotonic", func(t *testing.T) {
		events := &eventLog{}
		o := NewOrchestrator(&scriptedProcessor{fail: map[string]bool{"b.jpg": true}},
			&memorySaver{}, events, nil, t.TempDir(), zaptest.NewLogger(t))

		rec, err := o.RunBatch(context.Background(), items("a.jpg", "b.jpg", "c.jpg", "d.jpg"))
		if err != nil {
			t.Fatal(err)
		}

		if first := events.events[0]; first.Type != models.EventProcessStart || first.Start.Total != 4 {
			t.Fatalf("first event = %+v", first)
		}
		last := events.events[len(events.events)-1]
		if last.Type != models.EventProcessComplete || len(last.Complete.Results.Data) != 3 {
			t.Fatalf("last event = %+v", last)
		}

		prev := 0
		for _, ev := range events.ofType(models.EventProcessProgress) {
			if ev.Progress.Completed <= prev {
				t.Errorf("Completed went from %d to %d", prev, ev.Progress.Completed)
			}
			if ev.Progress.Total != 4 {
				t.Errorf("Total = %d", ev.Progress.Total)
			}
			prev = ev.Progress.Completed
		}
		if prev != 3 {
			t.Errorf("final Completed = %d, want 3", prev)
		}

		for _, ev := range events.events {
			if ev.BatchID != rec.ID {
				t.Errorf("event %s has BatchID %q, want %q", ev.Type, ev.BatchID, rec.ID)
			}
		}
	})

	t.Run("all items failing still completes", func(t *testing.T) {
		events := &eventLog{}
		o := NewOrchestrator(&scriptedProcessor{fail: map[string]bool{"x.jpg": true}},
			&memorySaver{}, events, nil, t.TempDir(), zaptest.NewLogger(t))

		rec, err := o.RunBatch(context.Background(), items("x.jpg"))
		if err != nil {
			t.Fatal(err)
		}
		if len(rec.Data) != 0 {
			t.Errorf("Data = %+v", rec.Data)
		}
		if len(events.ofType(models.EventProcessComplete)) != 1 {
			t.Error("missing complete event")
		}
	})

	t.Run("save failure reports an error and still schedules cleanup", func(t *testing.T) {
		events := &eventLog{}
		scheduler := &recordingScheduler{}
		o := NewOrchestrator(&scriptedProcessor{}, &memorySaver{err: errors.New("disk full")},
			events, scheduler, t.TempDir(), zaptest.NewLogger(t))

		if _, err := o.RunBatch(context.Background(), items("a.jpg")); err == nil {
			t.Fatal("RunBatch() expected error")
		}
		if len(events.ofType(models.EventProcessComplete)) != 0 {
			t.Error("complete must not be emitted when saving fails")
		}
		if errs := events.ofType(models.EventProcessError); len(errs) != 1 || errs[0].Error.File != "" {
			t.Errorf("error events = %+v", errs)
		}
		if scheduler.batchID == "" {
			t.Error("cleanup was not scheduled")
		}
	})
}

func TestOrchestrator_Begin(t *testing.T) {
	root := t.TempDir()
	o := NewOrchestrator(&scriptedProcessor{}, &memorySaver{}, &eventLog{}, nil, root, zaptest.NewLogger(t))

	a, err := o.Begin()
	if err != nil {
		t.Fatal(err)
	}
	b, err := o.Begin()
	if err != nil {
		t.Fatal(err)
	}

	if a.ID == b.ID || a.OutputDir == b.OutputDir {
		t.Error("batches must get distinct ids and directories")
	}
	if a.State != models.BatchCreated {
		t.Errorf("State = %v", a.State)
	}
	if info, err := os.Stat(a.OutputDir); err != nil || !info.IsDir() {
		t.Errorf("output dir missing: %v", err)
	}

	if _, err := o.Run(context.Background(), a, nil); err != nil {
		t.Fatal(err)
	}
	if a.State != models.BatchCompleted {
		t.Errorf("State after Run = %v", a.State)
	}
}
