package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/phambaophuc/image-seo-metadata/internal/models"
)

type recordingSink struct {
	mu     sync.Mutex
	events []models.Event
	err    error
}

func (s *recordingSink) PublishEvent(_ context.Context, ev models.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return s.err
}

func receive(t *testing.T, sub *Subscription) models.Event {
	t.Helper()
	select {
	case ev := <-sub.C:
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return models.Event{}
	}
}

func TestHub_Publish(t *testing.T) {
	t.Run("fans out to every subscriber", func(t *testing.T) {
		hub := NewHub(zaptest.NewLogger(t))
		a := hub.Subscribe("", 4)
		b := hub.Subscribe("", 4)

		hub.Publish(models.NewStartEvent("batch-1", 2))

		for _, sub := range []*Subscription{a, b} {
			if ev := receive(t, sub); ev.Type != models.EventProcessStart || ev.Start.Total != 2 {
				t.Errorf("event = %+v", ev)
			}
		}
	})

	t.Run("filters by batch id", func(t *testing.T) {
		hub := NewHub(zaptest.NewLogger(t))
		sub := hub.Subscribe("batch-2", 4)

		hub.Publish(models.NewStartEvent("batch-1", 1))
		hub.Publish(models.NewStartEvent("batch-2", 3))

		if ev := receive(t, sub); ev.BatchID != "batch-2" {
			t.Errorf("BatchID = %v, want batch-2", ev.BatchID)
		}
		select {
		case ev := <-sub.C:
			t.Errorf("unexpected event %+v", ev)
		default:
		}
	})

	t.Run("preserves order per subscriber", func(t *testing.T) {
		hub := NewHub(zaptest.NewLogger(t))
		sub := hub.Subscribe("", 16)

		for i := 1; i <= 10; i++ {
			hub.Publish(models.NewProgressEvent("b", i, 10, models.ItemResult{}))
		}
		for i := 1; i <= 10; i++ {
			if ev := receive(t, sub); ev.Progress.Completed != i {
				t.Fatalf("Completed = %d, want %d", ev.Progress.Completed, i)
			}
		}
	})

	t.Run("full buffer drops instead of blocking", func(t *testing.T) {
		hub := NewHub(zaptest.NewLogger(t))
		sub := hub.Subscribe("", 1)

		done := make(chan struct{})
		go func() {
			hub.Publish(models.NewStartEvent("b", 1))
			hub.Publish(models.NewStartEvent("b", 2))
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("Publish blocked on a slow subscriber")
		}
		if ev := receive(t, sub); ev.Start.Total != 1 {
			t.Errorf("Total = %d, want 1", ev.Start.Total)
		}
	})

	t.Run("late subscriber gets no replay", func(t *testing.T) {
		hub := NewHub(zaptest.NewLogger(t))
		hub.Publish(models.NewStartEvent("b", 1))
		sub := hub.Subscribe("", 4)

		select {
		case ev := <-sub.C:
			t.Errorf("unexpected replayed event %+v", ev)
		default:
		}
	})

	t.Run("sinks receive events and errors are ignored", func(t *testing.T) {
		failing := &recordingSink{err: errors.New("broker down")}
		ok := &recordingSink{}
		hub := NewHub(zaptest.NewLogger(t), failing)
		hub.AddSink(ok)

		hub.Publish(models.NewErrorEvent("b", "x.jpg", "boom"))

		if len(failing.events) != 1 || len(ok.events) != 1 {
			t.Errorf("sink events = %d, %d", len(failing.events), len(ok.events))
		}
	})
}

func TestHub_Unsubscribe(t *testing.T) {
	hub := NewHub(zaptest.NewLogger(t))
	sub := hub.Subscribe("", 1)
	hub.Unsubscribe(sub)
	hub.Unsubscribe(sub)

	if _, ok := <-sub.C; ok {
		t.Error("channel should be closed")
	}
	if hub.SubscriberCount() != 0 {
		t.Errorf("SubscriberCount() = %d", hub.SubscriberCount())
	}

	hub.Publish(models.NewStartEvent("b", 1))
}

func TestHub_Close(t *testing.T) {
	hub := NewHub(zaptest.NewLogger(t))
	sub := hub.Subscribe("", 1)
	hub.Close()

	if _, ok := <-sub.C; ok {
		t.Error("channel should be closed")
	}
	late := hub.Subscribe("", 1)
	if _, ok := <-late.C; ok {
		t.Error("subscription after Close should be closed")
	}
}

func TestRedisRelay_handle(t *testing.T) {
	hub := NewHub(zaptest.NewLogger(t))
	sub := hub.Subscribe("", 4)
	relay := NewRedisRelay(nil, "", zaptest.NewLogger(t))

	own, _ := json.Marshal(envelope{Origin: relay.origin, Event: models.NewStartEvent("b", 1)})
	relay.handle(hub, own)

	remote, _ := json.Marshal(envelope{Origin: "other-instance", Event: models.NewStartEvent("b", 7)})
	relay.handle(hub, remote)
	relay.handle(hub, []byte("not json"))

	ev := receive(t, sub)
	if ev.Start == nil || ev.Start.Total != 7 {
		t.Errorf("event = %+v, want the remote one", ev)
	}
	select {
	case extra := <-sub.C:
		t.Errorf("unexpected event %+v", extra)
	default:
	}
}
