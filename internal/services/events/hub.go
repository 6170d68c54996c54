package events

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/phambaophuc/image-seo-metadata/internal/models"
)

const sinkTimeout = 5 * time.Second

// Sink receives every published event, after local subscribers.
type Sink interface {
	PublishEvent(ctx context.Context, ev models.Event) error
}

// Subscription is one listener. BatchID empty means all batches.
type Subscription struct {
	ID      string
	BatchID string
	C       <-chan models.Event

	ch      chan models.Event
	dropped int
}

// Hub fans events out to the subscribers connected at publish time. There is
// no replay. Sends never block: a subscriber whose buffer is full misses the
// event, and the order of what it does receive is the publish order.
type Hub struct {
	mu     sync.Mutex
	subs   map[string]*Subscription
	sinks  []Sink
	closed bool
	logger *zap.Logger
}

func NewHub(logger *zap.Logger, sinks ...Sink) *Hub {
	return &Hub{
		subs:   make(map[string]*Subscription),
		sinks:  sinks,
		logger: logger,
	}
}

func (h *Hub) AddSink(s Sink) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sinks = append(h.sinks, s)
}

func (h *Hub) Subscribe(batchID string, buffer int) *Subscription {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan models.Event, buffer)
	sub := &Subscription{
		ID:      uuid.NewString(),
		BatchID: batchID,
		C:       ch,
		ch:      ch,
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(ch)
		return sub
	}
	h.subs[sub.ID] = sub
	h.logger.Debug("Client subscribed",
		zap.String("subscription_id", sub.ID),
		zap.String("batch_id", batchID),
		zap.Int("subscribers", len(h.subs)),
	)
	return sub
}

func (h *Hub) Unsubscribe(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[sub.ID]; !ok {
		return
	}
	delete(h.subs, sub.ID)
	close(sub.ch)
	h.logger.Debug("Client unsubscribed",
		zap.String("subscription_id", sub.ID),
		zap.Int("dropped", sub.dropped),
	)
}

// Publish delivers ev locally and forwards it to every sink. Sink failures
// are logged and otherwise ignored.
func (h *Hub) Publish(ev models.Event) {
	h.Deliver(ev)

	h.mu.Lock()
	sinks := append([]Sink(nil), h.sinks...)
	h.mu.Unlock()

	for _, s := range sinks {
		ctx, cancel := context.WithTimeout(context.Background(), sinkTimeout)
		if err := s.PublishEvent(ctx, ev); err != nil {
			h.logger.Warn("Failed to forward event",
				zap.String("batch_id", ev.BatchID),
				zap.String("type", string(ev.Type)),
				zap.Error(err),
			)
		}
		cancel()
	}
}

// Deliver hands ev to local subscribers only.
func (h *Hub) Deliver(ev models.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, sub := range h.subs {
		if sub.BatchID != "" && sub.BatchID != ev.BatchID {
			continue
		}
		select {
		case sub.ch <- ev:
		default:
			sub.dropped++
		}
	}
}

func (h *Hub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Close ends every subscription.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for id, sub := range h.subs {
		close(sub.ch)
		delete(h.subs, id)
	}
}
