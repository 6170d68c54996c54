package handlers

import (
	"io"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// StreamEvents pushes batch lifecycle events as server-sent events. With a
// batchId query parameter only that batch is streamed.
func (h *ImageHandler) StreamEvents(c *gin.Context) {
	sub := h.events.Subscribe(c.Query(batchIDQueryKey), eventBuffer)
	defer h.events.Unsubscribe(sub)

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	c.SSEvent("connected", gin.H{"subscriptionId": sub.ID, "batchId": sub.BatchID})
	c.Writer.Flush()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case ev, ok := <-sub.C:
			if !ok {
				return false
			}
			c.SSEvent(string(ev.Type), ev.Payload())
			return true
		case <-heartbeat.C:
			c.SSEvent("ping", time.Now().Unix())
			return true
		}
	})

	h.logger.Debug("Event stream closed", zap.String("subscription_id", sub.ID))
}
