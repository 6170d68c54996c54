package queue

import (
	"context"
	"fmt"
)

// Stats reports the depth and consumer count of the event queue.
func (q *QueueService) Stats(_ context.Context) (map[string]interface{}, error) {
	if q.channel == nil {
		return nil, fmt.Errorf("channel not available")
	}
	queueInfo, err := q.channel.QueueInspect(q.queueName)
	if err != nil {
		return nil, fmt.Errorf("failed to inspect queue: %w", err)
	}

	return map[string]interface{}{
		"name":      queueInfo.Name,
		"messages":  queueInfo.Messages,
		"consumers": queueInfo.Consumers,
	}, nil
}

// HealthCheck reports the broker connection under the "rabbitmq" key.
func (q *QueueService) HealthCheck(_ context.Context) map[string]string {
	status := "healthy"
	switch {
	case q.conn == nil || q.conn.IsClosed():
		status = "unhealthy: connection closed"
	case q.channel == nil:
		status = "unhealthy: channel not available"
	}
	return map[string]string{"rabbitmq": status}
}
