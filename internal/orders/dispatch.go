package orders

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"

	"github.com/miguelsantiago/turista-backend/pkg/logger"
	"github.com/miguelsantiago/turista-backend/pkg/metrics"
)

// redisPublisher is the slice of the redis client the dispatcher consumes.
type redisPublisher interface {
	Publish(ctx context.Context, channel string, payload any) error
	OrderEventsChannel(userID string) string
}

// eventPublisher matches the pubsub v2 publisher handle.
type eventPublisher interface {
	Publish(ctx context.Context, msg *pubsub.Message) *pubsub.PublishResult
}

// NotificationDispatcher fans a committed transition out to real-time redis
// channels and the order events topic. Delivery is best-effort at-most-once:
// a failed publish is counted and logged, never retried.
type NotificationDispatcher struct {
	redis   redisPublisher
	topic   eventPublisher
	logg    *logger.Logger
	metrics *metrics.OrderMetrics
	timeout time.Duration
}

// NewNotificationDispatcher wires the dispatcher. Either sink may be nil in
// deployments that run without redis or without the events topic.
func NewNotificationDispatcher(redis redisPublisher, topic eventPublisher, logg *logger.Logger, m *metrics.OrderMetrics, timeout time.Duration) (*NotificationDispatcher, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &NotificationDispatcher{
		redis:   redis,
		topic:   topic,
		logg:    logg,
		metrics: m,
		timeout: timeout,
	}, nil
}

// Dispatch publishes the event to every configured sink.
func (d *NotificationDispatcher) Dispatch(ctx context.Context, event OrderEvent) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	ctx = d.logg.WithOrderID(ctx, event.OrderID.String())

	payload, err := json.Marshal(event)
	if err != nil {
		d.logg.Error(ctx, "order event marshal failed", err)
		d.metrics.IncDispatchDropped()
		return
	}

	d.publishRedis(ctx, event, payload)
	d.publishTopic(ctx, event, payload)
}

func (d *NotificationDispatcher) publishRedis(ctx context.Context, event OrderEvent, payload []byte) {
	if d.redis == nil {
		return
	}
	channels := []string{
		d.redis.OrderEventsChannel(event.UserID.String()),
		d.redis.OrderEventsChannel(event.BusinessID.String()),
	}
	for _, channel := range channels {
		if err := d.redis.Publish(ctx, channel, payload); err != nil {
			d.logg.Error(ctx, "redis order event publish failed", err)
			d.metrics.IncDispatchDropped()
		}
	}
}

func (d *NotificationDispatcher) publishTopic(ctx context.Context, event OrderEvent, payload []byte) {
	if d.topic == nil {
		return
	}
	result := d.topic.Publish(ctx, &pubsub.Message{
		Data: payload,
		Attributes: map[string]string{
			"kind":     string(event.Kind()),
			"order_id": event.OrderID.String(),
		},
	})
	if _, err := result.Get(ctx); err != nil {
		d.logg.Error(ctx, "order event topic publish failed", err)
		d.metrics.IncDispatchDropped()
	}
}
