package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/miguelsantiago/turista-backend/pkg/db/models"
	"github.com/miguelsantiago/turista-backend/pkg/enums"
	"github.com/miguelsantiago/turista-backend/pkg/logger"
	"github.com/miguelsantiago/turista-backend/pkg/types"
)

const (
	orderNotificationConsumer = "order-notifications"
	dedupeTTL                 = 24 * time.Hour
)

type repository interface {
	Create(ctx context.Context, notification *models.Notification) error
}

// businessResolver maps a business to the user who should be notified for it.
type businessResolver interface {
	FindBusiness(ctx context.Context, businessID uuid.UUID) (*models.Business, error)
}

// dedupeStore marks processed message ids so redeliveries are dropped.
type dedupeStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	IdempotencyKey(scope, id string) string
}

// Consumer reads committed order events off the bus and materializes
// per-recipient notification rows.
type Consumer struct {
	repo         repository
	businesses   businessResolver
	subscription *pubsub.Subscriber
	dedupe       dedupeStore
	logg         *logger.Logger
}

// NewConsumer builds the order notification consumer.
func NewConsumer(repo repository, businesses businessResolver, subscription *pubsub.Subscriber, dedupe dedupeStore, logg *logger.Logger) (*Consumer, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if businesses == nil {
		return nil, fmt.Errorf("business resolver required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("order events subscription required")
	}
	if dedupe == nil {
		return nil, fmt.Errorf("dedupe store required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		repo:         repo,
		businesses:   businesses,
		subscription: subscription,
		dedupe:       dedupe,
		logg:         logg,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

// orderEventPayload mirrors the wire shape published by the transition engine.
type orderEventPayload struct {
	OrderID        uuid.UUID          `json:"order_id"`
	OrderNumber    int64              `json:"order_number"`
	UserID         uuid.UUID          `json:"user_id"`
	BusinessID     uuid.UUID          `json:"business_id"`
	PreviousStatus enums.OrderStatus  `json:"previous_status"`
	NewStatus      enums.OrderStatus  `json:"new_status"`
	CancelledBy    *enums.CancelledBy `json:"cancelled_by,omitempty"`
	Reason         *string            `json:"reason,omitempty"`
	OccurredAt     time.Time          `json:"occurred_at"`
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"kind":       msg.Attributes["kind"],
	})

	var payload orderEventPayload
	if err := json.Unmarshal(msg.Data, &payload); err != nil {
		c.logg.Error(logCtx, "failed to decode order event", err)
		return processResult{ack: true}
	}
	if payload.OrderID == uuid.Nil {
		c.logg.Error(logCtx, "order event missing order id", nil)
		return processResult{ack: true}
	}

	dedupeKey := c.dedupe.IdempotencyKey(orderNotificationConsumer, msg.ID)
	fresh, err := c.dedupe.SetNX(ctx, dedupeKey, time.Now().UTC().Format(time.RFC3339), dedupeTTL)
	if err != nil {
		c.logg.Error(logCtx, "dedupe check failed", err)
		return processResult{nack: true}
	}
	if !fresh {
		c.logg.Info(logCtx, "order event already processed")
		return processResult{ack: true}
	}

	logCtx = c.logg.WithOrderID(logCtx, payload.OrderID.String())
	if err := c.handleEvent(ctx, payload, logCtx); err != nil {
		c.logg.Error(logCtx, "notification handling failed", err)
		_ = c.dedupe.Del(ctx, dedupeKey)
		return processResult{nack: true}
	}

	return processResult{ack: true}
}

func (c *Consumer) handleEvent(ctx context.Context, payload orderEventPayload, logCtx context.Context) error {
	kind := kindForEvent(payload)
	title, body := renderEvent(payload)
	detail := types.JSONMap{
		"order_number":    payload.OrderNumber,
		"previous_status": payload.PreviousStatus,
		"new_status":      payload.NewStatus,
	}
	if payload.Reason != nil {
		detail["reason"] = *payload.Reason
	}

	if err := c.repo.Create(ctx, &models.Notification{
		RecipientID: payload.UserID,
		OrderID:     payload.OrderID,
		Kind:        kind,
		Title:       title,
		Body:        body,
		Payload:     detail,
	}); err != nil {
		return fmt.Errorf("tourist notification: %w", err)
	}

	business, err := c.businesses.FindBusiness(ctx, payload.BusinessID)
	if err != nil {
		return fmt.Errorf("resolving business recipient: %w", err)
	}
	if err := c.repo.Create(ctx, &models.Notification{
		RecipientID: business.OwnerID,
		OrderID:     payload.OrderID,
		Kind:        kind,
		Title:       title,
		Body:        body,
		Payload:     detail,
	}); err != nil {
		return fmt.Errorf("business notification: %w", err)
	}

	c.logg.Info(logCtx, "order notifications created")
	return nil
}

func kindForEvent(payload orderEventPayload) enums.NotificationKind {
	switch {
	case payload.NewStatus.IsCancellation():
		return enums.NotificationOrderCancelled
	case payload.NewStatus == enums.OrderStatusReadyForPickup:
		return enums.NotificationOrderReady
	case payload.NewStatus == enums.OrderStatusPickedUp:
		return enums.NotificationOrderPickedUp
	default:
		return enums.NotificationOrderStatusChanged
	}
}

func renderEvent(payload orderEventPayload) (title, body string) {
	number := payload.OrderNumber
	switch {
	case payload.NewStatus.IsCancellation():
		title = "Order cancelled"
		body = fmt.Sprintf("Order #%d was cancelled.", number)
		if payload.Reason != nil && *payload.Reason != "" {
			body = fmt.Sprintf("Order #%d was cancelled: %s", number, *payload.Reason)
		}
	case payload.NewStatus == enums.OrderStatusReadyForPickup:
		title = "Order ready for pickup"
		body = fmt.Sprintf("Order #%d is ready. Show your arrival code at the counter.", number)
	case payload.NewStatus == enums.OrderStatusPickedUp:
		title = "Order picked up"
		body = fmt.Sprintf("Order #%d has been picked up.", number)
	default:
		title = "Order updated"
		body = fmt.Sprintf("Order #%d moved from %s to %s.", number, payload.PreviousStatus, payload.NewStatus)
	}
	return title, body
}
