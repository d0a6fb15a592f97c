package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/miguelsantiago/turista-backend/pkg/enums"
)

// Actor identifies who is requesting a transition.
type Actor struct {
	UserID     uuid.UUID
	Role       enums.ActorRole
	BusinessID *uuid.UUID
	IP         string
}

// TransitionRequest captures a requested status change on an order. Ephemeral,
// constructed per call, never persisted.
type TransitionRequest struct {
	OrderID         uuid.UUID
	RequestedStatus enums.OrderStatus
	Actor           Actor
	Reason          *string
}

// CancellationRequest is the cancellation-specific entry point; the target
// terminal state is derived from the actor role.
type CancellationRequest struct {
	OrderID uuid.UUID
	Actor   Actor
	Reason  *string
}

// ArrivalRequest carries the code a tourist shows at pickup.
type ArrivalRequest struct {
	OrderID uuid.UUID
	Code    string
	Actor   Actor
}

// RefundOutcome reports the result of a refund attempt. Failures are recorded
// here, never raised to the transition caller.
type RefundOutcome struct {
	Attempted       bool
	Succeeded       bool
	GatewayRefundID string
	AmountCents     int
	FailureReason   string
}

// OrderEvent is the payload fanned out after a committed transition.
type OrderEvent struct {
	OrderID        uuid.UUID          `json:"order_id"`
	OrderNumber    int64              `json:"order_number"`
	UserID         uuid.UUID          `json:"user_id"`
	BusinessID     uuid.UUID          `json:"business_id"`
	PreviousStatus enums.OrderStatus  `json:"previous_status"`
	NewStatus      enums.OrderStatus  `json:"new_status"`
	CancelledBy    *enums.CancelledBy `json:"cancelled_by,omitempty"`
	Reason         *string            `json:"reason,omitempty"`
	ActorID        uuid.UUID          `json:"actor_id"`
	ActorRole      enums.ActorRole    `json:"actor_role"`
	OccurredAt     time.Time          `json:"occurred_at"`
}

// Kind maps the event to the notification category consumers use.
func (e OrderEvent) Kind() enums.NotificationKind {
	switch {
	case e.NewStatus.IsCancellation():
		return enums.NotificationOrderCancelled
	case e.NewStatus == enums.OrderStatusReadyForPickup:
		return enums.NotificationOrderReady
	case e.NewStatus == enums.OrderStatusPickedUp:
		return enums.NotificationOrderPickedUp
	default:
		return enums.NotificationOrderStatusChanged
	}
}
