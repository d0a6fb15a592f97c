package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/miguelsantiago/turista-backend/pkg/enums"
	"github.com/miguelsantiago/turista-backend/pkg/types"
)

// AuditEntry is an append-only record of an order lifecycle event.
type AuditEntry struct {
	ID         uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID    uuid.UUID            `gorm:"column:order_id;type:uuid;not null;index"`
	EventType  enums.AuditEventType `gorm:"column:event_type;type:text;not null"`
	FromStatus *enums.OrderStatus   `gorm:"column:from_status;type:order_status"`
	ToStatus   *enums.OrderStatus   `gorm:"column:to_status;type:order_status"`
	ActorID    uuid.UUID            `gorm:"column:actor_id;type:uuid;not null"`
	ActorRole  enums.ActorRole      `gorm:"column:actor_role;type:text;not null"`
	Detail     types.JSONMap        `gorm:"column:detail;type:jsonb;serializer:json"`
	CreatedAt  time.Time            `gorm:"column:created_at;autoCreateTime"`
}
