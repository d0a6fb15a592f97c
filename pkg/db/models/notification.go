package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/miguelsantiago/turista-backend/pkg/enums"
	"github.com/miguelsantiago/turista-backend/pkg/types"
)

// Notification is a per-recipient message produced by order events.
type Notification struct {
	ID          uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	RecipientID uuid.UUID              `gorm:"column:recipient_id;type:uuid;not null;index"`
	OrderID     uuid.UUID              `gorm:"column:order_id;type:uuid;not null;index"`
	Kind        enums.NotificationKind `gorm:"column:kind;type:text;not null"`
	Title       string                 `gorm:"column:title;not null"`
	Body        string                 `gorm:"column:body;not null"`
	Payload     types.JSONMap          `gorm:"column:payload;type:jsonb;serializer:json"`
	ReadAt      *time.Time             `gorm:"column:read_at"`
	CreatedAt   time.Time              `gorm:"column:created_at;autoCreateTime"`
}
