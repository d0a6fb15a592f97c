package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/miguelsantiago/turista-backend/pkg/enums"
)

// Order is a tourist's pickup order placed against a single business.
type Order struct {
	ID            uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderNumber   int64              `gorm:"column:order_number;not null"`
	UserID        uuid.UUID          `gorm:"column:user_id;type:uuid;not null"`
	BusinessID    uuid.UUID          `gorm:"column:business_id;type:uuid;not null"`
	Status        enums.OrderStatus  `gorm:"column:status;type:order_status;not null;default:'draft'"`
	PaymentStatus enums.PaymentStatus `gorm:"column:payment_status;type:payment_status;not null;default:'unpaid'"`
	Currency      string             `gorm:"column:currency;type:text;not null;default:'PHP'"`
	SubtotalCents int                `gorm:"column:subtotal_cents;not null"`
	FeeCents      int                `gorm:"column:fee_cents;not null;default:0"`
	TotalCents    int                `gorm:"column:total_cents;not null"`
	ArrivalCode   *string            `gorm:"column:arrival_code"`
	Notes         *string            `gorm:"column:notes"`
	CancelledBy   *enums.CancelledBy `gorm:"column:cancelled_by;type:text"`
	CancelReason  *string            `gorm:"column:cancel_reason"`
	AcceptedAt    *time.Time         `gorm:"column:accepted_at"`
	ReadyAt       *time.Time         `gorm:"column:ready_at"`
	PickedUpAt    *time.Time         `gorm:"column:picked_up_at"`
	CompletedAt   *time.Time         `gorm:"column:completed_at"`
	CancelledAt   *time.Time         `gorm:"column:cancelled_at"`
	Payment       *Payment           `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt     time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
