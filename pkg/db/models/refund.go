package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/miguelsantiago/turista-backend/pkg/enums"
)

// Refund is a single refund attempt against a payment.
type Refund struct {
	ID              uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	PaymentID       uuid.UUID          `gorm:"column:payment_id;type:uuid;not null"`
	OrderID         uuid.UUID          `gorm:"column:order_id;type:uuid;not null;index"`
	Status          enums.RefundStatus `gorm:"column:status;type:refund_status;not null;default:'pending'"`
	AmountCents     int                `gorm:"column:amount_cents;not null"`
	Currency        string             `gorm:"column:currency;type:text;not null;default:'PHP'"`
	IdempotencyKey  string             `gorm:"column:idempotency_key;not null;uniqueIndex"`
	GatewayRefundID *string            `gorm:"column:gateway_refund_id"`
	FailureReason   *string            `gorm:"column:failure_reason"`
	SettledAt       *time.Time         `gorm:"column:settled_at"`
	CreatedAt       time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
