package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/miguelsantiago/turista-backend/pkg/enums"
)

// Payment is the gateway-side record for an order's settlement.
type Payment struct {
	ID               uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID          uuid.UUID           `gorm:"column:order_id;type:uuid;not null;uniqueIndex"`
	Method           enums.PaymentMethod `gorm:"column:method;type:payment_method;not null;default:'cash'"`
	Status           enums.PaymentStatus `gorm:"column:status;type:payment_status;not null;default:'unpaid'"`
	AmountCents      int                 `gorm:"column:amount_cents;not null"`
	Currency         string              `gorm:"column:currency;type:text;not null;default:'PHP'"`
	GatewayPaymentID *string             `gorm:"column:gateway_payment_id"`
	IdempotencyKey   *string             `gorm:"column:idempotency_key"`
	PaidAt           *time.Time          `gorm:"column:paid_at"`
	Refunds          []Refund            `gorm:"foreignKey:PaymentID;constraint:OnDelete:CASCADE"`
	CreatedAt        time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
