package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/miguelsantiago/turista-backend/pkg/db/models"
	"github.com/miguelsantiago/turista-backend/pkg/enums"
)

// Repository defines persistence operations for order lifecycle tables.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error)
	FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	// CASUpdateStatus applies the conditional status update keyed on the
	// previously read status. Returns false when zero rows matched, meaning a
	// concurrent transition won the race.
	CASUpdateStatus(ctx context.Context, orderID uuid.UUID, from, to enums.OrderStatus, updates map[string]any) (bool, error)
	UpdateOrderPaymentStatus(ctx context.Context, orderID uuid.UUID, status enums.PaymentStatus) error
	FindPaymentByOrder(ctx context.Context, orderID uuid.UUID) (*models.Payment, error)
	UpdatePayment(ctx context.Context, paymentID uuid.UUID, updates map[string]any) error
	CreateRefund(ctx context.Context, refund *models.Refund) (*models.Refund, error)
	FindRefundByIdempotencyKey(ctx context.Context, key string) (*models.Refund, error)
	UpdateRefund(ctx context.Context, refundID uuid.UUID, updates map[string]any) error
	FindFailedRefundsBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.Refund, error)
	FindPendingOrdersBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error)
}
