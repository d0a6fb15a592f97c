package orders

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/miguelsantiago/turista-backend/pkg/db/models"
	"github.com/miguelsantiago/turista-backend/pkg/enums"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error) {
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		return nil, err
	}
	return order, nil
}

func (r *repository) FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Payment").
		Preload("Payment.Refunds").
		Where("id = ?", orderID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) CASUpdateStatus(ctx context.Context, orderID uuid.UUID, from, to enums.OrderStatus, updates map[string]any) (bool, error) {
	if updates == nil {
		updates = map[string]any{}
	}
	updates["status"] = to

	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ?", orderID, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) UpdateOrderPaymentStatus(ctx context.Context, orderID uuid.UUID, status enums.PaymentStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", orderID).
		Update("payment_status", status).Error
}

func (r *repository) FindPaymentByOrder(ctx context.Context, orderID uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		First(&payment).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *repository) UpdatePayment(ctx context.Context, paymentID uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("id = ?", paymentID).
		Updates(updates).Error
}

func (r *repository) CreateRefund(ctx context.Context, refund *models.Refund) (*models.Refund, error) {
	if err := r.db.WithContext(ctx).Create(refund).Error; err != nil {
		return nil, err
	}
	return refund, nil
}

func (r *repository) FindRefundByIdempotencyKey(ctx context.Context, key string) (*models.Refund, error) {
	var refund models.Refund
	err := r.db.WithContext(ctx).
		Where("idempotency_key = ?", key).
		First(&refund).Error
	if err != nil {
		return nil, err
	}
	return &refund, nil
}

func (r *repository) UpdateRefund(ctx context.Context, refundID uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Refund{}).
		Where("id = ?", refundID).
		Updates(updates).Error
}

func (r *repository) FindPendingOrdersBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error) {
	var stale []models.Order
	q := r.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", enums.OrderStatusPending, cutoff).
		Order("created_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&stale).Error; err != nil {
		return nil, err
	}
	return stale, nil
}

// isNotFound reports whether err is a missing-row lookup.
func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

func (r *repository) FindFailedRefundsBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.Refund, error) {
	var refunds []models.Refund
	q := r.db.WithContext(ctx).
		Where("status = ? AND updated_at < ?", enums.RefundStatusFailed, cutoff).
		Order("updated_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&refunds).Error; err != nil {
		return nil, err
	}
	return refunds, nil
}
