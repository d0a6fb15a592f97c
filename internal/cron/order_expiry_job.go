package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/miguelsantiago/turista-backend/pkg/db/models"
	"github.com/miguelsantiago/turista-backend/pkg/enums"
	"github.com/miguelsantiago/turista-backend/pkg/logger"
)

const (
	defaultPendingTTL      = 24 * time.Hour
	defaultExpiryBatchSize = 100
)

const expiredOrderReason = "order expired before the business responded"

type staleOrderRepo interface {
	FindPendingOrdersBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error)
	CASUpdateStatus(ctx context.Context, orderID uuid.UUID, from, to enums.OrderStatus, updates map[string]any) (bool, error)
}

// OrderExpiryJobParams configure the stale pending order sweep.
type OrderExpiryJobParams struct {
	Logger     *logger.Logger
	Orders     staleOrderRepo
	PendingTTL time.Duration
	BatchSize  int
}

// NewOrderExpiryJob builds the job that cancels pending orders the business
// never acted on. The conditional update keeps it safe against a business
// accepting the order mid-sweep.
func NewOrderExpiryJob(params OrderExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	ttl := params.PendingTTL
	if ttl <= 0 {
		ttl = defaultPendingTTL
	}
	batchSize := params.BatchSize
	if batchSize <= 0 {
		batchSize = defaultExpiryBatchSize
	}
	return &orderExpiryJob{
		logg:      params.Logger,
		orders:    params.Orders,
		ttl:       ttl,
		batchSize: batchSize,
		now:       time.Now,
	}, nil
}

type orderExpiryJob struct {
	logg      *logger.Logger
	orders    staleOrderRepo
	ttl       time.Duration
	batchSize int
	now       func() time.Time
}

func (j *orderExpiryJob) Name() string { return "order-expiry" }

func (j *orderExpiryJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	cutoff := now.Add(-j.ttl)
	stale, err := j.orders.FindPendingOrdersBefore(ctx, cutoff, j.batchSize)
	if err != nil {
		return fmt.Errorf("query stale pending orders: %w", err)
	}

	expired, raced := 0, 0
	var errs []error
	for _, order := range stale {
		cancelledBy := enums.CancelledByBusiness
		ok, err := j.orders.CASUpdateStatus(ctx, order.ID,
			enums.OrderStatusPending, enums.OrderStatusCancelledByBusiness,
			map[string]any{
				"cancelled_at":  now,
				"cancelled_by":  cancelledBy,
				"cancel_reason": expiredOrderReason,
			})
		if err != nil {
			errs = append(errs, fmt.Errorf("expire order %s: %w", order.ID, err))
			continue
		}
		if !ok {
			// Order moved on while the sweep was running; leave it alone.
			raced++
			continue
		}
		expired++
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"candidates": len(stale),
		"expired":    expired,
		"raced":      raced,
	})
	j.logg.Info(logCtx, "order expiry sweep complete")
	return multierr.Combine(errs...)
}
