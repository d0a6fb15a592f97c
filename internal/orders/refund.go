package orders

import (
	"context"
	"fmt"
	"time"

	sq "github.com/square/square-go-sdk"

	"github.com/miguelsantiago/turista-backend/pkg/db/models"
	"github.com/miguelsantiago/turista-backend/pkg/enums"
	"github.com/miguelsantiago/turista-backend/pkg/logger"
	"github.com/miguelsantiago/turista-backend/pkg/metrics"
	"github.com/miguelsantiago/turista-backend/pkg/square"
)

// refundGateway is the slice of the Square client the orchestrator consumes.
type refundGateway interface {
	CreateRefund(ctx context.Context, params square.RefundCreateParams) (*sq.PaymentRefund, error)
	GetRefund(ctx context.Context, refundID string) (*sq.PaymentRefund, error)
}

// RefundOrchestrator issues gateway refunds for cancelled paid orders. Gateway
// failures are recorded on the refund/payment rows and never propagated; the
// cancellation has already committed by the time this runs.
type RefundOrchestrator struct {
	repo    Repository
	gateway refundGateway
	logg    *logger.Logger
	metrics *metrics.OrderMetrics
	timeout time.Duration
	now     func() time.Time
}

// NewRefundOrchestrator wires the orchestrator with its dependencies.
func NewRefundOrchestrator(repo Repository, gateway refundGateway, logg *logger.Logger, m *metrics.OrderMetrics, timeout time.Duration) (*RefundOrchestrator, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if gateway == nil {
		return nil, fmt.Errorf("refund gateway required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &RefundOrchestrator{
		repo:    repo,
		gateway: gateway,
		logg:    logg,
		metrics: m,
		timeout: timeout,
		now:     time.Now,
	}, nil
}

// Refund attempts to refund the captured payment behind a cancelled order.
// The idempotency key is derived from the gateway payment id, so client
// retries of the same cancellation collapse into one gateway refund.
func (o *RefundOrchestrator) Refund(ctx context.Context, order *models.Order, payment *models.Payment, cancelledBy enums.CancelledBy) RefundOutcome {
	if order == nil || payment == nil {
		return RefundOutcome{}
	}
	if !payment.Method.IsOnline() || payment.Status != enums.PaymentStatusPaid {
		return RefundOutcome{}
	}

	ctx = o.logg.WithOrderID(ctx, order.ID.String())

	if payment.GatewayPaymentID == nil || *payment.GatewayPaymentID == "" {
		o.logg.Error(ctx, "refund skipped: payment has no gateway reference", nil)
		return o.recordUnattemptableFailure(ctx, order, payment, "payment has no gateway reference")
	}

	key := refundIdempotencyKey(*payment.GatewayPaymentID)

	record, err := o.repo.FindRefundByIdempotencyKey(ctx, key)
	if err == nil && record.Status == enums.RefundStatusSucceeded {
		// Refund already settled on a previous attempt.
		return RefundOutcome{
			Attempted:       true,
			Succeeded:       true,
			GatewayRefundID: stringOrEmpty(record.GatewayRefundID),
			AmountCents:     record.AmountCents,
		}
	}
	if record == nil {
		record, err = o.repo.CreateRefund(ctx, &models.Refund{
			PaymentID:      payment.ID,
			OrderID:        order.ID,
			Status:         enums.RefundStatusPending,
			AmountCents:    payment.AmountCents,
			Currency:       payment.Currency,
			IdempotencyKey: key,
		})
		if err != nil {
			// Unique key collision means a concurrent attempt created it.
			existing, findErr := o.repo.FindRefundByIdempotencyKey(ctx, key)
			if findErr != nil {
				o.logg.Error(ctx, "refund record create failed", err)
				return RefundOutcome{Attempted: true, FailureReason: err.Error()}
			}
			record = existing
		}
	}

	return o.attempt(ctx, order, payment, record, cancelledBy)
}

// Reconcile retries a previously failed refund using its stored idempotency
// key. Used by the reconciliation sweep.
func (o *RefundOrchestrator) Reconcile(ctx context.Context, record models.Refund) RefundOutcome {
	if record.Status == enums.RefundStatusSucceeded {
		return RefundOutcome{Attempted: true, Succeeded: true, AmountCents: record.AmountCents}
	}

	order, err := o.repo.FindOrder(ctx, record.OrderID)
	if err != nil {
		o.logg.Error(ctx, "refund reconcile: load order", err)
		return RefundOutcome{Attempted: true, FailureReason: err.Error()}
	}
	payment, err := o.repo.FindPaymentByOrder(ctx, record.OrderID)
	if err != nil {
		o.logg.Error(ctx, "refund reconcile: load payment", err)
		return RefundOutcome{Attempted: true, FailureReason: err.Error()}
	}

	cancelledBy := enums.CancelledByUser
	if order.CancelledBy != nil {
		cancelledBy = *order.CancelledBy
	}

	// A failed attempt may still have settled at the gateway (timeout after
	// the refund was accepted). Check before issuing a new request.
	if refundID := stringOrEmpty(record.GatewayRefundID); refundID != "" {
		lookupCtx, cancel := context.WithTimeout(ctx, o.timeout)
		refund, lookupErr := o.gateway.GetRefund(lookupCtx, refundID)
		cancel()
		if lookupErr == nil && refundCompletedAtGateway(refund) {
			return o.settle(ctx, order, payment, &record, refund.GetID())
		}
	}

	return o.attempt(ctx, order, payment, &record, cancelledBy)
}

func (o *RefundOrchestrator) attempt(ctx context.Context, order *models.Order, payment *models.Payment, record *models.Refund, cancelledBy enums.CancelledBy) RefundOutcome {
	callCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	refund, err := o.gateway.CreateRefund(callCtx, square.RefundCreateParams{
		PaymentID:      stringOrEmpty(payment.GatewayPaymentID),
		AmountCents:    int64(record.AmountCents),
		Currency:       record.Currency,
		IdempotencyKey: record.IdempotencyKey,
		Reason:         fmt.Sprintf("order %d cancelled by %s", order.OrderNumber, cancelledBy),
	})
	if err != nil {
		return o.recordFailure(ctx, order, payment, record, err)
	}

	return o.settle(ctx, order, payment, record, refund.GetID())
}

func (o *RefundOrchestrator) settle(ctx context.Context, order *models.Order, payment *models.Payment, record *models.Refund, gatewayRefundID string) RefundOutcome {
	settledAt := o.now()
	if err := o.repo.UpdateRefund(ctx, record.ID, map[string]any{
		"status":            enums.RefundStatusSucceeded,
		"gateway_refund_id": gatewayRefundID,
		"failure_reason":    nil,
		"settled_at":        settledAt,
	}); err != nil {
		o.logg.Error(ctx, "refund succeeded at gateway but record update failed", err)
	}
	if err := o.repo.UpdatePayment(ctx, payment.ID, map[string]any{
		"status": enums.PaymentStatusRefunded,
	}); err != nil {
		o.logg.Error(ctx, "refund payment status update failed", err)
	}
	if err := o.repo.UpdateOrderPaymentStatus(ctx, order.ID, enums.PaymentStatusRefunded); err != nil {
		o.logg.Error(ctx, "refund order payment status update failed", err)
	}

	o.metrics.IncRefundOutcome("succeeded")
	o.logg.Info(ctx, "gateway refund settled")
	return RefundOutcome{
		Attempted:       true,
		Succeeded:       true,
		GatewayRefundID: gatewayRefundID,
		AmountCents:     record.AmountCents,
	}
}

func (o *RefundOrchestrator) recordFailure(ctx context.Context, order *models.Order, payment *models.Payment, record *models.Refund, cause error) RefundOutcome {
	o.logg.Error(ctx, "gateway refund failed, left for reconciliation", cause)

	if err := o.repo.UpdateRefund(ctx, record.ID, map[string]any{
		"status":         enums.RefundStatusFailed,
		"failure_reason": cause.Error(),
	}); err != nil {
		o.logg.Error(ctx, "refund failure record update failed", err)
	}
	if err := o.repo.UpdatePayment(ctx, payment.ID, map[string]any{
		"status": enums.PaymentStatusRefundFailed,
	}); err != nil {
		o.logg.Error(ctx, "refund payment status update failed", err)
	}
	if err := o.repo.UpdateOrderPaymentStatus(ctx, order.ID, enums.PaymentStatusRefundFailed); err != nil {
		o.logg.Error(ctx, "refund order payment status update failed", err)
	}

	o.metrics.IncRefundOutcome("failed")
	return RefundOutcome{
		Attempted:     true,
		AmountCents:   record.AmountCents,
		FailureReason: cause.Error(),
	}
}

func (o *RefundOrchestrator) recordUnattemptableFailure(ctx context.Context, order *models.Order, payment *models.Payment, reason string) RefundOutcome {
	if err := o.repo.UpdatePayment(ctx, payment.ID, map[string]any{
		"status": enums.PaymentStatusRefundFailed,
	}); err != nil {
		o.logg.Error(ctx, "refund payment status update failed", err)
	}
	if err := o.repo.UpdateOrderPaymentStatus(ctx, order.ID, enums.PaymentStatusRefundFailed); err != nil {
		o.logg.Error(ctx, "refund order payment status update failed", err)
	}
	o.metrics.IncRefundOutcome("failed")
	return RefundOutcome{Attempted: true, FailureReason: reason}
}

func refundIdempotencyKey(gatewayPaymentID string) string {
	return fmt.Sprintf("refund-%s", gatewayPaymentID)
}

func refundCompletedAtGateway(refund *sq.PaymentRefund) bool {
	if refund == nil {
		return false
	}
	status := refund.GetStatus()
	return status != nil && *status == "COMPLETED"
}

func stringOrEmpty(ptr *string) string {
	if ptr == nil {
		return ""
	}
	return *ptr
}
