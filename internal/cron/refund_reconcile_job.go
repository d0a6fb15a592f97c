package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/miguelsantiago/turista-backend/internal/orders"
	"github.com/miguelsantiago/turista-backend/pkg/db/models"
	"github.com/miguelsantiago/turista-backend/pkg/logger"
)

const (
	defaultRefundRetryAge  = 15 * time.Minute
	defaultRefundBatchSize = 50
)

type failedRefundReader interface {
	FindFailedRefundsBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.Refund, error)
}

type refundReconciler interface {
	Reconcile(ctx context.Context, record models.Refund) orders.RefundOutcome
}

// RefundReconcileJobParams configure the failed-refund sweep.
type RefundReconcileJobParams struct {
	Logger       *logger.Logger
	Refunds      failedRefundReader
	Orchestrator refundReconciler
	RetryAge     time.Duration
	BatchSize    int
}

// NewRefundReconcileJob builds the job that retries refunds the gateway
// rejected on the cancellation path.
func NewRefundReconcileJob(params RefundReconcileJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Refunds == nil {
		return nil, fmt.Errorf("refund reader required")
	}
	if params.Orchestrator == nil {
		return nil, fmt.Errorf("refund orchestrator required")
	}
	retryAge := params.RetryAge
	if retryAge <= 0 {
		retryAge = defaultRefundRetryAge
	}
	batchSize := params.BatchSize
	if batchSize <= 0 {
		batchSize = defaultRefundBatchSize
	}
	return &refundReconcileJob{
		logg:         params.Logger,
		refunds:      params.Refunds,
		orchestrator: params.Orchestrator,
		retryAge:     retryAge,
		batchSize:    batchSize,
		now:          time.Now,
	}, nil
}

type refundReconcileJob struct {
	logg         *logger.Logger
	refunds      failedRefundReader
	orchestrator refundReconciler
	retryAge     time.Duration
	batchSize    int
	now          func() time.Time
}

func (j *refundReconcileJob) Name() string { return "refund-reconcile" }

func (j *refundReconcileJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.retryAge)
	due, err := j.refunds.FindFailedRefundsBefore(ctx, cutoff, j.batchSize)
	if err != nil {
		return fmt.Errorf("query failed refunds: %w", err)
	}

	recovered, stillFailing := 0, 0
	for _, record := range due {
		outcome := j.orchestrator.Reconcile(ctx, record)
		if outcome.Succeeded {
			recovered++
			continue
		}
		stillFailing++
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"due":           len(due),
		"recovered":     recovered,
		"still_failing": stillFailing,
	})
	j.logg.Info(logCtx, "refund reconcile sweep complete")
	return nil
}
