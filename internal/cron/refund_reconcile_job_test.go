package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/miguelsantiago/turista-backend/internal/orders"
	"github.com/miguelsantiago/turista-backend/pkg/db/models"
	"github.com/miguelsantiago/turista-backend/pkg/enums"
	"github.com/miguelsantiago/turista-backend/pkg/logger"
)

type fakeRefundReader struct {
	refunds    []models.Refund
	lastCutoff time.Time
	lastLimit  int
	err        error
}

func (f *fakeRefundReader) FindFailedRefundsBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.Refund, error) {
	f.lastCutoff = cutoff
	f.lastLimit = limit
	return f.refunds, f.err
}

type fakeReconciler struct {
	outcomes map[string]orders.RefundOutcome
	calls    []string
}

func (f *fakeReconciler) Reconcile(ctx context.Context, record models.Refund) orders.RefundOutcome {
	f.calls = append(f.calls, record.IdempotencyKey)
	return f.outcomes[record.IdempotencyKey]
}

func newRefundReconcileJob(t *testing.T, reader *fakeRefundReader, reconciler *fakeReconciler) *refundReconcileJob {
	t.Helper()
	jobIface, err := NewRefundReconcileJob(RefundReconcileJobParams{
		Logger:       logger.New(logger.Options{ServiceName: "test"}),
		Refunds:      reader,
		Orchestrator: reconciler,
	})
	if err != nil {
		t.Fatalf("NewRefundReconcileJob: %v", err)
	}
	job, ok := jobIface.(*refundReconcileJob)
	if !ok {
		t.Fatalf("expected refundReconcileJob, got %T", jobIface)
	}
	return job
}

func TestRefundReconcileJobRetriesEachDueRefund(t *testing.T) {
	reader := &fakeRefundReader{refunds: []models.Refund{
		{ID: uuid.New(), Status: enums.RefundStatusFailed, IdempotencyKey: "refund-a"},
		{ID: uuid.New(), Status: enums.RefundStatusFailed, IdempotencyKey: "refund-b"},
	}}
	reconciler := &fakeReconciler{outcomes: map[string]orders.RefundOutcome{
		"refund-a": {Attempted: true, Succeeded: true},
		"refund-b": {Attempted: true, FailureReason: "still down"},
	}}
	job := newRefundReconcileJob(t, reader, reconciler)

	now := time.Date(2026, 5, 31, 8, 0, 0, 0, time.UTC)
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(reconciler.calls) != 2 {
		t.Fatalf("expected 2 reconcile calls, got %d", len(reconciler.calls))
	}
	expectedCutoff := now.Add(-defaultRefundRetryAge)
	if !reader.lastCutoff.Equal(expectedCutoff) {
		t.Fatalf("expected cutoff %s, got %s", expectedCutoff, reader.lastCutoff)
	}
	if reader.lastLimit != defaultRefundBatchSize {
		t.Fatalf("expected batch size %d, got %d", defaultRefundBatchSize, reader.lastLimit)
	}
}

func TestRefundReconcileJobPropagatesQueryError(t *testing.T) {
	reader := &fakeRefundReader{err: errors.New("db down")}
	job := newRefundReconcileJob(t, reader, &fakeReconciler{})

	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}
