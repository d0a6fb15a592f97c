package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/miguelsantiago/turista-backend/pkg/db/models"
	"github.com/miguelsantiago/turista-backend/pkg/enums"
	"github.com/miguelsantiago/turista-backend/pkg/logger"
)

type fakeStaleOrderRepo struct {
	stale      []models.Order
	findErr    error
	casResults map[uuid.UUID]bool
	casErr     error
	casCalls   int
	lastCutoff time.Time
}

func (f *fakeStaleOrderRepo) FindPendingOrdersBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error) {
	f.lastCutoff = cutoff
	return f.stale, f.findErr
}

func (f *fakeStaleOrderRepo) CASUpdateStatus(ctx context.Context, orderID uuid.UUID, from, to enums.OrderStatus, updates map[string]any) (bool, error) {
	f.casCalls++
	if f.casErr != nil {
		return false, f.casErr
	}
	if from != enums.OrderStatusPending || to != enums.OrderStatusCancelledByBusiness {
		return false, errors.New("unexpected edge")
	}
	return f.casResults[orderID], nil
}

func newOrderExpiryJob(t *testing.T, repo *fakeStaleOrderRepo) *orderExpiryJob {
	t.Helper()
	jobIface, err := NewOrderExpiryJob(OrderExpiryJobParams{
		Logger: logger.New(logger.Options{ServiceName: "test"}),
		Orders: repo,
	})
	if err != nil {
		t.Fatalf("NewOrderExpiryJob: %v", err)
	}
	job, ok := jobIface.(*orderExpiryJob)
	if !ok {
		t.Fatalf("expected orderExpiryJob, got %T", jobIface)
	}
	return job
}

func TestOrderExpiryJobCancelsStalePendingOrders(t *testing.T) {
	expiring := models.Order{ID: uuid.New(), Status: enums.OrderStatusPending}
	racing := models.Order{ID: uuid.New(), Status: enums.OrderStatusPending}
	repo := &fakeStaleOrderRepo{
		stale: []models.Order{expiring, racing},
		casResults: map[uuid.UUID]bool{
			expiring.ID: true,
			// racing was accepted between the query and the update
			racing.ID: false,
		},
	}
	job := newOrderExpiryJob(t, repo)

	now := time.Date(2026, 5, 31, 8, 0, 0, 0, time.UTC)
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if repo.casCalls != 2 {
		t.Fatalf("expected 2 conditional updates, got %d", repo.casCalls)
	}
	expectedCutoff := now.Add(-defaultPendingTTL)
	if !repo.lastCutoff.Equal(expectedCutoff) {
		t.Fatalf("expected cutoff %s, got %s", expectedCutoff, repo.lastCutoff)
	}
}

func TestOrderExpiryJobCollectsUpdateErrors(t *testing.T) {
	repo := &fakeStaleOrderRepo{
		stale:  []models.Order{{ID: uuid.New(), Status: enums.OrderStatusPending}},
		casErr: errors.New("db down"),
	}
	job := newOrderExpiryJob(t, repo)

	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}
