package notifications

import (
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/miguelsantiago/turista-backend/pkg/db/models"
	"github.com/miguelsantiago/turista-backend/pkg/enums"
	"github.com/miguelsantiago/turista-backend/pkg/logger"
)

type stubResolver struct {
	ownerID uuid.UUID
	err     error
}

func (s *stubResolver) FindBusiness(ctx context.Context, businessID uuid.UUID) (*models.Business, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &models.Business{ID: businessID, OwnerID: s.ownerID}, nil
}

type stubDedupe struct {
	seen    map[string]bool
	deleted []string
}

func (s *stubDedupe) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if s.seen == nil {
		s.seen = map[string]bool{}
	}
	if s.seen[key] {
		return false, nil
	}
	s.seen[key] = true
	return true, nil
}

func (s *stubDedupe) Del(ctx context.Context, keys ...string) error {
	s.deleted = append(s.deleted, keys...)
	for _, key := range keys {
		delete(s.seen, key)
	}
	return nil
}

func (s *stubDedupe) IdempotencyKey(scope, id string) string {
	return "turista:idempotency:" + scope + ":" + id
}

func consumerForTest(repo repository, resolver businessResolver, dedupe dedupeStore) *Consumer {
	return &Consumer{
		repo:       repo,
		businesses: resolver,
		dedupe:     dedupe,
		logg:       logger.New(logger.Options{ServiceName: "test", Level: zerolog.Disabled, Output: io.Discard}),
	}
}

func readyEventMessage(t *testing.T, id string) *pubsub.Message {
	t.Helper()
	payload := orderEventPayload{
		OrderID:        uuid.New(),
		OrderNumber:    88,
		UserID:         uuid.New(),
		BusinessID:     uuid.New(),
		PreviousStatus: enums.OrderStatusPreparing,
		NewStatus:      enums.OrderStatusReadyForPickup,
		OccurredAt:     time.Now().UTC(),
	}
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	return &pubsub.Message{
		ID:         id,
		Data:       data,
		Attributes: map[string]string{"kind": string(enums.NotificationOrderReady)},
	}
}

func TestProcessCreatesBothRecipientRows(t *testing.T) {
	repo := &stubNotificationRepo{}
	ownerID := uuid.New()
	consumer := consumerForTest(repo, &stubResolver{ownerID: ownerID}, &stubDedupe{})

	result := consumer.process(context.Background(), readyEventMessage(t, "m-1"))
	assert.True(t, result.ack)

	require.Len(t, repo.created, 2)
	assert.Equal(t, enums.NotificationOrderReady, repo.created[0].Kind)
	assert.Equal(t, ownerID, repo.created[1].RecipientID)
	assert.Contains(t, repo.created[0].Body, "arrival code")
}

func TestProcessDropsRedeliveredMessage(t *testing.T) {
	repo := &stubNotificationRepo{}
	dedupe := &stubDedupe{}
	consumer := consumerForTest(repo, &stubResolver{ownerID: uuid.New()}, dedupe)

	msg := readyEventMessage(t, "m-dup")
	assert.True(t, consumer.process(context.Background(), msg).ack)
	assert.True(t, consumer.process(context.Background(), msg).ack)
	assert.Len(t, repo.created, 2, "second delivery must not create more rows")
}

func TestProcessAcksMalformedPayload(t *testing.T) {
	repo := &stubNotificationRepo{}
	consumer := consumerForTest(repo, &stubResolver{ownerID: uuid.New()}, &stubDedupe{})

	result := consumer.process(context.Background(), &pubsub.Message{ID: "m-bad", Data: []byte("{broken")})
	assert.True(t, result.ack)
	assert.Empty(t, repo.created)
}

func TestProcessNacksAndReleasesDedupeOnFailure(t *testing.T) {
	repo := &stubNotificationRepo{}
	dedupe := &stubDedupe{}
	consumer := consumerForTest(repo, &stubResolver{err: assert.AnError}, dedupe)

	result := consumer.process(context.Background(), readyEventMessage(t, "m-fail"))
	assert.True(t, result.nack)
	assert.NotEmpty(t, dedupe.deleted, "dedupe marker must be released so the retry can run")
}

func TestRenderEventCancellationIncludesReason(t *testing.T) {
	reason := "out of stock"
	title, body := renderEvent(orderEventPayload{
		OrderNumber: 12,
		NewStatus:   enums.OrderStatusCancelledByBusiness,
		Reason:      &reason,
	})
	assert.Equal(t, "Order cancelled", title)
	assert.Contains(t, body, "out of stock")
}
