package orders

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/miguelsantiago/turista-backend/internal/audit"
	"github.com/miguelsantiago/turista-backend/pkg/db/models"
	"github.com/miguelsantiago/turista-backend/pkg/enums"
	pkgerrors "github.com/miguelsantiago/turista-backend/pkg/errors"
	"github.com/miguelsantiago/turista-backend/pkg/logger"
)

type casCall struct {
	from    enums.OrderStatus
	to      enums.OrderStatus
	updates map[string]any
}

type stubOrderRepo struct {
	mu      sync.Mutex
	order   *models.Order
	findErr error
	casOK   bool
	casErr  error
	cas     []casCall
}

func (s *stubOrderRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubOrderRepo) CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error) {
	return order, nil
}

func (s *stubOrderRepo) FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	copied := *s.order
	if s.order.Payment != nil {
		payment := *s.order.Payment
		copied.Payment = &payment
	}
	return &copied, nil
}

func (s *stubOrderRepo) CASUpdateStatus(ctx context.Context, orderID uuid.UUID, from, to enums.OrderStatus, updates map[string]any) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cas = append(s.cas, casCall{from: from, to: to, updates: updates})
	return s.casOK, s.casErr
}

func (s *stubOrderRepo) casCalls() []casCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]casCall(nil), s.cas...)
}

func (s *stubOrderRepo) UpdateOrderPaymentStatus(ctx context.Context, orderID uuid.UUID, status enums.PaymentStatus) error {
	return nil
}

func (s *stubOrderRepo) FindPaymentByOrder(ctx context.Context, orderID uuid.UUID) (*models.Payment, error) {
	return s.order.Payment, nil
}

func (s *stubOrderRepo) UpdatePayment(ctx context.Context, paymentID uuid.UUID, updates map[string]any) error {
	return nil
}

func (s *stubOrderRepo) CreateRefund(ctx context.Context, refund *models.Refund) (*models.Refund, error) {
	return refund, nil
}

func (s *stubOrderRepo) FindRefundByIdempotencyKey(ctx context.Context, key string) (*models.Refund, error) {
	return nil, gorm.ErrRecordNotFound
}

func (s *stubOrderRepo) UpdateRefund(ctx context.Context, refundID uuid.UUID, updates map[string]any) error {
	return nil
}

func (s *stubOrderRepo) FindFailedRefundsBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.Refund, error) {
	return nil, nil
}

func (s *stubOrderRepo) FindPendingOrdersBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error) {
	return nil, nil
}

type stubAccess struct {
	allowed bool
	err     error
}

func (s *stubAccess) CanAct(ctx context.Context, businessID, userID uuid.UUID, role enums.ActorRole) (bool, error) {
	return s.allowed, s.err
}

type stubRefunder struct {
	mu      sync.Mutex
	outcome RefundOutcome
	calls   int
}

func (s *stubRefunder) Refund(ctx context.Context, order *models.Order, payment *models.Payment, cancelledBy enums.CancelledBy) RefundOutcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.outcome
}

func (s *stubRefunder) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type stubAuditor struct {
	mu      sync.Mutex
	entries []audit.Entry
}

func (s *stubAuditor) Append(ctx context.Context, entry audit.Entry) (*models.AuditEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	return &models.AuditEntry{}, nil
}

func (s *stubAuditor) recorded() []audit.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]audit.Entry(nil), s.entries...)
}

type stubDispatcher struct {
	mu     sync.Mutex
	events []OrderEvent
}

func (s *stubDispatcher) Dispatch(ctx context.Context, event OrderEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

func (s *stubDispatcher) dispatched() []OrderEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]OrderEvent(nil), s.events...)
}

type engineFixture struct {
	svc        Service
	repo       *stubOrderRepo
	access     *stubAccess
	refunder   *stubRefunder
	auditor    *stubAuditor
	dispatcher *stubDispatcher
	now        time.Time
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Level: zerolog.Disabled, Output: io.Discard})
}

func newEngineFixture(t *testing.T, order *models.Order) *engineFixture {
	t.Helper()

	f := &engineFixture{
		repo:       &stubOrderRepo{order: order, casOK: true},
		access:     &stubAccess{allowed: true},
		refunder:   &stubRefunder{},
		auditor:    &stubAuditor{},
		dispatcher: &stubDispatcher{},
		now:        time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC),
	}

	svc, err := NewService(Deps{
		Repo:        f.repo,
		Access:      f.access,
		Refunds:     f.refunder,
		Auditor:     f.auditor,
		Dispatcher:  f.dispatcher,
		Logger:      testLogger(),
		CancelGrace: 10 * time.Second,
		Now:         func() time.Time { return f.now },
	})
	require.NoError(t, err)
	f.svc = svc
	return f
}

func baseOrder(status enums.OrderStatus, userID uuid.UUID) *models.Order {
	return &models.Order{
		ID:            uuid.New(),
		OrderNumber:   1042,
		UserID:        userID,
		BusinessID:    uuid.New(),
		Status:        status,
		PaymentStatus: enums.PaymentStatusUnpaid,
		Currency:      "PHP",
		TotalCents:    25000,
		CreatedAt:     time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC),
	}
}

func TestTouristAcceptsPendingOrder(t *testing.T) {
	userID := uuid.New()
	f := newEngineFixture(t, baseOrder(enums.OrderStatusPending, userID))

	order, err := f.svc.RequestStatusChange(context.Background(), TransitionRequest{
		OrderID:         f.repo.order.ID,
		RequestedStatus: enums.OrderStatusReserved,
		Actor:           Actor{UserID: userID, Role: enums.ActorRoleTourist},
	})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusReserved, order.Status)
	require.NotNil(t, order.AcceptedAt)

	calls := f.repo.casCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, enums.OrderStatusPending, calls[0].from)
	assert.Equal(t, enums.OrderStatusReserved, calls[0].to)
}

func TestUndeclaredEdgeIsForbidden(t *testing.T) {
	userID := uuid.New()
	f := newEngineFixture(t, baseOrder(enums.OrderStatusPending, userID))

	_, err := f.svc.RequestStatusChange(context.Background(), TransitionRequest{
		OrderID:         f.repo.order.ID,
		RequestedStatus: enums.OrderStatusCompleted,
		Actor:           Actor{UserID: userID, Role: enums.ActorRoleTourist},
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeForbidden))
	assert.Empty(t, f.repo.casCalls())
}

func TestRoleNotOnEdgeIsForbidden(t *testing.T) {
	userID := uuid.New()
	f := newEngineFixture(t, baseOrder(enums.OrderStatusReserved, userID))

	// The reserved -> preparing edge exists, but tourists are not on it.
	_, err := f.svc.RequestStatusChange(context.Background(), TransitionRequest{
		OrderID:         f.repo.order.ID,
		RequestedStatus: enums.OrderStatusPreparing,
		Actor:           Actor{UserID: userID, Role: enums.ActorRoleTourist},
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeForbidden))
}

func TestTouristCannotActOnAnotherTouristsOrder(t *testing.T) {
	f := newEngineFixture(t, baseOrder(enums.OrderStatusPending, uuid.New()))

	_, err := f.svc.RequestStatusChange(context.Background(), TransitionRequest{
		OrderID:         f.repo.order.ID,
		RequestedStatus: enums.OrderStatusReserved,
		Actor:           Actor{UserID: uuid.New(), Role: enums.ActorRoleTourist},
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeForbidden))
}

func TestBusinessActorWithoutMembershipIsForbidden(t *testing.T) {
	f := newEngineFixture(t, baseOrder(enums.OrderStatusReserved, uuid.New()))
	f.access.allowed = false

	_, err := f.svc.RequestStatusChange(context.Background(), TransitionRequest{
		OrderID:         f.repo.order.ID,
		RequestedStatus: enums.OrderStatusPreparing,
		Actor:           Actor{UserID: uuid.New(), Role: enums.ActorRoleStaff},
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeForbidden))
}

func TestMissingOrderIsNotFound(t *testing.T) {
	f := newEngineFixture(t, baseOrder(enums.OrderStatusPending, uuid.New()))
	f.repo.findErr = gorm.ErrRecordNotFound

	_, err := f.svc.RequestStatusChange(context.Background(), TransitionRequest{
		OrderID:         uuid.New(),
		RequestedStatus: enums.OrderStatusReserved,
		Actor:           Actor{UserID: uuid.New(), Role: enums.ActorRoleAdmin},
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound))
}

func TestConcurrentUpdateReturnsConflict(t *testing.T) {
	userID := uuid.New()
	f := newEngineFixture(t, baseOrder(enums.OrderStatusPending, userID))
	f.repo.casOK = false

	_, err := f.svc.RequestStatusChange(context.Background(), TransitionRequest{
		OrderID:         f.repo.order.ID,
		RequestedStatus: enums.OrderStatusReserved,
		Actor:           Actor{UserID: userID, Role: enums.ActorRoleTourist},
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeConflict))
	meta := pkgerrors.MetadataFor(pkgerrors.As(err).Code())
	assert.True(t, meta.Retryable)
}

func TestTouristCancelInsideGraceWindow(t *testing.T) {
	userID := uuid.New()
	order := baseOrder(enums.OrderStatusReserved, userID)
	f := newEngineFixture(t, order)
	f.now = order.CreatedAt.Add(10 * time.Second)

	updated, _, err := f.svc.RequestCancellation(context.Background(), CancellationRequest{
		OrderID: order.ID,
		Actor:   Actor{UserID: userID, Role: enums.ActorRoleTourist},
	})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCancelledByUser, updated.Status)
	require.NotNil(t, updated.CancelledBy)
	assert.Equal(t, enums.CancelledByUser, *updated.CancelledBy)
}

func TestTouristCancelAfterGraceOnAcceptedOrderDenied(t *testing.T) {
	userID := uuid.New()
	order := baseOrder(enums.OrderStatusReserved, userID)
	f := newEngineFixture(t, order)
	f.now = order.CreatedAt.Add(10*time.Second + time.Second)

	_, _, err := f.svc.RequestCancellation(context.Background(), CancellationRequest{
		OrderID: order.ID,
		Actor:   Actor{UserID: userID, Role: enums.ActorRoleTourist},
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeCancellationDenied))
	assert.Empty(t, f.repo.casCalls())
}

func TestTouristCancelAfterGraceWhileStillPending(t *testing.T) {
	userID := uuid.New()
	order := baseOrder(enums.OrderStatusPending, userID)
	f := newEngineFixture(t, order)
	f.now = order.CreatedAt.Add(time.Hour)

	updated, _, err := f.svc.RequestCancellation(context.Background(), CancellationRequest{
		OrderID: order.ID,
		Actor:   Actor{UserID: userID, Role: enums.ActorRoleTourist},
	})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCancelledByUser, updated.Status)
}

func TestBusinessCancelBypassesGrace(t *testing.T) {
	order := baseOrder(enums.OrderStatusPreparing, uuid.New())
	f := newEngineFixture(t, order)
	f.now = order.CreatedAt.Add(2 * time.Hour)

	updated, _, err := f.svc.RequestCancellation(context.Background(), CancellationRequest{
		OrderID: order.ID,
		Actor:   Actor{UserID: uuid.New(), Role: enums.ActorRoleBusinessOwner},
	})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCancelledByBusiness, updated.Status)
	require.NotNil(t, updated.CancelledBy)
	assert.Equal(t, enums.CancelledByBusiness, *updated.CancelledBy)
}

func TestNoCancellationAfterPickup(t *testing.T) {
	userID := uuid.New()
	order := baseOrder(enums.OrderStatusPickedUp, userID)
	f := newEngineFixture(t, order)

	_, _, err := f.svc.RequestCancellation(context.Background(), CancellationRequest{
		OrderID: order.ID,
		Actor:   Actor{UserID: uuid.New(), Role: enums.ActorRoleBusinessOwner},
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeForbidden))
	assert.Empty(t, f.repo.casCalls())
	assert.Zero(t, f.refunder.callCount())
}

func TestMarkReadyRequiresPaidOnlineOrder(t *testing.T) {
	order := baseOrder(enums.OrderStatusPreparing, uuid.New())
	order.Payment = &models.Payment{
		ID:      uuid.New(),
		OrderID: order.ID,
		Method:  enums.PaymentMethodCard,
		Status:  enums.PaymentStatusUnpaid,
	}
	f := newEngineFixture(t, order)

	_, err := f.svc.MarkReady(context.Background(), order.ID, Actor{UserID: uuid.New(), Role: enums.ActorRoleStaff})
	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodePaymentPrecondition))
}

func TestMarkReadyAllowsUnpaidCashOrder(t *testing.T) {
	order := baseOrder(enums.OrderStatusPreparing, uuid.New())
	order.Payment = &models.Payment{
		ID:      uuid.New(),
		OrderID: order.ID,
		Method:  enums.PaymentMethodCash,
		Status:  enums.PaymentStatusUnpaid,
	}
	f := newEngineFixture(t, order)

	updated, err := f.svc.MarkReady(context.Background(), order.ID, Actor{UserID: uuid.New(), Role: enums.ActorRoleStaff})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusReadyForPickup, updated.Status)
	require.NotNil(t, updated.ReadyAt)
}

func TestCompleteBlockedByFailedRefund(t *testing.T) {
	order := baseOrder(enums.OrderStatusPickedUp, uuid.New())
	order.PaymentStatus = enums.PaymentStatusRefundFailed
	order.Payment = &models.Payment{
		ID:      uuid.New(),
		OrderID: order.ID,
		Method:  enums.PaymentMethodCard,
		Status:  enums.PaymentStatusRefundFailed,
	}
	f := newEngineFixture(t, order)

	_, err := f.svc.RequestStatusChange(context.Background(), TransitionRequest{
		OrderID:         order.ID,
		RequestedStatus: enums.OrderStatusCompleted,
		Actor:           Actor{UserID: uuid.New(), Role: enums.ActorRoleBusinessOwner},
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodePaymentPrecondition))
}

func TestCancellationTriggersRefundAndSurvivesRefundFailure(t *testing.T) {
	userID := uuid.New()
	order := baseOrder(enums.OrderStatusReserved, userID)
	order.PaymentStatus = enums.PaymentStatusPaid
	gatewayID := "sq-pay-123"
	order.Payment = &models.Payment{
		ID:               uuid.New(),
		OrderID:          order.ID,
		Method:           enums.PaymentMethodCard,
		Status:           enums.PaymentStatusPaid,
		GatewayPaymentID: &gatewayID,
	}
	f := newEngineFixture(t, order)
	f.now = order.CreatedAt.Add(5 * time.Second)
	f.refunder.outcome = RefundOutcome{Attempted: true, FailureReason: "gateway timeout"}

	updated, outcome, err := f.svc.RequestCancellation(context.Background(), CancellationRequest{
		OrderID: order.ID,
		Actor:   Actor{UserID: userID, Role: enums.ActorRoleTourist},
	})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCancelledByUser, updated.Status)
	assert.Equal(t, enums.PaymentStatusRefundFailed, updated.PaymentStatus)
	assert.True(t, outcome.Attempted)
	assert.False(t, outcome.Succeeded)
	assert.Equal(t, 1, f.refunder.callCount())
}

func TestVerifyArrivalRejectsWrongCode(t *testing.T) {
	order := baseOrder(enums.OrderStatusReadyForPickup, uuid.New())
	code := "TUR-4821"
	order.ArrivalCode = &code
	f := newEngineFixture(t, order)

	_, err := f.svc.VerifyArrival(context.Background(), ArrivalRequest{
		OrderID: order.ID,
		Code:    "TUR-0000",
		Actor:   Actor{UserID: uuid.New(), Role: enums.ActorRoleStaff},
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
	assert.Empty(t, f.repo.casCalls())
}

func TestVerifyArrivalMarksPickedUp(t *testing.T) {
	order := baseOrder(enums.OrderStatusReadyForPickup, uuid.New())
	code := "TUR-4821"
	order.ArrivalCode = &code
	f := newEngineFixture(t, order)

	updated, err := f.svc.VerifyArrival(context.Background(), ArrivalRequest{
		OrderID: order.ID,
		Code:    code,
		Actor:   Actor{UserID: uuid.New(), Role: enums.ActorRoleStaff},
	})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusPickedUp, updated.Status)
	require.NotNil(t, updated.PickedUpAt)

	require.Eventually(t, func() bool {
		entries := f.auditor.recorded()
		return len(entries) == 1 && entries[0].EventType == enums.AuditEventPickupEvent
	}, 2*time.Second, 10*time.Millisecond)
}

func TestCommittedTransitionFansOut(t *testing.T) {
	userID := uuid.New()
	order := baseOrder(enums.OrderStatusPreparing, userID)
	order.Payment = &models.Payment{
		ID:      uuid.New(),
		OrderID: order.ID,
		Method:  enums.PaymentMethodCash,
		Status:  enums.PaymentStatusUnpaid,
	}
	f := newEngineFixture(t, order)

	_, err := f.svc.MarkReady(context.Background(), order.ID, Actor{UserID: uuid.New(), Role: enums.ActorRoleBusinessOwner})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		events := f.dispatched()
		if len(events) != 1 {
			return false
		}
		event := events[0]
		return event.PreviousStatus == enums.OrderStatusPreparing &&
			event.NewStatus == enums.OrderStatusReadyForPickup &&
			event.Kind() == enums.NotificationOrderReady
	}, 2*time.Second, 10*time.Millisecond)

	require.Eventually(t, func() bool {
		return len(f.auditor.recorded()) == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func (f *engineFixture) dispatched() []OrderEvent {
	return f.dispatcher.dispatched()
}

func TestGetOrderEnforcesOwnership(t *testing.T) {
	order := baseOrder(enums.OrderStatusPending, uuid.New())
	f := newEngineFixture(t, order)

	_, err := f.svc.GetOrder(context.Background(), order.ID, Actor{UserID: uuid.New(), Role: enums.ActorRoleTourist})
	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeForbidden))

	got, err := f.svc.GetOrder(context.Background(), order.ID, Actor{UserID: order.UserID, Role: enums.ActorRoleTourist})
	require.NoError(t, err)
	assert.Equal(t, order.ID, got.ID)
}
