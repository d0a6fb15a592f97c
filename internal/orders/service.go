package orders

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/miguelsantiago/turista-backend/internal/audit"
	"github.com/miguelsantiago/turista-backend/internal/businesses"
	"github.com/miguelsantiago/turista-backend/pkg/db/models"
	"github.com/miguelsantiago/turista-backend/pkg/enums"
	pkgerrors "github.com/miguelsantiago/turista-backend/pkg/errors"
	"github.com/miguelsantiago/turista-backend/pkg/logger"
	"github.com/miguelsantiago/turista-backend/pkg/metrics"
	"github.com/miguelsantiago/turista-backend/pkg/types"
)

// refunder abstracts the refund orchestrator for the engine.
type refunder interface {
	Refund(ctx context.Context, order *models.Order, payment *models.Payment, cancelledBy enums.CancelledBy) RefundOutcome
}

// auditor is the slice of the audit service the engine consumes.
type auditor interface {
	Append(ctx context.Context, entry audit.Entry) (*models.AuditEntry, error)
}

// dispatcher fans committed transitions out to listeners.
type dispatcher interface {
	Dispatch(ctx context.Context, event OrderEvent)
}

// Service drives the order lifecycle. Every mutation funnels through one
// conditional-update path so concurrent callers race on the database row, not
// on in-process state.
type Service interface {
	GetOrder(ctx context.Context, orderID uuid.UUID, actor Actor) (*models.Order, error)
	RequestStatusChange(ctx context.Context, req TransitionRequest) (*models.Order, error)
	RequestCancellation(ctx context.Context, req CancellationRequest) (*models.Order, RefundOutcome, error)
	MarkReady(ctx context.Context, orderID uuid.UUID, actor Actor) (*models.Order, error)
	MarkPickedUp(ctx context.Context, orderID uuid.UUID, actor Actor) (*models.Order, error)
	VerifyArrival(ctx context.Context, req ArrivalRequest) (*models.Order, error)
}

type service struct {
	repo       Repository
	access     businesses.AccessChecker
	refunds    refunder
	auditor    auditor
	dispatcher dispatcher
	metrics    *metrics.OrderMetrics
	logg       *logger.Logger

	grace           time.Duration
	dispatchTimeout time.Duration
	now             func() time.Time
}

// Deps carries everything the engine needs.
type Deps struct {
	Repo       Repository
	Access     businesses.AccessChecker
	Refunds    refunder
	Auditor    auditor
	Dispatcher dispatcher
	Metrics    *metrics.OrderMetrics
	Logger     *logger.Logger

	CancelGrace     time.Duration
	DispatchTimeout time.Duration
	Now             func() time.Time
}

// NewService wires the transition engine.
func NewService(deps Deps) (Service, error) {
	if deps.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "orders repository required")
	}
	if deps.Access == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "business access checker required")
	}
	if deps.Refunds == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "refund orchestrator required")
	}
	if deps.Auditor == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "audit service required")
	}
	if deps.Dispatcher == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "notification dispatcher required")
	}
	if deps.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	if deps.CancelGrace <= 0 {
		deps.CancelGrace = 10 * time.Second
	}
	if deps.DispatchTimeout <= 0 {
		deps.DispatchTimeout = 3 * time.Second
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &service{
		repo:            deps.Repo,
		access:          deps.Access,
		refunds:         deps.Refunds,
		auditor:         deps.Auditor,
		dispatcher:      deps.Dispatcher,
		metrics:         deps.Metrics,
		logg:            deps.Logger,
		grace:           deps.CancelGrace,
		dispatchTimeout: deps.DispatchTimeout,
		now:             deps.Now,
	}, nil
}

func (s *service) GetOrder(ctx context.Context, orderID uuid.UUID, actor Actor) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, order, actor); err != nil {
		return nil, err
	}
	return order, nil
}

func (s *service) RequestStatusChange(ctx context.Context, req TransitionRequest) (*models.Order, error) {
	if !req.RequestedStatus.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid requested status")
	}
	if req.RequestedStatus.IsCancellation() {
		order, _, err := s.RequestCancellation(ctx, CancellationRequest{
			OrderID: req.OrderID,
			Actor:   req.Actor,
			Reason:  req.Reason,
		})
		return order, err
	}
	order, _, err := s.execute(ctx, req.OrderID, req.RequestedStatus, req.Actor, req.Reason, nil)
	return order, err
}

func (s *service) RequestCancellation(ctx context.Context, req CancellationRequest) (*models.Order, RefundOutcome, error) {
	target := enums.OrderStatusCancelledByUser
	if req.Actor.Role.IsBusinessSide() {
		target = enums.OrderStatusCancelledByBusiness
	}
	return s.execute(ctx, req.OrderID, target, req.Actor, req.Reason, nil)
}

func (s *service) MarkReady(ctx context.Context, orderID uuid.UUID, actor Actor) (*models.Order, error) {
	order, _, err := s.execute(ctx, orderID, enums.OrderStatusReadyForPickup, actor, nil, nil)
	return order, err
}

func (s *service) MarkPickedUp(ctx context.Context, orderID uuid.UUID, actor Actor) (*models.Order, error) {
	order, _, err := s.execute(ctx, orderID, enums.OrderStatusPickedUp, actor, nil, nil)
	return order, err
}

func (s *service) VerifyArrival(ctx context.Context, req ArrivalRequest) (*models.Order, error) {
	if req.Code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "arrival code is required")
	}
	order, _, err := s.execute(ctx, req.OrderID, enums.OrderStatusPickedUp, req.Actor, nil, &req.Code)
	return order, err
}

// execute is the single transition path: load a snapshot, run the pure checks
// against it, then attempt the conditional update keyed on the snapshot's
// status. Everything after the committed update is best-effort.
func (s *service) execute(ctx context.Context, orderID uuid.UUID, target enums.OrderStatus, actor Actor, reason *string, arrivalCode *string) (*models.Order, RefundOutcome, error) {
	var none RefundOutcome

	if orderID == uuid.Nil {
		return nil, none, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	if actor.UserID == uuid.Nil {
		return nil, none, pkgerrors.New(pkgerrors.CodeUnauthorized, "actor identity is required")
	}
	if !actor.Role.IsValid() {
		return nil, none, pkgerrors.New(pkgerrors.CodeForbidden, "unknown actor role")
	}

	ctx = s.logg.WithOrderID(ctx, orderID.String())
	ctx = s.logg.WithActorRole(ctx, string(actor.Role))

	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, none, err
	}
	if err := s.authorize(ctx, order, actor); err != nil {
		return nil, none, err
	}

	from := order.Status
	if !isAllowed(from, target, actor.Role) {
		s.metrics.IncRejection("forbidden_edge")
		return nil, none, pkgerrors.New(pkgerrors.CodeForbidden, "transition not allowed").
			WithDetails(map[string]any{
				"from": from,
				"to":   target,
				"role": actor.Role,
			})
	}

	now := s.now()

	var decision CancellationDecision
	if target.IsCancellation() {
		decision = evaluateCancellation(order, actor.Role, target, now, s.grace)
		if !decision.Allowed {
			s.metrics.IncRejection("cancellation_denied")
			return nil, none, pkgerrors.New(pkgerrors.CodeCancellationDenied, decision.Reason)
		}
	} else {
		if guard := checkPaymentGuard(target, order); !guard.Allowed {
			s.metrics.IncRejection("payment_precondition")
			return nil, none, pkgerrors.New(pkgerrors.CodePaymentPrecondition, guard.Reason)
		}
	}

	if arrivalCode != nil {
		if order.ArrivalCode == nil || *order.ArrivalCode != *arrivalCode {
			s.metrics.IncRejection("arrival_code_mismatch")
			return nil, none, pkgerrors.New(pkgerrors.CodeValidation, "arrival code does not match")
		}
	}

	updates := transitionUpdates(target, now, decision, reason)

	ok, err := s.repo.CASUpdateStatus(ctx, order.ID, from, target, updates)
	if err != nil {
		return nil, none, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating order status")
	}
	if !ok {
		s.metrics.IncRejection("concurrent_update")
		return nil, none, pkgerrors.New(pkgerrors.CodeConflict, "order status changed concurrently").
			WithDetails(map[string]any{"expected_status": from})
	}

	s.metrics.IncTransition(string(from), string(target))
	applyTransition(order, target, now, decision, reason)

	var outcome RefundOutcome
	if target.IsCancellation() {
		outcome = s.refunds.Refund(ctx, order, order.Payment, decision.CancelledBy)
		if outcome.Attempted {
			syncSnapshotPaymentStatus(order, outcome)
		}
	}

	s.finalize(ctx, order, from, target, actor, reason, arrivalCode != nil, outcome)

	return order, outcome, nil
}

func (s *service) loadOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindOrder(ctx, orderID)
	if err != nil {
		if isNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading order")
	}
	return order, nil
}

// authorize ties the actor to the order. Tourists see only their own orders;
// business-side roles are resolved through memberships.
func (s *service) authorize(ctx context.Context, order *models.Order, actor Actor) error {
	switch actor.Role {
	case enums.ActorRoleTourist:
		if order.UserID != actor.UserID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another user")
		}
		return nil

	case enums.ActorRoleBusinessOwner, enums.ActorRoleStaff, enums.ActorRoleAdmin, enums.ActorRoleTourismOfficer:
		allowed, err := s.access.CanAct(ctx, order.BusinessID, actor.UserID, actor.Role)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "resolving business access")
		}
		if !allowed {
			return pkgerrors.New(pkgerrors.CodeForbidden, "no access to this business")
		}
		return nil

	default:
		return pkgerrors.New(pkgerrors.CodeForbidden, "unknown actor role")
	}
}

// finalize records the audit trail and fans the event out. Runs detached from
// the request context so a slow sink never delays the response, and failures
// here never undo the committed transition.
func (s *service) finalize(ctx context.Context, order *models.Order, from, to enums.OrderStatus, actor Actor, reason *string, viaArrival bool, outcome RefundOutcome) {
	event := OrderEvent{
		OrderID:        order.ID,
		OrderNumber:    order.OrderNumber,
		UserID:         order.UserID,
		BusinessID:     order.BusinessID,
		PreviousStatus: from,
		NewStatus:      to,
		CancelledBy:    order.CancelledBy,
		Reason:         reason,
		ActorID:        actor.UserID,
		ActorRole:      actor.Role,
		OccurredAt:     s.now(),
	}

	bg := context.WithoutCancel(ctx)
	go func() {
		bgCtx, cancel := context.WithTimeout(bg, s.dispatchTimeout)
		defer cancel()

		s.appendAudit(bgCtx, order, from, to, actor, reason, viaArrival, outcome)
		s.dispatcher.Dispatch(bgCtx, event)
	}()
}

func (s *service) appendAudit(ctx context.Context, order *models.Order, from, to enums.OrderStatus, actor Actor, reason *string, viaArrival bool, outcome RefundOutcome) {
	eventType := enums.AuditEventStatusChange
	switch {
	case to.IsCancellation():
		eventType = enums.AuditEventCancellation
	case viaArrival:
		eventType = enums.AuditEventPickupEvent
	}

	detail := types.JSONMap{}
	if reason != nil {
		detail["reason"] = *reason
	}
	if actor.IP != "" {
		detail["ip"] = actor.IP
	}
	if viaArrival {
		detail["arrival_code_verified"] = true
	}

	fromCopy, toCopy := from, to
	if _, err := s.auditor.Append(ctx, audit.Entry{
		OrderID:    order.ID,
		EventType:  eventType,
		FromStatus: &fromCopy,
		ToStatus:   &toCopy,
		ActorID:    actor.UserID,
		ActorRole:  actor.Role,
		Detail:     detail,
	}); err != nil {
		s.logg.Error(ctx, "audit append failed", err)
	}

	if outcome.Attempted {
		if _, err := s.auditor.Append(ctx, audit.Entry{
			OrderID:   order.ID,
			EventType: enums.AuditEventPaymentUpdate,
			ActorID:   actor.UserID,
			ActorRole: actor.Role,
			Detail: types.JSONMap{
				"refund_succeeded":  outcome.Succeeded,
				"refund_amount":     outcome.AmountCents,
				"gateway_refund_id": outcome.GatewayRefundID,
				"failure_reason":    outcome.FailureReason,
			},
		}); err != nil {
			s.logg.Error(ctx, "refund audit append failed", err)
		}
	}
}

// transitionUpdates builds the column set applied together with the status
// flip. Timestamps are written once, on the transition that reaches them.
func transitionUpdates(target enums.OrderStatus, now time.Time, decision CancellationDecision, reason *string) map[string]any {
	updates := map[string]any{}
	switch target {
	case enums.OrderStatusReserved:
		updates["accepted_at"] = now
	case enums.OrderStatusReadyForPickup:
		updates["ready_at"] = now
	case enums.OrderStatusPickedUp:
		updates["picked_up_at"] = now
	case enums.OrderStatusCompleted:
		updates["completed_at"] = now
	case enums.OrderStatusCancelledByUser, enums.OrderStatusCancelledByBusiness:
		updates["cancelled_at"] = now
		updates["cancelled_by"] = decision.CancelledBy
		if reason != nil {
			updates["cancel_reason"] = *reason
		}
	}
	return updates
}

// applyTransition mirrors transitionUpdates onto the in-memory snapshot so the
// caller sees the committed row without a reload.
func applyTransition(order *models.Order, target enums.OrderStatus, now time.Time, decision CancellationDecision, reason *string) {
	order.Status = target
	order.UpdatedAt = now
	switch target {
	case enums.OrderStatusReserved:
		order.AcceptedAt = &now
	case enums.OrderStatusReadyForPickup:
		order.ReadyAt = &now
	case enums.OrderStatusPickedUp:
		order.PickedUpAt = &now
	case enums.OrderStatusCompleted:
		order.CompletedAt = &now
	case enums.OrderStatusCancelledByUser, enums.OrderStatusCancelledByBusiness:
		order.CancelledAt = &now
		cancelledBy := decision.CancelledBy
		order.CancelledBy = &cancelledBy
		if reason != nil {
			order.CancelReason = reason
		}
	}
}

func syncSnapshotPaymentStatus(order *models.Order, outcome RefundOutcome) {
	status := enums.PaymentStatusRefundFailed
	if outcome.Succeeded {
		status = enums.PaymentStatusRefunded
	}
	order.PaymentStatus = status
	if order.Payment != nil {
		order.Payment.Status = status
	}
}
