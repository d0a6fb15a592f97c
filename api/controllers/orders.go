package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/miguelsantiago/turista-backend/api/middleware"
	"github.com/miguelsantiago/turista-backend/api/responses"
	"github.com/miguelsantiago/turista-backend/api/validators"
	"github.com/miguelsantiago/turista-backend/internal/audit"
	internalorders "github.com/miguelsantiago/turista-backend/internal/orders"
	"github.com/miguelsantiago/turista-backend/pkg/enums"
	pkgerrors "github.com/miguelsantiago/turista-backend/pkg/errors"
	"github.com/miguelsantiago/turista-backend/pkg/logger"
	"github.com/miguelsantiago/turista-backend/pkg/pagination"
)

// OrderDetail returns the order after the engine's ownership checks pass.
func OrderDetail(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.GetOrder(r.Context(), orderID, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderView(order))
	}
}

// OrderStatusChange applies a generic transition request.
func OrderStatusChange(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload statusChangeRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := enums.ParseOrderStatus(strings.TrimSpace(payload.Status))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
			return
		}

		order, err := svc.RequestStatusChange(r.Context(), internalorders.TransitionRequest{
			OrderID:         orderID,
			RequestedStatus: status,
			Actor:           actor,
			Reason:          payload.Reason,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderView(order))
	}
}

// OrderCancel requests a cancellation; the terminal state follows the actor's
// side and the refund outcome is reported inline.
func OrderCancel(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload cancelRequest
		if r.Body != nil && r.ContentLength != 0 {
			if err := validators.DecodeJSONBody(r, &payload); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		order, outcome, err := svc.RequestCancellation(r.Context(), internalorders.CancellationRequest{
			OrderID: orderID,
			Actor:   actor,
			Reason:  payload.Reason,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, cancelResponse{
			Order:  newOrderView(order),
			Refund: newRefundView(outcome, order.Currency),
		})
	}
}

// OrderReady moves a preparing order to ready_for_pickup.
func OrderReady(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.MarkReady(r.Context(), orderID, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderView(order))
	}
}

// OrderPickedUp records the handover without an arrival code, for staff
// confirming the pickup directly.
func OrderPickedUp(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.MarkPickedUp(r.Context(), orderID, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderView(order))
	}
}

// OrderVerifyArrival compares the presented code and, on match, marks the
// order picked up.
func OrderVerifyArrival(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload verifyArrivalRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.VerifyArrival(r.Context(), internalorders.ArrivalRequest{
			OrderID: orderID,
			Code:    strings.TrimSpace(payload.Code),
			Actor:   actor,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderView(order))
	}
}

// OrderAuditTrail pages through the order's audit entries. Ownership is
// enforced by loading the order through the engine first.
func OrderAuditTrail(svc internalorders.Service, auditor audit.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil || auditor == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "audit service unavailable"))
			return
		}

		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if _, err := svc.GetOrder(r.Context(), orderID, actor); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params := pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		}

		trail, err := auditor.ListByOrder(r.Context(), orderID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list audit trail"))
			return
		}
		responses.WriteSuccess(w, trail)
	}
}

type statusChangeRequest struct {
	Status string  `json:"status" validate:"required"`
	Reason *string `json:"reason,omitempty"`
}

type cancelRequest struct {
	Reason *string `json:"reason,omitempty"`
}

type verifyArrivalRequest struct {
	Code string `json:"code" validate:"required"`
}

func actorFromRequest(r *http.Request) (internalorders.Actor, error) {
	var actor internalorders.Actor

	rawUser := middleware.UserIDFromContext(r.Context())
	if rawUser == "" {
		return actor, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	userID, err := uuid.Parse(rawUser)
	if err != nil {
		return actor, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid user id")
	}

	role, err := enums.ParseActorRole(middleware.RoleFromContext(r.Context()))
	if err != nil {
		return actor, pkgerrors.Wrap(pkgerrors.CodeForbidden, err, "unknown actor role")
	}

	actor = internalorders.Actor{
		UserID: userID,
		Role:   role,
		IP:     middleware.ClientIP(r),
	}

	if rawBusiness := middleware.BusinessIDFromContext(r.Context()); rawBusiness != "" {
		businessID, err := uuid.Parse(rawBusiness)
		if err != nil {
			return actor, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid business id")
		}
		actor.BusinessID = &businessID
	}

	return actor, nil
}

func parseOrderID(r *http.Request) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "orderId"))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	orderID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id")
	}
	return orderID, nil
}
