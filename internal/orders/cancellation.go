package orders

import (
	"time"

	"github.com/miguelsantiago/turista-backend/pkg/db/models"
	"github.com/miguelsantiago/turista-backend/pkg/enums"
)

// CancellationDecision is the policy verdict for a cancellation request.
// CancelledBy is only meaningful when Allowed is true.
type CancellationDecision struct {
	Allowed     bool
	Reason      string
	CancelledBy enums.CancelledBy
}

// evaluateCancellation applies the cancellation policy to the order snapshot.
//
// Tourists may cancel their own order within the grace window of creation, or
// at any time while the order is still pending (the business has not acted).
// Business-side roles and admins bypass the grace window for any non-terminal
// state; the transition table already restricts which edges they can reach.
// Admin and officer cancellations are attributed as cancelled_by=admin.
func evaluateCancellation(order *models.Order, role enums.ActorRole, target enums.OrderStatus, now time.Time, grace time.Duration) CancellationDecision {
	// Completed keeps its archive edge but is closed to cancellation.
	if order.Status == enums.OrderStatusCompleted || order.Status.IsTerminal() {
		return CancellationDecision{
			Allowed: false,
			Reason:  "order is already closed",
		}
	}

	cancelledBy := enums.CancelledByUser
	if target == enums.OrderStatusCancelledByBusiness {
		cancelledBy = enums.CancelledByBusiness
	}

	switch role {
	case enums.ActorRoleAdmin, enums.ActorRoleTourismOfficer:
		return CancellationDecision{Allowed: true, CancelledBy: enums.CancelledByAdmin}

	case enums.ActorRoleBusinessOwner, enums.ActorRoleStaff:
		return CancellationDecision{Allowed: true, CancelledBy: cancelledBy}

	case enums.ActorRoleTourist:
		withinGrace := now.Sub(order.CreatedAt) <= grace
		if withinGrace || order.Status == enums.OrderStatusPending {
			return CancellationDecision{Allowed: true, CancelledBy: enums.CancelledByUser}
		}
		return CancellationDecision{
			Allowed: false,
			Reason:  "cancellation window has passed and the business has already acted on the order",
		}

	default:
		return CancellationDecision{Allowed: false, Reason: "role may not cancel orders"}
	}
}
