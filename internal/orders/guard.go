package orders

import (
	"github.com/miguelsantiago/turista-backend/pkg/db/models"
	"github.com/miguelsantiago/turista-backend/pkg/enums"
)

// GuardResult carries the payment guard verdict and, when denied, the reason.
type GuardResult struct {
	Allowed bool
	Reason  string
}

// checkPaymentGuard evaluates payment preconditions for the target status
// against the order+payment snapshot loaded at the start of the call. It never
// fetches live gateway state; the cached payment_status is authoritative here.
func checkPaymentGuard(to enums.OrderStatus, order *models.Order) GuardResult {
	payment := order.Payment

	switch to {
	case enums.OrderStatusReadyForPickup:
		if payment != nil && payment.Method == enums.PaymentMethodCash {
			return GuardResult{Allowed: true}
		}
		if order.PaymentStatus != enums.PaymentStatusPaid {
			return GuardResult{
				Allowed: false,
				Reason:  "order must be paid before it can be marked ready for pickup",
			}
		}
		return GuardResult{Allowed: true}

	case enums.OrderStatusCompleted:
		if payment != nil && payment.Method.IsOnline() && order.PaymentStatus == enums.PaymentStatusRefundFailed {
			return GuardResult{
				Allowed: false,
				Reason:  "order has an unresolved failed refund",
			}
		}
		return GuardResult{Allowed: true}

	default:
		return GuardResult{Allowed: true}
	}
}
