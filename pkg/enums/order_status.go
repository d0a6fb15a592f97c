package enums

import "fmt"

// OrderStatus tracks the lifecycle of a tourist order.
type OrderStatus string

const (
	OrderStatusDraft               OrderStatus = "draft"
	OrderStatusPending             OrderStatus = "pending"
	OrderStatusReserved            OrderStatus = "reserved"
	OrderStatusPreparing           OrderStatus = "preparing"
	OrderStatusReadyForPickup      OrderStatus = "ready_for_pickup"
	OrderStatusPickedUp            OrderStatus = "picked_up"
	OrderStatusCompleted           OrderStatus = "completed"
	OrderStatusCancelledByUser     OrderStatus = "cancelled_by_user"
	OrderStatusCancelledByBusiness OrderStatus = "cancelled_by_business"
	OrderStatusArchived            OrderStatus = "archived"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusDraft,
	OrderStatusPending,
	OrderStatusReserved,
	OrderStatusPreparing,
	OrderStatusReadyForPickup,
	OrderStatusPickedUp,
	OrderStatusCompleted,
	OrderStatusCancelledByUser,
	OrderStatusCancelledByBusiness,
	OrderStatusArchived,
}

// String implements fmt.Stringer.
func (s OrderStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known OrderStatus.
func (s OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions leave this status.
// Completed is not terminal: officers and admins may still archive it.
func (s OrderStatus) IsTerminal() bool {
	switch s {
	case OrderStatusArchived, OrderStatusCancelledByUser, OrderStatusCancelledByBusiness:
		return true
	default:
		return false
	}
}

// IsCancellation reports whether the status is one of the cancellation terminals.
func (s OrderStatus) IsCancellation() bool {
	return s == OrderStatusCancelledByUser || s == OrderStatusCancelledByBusiness
}

// ParseOrderStatus converts raw input into an OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	for _, candidate := range validOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}
