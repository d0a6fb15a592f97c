package enums

import "fmt"

// CancelledBy records who cancelled an order.
type CancelledBy string

const (
	CancelledByUser     CancelledBy = "user"
	CancelledByBusiness CancelledBy = "business"
	CancelledByAdmin    CancelledBy = "admin"
)

var validCancelledBy = []CancelledBy{
	CancelledByUser,
	CancelledByBusiness,
	CancelledByAdmin,
}

// String implements fmt.Stringer.
func (c CancelledBy) String() string {
	return string(c)
}

// IsValid reports whether the value is a known CancelledBy.
func (c CancelledBy) IsValid() bool {
	for _, candidate := range validCancelledBy {
		if candidate == c {
			return true
		}
	}
	return false
}

// TerminalStatus maps the cancelling party to its order status. Admin
// cancellations land on the user-side status; the attribution lives in
// the cancelled_by column.
func (c CancelledBy) TerminalStatus() OrderStatus {
	if c == CancelledByBusiness {
		return OrderStatusCancelledByBusiness
	}
	return OrderStatusCancelledByUser
}

// ParseCancelledBy converts raw input into a CancelledBy.
func ParseCancelledBy(value string) (CancelledBy, error) {
	for _, candidate := range validCancelledBy {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid cancelled by %q", value)
}
