package enums

import "fmt"

// PaymentStatus tracks how far a payment has progressed.
type PaymentStatus string

const (
	PaymentStatusUnpaid       PaymentStatus = "unpaid"
	PaymentStatusPaid         PaymentStatus = "paid"
	PaymentStatusRefunded     PaymentStatus = "refunded"
	PaymentStatusRefundFailed PaymentStatus = "refund_failed"
)

var validPaymentStatuses = []PaymentStatus{
	PaymentStatusUnpaid,
	PaymentStatusPaid,
	PaymentStatusRefunded,
	PaymentStatusRefundFailed,
}

// String implements fmt.Stringer.
func (s PaymentStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known PaymentStatus.
func (s PaymentStatus) IsValid() bool {
	for _, candidate := range validPaymentStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParsePaymentStatus converts raw input into a PaymentStatus.
func ParsePaymentStatus(value string) (PaymentStatus, error) {
	for _, candidate := range validPaymentStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment status %q", value)
}
