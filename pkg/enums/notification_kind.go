package enums

import "fmt"

// NotificationKind categorizes order notifications sent to participants.
type NotificationKind string

const (
	NotificationOrderStatusChanged NotificationKind = "order_status_changed"
	NotificationOrderCancelled     NotificationKind = "order_cancelled"
	NotificationOrderReady         NotificationKind = "order_ready"
	NotificationOrderPickedUp      NotificationKind = "order_picked_up"
	NotificationRefundSucceeded    NotificationKind = "refund_succeeded"
	NotificationRefundFailed       NotificationKind = "refund_failed"
)

var validNotificationKinds = []NotificationKind{
	NotificationOrderStatusChanged,
	NotificationOrderCancelled,
	NotificationOrderReady,
	NotificationOrderPickedUp,
	NotificationRefundSucceeded,
	NotificationRefundFailed,
}

// String implements fmt.Stringer.
func (k NotificationKind) String() string {
	return string(k)
}

// IsValid reports whether the value is a known NotificationKind.
func (k NotificationKind) IsValid() bool {
	for _, candidate := range validNotificationKinds {
		if candidate == k {
			return true
		}
	}
	return false
}

// ParseNotificationKind converts raw input into a NotificationKind.
func ParseNotificationKind(value string) (NotificationKind, error) {
	for _, candidate := range validNotificationKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification kind %q", value)
}
