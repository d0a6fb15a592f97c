package enums

import "fmt"

// AuditEventType categorizes entries in the order audit trail.
type AuditEventType string

const (
	AuditEventStatusChange  AuditEventType = "status_change"
	AuditEventCancellation  AuditEventType = "cancellation"
	AuditEventPaymentUpdate AuditEventType = "payment_update"
	AuditEventPickupEvent   AuditEventType = "pickup_event"
)

var validAuditEventTypes = []AuditEventType{
	AuditEventStatusChange,
	AuditEventCancellation,
	AuditEventPaymentUpdate,
	AuditEventPickupEvent,
}

// String implements fmt.Stringer.
func (t AuditEventType) String() string {
	return string(t)
}

// IsValid reports whether the value is a known AuditEventType.
func (t AuditEventType) IsValid() bool {
	for _, candidate := range validAuditEventTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseAuditEventType converts raw input into an AuditEventType.
func ParseAuditEventType(value string) (AuditEventType, error) {
	for _, candidate := range validAuditEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid audit event type %q", value)
}
