package enums

import "fmt"

// ActorRole identifies who is acting on an order.
type ActorRole string

const (
	ActorRoleTourist        ActorRole = "tourist"
	ActorRoleBusinessOwner  ActorRole = "business_owner"
	ActorRoleStaff          ActorRole = "staff"
	ActorRoleTourismOfficer ActorRole = "tourism_officer"
	ActorRoleAdmin          ActorRole = "admin"
)

var validActorRoles = []ActorRole{
	ActorRoleTourist,
	ActorRoleBusinessOwner,
	ActorRoleStaff,
	ActorRoleTourismOfficer,
	ActorRoleAdmin,
}

// String implements fmt.Stringer.
func (r ActorRole) String() string {
	return string(r)
}

// IsValid reports whether the value is a known ActorRole.
func (r ActorRole) IsValid() bool {
	for _, candidate := range validActorRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// IsBusinessSide reports whether the role acts on behalf of a business.
func (r ActorRole) IsBusinessSide() bool {
	return r == ActorRoleBusinessOwner || r == ActorRoleStaff
}

// AllActorRoles returns every known role.
func AllActorRoles() []ActorRole {
	return append([]ActorRole(nil), validActorRoles...)
}

// ParseActorRole converts raw input into an ActorRole.
func ParseActorRole(value string) (ActorRole, error) {
	for _, candidate := range validActorRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid actor role %q", value)
}
