package orders

import "github.com/miguelsantiago/turista-backend/pkg/enums"

// edge is a declared (from, to) pair in the lifecycle graph.
type edge struct {
	from enums.OrderStatus
	to   enums.OrderStatus
}

// transitionTable is the single source of truth for legal lifecycle edges and
// the roles permitted to trigger them. Any (from, to, role) triple not listed
// here is rejected.
var transitionTable = map[edge][]enums.ActorRole{
	{enums.OrderStatusDraft, enums.OrderStatusPending}: {
		enums.ActorRoleTourist,
		enums.ActorRoleAdmin,
	},
	{enums.OrderStatusPending, enums.OrderStatusReserved}: {
		enums.ActorRoleTourist,
		enums.ActorRoleBusinessOwner,
		enums.ActorRoleStaff,
		enums.ActorRoleAdmin,
	},
	{enums.OrderStatusReserved, enums.OrderStatusPreparing}: {
		enums.ActorRoleBusinessOwner,
		enums.ActorRoleStaff,
		enums.ActorRoleAdmin,
	},
	{enums.OrderStatusPreparing, enums.OrderStatusReadyForPickup}: {
		enums.ActorRoleBusinessOwner,
		enums.ActorRoleStaff,
		enums.ActorRoleAdmin,
	},
	{enums.OrderStatusReadyForPickup, enums.OrderStatusPickedUp}: {
		enums.ActorRoleBusinessOwner,
		enums.ActorRoleStaff,
		enums.ActorRoleAdmin,
	},
	{enums.OrderStatusPickedUp, enums.OrderStatusCompleted}: {
		enums.ActorRoleBusinessOwner,
		enums.ActorRoleStaff,
		enums.ActorRoleAdmin,
	},
	{enums.OrderStatusCompleted, enums.OrderStatusArchived}: {
		enums.ActorRoleTourismOfficer,
		enums.ActorRoleAdmin,
	},

	// Cancellation is a side branch from every pre-pickup state, not a linear
	// step. No cancellation edge leaves picked_up or any terminal.
	{enums.OrderStatusDraft, enums.OrderStatusCancelledByUser}:          {enums.ActorRoleTourist, enums.ActorRoleAdmin},
	{enums.OrderStatusPending, enums.OrderStatusCancelledByUser}:        {enums.ActorRoleTourist, enums.ActorRoleAdmin},
	{enums.OrderStatusReserved, enums.OrderStatusCancelledByUser}:       {enums.ActorRoleTourist, enums.ActorRoleAdmin},
	{enums.OrderStatusPreparing, enums.OrderStatusCancelledByUser}:      {enums.ActorRoleTourist, enums.ActorRoleAdmin},
	{enums.OrderStatusReadyForPickup, enums.OrderStatusCancelledByUser}: {enums.ActorRoleTourist, enums.ActorRoleAdmin},

	{enums.OrderStatusDraft, enums.OrderStatusCancelledByBusiness}:          {enums.ActorRoleBusinessOwner, enums.ActorRoleStaff, enums.ActorRoleAdmin},
	{enums.OrderStatusPending, enums.OrderStatusCancelledByBusiness}:        {enums.ActorRoleBusinessOwner, enums.ActorRoleStaff, enums.ActorRoleAdmin},
	{enums.OrderStatusReserved, enums.OrderStatusCancelledByBusiness}:       {enums.ActorRoleBusinessOwner, enums.ActorRoleStaff, enums.ActorRoleAdmin},
	{enums.OrderStatusPreparing, enums.OrderStatusCancelledByBusiness}:      {enums.ActorRoleBusinessOwner, enums.ActorRoleStaff, enums.ActorRoleAdmin},
	{enums.OrderStatusReadyForPickup, enums.OrderStatusCancelledByBusiness}: {enums.ActorRoleBusinessOwner, enums.ActorRoleStaff, enums.ActorRoleAdmin},
}

// isAllowed reports whether the (from, to) edge exists and the role may
// trigger it. Pure function, no I/O.
func isAllowed(from, to enums.OrderStatus, role enums.ActorRole) bool {
	roles, ok := transitionTable[edge{from: from, to: to}]
	if !ok {
		return false
	}
	for _, candidate := range roles {
		if candidate == role {
			return true
		}
	}
	return false
}
