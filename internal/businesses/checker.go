package businesses

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/miguelsantiago/turista-backend/pkg/enums"
)

// AccessChecker decides whether a caller may act on behalf of a business.
type AccessChecker interface {
	CanAct(ctx context.Context, businessID, userID uuid.UUID, role enums.ActorRole) (bool, error)
}

type checker struct {
	repo Repository
}

// NewAccessChecker wires the membership-backed access checker.
func NewAccessChecker(repo Repository) (AccessChecker, error) {
	if repo == nil {
		return nil, fmt.Errorf("businesses repository required")
	}
	return &checker{repo: repo}, nil
}

// CanAct resolves business access. Admins and tourism officers act on any
// business; owners must own it; staff need an unrevoked membership.
func (c *checker) CanAct(ctx context.Context, businessID, userID uuid.UUID, role enums.ActorRole) (bool, error) {
	if businessID == uuid.Nil || userID == uuid.Nil {
		return false, nil
	}

	switch role {
	case enums.ActorRoleAdmin, enums.ActorRoleTourismOfficer:
		return true, nil

	case enums.ActorRoleBusinessOwner:
		business, err := c.repo.FindBusiness(ctx, businessID)
		if err != nil {
			if IsNotFound(err) {
				return false, nil
			}
			return false, err
		}
		if business.OwnerID == userID {
			return true, nil
		}
		// Owners of other businesses may still hold a membership here.
		return c.hasMembership(ctx, businessID, userID)

	case enums.ActorRoleStaff:
		return c.hasMembership(ctx, businessID, userID)

	default:
		return false, nil
	}
}

func (c *checker) hasMembership(ctx context.Context, businessID, userID uuid.UUID) (bool, error) {
	_, err := c.repo.FindMembership(ctx, businessID, userID)
	if err != nil {
		if IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
