package businesses

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/miguelsantiago/turista-backend/pkg/db/models"
)

// Repository manages persistence for businesses and their memberships.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindBusiness(ctx context.Context, businessID uuid.UUID) (*models.Business, error)
	FindMembership(ctx context.Context, businessID, userID uuid.UUID) (*models.BusinessMembership, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a businesses repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindBusiness(ctx context.Context, businessID uuid.UUID) (*models.Business, error) {
	var business models.Business
	err := r.db.WithContext(ctx).
		Where("id = ?", businessID).
		First(&business).Error
	if err != nil {
		return nil, err
	}
	return &business, nil
}

func (r *repository) FindMembership(ctx context.Context, businessID, userID uuid.UUID) (*models.BusinessMembership, error) {
	var membership models.BusinessMembership
	err := r.db.WithContext(ctx).
		Where("business_id = ? AND user_id = ? AND revoked_at IS NULL", businessID, userID).
		First(&membership).Error
	if err != nil {
		return nil, err
	}
	return &membership, nil
}

// IsNotFound reports whether the error is a missing-row lookup.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
