package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/miguelsantiago/turista-backend/pkg/enums"
)

// BusinessMembership ties a user to a business with a working role.
type BusinessMembership struct {
	ID         uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BusinessID uuid.UUID       `gorm:"column:business_id;type:uuid;not null;index:idx_membership_business_user,unique"`
	UserID     uuid.UUID       `gorm:"column:user_id;type:uuid;not null;index:idx_membership_business_user,unique"`
	Role       enums.ActorRole `gorm:"column:role;type:text;not null;default:'staff'"`
	RevokedAt  *time.Time      `gorm:"column:revoked_at"`
	CreatedAt  time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
