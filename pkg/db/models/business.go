package models

import (
	"time"

	"github.com/google/uuid"
)

// Business is a registered local business that fulfills pickup orders.
type Business struct {
	ID          uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OwnerID     uuid.UUID  `gorm:"column:owner_id;type:uuid;not null"`
	Name        string     `gorm:"column:name;not null"`
	Municipality string    `gorm:"column:municipality;not null"`
	Address     *string    `gorm:"column:address"`
	Phone       *string    `gorm:"column:phone"`
	SuspendedAt *time.Time `gorm:"column:suspended_at"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
