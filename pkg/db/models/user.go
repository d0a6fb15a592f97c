package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/miguelsantiago/turista-backend/pkg/enums"
)

// User is an authenticated account (tourist, business user, or officer).
type User struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Email     string          `gorm:"column:email;not null;uniqueIndex"`
	FullName  string          `gorm:"column:full_name;not null"`
	Role      enums.ActorRole `gorm:"column:role;type:text;not null;default:'tourist'"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
