package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/miguelsantiago/turista-backend/pkg/enums"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID     uuid.UUID
	Role       enums.ActorRole
	BusinessID *uuid.UUID
	JTI        string
}

// AccessTokenClaims represents the typed JWT issued to clients.
type AccessTokenClaims struct {
	UserID     uuid.UUID       `json:"user_id"`
	Role       enums.ActorRole `json:"role"`
	BusinessID *uuid.UUID      `json:"business_id,omitempty"`
	jwt.RegisteredClaims
}
