package config

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type contextKey string

const (
	AccessTokenDuration = 15 * time.Minute

	// Context Keys
	UserClaimKey contextKey = "user_claims"
)

// UserClaims is the payload for the Access Token. Identity is issued
// elsewhere; this service only reads the user id and name.
type UserClaims struct {
	UserID   uuid.UUID `json:"user_id"`
	Username string    `json:"username"`
	jwt.RegisteredClaims
}
