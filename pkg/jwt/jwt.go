package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/Sidbot007/StudentBidz/pkg/config"
)

type JWTManager interface {
	GenerateAccessToken(userID uuid.UUID, username string) (string, error)
	ValidateAccessToken(tokenString string) (*config.UserClaims, error)
}

type JwtManager struct {
	accessSecret []byte
	now          func() time.Time
}

var _ JWTManager = (*JwtManager)(nil)

func NewJwtManager(accessSecret string) (*JwtManager, error) {
	if accessSecret == "" {
		return nil, errors.New("JWT secret must be set in environment: ACCESS_TOKEN_SECRET")
	}
	return &JwtManager{accessSecret: []byte(accessSecret), now: time.Now}, nil
}

// GenerateAccessToken signs a short lived HS256 token for the user.
func (jm *JwtManager) GenerateAccessToken(userID uuid.UUID, username string) (string, error) {
	now := jm.now()

	claims := config.UserClaims{
		UserID:   userID,
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(config.AccessTokenDuration)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(jm.accessSecret)
}

// ValidateAccessToken verifies and returns the claims from an access token string.
func (jm *JwtManager) ValidateAccessToken(tokenString string) (*config.UserClaims, error) {
	claims := &config.UserClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Method.Alg())
		}
		return jm.accessSecret, nil
	}, jwt.WithTimeFunc(jm.now))
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("invalid access token: %w", err)
	}
	if claims.UserID == uuid.Nil {
		return nil, errors.New("invalid access token: missing user id")
	}

	return claims, nil
}
