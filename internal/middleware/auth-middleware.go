package middleware

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/Sidbot007/StudentBidz/internal/handlers"
	"github.com/Sidbot007/StudentBidz/internal/service"
	"github.com/Sidbot007/StudentBidz/pkg/config"
	"github.com/Sidbot007/StudentBidz/pkg/jwt"
)

// AuthMiddleware validates the bearer token, records the caller as a known
// user and puts the claims on the request context.
func AuthMiddleware(jm jwt.JWTManager, users service.UserServicer, log *zap.Logger) func(http.Handler) http.Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return func(h http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			parts := strings.Split(authHeader, " ")

			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				handlers.RespondErrorJSON(w, r, http.StatusUnauthorized, handlers.ErrMissingToken.Error(), "Missing token in the Authorization header", nil)
				return
			}
			accessTokenString := parts[1]

			claims, err := jm.ValidateAccessToken(accessTokenString)
			if err != nil {
				handlers.RespondErrorJSON(w, r, http.StatusUnauthorized, handlers.ErrToken.Error(), "Token is either revoked or invalid.", nil)
				return
			}

			if err := users.EnsureUser(r.Context(), claims.UserID, claims.Username); err != nil {
				log.Error("[Auth] failed to record user -> ", zap.Stringer("user_id", claims.UserID), zap.Error(err))
				handlers.RespondErrorJSON(w, r, http.StatusInternalServerError, handlers.ErrInternalServer.Error(), "Internal server error", nil)
				return
			}

			ctx := context.WithValue(r.Context(), config.UserClaimKey, claims)
			h.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
