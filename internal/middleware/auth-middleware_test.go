package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/Sidbot007/StudentBidz/internal/handlers"
	"github.com/Sidbot007/StudentBidz/internal/model"
	"github.com/Sidbot007/StudentBidz/internal/repository"
	"github.com/Sidbot007/StudentBidz/internal/service"
	"github.com/Sidbot007/StudentBidz/pkg/jwt"
)

func setup(t *testing.T) (*jwt.JwtManager, *repository.MemoryStore, http.Handler, *bool) {
	t.Helper()
	jm, err := jwt.NewJwtManager("test-secret")
	require.NoError(t, err)
	store := repository.NewMemoryStore()
	users := service.NewUserService(store)

	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		claims := handlers.GetUserClaims(r.Context())
		require.NotNil(t, claims)
		handlers.RespondSuccessJSON(w, r, http.StatusOK, "", claims.Username)
	})
	return jm, store, AuthMiddleware(jm, users, zaptest.NewLogger(t))(next), &called
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp model.APIResponse[any]
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.NotNil(t, resp.Error)
	return resp.Error.Code
}

func TestAuthMiddleware_MissingToken(t *testing.T) {
	_, _, h, called := setup(t)

	for _, header := range []string{"", "Bearer", "Basic abc", "Bearer a b"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code, header)
		assert.Equal(t, handlers.ErrMissingToken.Error(), errorCode(t, rec), header)
	}
	assert.False(t, *called)
}

func TestAuthMiddleware_InvalidToken(t *testing.T) {
	_, _, h, called := setup(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, handlers.ErrToken.Error(), errorCode(t, rec))
	assert.False(t, *called)
}

func TestAuthMiddleware_RecordsUser(t *testing.T) {
	jm, store, h, called := setup(t)
	userID := uuid.New()
	token, err := jm.GenerateAccessToken(userID, "alice")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "bearer "+token)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, *called)

	u, err := store.GetUser(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Username)
}
