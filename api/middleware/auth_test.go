package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	pkgAuth "github.com/miguelsantiago/turista-backend/pkg/auth"
	"github.com/miguelsantiago/turista-backend/pkg/config"
	"github.com/miguelsantiago/turista-backend/pkg/enums"
)

func jwtConfigForTest() config.JWTConfig {
	return config.JWTConfig{
		Secret:            "test-secret",
		Issuer:            "turista-test",
		ExpirationMinutes: 5,
	}
}

func mintToken(t *testing.T, cfg config.JWTConfig, role enums.ActorRole, businessID *uuid.UUID) (string, uuid.UUID) {
	t.Helper()
	userID := uuid.New()
	token, err := pkgAuth.MintAccessToken(cfg, time.Now(), pkgAuth.AccessTokenPayload{
		UserID:     userID,
		Role:       role,
		BusinessID: businessID,
	})
	require.NoError(t, err)
	return token, userID
}

func TestAuthSeedsContextFromClaims(t *testing.T) {
	cfg := jwtConfigForTest()
	businessID := uuid.New()
	token, userID := mintToken(t, cfg, enums.ActorRoleBusinessOwner, &businessID)

	var gotUser, gotRole, gotBusiness string
	handler := Auth(cfg, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser = UserIDFromContext(r.Context())
		gotRole = RoleFromContext(r.Context())
		gotBusiness = BusinessIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, userID.String(), gotUser)
	require.Equal(t, string(enums.ActorRoleBusinessOwner), gotRole)
	require.Equal(t, businessID.String(), gotBusiness)
}

func TestAuthRejectsMissingHeader(t *testing.T) {
	handler := Auth(jwtConfigForTest(), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthRejectsTamperedToken(t *testing.T) {
	cfg := jwtConfigForTest()
	token, _ := mintToken(t, cfg, enums.ActorRoleTourist, nil)

	otherCfg := cfg
	otherCfg.Secret = "different-secret"

	handler := Auth(otherCfg, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireRoleBlocksOtherRoles(t *testing.T) {
	handler := RequireRole(nil, "admin", "tourism_officer")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(WithRole(req.Context(), "tourist"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusForbidden, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(WithRole(req.Context(), "tourism_officer"))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)
}
