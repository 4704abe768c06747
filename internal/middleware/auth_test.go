package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/ruralpay/orgledger/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret string, claims Claims) string {
	t.Helper()
	if claims.ExpiresAt == nil {
		claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(time.Hour))
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func principalEcho(t *testing.T, got *Principal) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := PrincipalFromContext(r.Context())
		require.True(t, ok)
		*got = p
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestAuthenticator_Middleware(t *testing.T) {
	auth := NewAuthenticator(testSecret)

	t.Run("valid organization admin token", func(t *testing.T) {
		var got Principal
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, Claims{UserID: 7, OrganizationID: 3, Role: RoleOrgAdmin}))
		w := httptest.NewRecorder()

		auth.Middleware(principalEcho(t, &got)).ServeHTTP(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, Principal{UserID: 7, OrganizationID: 3, Role: RoleOrgAdmin}, got)
	})

	rejected := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"wrong scheme", "Basic abc"},
		{"wrong secret", "Bearer " + signToken(t, "other", Claims{UserID: 7, Role: RoleBankAdmin})},
		{"expired", "Bearer " + signToken(t, testSecret, Claims{UserID: 7, Role: RoleBankAdmin,
			RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute))}})},
		{"unknown role", "Bearer " + signToken(t, testSecret, Claims{UserID: 7, Role: "TELLER"})},
		{"org admin without organization", "Bearer " + signToken(t, testSecret, Claims{UserID: 7, Role: RoleOrgAdmin})},
	}
	for _, tt := range rejected {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()

			auth.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				t.Fatal("handler must not run")
			})).ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}

func TestRequireRole(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	guarded := RequireRole(RoleBankAdmin)(ok)

	tests := []struct {
		name      string
		principal *Principal
		want      int
	}{
		{"bank admin", &Principal{UserID: 1, Role: RoleBankAdmin}, http.StatusOK},
		{"organization admin", &Principal{UserID: 2, OrganizationID: 4, Role: RoleOrgAdmin}, http.StatusForbidden},
		{"anonymous", nil, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", nil)
			if tt.principal != nil {
				req = req.WithContext(WithPrincipal(req.Context(), *tt.principal))
			}
			w := httptest.NewRecorder()
			guarded.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestPrincipal_CanAccess(t *testing.T) {
	bank := Principal{UserID: 1, Role: RoleBankAdmin}
	org := Principal{UserID: 2, OrganizationID: 4, Role: RoleOrgAdmin}

	assert.NoError(t, bank.CanAccess(4))
	assert.NoError(t, bank.CanAccess(9))
	assert.NoError(t, org.CanAccess(4))
	assert.ErrorIs(t, org.CanAccess(9), models.ErrForbidden)
}
