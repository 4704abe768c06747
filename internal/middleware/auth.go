package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/ruralpay/orgledger/internal/models"
)

type Role string

const (
	RoleOrgAdmin  Role = "ORG_ADMIN"
	RoleBankAdmin Role = "BANK_ADMIN"
)

// Principal is the authenticated caller. OrganizationID is zero for bank admins.
type Principal struct {
	UserID         int64
	OrganizationID int64
	Role           Role
}

// CanAccess reports whether the caller may act on orgID. Bank admins act on
// every organization, organization admins only on their own.
func (p Principal) CanAccess(orgID int64) error {
	if p.Role == RoleBankAdmin || (p.Role == RoleOrgAdmin && p.OrganizationID == orgID) {
		return nil
	}
	return models.ErrForbidden
}

type principalKey struct{}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

// Claims is the bearer token payload.
type Claims struct {
	UserID         int64  `json:"user_id"`
	OrganizationID int64  `json:"organization_id,omitempty"`
	Role           Role   `json:"role"`
	jwt.RegisteredClaims
}

type Authenticator struct {
	secret []byte
}

func NewAuthenticator(secret string) *Authenticator {
	return &Authenticator{secret: []byte(secret)}
}

func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Get token from Authorization header
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			writeError(w, "Authorization header required", http.StatusUnauthorized)
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			writeError(w, "Invalid authorization header format", http.StatusUnauthorized)
			return
		}

		principal, err := a.validateToken(parts[1])
		if err != nil {
			writeError(w, "Invalid token", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
	})
}

func (a *Authenticator) validateToken(tokenString string) (Principal, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil || !token.Valid {
		return Principal{}, fmt.Errorf("invalid token: %w", err)
	}

	switch {
	case claims.UserID <= 0:
		return Principal{}, errors.New("token has no user")
	case claims.Role == RoleOrgAdmin && claims.OrganizationID <= 0:
		return Principal{}, errors.New("organization admin token has no organization")
	case claims.Role != RoleOrgAdmin && claims.Role != RoleBankAdmin:
		return Principal{}, fmt.Errorf("unknown role %q", claims.Role)
	}

	return Principal{UserID: claims.UserID, OrganizationID: claims.OrganizationID, Role: claims.Role}, nil
}

// RequireRole lets the request through only for the given roles.
func RequireRole(roles ...Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := PrincipalFromContext(r.Context())
			if !ok {
				writeError(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			for _, role := range roles {
				if p.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			writeError(w, "Forbidden", http.StatusForbidden)
		})
	}
}
