package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/tendant/simple-tenancy/internal/httputil"
	"github.com/tendant/simple-tenancy/pkg/auth"
	"github.com/tendant/simple-tenancy/pkg/domain"
)

type contextKey string

const (
	// UserKey is the context key for the authenticated user.
	UserKey contextKey = "user"
	// TenantIDKey is the context key for the tenant ID.
	TenantIDKey contextKey = "tenant_id"
	// LicenseKey is the context key for the tenant's valid license.
	LicenseKey contextKey = "license"
)

// Identity headers read by Identify.
const (
	HeaderTenantID = "X-Tenant-ID"
	HeaderUserID   = "X-User-ID"
)

// Authenticator resolves a user within a tenant.
type Authenticator interface {
	Authenticate(userID, tenantID string) (*domain.User, bool)
}

// Identify resolves the caller from the X-Tenant-ID and X-User-ID headers.
// Unknown users, users of another tenant and inactive tenants get 401.
func Identify(gate Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tenantID := strings.TrimSpace(r.Header.Get(HeaderTenantID))
			userID := strings.TrimSpace(r.Header.Get(HeaderUserID))
			if tenantID == "" || userID == "" {
				httputil.Error(w, http.StatusUnauthorized, "missing tenant or user identity")
				return
			}

			user, ok := gate.Authenticate(userID, tenantID)
			if !ok {
				httputil.Error(w, http.StatusUnauthorized, "unknown user or inactive tenant")
				return
			}

			ctx := context.WithValue(r.Context(), UserKey, user)
			ctx = context.WithValue(ctx, TenantIDKey, user.TenantID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequirePermission rejects callers lacking permission with 403.
// Must run after Identify.
func RequirePermission(permission string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := GetUser(r.Context())
			if !ok {
				httputil.Error(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			if !auth.CheckPermission(user, permission) {
				httputil.Error(w, http.StatusForbidden, "missing permission: "+permission)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// AdminToken guards operator routes with a static bearer token.
func AdminToken(token string) func(http.Handler) http.Handler {
	want := []byte(token)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var got string
			parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
			if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
				got = parts[1]
			}
			if len(want) == 0 || subtle.ConstantTimeCompare([]byte(got), want) != 1 {
				httputil.Error(w, http.StatusUnauthorized, "invalid admin token")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GetUser extracts the authenticated user from the request context.
func GetUser(ctx context.Context) (*domain.User, bool) {
	user, ok := ctx.Value(UserKey).(*domain.User)
	return user, ok
}

// GetTenantID extracts the tenant ID from the request context.
func GetTenantID(ctx context.Context) (string, bool) {
	tenantID, ok := ctx.Value(TenantIDKey).(string)
	return tenantID, ok
}

// GetLicense extracts the tenant's license from the request context.
func GetLicense(ctx context.Context) (*domain.License, bool) {
	license, ok := ctx.Value(LicenseKey).(*domain.License)
	return license, ok
}
