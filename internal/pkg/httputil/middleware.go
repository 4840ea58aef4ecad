package httputil

import (
	"context"
	"errors"
	"net/http"

	"github.com/mashkov/statusdeck/internal/domain"
)

// CORSMiddleware creates CORS middleware that handles preflight requests
// and adds appropriate CORS headers to responses.
func CORSMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	originsSet := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		originsSet[o] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			if originsSet[origin] || originsSet["*"] {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Credentials", "true")
			}

			if r.Method == http.MethodOptions {
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Clerk-Id")
				w.Header().Set("Access-Control-Max-Age", "86400")
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

type contextKey string

// Context keys for storing caller information.
const (
	UserIDKey  contextKey = "user_id"
	OrgIDKey   contextKey = "organization_id"
	RoleKey    contextKey = "role"
	ClerkIDKey contextKey = "clerk_id"
)

// Caller identifies the authenticated user and the organization every
// request is scoped to.
type Caller struct {
	UserID         string
	OrganizationID string
	Role           domain.Role
}

// Errors a CallerResolver may return. Anything else maps to 500.
var (
	ErrCallerNotFound = errors.New("user not found")
	ErrNoOrganization = errors.New("user has no organization")
)

// CallerResolver resolves an external identity into a local caller.
// The clerk ID is an opaque subject identifier issued by the external
// identity provider; no credential verification happens here.
type CallerResolver interface {
	ResolveCaller(ctx context.Context, clerkID string) (Caller, error)
}

// RequireOrganization scopes a request to the caller's organization.
// Every read and write behind it is tenant-isolated by construction.
func RequireOrganization(resolver CallerResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clerkID := ClerkID(r)
			if clerkID == "" {
				Error(w, http.StatusBadRequest, "clerkId is required")
				return
			}

			caller, err := resolver.ResolveCaller(r.Context(), clerkID)
			switch {
			case errors.Is(err, ErrCallerNotFound):
				Error(w, http.StatusNotFound, "user not found")
				return
			case errors.Is(err, ErrNoOrganization):
				Error(w, http.StatusBadRequest, "user has no organization")
				return
			case err != nil:
				Error(w, http.StatusInternalServerError, "internal error")
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, caller.UserID)
			ctx = context.WithValue(ctx, OrgIDKey, caller.OrganizationID)
			ctx = context.WithValue(ctx, RoleKey, caller.Role)
			ctx = context.WithValue(ctx, ClerkIDKey, clerkID)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin rejects callers without the admin role. Must run inside
// RequireOrganization.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetRole(r.Context()) != domain.RoleAdmin {
			Error(w, http.StatusForbidden, "admin role required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ClerkID extracts the external subject identifier from a request: the
// X-Clerk-Id header or the clerkId query parameter.
func ClerkID(r *http.Request) string {
	if id := r.Header.Get("X-Clerk-Id"); id != "" {
		return id
	}
	return r.URL.Query().Get("clerkId")
}

// GetUserID extracts the caller's user ID from context.
func GetUserID(ctx context.Context) string {
	if id, ok := ctx.Value(UserIDKey).(string); ok {
		return id
	}
	return ""
}

// GetOrgID extracts the caller's organization ID from context.
func GetOrgID(ctx context.Context) string {
	if id, ok := ctx.Value(OrgIDKey).(string); ok {
		return id
	}
	return ""
}

// GetRole extracts the caller's role from context.
func GetRole(ctx context.Context) domain.Role {
	if role, ok := ctx.Value(RoleKey).(domain.Role); ok {
		return role
	}
	return ""
}
