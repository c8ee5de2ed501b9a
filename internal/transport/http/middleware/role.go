package middleware

import (
	"net/http"

	"github.com/samber/lo"
)

// RequireRole returns middleware that allows access only to tokens whose role
// is one of allowedRoles (e.g. domain.RoleAdmin).
func RequireRole(allowedRoles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			if !ok {
				writeJSONError(w, http.StatusUnauthorized, "Access token required")
				return
			}
			if !lo.Contains(allowedRoles, claims.Role) {
				writeJSONError(w, http.StatusForbidden, "Admin access required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
