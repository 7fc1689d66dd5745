package middleware

import (
	"net/http"

	"perfdash/internal/domain/directory"
	"perfdash/internal/transport/http/api"
)

// Require rejects requests whose user fails allowed, such as
// policy.CanManageUsers.
func Require(allowed func(*directory.User) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := GetUser(r.Context())
			if !ok {
				api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", GetRequestID(r.Context()))
				return
			}
			if !allowed(user) {
				api.Fail(w, http.StatusForbidden, "forbidden", "not allowed for your role", GetRequestID(r.Context()))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
