package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"perfdash/internal/domain/auth"
	"perfdash/internal/domain/directory"
	"perfdash/internal/transport/http/api"
)

type Authenticator interface {
	Authenticate(ctx context.Context, token string) (directory.User, *auth.Claims, error)
}

// Auth resolves a bearer token to the current directory user. Requests
// without a valid token continue anonymously; RequireUser rejects them.
func Auth(authn Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" || authn == nil {
				next.ServeHTTP(w, r)
				return
			}
			user, claims, err := authn.Authenticate(r.Context(), token)
			if err != nil {
				if !errors.Is(err, auth.ErrInvalidSession) {
					slog.Warn("session lookup failed", "request_id", GetRequestID(r.Context()), "err", err)
				}
				next.ServeHTTP(w, r)
				return
			}
			ctx := context.WithValue(r.Context(), ctxKeyUser, &user)
			ctx = context.WithValue(ctx, ctxKeyClaims, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := GetUser(r.Context()); !ok {
			api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", GetRequestID(r.Context()))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func GetUser(ctx context.Context) (*directory.User, bool) {
	user, ok := ctx.Value(ctxKeyUser).(*directory.User)
	return user, ok && user != nil
}

func GetClaims(ctx context.Context) *auth.Claims {
	claims, _ := ctx.Value(ctxKeyClaims).(*auth.Claims)
	return claims
}

// WithUser puts user on ctx as Auth would.
func WithUser(ctx context.Context, user *directory.User) context.Context {
	return context.WithValue(ctx, ctxKeyUser, user)
}
