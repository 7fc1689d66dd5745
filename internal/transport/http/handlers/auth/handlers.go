package authhandler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"perfdash/internal/domain/apperr"
	"perfdash/internal/domain/auth"
	"perfdash/internal/transport/http/api"
	"perfdash/internal/transport/http/middleware"
	"perfdash/internal/transport/http/shared"
)

const stateCookie = "perfdash_oauth_state"

type Sessions interface {
	Login(ctx context.Context, email, password string) (auth.Session, error)
	LoginVerifiedEmail(ctx context.Context, email string) (auth.Session, error)
	Logout(ctx context.Context, claims *auth.Claims) error
}

type OAuthProvider interface {
	AuthURL() (string, string, error)
	Email(ctx context.Context, code, state, cookieState string) (string, error)
}

type Handler struct {
	Sessions Sessions
	// OAuth is nil when Google sign-in is not configured.
	OAuth        OAuthProvider
	SecureCookie bool
}

func NewHandler(sessions Sessions, oauth OAuthProvider, secureCookie bool) *Handler {
	return &Handler{Sessions: sessions, OAuth: oauth, SecureCookie: secureCookie}
}

// RegisterPublic mounts the routes reachable without a session.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Post("/auth/login", h.HandleLogin)
	r.Get("/auth/oauth/google", h.HandleOAuthStart)
	r.Get("/auth/oauth/google/callback", h.HandleOAuthCallback)
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/auth/logout", h.HandleLogout)
	r.Get("/auth/me", h.HandleMe)
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	var payload loginRequest
	if err := shared.Decode(r, &payload); err != nil {
		api.FailError(w, err, reqID)
		return
	}

	session, err := h.Sessions.Login(r.Context(), payload.Email, payload.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		api.Fail(w, http.StatusUnauthorized, "invalid_credentials", "invalid credentials", reqID)
		return
	}
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	api.Success(w, session, reqID)
}

func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if claims := middleware.GetClaims(r.Context()); claims != nil {
		if err := h.Sessions.Logout(r.Context(), claims); err != nil {
			slog.Warn("logout session revoke failed", "user_id", claims.UserID, "err", err)
		}
	}
	api.Success(w, map[string]string{"status": "logged_out"}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	api.Success(w, map[string]any{
		"user":           user,
		"roleName":       user.Role.DisplayName(),
		"departmentName": user.Department.DisplayName(),
	}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) HandleOAuthStart(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	if h.OAuth == nil {
		api.Fail(w, http.StatusNotFound, "oauth_disabled", "google sign-in is not configured", reqID)
		return
	}
	url, state, err := h.OAuth.AuthURL()
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/api/v1/auth/oauth",
		MaxAge:   int((10 * time.Minute).Seconds()),
		HttpOnly: true,
		Secure:   h.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, url, http.StatusFound)
}

func (h *Handler) HandleOAuthCallback(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	if h.OAuth == nil {
		api.Fail(w, http.StatusNotFound, "oauth_disabled", "google sign-in is not configured", reqID)
		return
	}
	cookieState := ""
	if c, err := r.Cookie(stateCookie); err == nil {
		cookieState = c.Value
	}
	http.SetCookie(w, &http.Cookie{Name: stateCookie, Value: "", Path: "/api/v1/auth/oauth", MaxAge: -1})

	query := r.URL.Query()
	email, err := h.OAuth.Email(r.Context(), query.Get("code"), query.Get("state"), cookieState)
	if errors.Is(err, auth.ErrOAuthState) {
		api.Fail(w, http.StatusBadRequest, "invalid_state", "sign-in expired, start again", reqID)
		return
	}
	if err != nil {
		slog.Warn("oauth callback failed", "request_id", reqID, "err", err)
		api.FailError(w, apperr.External("google", err), reqID)
		return
	}

	session, err := h.Sessions.LoginVerifiedEmail(r.Context(), email)
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	api.Success(w, session, reqID)
}
