package usershandler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"perfdash/internal/domain/apperr"
	"perfdash/internal/domain/audit"
	"perfdash/internal/domain/directory"
	"perfdash/internal/domain/policy"
	"perfdash/internal/transport/http/api"
	"perfdash/internal/transport/http/middleware"
	"perfdash/internal/transport/http/shared"
)

type Directory interface {
	Get(ctx context.Context, id string) (directory.User, error)
	List(ctx context.Context, filter directory.Filter) ([]directory.User, error)
	Create(ctx context.Context, input directory.UserInput) (directory.User, error)
	Update(ctx context.Context, id string, input directory.UserInput) (directory.User, error)
}

type Handler struct {
	Directory Directory
	Audit     shared.Auditor
}

func NewHandler(dir Directory, auditor shared.Auditor) *Handler {
	return &Handler{Directory: dir, Audit: auditor}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/users", func(r chi.Router) {
		r.Use(middleware.Require(policy.CanManageUsers))
		r.Get("/", h.handleList)
		r.Post("/", h.handleCreate)
		r.Get("/{userID}", h.handleGet)
		r.Put("/{userID}", h.handleUpdate)
	})
}

type userRequest struct {
	Name        string `json:"name" validate:"required,max=200"`
	Email       string `json:"email" validate:"required,email"`
	Role        string `json:"role" validate:"required,oneof=employee manager group-leader ld-team"`
	Department  string `json:"department" validate:"required,oneof=rd sm ga"`
	ManagerID   string `json:"managerId"`
	SlackUserID string `json:"slackUserId"`
	Password    string `json:"password" validate:"omitempty,min=8"`
}

func (p userRequest) input() directory.UserInput {
	return directory.UserInput{
		Name:        p.Name,
		Email:       p.Email,
		Role:        p.Role,
		Department:  p.Department,
		ManagerID:   p.ManagerID,
		SlackUserID: p.SlackUserID,
		Password:    p.Password,
	}
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	var filter directory.Filter
	var v apperr.Validation
	if raw := r.URL.Query().Get("role"); raw != "" {
		role, err := directory.ParseRole(raw)
		if err != nil {
			v.Add("role", "must be one of employee, manager, group-leader, ld-team")
		}
		filter.Role = role
	}
	if raw := r.URL.Query().Get("department"); raw != "" {
		dept, err := directory.ParseDepartment(raw)
		if err != nil {
			v.Add("department", "must be one of rd, sm, ga")
		}
		filter.Department = dept
	}
	filter.ManagerID = r.URL.Query().Get("managerId")
	if err := v.Err(); err != nil {
		api.FailError(w, err, reqID)
		return
	}

	users, err := h.Directory.List(r.Context(), filter)
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	api.Success(w, users, reqID)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, err := h.Directory.Get(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	api.Success(w, user, reqID)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	var payload userRequest
	if err := shared.Decode(r, &payload); err != nil {
		api.FailError(w, err, reqID)
		return
	}
	created, err := h.Directory.Create(r.Context(), payload.input())
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	shared.RecordAudit(r, h.Audit, audit.Entry{
		Action:     audit.ActionUserCreated,
		EntityType: audit.EntityUser,
		EntityID:   created.ID,
		After:      created,
	})
	api.Created(w, created, reqID)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	userID := chi.URLParam(r, "userID")
	var payload userRequest
	if err := shared.Decode(r, &payload); err != nil {
		api.FailError(w, err, reqID)
		return
	}
	before, err := h.Directory.Get(r.Context(), userID)
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	updated, err := h.Directory.Update(r.Context(), userID, payload.input())
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	shared.RecordAudit(r, h.Audit, audit.Entry{
		Action:     audit.ActionUserUpdated,
		EntityType: audit.EntityUser,
		EntityID:   updated.ID,
		Before:     before,
		After:      updated,
	})
	api.Success(w, updated, reqID)
}
