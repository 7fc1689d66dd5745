package goalshandler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"perfdash/internal/domain/apperr"
	"perfdash/internal/domain/audit"
	"perfdash/internal/domain/directory"
	"perfdash/internal/domain/goals"
	"perfdash/internal/domain/notifications"
	"perfdash/internal/transport/http/api"
	"perfdash/internal/transport/http/middleware"
	"perfdash/internal/transport/http/shared"
)

type Goals interface {
	Create(ctx context.Context, actor *directory.User, input goals.CreateInput) (goals.Goal, error)
	List(ctx context.Context, actor *directory.User, filter goals.Filter) ([]goals.Goal, error)
	Get(ctx context.Context, actor *directory.User, id string) (goals.Goal, error)
	UpdateProgress(ctx context.Context, actor *directory.User, id string, progress int) (goals.Goal, error)
	EligibleEmployees(ctx context.Context, actor *directory.User) ([]directory.User, error)
	Stats(ctx context.Context, actor *directory.User) ([]goals.DepartmentStats, error)
}

type Notifier interface {
	Notify(ctx context.Context, userID, ntype, title, body string)
}

type Handler struct {
	Goals    Goals
	Audit    shared.Auditor
	Notifier Notifier
}

func NewHandler(svc Goals, auditor shared.Auditor, notifier Notifier) *Handler {
	return &Handler{Goals: svc, Audit: auditor, Notifier: notifier}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/strategies", h.handleStrategies)
	r.Route("/goals", func(r chi.Router) {
		r.Get("/", h.handleList)
		r.Post("/", h.handleCreate)
		r.Get("/stats", h.handleStats)
		r.Get("/eligible-employees", h.handleEligible)
		r.Get("/{goalID}", h.handleGet)
		r.Put("/{goalID}/progress", h.handleProgress)
	})
}

func (h *Handler) notify(ctx context.Context, userID, ntype, title, body string) {
	if h.Notifier != nil {
		h.Notifier.Notify(ctx, userID, ntype, title, body)
	}
}

func (h *Handler) handleStrategies(w http.ResponseWriter, r *http.Request) {
	api.Success(w, goals.CompanyStrategies, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())

	filter := goals.Filter{Search: r.URL.Query().Get("search")}
	if raw := r.URL.Query().Get("status"); raw != "" && raw != "all" {
		filter.Status = goals.Status(raw)
		if !filter.Status.Valid() {
			var v apperr.Validation
			v.Add("status", "must be one of not-started, in-progress, completed, behind-schedule")
			api.FailError(w, v.Err(), reqID)
			return
		}
	}

	list, err := h.Goals.List(r.Context(), user, filter)
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	api.Success(w, list, reqID)
}

// Required fields are checked by the goals package so every issue is
// reported together.
type createRequest struct {
	EmployeeID           string `json:"employeeId"`
	Title                string `json:"title" validate:"max=200"`
	Description          string `json:"description"`
	CompanyGoalAlignment string `json:"companyGoalAlignment"`
	TargetDate           string `json:"targetDate"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())

	var payload createRequest
	if err := shared.Decode(r, &payload); err != nil {
		api.FailError(w, err, reqID)
		return
	}
	goal, err := h.Goals.Create(r.Context(), user, goals.CreateInput{
		EmployeeID:           payload.EmployeeID,
		Title:                payload.Title,
		Description:          payload.Description,
		CompanyGoalAlignment: payload.CompanyGoalAlignment,
		TargetDate:           payload.TargetDate,
	})
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}

	shared.RecordAudit(r, h.Audit, audit.Entry{
		Action:     audit.ActionGoalCreated,
		EntityType: audit.EntityGoal,
		EntityID:   goal.ID,
		After:      goal,
	})
	h.notify(r.Context(), goal.EmployeeID, notifications.TypeGoalCreated, "New goal assigned", goal.Title)
	api.Created(w, goal, reqID)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())
	goal, err := h.Goals.Get(r.Context(), user, chi.URLParam(r, "goalID"))
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	api.Success(w, goal, reqID)
}

type progressRequest struct {
	Progress *int `json:"progress" validate:"required"`
}

func (h *Handler) handleProgress(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())
	goalID := chi.URLParam(r, "goalID")

	var payload progressRequest
	if err := shared.Decode(r, &payload); err != nil {
		api.FailError(w, err, reqID)
		return
	}
	goal, err := h.Goals.UpdateProgress(r.Context(), user, goalID, *payload.Progress)
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}

	shared.RecordAudit(r, h.Audit, audit.Entry{
		Action:     audit.ActionGoalProgress,
		EntityType: audit.EntityGoal,
		EntityID:   goal.ID,
		After:      map[string]any{"progress": goal.Progress, "status": goal.Status},
	})
	if goal.Status == goals.StatusCompleted {
		h.notify(r.Context(), goal.CreatedBy, notifications.TypeGoalCompleted, "Goal completed", goal.Title)
	}
	api.Success(w, goal, reqID)
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())
	stats, err := h.Goals.Stats(r.Context(), user)
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	api.Success(w, stats, reqID)
}

func (h *Handler) handleEligible(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())
	users, err := h.Goals.EligibleEmployees(r.Context(), user)
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	api.Success(w, users, reqID)
}
