package questionnaireshandler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"perfdash/internal/domain/apperr"
	"perfdash/internal/domain/audit"
	"perfdash/internal/domain/directory"
	"perfdash/internal/domain/questionnaires"
	"perfdash/internal/transport/http/api"
	"perfdash/internal/transport/http/middleware"
	"perfdash/internal/transport/http/shared"
)

type Questionnaires interface {
	List(ctx context.Context, actor *directory.User, month, year int) ([]questionnaires.Questionnaire, error)
	Get(ctx context.Context, actor *directory.User, id string) (questionnaires.Detail, error)
	SaveEvaluation(ctx context.Context, actor *directory.User, id string, in questionnaires.EvaluationInput) (questionnaires.Evaluation, error)
	GenerateForQuestionnaire(ctx context.Context, actor *directory.User, id string) (questionnaires.Evaluation, questionnaires.GeneratedMessage, error)
	DeliverMessage(ctx context.Context, actor *directory.User, id string) (questionnaires.SlackMessage, error)
	Messages(ctx context.Context, actor *directory.User, id string) ([]questionnaires.SlackMessage, error)
	RenderReport(ctx context.Context, actor *directory.User, id string) ([]byte, error)
}

type Handler struct {
	Service     Questionnaires
	Audit       shared.Auditor
	Idempotency middleware.IdempotencyBackend
}

func NewHandler(svc Questionnaires, auditor shared.Auditor, idem middleware.IdempotencyBackend) *Handler {
	return &Handler{Service: svc, Audit: auditor, Idempotency: idem}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/questionnaires", func(r chi.Router) {
		r.Get("/", h.handleList)
		r.Route("/{questionnaireID}", func(r chi.Router) {
			r.Get("/", h.handleGet)
			r.Put("/evaluation", h.handleSaveEvaluation)
			r.Post("/message", h.handleGenerate)
			r.With(middleware.Idempotent(h.Idempotency, "questionnaire.deliver")).Post("/deliver", h.handleDeliver)
			r.Get("/messages", h.handleMessages)
			r.Get("/report.pdf", h.handleReport)
		})
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())

	var v apperr.Validation
	month := queryInt(r, "month", &v, 1, 12)
	year := queryInt(r, "year", &v, 2000, 9999)
	if err := v.Err(); err != nil {
		api.FailError(w, err, reqID)
		return
	}

	list, err := h.Service.List(r.Context(), user, month, year)
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	api.Success(w, list, reqID)
}

// queryInt reads an optional bounded integer; absent values are zero.
func queryInt(r *http.Request, key string, v *apperr.Validation, lo, hi int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < lo || n > hi {
		v.Add(key, fmt.Sprintf("must be a number between %d and %d", lo, hi))
		return 0
	}
	return n
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())
	detail, err := h.Service.Get(r.Context(), user, chi.URLParam(r, "questionnaireID"))
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	api.Success(w, detail, reqID)
}

type evaluationRequest struct {
	OverallRating       string `json:"overallRating" validate:"required"`
	GoalsOnTrack        bool   `json:"goalsOnTrack"`
	AreasForImprovement string `json:"areasForImprovement" validate:"max=4000"`
	ManagerComments     string `json:"managerComments" validate:"max=4000"`
	EmployeeMessage     string `json:"employeeMessage" validate:"max=4000"`
	AISuggestions       string `json:"aiSuggestions" validate:"max=4000"`
}

func (h *Handler) handleSaveEvaluation(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())
	id := chi.URLParam(r, "questionnaireID")

	var payload evaluationRequest
	if err := shared.Decode(r, &payload); err != nil {
		api.FailError(w, err, reqID)
		return
	}
	saved, err := h.Service.SaveEvaluation(r.Context(), user, id, questionnaires.EvaluationInput{
		OverallRating:       questionnaires.Rating(payload.OverallRating),
		GoalsOnTrack:        payload.GoalsOnTrack,
		AreasForImprovement: payload.AreasForImprovement,
		ManagerComments:     payload.ManagerComments,
		EmployeeMessage:     payload.EmployeeMessage,
		AISuggestions:       payload.AISuggestions,
	})
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	shared.RecordAudit(r, h.Audit, audit.Entry{
		Action:     audit.ActionEvaluationSaved,
		EntityType: audit.EntityQuestionnaire,
		EntityID:   id,
		After:      saved,
	})
	api.Success(w, saved, reqID)
}

func (h *Handler) handleGenerate(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())
	id := chi.URLParam(r, "questionnaireID")

	eval, generated, err := h.Service.GenerateForQuestionnaire(r.Context(), user, id)
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	shared.RecordAudit(r, h.Audit, audit.Entry{
		Action:     audit.ActionMessageGenerated,
		EntityType: audit.EntityQuestionnaire,
		EntityID:   id,
		After:      map[string]any{"messageType": generated.MessageType},
	})
	api.Success(w, map[string]any{"evaluation": eval, "generated": generated}, reqID)
}

func (h *Handler) handleDeliver(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())
	id := chi.URLParam(r, "questionnaireID")

	logged, err := h.Service.DeliverMessage(r.Context(), user, id)
	if logged.ID != "" {
		shared.RecordAudit(r, h.Audit, audit.Entry{
			Action:     audit.ActionMessageDelivered,
			EntityType: audit.EntityQuestionnaire,
			EntityID:   id,
			After:      map[string]any{"messageId": logged.ID, "delivered": logged.Delivered},
		})
	}
	if err != nil {
		if _, ok := apperr.IsExternal(err); ok && logged.ID != "" {
			// The attempt was recorded; hand the row back with the error.
			status, body := api.Classify(err)
			api.WriteJSON(w, status, api.Envelope{Success: false, Data: logged, Error: body, RequestID: reqID})
			return
		}
		api.FailError(w, err, reqID)
		return
	}
	api.Success(w, logged, reqID)
}

func (h *Handler) handleMessages(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())
	list, err := h.Service.Messages(r.Context(), user, chi.URLParam(r, "questionnaireID"))
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	api.Success(w, list, reqID)
}

func (h *Handler) handleReport(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())
	id := chi.URLParam(r, "questionnaireID")

	pdf, err := h.Service.RenderReport(r.Context(), user, id)
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=questionnaire-%s.pdf", id))
	_, _ = w.Write(pdf)
}
