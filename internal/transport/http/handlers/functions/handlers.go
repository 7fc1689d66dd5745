package functionshandler

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	standardwebhooks "github.com/standard-webhooks/standard-webhooks/libraries/go"

	"perfdash/internal/domain/apperr"
	"perfdash/internal/domain/audit"
	"perfdash/internal/domain/directory"
	"perfdash/internal/domain/policy"
	"perfdash/internal/domain/questionnaires"
	"perfdash/internal/platform/jobs"
	"perfdash/internal/transport/http/api"
	"perfdash/internal/transport/http/middleware"
	"perfdash/internal/transport/http/shared"
)

type Scheduler interface {
	ScheduleMonthly(ctx context.Context, now time.Time) ([]questionnaires.Questionnaire, error)
}

type Messages interface {
	GenerateAs(ctx context.Context, actor *directory.User, employeeName string, in questionnaires.EvaluationInput) (questionnaires.GeneratedMessage, error)
	SendAs(ctx context.Context, actor *directory.User, req questionnaires.SendRequest) (questionnaires.SlackMessage, error)
}

type Runner interface {
	RunNow(ctx context.Context, jobType string, run jobs.Func) (any, error)
}

// Handler serves the three backend entry points. Bodies are flat JSON with
// a success flag, unlike the enveloped /api/v1 routes.
type Handler struct {
	Scheduler Scheduler
	Messages  Messages
	Jobs      Runner
	Audit     shared.Auditor
	// WebhookSecret lets a cron runner call schedule-monthly with a
	// Standard Webhooks signature instead of a session.
	WebhookSecret string
	Now           func() time.Time
}

func NewHandler(scheduler Scheduler, messages Messages, runner Runner, auditor shared.Auditor, webhookSecret string) *Handler {
	return &Handler{Scheduler: scheduler, Messages: messages, Jobs: runner, Audit: auditor, WebhookSecret: webhookSecret, Now: time.Now}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/functions", func(r chi.Router) {
		r.Post("/schedule-monthly", h.handleScheduleMonthly)
		r.Post("/generate-message", h.handleGenerateMessage)
		r.Post("/send-message", h.handleSendMessage)
	})
}

func writeOK(w http.ResponseWriter, fields map[string]any) {
	fields["success"] = true
	api.WriteJSON(w, http.StatusOK, fields)
}

func writeErr(w http.ResponseWriter, err error, reqID string, extra map[string]any) {
	status, body := api.Classify(err)
	if status == http.StatusInternalServerError {
		slog.Error("function failed", "request_id", reqID, "err", err)
	}
	out := map[string]any{"success": false, "error": body.Message, "code": body.Code}
	if verr, ok := apperr.IsValidation(err); ok {
		out["fields"] = verr.Issues
	}
	if body.Retryable {
		out["retryable"] = true
	}
	for k, v := range extra {
		out[k] = v
	}
	api.WriteJSON(w, status, out)
}

func unauthorized(w http.ResponseWriter) {
	api.WriteJSON(w, http.StatusUnauthorized, map[string]any{"success": false, "error": "authentication required", "code": "unauthorized"})
}

func (h *Handler) signedByCron(r *http.Request, payload []byte) bool {
	if h.WebhookSecret == "" || r.Header.Get("webhook-signature") == "" {
		return false
	}
	wh, err := standardwebhooks.NewWebhookRaw([]byte(h.WebhookSecret))
	if err != nil {
		slog.Error("webhook verifier init failed", "err", err)
		return false
	}
	if err := wh.Verify(payload, r.Header); err != nil {
		slog.Warn("schedule webhook rejected", "request_id", middleware.GetRequestID(r.Context()), "err", err)
		return false
	}
	return true
}

func (h *Handler) handleScheduleMonthly(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		writeErr(w, err, reqID, nil)
		return
	}
	r.Body = io.NopCloser(bytes.NewReader(payload))

	user, authed := middleware.GetUser(r.Context())
	trigger := "user"
	switch {
	case authed && policy.CanTriggerSchedule(user):
	case h.signedByCron(r, payload):
		trigger = "cron"
	case authed:
		writeErr(w, apperr.ErrPermission, reqID, nil)
		return
	default:
		unauthorized(w)
		return
	}

	var created []questionnaires.Questionnaire
	_, err = h.Jobs.RunNow(r.Context(), jobs.JobMonthlyQuestionnaires, func(ctx context.Context) (any, error) {
		rows, err := h.Scheduler.ScheduleMonthly(ctx, h.Now())
		created = rows
		return map[string]any{"created": len(rows), "trigger": trigger}, err
	})
	if err != nil {
		writeErr(w, err, reqID, nil)
		return
	}

	shared.RecordAudit(r, h.Audit, audit.Entry{
		Action:     audit.ActionQuestionnairesRun,
		EntityType: audit.EntityQuestionnaire,
		EntityID:   h.Now().UTC().Format("2006-01"),
		After:      map[string]any{"created": len(created), "trigger": trigger},
	})
	writeOK(w, map[string]any{"created": len(created), "questionnaires": created})
}

type generateRequest struct {
	EmployeeName        string `json:"employeeName"`
	OverallRating       string `json:"overallRating"`
	GoalsOnTrack        bool   `json:"goalsOnTrack"`
	AreasForImprovement string `json:"areasForImprovement"`
	ManagerComments     string `json:"managerComments"`
	QuestionnaireID     string `json:"questionnaireId"`
}

func (h *Handler) handleGenerateMessage(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		unauthorized(w)
		return
	}
	var payload generateRequest
	if err := shared.Decode(r, &payload); err != nil {
		writeErr(w, err, reqID, nil)
		return
	}

	out, err := h.Messages.GenerateAs(r.Context(), user, payload.EmployeeName, questionnaires.EvaluationInput{
		OverallRating:       questionnaires.Rating(payload.OverallRating),
		GoalsOnTrack:        payload.GoalsOnTrack,
		AreasForImprovement: payload.AreasForImprovement,
		ManagerComments:     payload.ManagerComments,
	})
	if err != nil {
		writeErr(w, err, reqID, nil)
		return
	}
	writeOK(w, map[string]any{
		"employeeMessage": out.EmployeeMessage,
		"aiSuggestions":   out.AISuggestions,
		"messageType":     out.MessageType,
	})
}

type sendRequest struct {
	EmployeeID      string `json:"employeeId"`
	Message         string `json:"message"`
	MessageType     string `json:"messageType"`
	QuestionnaireID string `json:"questionnaireId"`
}

func (h *Handler) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		unauthorized(w)
		return
	}
	var payload sendRequest
	if err := shared.Decode(r, &payload); err != nil {
		writeErr(w, err, reqID, nil)
		return
	}

	logged, err := h.Messages.SendAs(r.Context(), user, questionnaires.SendRequest{
		QuestionnaireID: payload.QuestionnaireID,
		EmployeeID:      payload.EmployeeID,
		Message:         payload.Message,
		MessageType:     questionnaires.MessageType(payload.MessageType),
	})
	if logged.ID != "" {
		shared.RecordAudit(r, h.Audit, audit.Entry{
			Action:     audit.ActionMessageDelivered,
			EntityType: audit.EntityQuestionnaire,
			EntityID:   payload.QuestionnaireID,
			After:      map[string]any{"messageId": logged.ID, "delivered": logged.Delivered},
		})
	}
	var ext *apperr.ExternalServiceError
	if errors.As(err, &ext) {
		writeErr(w, err, reqID, map[string]any{"slackResponse": logged.SlackResponse})
		return
	}
	if err != nil {
		writeErr(w, err, reqID, nil)
		return
	}
	writeOK(w, map[string]any{"slackResponse": logged.SlackResponse, "messageId": logged.ID})
}
