package questionnaires

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"perfdash/internal/domain/apperr"
	"perfdash/internal/domain/directory"
	"perfdash/internal/domain/notifications"
	"perfdash/internal/domain/policy"
)

type Service struct {
	store     StoreAPI
	directory Directory
	generator Generator
	messenger Messenger
	notifier  Notifier
	now       func() time.Time

	// DefaultChannel receives messages for employees without a chat id.
	DefaultChannel string
	ReportsDir     string
}

func NewService(store StoreAPI, dir Directory, gen Generator, messenger Messenger, notifier Notifier) *Service {
	return &Service{store: store, directory: dir, generator: gen, messenger: messenger, notifier: notifier, now: time.Now}
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) notify(ctx context.Context, userID, ntype, title, body string) {
	if s.notifier != nil {
		s.notifier.Notify(ctx, userID, ntype, title, body)
	}
}

// Period returns the month and year of now in UTC, and the due date of
// that period's questionnaires: the first day of the following month.
func Period(now time.Time) (month, year int, due time.Time) {
	now = now.UTC()
	due = time.Date(now.Year(), now.Month()+1, 1, 0, 0, 0, 0, time.UTC)
	return int(now.Month()), now.Year(), due
}

// ScheduleMonthly creates the current period's questionnaire for every
// roster pair that does not have one yet and returns only the new rows.
func (s *Service) ScheduleMonthly(ctx context.Context, now time.Time) ([]Questionnaire, error) {
	roster, err := s.directory.Roster(ctx)
	if err != nil {
		return nil, fmt.Errorf("load roster: %w", err)
	}
	month, year, due := Period(now)

	rows := make([]Questionnaire, 0, len(roster))
	for _, entry := range roster {
		rows = append(rows, Questionnaire{
			EmployeeID:         entry.EmployeeID,
			EmployeeName:       entry.EmployeeName,
			EmployeeDepartment: entry.Department,
			ManagerID:          entry.ManagerID,
			Month:              month,
			Year:               year,
			DueDate:            due,
			Status:             StatusPending,
		})
	}
	if len(rows) == 0 {
		return []Questionnaire{}, nil
	}

	created, err := s.store.InsertQuestionnaires(ctx, rows)
	if err != nil {
		return nil, err
	}
	for _, q := range created {
		s.notify(ctx, q.ManagerID, notifications.TypeQuestionnaireAssigned,
			"Monthly questionnaire due",
			fmt.Sprintf("Complete the %02d/%d progress questionnaire for %s by %s.", q.Month, q.Year, q.EmployeeName, q.DueDate.Format("2006-01-02")))
	}
	slog.Info("monthly questionnaires scheduled", "month", month, "year", year, "roster", len(rows), "created", len(created))
	return created, nil
}

// DeriveStatus reports a pending questionnaire past its due date as overdue.
func DeriveStatus(q Questionnaire, now time.Time) Status {
	if q.Status == StatusPending && q.DueDate.Before(now) {
		return StatusOverdue
	}
	return q.Status
}

func (s *Service) List(ctx context.Context, actor *directory.User, month, year int) ([]Questionnaire, error) {
	if actor == nil {
		return []Questionnaire{}, nil
	}
	query := ListQuery{ParticipantID: actor.ID, Month: month, Year: year}
	switch actor.Role {
	case directory.RoleGroupLeader, directory.RoleLDTeam:
		query.Department = actor.Department
	case directory.RoleEmployee, directory.RoleManager:
	}
	stored, err := s.store.ListQuestionnaires(ctx, query)
	if err != nil {
		return nil, err
	}
	now := s.now()
	out := make([]Questionnaire, 0, len(stored))
	for _, q := range stored {
		if !policy.CanViewQuestionnaire(actor, q.Ref()) {
			continue
		}
		q.Status = DeriveStatus(q, now)
		out = append(out, q)
	}
	return out, nil
}

func (s *Service) load(ctx context.Context, actor *directory.User, id string) (Questionnaire, error) {
	q, err := s.store.GetQuestionnaire(ctx, id)
	if err != nil {
		return Questionnaire{}, err
	}
	if !policy.CanViewQuestionnaire(actor, q.Ref()) {
		return Questionnaire{}, fmt.Errorf("view questionnaire %s: %w", id, apperr.ErrPermission)
	}
	q.Status = DeriveStatus(q, s.now())
	return q, nil
}

func (s *Service) loadForManager(ctx context.Context, actor *directory.User, id string) (Questionnaire, error) {
	q, err := s.store.GetQuestionnaire(ctx, id)
	if err != nil {
		return Questionnaire{}, err
	}
	if !policy.CanEvaluate(actor, q.Ref()) {
		return Questionnaire{}, fmt.Errorf("evaluate questionnaire %s: %w", id, apperr.ErrPermission)
	}
	return q, nil
}

func (s *Service) Get(ctx context.Context, actor *directory.User, id string) (Detail, error) {
	q, err := s.load(ctx, actor, id)
	if err != nil {
		return Detail{}, err
	}
	detail := Detail{Questionnaire: q}
	eval, err := s.store.GetEvaluation(ctx, id)
	switch {
	case err == nil:
		detail.Evaluation = &eval
	case !errors.Is(err, apperr.ErrNotFound):
		return Detail{}, err
	}
	return detail, nil
}

func validateEvaluation(in EvaluationInput) error {
	var v apperr.Validation
	if !in.OverallRating.Valid() {
		v.Add("overallRating", "must be one of excellent, good, needs_improvement, poor")
	}
	return v.Err()
}

// SaveEvaluation records the manager's evaluation and completes the
// questionnaire. Saving again replaces the previous evaluation fields.
func (s *Service) SaveEvaluation(ctx context.Context, actor *directory.User, questionnaireID string, in EvaluationInput) (Evaluation, error) {
	q, err := s.loadForManager(ctx, actor, questionnaireID)
	if err != nil {
		return Evaluation{}, err
	}
	if err := validateEvaluation(in); err != nil {
		return Evaluation{}, err
	}
	saved, err := s.store.SaveEvaluation(ctx, Evaluation{
		QuestionnaireID:     q.ID,
		OverallRating:       in.OverallRating,
		GoalsOnTrack:        in.GoalsOnTrack,
		AreasForImprovement: strings.TrimSpace(in.AreasForImprovement),
		ManagerComments:     strings.TrimSpace(in.ManagerComments),
		EmployeeMessage:     strings.TrimSpace(in.EmployeeMessage),
		AISuggestions:       strings.TrimSpace(in.AISuggestions),
	})
	if err != nil {
		return Evaluation{}, err
	}
	s.notify(ctx, q.EmployeeID, notifications.TypeEvaluationCompleted,
		"Monthly evaluation completed",
		fmt.Sprintf("Your manager completed the %02d/%d progress evaluation.", q.Month, q.Year))
	return saved, nil
}

// GenerateEmployeeMessage asks the generator for the employee note and the
// manager suggestions. Generator failures degrade to the stock message and
// empty suggestions; the call itself never fails.
func (s *Service) GenerateEmployeeMessage(ctx context.Context, employeeName string, in EvaluationInput) GeneratedMessage {
	out := GeneratedMessage{EmployeeMessage: FallbackMessage, MessageType: MessageTypeFor(in.OverallRating)}
	if s.generator == nil {
		return out
	}

	text, err := s.generator.Generate(ctx, messagePrompt(employeeName, in))
	if err != nil {
		slog.Warn("employee message generation failed", "err", apperr.External(serviceGenAI, err))
	} else if strings.TrimSpace(text) != "" {
		out.EmployeeMessage = strings.TrimSpace(text)
	}

	suggestions, err := s.generator.Generate(ctx, suggestionPrompt(employeeName, in))
	if err != nil {
		slog.Warn("manager suggestion generation failed", "err", apperr.External(serviceGenAI, err))
	} else {
		out.AISuggestions = strings.TrimSpace(suggestions)
	}
	return out
}

// GenerateForQuestionnaire generates from the saved evaluation and stores
// the result on it.
func (s *Service) GenerateForQuestionnaire(ctx context.Context, actor *directory.User, questionnaireID string) (Evaluation, GeneratedMessage, error) {
	q, err := s.loadForManager(ctx, actor, questionnaireID)
	if err != nil {
		return Evaluation{}, GeneratedMessage{}, err
	}
	eval, err := s.store.GetEvaluation(ctx, q.ID)
	if err != nil {
		return Evaluation{}, GeneratedMessage{}, err
	}
	generated := s.GenerateEmployeeMessage(ctx, q.EmployeeName, inputOf(eval))
	updated, err := s.store.UpdateEvaluationMessage(ctx, q.ID, generated.EmployeeMessage, generated.AISuggestions)
	if err != nil {
		return Evaluation{}, GeneratedMessage{}, err
	}
	return updated, generated, nil
}

func inputOf(e Evaluation) EvaluationInput {
	return EvaluationInput{
		OverallRating:       e.OverallRating,
		GoalsOnTrack:        e.GoalsOnTrack,
		AreasForImprovement: e.AreasForImprovement,
		ManagerComments:     e.ManagerComments,
		EmployeeMessage:     e.EmployeeMessage,
		AISuggestions:       e.AISuggestions,
	}
}

// DeliverMessage posts the evaluation's employee message through the
// messenger. Every attempt is appended to the message log; the evaluation
// is marked sent only when the post succeeds. A failed post returns the
// logged attempt together with a retryable ExternalServiceError.
func (s *Service) DeliverMessage(ctx context.Context, actor *directory.User, questionnaireID string) (SlackMessage, error) {
	q, err := s.loadForManager(ctx, actor, questionnaireID)
	if err != nil {
		return SlackMessage{}, err
	}
	eval, err := s.store.GetEvaluation(ctx, q.ID)
	if err != nil {
		return SlackMessage{}, err
	}
	text := strings.TrimSpace(eval.EmployeeMessage)
	if text == "" {
		var v apperr.Validation
		v.Add("employeeMessage", "generate or write a message before sending")
		return SlackMessage{}, v.Err()
	}
	employee, err := s.directory.GetUser(ctx, q.EmployeeID)
	if err != nil {
		return SlackMessage{}, err
	}
	return s.Send(ctx, SendRequest{
		QuestionnaireID: q.ID,
		EmployeeID:      employee.ID,
		Destination:     employee.SlackUserID,
		Message:         text,
		MessageType:     MessageTypeFor(eval.OverallRating),
	})
}

// SendRequest is one chat delivery. Destination falls back to the default
// channel when empty.
type SendRequest struct {
	QuestionnaireID string
	EmployeeID      string
	Destination     string
	Message         string
	MessageType     MessageType
}

// Send delivers a message and logs the attempt. It is the shared path of
// DeliverMessage and the send-message entry point.
func (s *Service) Send(ctx context.Context, req SendRequest) (SlackMessage, error) {
	var v apperr.Validation
	v.Required("employeeId", req.EmployeeID)
	v.Required("message", req.Message)
	if req.MessageType != MessagePositive && req.MessageType != MessageImprovement {
		v.Add("messageType", "must be positive or improvement")
	}
	destination := req.Destination
	if destination == "" {
		destination = s.DefaultChannel
	}
	if destination == "" {
		v.Add("destination", "employee has no chat id and no default channel is configured")
	}
	if err := v.Err(); err != nil {
		return SlackMessage{}, err
	}

	var raw json.RawMessage
	var postErr error
	if s.messenger == nil {
		postErr = errors.New("messenger not configured")
	} else {
		raw, postErr = s.messenger.Post(ctx, destination, req.Message)
	}
	if postErr != nil && !json.Valid(raw) {
		raw, _ = json.Marshal(map[string]any{"ok": false, "error": postErr.Error()})
	}

	// The log row must survive a cancelled request.
	logCtx := context.WithoutCancel(ctx)
	logged, err := s.store.AppendSlackMessage(logCtx, SlackMessage{
		QuestionnaireID: req.QuestionnaireID,
		EmployeeID:      req.EmployeeID,
		MessageType:     req.MessageType,
		MessageContent:  req.Message,
		Delivered:       postErr == nil,
		SlackResponse:   raw,
	})
	if err != nil {
		return SlackMessage{}, fmt.Errorf("record message: %w", err)
	}

	if postErr != nil {
		slog.Warn("chat delivery failed", "questionnaire_id", req.QuestionnaireID, "employee_id", req.EmployeeID, "err", postErr)
		return logged, apperr.External(serviceSlack, postErr)
	}

	if req.QuestionnaireID != "" {
		if err := s.store.MarkMessageSent(logCtx, req.QuestionnaireID); err != nil {
			return logged, fmt.Errorf("mark message sent: %w", err)
		}
	}
	s.notify(ctx, req.EmployeeID, notifications.TypeMessageDelivered, "New feedback message", req.Message)
	return logged, nil
}

func (s *Service) Messages(ctx context.Context, actor *directory.User, questionnaireID string) ([]SlackMessage, error) {
	if _, err := s.load(ctx, actor, questionnaireID); err != nil {
		return nil, err
	}
	return s.store.ListSlackMessages(ctx, questionnaireID)
}

// GenerateAs runs GenerateEmployeeMessage for an ad-hoc evaluation. Only
// roles that manage people may use it.
func (s *Service) GenerateAs(ctx context.Context, actor *directory.User, employeeName string, in EvaluationInput) (GeneratedMessage, error) {
	if !policy.CanCreateGoals(actor) {
		return GeneratedMessage{}, fmt.Errorf("generate message: %w", apperr.ErrPermission)
	}
	var v apperr.Validation
	v.Required("employeeName", employeeName)
	if !in.OverallRating.Valid() {
		v.Add("overallRating", "must be one of excellent, good, needs_improvement, poor")
	}
	if err := v.Err(); err != nil {
		return GeneratedMessage{}, err
	}
	return s.GenerateEmployeeMessage(ctx, strings.TrimSpace(employeeName), in), nil
}

// SendAs is Send on behalf of actor, addressed to the employee's chat id.
// A send tied to a questionnaire needs that questionnaire's manager and a
// saved evaluation, whose rating fixes the message type. A free send needs
// an actor who may assign goals to the employee.
func (s *Service) SendAs(ctx context.Context, actor *directory.User, req SendRequest) (SlackMessage, error) {
	if req.QuestionnaireID != "" {
		q, err := s.loadForManager(ctx, actor, req.QuestionnaireID)
		if err != nil {
			return SlackMessage{}, err
		}
		if req.EmployeeID == "" {
			req.EmployeeID = q.EmployeeID
		}
		if req.EmployeeID != q.EmployeeID {
			var v apperr.Validation
			v.Add("employeeId", "must match the questionnaire's employee")
			return SlackMessage{}, v.Err()
		}
		eval, err := s.store.GetEvaluation(ctx, q.ID)
		if err != nil {
			return SlackMessage{}, err
		}
		derived := MessageTypeFor(eval.OverallRating)
		if req.MessageType != "" && req.MessageType != derived {
			var v apperr.Validation
			v.Add("messageType", fmt.Sprintf("must be %s for a %s evaluation", derived, eval.OverallRating))
			return SlackMessage{}, v.Err()
		}
		req.MessageType = derived
		if strings.TrimSpace(req.Message) == "" {
			req.Message = eval.EmployeeMessage
		}
	}
	if req.EmployeeID == "" {
		var v apperr.Validation
		v.Required("employeeId", req.EmployeeID)
		return SlackMessage{}, v.Err()
	}

	employee, err := s.directory.GetUser(ctx, req.EmployeeID)
	if errors.Is(err, apperr.ErrNotFound) {
		var v apperr.Validation
		v.Add("employeeId", "must reference an existing user")
		return SlackMessage{}, v.Err()
	}
	if err != nil {
		return SlackMessage{}, err
	}
	if req.QuestionnaireID == "" && !policy.CanCreateGoalFor(actor, &employee) {
		return SlackMessage{}, fmt.Errorf("message %s: %w", employee.ID, apperr.ErrPermission)
	}
	req.Destination = employee.SlackUserID
	return s.Send(ctx, req)
}
