package questionnaires

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"perfdash/internal/domain/apperr"
	"perfdash/internal/domain/directory"
)

type pairKey struct {
	manager, employee string
	month, year       int
}

type memoryStore struct {
	questionnaires map[string]Questionnaire
	byPair         map[pairKey]string
	evaluations    map[string]Evaluation
	messages       []SlackMessage
	next           int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		questionnaires: map[string]Questionnaire{},
		byPair:         map[pairKey]string{},
		evaluations:    map[string]Evaluation{},
	}
}

func (m *memoryStore) id(prefix string) string {
	m.next++
	return fmt.Sprintf("%s-%d", prefix, m.next)
}

func (m *memoryStore) InsertQuestionnaires(_ context.Context, rows []Questionnaire) ([]Questionnaire, error) {
	created := []Questionnaire{}
	for _, row := range rows {
		key := pairKey{row.ManagerID, row.EmployeeID, row.Month, row.Year}
		if _, ok := m.byPair[key]; ok {
			continue
		}
		row.ID = m.id("q")
		m.byPair[key] = row.ID
		m.questionnaires[row.ID] = row
		created = append(created, row)
	}
	return created, nil
}

func (m *memoryStore) GetQuestionnaire(_ context.Context, id string) (Questionnaire, error) {
	q, ok := m.questionnaires[id]
	if !ok {
		return Questionnaire{}, fmt.Errorf("questionnaire %s: %w", id, apperr.ErrNotFound)
	}
	return q, nil
}

func (m *memoryStore) ListQuestionnaires(_ context.Context, lq ListQuery) ([]Questionnaire, error) {
	out := []Questionnaire{}
	for _, q := range m.questionnaires {
		match := (lq.ParticipantID != "" && (q.ManagerID == lq.ParticipantID || q.EmployeeID == lq.ParticipantID)) ||
			(lq.Department.Valid() && q.EmployeeDepartment == lq.Department)
		if match {
			out = append(out, q)
		}
	}
	return out, nil
}

func (m *memoryStore) SaveEvaluation(_ context.Context, eval Evaluation) (Evaluation, error) {
	q, ok := m.questionnaires[eval.QuestionnaireID]
	if !ok {
		return Evaluation{}, apperr.ErrNotFound
	}
	if prev, ok := m.evaluations[eval.QuestionnaireID]; ok {
		eval.ID = prev.ID
		eval.SlackMessageSent = prev.SlackMessageSent
	} else {
		eval.ID = m.id("e")
	}
	m.evaluations[eval.QuestionnaireID] = eval
	q.Status = StatusCompleted
	m.questionnaires[q.ID] = q
	return eval, nil
}

func (m *memoryStore) GetEvaluation(_ context.Context, questionnaireID string) (Evaluation, error) {
	eval, ok := m.evaluations[questionnaireID]
	if !ok {
		return Evaluation{}, apperr.ErrNotFound
	}
	return eval, nil
}

func (m *memoryStore) UpdateEvaluationMessage(_ context.Context, questionnaireID, message, suggestions string) (Evaluation, error) {
	eval, ok := m.evaluations[questionnaireID]
	if !ok {
		return Evaluation{}, apperr.ErrNotFound
	}
	eval.EmployeeMessage = message
	eval.AISuggestions = suggestions
	m.evaluations[questionnaireID] = eval
	return eval, nil
}

func (m *memoryStore) MarkMessageSent(_ context.Context, questionnaireID string) error {
	eval, ok := m.evaluations[questionnaireID]
	if !ok {
		return apperr.ErrNotFound
	}
	eval.SlackMessageSent = true
	m.evaluations[questionnaireID] = eval
	return nil
}

func (m *memoryStore) AppendSlackMessage(_ context.Context, msg SlackMessage) (SlackMessage, error) {
	msg.ID = m.id("s")
	m.messages = append(m.messages, msg)
	return msg, nil
}

func (m *memoryStore) ListSlackMessages(_ context.Context, questionnaireID string) ([]SlackMessage, error) {
	out := []SlackMessage{}
	for _, msg := range m.messages {
		if msg.QuestionnaireID == questionnaireID {
			out = append(out, msg)
		}
	}
	return out, nil
}

type fakeDirectory struct {
	users  map[string]directory.User
	roster []directory.RosterEntry
}

func (f *fakeDirectory) GetUser(_ context.Context, id string) (directory.User, error) {
	user, ok := f.users[id]
	if !ok {
		return directory.User{}, apperr.ErrNotFound
	}
	return user, nil
}

func (f *fakeDirectory) Roster(context.Context) ([]directory.RosterEntry, error) {
	return f.roster, nil
}

type fakeGenerator struct {
	prompts []string
	reply   func(prompt string) (string, error)
}

func (f *fakeGenerator) Generate(_ context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return f.reply(prompt)
}

type fakeMessenger struct {
	destination string
	text        string
	raw         json.RawMessage
	err         error
}

func (f *fakeMessenger) Post(_ context.Context, destination, text string) (json.RawMessage, error) {
	f.destination = destination
	f.text = text
	return f.raw, f.err
}

type recordedNotice struct {
	userID, ntype string
}

type fakeNotifier struct {
	sent []recordedNotice
}

func (f *fakeNotifier) Notify(_ context.Context, userID, ntype, _, _ string) {
	f.sent = append(f.sent, recordedNotice{userID, ntype})
}

var (
	manager  = directory.User{ID: "mgr", Name: "Mike", Role: directory.RoleManager, Department: directory.DepartmentRD}
	employee = directory.User{ID: "emp", Name: "Sarah", Role: directory.RoleEmployee, Department: directory.DepartmentRD, ManagerID: "mgr", SlackUserID: "U123"}
	peer     = directory.User{ID: "emp2", Name: "John", Role: directory.RoleEmployee, Department: directory.DepartmentRD, ManagerID: "mgr"}
	leader   = directory.User{ID: "gl", Name: "Gina", Role: directory.RoleGroupLeader, Department: directory.DepartmentRD}
	ldSales  = directory.User{ID: "ld", Name: "Lee", Role: directory.RoleLDTeam, Department: directory.DepartmentSM}
)

var juneNow = time.Date(2024, 6, 10, 8, 0, 0, 0, time.UTC)

type fixture struct {
	svc       *Service
	store     *memoryStore
	generator *fakeGenerator
	messenger *fakeMessenger
	notifier  *fakeNotifier
}

func newFixture() fixture {
	dir := &fakeDirectory{
		users: map[string]directory.User{"mgr": manager, "emp": employee, "emp2": peer, "gl": leader, "ld": ldSales},
		roster: []directory.RosterEntry{
			{ManagerID: "mgr", EmployeeID: "emp", EmployeeName: "Sarah", Department: directory.DepartmentRD},
			{ManagerID: "mgr", EmployeeID: "emp2", EmployeeName: "John", Department: directory.DepartmentRD},
			{ManagerID: "gl", EmployeeID: "mgr", EmployeeName: "Mike", Department: directory.DepartmentRD},
		},
	}
	f := fixture{
		store:     newMemoryStore(),
		generator: &fakeGenerator{reply: func(string) (string, error) { return "generated", nil }},
		messenger: &fakeMessenger{raw: json.RawMessage(`{"ok":true,"ts":"1.2"}`)},
		notifier:  &fakeNotifier{},
	}
	f.svc = NewService(f.store, dir, f.generator, f.messenger, f.notifier).WithClock(func() time.Time { return juneNow })
	return f
}

func (f fixture) scheduleOne(t *testing.T, employeeID string) Questionnaire {
	t.Helper()
	created, err := f.svc.ScheduleMonthly(context.Background(), juneNow)
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	for _, q := range created {
		if q.EmployeeID == employeeID {
			return q
		}
	}
	for _, q := range f.store.questionnaires {
		if q.EmployeeID == employeeID {
			return q
		}
	}
	t.Fatalf("no questionnaire for %s", employeeID)
	return Questionnaire{}
}

func TestPeriod(t *testing.T) {
	month, year, due := Period(time.Date(2024, 12, 31, 23, 0, 0, 0, time.UTC))
	if month != 12 || year != 2024 {
		t.Fatalf("unexpected period %d/%d", month, year)
	}
	if !due.Equal(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected due date %v", due)
	}
}

func TestScheduleMonthlyIsIdempotent(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	first, err := f.svc.ScheduleMonthly(ctx, juneNow)
	if err != nil {
		t.Fatal(err)
	}
	if len(first) != 3 {
		t.Fatalf("expected 3 questionnaires, got %d", len(first))
	}
	for _, q := range first {
		if q.Status != StatusPending || q.Month != 6 || q.Year != 2024 {
			t.Fatalf("unexpected questionnaire %+v", q)
		}
		if !q.DueDate.Equal(time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)) {
			t.Fatalf("unexpected due date %v", q.DueDate)
		}
	}

	second, err := f.svc.ScheduleMonthly(ctx, juneNow.Add(48*time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if len(second) != 0 || len(f.store.questionnaires) != 3 {
		t.Fatalf("expected no new rows, got %d (total %d)", len(second), len(f.store.questionnaires))
	}
	if len(f.notifier.sent) != 3 {
		t.Fatalf("expected one notice per new questionnaire, got %d", len(f.notifier.sent))
	}

	july, err := f.svc.ScheduleMonthly(ctx, time.Date(2024, 7, 2, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatal(err)
	}
	if len(july) != 3 {
		t.Fatalf("expected a new round for july, got %d", len(july))
	}
}

func TestSaveEvaluationCompletesQuestionnaire(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	q := f.scheduleOne(t, "emp")

	eval, err := f.svc.SaveEvaluation(ctx, &manager, q.ID, EvaluationInput{OverallRating: RatingGood, GoalsOnTrack: true, ManagerComments: " solid month "})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if eval.ManagerComments != "solid month" {
		t.Fatalf("expected trimmed comments, got %q", eval.ManagerComments)
	}
	if f.store.questionnaires[q.ID].Status != StatusCompleted {
		t.Fatal("expected questionnaire completed")
	}

	again, err := f.svc.SaveEvaluation(ctx, &manager, q.ID, EvaluationInput{OverallRating: RatingExcellent})
	if err != nil {
		t.Fatal(err)
	}
	if again.ID != eval.ID || len(f.store.evaluations) != 1 {
		t.Fatalf("expected the evaluation to be replaced in place")
	}
}

func TestSaveEvaluationErrors(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	q := f.scheduleOne(t, "emp")

	if _, err := f.svc.SaveEvaluation(ctx, &manager, "missing", EvaluationInput{OverallRating: RatingGood}); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := f.svc.SaveEvaluation(ctx, &employee, q.ID, EvaluationInput{OverallRating: RatingGood}); !errors.Is(err, apperr.ErrPermission) {
		t.Fatalf("expected permission error, got %v", err)
	}
	if _, err := f.svc.SaveEvaluation(ctx, &manager, q.ID, EvaluationInput{OverallRating: "great"}); err == nil {
		t.Fatal("expected validation error")
	} else if _, ok := apperr.IsValidation(err); !ok {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestGenerateEmployeeMessageTone(t *testing.T) {
	tests := []struct {
		rating   Rating
		phrase   string
		wantType MessageType
	}{
		{RatingExcellent, "positive, encouraging", MessagePositive},
		{RatingGood, "positive, encouraging", MessagePositive},
		{RatingNeedsImprovement, "constructive, supportive", MessageImprovement},
		{RatingPoor, "constructive, supportive", MessageImprovement},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(string(tc.rating), func(t *testing.T) {
			f := newFixture()
			got := f.svc.GenerateEmployeeMessage(context.Background(), "Sarah", EvaluationInput{OverallRating: tc.rating})
			if got.MessageType != tc.wantType {
				t.Fatalf("expected %s, got %s", tc.wantType, got.MessageType)
			}
			if len(f.generator.prompts) != 2 {
				t.Fatalf("expected two prompts, got %d", len(f.generator.prompts))
			}
			if !strings.Contains(f.generator.prompts[0], tc.phrase) {
				t.Fatalf("message prompt missing %q: %s", tc.phrase, f.generator.prompts[0])
			}
			if !strings.Contains(f.generator.prompts[1], "2-3 specific, actionable suggestions") {
				t.Fatalf("unexpected suggestion prompt: %s", f.generator.prompts[1])
			}
		})
	}
}

func TestGenerateEmployeeMessageFallsBack(t *testing.T) {
	f := newFixture()
	f.generator.reply = func(string) (string, error) { return "", errors.New("connection refused") }

	got := f.svc.GenerateEmployeeMessage(context.Background(), "Sarah", EvaluationInput{OverallRating: RatingPoor})
	if got.EmployeeMessage != FallbackMessage || got.AISuggestions != "" {
		t.Fatalf("expected fallback, got %+v", got)
	}

	f.generator.reply = func(prompt string) (string, error) {
		if strings.Contains(prompt, "suggestions") {
			return "", errors.New("timeout")
		}
		return "Keep going", nil
	}
	got = f.svc.GenerateEmployeeMessage(context.Background(), "Sarah", EvaluationInput{OverallRating: RatingGood})
	if got.EmployeeMessage != "Keep going" || got.AISuggestions != "" {
		t.Fatalf("expected message without suggestions, got %+v", got)
	}
}

func TestGenerateForQuestionnaireStoresResult(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	q := f.scheduleOne(t, "emp")
	if _, err := f.svc.SaveEvaluation(ctx, &manager, q.ID, EvaluationInput{OverallRating: RatingExcellent}); err != nil {
		t.Fatal(err)
	}

	eval, generated, err := f.svc.GenerateForQuestionnaire(ctx, &manager, q.ID)
	if err != nil {
		t.Fatal(err)
	}
	if eval.EmployeeMessage != "generated" || generated.AISuggestions != "generated" {
		t.Fatalf("unexpected result %+v %+v", eval, generated)
	}
}

func TestDeliverMessage(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	q := f.scheduleOne(t, "emp")
	if _, err := f.svc.SaveEvaluation(ctx, &manager, q.ID, EvaluationInput{OverallRating: RatingNeedsImprovement, EmployeeMessage: "Let's work on planning"}); err != nil {
		t.Fatal(err)
	}

	msg, err := f.svc.DeliverMessage(ctx, &manager, q.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.messenger.destination != "U123" || f.messenger.text != "Let's work on planning" {
		t.Fatalf("unexpected post %q %q", f.messenger.destination, f.messenger.text)
	}
	if msg.MessageType != MessageImprovement || !msg.Delivered {
		t.Fatalf("unexpected log row %+v", msg)
	}
	if !f.store.evaluations[q.ID].SlackMessageSent {
		t.Fatal("expected evaluation marked sent")
	}
}

func TestDeliverMessageFailureIsLoggedAndRetryable(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	q := f.scheduleOne(t, "emp")
	if _, err := f.svc.SaveEvaluation(ctx, &manager, q.ID, EvaluationInput{OverallRating: RatingExcellent, EmployeeMessage: "Great work"}); err != nil {
		t.Fatal(err)
	}
	f.messenger.raw = json.RawMessage(`{"ok":false,"error":"channel_not_found"}`)
	f.messenger.err = errors.New("channel_not_found")

	msg, err := f.svc.DeliverMessage(ctx, &manager, q.ID)
	ext, ok := apperr.IsExternal(err)
	if !ok || !ext.Retryable() {
		t.Fatalf("expected retryable external error, got %v", err)
	}
	if len(f.store.messages) != 1 || f.store.messages[0].Delivered {
		t.Fatalf("expected one undelivered log row, got %+v", f.store.messages)
	}
	if msg.MessageType != MessagePositive || !strings.Contains(string(msg.SlackResponse), "channel_not_found") {
		t.Fatalf("unexpected log row %+v", msg)
	}
	if f.store.evaluations[q.ID].SlackMessageSent {
		t.Fatal("evaluation must not be marked sent")
	}

	f.messenger.err = errors.New("dial tcp: timeout")
	f.messenger.raw = nil
	_, err = f.svc.DeliverMessage(ctx, &manager, q.ID)
	if _, ok := apperr.IsExternal(err); !ok {
		t.Fatalf("expected external error, got %v", err)
	}
	if !json.Valid(f.store.messages[1].SlackResponse) {
		t.Fatalf("expected error text recorded as json, got %s", f.store.messages[1].SlackResponse)
	}
}

func TestDeliverMessageRequiresMessage(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	q := f.scheduleOne(t, "emp2")
	if _, err := f.svc.SaveEvaluation(ctx, &manager, q.ID, EvaluationInput{OverallRating: RatingGood}); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.DeliverMessage(ctx, &manager, q.ID); err == nil {
		t.Fatal("expected validation error for empty message")
	}
	if len(f.store.messages) != 0 {
		t.Fatal("nothing should be posted without a message")
	}
}

func TestSendUsesDefaultChannel(t *testing.T) {
	f := newFixture()
	f.svc.DefaultChannel = "#feedback"

	_, err := f.svc.Send(context.Background(), SendRequest{EmployeeID: "emp2", Message: "hi", MessageType: MessagePositive})
	if err != nil {
		t.Fatal(err)
	}
	if f.messenger.destination != "#feedback" {
		t.Fatalf("expected default channel, got %q", f.messenger.destination)
	}

	f.svc.DefaultChannel = ""
	if _, err := f.svc.Send(context.Background(), SendRequest{EmployeeID: "emp2", Message: "hi", MessageType: MessagePositive}); err == nil {
		t.Fatal("expected validation error without destination")
	}
}

func TestListAndOverdue(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	if _, err := f.svc.ScheduleMonthly(ctx, juneNow); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name  string
		actor directory.User
		want  int
	}{
		{name: "employee sees own", actor: employee, want: 1},
		{name: "manager sees reports and own", actor: manager, want: 3},
		{name: "group leader sees department", actor: leader, want: 3},
		{name: "ld team in another department", actor: ldSales, want: 0},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			got, err := f.svc.List(ctx, &tc.actor, 0, 0)
			if err != nil {
				t.Fatal(err)
			}
			if len(got) != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, len(got))
			}
		})
	}

	f.svc.WithClock(func() time.Time { return time.Date(2024, 7, 3, 0, 0, 0, 0, time.UTC) })
	got, err := f.svc.List(ctx, &employee, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if got[0].Status != StatusOverdue {
		t.Fatalf("expected overdue, got %s", got[0].Status)
	}
}

func TestGetOutsideScope(t *testing.T) {
	f := newFixture()
	q := f.scheduleOne(t, "emp")
	if _, err := f.svc.Get(context.Background(), &peer, q.ID); !errors.Is(err, apperr.ErrPermission) {
		t.Fatalf("expected permission error, got %v", err)
	}
}

func TestRenderReport(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	q := f.scheduleOne(t, "emp")
	if _, err := f.svc.SaveEvaluation(ctx, &manager, q.ID, EvaluationInput{OverallRating: RatingGood, AreasForImprovement: "Estimation", ManagerComments: "Good month"}); err != nil {
		t.Fatal(err)
	}
	f.svc.ReportsDir = t.TempDir()

	data, err := f.svc.RenderReport(ctx, &employee, q.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Fatalf("expected a PDF, got %q", data[:8])
	}
}

func TestSendAsChecksActor(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	q := f.scheduleOne(t, "emp")
	if _, err := f.svc.SaveEvaluation(ctx, &manager, q.ID, EvaluationInput{OverallRating: RatingGood}); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		actor   directory.User
		req     SendRequest
		wantErr error
	}{
		{name: "questionnaire manager", actor: manager, req: SendRequest{QuestionnaireID: q.ID, Message: "hi", MessageType: MessagePositive}},
		{name: "free send to own report", actor: manager, req: SendRequest{EmployeeID: "emp", Message: "hi", MessageType: MessagePositive}},
		{name: "employee cannot send", actor: peer, req: SendRequest{EmployeeID: "emp", Message: "hi", MessageType: MessagePositive}, wantErr: apperr.ErrPermission},
		{name: "other manager on questionnaire", actor: leader, req: SendRequest{QuestionnaireID: q.ID, Message: "hi", MessageType: MessagePositive}, wantErr: apperr.ErrPermission},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.SendAs(ctx, &tc.actor, tc.req)
			if tc.wantErr == nil && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tc.wantErr != nil && !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
		})
	}

	if _, err := f.svc.SendAs(ctx, &manager, SendRequest{QuestionnaireID: q.ID, EmployeeID: "emp2", Message: "hi", MessageType: MessagePositive}); err == nil {
		t.Fatal("expected mismatch to fail validation")
	}
	if _, err := f.svc.SendAs(ctx, &manager, SendRequest{EmployeeID: "ghost", Message: "hi", MessageType: MessagePositive}); err == nil {
		t.Fatal("expected unknown employee to fail validation")
	}
}

func TestSendAsDerivesTypeFromEvaluation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	q := f.scheduleOne(t, "emp")

	if _, err := f.svc.SendAs(ctx, &manager, SendRequest{QuestionnaireID: q.ID, Message: "hi"}); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found without an evaluation, got %v", err)
	}
	if len(f.store.messages) != 0 {
		t.Fatal("nothing should be posted without an evaluation")
	}

	if _, err := f.svc.SaveEvaluation(ctx, &manager, q.ID, EvaluationInput{OverallRating: RatingExcellent, EmployeeMessage: "Outstanding month"}); err != nil {
		t.Fatal(err)
	}
	_, err := f.svc.SendAs(ctx, &manager, SendRequest{QuestionnaireID: q.ID, Message: "x", MessageType: MessageImprovement})
	if verr, ok := apperr.IsValidation(err); !ok || verr.Fields()[0] != "messageType" {
		t.Fatalf("expected messageType validation error, got %v", err)
	}
	if len(f.store.messages) != 0 || f.store.evaluations[q.ID].SlackMessageSent {
		t.Fatal("a rejected send must not post or mark the evaluation")
	}

	msg, err := f.svc.SendAs(ctx, &manager, SendRequest{QuestionnaireID: q.ID})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msg.MessageType != MessagePositive || msg.MessageContent != "Outstanding month" || msg.EmployeeID != "emp" {
		t.Fatalf("unexpected log row %+v", msg)
	}
	if !f.store.evaluations[q.ID].SlackMessageSent {
		t.Fatal("expected evaluation marked sent")
	}
}

func TestGenerateAs(t *testing.T) {
	f := newFixture()
	if _, err := f.svc.GenerateAs(context.Background(), &employee, "Sarah", EvaluationInput{OverallRating: RatingGood}); !errors.Is(err, apperr.ErrPermission) {
		t.Fatalf("expected permission error, got %v", err)
	}
	if _, err := f.svc.GenerateAs(context.Background(), &manager, "", EvaluationInput{OverallRating: "great"}); err == nil {
		t.Fatal("expected validation error")
	} else if verr, ok := apperr.IsValidation(err); !ok || len(verr.Issues) != 2 {
		t.Fatalf("expected two issues, got %v", err)
	}
	out, err := f.svc.GenerateAs(context.Background(), &manager, "Sarah", EvaluationInput{OverallRating: RatingPoor})
	if err != nil {
		t.Fatal(err)
	}
	if out.MessageType != MessageImprovement || out.EmployeeMessage != "generated" {
		t.Fatalf("unexpected output %+v", out)
	}
}
