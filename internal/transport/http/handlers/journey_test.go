package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"perfdash/internal/app/server"
	"perfdash/internal/domain/apperr"
	"perfdash/internal/domain/questionnaires"
	"perfdash/internal/platform/config"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   any             `json:"error"`
}

func TestGoalAndQuestionnaireJourney(t *testing.T) {
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	suffix := time.Now().UnixNano()
	ldEmail := fmt.Sprintf("ld-%d@test.local", suffix)
	managerEmail := fmt.Sprintf("manager-%d@test.local", suffix)
	employeeEmail := fmt.Sprintf("employee-%d@test.local", suffix)
	seed := fmt.Sprintf(`users:
  - {name: L and D, email: %s, role: ld-team, department: ga, password: ChangeMe123!}
  - {name: Journey Manager, email: %s, role: manager, department: rd, password: ChangeMe123!}
  - {name: Journey Employee, email: %s, role: employee, department: rd, manager: %s, password: ChangeMe123!}
`, ldEmail, managerEmail, employeeEmail, managerEmail)
	seedPath := filepath.Join(t.TempDir(), "roster.yaml")
	if err := os.WriteFile(seedPath, []byte(seed), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg := config.Config{
		DatabaseURL:        dbURL,
		JWTSecret:          "test-secret",
		SessionTTL:         time.Hour,
		Environment:        "test",
		RunMigrations:      true,
		RunSeed:            true,
		SeedFile:           seedPath,
		MaxBodyBytes:       1048576,
		RateLimitPerMinute: 1000,
		GenAITimeout:       time.Second,
		SlackTimeout:       time.Second,
		ReportsDir:         t.TempDir(),
	}

	app, err := server.New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("failed to start app: %v", err)
	}
	defer app.Close()

	ts := httptest.NewServer(app.Router)
	defer ts.Close()
	client := ts.Client()

	managerToken, _ := login(t, client, ts.URL, managerEmail)
	employeeToken, employeeID := login(t, client, ts.URL, employeeEmail)
	ldToken, _ := login(t, client, ts.URL, ldEmail)

	var goal struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	status, env := call(t, client, http.MethodPost, ts.URL+"/api/v1/goals", managerToken, map[string]any{
		"employeeId":           employeeID,
		"title":                "Ship the onboarding guide",
		"description":          "Write and publish the guide",
		"companyGoalAlignment": "Drive measurable business impact through data-led customer value",
		"targetDate":           time.Now().AddDate(0, 3, 0).Format("2006-01-02"),
	})
	if status != http.StatusCreated {
		t.Fatalf("create goal: expected 201, got %d (%v)", status, env.Error)
	}
	decode(t, env.Data, &goal)
	if goal.Status != "not-started" {
		t.Fatalf("expected not-started, got %s", goal.Status)
	}

	status, _ = call(t, client, http.MethodPost, ts.URL+"/api/v1/goals", employeeToken, map[string]any{
		"employeeId": employeeID,
		"title":      "Self assigned",
	})
	if status != http.StatusForbidden {
		t.Fatalf("employee create: expected 403, got %d", status)
	}

	status, env = call(t, client, http.MethodPut, ts.URL+"/api/v1/goals/"+goal.ID+"/progress", employeeToken, map[string]any{"progress": 100})
	if status != http.StatusOK {
		t.Fatalf("complete goal: expected 200, got %d (%v)", status, env.Error)
	}
	decode(t, env.Data, &goal)
	if goal.Status != "completed" {
		t.Fatalf("expected completed, got %s", goal.Status)
	}

	status, _ = call(t, client, http.MethodPut, ts.URL+"/api/v1/goals/"+goal.ID+"/progress", employeeToken, map[string]any{"progress": 50})
	if status != http.StatusConflict {
		t.Fatalf("edit completed goal: expected 409, got %d", status)
	}

	status, _ = call(t, client, http.MethodPost, ts.URL+"/functions/schedule-monthly", managerToken, map[string]any{})
	if status != http.StatusForbidden {
		t.Fatalf("manager schedule: expected 403, got %d", status)
	}
	status, _ = call(t, client, http.MethodPost, ts.URL+"/functions/schedule-monthly", ldToken, map[string]any{})
	if status != http.StatusOK {
		t.Fatalf("ld schedule: expected 200, got %d", status)
	}

	now := time.Now().UTC()
	status, env = call(t, client, http.MethodGet, fmt.Sprintf("%s/api/v1/questionnaires?month=%d&year=%d", ts.URL, int(now.Month()), now.Year()), managerToken, nil)
	if status != http.StatusOK {
		t.Fatalf("list questionnaires: expected 200, got %d", status)
	}
	var listed []struct {
		ID         string `json:"id"`
		EmployeeID string `json:"employeeId"`
		Status     string `json:"status"`
	}
	decode(t, env.Data, &listed)
	questionnaireID := ""
	for _, q := range listed {
		if q.EmployeeID == employeeID {
			questionnaireID = q.ID
		}
	}
	if questionnaireID == "" {
		t.Fatalf("expected a questionnaire for the seeded employee, got %d rows", len(listed))
	}

	store := questionnaires.NewStore(app.DB)
	if err := store.MarkMessageSent(context.Background(), questionnaireID); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("mark sent without evaluation: expected not found, got %v", err)
	}
	status, env = call(t, client, http.MethodPost, ts.URL+"/functions/send-message", managerToken, map[string]any{
		"questionnaireId": questionnaireID,
		"message":         "Early note",
	})
	if status != http.StatusNotFound {
		t.Fatalf("send without evaluation: expected 404, got %d (%v)", status, env.Error)
	}

	status, env = call(t, client, http.MethodPut, ts.URL+"/api/v1/questionnaires/"+questionnaireID+"/evaluation", managerToken, map[string]any{
		"overallRating":       "good",
		"goalsOnTrack":        true,
		"areasForImprovement": "Share progress earlier",
		"managerComments":     "Steady month",
	})
	if status != http.StatusOK {
		t.Fatalf("save evaluation: expected 200, got %d (%v)", status, env.Error)
	}

	status, env = call(t, client, http.MethodGet, ts.URL+"/api/v1/questionnaires/"+questionnaireID, managerToken, nil)
	if status != http.StatusOK {
		t.Fatalf("get questionnaire: expected 200, got %d", status)
	}
	var detail struct {
		Status     string          `json:"status"`
		Evaluation json.RawMessage `json:"evaluation"`
	}
	decode(t, env.Data, &detail)
	if detail.Status != "completed" || len(detail.Evaluation) == 0 {
		t.Fatalf("expected completed questionnaire with evaluation, got %s", detail.Status)
	}

	status, _ = call(t, client, http.MethodGet, ts.URL+"/api/v1/questionnaires/"+questionnaireID, employeeToken, nil)
	if status != http.StatusForbidden && status != http.StatusNotFound {
		t.Fatalf("employee questionnaire access: expected 403 or 404, got %d", status)
	}

	status, env = call(t, client, http.MethodGet, ts.URL+"/api/v1/notifications", employeeToken, nil)
	if status != http.StatusOK {
		t.Fatalf("notifications: expected 200, got %d", status)
	}
	var inbox []json.RawMessage
	decode(t, env.Data, &inbox)
	if len(inbox) == 0 {
		t.Fatal("expected the goal assignment notification")
	}
}

func login(t *testing.T, client *http.Client, baseURL, email string) (string, string) {
	t.Helper()
	status, env := call(t, client, http.MethodPost, baseURL+"/api/v1/auth/login", "", map[string]any{
		"email":    email,
		"password": "ChangeMe123!",
	})
	if status != http.StatusOK {
		t.Fatalf("login %s: expected 200, got %d (%v)", email, status, env.Error)
	}
	var session struct {
		Token string `json:"token"`
		User  struct {
			ID string `json:"id"`
		} `json:"user"`
	}
	decode(t, env.Data, &session)
	return session.Token, session.User.ID
}

func call(t *testing.T, client *http.Client, method, url, token string, body any) (int, envelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()

	var env envelope
	raw, _ := io.ReadAll(resp.Body)
	_ = json.Unmarshal(raw, &env)
	return resp.StatusCode, env
}

func decode(t *testing.T, raw json.RawMessage, into any) {
	t.Helper()
	if err := json.Unmarshal(raw, into); err != nil {
		t.Fatalf("decode %s: %v", string(raw), err)
	}
}
