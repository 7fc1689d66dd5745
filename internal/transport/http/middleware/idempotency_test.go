package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"perfdash/internal/domain/directory"
)

func TestRequestHashDeterministic(t *testing.T) {
	hash1 := RequestHash([]byte("payload"))
	hash2 := RequestHash([]byte("payload"))
	hash3 := RequestHash([]byte("other"))

	if hash1 != hash2 {
		t.Fatal("expected deterministic hash")
	}
	if hash1 == hash3 {
		t.Fatal("expected different hash for different payload")
	}
}

type memoryIdempotency struct {
	hashes    map[string]string
	responses map[string]StoredResponse
}

func (m *memoryIdempotency) Check(_ context.Context, userID, endpoint, key, hash string) (StoredResponse, bool, error) {
	id := userID + endpoint + key
	stored, ok := m.hashes[id]
	if !ok {
		return StoredResponse{}, false, nil
	}
	if stored != hash {
		return StoredResponse{}, false, ErrIdempotencyConflict
	}
	return m.responses[id], true, nil
}

func (m *memoryIdempotency) Save(_ context.Context, userID, endpoint, key, hash string, resp StoredResponse) error {
	id := userID + endpoint + key
	m.hashes[id] = hash
	m.responses[id] = resp
	return nil
}

func TestIdempotentReplaysFirstResponse(t *testing.T) {
	backend := &memoryIdempotency{hashes: map[string]string{}, responses: map[string]StoredResponse{}}
	calls := 0
	handler := Idempotent(backend, "deliver")(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"success":true}`))
	}))
	ctx := WithUser(context.Background(), &directory.User{ID: "mgr"})

	send := func(key, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/questionnaires/q1/deliver", strings.NewReader(body)).WithContext(ctx)
		if key != "" {
			req.Header.Set(IdempotencyHeader, key)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	first := send("k1", `{}`)
	second := send("k1", `{}`)
	if calls != 1 {
		t.Fatalf("expected one handler call, got %d", calls)
	}
	if second.Code != http.StatusCreated || second.Header().Get("Idempotent-Replayed") != "true" || second.Body.String() != first.Body.String() {
		t.Fatalf("expected replay, got %d %q", second.Code, second.Body.String())
	}

	if rec := send("k1", `{"other":1}`); rec.Code != http.StatusConflict {
		t.Fatalf("expected conflict for changed payload, got %d", rec.Code)
	}

	send("", `{}`)
	if calls != 2 {
		t.Fatalf("expected pass-through without key, got %d calls", calls)
	}
}

func TestIdempotentSkipsServerErrors(t *testing.T) {
	backend := &memoryIdempotency{hashes: map[string]string{}, responses: map[string]StoredResponse{}}
	handler := Idempotent(backend, "deliver")(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"success":false}`))
	}))
	req := httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(`{}`)).WithContext(WithUser(context.Background(), &directory.User{ID: "mgr"}))
	req.Header.Set(IdempotencyHeader, "k2")
	handler.ServeHTTP(httptest.NewRecorder(), req)
	if len(backend.hashes) != 0 {
		t.Fatal("server errors must not be stored")
	}
}
