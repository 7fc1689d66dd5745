package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"perfdash/internal/transport/http/api"
)

// KeyFunc picks the bucket a request is counted against.
type KeyFunc func(r *http.Request) string

// window is a fixed-window counter set. Buckets past their reset time are
// swept lazily, at most once per window.
type window struct {
	mu        sync.Mutex
	limit     int
	length    time.Duration
	key       KeyFunc
	buckets   map[string]*bucket
	nextSweep time.Time
}

type bucket struct {
	hits  int
	reset time.Time
}

type decision struct {
	allowed   bool
	remaining int
	resetIn   time.Duration
}

func newWindow(limit int, length time.Duration, key KeyFunc) *window {
	return &window{limit: limit, length: length, key: key, buckets: map[string]*bucket{}}
}

func (w *window) take(key string, now time.Time) decision {
	w.mu.Lock()
	defer w.mu.Unlock()

	if now.After(w.nextSweep) {
		for k, b := range w.buckets {
			if now.After(b.reset) {
				delete(w.buckets, k)
			}
		}
		w.nextSweep = now.Add(w.length)
	}

	b, ok := w.buckets[key]
	if !ok || now.After(b.reset) {
		b = &bucket{reset: now.Add(w.length)}
		w.buckets[key] = b
	}
	b.hits++
	return decision{
		allowed:   b.hits <= w.limit,
		remaining: max(w.limit-b.hits, 0),
		resetIn:   b.reset.Sub(now),
	}
}

// check counts r against the window and writes the 429 response when the
// bucket is exhausted. It reports whether the request may continue.
func (w *window) check(rw http.ResponseWriter, r *http.Request) bool {
	if w.limit <= 0 {
		return true
	}
	key := w.key(r)
	if key == "" {
		key = ClientIP(r)
	}
	d := w.take(key, time.Now())

	resetSec := ceilSeconds(d.resetIn)
	rw.Header().Set("X-RateLimit-Limit", strconv.Itoa(w.limit))
	rw.Header().Set("X-RateLimit-Remaining", strconv.Itoa(d.remaining))
	rw.Header().Set("X-RateLimit-Reset", strconv.Itoa(resetSec))
	if d.allowed {
		return true
	}

	rw.Header().Set("Retry-After", strconv.Itoa(max(resetSec, 1)))
	slog.Warn("rate limit exceeded",
		"key", key,
		"method", r.Method,
		"path", r.URL.Path,
		"limit", w.limit,
		"window", w.length.String(),
	)
	api.Fail(rw, http.StatusTooManyRequests, "rate_limited", "too many requests", GetRequestID(r.Context()))
	return false
}

// RateLimit applies one fixed window to every request, keyed by the signed-in
// user or the client address.
func RateLimit(limit int, length time.Duration) func(http.Handler) http.Handler {
	w := newWindow(limit, length, userOrIP)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
			if w.check(rw, r) {
				next.ServeHTTP(rw, r)
			}
		})
	}
}

type routeClass uint8

const (
	classOther routeClass = iota
	// classLogin is password login, throttled per address and per email.
	classLogin
	// classOutbound reaches the text generator or the chat API.
	classOutbound
	// classSchedule writes a whole month of questionnaires.
	classSchedule
)

// SensitiveRateLimit adds tighter windows on top of RateLimit for login,
// for routes that call Gemini or Slack, and for the monthly scheduler.
// Reads are never counted here.
func SensitiveRateLimit(base int, length time.Duration) func(http.Handler) http.Handler {
	loginByIP := newWindow(max(base/4, 1), length, ClientIP)
	loginByEmail := newWindow(max(base/4, 1), length, JSONFieldOrIP("email"))
	outbound := newWindow(max(base/2, 1), length, userOrIP)
	schedule := newWindow(max(base/10, 1), length, userOrIP)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
			ok := true
			switch classify(r) {
			case classLogin:
				ok = loginByIP.check(rw, r) && loginByEmail.check(rw, r)
			case classOutbound:
				ok = outbound.check(rw, r)
			case classSchedule:
				ok = schedule.check(rw, r)
			}
			if ok {
				next.ServeHTTP(rw, r)
			}
		})
	}
}

func classify(r *http.Request) routeClass {
	switch r.Method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
	default:
		return classOther
	}

	path := strings.TrimPrefix(r.URL.Path, "/api/v1")
	switch path {
	case "/auth/login":
		return classLogin
	case "/functions/schedule-monthly":
		return classSchedule
	case "/functions/generate-message", "/functions/send-message":
		return classOutbound
	}
	if rest, ok := strings.CutPrefix(path, "/questionnaires/"); ok {
		if strings.HasSuffix(rest, "/message") || strings.HasSuffix(rest, "/deliver") {
			return classOutbound
		}
	}
	return classOther
}

// JSONFieldOrIP keys on a lower-cased string field of a JSON body, falling
// back to the client address. The body is restored for the next handler.
func JSONFieldOrIP(field string) KeyFunc {
	return func(r *http.Request) string {
		if value := peekJSONField(r, field); value != "" {
			return field + ":" + strings.ToLower(value)
		}
		return ClientIP(r)
	}
}

// ClientIP is the first X-Forwarded-For hop, or the remote address.
func ClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	addr := strings.TrimSpace(r.RemoteAddr)
	if host, _, err := net.SplitHostPort(addr); err == nil && host != "" {
		return host
	}
	return addr
}

func userOrIP(r *http.Request) string {
	if user, ok := GetUser(r.Context()); ok && user.ID != "" {
		return "user:" + user.ID
	}
	return ClientIP(r)
}

func peekJSONField(r *http.Request, field string) string {
	if r.Body == nil || !strings.Contains(strings.ToLower(r.Header.Get("Content-Type")), "application/json") {
		return ""
	}
	raw, err := io.ReadAll(io.LimitReader(r.Body, 64<<10))
	if err != nil {
		return ""
	}
	r.Body = io.NopCloser(bytes.NewReader(raw))

	var payload map[string]json.RawMessage
	if json.Unmarshal(raw, &payload) != nil {
		return ""
	}
	var value string
	if json.Unmarshal(payload[field], &value) != nil {
		return ""
	}
	return strings.TrimSpace(value)
}

func ceilSeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int((d + time.Second - 1) / time.Second)
}
