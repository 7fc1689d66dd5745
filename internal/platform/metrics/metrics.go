package metrics

import (
	"sync"
	"time"
)

// Collector keeps process-local counters for GET /metrics: requests by
// status class and by route pattern, plus named domain counters such as
// questionnaires_created. All methods are safe on a nil *Collector.
type Collector struct {
	mu          sync.Mutex
	requests    uint64
	durationSum time.Duration
	byClass     map[string]uint64
	byRoute     map[string]uint64
	counters    map[string]uint64
}

func New() *Collector {
	return &Collector{
		byClass:  map[string]uint64{},
		byRoute:  map[string]uint64{},
		counters: map[string]uint64{},
	}
}

// Record counts one finished request. route is the matched router pattern,
// or empty when nothing matched.
func (c *Collector) Record(route string, status int, d time.Duration) {
	if c == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requests++
	c.durationSum += d
	c.byClass[statusClass(status)]++
	c.byRoute[route]++
}

func (c *Collector) Add(name string, delta uint64) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.counters[name] += delta
	c.mu.Unlock()
}

func (c *Collector) Snapshot() map[string]any {
	if c == nil {
		return map[string]any{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	avg := 0.0
	if c.requests > 0 {
		avg = float64(c.durationSum.Milliseconds()) / float64(c.requests)
	}
	return map[string]any{
		"requestsTotal":    c.requests,
		"errorsTotal":      c.byClass["5xx"],
		"rateLimitedTotal": c.counters["rate_limited"],
		"avgDurationMs":    avg,
		"byStatusClass":    copyCounts(c.byClass),
		"byRoute":          copyCounts(c.byRoute),
		"counters":         copyCounts(c.counters),
	}
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}

func copyCounts(in map[string]uint64) map[string]uint64 {
	out := make(map[string]uint64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
