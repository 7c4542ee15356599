package observability

import (
	"sort"
	"strings"
	"sync"
	"time"
)

// Metrics provides basic in-memory counters for handled interactions.
type Metrics struct {
	mu               sync.Mutex
	interactionCount map[string]int64
	interactionTime  map[string]time.Duration
	errorCount       map[string]int64
}

// RouteStats summarises one route/outcome pair.
type RouteStats struct {
	Route        string  `json:"route"`
	Outcome      string  `json:"outcome"`
	Count        int64   `json:"count"`
	AvgLatencyMS float64 `json:"avg_latency_ms"`
}

// ErrorStats counts failures of one route by error code.
type ErrorStats struct {
	Route string `json:"route"`
	Code  string `json:"code"`
	Count int64  `json:"count"`
}

// Snapshot is a point-in-time copy of all counters.
type Snapshot struct {
	Interactions []RouteStats `json:"interactions"`
	Errors       []ErrorStats `json:"errors"`
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		interactionCount: make(map[string]int64),
		interactionTime:  make(map[string]time.Duration),
		errorCount:       make(map[string]int64),
	}
}

// RecordInteraction counts a handled interaction and its latency.
func (m *Metrics) RecordInteraction(route, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	key := metricKey(route, outcome)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.interactionCount[key]++
	m.interactionTime[key] += duration
}

// RecordError increments error counters.
func (m *Metrics) RecordError(route, code string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorCount[metricKey(route, code)]++
}

// Snapshot copies the counters, sorted by key.
func (m *Metrics) Snapshot() Snapshot {
	snap := Snapshot{Interactions: []RouteStats{}, Errors: []ErrorStats{}}
	if m == nil {
		return snap
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	for key, count := range m.interactionCount {
		route, outcome := splitKey(key)
		avg := float64(m.interactionTime[key]) / float64(count) / float64(time.Millisecond)
		snap.Interactions = append(snap.Interactions, RouteStats{
			Route: route, Outcome: outcome, Count: count, AvgLatencyMS: avg,
		})
	}
	for key, count := range m.errorCount {
		route, code := splitKey(key)
		snap.Errors = append(snap.Errors, ErrorStats{Route: route, Code: code, Count: count})
	}
	sort.Slice(snap.Interactions, func(i, j int) bool {
		a, b := snap.Interactions[i], snap.Interactions[j]
		return metricKey(a.Route, a.Outcome) < metricKey(b.Route, b.Outcome)
	})
	sort.Slice(snap.Errors, func(i, j int) bool {
		a, b := snap.Errors[i], snap.Errors[j]
		return metricKey(a.Route, a.Code) < metricKey(b.Route, b.Code)
	})
	return snap
}

func metricKey(route, label string) string {
	return route + "|" + label
}

func splitKey(key string) (string, string) {
	route, label, _ := strings.Cut(key, "|")
	return route, label
}
