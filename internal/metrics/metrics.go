// Package metrics is a small in-process metrics registry. Counters, gauges
// and timers accumulate in memory and are exposed as JSON by the metrics
// endpoint; there is no external metrics backend.
package metrics

import (
	"sync"
	"time"
)

type timerStats struct {
	Count   int64 `json:"count"`
	TotalMs int64 `json:"total_ms"`
	MinMs   int64 `json:"min_ms"`
	MaxMs   int64 `json:"max_ms"`
}

// Registry holds all metric families behind one mutex. Contention is not a
// concern at webhook volumes.
type Registry struct {
	mu       sync.RWMutex
	counters map[string]int64
	gauges   map[string]float64
	timers   map[string]*timerStats
	started  time.Time
}

func NewRegistry() *Registry {
	return &Registry{
		counters: make(map[string]int64),
		gauges:   make(map[string]float64),
		timers:   make(map[string]*timerStats),
		started:  time.Now(),
	}
}

var defaultRegistry = NewRegistry()

// Default returns the process-wide registry.
func Default() *Registry {
	return defaultRegistry
}

func (r *Registry) IncrementCounter(name string) {
	r.AddCounter(name, 1)
}

func (r *Registry) AddCounter(name string, delta int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counters[name] += delta
}

func (r *Registry) SetGauge(name string, value float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gauges[name] = value
}

func (r *Registry) RecordTimer(name string, d time.Duration) {
	ms := d.Milliseconds()
	r.mu.Lock()
	defer r.mu.Unlock()
	stats, ok := r.timers[name]
	if !ok {
		stats = &timerStats{MinMs: ms, MaxMs: ms}
		r.timers[name] = stats
	}
	stats.Count++
	stats.TotalMs += ms
	if ms < stats.MinMs {
		stats.MinMs = ms
	}
	if ms > stats.MaxMs {
		stats.MaxMs = ms
	}
}

// GetCounter returns a counter's current value.
func (r *Registry) GetCounter(name string) int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.counters[name]
}

// Snapshot returns all metrics as a JSON-serializable map.
func (r *Registry) Snapshot() map[string]interface{} {
	r.mu.RLock()
	defer r.mu.RUnlock()

	counters := make(map[string]int64, len(r.counters))
	for k, v := range r.counters {
		counters[k] = v
	}
	gauges := make(map[string]float64, len(r.gauges))
	for k, v := range r.gauges {
		gauges[k] = v
	}
	timers := make(map[string]timerStats, len(r.timers))
	for k, v := range r.timers {
		timers[k] = *v
	}

	return map[string]interface{}{
		"counters":       counters,
		"gauges":         gauges,
		"timers":         timers,
		"uptime_seconds": int64(time.Since(r.started).Seconds()),
	}
}

// Package-level helpers operating on the default registry.

func IncrementCounter(name string) { defaultRegistry.IncrementCounter(name) }

func AddCounter(name string, delta int64) { defaultRegistry.AddCounter(name, delta) }

func SetGauge(name string, value float64) { defaultRegistry.SetGauge(name, value) }

func RecordTimer(name string, d time.Duration) { defaultRegistry.RecordTimer(name, d) }

func Snapshot() map[string]interface{} { return defaultRegistry.Snapshot() }
