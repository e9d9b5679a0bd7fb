package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	r := NewRegistry()

	r.IncrementCounter("events")
	r.IncrementCounter("events")
	r.AddCounter("events", 3)

	assert.Equal(t, int64(5), r.GetCounter("events"))
	assert.Equal(t, int64(0), r.GetCounter("unknown"))
}

func TestGauges(t *testing.T) {
	r := NewRegistry()

	r.SetGauge("subscribers", 3)
	r.SetGauge("subscribers", 7)

	snapshot := r.Snapshot()
	gauges, ok := snapshot["gauges"].(map[string]float64)
	require.True(t, ok)
	assert.Equal(t, 7.0, gauges["subscribers"])
}

func TestTimers(t *testing.T) {
	r := NewRegistry()

	r.RecordTimer("op", 10*time.Millisecond)
	r.RecordTimer("op", 30*time.Millisecond)
	r.RecordTimer("op", 20*time.Millisecond)

	snapshot := r.Snapshot()
	timers, ok := snapshot["timers"].(map[string]timerStats)
	require.True(t, ok)

	stats := timers["op"]
	assert.Equal(t, int64(3), stats.Count)
	assert.Equal(t, int64(60), stats.TotalMs)
	assert.Equal(t, int64(10), stats.MinMs)
	assert.Equal(t, int64(30), stats.MaxMs)
}

func TestSnapshotIsACopy(t *testing.T) {
	r := NewRegistry()
	r.IncrementCounter("events")

	snapshot := r.Snapshot()
	counters, ok := snapshot["counters"].(map[string]int64)
	require.True(t, ok)
	counters["events"] = 100

	assert.Equal(t, int64(1), r.GetCounter("events"))
}

func TestSnapshotUptime(t *testing.T) {
	r := NewRegistry()
	snapshot := r.Snapshot()

	uptime, ok := snapshot["uptime_seconds"].(int64)
	require.True(t, ok)
	assert.GreaterOrEqual(t, uptime, int64(0))
}

func TestConcurrentAccess(t *testing.T) {
	r := NewRegistry()
	done := make(chan struct{})

	for i := 0; i < 8; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			for j := 0; j < 100; j++ {
				r.IncrementCounter("concurrent")
				r.RecordTimer("concurrent", time.Millisecond)
				r.SetGauge("concurrent", float64(j))
			}
		}()
	}
	for i := 0; i < 8; i++ {
		<-done
	}

	assert.Equal(t, int64(800), r.GetCounter("concurrent"))
}
