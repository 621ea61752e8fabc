package engine

import (
	"sync/atomic"
	"time"
)

// Metrics tracks engine counters. All fields are updated atomically so the
// IO loop never contends with readers.
type Metrics struct {
	eventsApplied     atomic.Uint64
	unrecognizedLines atomic.Uint64
	reconnects        atomic.Uint64
	commandErrors     atomic.Uint64
	start             time.Time
}

// MetricsSnapshot is a point-in-time copy of the counters.
type MetricsSnapshot struct {
	UptimeSeconds     uint64 `json:"uptime_seconds"`
	EventsApplied     uint64 `json:"events_applied"`
	UnrecognizedLines uint64 `json:"unrecognized_lines"`
	Reconnects        uint64 `json:"reconnects"`
	CommandErrors     uint64 `json:"command_errors"`
}

func newMetrics() *Metrics {
	return &Metrics{start: time.Now()}
}

// Snapshot returns the current counter values.
func (m *Metrics) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		UptimeSeconds:     uint64(time.Since(m.start).Seconds()),
		EventsApplied:     m.eventsApplied.Load(),
		UnrecognizedLines: m.unrecognizedLines.Load(),
		Reconnects:        m.reconnects.Load(),
		CommandErrors:     m.commandErrors.Load(),
	}
}
