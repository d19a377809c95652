package queue

import (
	"context"

	"github.com/crewboard/crewboard-api/internal/platform/metrics"
)

// QueueStats is the monitor's view of one queue. Err carries a per-queue
// counting failure without suppressing the other queues' stats.
type QueueStats struct {
	Counts
	Err string `json:"error,omitempty"`
}

// Monitor aggregates queue depth and state for operational visibility.
// It is strictly read-only: it never mutates jobs or queues.
type Monitor struct {
	registry *Registry
	store    Store
}

// NewMonitor creates a Monitor over the declared queues.
func NewMonitor(registry *Registry, store Store) *Monitor {
	return &Monitor{
		registry: registry,
		store:    store,
	}
}

// Stats returns per-queue counts for every declared queue. A failure
// counting one queue is recorded in that entry and does not prevent the
// others from being reported.
func (m *Monitor) Stats(ctx context.Context) map[string]QueueStats {
	out := make(map[string]QueueStats, len(m.registry.Queues()))
	for _, q := range m.registry.Queues() {
		counts, err := m.store.Counts(ctx, q.Name)
		if err != nil {
			out[q.Name] = QueueStats{Err: err.Error()}
			continue
		}
		metrics.QueueWaiting.WithLabelValues(q.Name).Set(float64(counts.Waiting))
		out[q.Name] = QueueStats{Counts: counts}
	}
	return out
}
