package queue

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// State is the lifecycle state of a job.
type State string

const (
	// StateWaiting marks a job enqueued (or scheduled for retry) and not yet
	// claimed by a worker.
	StateWaiting State = "waiting"
	// StateActive marks a job claimed by exactly one worker.
	StateActive State = "active"
	// StateCompleted marks a job whose handler returned normally.
	StateCompleted State = "completed"
	// StateFailed marks a job whose handler returned an error; it is a
	// transient state resolved into a retry (back to waiting) or dead.
	StateFailed State = "failed"
	// StateDead marks a job that exhausted its retry budget. Dead jobs are
	// kept in a bounded history for operator inspection, never re-run.
	StateDead State = "dead"
)

var transitions = map[State]map[State]bool{
	StateWaiting: {
		StateActive: true,
	},
	StateActive: {
		StateCompleted: true,
		StateFailed:    true,
	},
	StateFailed: {
		StateWaiting: true,
		StateDead:    true,
	},
}

// ValidState reports whether s is one of the five defined states.
func ValidState(s State) bool {
	switch s {
	case StateWaiting, StateActive, StateCompleted, StateFailed, StateDead:
		return true
	}
	return false
}

// CanTransition reports whether the state machine permits moving from one
// state to another.
func CanTransition(from, to State) bool {
	next, ok := transitions[from]
	if !ok {
		return false
	}
	return next[to]
}

// IsTerminal reports whether s is a terminal state.
func IsTerminal(s State) bool {
	return s == StateCompleted || s == StateDead
}

// Job is the unit of asynchronous work. Payloads carry entity identifiers
// and small metadata, never live object references; the handler reloads
// whatever it needs from the authoritative store.
type Job struct {
	ID          uuid.UUID       `json:"id"`
	Queue       string          `json:"queue"`
	Type        string          `json:"type"`
	Payload     json.RawMessage `json:"payload"`
	State       State           `json:"state"`
	Attempts    int             `json:"attempts"`
	MaxAttempts int             `json:"max_attempts"`
	EnqueuedAt  time.Time       `json:"enqueued_at"`
	ScheduledAt time.Time       `json:"scheduled_at,omitempty"` // zero unless delayed or awaiting retry
	ClaimedAt   time.Time       `json:"claimed_at,omitempty"`
	FinishedAt  time.Time       `json:"finished_at,omitempty"`
	LastError   string          `json:"last_error,omitempty"`
	Result      string          `json:"result,omitempty"`
}
