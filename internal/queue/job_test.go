package queue

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name    string
		from    State
		to      State
		allowed bool
	}{
		{"waiting to active", StateWaiting, StateActive, true},
		{"active to completed", StateActive, StateCompleted, true},
		{"active to failed", StateActive, StateFailed, true},
		{"failed to waiting", StateFailed, StateWaiting, true},
		{"failed to dead", StateFailed, StateDead, true},
		{"waiting to completed", StateWaiting, StateCompleted, false},
		{"waiting to dead", StateWaiting, StateDead, false},
		{"active to waiting", StateActive, StateWaiting, false},
		{"active to dead", StateActive, StateDead, false},
		{"completed is terminal", StateCompleted, StateWaiting, false},
		{"dead is terminal", StateDead, StateWaiting, false},
		{"dead never re-runs", StateDead, StateActive, false},
		{"unknown state", State("bogus"), StateActive, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.allowed, CanTransition(tt.from, tt.to))
		})
	}
}

func TestValidState(t *testing.T) {
	for _, s := range []State{StateWaiting, StateActive, StateCompleted, StateFailed, StateDead} {
		assert.True(t, ValidState(s), "state %s", s)
	}
	assert.False(t, ValidState(State("pending")))
	assert.False(t, ValidState(State("")))
}

func TestIsTerminal(t *testing.T) {
	assert.True(t, IsTerminal(StateCompleted))
	assert.True(t, IsTerminal(StateDead))
	assert.False(t, IsTerminal(StateWaiting))
	assert.False(t, IsTerminal(StateActive))
	assert.False(t, IsTerminal(StateFailed))
}
