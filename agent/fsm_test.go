package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApply_LegalTransitions(t *testing.T) {
	tests := []struct {
		name string
		from State
		t    Transition
		to   State
	}{
		{"initialize", StateUninitialized, TransitionInitialize, StateReady},
		{"start", StateReady, TransitionStart, StateRunning},
		{"pause", StateRunning, TransitionPause, StatePaused},
		{"resume", StatePaused, TransitionResume, StateRunning},
		{"stop from running", StateRunning, TransitionStop, StateStopped},
		{"stop from paused", StatePaused, TransitionStop, StateStopped},
		{"stop from ready", StateReady, TransitionStop, StateStopped},
		{"terminate from stopped", StateStopped, TransitionTerminate, StateTerminated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Apply(tt.from, tt.t)
			assert.True(t, ok)
			assert.Equal(t, tt.to, got)
		})
	}
}

func TestApply_IllegalTransitionsRejected(t *testing.T) {
	tests := []struct {
		name string
		from State
		t    Transition
	}{
		{"start before initialize", StateUninitialized, TransitionStart},
		{"pause when not running", StateReady, TransitionPause},
		{"resume when not paused", StateRunning, TransitionResume},
		{"initialize twice", StateReady, TransitionInitialize},
		{"terminate from terminated", StateTerminated, TransitionTerminate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := Apply(tt.from, tt.t)
			assert.False(t, ok)
		})
	}
}

func TestCanExecute(t *testing.T) {
	assert.True(t, CanExecute(StateReady))
	assert.True(t, CanExecute(StateRunning))
	assert.False(t, CanExecute(StateUninitialized))
	assert.False(t, CanExecute(StatePaused))
	assert.False(t, CanExecute(StateStopped))
	assert.False(t, CanExecute(StateTerminated))
	assert.False(t, CanExecute(StateError))
}

func TestIsTerminal(t *testing.T) {
	assert.True(t, IsTerminal(StateTerminated))
	assert.True(t, IsTerminal(StateError))
	assert.False(t, IsTerminal(StateStopped))
	assert.False(t, IsTerminal(StateReady))
}

func TestCanFire_UnknownTransitionIsFalse(t *testing.T) {
	assert.False(t, CanFire(StateReady, Transition("bogus")))
}
