package agent

// State is an agent's lifecycle state. The FSM is the sole authority
// over execution eligibility: CanExecute is true only in Ready or
// Running. Terminated and Error are terminal — no transition leaves
// them.
type State string

const (
	StateUninitialized State = "uninitialized"
	StateReady         State = "ready"
	StateRunning       State = "running"
	StatePaused        State = "paused"
	StateStopped       State = "stopped"
	StateTerminated    State = "terminated"
	StateError         State = "error"
)

// Transition names one of the FSM's named edges.
type Transition string

const (
	TransitionInitialize Transition = "initialize"
	TransitionStart      Transition = "start"
	TransitionPause      Transition = "pause"
	TransitionResume     Transition = "resume"
	TransitionStop       Transition = "stop"
	TransitionTerminate  Transition = "terminate"
	TransitionError      Transition = "error"
)

// validTransitions enumerates, for every named Transition, the states it
// may fire from and the state it lands in. error and terminate may fire
// from any non-terminal state (an out-of-band escape hatch), per
// spec: "Terminal states (Terminated, Error) reject further execute
// calls."
var validTransitions = map[Transition]struct {
	from []State
	to   State
}{
	TransitionInitialize: {from: []State{StateUninitialized}, to: StateReady},
	TransitionStart:      {from: []State{StateReady}, to: StateRunning},
	TransitionPause:      {from: []State{StateRunning}, to: StatePaused},
	TransitionResume:     {from: []State{StatePaused}, to: StateRunning},
	TransitionStop:       {from: []State{StateRunning, StatePaused, StateReady}, to: StateStopped},
	TransitionTerminate:  {from: []State{StateUninitialized, StateReady, StateRunning, StatePaused, StateStopped}, to: StateTerminated},
	TransitionError:      {from: []State{StateUninitialized, StateReady, StateRunning, StatePaused, StateStopped}, to: StateError},
}

// CanFire reports whether transition may fire from the current state.
func CanFire(from State, t Transition) bool {
	edge, ok := validTransitions[t]
	if !ok {
		return false
	}
	for _, s := range edge.from {
		if s == from {
			return true
		}
	}
	return false
}

// Apply returns the state transition t lands in from from, or ("", false)
// if the transition is illegal.
func Apply(from State, t Transition) (State, bool) {
	if !CanFire(from, t) {
		return "", false
	}
	return validTransitions[t].to, true
}

// CanExecute reports whether a component may be invoked while the agent
// is in state s.
func CanExecute(s State) bool {
	return s == StateReady || s == StateRunning
}

// IsTerminal reports whether s accepts no further transitions.
func IsTerminal(s State) bool {
	return s == StateTerminated || s == StateError
}
