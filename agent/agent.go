// Package agent implements the runtime's agent lifecycle: a fixed
// seven-state FSM (agent/fsm.go: Uninitialized/Ready/Running/Paused/
// Stopped/Terminated + an out-of-band Error sink), a fluent builder for
// assembling a concrete agent from a Component, and the supporting
// lifecycle/health manager. Grounded on the teacher's agent/state.go
// (validTransitions table idiom, kept as fsm.go though renamed to the
// spec's own state names) and agent/lifecycle.go (health-check loop via
// zap-logged ticker, adapted to this package's narrower Agent
// interface); the ReAct-style Plan/Execute/Observe interface the teacher
// built around (agent/base.go, agent/interfaces.go) is replaced with the
// runtime's uniform Component contract per SPEC_FULL.md §4's builder
// composition-over-inheritance pattern.
package agent

import (
	"context"
	"fmt"
	"sync"

	"github.com/lucidkernel/runtime/circuitbreaker"
	"github.com/lucidkernel/runtime/component"
	"github.com/lucidkernel/runtime/core"
	"github.com/lucidkernel/runtime/event"
	"github.com/lucidkernel/runtime/hook"
)

// StateSnapshotter persists and restores an agent's state on pause/stop
// and resume/start. Bound optionally; an agent with no snapshotter
// simply never persists across restarts.
type StateSnapshotter interface {
	Snapshot(ctx context.Context, agentID string, buffer []core.Turn) error
	Load(ctx context.Context, agentID string) ([]core.Turn, error)
}

// Agent is a stateful, hook-observed wrapper around a Component that
// enforces the lifecycle FSM and publishes lifecycle events.
type Agent interface {
	ID() string
	Name() string
	State() State
	Init(ctx context.Context) error
	Execute(ctx context.Context, input core.AgentInput) (core.AgentOutput, error)
	HandleError(ctx context.Context, err error) error
	Teardown(ctx context.Context) error
}

// Runtime is the default Agent implementation: a Component driven
// through the lifecycle FSM, with hooks firing at before/after execute
// and on error, lifecycle transitions published to an event bus, and
// every transition guarded by a per-agent circuit breaker.
type Runtime struct {
	id        core.ComponentId
	name      string
	component component.Component
	tools     *component.Registry
	hooks     *hook.Registry
	bus       *event.Bus
	buffer    *ConversationBuffer
	breaker   *circuitbreaker.Breaker
	state     StateSnapshotter

	mu sync.RWMutex
	st State
}

// Option configures a Runtime at construction.
type Option func(*Runtime)

// WithTools attaches a tool registry the agent's component may consult
// via its own closures (the Component contract doesn't expose tool
// lookup directly; components that need it capture the registry at
// construction time).
func WithTools(reg *component.Registry) Option {
	return func(r *Runtime) { r.tools = reg }
}

// WithHooks attaches a hook registry fired around transitions and
// Execute.
func WithHooks(reg *hook.Registry) Option {
	return func(r *Runtime) { r.hooks = reg }
}

// WithEventBus attaches an event bus lifecycle transitions publish to.
func WithEventBus(bus *event.Bus) Option {
	return func(r *Runtime) { r.bus = bus }
}

// WithConversationBuffer attaches a turn history buffer.
func WithConversationBuffer(buf *ConversationBuffer) Option {
	return func(r *Runtime) { r.buffer = buf }
}

// WithCircuitBreaker attaches the breaker guarding every FSM transition.
// Without one, transitions are unguarded (always allowed by the FSM
// rules alone).
func WithCircuitBreaker(b *circuitbreaker.Breaker) Option {
	return func(r *Runtime) { r.breaker = b }
}

// WithStateManager binds a snapshotter; the agent snapshots its
// conversation buffer on pause/stop and can reload it explicitly via
// LoadState.
func WithStateManager(s StateSnapshotter) Option {
	return func(r *Runtime) { r.state = s }
}

// New builds a Runtime wrapping comp, named name, starting Uninitialized.
func New(name string, comp component.Component, opts ...Option) *Runtime {
	r := &Runtime{
		id:        core.NewComponentId(name),
		name:      name,
		component: comp,
		st:        StateUninitialized,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Runtime) ID() string   { return r.id.String() }
func (r *Runtime) Name() string { return r.name }

func (r *Runtime) State() State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.st
}

// fire drives the FSM through transition t, guarded by the circuit
// breaker (if bound) and publishing a state_change event on success.
func (r *Runtime) fire(ctx context.Context, t Transition, reason string) error {
	if r.breaker != nil {
		if allowed, err := r.breaker.Allow(); !allowed {
			return fmt.Errorf("agent %s: transition %s blocked by circuit breaker: %w", r.name, t, err)
		}
	}

	r.mu.Lock()
	from := r.st
	to, ok := Apply(from, t)
	if !ok {
		r.mu.Unlock()
		if r.breaker != nil {
			r.breaker.RecordFailure()
		}
		return fmt.Errorf("agent %s: illegal transition %q from state %s", r.name, t, from)
	}
	r.st = to
	r.mu.Unlock()

	if r.breaker != nil {
		r.breaker.RecordSuccess()
	}

	if r.bus != nil {
		r.bus.Publish(ctx, event.Event{
			Type:     event.TypeStateChange,
			SourceID: r.ID(),
			Data: map[string]core.Value{
				"from":       string(from),
				"to":         string(to),
				"transition": string(t),
				"reason":     reason,
			},
		})
	}

	if r.state != nil && (to == StatePaused || to == StateStopped) && r.buffer != nil {
		if err := r.state.Snapshot(ctx, r.ID(), r.buffer.Turns()); err != nil {
			return fmt.Errorf("agent %s: snapshot on %s transition: %w", r.name, t, err)
		}
	}
	return nil
}

// Init drives the FSM's initialize transition (Uninitialized -> Ready).
func (r *Runtime) Init(ctx context.Context) error {
	return r.fire(ctx, TransitionInitialize, "initialize")
}

// Pause drives pause (Running -> Paused), snapshotting state if a
// snapshotter is bound.
func (r *Runtime) Pause(ctx context.Context) error {
	return r.fire(ctx, TransitionPause, "pause")
}

// Resume drives resume (Paused -> Running). State loading is explicit
// (LoadState), never implicit on resume, to preserve the single-writer
// invariant.
func (r *Runtime) Resume(ctx context.Context) error {
	return r.fire(ctx, TransitionResume, "resume")
}

// Stop drives stop (Running/Paused/Ready -> Stopped).
func (r *Runtime) Stop(ctx context.Context) error {
	return r.fire(ctx, TransitionStop, "stop")
}

// LoadState explicitly reloads the agent's conversation buffer from the
// bound snapshotter; a no-op if none is bound.
func (r *Runtime) LoadState(ctx context.Context) error {
	if r.state == nil || r.buffer == nil {
		return nil
	}
	turns, err := r.state.Load(ctx, r.ID())
	if err != nil {
		return fmt.Errorf("agent %s: load state: %w", r.name, err)
	}
	r.buffer.Clear()
	for _, t := range turns {
		r.buffer.Append(t)
	}
	return nil
}

// Execute runs the wrapped component, auto-initializing (Uninitialized
// -> Ready) and starting (Ready -> Running) as needed, returning to
// Ready afterward. Firing before_execute/after_execute/on_error hooks
// and publishing execute_start/execute_end events around the call.
// Terminal states (Terminated, Error) reject execute outright.
func (r *Runtime) Execute(ctx context.Context, input core.AgentInput) (core.AgentOutput, error) {
	cur := r.State()
	if IsTerminal(cur) {
		return core.AgentOutput{}, fmt.Errorf("agent %s: cannot execute in terminal state %s", r.name, cur)
	}
	if cur == StateUninitialized {
		if err := r.Init(ctx); err != nil {
			return core.AgentOutput{}, err
		}
	}
	if r.State() == StateReady {
		if err := r.fire(ctx, TransitionStart, "execute"); err != nil {
			return core.AgentOutput{}, err
		}
	}
	if !CanExecute(r.State()) {
		return core.AgentOutput{}, fmt.Errorf("agent %s: cannot execute from state %s", r.name, r.State())
	}

	exec := core.NewExecutionContext("")
	hctx := hook.NewContext(hook.PointBeforeExecute, exec, input)

	if r.hooks != nil {
		for _, h := range r.hooks.Hooks(hook.PointBeforeExecute) {
			res, err := h.Execute(hctx)
			if err != nil {
				return r.fail(ctx, fmt.Errorf("before_execute hook %q: %w", h.Name(), err))
			}
			if res.Kind == hook.Cancel {
				return r.fail(ctx, fmt.Errorf("execution cancelled by hook %q: %s", h.Name(), res.Reason))
			}
			if res.Kind == hook.Replace {
				if out, ok := res.Data.(core.AgentOutput); ok {
					r.mu.Lock()
					r.st = StateReady
					r.mu.Unlock()
					return out, nil
				}
			}
		}
	}

	if r.bus != nil {
		r.bus.Publish(ctx, event.Event{Type: event.TypeExecuteStart, SourceID: r.ID()})
	}

	if err := r.component.ValidateInput(ctx, input); err != nil {
		return r.fail(ctx, err)
	}

	output, err := r.component.Execute(ctx, input)
	if err != nil {
		return r.fail(ctx, err)
	}

	if r.buffer != nil {
		r.buffer.Append(core.Turn{Role: core.RoleUser, Content: input.Text})
		r.buffer.Append(core.Turn{Role: core.RoleAssistant, Content: output.Text})
	}

	hctxAfter := hook.NewContext(hook.PointAfterExecute, exec, input)
	hctxAfter.Output = output
	if r.hooks != nil {
		for _, h := range r.hooks.Hooks(hook.PointAfterExecute) {
			if _, err := h.Execute(hctxAfter); err != nil {
				return r.fail(ctx, fmt.Errorf("after_execute hook %q: %w", h.Name(), err))
			}
		}
	}

	if r.bus != nil {
		r.bus.Publish(ctx, event.Event{Type: event.TypeExecuteEnd, SourceID: r.ID()})
	}

	// Running -> Ready isn't one of the named spec transitions (only
	// pause/stop leave Running); execute completion returns to Ready via
	// resume's inverse path, modeled here as an implicit settle back to
	// Ready so the agent is immediately executable again.
	r.mu.Lock()
	r.st = StateReady
	r.mu.Unlock()

	return output, nil
}

func (r *Runtime) fail(ctx context.Context, cause error) (core.AgentOutput, error) {
	if r.hooks != nil {
		hctx := hook.NewContext(hook.PointOnError, core.NewExecutionContext(""), core.AgentInput{})
		hctx.Err = cause
		for _, h := range r.hooks.Hooks(hook.PointOnError) {
			_, _ = h.Execute(hctx)
		}
	}
	if r.bus != nil {
		r.bus.Publish(ctx, event.Event{
			Type:     event.TypeError,
			SourceID: r.ID(),
			Data:     map[string]core.Value{"error": cause.Error()},
		})
	}
	if r.breaker != nil {
		r.breaker.RecordFailure()
	}
	r.mu.Lock()
	r.st = StateError
	r.mu.Unlock()
	return core.AgentOutput{}, cause
}

// HandleError delegates to the wrapped component's own recovery policy.
func (r *Runtime) HandleError(ctx context.Context, err error) error {
	return r.component.HandleError(ctx, err)
}

// Teardown drives terminate from whatever non-terminal state the agent
// is in.
func (r *Runtime) Teardown(ctx context.Context) error {
	if IsTerminal(r.State()) {
		return nil
	}
	return r.fire(ctx, TransitionTerminate, "teardown")
}
