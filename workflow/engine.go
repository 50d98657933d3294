// Package workflow implements the runtime's Basic/Sequential workflow
// engine: an ordered sequence of steps, each bound to a Component and an
// input binding, executed over a memory-backed State that tracks
// status, current step, shared data, and a recorded history of step
// results. Grounded on the teacher's workflow/workflow.go
// (Runnable/Step/ChainWorkflow sequential-pipe pattern) and
// workflow/execution_history.go's record-then-query idiom; the DAG,
// visual-builder, and expression-DSL variants present in the teacher
// (workflow/dag*.go, builder_visual.go, routing.go, dsl/*) are out of
// scope — spec names the engine "Basic/Sequential" explicitly.
package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/lucidkernel/runtime/component"
	"github.com/lucidkernel/runtime/core"
)

// Binding selects how a step's input is derived from the workflow's
// shared state and the prior step's output.
type Binding struct {
	// FromSharedKey, if non-empty, reads the input from shared data under
	// this key instead of chaining the previous step's output.
	FromSharedKey string
}

// Step is one component invocation in a Sequential workflow.
type Step struct {
	ID        string
	Name      string
	Component component.Component
	Binding   Binding
	// MaxRetries is the number of additional attempts after the first on
	// failure.
	MaxRetries int
}

// Sequential is an ordered sequence of Steps sharing one State.
type Sequential struct {
	name        string
	description string
	steps       []Step
	timeout     time.Duration // per-step timeout; zero means no timeout
}

// New builds a Sequential workflow named name with the given steps.
func New(name, description string, steps ...Step) *Sequential {
	return &Sequential{name: name, description: description, steps: steps}
}

// WithStepTimeout sets the per-step timeout, applied to each step as a
// context deadline.
func (w *Sequential) WithStepTimeout(d time.Duration) *Sequential {
	w.timeout = d
	return w
}

func (w *Sequential) Name() string        { return w.name }
func (w *Sequential) Description() string { return w.description }

// Execute runs every step in order against a fresh State, returning the
// final step's output (or the input unchanged if the workflow has no
// steps).
func (w *Sequential) Execute(ctx context.Context, input core.AgentInput) (core.AgentOutput, *State, error) {
	st := NewState(w.name)
	st.Start()

	current := input
	for i, step := range w.steps {
		select {
		case <-ctx.Done():
			st.Cancel()
			return core.AgentOutput{}, st, ctx.Err()
		default:
		}

		stepCtx := ctx
		var cancel context.CancelFunc
		if w.timeout > 0 {
			stepCtx, cancel = context.WithTimeout(ctx, w.timeout)
		}

		if step.Binding.FromSharedKey != "" {
			if v, ok := st.GetShared(step.Binding.FromSharedKey); ok {
				if text, isStr := v.(string); isStr {
					current = core.AgentInput{Text: text}
				}
			}
		}

		st.SetCurrentStep(i)
		stepStart := time.Now()
		output, retries, err := executeWithRetry(stepCtx, step, current)
		if cancel != nil {
			cancel()
		}

		st.recordStep(step, err == nil, output, err, time.Since(stepStart), retries)

		if err != nil {
			st.Fail(fmt.Errorf("step %d (%s) failed: %w", i, step.Name, err))
			return core.AgentOutput{}, st, st.lastError()
		}

		st.SetStepOutput(step.ID, output)
		current = core.AgentInput{Text: output.Text, Parameters: output.Parameters}
	}

	st.Complete()
	return core.AgentOutput{Text: current.Text, Parameters: current.Parameters}, st, nil
}

// executeWithRetry runs step up to step.MaxRetries+1 times, returning the
// first successful output and the number of retries actually consumed.
func executeWithRetry(ctx context.Context, step Step, input core.AgentInput) (core.AgentOutput, int, error) {
	var lastErr error
	for attempt := 0; attempt <= step.MaxRetries; attempt++ {
		if err := step.Component.ValidateInput(ctx, input); err != nil {
			return core.AgentOutput{}, attempt, err
		}
		output, err := step.Component.Execute(ctx, input)
		if err == nil {
			return output, attempt, nil
		}
		lastErr = err
	}
	return core.AgentOutput{}, step.MaxRetries, lastErr
}
