package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/lucidkernel/runtime/circuitbreaker"
	"github.com/lucidkernel/runtime/component"
	"github.com/lucidkernel/runtime/core"
	"github.com/lucidkernel/runtime/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeComponent struct {
	component.BaseComponent
	execFn func(ctx context.Context, input core.AgentInput) (core.AgentOutput, error)
}

func (f *fakeComponent) Execute(ctx context.Context, input core.AgentInput) (core.AgentOutput, error) {
	if f.execFn != nil {
		return f.execFn(ctx, input)
	}
	return core.AgentOutput{Text: "echo: " + input.Text}, nil
}

type fakeSnapshotter struct {
	snapshotted []core.Turn
	loaded      []core.Turn
	snapshotErr error
}

func (s *fakeSnapshotter) Snapshot(_ context.Context, _ string, buffer []core.Turn) error {
	if s.snapshotErr != nil {
		return s.snapshotErr
	}
	s.snapshotted = append([]core.Turn(nil), buffer...)
	return nil
}

func (s *fakeSnapshotter) Load(_ context.Context, _ string) ([]core.Turn, error) {
	return s.loaded, nil
}

func TestRuntime_StartsUninitialized(t *testing.T) {
	r := New("agent-1", &fakeComponent{})
	assert.Equal(t, StateUninitialized, r.State())
}

func TestRuntime_ExecuteAutoInitializes(t *testing.T) {
	r := New("agent-1", &fakeComponent{})

	out, err := r.Execute(context.Background(), core.AgentInput{Text: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "echo: hi", out.Text)
	assert.Equal(t, StateReady, r.State())
}

func TestRuntime_ExecuteRejectedInTerminalState(t *testing.T) {
	r := New("agent-1", &fakeComponent{})
	require.NoError(t, r.Teardown(context.Background()))
	assert.Equal(t, StateTerminated, r.State())

	_, err := r.Execute(context.Background(), core.AgentInput{Text: "hi"})
	assert.Error(t, err)
}

func TestRuntime_FailingComponentEntersErrorState(t *testing.T) {
	r := New("agent-1", &fakeComponent{execFn: func(_ context.Context, _ core.AgentInput) (core.AgentOutput, error) {
		return core.AgentOutput{}, errors.New("boom")
	}})

	_, err := r.Execute(context.Background(), core.AgentInput{Text: "hi"})
	assert.Error(t, err)
	assert.Equal(t, StateError, r.State())

	_, err = r.Execute(context.Background(), core.AgentInput{Text: "again"})
	assert.Error(t, err)
}

func TestRuntime_PauseSnapshotsStateWhenBound(t *testing.T) {
	snap := &fakeSnapshotter{}
	buf := NewConversationBuffer(10)
	r := New("agent-1", &fakeComponent{}, WithConversationBuffer(buf), WithStateManager(snap))

	_, err := r.Execute(context.Background(), core.AgentInput{Text: "hi"})
	require.NoError(t, err)
	require.NoError(t, r.fire(context.Background(), TransitionStart, "test"))

	require.NoError(t, r.Pause(context.Background()))
	assert.Equal(t, StatePaused, r.State())
	assert.NotEmpty(t, snap.snapshotted)
}

func TestRuntime_LoadStateReplacesBuffer(t *testing.T) {
	snap := &fakeSnapshotter{loaded: []core.Turn{{Role: core.RoleUser, Content: "restored"}}}
	buf := NewConversationBuffer(10)
	r := New("agent-1", &fakeComponent{}, WithConversationBuffer(buf), WithStateManager(snap))

	require.NoError(t, r.LoadState(context.Background()))
	turns := buf.Turns()
	require.Len(t, turns, 1)
	assert.Equal(t, "restored", turns[0].Content)
}

func TestRuntime_CircuitBreakerBlocksTransitionsWhenOpen(t *testing.T) {
	cfg := circuitbreaker.ForWorkload(circuitbreaker.Heavy)
	breaker := circuitbreaker.New("agent-1", cfg, nil, zap.NewNop())
	for i := 0; i < cfg.FailureThreshold; i++ {
		breaker.RecordFailure()
	}
	require.Equal(t, circuitbreaker.Open, breaker.State())

	r := New("agent-1", &fakeComponent{}, WithCircuitBreaker(breaker))
	err := r.Init(context.Background())
	assert.Error(t, err)
	assert.Equal(t, StateUninitialized, r.State())
}

func TestRuntime_EventBusPublishesStateChange(t *testing.T) {
	bus := event.NewBus(nil)
	var types []event.Type
	bus.Subscribe("agent.*", func(_ context.Context, ev event.Event) error {
		types = append(types, ev.Type)
		return nil
	})

	r := New("agent-1", &fakeComponent{}, WithEventBus(bus))
	require.NoError(t, r.Init(context.Background()))

	assert.Contains(t, types, event.TypeStateChange)
}

func TestRuntime_TeardownIsIdempotentOnTerminalState(t *testing.T) {
	r := New("agent-1", &fakeComponent{})
	require.NoError(t, r.Teardown(context.Background()))
	require.NoError(t, r.Teardown(context.Background()))
	assert.Equal(t, StateTerminated, r.State())
}
