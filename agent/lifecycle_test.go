package agent

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLifecycleManager_StartInitializesAgent(t *testing.T) {
	r := New("agent-1", &fakeComponent{})
	lm := NewLifecycleManager(r, zap.NewNop())

	require.NoError(t, lm.Start(context.Background()))
	assert.True(t, lm.IsRunning())
	assert.Equal(t, StateReady, r.State())

	require.NoError(t, lm.Stop(context.Background()))
	assert.False(t, lm.IsRunning())
	assert.Equal(t, StateTerminated, r.State())
}

func TestLifecycleManager_StartTwiceErrors(t *testing.T) {
	r := New("agent-1", &fakeComponent{})
	lm := NewLifecycleManager(r, zap.NewNop())

	require.NoError(t, lm.Start(context.Background()))
	defer lm.Stop(context.Background())

	err := lm.Start(context.Background())
	assert.Error(t, err)
}

func TestLifecycleManager_StopWithoutStartErrors(t *testing.T) {
	r := New("agent-1", &fakeComponent{})
	lm := NewLifecycleManager(r, zap.NewNop())

	err := lm.Stop(context.Background())
	assert.Error(t, err)
}

func TestLifecycleManager_HealthStatusReflectsAgentState(t *testing.T) {
	r := New("agent-1", &fakeComponent{})
	lm := NewLifecycleManager(r, zap.NewNop())

	require.NoError(t, lm.Start(context.Background()))
	defer lm.Stop(context.Background())

	// performHealthCheck runs once synchronously inside the health check
	// loop's startup; give the goroutine a moment to run it.
	assert.Eventually(t, func() bool {
		return lm.GetHealthStatus().Healthy
	}, time.Second, 10*time.Millisecond)
}
