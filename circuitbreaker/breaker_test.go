package circuitbreaker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestForWorkload_DefaultThresholds(t *testing.T) {
	tests := []struct {
		name          string
		class         WorkloadClass
		closedRate    float64
		adaptiveRate  float64
		failThreshold int
	}{
		{"Micro", Micro, 0.8, 0.9, 10},
		{"Light", Light, 0.6, 0.8, 7},
		{"Medium", Medium, 0.4, 0.7, 5},
		{"Heavy", Heavy, 0.2, 0.5, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := ForWorkload(tt.class)
			assert.Equal(t, tt.closedRate, cfg.ClosedErrorRate)
			assert.Equal(t, tt.adaptiveRate, cfg.AdaptiveErrorRate)
			assert.Equal(t, tt.failThreshold, cfg.FailureThreshold)
		})
	}
}

func TestBreaker_TripsOpenOnConsecutiveFailures(t *testing.T) {
	cfg := ForWorkload(Heavy) // FailureThreshold 3
	b := New("node-1", cfg, nil, zap.NewNop())

	for i := 0; i < 2; i++ {
		b.RecordFailure()
	}
	assert.Equal(t, Closed, b.State())

	b.RecordFailure()
	assert.Equal(t, Open, b.State())
}

func TestBreaker_AllowRejectsWhileOpen(t *testing.T) {
	cfg := ForWorkload(Heavy)
	cfg.RecoveryTimeout = time.Hour
	cfg.AdaptiveBackoff = false
	b := New("node-1", cfg, nil, zap.NewNop())
	for i := 0; i < cfg.FailureThreshold; i++ {
		b.RecordFailure()
	}
	require.Equal(t, Open, b.State())

	allowed, err := b.Allow()
	assert.False(t, allowed)
	assert.Error(t, err)
}

func TestBreaker_TransitionsToHalfOpenAfterTimeout(t *testing.T) {
	cfg := ForWorkload(Heavy)
	cfg.RecoveryTimeout = 10 * time.Millisecond
	cfg.AdaptiveBackoff = false
	b := New("node-1", cfg, nil, zap.NewNop())
	for i := 0; i < cfg.FailureThreshold; i++ {
		b.RecordFailure()
	}
	require.Equal(t, Open, b.State())

	time.Sleep(20 * time.Millisecond)
	allowed, err := b.Allow()
	assert.True(t, allowed)
	assert.NoError(t, err)
	assert.Equal(t, HalfOpen, b.State())
}

func TestBreaker_ClosesAfterHalfOpenSuccesses(t *testing.T) {
	cfg := ForWorkload(Heavy)
	cfg.RecoveryTimeout = time.Millisecond
	cfg.HalfOpenSuccesses = 2
	cfg.AdaptiveBackoff = false
	b := New("node-1", cfg, nil, zap.NewNop())
	for i := 0; i < cfg.FailureThreshold; i++ {
		b.RecordFailure()
	}
	time.Sleep(2 * time.Millisecond)
	_, _ = b.Allow()
	require.Equal(t, HalfOpen, b.State())

	b.RecordSuccess()
	assert.Equal(t, HalfOpen, b.State())
	b.RecordSuccess()
	assert.Equal(t, Closed, b.State())
}

func TestBreaker_FailureInHalfOpenReopens(t *testing.T) {
	cfg := ForWorkload(Heavy)
	cfg.RecoveryTimeout = time.Millisecond
	cfg.AdaptiveBackoff = false
	b := New("node-1", cfg, nil, zap.NewNop())
	for i := 0; i < cfg.FailureThreshold; i++ {
		b.RecordFailure()
	}
	time.Sleep(2 * time.Millisecond)
	_, _ = b.Allow()
	require.Equal(t, HalfOpen, b.State())

	b.RecordFailure()
	assert.Equal(t, Open, b.State())
}

func TestBreaker_Reset(t *testing.T) {
	cfg := ForWorkload(Heavy)
	b := New("node-1", cfg, nil, zap.NewNop())
	for i := 0; i < cfg.FailureThreshold; i++ {
		b.RecordFailure()
	}
	require.Equal(t, Open, b.State())

	b.Reset()
	assert.Equal(t, Closed, b.State())
}

func TestRegistry_GetOrCreateReusesBreaker(t *testing.T) {
	r := NewRegistry(DefaultConfig(), nil, zap.NewNop())
	a := r.GetOrCreate("node-a")
	b := r.GetOrCreate("node-a")
	assert.Same(t, a, b)

	c := r.GetOrCreate("node-b")
	assert.NotSame(t, a, c)
}

func TestRegistry_StatesAndResetAll(t *testing.T) {
	r := NewRegistry(ForWorkload(Heavy), nil, zap.NewNop())
	b := r.GetOrCreate("node-a")
	for i := 0; i < 3; i++ {
		b.RecordFailure()
	}
	require.Equal(t, Open, b.State())

	states := r.States()
	assert.Equal(t, Open, states["node-a"])

	r.ResetAll()
	assert.Equal(t, Closed, b.State())
}
