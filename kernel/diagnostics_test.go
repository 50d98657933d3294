package kernel

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiagnostics_LogRespectsLevel(t *testing.T) {
	d := NewDiagnostics(10)
	d.SetLevel(LevelWarn)

	d.Log(context.Background(), LevelDebug, "agent", "debug message")
	d.Log(context.Background(), LevelError, "agent", "error message")

	entries := d.CapturedEntries(0)
	require.Len(t, entries, 1)
	assert.Equal(t, "error message", entries[0].Message)
}

func TestDiagnostics_ModuleFilterOverridesDefault(t *testing.T) {
	d := NewDiagnostics(10)
	d.SetLevel(LevelTrace)
	d.AddModuleFilter("workflow", false)

	d.Log(context.Background(), LevelInfo, "workflow.step", "should be filtered")
	d.Log(context.Background(), LevelInfo, "agent", "should pass")

	entries := d.CapturedEntries(0)
	require.Len(t, entries, 1)
	assert.Equal(t, "should pass", entries[0].Message)
}

func TestDiagnostics_CaptureRingBounded(t *testing.T) {
	d := NewDiagnostics(2)
	d.SetLevel(LevelTrace)
	d.Log(context.Background(), LevelInfo, "m", "one")
	d.Log(context.Background(), LevelInfo, "m", "two")
	d.Log(context.Background(), LevelInfo, "m", "three")

	entries := d.CapturedEntries(0)
	require.Len(t, entries, 2)
	assert.Equal(t, "two", entries[0].Message)
	assert.Equal(t, "three", entries[1].Message)
}

func TestDiagnostics_Timer(t *testing.T) {
	d := NewDiagnostics(0)
	id := d.StartTimer("op")
	time.Sleep(5 * time.Millisecond)
	lap, ok := d.LapTimer(id)
	require.True(t, ok)
	assert.Greater(t, lap.Milliseconds(), int64(0))

	elapsed, ok := d.StopTimer(id)
	require.True(t, ok)
	assert.GreaterOrEqual(t, elapsed, lap)

	_, ok = d.StopTimer(id)
	assert.False(t, ok)
}

func TestDiagnostics_DisabledSkipsCapture(t *testing.T) {
	d := NewDiagnostics(10)
	d.SetEnabled(false)
	d.Log(context.Background(), LevelError, "m", "should not capture")
	assert.Empty(t, d.CapturedEntries(0))
}
