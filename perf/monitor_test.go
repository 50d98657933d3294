package perf

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestMonitor_RecordAccumulatesMetrics(t *testing.T) {
	m := New(zap.NewNop())
	m.Record("hook.before", 10*time.Millisecond)
	m.Record("hook.before", 20*time.Millisecond)
	m.Record("hook.after", 5*time.Millisecond)

	metrics := m.Metrics()
	assert.Equal(t, uint64(3), metrics.TotalExecutions)
	assert.Equal(t, 35*time.Millisecond, metrics.TotalExecutionTime)
	assert.Equal(t, 20*time.Millisecond, metrics.MaxExecutionTime)
	assert.Equal(t, 5*time.Millisecond, metrics.MinExecutionTime)
	assert.Equal(t, uint64(2), metrics.ExecutionsByPoint["hook.before"])
	assert.Equal(t, 15*time.Millisecond, metrics.AvgTimeByPoint["hook.before"])
}

func TestMonitor_ThresholdViolationsCounted(t *testing.T) {
	m := WithThreshold(10*time.Millisecond, zap.NewNop())
	m.Record("slow", 50*time.Millisecond)
	m.Record("fast", 1*time.Millisecond)

	metrics := m.Metrics()
	assert.Equal(t, uint64(1), metrics.ThresholdViolations)
	assert.Equal(t, float64(50), metrics.ViolationRate())
}

func TestMonitor_OverheadPercentageAgainstBaseline(t *testing.T) {
	m := New(zap.NewNop())
	m.SetBaseline(10 * time.Millisecond)
	m.Record("op", 15*time.Millisecond)

	metrics := m.Metrics()
	assert.InDelta(t, 50.0, metrics.OverheadPercentage, 0.01)
}

func TestMonitor_ShouldThrottleOnHighOverheadOrLatency(t *testing.T) {
	m := New(zap.NewNop())
	assert.False(t, m.ShouldThrottle())

	m.Record("slow", 150*time.Millisecond)
	assert.True(t, m.ShouldThrottle())
}

func TestMonitor_TrendDetectsDegradation(t *testing.T) {
	m := New(zap.NewNop())
	for i := 0; i < 10; i++ {
		m.Record("op", 5*time.Millisecond)
	}
	for i := 0; i < 10; i++ {
		m.Record("op", 20*time.Millisecond)
	}
	assert.Greater(t, m.Trend(), 0.0)
}

func TestMonitor_SlowestPointsOrderedDescending(t *testing.T) {
	m := New(zap.NewNop())
	m.Record("a", 5*time.Millisecond)
	m.Record("b", 50*time.Millisecond)
	m.Record("c", 20*time.Millisecond)

	slowest := m.Metrics().SlowestPoints(2)
	assert.Len(t, slowest, 2)
	assert.Equal(t, "b", slowest[0].Point)
	assert.Equal(t, "c", slowest[1].Point)
}

func TestMonitor_ResetClearsAccumulatedState(t *testing.T) {
	m := New(zap.NewNop())
	m.Record("op", 5*time.Millisecond)
	m.Reset()

	metrics := m.Metrics()
	assert.Equal(t, uint64(0), metrics.TotalExecutions)
	assert.Equal(t, time.Duration(0), metrics.TotalExecutionTime)
}

func TestReport_SeverityEscalatesWithOverhead(t *testing.T) {
	m := New(zap.NewNop())
	m.SetBaseline(1 * time.Millisecond)
	for i := 0; i < 5; i++ {
		m.Record("op", 20*time.Millisecond)
	}

	report := m.GenerateReport()
	assert.False(t, report.IsHealthy())
	assert.NotEqual(t, SeverityOK, report.Severity())
	assert.NotEmpty(t, report.Recommendations)
}

func TestReport_HealthyWithNoActivity(t *testing.T) {
	m := New(zap.NewNop())
	report := m.GenerateReport()
	assert.True(t, report.IsHealthy())
	assert.Equal(t, SeverityOK, report.Severity())
}

func TestTimer_FinishMeasuresElapsed(t *testing.T) {
	timer := StartTimer("op", "hook.before")
	time.Sleep(5 * time.Millisecond)
	elapsed := timer.Finish()
	assert.GreaterOrEqual(t, elapsed, 5*time.Millisecond)
}
