package kernel

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMonitor_HealthyByDefault(t *testing.T) {
	m := NewMonitor(nil, DefaultThresholds())
	report := m.Check(context.Background())
	assert.Equal(t, Healthy, report.Status)
	assert.Equal(t, 200, report.Status.HTTPStatusCode())
}

func TestMonitor_DegradedOnSlowExecutions(t *testing.T) {
	m := NewMonitor(nil, Thresholds{MaxGoroutines: 10_000, MaxHeapBytes: 1 << 34, MaxAvgExecMS: 10, MaxActiveConnections: 10_000})
	m.RecordExecution(500 * time.Millisecond)

	report := m.Check(context.Background())
	assert.Equal(t, Degraded, report.Status)
	assert.NotEmpty(t, report.Reasons)
}

func TestMonitor_UnhealthyOnConnectionOverload(t *testing.T) {
	router := NewRouter(nil)
	m := NewMonitor(router, Thresholds{MaxGoroutines: 10_000, MaxHeapBytes: 1 << 34, MaxAvgExecMS: 10_000, MaxActiveConnections: -1})

	report := m.Check(context.Background())
	assert.Equal(t, Unhealthy, report.Status)
	assert.Equal(t, 503, report.Status.HTTPStatusCode())
}
