package kernel

import (
	"context"
	"runtime"
	"sync"
	"time"
)

// Status is the aggregate health state reported by the monitor, usable
// directly as an HTTP status decision (Healthy → 200, Degraded → 200 with
// a warning body, Unhealthy → 503).
type Status string

const (
	Healthy   Status = "healthy"
	Degraded  Status = "degraded"
	Unhealthy Status = "unhealthy"
)

// Thresholds bounds the performance metrics the monitor checks against to
// decide Degraded vs Unhealthy.
type Thresholds struct {
	MaxGoroutines       int
	MaxHeapBytes        uint64
	MaxAvgExecMS        float64
	MaxActiveConnections int
}

// DefaultThresholds mirrors conservative single-process defaults.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MaxGoroutines:        10_000,
		MaxHeapBytes:         1 << 30, // 1 GiB
		MaxAvgExecMS:         5_000,
		MaxActiveConnections: 10_000,
	}
}

// SystemMetrics is a snapshot of host process metrics.
type SystemMetrics struct {
	Goroutines int    `json:"goroutines"`
	HeapBytes  uint64 `json:"heap_bytes"`
}

// ConnectionMetrics is a snapshot of router activity.
type ConnectionMetrics struct {
	ActiveConnections int `json:"active_connections"`
}

// PerformanceMetrics tracks rolling script-execution latency.
type PerformanceMetrics struct {
	AvgExecutionMS float64 `json:"avg_execution_ms"`
	SampleCount    int64   `json:"sample_count"`
}

// Report is the full health-check payload.
type Report struct {
	Status      Status             `json:"status"`
	System      SystemMetrics      `json:"system"`
	Connections ConnectionMetrics  `json:"connections"`
	Performance PerformanceMetrics `json:"performance"`
	Reasons     []string           `json:"reasons,omitempty"`
}

// Monitor computes Healthy/Degraded/Unhealthy from host, connection, and
// performance metrics against configured thresholds.
type Monitor struct {
	thresholds Thresholds
	router     *Router

	mu          sync.Mutex
	execSampleN int64
	execSumMS   float64
}

// NewMonitor builds a health monitor reading connection counts from router.
func NewMonitor(router *Router, thresholds Thresholds) *Monitor {
	return &Monitor{thresholds: thresholds, router: router}
}

// RecordExecution folds one script execution's duration into the rolling
// average the performance metrics report.
func (m *Monitor) RecordExecution(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.execSampleN++
	m.execSumMS += float64(d.Milliseconds())
}

func (m *Monitor) avgExecMS() (float64, int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.execSampleN == 0 {
		return 0, 0
	}
	return m.execSumMS / float64(m.execSampleN), m.execSampleN
}

// Check computes the current health report.
func (m *Monitor) Check(_ context.Context) Report {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	active := 0
	if m.router != nil {
		active = m.router.ActiveCount()
	}

	avgMS, n := m.avgExecMS()

	report := Report{
		System:      SystemMetrics{Goroutines: runtime.NumGoroutine(), HeapBytes: memStats.HeapAlloc},
		Connections: ConnectionMetrics{ActiveConnections: active},
		Performance: PerformanceMetrics{AvgExecutionMS: avgMS, SampleCount: n},
	}

	var reasons []string
	status := Healthy

	if report.System.Goroutines > m.thresholds.MaxGoroutines {
		status = Unhealthy
		reasons = append(reasons, "goroutine count exceeds threshold")
	} else if report.System.Goroutines > m.thresholds.MaxGoroutines/2 {
		status = worse(status, Degraded)
		reasons = append(reasons, "goroutine count elevated")
	}

	if report.System.HeapBytes > m.thresholds.MaxHeapBytes {
		status = Unhealthy
		reasons = append(reasons, "heap size exceeds threshold")
	}

	if report.Connections.ActiveConnections > m.thresholds.MaxActiveConnections {
		status = Unhealthy
		reasons = append(reasons, "active connection count exceeds threshold")
	}

	if report.Performance.AvgExecutionMS > m.thresholds.MaxAvgExecMS {
		status = worse(status, Degraded)
		reasons = append(reasons, "average script execution time elevated")
	}

	report.Status = status
	report.Reasons = reasons
	return report
}

// HTTPStatusCode maps a Status to the code the health endpoint returns.
func (s Status) HTTPStatusCode() int {
	switch s {
	case Healthy, Degraded:
		return 200
	default:
		return 503
	}
}

func worse(a, b Status) Status {
	rank := map[Status]int{Healthy: 0, Degraded: 1, Unhealthy: 2}
	if rank[b] > rank[a] {
		return b
	}
	return a
}
