// Package perf tracks hook and component execution latency, flags
// threshold violations, and recommends throttling when overhead trends
// upward. Grounded on original_source/llmspell-kernel/src/hooks/
// performance.rs's KernelPerformanceMonitor, adapted to Go idioms
// (sync.RWMutex in place of parking_lot, zap in place of tracing).
package perf

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Metrics is a snapshot of accumulated execution performance.
type Metrics struct {
	TotalExecutions        uint64
	TotalExecutionTime     time.Duration
	AverageExecutionTime   time.Duration
	MaxExecutionTime       time.Duration
	MinExecutionTime       time.Duration
	ThresholdViolations    uint64
	ExecutionsByPoint      map[string]uint64
	AvgTimeByPoint         map[string]time.Duration
	OverheadPercentage     float64
	CircuitBreakerActivations uint64
	DisabledHooks          []string
}

// IsWithinLimits reports whether overhead and average latency are within
// the standing 5% / 50ms budget.
func (m Metrics) IsWithinLimits() bool {
	return m.OverheadPercentage < 5.0 && m.AverageExecutionTime < 50*time.Millisecond
}

// SlowestPoints returns up to limit (point, avg duration) pairs, slowest
// first.
func (m Metrics) SlowestPoints(limit int) []PointDuration {
	points := make([]PointDuration, 0, len(m.AvgTimeByPoint))
	for point, d := range m.AvgTimeByPoint {
		points = append(points, PointDuration{Point: point, Duration: d})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Duration > points[j].Duration })
	if limit < len(points) {
		points = points[:limit]
	}
	return points
}

// ViolationRate returns the percentage of executions that exceeded the
// monitor's threshold.
func (m Metrics) ViolationRate() float64 {
	if m.TotalExecutions == 0 {
		return 0
	}
	return float64(m.ThresholdViolations) / float64(m.TotalExecutions) * 100
}

// PointDuration pairs a hook/component point name with a duration.
type PointDuration struct {
	Point    string
	Duration time.Duration
}

const sampleCount = 100

// Monitor accumulates execution performance across a rolling sample
// window and a lifetime-total metrics snapshot.
type Monitor struct {
	mu               sync.RWMutex
	metrics          Metrics
	threshold        time.Duration
	overheadBaseline time.Duration
	hasBaseline      bool
	executionTimes   []time.Duration
	logger           *zap.Logger
}

// New builds a Monitor with the standing 50ms violation threshold.
func New(logger *zap.Logger) *Monitor {
	return WithThreshold(50*time.Millisecond, logger)
}

// WithThreshold builds a Monitor with a custom violation threshold.
func WithThreshold(threshold time.Duration, logger *zap.Logger) *Monitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Monitor{
		threshold: threshold,
		metrics: Metrics{
			MinExecutionTime:  time.Duration(1<<63 - 1),
			ExecutionsByPoint: make(map[string]uint64),
			AvgTimeByPoint:    make(map[string]time.Duration),
		},
		logger: logger,
	}
}

// SetBaseline sets the reference execution time used to compute overhead
// percentage.
func (m *Monitor) SetBaseline(baseline time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.overheadBaseline = baseline
	m.hasBaseline = true
}

// Record records one execution's duration against point (a hook point or
// component name).
func (m *Monitor) Record(point string, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.executionTimes = append(m.executionTimes, duration)
	if len(m.executionTimes) > sampleCount {
		m.executionTimes = m.executionTimes[1:]
	}

	m.metrics.TotalExecutions++
	m.metrics.TotalExecutionTime += duration
	m.metrics.AverageExecutionTime = m.metrics.TotalExecutionTime / time.Duration(m.metrics.TotalExecutions)

	if duration > m.metrics.MaxExecutionTime {
		m.metrics.MaxExecutionTime = duration
	}
	if duration < m.metrics.MinExecutionTime {
		m.metrics.MinExecutionTime = duration
	}

	if duration > m.threshold {
		m.metrics.ThresholdViolations++
		m.logger.Warn("execution threshold violation",
			zap.String("point", point),
			zap.Duration("duration", duration),
			zap.Duration("threshold", m.threshold))
	}

	m.metrics.ExecutionsByPoint[point]++
	count := m.metrics.ExecutionsByPoint[point]
	priorTotal := m.metrics.AvgTimeByPoint[point] * time.Duration(count-1)
	m.metrics.AvgTimeByPoint[point] = (priorTotal + duration) / time.Duration(count)

	if m.hasBaseline {
		overhead := duration - m.overheadBaseline
		if overhead < 0 {
			overhead = 0
		}
		m.metrics.OverheadPercentage = float64(overhead) / float64(m.overheadBaseline) * 100
		if m.metrics.OverheadPercentage > 5.0 {
			m.logger.Warn("hook system overhead exceeds 5% threshold",
				zap.Float64("overhead_pct", m.metrics.OverheadPercentage))
		}
	}
}

// Metrics returns a copy of the current accumulated metrics.
func (m *Monitor) Metrics() Metrics {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := m.metrics
	out.ExecutionsByPoint = make(map[string]uint64, len(m.metrics.ExecutionsByPoint))
	for k, v := range m.metrics.ExecutionsByPoint {
		out.ExecutionsByPoint[k] = v
	}
	out.AvgTimeByPoint = make(map[string]time.Duration, len(m.metrics.AvgTimeByPoint))
	for k, v := range m.metrics.AvgTimeByPoint {
		out.AvgTimeByPoint[k] = v
	}
	return out
}

// Reset clears all accumulated metrics and samples.
func (m *Monitor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.metrics = Metrics{
		MinExecutionTime:  time.Duration(1<<63 - 1),
		ExecutionsByPoint: make(map[string]uint64),
		AvgTimeByPoint:    make(map[string]time.Duration),
	}
	m.executionTimes = nil
}

// ShouldThrottle reports whether overhead or average latency has crossed
// the hard throttling line (10% / 100ms), distinct from the softer
// violation threshold.
func (m *Monitor) ShouldThrottle() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.metrics.OverheadPercentage > 10.0 || m.metrics.AverageExecutionTime > 100*time.Millisecond
}

// RollingAverage returns the average duration over the last sampleCount
// recorded executions.
func (m *Monitor) RollingAverage() time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.executionTimes) == 0 {
		return 0
	}
	var total time.Duration
	for _, d := range m.executionTimes {
		total += d
	}
	return total / time.Duration(len(m.executionTimes))
}

// Trend returns the percentage change between the most recent 10 samples
// and the oldest 10 in the current window; positive means degrading.
func (m *Monitor) Trend() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.executionTimes) < 10 {
		return 0
	}
	recent := m.executionTimes[len(m.executionTimes)-10:]
	older := m.executionTimes[:10]

	var recentSum, olderSum time.Duration
	for _, d := range recent {
		recentSum += d
	}
	for _, d := range older {
		olderSum += d
	}
	recentAvg := recentSum / 10
	olderAvg := olderSum / 10
	if olderAvg == 0 {
		return 0
	}
	return (float64(recentAvg) - float64(olderAvg)) / float64(olderAvg) * 100
}

// Severity classifies a performance report.
type Severity int

const (
	SeverityOK Severity = iota
	SeverityWarning
	SeverityCritical
)

func (s Severity) String() string {
	switch s {
	case SeverityOK:
		return "ok"
	case SeverityWarning:
		return "warning"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// Report is a point-in-time performance assessment with recommendations.
type Report struct {
	Metrics         Metrics
	RollingAverage  time.Duration
	Trend           float64
	Recommendations []string
	GeneratedAt     time.Time
}

// IsHealthy reports whether the report shows no concerning signal.
func (r Report) IsHealthy() bool {
	return r.Metrics.IsWithinLimits() && r.Trend < 20.0 && r.Metrics.ViolationRate() < 10.0
}

// Severity classifies the report per the same bounds used by
// generate_recommendations in the original monitor.
func (r Report) Severity() Severity {
	switch {
	case r.IsHealthy():
		return SeverityOK
	case r.Metrics.OverheadPercentage > 10.0 || r.Metrics.ViolationRate() > 25.0:
		return SeverityCritical
	default:
		return SeverityWarning
	}
}

// GenerateReport snapshots current metrics, trend, and rolling average
// into a Report with human-readable recommendations.
func (m *Monitor) GenerateReport() Report {
	metrics := m.Metrics()
	trend := m.Trend()
	rolling := m.RollingAverage()

	return Report{
		Metrics:         metrics,
		RollingAverage:  rolling,
		Trend:           trend,
		Recommendations: recommendations(metrics, trend),
		GeneratedAt:     time.Now(),
	}
}

func recommendations(m Metrics, trend float64) []string {
	var recs []string

	if m.OverheadPercentage > 5.0 {
		recs = append(recs, fmt.Sprintf(
			"overhead (%.2f%%) exceeds 5%% threshold; consider reducing hook complexity", m.OverheadPercentage))
	}
	if m.ViolationRate() > 10.0 {
		recs = append(recs, fmt.Sprintf(
			"threshold violations (%.1f%%) are high; consider optimizing slow hooks", m.ViolationRate()))
	}
	if trend > 20.0 {
		recs = append(recs, fmt.Sprintf("performance is degrading (%.1f%% slower); investigate recent changes", trend))
	}
	if m.AverageExecutionTime > 25*time.Millisecond {
		recs = append(recs, "average execution time is high; consider optimization")
	}
	if slowest := m.SlowestPoints(3); len(slowest) > 0 {
		parts := make([]string, len(slowest))
		for i, p := range slowest {
			parts[i] = fmt.Sprintf("%s (%v)", p.Point, p.Duration)
		}
		recs = append(recs, "slowest points: "+joinStrings(parts, ", "))
	}
	if len(recs) == 0 {
		recs = append(recs, "performance is within acceptable limits")
	}
	return recs
}

func joinStrings(parts []string, sep string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += sep
		}
		out += p
	}
	return out
}

// Timer measures a single execution's elapsed duration.
type Timer struct {
	start time.Time
	name  string
	point string
}

// StartTimer begins timing an execution of name at point.
func StartTimer(name, point string) Timer {
	return Timer{start: time.Now(), name: name, point: point}
}

// Finish stops the timer and returns the elapsed duration.
func (t Timer) Finish() time.Duration { return time.Since(t.start) }

// Elapsed returns the time elapsed so far without stopping the timer.
func (t Timer) Elapsed() time.Duration { return time.Since(t.start) }
