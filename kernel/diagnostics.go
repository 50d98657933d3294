package kernel

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// LogLevel orders the diagnostics bridge's verbosity, from noisiest to
// quietest.
type LogLevel int

const (
	LevelTrace LogLevel = iota
	LevelDebug
	LevelInfo
	LevelWarn
	LevelError
	LevelOff
)

func (l LogLevel) String() string {
	switch l {
	case LevelTrace:
		return "trace"
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "off"
	}
}

// LogEntry is one captured diagnostics record.
type LogEntry struct {
	Level     LogLevel
	Module    string
	Message   string
	Timestamp time.Time
}

// moduleFilter is a single enable/disable rule keyed by module name prefix.
type moduleFilter struct {
	pattern string
	enabled bool
}

// timerState tracks one in-flight named timer.
type timerState struct {
	start time.Time
	laps  []time.Duration
}

// Diagnostics is the kernel's logging/timing/capture facility, exposed to
// scripts for ad hoc instrumentation and to the health/metrics surface for
// operator visibility. When a trace.Tracer is configured, log/timer events
// are also recorded as span events against the current OpenTelemetry span.
type Diagnostics struct {
	mu sync.Mutex

	level   LogLevel
	enabled bool
	filters []moduleFilter

	captured   []LogEntry
	captureCap int

	timers map[string]*timerState

	tracer trace.Tracer
}

// NewDiagnostics builds a diagnostics bridge at LevelInfo with capture ring
// size captureCap (0 disables capture retention).
func NewDiagnostics(captureCap int) *Diagnostics {
	return &Diagnostics{
		level:      LevelInfo,
		enabled:    true,
		captureCap: captureCap,
		timers:     make(map[string]*timerState),
	}
}

// WithTracer attaches an OpenTelemetry tracer so Log/Timer events are also
// recorded as span events on the caller's active span, when one exists.
func (d *Diagnostics) WithTracer(tracer trace.Tracer) *Diagnostics {
	d.mu.Lock()
	d.tracer = tracer
	d.mu.Unlock()
	return d
}

// SetLevel updates the minimum level that passes the filter.
func (d *Diagnostics) SetLevel(level LogLevel) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.level = level
}

// Level returns the current minimum log level.
func (d *Diagnostics) Level() LogLevel {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.level
}

// SetEnabled turns diagnostics capture on or off wholesale.
func (d *Diagnostics) SetEnabled(enabled bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.enabled = enabled
}

// AddModuleFilter enables or disables logging for modules matching pattern
// (a simple prefix match), overriding the default enabled state.
func (d *Diagnostics) AddModuleFilter(pattern string, enabled bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, f := range d.filters {
		if f.pattern == pattern {
			d.filters[i].enabled = enabled
			return
		}
	}
	d.filters = append(d.filters, moduleFilter{pattern: pattern, enabled: enabled})
}

// ClearModuleFilters removes every module filter rule.
func (d *Diagnostics) ClearModuleFilters() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.filters = nil
}

func (d *Diagnostics) moduleAllowed(module string) bool {
	allowed := true
	for _, f := range d.filters {
		if strings.HasPrefix(module, f.pattern) {
			allowed = f.enabled
		}
	}
	return allowed
}

// Log records a diagnostics entry at level for module, subject to the
// configured minimum level, enabled flag, and module filters.
func (d *Diagnostics) Log(ctx context.Context, level LogLevel, module, message string) {
	d.mu.Lock()
	if !d.enabled || level < d.level || !d.moduleAllowed(module) {
		d.mu.Unlock()
		return
	}
	entry := LogEntry{Level: level, Module: module, Message: message, Timestamp: time.Now()}
	if d.captureCap > 0 {
		d.captured = append(d.captured, entry)
		if len(d.captured) > d.captureCap {
			d.captured = d.captured[len(d.captured)-d.captureCap:]
		}
	}
	tracer := d.tracer
	d.mu.Unlock()

	if tracer != nil {
		if span := trace.SpanFromContext(ctx); span.IsRecording() {
			span.AddEvent(message, trace.WithAttributes(
				attribute.String("level", level.String()),
				attribute.String("module", module),
			))
		}
	}
}

// CapturedEntries returns up to limit of the most recent captured entries
// (0 means all retained).
func (d *Diagnostics) CapturedEntries(limit int) []LogEntry {
	d.mu.Lock()
	defer d.mu.Unlock()
	if limit <= 0 || limit > len(d.captured) {
		limit = len(d.captured)
	}
	start := len(d.captured) - limit
	out := make([]LogEntry, limit)
	copy(out, d.captured[start:])
	return out
}

// ClearCaptured empties the capture ring.
func (d *Diagnostics) ClearCaptured() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.captured = nil
}

// StartTimer begins a named timer, returning an id for StopTimer/LapTimer.
// Starting a timer under a name already in flight replaces it.
func (d *Diagnostics) StartTimer(name string) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.timers[name] = &timerState{start: time.Now()}
	return name
}

// LapTimer records an intermediate split for an in-flight timer.
func (d *Diagnostics) LapTimer(id string) (time.Duration, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	t, ok := d.timers[id]
	if !ok {
		return 0, false
	}
	elapsed := time.Since(t.start)
	t.laps = append(t.laps, elapsed)
	return elapsed, true
}

// StopTimer ends a timer and returns its total elapsed duration.
func (d *Diagnostics) StopTimer(id string) (time.Duration, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	t, ok := d.timers[id]
	if !ok {
		return 0, false
	}
	delete(d.timers, id)
	return time.Since(t.start), true
}

// ElapsedTimer reports the current elapsed duration of an in-flight timer
// without stopping it.
func (d *Diagnostics) ElapsedTimer(id string) (time.Duration, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	t, ok := d.timers[id]
	if !ok {
		return 0, false
	}
	return time.Since(t.start), true
}

// DumpValue renders a value for diagnostics output, optionally labeled.
func DumpValue(value any, label string) string {
	if label == "" {
		return fmt.Sprintf("%#v", value)
	}
	return fmt.Sprintf("%s: %#v", label, value)
}
