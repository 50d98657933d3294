package workflow

import (
	"fmt"
	"sync"
	"time"

	"github.com/lucidkernel/runtime/core"
)

// Status is a workflow execution's lifecycle status.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// StepResult is one recorded step outcome in a workflow's history.
type StepResult struct {
	StepID     string
	StepName   string
	Success    bool
	Output     core.AgentOutput
	Err        string
	Duration   time.Duration
	RetryCount int
}

// Stats are execution statistics computed on demand from a State's
// history.
type Stats struct {
	TotalSteps        int
	SuccessfulSteps   int
	FailedSteps       int
	SuccessRate       float64
	AverageStepTime   time.Duration
	TotalRetries      int
	CurrentExecutionTime time.Duration
}

// State is the memory-backed state manager for one workflow execution:
// status, current step index, shared data, per-step outputs, and
// recorded step history.
type State struct {
	mu          sync.RWMutex
	workflowName string
	status      Status
	currentStep int
	shared      map[string]core.Value
	stepOutputs map[string]core.AgentOutput
	history     []StepResult
	startedAt   time.Time
	endedAt     time.Time
	err         error
}

// NewState builds an empty Pending State for workflowName.
func NewState(workflowName string) *State {
	return &State{
		workflowName: workflowName,
		status:       StatusPending,
		shared:       make(map[string]core.Value),
		stepOutputs:  make(map[string]core.AgentOutput),
	}
}

// Start transitions to Running and records the start time.
func (s *State) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = StatusRunning
	s.startedAt = time.Now()
}

// Complete transitions to Completed.
func (s *State) Complete() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = StatusCompleted
	s.endedAt = time.Now()
}

// Fail transitions to Failed, recording cause.
func (s *State) Fail(cause error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = StatusFailed
	s.err = cause
	s.endedAt = time.Now()
}

// Cancel transitions to Cancelled.
func (s *State) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = StatusCancelled
	s.endedAt = time.Now()
}

func (s *State) lastError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// Status returns the current execution status.
func (s *State) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// SetCurrentStep records the index of the step about to run.
func (s *State) SetCurrentStep(i int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentStep = i
}

// CurrentStep returns the index of the step currently executing (or the
// last one attempted).
func (s *State) CurrentStep() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentStep
}

// SetShared stores a value under key in the workflow's shared data.
func (s *State) SetShared(key string, value core.Value) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shared[key] = value
}

// GetShared reads a value from shared data.
func (s *State) GetShared(key string) (core.Value, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.shared[key]
	return v, ok
}

// SetStepOutput records a step's output keyed by step ID.
func (s *State) SetStepOutput(stepID string, output core.AgentOutput) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stepOutputs[stepID] = output
}

// StepOutput returns a previously recorded step output.
func (s *State) StepOutput(stepID string) (core.AgentOutput, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out, ok := s.stepOutputs[stepID]
	return out, ok
}

// History returns a copy of the recorded step results, in execution
// order.
func (s *State) History() []StepResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]StepResult, len(s.history))
	copy(out, s.history)
	return out
}

// recordStep appends a StepResult to history, taking the step's already-
// measured duration and retry count from the caller.
func (s *State) recordStep(step Step, success bool, output core.AgentOutput, err error, duration time.Duration, retryCount int) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := StepResult{
		StepID:     step.ID,
		StepName:   step.Name,
		Success:    success,
		Output:     output,
		Duration:   duration,
		RetryCount: retryCount,
	}
	if err != nil {
		result.Err = err.Error()
	}
	s.history = append(s.history, result)
	return result.Duration
}

// Stats computes execution statistics on demand from the recorded
// history.
func (s *State) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := Stats{TotalSteps: len(s.history)}
	var totalDuration time.Duration
	for _, r := range s.history {
		if r.Success {
			stats.SuccessfulSteps++
		} else {
			stats.FailedSteps++
		}
		stats.TotalRetries += r.RetryCount
		totalDuration += r.Duration
	}
	if stats.TotalSteps > 0 {
		stats.SuccessRate = float64(stats.SuccessfulSteps) / float64(stats.TotalSteps)
		stats.AverageStepTime = totalDuration / time.Duration(stats.TotalSteps)
	}

	end := s.endedAt
	if end.IsZero() {
		end = time.Now()
	}
	if !s.startedAt.IsZero() {
		stats.CurrentExecutionTime = end.Sub(s.startedAt)
	}
	return stats
}

// String renders a short human-readable summary, mirroring the teacher's
// fmt.Stringer convention on status-bearing types.
func (s *State) String() string {
	return fmt.Sprintf("workflow %q: %s (step %d, %d history entries)",
		s.workflowName, s.Status(), s.CurrentStep(), len(s.History()))
}
