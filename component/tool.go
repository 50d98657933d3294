package component

import (
	"context"
	"time"

	"github.com/lucidkernel/runtime/core"
	"golang.org/x/time/rate"
)

// Tool specializes Component with the schema/category/security metadata the
// script bridge's Tool.list()/Tool.get() facade needs, and the resource
// limits the kernel enforces around every invocation.
type Tool interface {
	Component

	// InputSchema describes the parameters Execute accepts.
	InputSchema() *ParameterSchema

	// Category groups the tool for discovery filtering (e.g. "util",
	// "network", "filesystem").
	Category() string
}

// ToolInput is the parameter envelope scripts pass to Tool.get(name):execute(...).
type ToolInput struct {
	Parameters map[string]any
}

// Runner enforces a tool's declared resource limits around a single
// invocation: execution-time deadline and a requests/sec rate limit,
// mirroring the teacher's per-tool resource-limit fields generalized into
// an enforcement point (ResourceLimits lived on the metadata only; nothing
// in the teacher enforced them at call time).
type Runner struct {
	limiters map[string]*rate.Limiter
}

// NewRunner builds an empty tool runner; limiters are created lazily per
// tool on first Run.
func NewRunner() *Runner {
	return &Runner{limiters: make(map[string]*rate.Limiter)}
}

// Run executes t.Execute under t's declared resource limits.
func (r *Runner) Run(ctx context.Context, t Tool, input core.AgentInput) (core.AgentOutput, error) {
	limits := t.Metadata().Limits

	if limits.MaxRequestsPerSec > 0 {
		limiter := r.limiterFor(t.Metadata().Id.String(), limits.MaxRequestsPerSec)
		if err := limiter.Wait(ctx); err != nil {
			return core.AgentOutput{}, core.NewError(core.ErrKindRateLimited, "tool: rate limit wait cancelled").WithCause(err)
		}
	}

	runCtx := ctx
	var cancel context.CancelFunc
	if limits.MaxExecutionTime > 0 {
		runCtx, cancel = context.WithTimeout(ctx, time.Duration(limits.MaxExecutionTime)*time.Millisecond)
		defer cancel()
	}

	if err := t.ValidateInput(runCtx, input); err != nil {
		return core.AgentOutput{}, t.HandleError(runCtx, err)
	}

	out, err := t.Execute(runCtx, input)
	if err != nil {
		return core.AgentOutput{}, t.HandleError(runCtx, err)
	}
	return out, nil
}

func (r *Runner) limiterFor(id string, rps float64) *rate.Limiter {
	if l, ok := r.limiters[id]; ok {
		return l
	}
	l := rate.NewLimiter(rate.Limit(rps), 1)
	r.limiters[id] = l
	return l
}

// Registry discovers tools by name and filters by category/security level,
// grounded on the tool-discovery facade described in SPEC_FULL.md §4.1.
type Registry struct {
	tools map[string]Tool
}

// NewRegistry builds an empty tool registry.
func NewRegistry() *Registry { return &Registry{tools: make(map[string]Tool)} }

// Register adds a tool, keyed by its metadata name.
func (r *Registry) Register(t Tool) {
	r.tools[t.Metadata().Name] = t
}

// Get looks up a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// List returns tools matching an optional category and maximum security
// level (empty category matches all).
func (r *Registry) List(category string, maxLevel core.SecurityLevel) []Tool {
	var out []Tool
	for _, t := range r.tools {
		if category != "" && t.Category() != category {
			continue
		}
		if !securityAllowed(t.Metadata().SecurityLevel, maxLevel) {
			continue
		}
		out = append(out, t)
	}
	return out
}

func securityAllowed(level, max core.SecurityLevel) bool {
	rank := map[core.SecurityLevel]int{
		core.SecuritySafe:       0,
		core.SecurityRestricted: 1,
		core.SecurityPrivileged: 2,
	}
	if max == "" {
		return true
	}
	return rank[level] <= rank[max]
}
