package hook

import (
	"time"

	"github.com/lucidkernel/runtime/core"
)

// Point names a place in a component's lifecycle a hook can attach to.
type Point string

const (
	PointBeforeExecute Point = "before_execute"
	PointAfterExecute  Point = "after_execute"
	PointOnError       Point = "on_error"
	PointOnStateChange Point = "on_state_change"
)

// Context is the mutable request/response bundle a Hook.Execute observes
// and may annotate. It is cloned (shallow, via Clone) for parallel
// dispatch so concurrently-running hooks don't race on the same map.
type Context struct {
	Point     Point
	Exec      *core.ExecutionContext
	Input     core.AgentInput
	Output    core.AgentOutput
	Err       error
	Metadata  map[string]core.Value
	Timestamp time.Time
}

// NewContext builds a Context for a hook point firing during a component
// invocation.
func NewContext(point Point, exec *core.ExecutionContext, input core.AgentInput) *Context {
	return &Context{
		Point:     point,
		Exec:      exec,
		Input:     input,
		Metadata:  make(map[string]core.Value),
		Timestamp: time.Now(),
	}
}

// Clone returns a shallow copy safe for a parallel hook to mutate without
// affecting sibling executions.
func (c *Context) Clone() *Context {
	meta := make(map[string]core.Value, len(c.Metadata))
	for k, v := range c.Metadata {
		meta[k] = v
	}
	clone := *c
	clone.Metadata = meta
	return &clone
}
