package core

import (
	"context"

	"github.com/google/uuid"
)

// ExecutionContext travels alongside a context.Context through a component
// invocation, carrying trace/span identity, tenant scoping, and arbitrary
// attributes hooks can read or annotate.
type ExecutionContext struct {
	TraceID    string
	SpanID     string
	ParentSpan string
	TenantID   string
	SessionID  string
	Attributes map[string]Value
}

// NewExecutionContext starts a fresh root trace.
func NewExecutionContext(tenantID string) *ExecutionContext {
	return &ExecutionContext{
		TraceID:    uuid.NewString(),
		SpanID:     uuid.NewString(),
		TenantID:   tenantID,
		Attributes: make(map[string]Value),
	}
}

// Child derives a new span under the same trace, for a nested component
// call (e.g. a tool invoked from within an agent's Execute).
func (ec *ExecutionContext) Child() *ExecutionContext {
	child := &ExecutionContext{
		TraceID:    ec.TraceID,
		SpanID:     uuid.NewString(),
		ParentSpan: ec.SpanID,
		TenantID:   ec.TenantID,
		SessionID:  ec.SessionID,
		Attributes: make(map[string]Value, len(ec.Attributes)),
	}
	for k, v := range ec.Attributes {
		child.Attributes[k] = v
	}
	return child
}

type execCtxKey struct{}

// WithExecutionContext attaches ec to ctx.
func WithExecutionContext(ctx context.Context, ec *ExecutionContext) context.Context {
	return context.WithValue(ctx, execCtxKey{}, ec)
}

// ExecutionContextFrom retrieves the ExecutionContext attached to ctx, if any.
func ExecutionContextFrom(ctx context.Context) (*ExecutionContext, bool) {
	ec, ok := ctx.Value(execCtxKey{}).(*ExecutionContext)
	return ec, ok
}
