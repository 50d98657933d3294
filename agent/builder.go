package agent

import (
	"github.com/lucidkernel/runtime/circuitbreaker"
	"github.com/lucidkernel/runtime/component"
	"github.com/lucidkernel/runtime/event"
	"github.com/lucidkernel/runtime/hook"
)

// Builder fluently assembles a Runtime, grounded on the teacher's
// agent/builder.go fluent-construction pattern, re-targeted at the
// Component contract in place of the teacher's ReAct agent shape.
type Builder struct {
	name string
	comp component.Component
	opts []Option
}

// NewBuilder starts building an agent named name around comp.
func NewBuilder(name string, comp component.Component) *Builder {
	return &Builder{name: name, comp: comp}
}

// WithTools attaches a tool registry.
func (b *Builder) WithTools(reg *component.Registry) *Builder {
	b.opts = append(b.opts, WithTools(reg))
	return b
}

// WithHooks attaches a hook registry.
func (b *Builder) WithHooks(reg *hook.Registry) *Builder {
	b.opts = append(b.opts, WithHooks(reg))
	return b
}

// WithEventBus attaches an event bus.
func (b *Builder) WithEventBus(bus *event.Bus) *Builder {
	b.opts = append(b.opts, WithEventBus(bus))
	return b
}

// WithConversationBuffer attaches a bounded turn history buffer of
// capacity.
func (b *Builder) WithConversationBuffer(capacity int) *Builder {
	b.opts = append(b.opts, WithConversationBuffer(NewConversationBuffer(capacity)))
	return b
}

// WithCircuitBreaker attaches the breaker guarding every FSM transition.
func (b *Builder) WithCircuitBreaker(breaker *circuitbreaker.Breaker) *Builder {
	b.opts = append(b.opts, WithCircuitBreaker(breaker))
	return b
}

// WithStateManager binds a snapshotter for pause/stop persistence.
func (b *Builder) WithStateManager(s StateSnapshotter) *Builder {
	b.opts = append(b.opts, WithStateManager(s))
	return b
}

// Build produces the assembled Runtime.
func (b *Builder) Build() *Runtime {
	return New(b.name, b.comp, b.opts...)
}
