// Package event is the publish/subscribe bus components and the agent
// runtime use to announce state changes, execution start/complete, errors,
// and tool calls. Grounded on the teacher's agent/event.go (EventBus
// Publish/Subscribe/Unsubscribe interface, a closed EventType enum),
// generalized to glob-pattern subscriptions instead of one concrete struct
// per event type.
package event

import (
	"context"
	"path"
	"sync"
	"time"

	"github.com/lucidkernel/runtime/core"
)

// Type names an event kind, e.g. "agent.state_change", "agent.tool_call".
// Subscriptions match Type against a glob pattern ("agent.*" matches all
// agent lifecycle events).
type Type string

// Event is a single published occurrence.
type Event struct {
	Type      Type
	SourceID  string
	Timestamp time.Time
	Data      map[string]core.Value
}

// Handler receives matched events. A non-nil error is logged by the bus
// but never stops delivery to other handlers.
type Handler func(ctx context.Context, ev Event) error

type subscription struct {
	id      int
	pattern string
	handler Handler
}

// Bus is a glob-pattern pub/sub event bus.
type Bus struct {
	mu     sync.RWMutex
	subs   []subscription
	nextID int
	onErr  func(error)
}

// NewBus builds an empty Bus. onErr, if non-nil, receives handler errors;
// otherwise they are silently dropped (callers typically pass a zap-backed
// logger closure).
func NewBus(onErr func(error)) *Bus {
	return &Bus{onErr: onErr}
}

// Subscribe registers handler for events whose Type matches pattern (a
// path.Match glob, e.g. "agent.*"). Returns a subscription id for
// Unsubscribe.
func (b *Bus) Subscribe(pattern string, handler Handler) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.subs = append(b.subs, subscription{id: id, pattern: pattern, handler: handler})
	return id
}

// Unsubscribe removes a subscription by the id Subscribe returned.
func (b *Bus) Unsubscribe(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.subs[:0]
	for _, s := range b.subs {
		if s.id != id {
			out = append(out, s)
		}
	}
	b.subs = out
}

// Publish delivers ev synchronously to every matching handler.
func (b *Bus) Publish(ctx context.Context, ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	b.mu.RLock()
	matches := make([]Handler, 0, len(b.subs))
	for _, s := range b.subs {
		if ok, _ := path.Match(s.pattern, string(ev.Type)); ok {
			matches = append(matches, s.handler)
		}
	}
	b.mu.RUnlock()

	for _, h := range matches {
		if err := h(ctx, ev); err != nil && b.onErr != nil {
			b.onErr(err)
		}
	}
}

// Well-known event types published by the agent runtime.
const (
	TypeStateChange Type = "agent.state_change"
	TypeExecuteStart Type = "agent.execute_start"
	TypeExecuteEnd  Type = "agent.execute_end"
	TypeError       Type = "agent.error"
	TypeToolCall    Type = "agent.tool_call"
)
