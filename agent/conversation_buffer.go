package agent

import (
	"sync"

	"github.com/lucidkernel/runtime/core"
)

// ConversationBuffer is a bounded, FIFO ring of recent conversation
// turns attached to an agent, used to give the wrapped component access
// to short-term dialogue history without every component re-deriving
// its own history management.
type ConversationBuffer struct {
	mu       sync.RWMutex
	turns    []core.Turn
	capacity int
}

// NewConversationBuffer builds a buffer holding at most capacity turns.
func NewConversationBuffer(capacity int) *ConversationBuffer {
	if capacity <= 0 {
		capacity = 50
	}
	return &ConversationBuffer{capacity: capacity}
}

// Append adds a turn, evicting the oldest turn if the buffer is full.
func (b *ConversationBuffer) Append(t core.Turn) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.turns = append(b.turns, t)
	if len(b.turns) > b.capacity {
		b.turns = b.turns[len(b.turns)-b.capacity:]
	}
}

// Turns returns a copy of the buffered turns, oldest first.
func (b *ConversationBuffer) Turns() []core.Turn {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]core.Turn, len(b.turns))
	copy(out, b.turns)
	return out
}

// Last returns the most recent n turns (or fewer if the buffer holds
// less).
func (b *ConversationBuffer) Last(n int) []core.Turn {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if n > len(b.turns) {
		n = len(b.turns)
	}
	out := make([]core.Turn, n)
	copy(out, b.turns[len(b.turns)-n:])
	return out
}

// Clear empties the buffer.
func (b *ConversationBuffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.turns = nil
}
