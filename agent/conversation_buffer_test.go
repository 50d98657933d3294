package agent

import (
	"testing"

	"github.com/lucidkernel/runtime/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConversationBuffer_EvictsOldestWhenOverCapacity(t *testing.T) {
	b := NewConversationBuffer(2)
	b.Append(core.Turn{Content: "one"})
	b.Append(core.Turn{Content: "two"})
	b.Append(core.Turn{Content: "three"})

	turns := b.Turns()
	require.Len(t, turns, 2)
	assert.Equal(t, "two", turns[0].Content)
	assert.Equal(t, "three", turns[1].Content)
}

func TestConversationBuffer_DefaultsCapacityWhenNonPositive(t *testing.T) {
	b := NewConversationBuffer(0)
	assert.Equal(t, 50, b.capacity)
}

func TestConversationBuffer_LastReturnsMostRecentN(t *testing.T) {
	b := NewConversationBuffer(10)
	b.Append(core.Turn{Content: "a"})
	b.Append(core.Turn{Content: "b"})
	b.Append(core.Turn{Content: "c"})

	last := b.Last(2)
	require.Len(t, last, 2)
	assert.Equal(t, "b", last[0].Content)
	assert.Equal(t, "c", last[1].Content)
}

func TestConversationBuffer_ClearEmpties(t *testing.T) {
	b := NewConversationBuffer(10)
	b.Append(core.Turn{Content: "a"})
	b.Clear()
	assert.Empty(t, b.Turns())
}
