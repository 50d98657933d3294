package event

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus_PublishMatchesGlobPattern(t *testing.T) {
	bus := NewBus(nil)
	var got []Type
	bus.Subscribe("agent.*", func(_ context.Context, ev Event) error {
		got = append(got, ev.Type)
		return nil
	})

	bus.Publish(context.Background(), Event{Type: TypeStateChange})
	bus.Publish(context.Background(), Event{Type: TypeToolCall})
	bus.Publish(context.Background(), Event{Type: "other.thing"})

	assert.Equal(t, []Type{TypeStateChange, TypeToolCall}, got)
}

func TestBus_PublishStampsTimestampWhenZero(t *testing.T) {
	bus := NewBus(nil)
	var captured Event
	bus.Subscribe("*", func(_ context.Context, ev Event) error {
		captured = ev
		return nil
	})

	bus.Publish(context.Background(), Event{Type: TypeError})
	assert.False(t, captured.Timestamp.IsZero())
}

func TestBus_UnsubscribeStopsDelivery(t *testing.T) {
	bus := NewBus(nil)
	calls := 0
	id := bus.Subscribe("agent.*", func(_ context.Context, _ Event) error {
		calls++
		return nil
	})

	bus.Publish(context.Background(), Event{Type: TypeStateChange})
	bus.Unsubscribe(id)
	bus.Publish(context.Background(), Event{Type: TypeStateChange})

	assert.Equal(t, 1, calls)
}

func TestBus_HandlerErrorRoutedToOnErr(t *testing.T) {
	var captured error
	bus := NewBus(func(err error) { captured = err })
	wantErr := errors.New("handler failed")
	bus.Subscribe("*", func(_ context.Context, _ Event) error { return wantErr })

	bus.Publish(context.Background(), Event{Type: TypeError})
	require.Error(t, captured)
	assert.Equal(t, wantErr, captured)
}

func TestBus_MultipleHandlersAllInvoked(t *testing.T) {
	bus := NewBus(nil)
	var calledA, calledB bool
	bus.Subscribe("agent.*", func(_ context.Context, _ Event) error { calledA = true; return nil })
	bus.Subscribe("agent.state_change", func(_ context.Context, _ Event) error { calledB = true; return nil })

	bus.Publish(context.Background(), Event{Type: TypeStateChange})
	assert.True(t, calledA)
	assert.True(t, calledB)
}
