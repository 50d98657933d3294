package bridge

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lucidkernel/runtime/component"
)

func TestInjectAgent_CreateAndExecute(t *testing.T) {
	registry := component.NewRegistry()
	registry.Register(&echoTool{})

	s := NewSession("sess-agent-1", Dependencies{Tools: registry})
	defer s.Close()

	result, err := s.ExecuteScript(context.Background(), `
		local a = Agent.create("greeter", "echo")
		a:init()
		local out = a:execute({message = "hi", text = "hi"})
		return out.parameters.result
	`)
	require.NoError(t, err)
	assert.Equal(t, "hi", result.Output)
}

func TestInjectAgent_GetUnknownReturnsNil(t *testing.T) {
	registry := component.NewRegistry()
	registry.Register(&echoTool{})

	s := NewSession("sess-agent-2", Dependencies{Tools: registry})
	defer s.Close()

	result, err := s.ExecuteScript(context.Background(), `
		local a = Agent.get("does-not-exist")
		return a == nil
	`)
	require.NoError(t, err)
	assert.Equal(t, true, result.Output)
}

func TestInjectAgent_LifecycleTransitions(t *testing.T) {
	registry := component.NewRegistry()
	registry.Register(&echoTool{})

	s := NewSession("sess-agent-3", Dependencies{Tools: registry})
	defer s.Close()

	// Execute settles the agent back to "ready", so pause (which only
	// fires from "running") is expected to fail here; stop fires from
	// ready just fine.
	result, err := s.ExecuteScript(context.Background(), `
		local a = Agent.create("worker", "echo")
		a:execute({message = "go"})
		local readyState = a:state()
		local pauseOK = pcall(function() a:pause() end)
		a:stop()
		return {ready = readyState, pause_ok = pauseOK, stopped = a:state()}
	`)
	require.NoError(t, err)
	obj, ok := result.Output.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "ready", obj["ready"])
	assert.Equal(t, false, obj["pause_ok"])
	assert.Equal(t, "stopped", obj["stopped"])
}
