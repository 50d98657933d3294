package bridge

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lucidkernel/runtime/component"
)

func TestInjectWorkflow_SequentialExecutesSteps(t *testing.T) {
	registry := component.NewRegistry()
	registry.Register(&echoTool{})

	s := NewSession("sess-wf-1", Dependencies{Tools: registry})
	defer s.Close()

	result, err := s.ExecuteScript(context.Background(), `
		local wf = Workflow.sequential("greet", "says hi", {
			{id = "1", name = "echo-step", component = "echo"},
		})
		return wf:execute({message = "hello", text = "hello"})
	`)
	require.NoError(t, err)
	obj, ok := result.Output.(map[string]any)
	require.True(t, ok)
	params, ok := obj["parameters"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "hello", params["result"])
}

func TestInjectWorkflow_UnknownComponentErrors(t *testing.T) {
	registry := component.NewRegistry()

	s := NewSession("sess-wf-2", Dependencies{Tools: registry})
	defer s.Close()

	_, err := s.ExecuteScript(context.Background(), `
		Workflow.sequential("broken", "", {
			{id = "1", name = "missing-step", component = "does-not-exist"},
		})
	`)
	assert.Error(t, err)
}
