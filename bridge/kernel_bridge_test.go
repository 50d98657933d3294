package bridge

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lucidkernel/runtime/component"
	"github.com/lucidkernel/runtime/core"
)

func TestSession_ExecuteScript_ReturnsValueAndConsole(t *testing.T) {
	s := NewSession("sess-1", Dependencies{})
	defer s.Close()

	result, err := s.ExecuteScript(context.Background(), `
		print("hello")
		return {1, 2, 3}
	`)
	require.NoError(t, err)
	assert.Equal(t, []string{"hello"}, result.ConsoleOutput)
	assert.Equal(t, []any{int64(1), int64(2), int64(3)}, result.Output)
	assert.Equal(t, Engine, result.Metadata.Engine)
}

func TestSession_ExecuteScript_ObjectReturn(t *testing.T) {
	s := NewSession("sess-2", Dependencies{})
	defer s.Close()

	result, err := s.ExecuteScript(context.Background(), `return {name = "lucid", count = 3}`)
	require.NoError(t, err)
	obj, ok := result.Output.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "lucid", obj["name"])
	assert.Equal(t, int64(3), obj["count"])
}

func TestSession_ExecuteScript_SyntaxError(t *testing.T) {
	s := NewSession("sess-3", Dependencies{})
	defer s.Close()

	_, err := s.ExecuteScript(context.Background(), `this is not lua`)
	assert.Error(t, err)
}

func TestSession_SerializesAcrossConcurrentCalls(t *testing.T) {
	s := NewSession("sess-4", Dependencies{})
	defer s.Close()

	done := make(chan struct{})
	go func() {
		s.ExecuteScript(context.Background(), `for i=1,1000 do end`)
		done <- struct{}{}
	}()
	_, err := s.ExecuteScript(context.Background(), `return 1`)
	require.NoError(t, err)
	<-done
}

func TestExecuteIsolated_DoesNotShareState(t *testing.T) {
	s := NewSession("sess-5", Dependencies{})
	defer s.Close()
	_, err := s.ExecuteScript(context.Background(), `shared = 42`)
	require.NoError(t, err)

	result, err := ExecuteIsolated(context.Background(), `return shared`, Dependencies{})
	require.NoError(t, err)
	assert.Nil(t, result.Output)
}

func TestInjectAPIs_ToolGlobal(t *testing.T) {
	registry := component.NewRegistry()
	registry.Register(&echoTool{})

	s := NewSession("sess-6", Dependencies{Tools: registry})
	defer s.Close()

	result, err := s.ExecuteScript(context.Background(), `
		local t = Tool.get("echo")
		local out = t:execute({message = "hi"})
		return out.result
	`)
	require.NoError(t, err)
	assert.Equal(t, "hi", result.Output)
}

// echoTool is a minimal test double satisfying component.Tool.
type echoTool struct{ component.BaseComponent }

func (e *echoTool) Category() string { return "test" }

func (e *echoTool) InputSchema() *component.ParameterSchema {
	return component.NewObjectSchema()
}

func (e *echoTool) Metadata() core.ComponentMetadata {
	return core.ComponentMetadata{Name: "echo", SecurityLevel: core.SecuritySafe}
}

func (e *echoTool) Execute(_ context.Context, input core.AgentInput) (core.AgentOutput, error) {
	return core.AgentOutput{Parameters: map[string]core.Value{
		"result": input.Parameters["message"],
	}}, nil
}
