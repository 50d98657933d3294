package tool

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lucidkernel/runtime/core"
)

func TestTemplateEngine_Render(t *testing.T) {
	e := NewTemplateEngine(DefaultTemplateEngineConfig())
	out, err := e.Execute(context.Background(), core.AgentInput{
		Parameters: map[string]core.Value{
			"input": "Hello, {{.Name}}!",
			"context": map[string]core.Value{
				"Name": "world",
			},
		},
	})
	require.NoError(t, err)
	result := out.Parameters["result"].(map[string]core.Value)
	assert.Equal(t, "Hello, world!", result["rendered"])
}

func TestTemplateEngine_NoContext(t *testing.T) {
	e := NewTemplateEngine(DefaultTemplateEngineConfig())
	out, err := e.Execute(context.Background(), core.AgentInput{
		Parameters: map[string]core.Value{"input": "static text"},
	})
	require.NoError(t, err)
	result := out.Parameters["result"].(map[string]core.Value)
	assert.Equal(t, "static text", result["rendered"])
}

func TestTemplateEngine_MissingInput(t *testing.T) {
	e := NewTemplateEngine(DefaultTemplateEngineConfig())
	err := e.ValidateInput(context.Background(), core.AgentInput{Parameters: map[string]core.Value{}})
	require.Error(t, err)
	var coreErr *core.Error
	require.ErrorAs(t, err, &coreErr)
	assert.Contains(t, coreErr.Message, "input")
}

func TestTemplateEngine_InvalidTemplateSyntax(t *testing.T) {
	e := NewTemplateEngine(DefaultTemplateEngineConfig())
	_, err := e.Execute(context.Background(), core.AgentInput{
		Parameters: map[string]core.Value{"input": "{{.Unclosed"},
	})
	require.Error(t, err)
	var coreErr *core.Error
	require.ErrorAs(t, err, &coreErr)
	assert.Equal(t, core.ErrKindInvalidInput, coreErr.Kind)
}

func TestTemplateEngine_DangerousPatternRejected(t *testing.T) {
	e := NewTemplateEngine(DefaultTemplateEngineConfig())
	_, err := e.Execute(context.Background(), core.AgentInput{
		Parameters: map[string]core.Value{"input": "{{ os.system(\"rm -rf /\") }}"},
	})
	require.Error(t, err)
	var coreErr *core.Error
	require.ErrorAs(t, err, &coreErr)
	assert.Equal(t, core.ErrKindUnauthorized, coreErr.Kind)
}

func TestTemplateEngine_TemplateTooLarge(t *testing.T) {
	e := NewTemplateEngine(TemplateEngineConfig{MaxTemplateSize: 10, MaxContextSize: 1024})
	_, err := e.Execute(context.Background(), core.AgentInput{
		Parameters: map[string]core.Value{"input": strings.Repeat("a", 100)},
	})
	require.Error(t, err)
	var coreErr *core.Error
	require.ErrorAs(t, err, &coreErr)
	assert.Equal(t, core.ErrKindInvalidInput, coreErr.Kind)
}
