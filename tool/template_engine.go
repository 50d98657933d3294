package tool

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"

	"github.com/lucidkernel/runtime/component"
	"github.com/lucidkernel/runtime/core"
)

// dangerousTemplatePatterns rejects templates that look like they're
// reaching for host execution rather than substitution.
var dangerousTemplatePatterns = []string{
	"system(",
	"exec(",
	"eval(",
	"__import__",
	"subprocess",
	"os.system",
}

// TemplateEngineConfig bounds what TemplateEngine will render.
type TemplateEngineConfig struct {
	MaxTemplateSize int
	MaxContextSize  int
}

// DefaultTemplateEngineConfig mirrors the teacher reference tool's
// conservative defaults.
func DefaultTemplateEngineConfig() TemplateEngineConfig {
	return TemplateEngineConfig{
		MaxTemplateSize: 1024 * 1024,
		MaxContextSize:  10 * 1024 * 1024,
	}
}

// TemplateEngine renders text/template templates against a JSON context,
// the runtime's one built-in templating tool (string interpolation for
// prompts, file paths, and generated output — not a full page-rendering
// engine).
type TemplateEngine struct {
	component.BaseComponent
	config TemplateEngineConfig
}

// NewTemplateEngine builds a template-engine tool with the given config.
func NewTemplateEngine(config TemplateEngineConfig) *TemplateEngine {
	return &TemplateEngine{
		BaseComponent: component.BaseComponent{Meta: core.ComponentMetadata{
			Id:            core.NewComponentId("template-engine"),
			Name:          "template-engine",
			Description:   "Render text/template templates against a JSON context",
			SecurityLevel: core.SecurityRestricted,
			Category:      "util",
			Limits:        core.DefaultResourceLimits(),
		}},
		config: config,
	}
}

// Category groups this tool for discovery filtering.
func (t *TemplateEngine) Category() string { return "util" }

// InputSchema describes the parameters Execute accepts.
func (t *TemplateEngine) InputSchema() *component.ParameterSchema {
	return component.NewObjectSchema().
		WithDescription("Render a template string against a context").
		AddProperty("input", component.NewStringSchema().WithDescription("template string to render")).
		AddProperty("context", component.NewObjectSchema().WithDescription("context data for template rendering")).
		AddRequired("input")
}

// ValidateInput rejects calls with no parameters at all.
func (t *TemplateEngine) ValidateInput(_ context.Context, input core.AgentInput) error {
	if len(input.Parameters) == 0 {
		return core.NewError(core.ErrKindInvalidInput, "template-engine: no parameters provided; missing required parameter \"input\"")
	}
	if _, ok := stringParam(input, "input"); !ok {
		return core.NewError(core.ErrKindInvalidInput, "template-engine: missing required parameter \"input\"")
	}
	return nil
}

// Execute renders the "input" template against the optional "context" map.
func (t *TemplateEngine) Execute(_ context.Context, input core.AgentInput) (core.AgentOutput, error) {
	tmplText, _ := stringParam(input, "input")

	tmplCtx, _ := input.Parameters["context"].(map[string]core.Value)
	if tmplCtx == nil {
		tmplCtx = map[string]core.Value{}
	}

	if err := t.validateSizes(tmplText, tmplCtx); err != nil {
		return core.AgentOutput{}, err
	}
	if err := sanitizeTemplate(tmplText); err != nil {
		return core.AgentOutput{}, err
	}

	tmpl, err := template.New("template-engine").Parse(tmplText)
	if err != nil {
		return core.AgentOutput{}, core.NewError(core.ErrKindInvalidInput, "template-engine: invalid template: "+err.Error())
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, tmplCtx); err != nil {
		return core.AgentOutput{}, core.NewError(core.ErrKindInternal, "template-engine: rendering failed: "+err.Error())
	}

	contextSize, _ := json.Marshal(tmplCtx)
	result := map[string]core.Value{
		"rendered":        buf.String(),
		"template_length": len(tmplText),
		"context_size":    len(contextSize),
	}
	return successOutput("Template rendered successfully", result), nil
}

func (t *TemplateEngine) validateSizes(tmplText string, tmplCtx map[string]core.Value) error {
	if len(tmplText) > t.config.MaxTemplateSize {
		return core.NewError(core.ErrKindInvalidInput, fmt.Sprintf("template-engine: template size %d exceeds maximum %d", len(tmplText), t.config.MaxTemplateSize))
	}
	contextBytes, err := json.Marshal(tmplCtx)
	if err != nil {
		return core.NewError(core.ErrKindInvalidInput, "template-engine: context is not JSON-serializable: "+err.Error())
	}
	if len(contextBytes) > t.config.MaxContextSize {
		return core.NewError(core.ErrKindInvalidInput, fmt.Sprintf("template-engine: context size %d exceeds maximum %d", len(contextBytes), t.config.MaxContextSize))
	}
	return nil
}

func sanitizeTemplate(tmplText string) error {
	for _, pattern := range dangerousTemplatePatterns {
		if strings.Contains(tmplText, pattern) {
			return core.NewError(core.ErrKindUnauthorized, "template-engine: dangerous pattern detected: "+pattern)
		}
	}
	return nil
}
