package component

import (
	"encoding/json"
	"fmt"
)

// SchemaType is a JSON Schema primitive type.
type SchemaType string

const (
	SchemaTypeString  SchemaType = "string"
	SchemaTypeNumber  SchemaType = "number"
	SchemaTypeInteger SchemaType = "integer"
	SchemaTypeBoolean SchemaType = "boolean"
	SchemaTypeNull    SchemaType = "null"
	SchemaTypeObject  SchemaType = "object"
	SchemaTypeArray   SchemaType = "array"
)

// StringFormat constrains a string-typed schema field.
type StringFormat string

const (
	FormatDateTime StringFormat = "date-time"
	FormatDate     StringFormat = "date"
	FormatEmail    StringFormat = "email"
	FormatURI      StringFormat = "uri"
	FormatUUID     StringFormat = "uuid"
)

// ParameterSchema describes one parameter (or nested field) a Tool accepts,
// used both to validate ToolInput.Parameters and to render a docs/discovery
// payload over Tool.list()/Tool.get() in the script bridge.
type ParameterSchema struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`

	Type SchemaType `json:"type,omitempty"`

	Properties map[string]*ParameterSchema `json:"properties,omitempty"`
	Required   []string                    `json:"required,omitempty"`

	Items *ParameterSchema `json:"items,omitempty"`

	Enum  []any `json:"enum,omitempty"`
	Const any   `json:"const,omitempty"`

	MinLength *int         `json:"minLength,omitempty"`
	MaxLength *int         `json:"maxLength,omitempty"`
	Pattern   string       `json:"pattern,omitempty"`
	Format    StringFormat `json:"format,omitempty"`

	Minimum *float64 `json:"minimum,omitempty"`
	Maximum *float64 `json:"maximum,omitempty"`

	Default any `json:"default,omitempty"`
}

// NewObjectSchema starts a schema for a JSON object with parameters.
func NewObjectSchema() *ParameterSchema {
	return &ParameterSchema{Type: SchemaTypeObject, Properties: make(map[string]*ParameterSchema)}
}

// NewArraySchema wraps an item schema in an array schema.
func NewArraySchema(items *ParameterSchema) *ParameterSchema {
	return &ParameterSchema{Type: SchemaTypeArray, Items: items}
}

// NewStringSchema returns a bare string schema.
func NewStringSchema() *ParameterSchema { return &ParameterSchema{Type: SchemaTypeString} }

// NewNumberSchema returns a bare number schema.
func NewNumberSchema() *ParameterSchema { return &ParameterSchema{Type: SchemaTypeNumber} }

// NewIntegerSchema returns a bare integer schema.
func NewIntegerSchema() *ParameterSchema { return &ParameterSchema{Type: SchemaTypeInteger} }

// NewBooleanSchema returns a bare boolean schema.
func NewBooleanSchema() *ParameterSchema { return &ParameterSchema{Type: SchemaTypeBoolean} }

// AddProperty adds a named field to an object schema.
func (s *ParameterSchema) AddProperty(name string, prop *ParameterSchema) *ParameterSchema {
	if s.Properties == nil {
		s.Properties = make(map[string]*ParameterSchema)
	}
	s.Properties[name] = prop
	return s
}

// AddRequired marks field names as required.
func (s *ParameterSchema) AddRequired(names ...string) *ParameterSchema {
	s.Required = append(s.Required, names...)
	return s
}

// WithDescription sets the schema's human-readable description.
func (s *ParameterSchema) WithDescription(desc string) *ParameterSchema {
	s.Description = desc
	return s
}

// Validate checks params against the schema: required fields present, and
// (for declared object properties) a shallow type match. It does not
// attempt full JSON Schema validation — only what Tool.ValidateInput needs
// to reject obviously malformed script-supplied arguments before Execute.
func (s *ParameterSchema) Validate(params map[string]any) error {
	for _, name := range s.Required {
		if _, ok := params[name]; !ok {
			return fmt.Errorf("component: missing required parameter %q", name)
		}
	}
	for name, v := range params {
		prop, ok := s.Properties[name]
		if !ok {
			continue
		}
		if err := prop.validateValue(v); err != nil {
			return fmt.Errorf("component: parameter %q: %w", name, err)
		}
	}
	return nil
}

func (s *ParameterSchema) validateValue(v any) error {
	switch s.Type {
	case SchemaTypeString:
		if _, ok := v.(string); !ok {
			return fmt.Errorf("expected string, got %T", v)
		}
	case SchemaTypeInteger, SchemaTypeNumber:
		switch v.(type) {
		case int, int64, float64, float32:
		default:
			return fmt.Errorf("expected number, got %T", v)
		}
	case SchemaTypeBoolean:
		if _, ok := v.(bool); !ok {
			return fmt.Errorf("expected boolean, got %T", v)
		}
	case SchemaTypeArray:
		if _, ok := v.([]any); !ok {
			return fmt.Errorf("expected array, got %T", v)
		}
	case SchemaTypeObject:
		if _, ok := v.(map[string]any); !ok {
			return fmt.Errorf("expected object, got %T", v)
		}
	}
	return nil
}

// ToJSON serializes the schema.
func (s *ParameterSchema) ToJSON() ([]byte, error) { return json.Marshal(s) }

// ParameterSchemaFromJSON deserializes a schema.
func ParameterSchemaFromJSON(data []byte) (*ParameterSchema, error) {
	var s ParameterSchema
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("component: unmarshal schema: %w", err)
	}
	return &s, nil
}
