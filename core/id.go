// Package core holds the value and error types shared across every
// subsystem of the runtime: component identity, versioning, execution
// context, and the closed error taxonomy.
package core

import (
	"github.com/google/uuid"
)

// componentNamespace roots the deterministic (name-derived) component IDs.
// Two components declared with the same name always resolve to the same
// ComponentId, by design: that's what lets a hook registration or a
// workflow step reference a component by name and have it match across
// process restarts.
var componentNamespace = uuid.MustParse("7b4b9e7e-2e9b-4f0a-9b0a-9d6f6e6a9c11")

// ComponentId uniquely identifies a component instance.
type ComponentId struct {
	uuid uuid.UUID
	name string
}

// NewComponentId derives a stable ComponentId from a component name. Calling
// this twice with the same name yields an equal ComponentId.
func NewComponentId(name string) ComponentId {
	return ComponentId{uuid: uuid.NewSHA1(componentNamespace, []byte(name)), name: name}
}

// NewRandomComponentId returns a ComponentId with no name affinity, for
// anonymous or ephemeral components (e.g. one-off script-defined tools).
func NewRandomComponentId() ComponentId {
	return ComponentId{uuid: uuid.New()}
}

// String returns the canonical UUID form.
func (c ComponentId) String() string { return c.uuid.String() }

// Name returns the name this id was derived from, empty for random ids.
func (c ComponentId) Name() string { return c.name }

// Equal reports whether two ids refer to the same component.
func (c ComponentId) Equal(other ComponentId) bool { return c.uuid == other.uuid }

// IsZero reports whether this is the zero value (no id assigned).
func (c ComponentId) IsZero() bool { return c.uuid == uuid.Nil }
