// Package schema implements a versioned state-schema registry and a
// migration planner that computes compatibility analysis and risk level
// between two registered schema versions. Grounded on
// original_source/llmspell-kernel/src/state/migration/planner.rs and the
// schema/compatibility module it references.
package schema

import (
	"fmt"
	"sort"
	"sync"

	"github.com/lucidkernel/runtime/core"
)

// FieldSchema describes one field of a state schema.
type FieldSchema struct {
	FieldType    string
	Required     bool
	DefaultValue core.Value
}

// Schema is a named, versioned collection of field schemas.
type Schema struct {
	Version core.SemanticVersion
	Fields  map[string]FieldSchema
}

// NewSchema builds an empty Schema at version.
func NewSchema(version core.SemanticVersion) Schema {
	return Schema{Version: version, Fields: make(map[string]FieldSchema)}
}

// AddField registers a field on the schema and returns it for chaining.
func (s Schema) AddField(name string, field FieldSchema) Schema {
	s.Fields[name] = field
	return s
}

// Registry holds every schema version registered for a state domain.
type Registry struct {
	mu      sync.RWMutex
	schemas map[string]Schema // keyed by version.String()
}

// NewRegistry builds an empty Registry.
func NewRegistry() *Registry {
	return &Registry{schemas: make(map[string]Schema)}
}

// Register adds schema to the registry, keyed by its version.
func (r *Registry) Register(s Schema) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := s.Version.String()
	if _, exists := r.schemas[key]; exists {
		return fmt.Errorf("schema: version %s already registered", key)
	}
	r.schemas[key] = s
	return nil
}

// Get returns the schema registered at version, if any.
func (r *Registry) Get(version core.SemanticVersion) (Schema, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.schemas[version.String()]
	return s, ok
}

// Versions returns every registered version, ascending.
func (r *Registry) Versions() []core.SemanticVersion {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]core.SemanticVersion, 0, len(r.schemas))
	for _, s := range r.schemas {
		out = append(out, s.Version)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Cmp(out[j]) < 0 })
	return out
}

// FindMigrationCandidates returns every registered version strictly
// newer than from, ascending — the set of plausible migration targets.
func (r *Registry) FindMigrationCandidates(from core.SemanticVersion) []core.SemanticVersion {
	var out []core.SemanticVersion
	for _, v := range r.Versions() {
		if v.Cmp(from) > 0 {
			out = append(out, v)
		}
	}
	return out
}
