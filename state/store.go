// Package state persists agent conversation state across pause/stop and
// resume/start, atop storage/versioned's lock-free optimistic-CAS store.
// Grounded on the teacher's agent/components.go StateManager concept,
// generalized to the spec's richer persisted shape and wired onto
// storage/versioned instead of an in-memory map, so a paused agent's
// state survives process restarts when the versioned store is itself
// backed by a durable KV (the versioned store here is the in-process
// cache layer; a future SPEC_FULL.md operation can flush it through
// storage.KV for cross-process durability — not required by any
// currently-named operation, so left as in-process only).
package state

import (
	"context"
	"fmt"
	"time"

	"github.com/lucidkernel/runtime/core"
	"github.com/lucidkernel/runtime/schema"
	"github.com/lucidkernel/runtime/storage/versioned"
)

// Snapshot is the persisted shape of an agent's resumable state:
// conversation history plus free-form context variables, tool usage
// stats, and the FSM state at capture time.
type Snapshot struct {
	AgentID            string
	ConversationHistory []core.Turn
	ContextVariables   map[string]core.Value
	ToolUsageStats     map[string]int
	CapturedState      string
	SchemaVersion      core.SemanticVersion
	CapturedAt         time.Time
}

// currentSchemaVersion is the Snapshot shape's own version, migrated via
// schema.Planner when the shape changes.
var currentSchemaVersion = core.SemanticVersion{Major: 1, Minor: 0, Patch: 0}

// Store persists Snapshots keyed by agent ID atop a lock-free versioned
// store, and tracks the Snapshot schema's own evolution through a
// migration planner so a future shape change can be migrated instead of
// silently misread.
type Store struct {
	versioned *versioned.Store
	planner   *schema.Planner
}

// NewStore builds an empty Store.
func NewStore() *Store {
	s := &Store{versioned: versioned.New(), planner: schema.NewPlanner()}
	_ = s.planner.RegisterSchema(schema.NewSchema(currentSchemaVersion))
	return s
}

// Snapshot persists turns as agentID's current conversation snapshot,
// satisfying agent.StateSnapshotter.
func (s *Store) Snapshot(ctx context.Context, agentID string, buffer []core.Turn) error {
	_, err := s.versioned.Update(agentID, func(current any, ok bool) (any, error) {
		snap := Snapshot{
			AgentID:              agentID,
			ConversationHistory:  append([]core.Turn(nil), buffer...),
			ContextVariables:     make(map[string]core.Value),
			ToolUsageStats:       make(map[string]int),
			SchemaVersion:        currentSchemaVersion,
			CapturedAt:           time.Now(),
		}
		if ok {
			if prior, match := current.(Snapshot); match {
				for k, v := range prior.ContextVariables {
					snap.ContextVariables[k] = v
				}
				for k, v := range prior.ToolUsageStats {
					snap.ToolUsageStats[k] = v
				}
			}
		}
		return snap, nil
	})
	return err
}

// Load returns agentID's persisted conversation history, or an empty
// slice if no snapshot exists.
func (s *Store) Load(ctx context.Context, agentID string) ([]core.Turn, error) {
	entry, ok := s.versioned.Get(agentID)
	if !ok {
		return nil, nil
	}
	snap, match := entry.Value.(Snapshot)
	if !match {
		return nil, fmt.Errorf("state: corrupt snapshot for agent %s", agentID)
	}
	return snap.ConversationHistory, nil
}

// Full returns the complete Snapshot for agentID, if any.
func (s *Store) Full(agentID string) (Snapshot, bool) {
	entry, ok := s.versioned.Get(agentID)
	if !ok {
		return Snapshot{}, false
	}
	snap, match := entry.Value.(Snapshot)
	return snap, match
}

// RecordToolUsage increments agentID's usage count for toolName,
// creating a snapshot if none exists yet.
func (s *Store) RecordToolUsage(agentID, toolName string) error {
	_, err := s.versioned.Update(agentID, func(current any, ok bool) (any, error) {
		var snap Snapshot
		if ok {
			if prior, match := current.(Snapshot); match {
				snap = prior
			}
		}
		if snap.AgentID == "" {
			snap = Snapshot{
				AgentID:          agentID,
				ContextVariables: make(map[string]core.Value),
				ToolUsageStats:   make(map[string]int),
				SchemaVersion:    currentSchemaVersion,
			}
		}
		if snap.ToolUsageStats == nil {
			snap.ToolUsageStats = make(map[string]int)
		}
		snap.ToolUsageStats[toolName]++
		snap.CapturedAt = time.Now()
		return snap, nil
	})
	return err
}

// Delete removes agentID's persisted state entirely.
func (s *Store) Delete(agentID string) {
	s.versioned.Delete(agentID)
}
