// Package component defines the uniform contract every piece of
// functionality in the runtime implements: agents, tools, and workflow
// steps alike. Grounded on the teacher's workflow-local interface pattern
// (agent/interfaces.go): a narrow, duck-typed surface rather than a deep
// class hierarchy.
package component

import (
	"context"

	"github.com/lucidkernel/runtime/core"
)

// Component is the contract every executable unit implements. A script
// calling Tool.get("hash-calculator") or Agent.get("summarizer") receives
// something satisfying this interface.
type Component interface {
	// Metadata describes the component for discovery and compatibility
	// checks.
	Metadata() core.ComponentMetadata

	// ValidateInput checks input before Execute runs, returning a
	// core.Error with ErrKindInvalidInput on failure.
	ValidateInput(ctx context.Context, input core.AgentInput) error

	// Execute runs the component's behavior.
	Execute(ctx context.Context, input core.AgentInput) (core.AgentOutput, error)

	// HandleError is given a chance to translate or enrich an error raised
	// during Execute (e.g. mapping a storage timeout into ErrKindTimeout)
	// before it propagates to the caller.
	HandleError(ctx context.Context, err error) error
}

// BaseComponent provides a default HandleError/ValidateInput pair so
// concrete components only need to implement Metadata and Execute unless
// they need custom validation or error translation.
type BaseComponent struct {
	Meta core.ComponentMetadata
}

func (b BaseComponent) Metadata() core.ComponentMetadata { return b.Meta }

func (b BaseComponent) ValidateInput(_ context.Context, _ core.AgentInput) error { return nil }

func (b BaseComponent) HandleError(_ context.Context, err error) error { return err }
