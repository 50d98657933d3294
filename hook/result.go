// Package hook is the hook & event infrastructure: a registry of
// prioritized hooks per hook point, and composable dispatch patterns
// (Sequential, Parallel, FirstMatch, Voting) for combining several hooks
// into one. Grounded on
// original_source/llmspell-hooks/src/{composite,result,context}.rs.
package hook

import "github.com/lucidkernel/runtime/core"

// ResultKind discriminates the outcome of a single hook execution.
type ResultKind int

const (
	// Continue lets the pipeline proceed unchanged.
	Continue ResultKind = iota
	// Modified carries a changed copy of the input/output data.
	Modified
	// Cancel aborts the pipeline entirely.
	Cancel
	// Redirect changes control flow to a named alternative.
	Redirect
	// Replace substitutes the entire result.
	Replace
)

func (k ResultKind) String() string {
	switch k {
	case Continue:
		return "continue"
	case Modified:
		return "modified"
	case Cancel:
		return "cancel"
	case Redirect:
		return "redirect"
	case Replace:
		return "replace"
	default:
		return "unknown"
	}
}

// Result is what a Hook.Execute returns. Only the fields relevant to Kind
// are populated.
type Result struct {
	Kind     ResultKind
	Data     core.Value // Modified / Replace payload
	Reason   string     // Cancel reason
	Redirect string     // Redirect target name
}

// ContinueResult is the zero-cost "do nothing" result most hooks return.
func ContinueResult() Result { return Result{Kind: Continue} }

// priority among results when several fire in the same composite: Cancel >
// Replace > Redirect > Modified > Continue, per the original composite.rs
// parallel-aggregation order.
func resultPriority(k ResultKind) int {
	switch k {
	case Cancel:
		return 4
	case Replace:
		return 3
	case Redirect:
		return 2
	case Modified:
		return 1
	default:
		return 0
	}
}
