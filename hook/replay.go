package hook

import (
	"time"

	"github.com/lucidkernel/runtime/perf"
)

// ReplayRecorder is an after_execute hook that captures a perf.ReplayRecord
// of every execution, so the performance monitor's timeline/diff tooling
// has something to navigate beyond hand-instrumented test records.
type ReplayRecorder struct {
	name  string
	store *perf.ReplayStore
}

// NewReplayRecorder builds a ReplayRecorder writing into store.
func NewReplayRecorder(name string, store *perf.ReplayStore) *ReplayRecorder {
	return &ReplayRecorder{name: name, store: store}
}

func (r *ReplayRecorder) Name() string { return r.name }

func (r *ReplayRecorder) Execute(ctx *Context) (Result, error) {
	sessionID := ctx.Exec.SessionID
	if sessionID == "" {
		sessionID = ctx.Exec.TraceID
	}

	r.store.Record(sessionID, perf.ReplayRecord{
		ExecutionID:     ctx.Exec.TraceID,
		HookID:          r.name,
		Timestamp:       ctx.Timestamp,
		ContextSnapshot: map[string]any{"text": ctx.Input.Text, "parameters": ctx.Input.Parameters},
		Result:          ctx.Output.Text,
		Metadata:        map[string]string{"point": string(ctx.Point)},
		Duration:        time.Since(ctx.Timestamp),
	})
	return ContinueResult(), nil
}
