// Package bridge hosts one Lua virtual machine per kernel session and
// exposes the runtime's component registry, provider manager, and
// RAG/session/state infrastructure to scripts as host globals.
//
// Every execution against a session's VM is serialized by that session's
// mutex: scripts are synchronous from the caller's perspective even though
// the tools they call may themselves suspend on I/O.
package bridge

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/lucidkernel/runtime/component"
	"github.com/lucidkernel/runtime/event"
	"github.com/lucidkernel/runtime/hook"
	"github.com/lucidkernel/runtime/provider"
	"github.com/lucidkernel/runtime/session"
	"github.com/lucidkernel/runtime/storage"
)

// Engine names the scripting engine a session is bound to. Lua is the only
// engine implemented; the field exists so ExecutionMetadata.Engine has
// somewhere to report it and a second engine could be added without
// reshaping the result type.
const Engine = "lua"

// ExecutionMetadata describes one execute_script call.
type ExecutionMetadata struct {
	Engine          string        `json:"engine"`
	ExecutionTimeMS int64         `json:"execution_time_ms"`
	Warnings        []string      `json:"warnings,omitempty"`
}

// ExecutionResult is the {output, console_output, metadata} envelope
// execute_script assembles.
type ExecutionResult struct {
	Output        any               `json:"output"`
	ConsoleOutput []string          `json:"console_output"`
	Metadata      ExecutionMetadata `json:"metadata"`
}

// Session owns one Lua VM and the mutex serializing every script run
// against it. The kernel creates one per active script session.
type Session struct {
	id      string
	mu      sync.Mutex
	state   *lua.LState
	console []string
	args    map[string]string
}

// Dependencies are the host facilities inject_apis wires into a session's
// globals. Any field may be nil; the corresponding global is simply not
// installed.
type Dependencies struct {
	Tools     *component.Registry
	Providers *provider.Manager
	State     storage.KV
	RAG       RAGFacade
	Sessions  *session.Registry
	Artifacts *session.Manager
	Hooks     *hook.Registry
	EventBus  *event.Bus
}

// RAGFacade is the surface the `RAG` global needs; satisfied by the
// adapter kernel.NewRAGFacade builds around a *rag.RAG.
type RAGFacade interface {
	ListProviders() []string
	Ingest(ctx context.Context, docs []RAGDocument, opts RAGIngestOptions) (RAGIngestResult, error)
	Search(ctx context.Context, q RAGSearchQuery) ([]RAGSearchHit, error)
	CleanupScope(ctx context.Context, kind string, id string) error
	CreateSessionCollection(id string, ttl time.Duration)
	GetStats(kind string, id string) RAGScopeStats
}

// RAGDocument, RAGIngestOptions, RAGIngestResult, RAGSearchQuery,
// RAGSearchHit and RAGScopeStats mirror rag.RAG's own types structurally so
// this package doesn't import rag directly (rag already imports provider,
// and bridge sits above both) — the kernel's concrete *rag.RAG is adapted
// to RAGFacade by a thin wrapper living in the kernel package.
type RAGDocument struct {
	ID        string
	Content   string
	Embedding []float64
	Metadata  map[string]interface{}
	ScopeKind string
	ScopeID   string
}

type RAGIngestOptions struct {
	ScopeKind string
	ScopeID   string
}

type RAGIngestResult struct {
	DocumentsIngested int
	ChunksStored      int
	ChunkIDs          []string
}

type RAGSearchQuery struct {
	Embedding []float64
	TopK      int
	ScopeKind string
	ScopeID   string
}

type RAGSearchHit struct {
	ID       string
	Content  string
	Score    float32
	Metadata map[string]string
}

type RAGScopeStats struct {
	EntryCount    int
	DimensionDist map[int]int
}

// NewSession creates a fresh Lua VM for sessionID and injects deps into it.
func NewSession(sessionID string, deps Dependencies) *Session {
	s := &Session{id: sessionID, state: lua.NewState(), args: map[string]string{}}
	s.installPrint()
	injectAPIs(s.state, deps)
	return s
}

// Close releases the session's VM.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Close()
}

// installPrint overrides Lua's print() to append to the console capture
// instead of writing to process stdout, so output can be returned to the
// caller rather than interleaved with the host process's own logs.
func (s *Session) installPrint() {
	s.state.SetGlobal("print", s.state.NewFunction(func(L *lua.LState) int {
		var buf bytes.Buffer
		top := L.GetTop()
		for i := 1; i <= top; i++ {
			if i > 1 {
				buf.WriteByte('\t')
			}
			buf.WriteString(lua.LVAsString(L.Get(i)))
		}
		s.console = append(s.console, buf.String())
		return 0
	}))
}

// SetScriptArgs injects a well-known ARGS global carrying invocation-time
// string parameters, ahead of the next ExecuteScript call.
func (s *Session) SetScriptArgs(args map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.args = args
	tbl := s.state.NewTable()
	for k, v := range args {
		tbl.RawSetString(k, lua.LString(v))
	}
	s.state.SetGlobal("ARGS", tbl)
}

// ExecuteScript loads and runs text under the session's mutex, capturing
// console output, triggering a GC pass, and converting the script's return
// value to a typed JSON value.
func (s *Session) ExecuteScript(ctx context.Context, text string) (ExecutionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.console = s.console[:0]
	start := time.Now()

	fn, err := s.state.LoadString(text)
	if err != nil {
		return ExecutionResult{}, fmt.Errorf("bridge: parse script: %w", err)
	}
	s.state.Push(fn)

	if err := s.state.PCall(0, lua.MultRet, nil); err != nil {
		return ExecutionResult{}, fmt.Errorf("bridge: run script: %w", err)
	}

	var output any
	if s.state.GetTop() > 0 {
		output = FromLua(s.state.Get(-1))
		s.state.SetTop(0)
	}

	s.state.DoString("collectgarbage()")

	elapsed := time.Since(start)
	return ExecutionResult{
		Output:        output,
		ConsoleOutput: append([]string(nil), s.console...),
		Metadata: ExecutionMetadata{
			Engine:          Engine,
			ExecutionTimeMS: elapsed.Milliseconds(),
		},
	}, nil
}

// ExecuteScriptStreaming wraps ExecuteScript into a single-chunk channel.
// Full token-by-token streaming would require a coroutine-based VM driver;
// until that lands, callers get the complete result as one chunk.
func (s *Session) ExecuteScriptStreaming(ctx context.Context, text string) (<-chan ExecutionResult, <-chan error) {
	out := make(chan ExecutionResult, 1)
	errCh := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(errCh)
		result, err := s.ExecuteScript(ctx, text)
		if err != nil {
			errCh <- err
			return
		}
		out <- result
	}()
	return out, errCh
}

// ExecuteIsolated runs text against a fresh, throwaway VM that shares no
// state with the session's own — grounded on the sandboxed-execution
// pattern of constructing a new interpreter per call rather than reusing
// one. Useful for untrusted one-off snippets a tool or hook wants to
// evaluate without risking the session's globals or defined functions.
func ExecuteIsolated(ctx context.Context, text string, deps Dependencies) (ExecutionResult, error) {
	tmp := NewSession("isolated", deps)
	defer tmp.Close()
	return tmp.ExecuteScript(ctx, text)
}
