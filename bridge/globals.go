package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/lucidkernel/runtime/component"
	"github.com/lucidkernel/runtime/core"
)

// injectAPIs synthesizes the Tool/State/RAG/JSON host globals against the
// session's configured dependencies. Any nil dependency simply leaves its
// global uninstalled rather than erroring, so a session created without
// RAG wiring (e.g. `--rag=false`) still runs scripts that don't touch it.
func injectAPIs(L *lua.LState, deps Dependencies) {
	injectJSON(L)

	if deps.Tools != nil {
		injectTool(L, deps.Tools)
		injectAgent(L, deps.Tools, deps.Hooks, deps.EventBus)
		injectWorkflow(L, deps.Tools)
	}
	if deps.State != nil {
		injectState(L, deps.State)
	}
	if deps.RAG != nil {
		injectRAG(L, deps.RAG)
	}
	if deps.Sessions != nil {
		injectSession(L, deps.Sessions, deps.Artifacts)
	}
}

func injectJSON(L *lua.LState) {
	tbl := L.NewTable()
	tbl.RawSetString("parse", L.NewFunction(func(L *lua.LState) int {
		text := L.CheckString(1)
		var v any
		if err := json.Unmarshal([]byte(text), &v); err != nil {
			L.RaiseError("JSON.parse: %v", err)
			return 0
		}
		L.Push(ToLua(L, v))
		return 1
	}))
	tbl.RawSetString("stringify", L.NewFunction(func(L *lua.LState) int {
		v := FromLua(L.CheckAny(1))
		data, err := json.Marshal(v)
		if err != nil {
			L.RaiseError("JSON.stringify: %v", err)
			return 0
		}
		L.Push(lua.LString(string(data)))
		return 1
	}))
	L.SetGlobal("JSON", tbl)
}

// injectTool installs the `Tool` global: list(), get(name), and exists(name).
// The table Tool.get returns carries an execute(params) method closing over
// the resolved component.Tool and a fresh component.Runner.
func injectTool(L *lua.LState, registry *component.Registry) {
	runner := component.NewRunner()

	tbl := L.NewTable()
	tbl.RawSetString("exists", L.NewFunction(func(L *lua.LState) int {
		name := L.CheckString(1)
		_, ok := registry.Get(name)
		L.Push(lua.LBool(ok))
		return 1
	}))
	tbl.RawSetString("list", L.NewFunction(func(L *lua.LState) int {
		category := L.OptString(1, "")
		tools := registry.List(category, core.SecurityPrivileged)
		names := make([]any, 0, len(tools))
		for _, t := range tools {
			names = append(names, t.Metadata().Name)
		}
		L.Push(ToLua(L, names))
		return 1
	}))
	tbl.RawSetString("get", L.NewFunction(func(L *lua.LState) int {
		name := L.CheckString(1)
		t, ok := registry.Get(name)
		if !ok {
			L.Push(lua.LNil)
			return 1
		}
		L.Push(toolHandle(L, t, runner))
		return 1
	}))
	L.SetGlobal("Tool", tbl)
}

// toolHandle builds the small table scripts call Tool.get(name):execute(params)
// against.
func toolHandle(L *lua.LState, t component.Tool, runner *component.Runner) *lua.LTable {
	handle := L.NewTable()
	handle.RawSetString("name", lua.LString(t.Metadata().Name))
	handle.RawSetString("execute", L.NewFunction(func(L *lua.LState) int {
		paramsTbl := L.OptTable(2, L.NewTable())
		params, _ := FromLua(paramsTbl).(map[string]any)

		input := core.AgentInput{Parameters: params}
		out, err := runner.Run(context.Background(), t, input)
		if err != nil {
			result := L.NewTable()
			result.RawSetString("success", lua.LBool(false))
			result.RawSetString("error", lua.LString(err.Error()))
			L.Push(result)
			return 1
		}
		L.Push(ToLua(L, map[string]any(out.Parameters)))
		return 1
	}))
	return handle
}

// injectState installs the `State` global over a storage.KV. Keys are
// passed to the KV exactly as the script gives them; no per-session or
// per-namespace prefix is added, so sessions sharing one KV share one
// keyspace.
func injectState(L *lua.LState, kv interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}) {
	tbl := L.NewTable()
	tbl.RawSetString("set", L.NewFunction(func(L *lua.LState) int {
		key := L.CheckString(1)
		value := FromLua(L.CheckAny(2))
		data, err := json.Marshal(value)
		if err != nil {
			L.RaiseError("State.set: %v", err)
			return 0
		}
		if err := kv.Put(context.Background(), key, data); err != nil {
			L.RaiseError("State.set: %v", err)
		}
		return 0
	}))
	tbl.RawSetString("get", L.NewFunction(func(L *lua.LState) int {
		key := L.CheckString(1)
		data, ok, err := kv.Get(context.Background(), key)
		if err != nil {
			L.RaiseError("State.get: %v", err)
			return 0
		}
		if !ok {
			L.Push(lua.LNil)
			return 1
		}
		var v any
		if err := json.Unmarshal(data, &v); err != nil {
			L.RaiseError("State.get: %v", err)
			return 0
		}
		L.Push(ToLua(L, v))
		return 1
	}))
	tbl.RawSetString("delete", L.NewFunction(func(L *lua.LState) int {
		key := L.CheckString(1)
		if err := kv.Delete(context.Background(), key); err != nil {
			L.RaiseError("State.delete: %v", err)
		}
		return 0
	}))
	L.SetGlobal("State", tbl)
}

// injectRAG installs the full `RAG` global: ingest, search, cleanup_scope,
// create_session_collection, get_stats, list_providers, scoped by the
// {kind, id} pairs the rag package's Scope type models.
func injectRAG(L *lua.LState, facade RAGFacade) {
	tbl := L.NewTable()

	tbl.RawSetString("list_providers", L.NewFunction(func(L *lua.LState) int {
		names := facade.ListProviders()
		out := make([]any, len(names))
		for i, n := range names {
			out[i] = n
		}
		L.Push(ToLua(L, out))
		return 1
	}))

	tbl.RawSetString("ingest", L.NewFunction(func(L *lua.LState) int {
		docsTbl := L.CheckTable(1)
		optsTbl := L.OptTable(2, L.NewTable())

		docs := luaDocumentsToRAG(docsTbl)
		kind, id := scopeFromTable(optsTbl)

		result, err := facade.Ingest(context.Background(), docs, RAGIngestOptions{ScopeKind: kind, ScopeID: id})
		if err != nil {
			L.RaiseError("RAG.ingest: %v", err)
			return 0
		}
		L.Push(ToLua(L, map[string]any{
			"documents_ingested": result.DocumentsIngested,
			"chunks_stored":      result.ChunksStored,
			"chunk_ids":          stringsToAny(result.ChunkIDs),
		}))
		return 1
	}))

	tbl.RawSetString("search", L.NewFunction(func(L *lua.LState) int {
		queryTbl := L.CheckTable(1)
		optsTbl := L.OptTable(2, L.NewTable())

		embedding := luaFloatArray(queryTbl.RawGetString("embedding"))
		topK := 10
		if n, ok := queryTbl.RawGetString("top_k").(lua.LNumber); ok {
			topK = int(n)
		}
		kind, id := scopeFromTable(optsTbl)

		hits, err := facade.Search(context.Background(), RAGSearchQuery{
			Embedding: embedding,
			TopK:      topK,
			ScopeKind: kind,
			ScopeID:   id,
		})
		if err != nil {
			L.RaiseError("RAG.search: %v", err)
			return 0
		}
		out := make([]any, len(hits))
		for i, h := range hits {
			out[i] = map[string]any{
				"id":       h.ID,
				"content":  h.Content,
				"score":    float64(h.Score),
				"metadata": stringMapToAny(h.Metadata),
			}
		}
		L.Push(ToLua(L, out))
		return 1
	}))

	tbl.RawSetString("cleanup_scope", L.NewFunction(func(L *lua.LState) int {
		kind := L.CheckString(1)
		id := L.OptString(2, "")
		if err := facade.CleanupScope(context.Background(), kind, id); err != nil {
			L.RaiseError("RAG.cleanup_scope: %v", err)
		}
		return 0
	}))

	tbl.RawSetString("create_session_collection", L.NewFunction(func(L *lua.LState) int {
		id := L.CheckString(1)
		ttlSeconds := L.OptNumber(2, 0)
		facade.CreateSessionCollection(id, time.Duration(float64(ttlSeconds))*time.Second)
		return 0
	}))

	tbl.RawSetString("get_stats", L.NewFunction(func(L *lua.LState) int {
		kind := L.CheckString(1)
		id := L.OptString(2, "")
		stats := facade.GetStats(kind, id)
		dims := make(map[string]any, len(stats.DimensionDist))
		for dim, count := range stats.DimensionDist {
			dims[fmt.Sprintf("%d", dim)] = count
		}
		L.Push(ToLua(L, map[string]any{
			"entry_count":    stats.EntryCount,
			"dimension_dist": dims,
		}))
		return 1
	}))

	L.SetGlobal("RAG", tbl)
}

func scopeFromTable(t *lua.LTable) (kind, id string) {
	kind = "global"
	if s, ok := t.RawGetString("scope").(lua.LString); ok {
		kind = string(s)
	}
	if s, ok := t.RawGetString("scope_id").(lua.LString); ok {
		id = string(s)
	}
	return kind, id
}

func luaDocumentsToRAG(docsTbl *lua.LTable) []RAGDocument {
	docs := make([]RAGDocument, 0, docsTbl.Len())
	docsTbl.ForEach(func(_ lua.LValue, v lua.LValue) {
		docTbl, ok := v.(*lua.LTable)
		if !ok {
			return
		}
		metadata, _ := FromLua(docTbl.RawGetString("metadata")).(map[string]any)
		docs = append(docs, RAGDocument{
			ID:        lua.LVAsString(docTbl.RawGetString("id")),
			Content:   lua.LVAsString(docTbl.RawGetString("content")),
			Embedding: luaFloatArray(docTbl.RawGetString("embedding")),
			Metadata:  metadata,
		})
	})
	return docs
}

func luaFloatArray(v lua.LValue) []float64 {
	tbl, ok := v.(*lua.LTable)
	if !ok {
		return nil
	}
	out := make([]float64, 0, tbl.Len())
	for i := 1; i <= tbl.Len(); i++ {
		if n, ok := tbl.RawGetInt(i).(lua.LNumber); ok {
			out = append(out, float64(n))
		}
	}
	return out
}

func stringsToAny(in []string) []any {
	out := make([]any, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}

func stringMapToAny(in map[string]string) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
