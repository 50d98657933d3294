package bridge

import (
	"context"
	"sync"

	lua "github.com/yuin/gopher-lua"

	"github.com/lucidkernel/runtime/agent"
	"github.com/lucidkernel/runtime/component"
	"github.com/lucidkernel/runtime/core"
	"github.com/lucidkernel/runtime/event"
	"github.com/lucidkernel/runtime/hook"
)

// agentRegistry is the session-local table of script-created agents,
// keyed by the name the script gave Agent.create.
type agentRegistry struct {
	mu     sync.Mutex
	agents map[string]*agent.Runtime
}

// injectAgent installs the `Agent` global: create(name, tool_name) wraps a
// registered component.Tool in an agent.Runtime and returns a handle
// exposing the lifecycle transitions and execute(input); get(name) looks
// one back up. hooks and bus may be nil, in which case agents run without
// hook dispatch / event publication, same as a session with no RAG.
func injectAgent(L *lua.LState, tools *component.Registry, hooks *hook.Registry, bus *event.Bus) {
	reg := &agentRegistry{agents: make(map[string]*agent.Runtime)}

	tbl := L.NewTable()
	tbl.RawSetString("create", L.NewFunction(func(L *lua.LState) int {
		name := L.CheckString(1)
		toolName := L.CheckString(2)

		comp, ok := tools.Get(toolName)
		if !ok {
			L.RaiseError("Agent.create: unknown component %q", toolName)
			return 0
		}

		opts := []agent.Option{agent.WithTools(tools)}
		if hooks != nil {
			opts = append(opts, agent.WithHooks(hooks))
		}
		if bus != nil {
			opts = append(opts, agent.WithEventBus(bus))
		}

		reg.mu.Lock()
		a := agent.New(name, comp, opts...)
		reg.agents[name] = a
		reg.mu.Unlock()

		L.Push(agentHandle(L, a))
		return 1
	}))
	tbl.RawSetString("get", L.NewFunction(func(L *lua.LState) int {
		name := L.CheckString(1)
		reg.mu.Lock()
		a, ok := reg.agents[name]
		reg.mu.Unlock()
		if !ok {
			L.Push(lua.LNil)
			return 1
		}
		L.Push(agentHandle(L, a))
		return 1
	}))
	L.SetGlobal("Agent", tbl)
}

// agentHandle builds the table scripts drive an agent.Runtime through:
// state(), init(), execute(input), pause(), resume(), stop(), teardown().
func agentHandle(L *lua.LState, a *agent.Runtime) *lua.LTable {
	handle := L.NewTable()
	handle.RawSetString("id", lua.LString(a.ID()))
	handle.RawSetString("name", lua.LString(a.Name()))

	handle.RawSetString("state", L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LString(a.State()))
		return 1
	}))
	handle.RawSetString("init", L.NewFunction(func(L *lua.LState) int {
		if err := a.Init(context.Background()); err != nil {
			L.RaiseError("Agent.init: %v", err)
		}
		return 0
	}))
	handle.RawSetString("execute", L.NewFunction(func(L *lua.LState) int {
		inputTbl := L.OptTable(2, L.NewTable())
		params, _ := FromLua(inputTbl).(map[string]any)

		text := ""
		if t, ok := params["text"].(string); ok {
			text = t
		}

		out, err := a.Execute(context.Background(), core.AgentInput{Text: text, Parameters: params})
		if err != nil {
			result := L.NewTable()
			result.RawSetString("success", lua.LBool(false))
			result.RawSetString("error", lua.LString(err.Error()))
			L.Push(result)
			return 1
		}
		L.Push(ToLua(L, map[string]any{
			"text":       out.Text,
			"parameters": map[string]any(out.Parameters),
		}))
		return 1
	}))
	handle.RawSetString("pause", L.NewFunction(func(L *lua.LState) int {
		if err := a.Pause(context.Background()); err != nil {
			L.RaiseError("Agent.pause: %v", err)
		}
		return 0
	}))
	handle.RawSetString("resume", L.NewFunction(func(L *lua.LState) int {
		if err := a.Resume(context.Background()); err != nil {
			L.RaiseError("Agent.resume: %v", err)
		}
		return 0
	}))
	handle.RawSetString("stop", L.NewFunction(func(L *lua.LState) int {
		if err := a.Stop(context.Background()); err != nil {
			L.RaiseError("Agent.stop: %v", err)
		}
		return 0
	}))
	handle.RawSetString("teardown", L.NewFunction(func(L *lua.LState) int {
		if err := a.Teardown(context.Background()); err != nil {
			L.RaiseError("Agent.teardown: %v", err)
		}
		return 0
	}))
	return handle
}
