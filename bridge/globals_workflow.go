package bridge

import (
	"context"

	lua "github.com/yuin/gopher-lua"

	"github.com/lucidkernel/runtime/component"
	"github.com/lucidkernel/runtime/core"
	"github.com/lucidkernel/runtime/workflow"
)

// injectWorkflow installs the `Workflow` global: sequential(name,
// description, steps) builds a workflow.Sequential from a Lua array of step
// tables ({id, name, component, from_shared_key, max_retries}), resolving
// each step's component against the same registry Tool/Agent use.
func injectWorkflow(L *lua.LState, tools *component.Registry) {
	tbl := L.NewTable()
	tbl.RawSetString("sequential", L.NewFunction(func(L *lua.LState) int {
		name := L.CheckString(1)
		description := L.CheckString(2)
		stepsTbl := L.CheckTable(3)

		steps, err := luaStepsToWorkflow(stepsTbl, tools)
		if err != nil {
			L.RaiseError("Workflow.sequential: %v", err)
			return 0
		}

		wf := workflow.New(name, description, steps...)
		L.Push(workflowHandle(L, wf))
		return 1
	}))
	L.SetGlobal("Workflow", tbl)
}

func luaStepsToWorkflow(stepsTbl *lua.LTable, tools *component.Registry) ([]workflow.Step, error) {
	var steps []workflow.Step
	var outerErr error
	stepsTbl.ForEach(func(_ lua.LValue, v lua.LValue) {
		if outerErr != nil {
			return
		}
		stepTbl, ok := v.(*lua.LTable)
		if !ok {
			return
		}
		componentName := lua.LVAsString(stepTbl.RawGetString("component"))
		comp, ok := tools.Get(componentName)
		if !ok {
			outerErr = &unknownComponentError{name: componentName}
			return
		}
		maxRetries := 0
		if n, ok := stepTbl.RawGetString("max_retries").(lua.LNumber); ok {
			maxRetries = int(n)
		}
		steps = append(steps, workflow.Step{
			ID:         lua.LVAsString(stepTbl.RawGetString("id")),
			Name:       lua.LVAsString(stepTbl.RawGetString("name")),
			Component:  comp,
			Binding:    workflow.Binding{FromSharedKey: lua.LVAsString(stepTbl.RawGetString("from_shared_key"))},
			MaxRetries: maxRetries,
		})
	})
	return steps, outerErr
}

type unknownComponentError struct{ name string }

func (e *unknownComponentError) Error() string { return "unknown component " + e.name }

// workflowHandle builds the table scripts call execute(input) against.
func workflowHandle(L *lua.LState, wf *workflow.Sequential) *lua.LTable {
	handle := L.NewTable()
	handle.RawSetString("name", lua.LString(wf.Name()))
	handle.RawSetString("execute", L.NewFunction(func(L *lua.LState) int {
		inputTbl := L.OptTable(2, L.NewTable())
		params, _ := FromLua(inputTbl).(map[string]any)

		text := ""
		if t, ok := params["text"].(string); ok {
			text = t
		}

		out, _, err := wf.Execute(context.Background(), core.AgentInput{Text: text, Parameters: params})
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
	return handle
}
