package bridge

import (
	"bytes"
	"context"

	lua "github.com/yuin/gopher-lua"

	"github.com/lucidkernel/runtime/session"
)

// injectSession installs the `Session` and `Artifact` globals. Session
// scopes a script run's tenancy and owns artifact cleanup on close;
// Artifact is the versioned file/data/output a component produces within
// that scope. artifacts may be nil if the kernel wasn't given an artifact
// manager, in which case Session.create_artifact raises rather than
// silently no-opping.
func injectSession(L *lua.LState, sessions *session.Registry, artifacts *session.Manager) {
	sessionTbl := L.NewTable()
	sessionTbl.RawSetString("create", L.NewFunction(func(L *lua.LState) int {
		tenantID := L.OptString(1, "")
		s := sessions.Create(tenantID)
		L.Push(sessionHandle(L, sessions, artifacts, s))
		return 1
	}))
	sessionTbl.RawSetString("get", L.NewFunction(func(L *lua.LState) int {
		id := L.CheckString(1)
		s, ok := sessions.Get(id)
		if !ok {
			L.Push(lua.LNil)
			return 1
		}
		L.Push(sessionHandle(L, sessions, artifacts, s))
		return 1
	}))
	L.SetGlobal("Session", sessionTbl)

	artifactTbl := L.NewTable()
	artifactTbl.RawSetString("get", L.NewFunction(func(L *lua.LState) int {
		if artifacts == nil {
			L.RaiseError("Artifact.get: no artifact manager configured")
			return 0
		}
		id := L.CheckString(1)
		a, err := artifacts.GetMetadata(context.Background(), id)
		if err != nil {
			L.Push(lua.LNil)
			return 1
		}
		L.Push(ToLua(L, map[string]any{
			"id":         a.ID,
			"name":       a.Name,
			"type":       string(a.Type),
			"status":     string(a.Status),
			"size":       a.Size,
			"session_id": a.SessionID,
		}))
		return 1
	}))
	L.SetGlobal("Artifact", artifactTbl)
}

func sessionHandle(L *lua.LState, sessions *session.Registry, artifacts *session.Manager, s *session.Session) *lua.LTable {
	handle := L.NewTable()
	handle.RawSetString("id", lua.LString(s.ID))
	handle.RawSetString("tenant_id", lua.LString(s.TenantID))

	handle.RawSetString("create_artifact", L.NewFunction(func(L *lua.LState) int {
		if artifacts == nil {
			L.RaiseError("Session.create_artifact: no artifact manager configured")
			return 0
		}
		name := L.CheckString(1)
		content := L.CheckString(2)

		a, err := artifacts.Create(context.Background(), name, session.ArtifactTypeData,
			bytes.NewReader([]byte(content)), session.WithSessionID(s.ID))
		if err != nil {
			L.RaiseError("Session.create_artifact: %v", err)
			return 0
		}
		L.Push(lua.LString(a.ID))
		return 1
	}))
	handle.RawSetString("list_artifacts", L.NewFunction(func(L *lua.LState) int {
		if artifacts == nil {
			L.Push(ToLua(L, []any{}))
			return 1
		}
		list, err := artifacts.List(context.Background(), session.ArtifactQuery{SessionID: s.ID})
		if err != nil {
			L.RaiseError("Session.list_artifacts: %v", err)
			return 0
		}
		out := make([]any, len(list))
		for i, a := range list {
			out[i] = a.ID
		}
		L.Push(ToLua(L, out))
		return 1
	}))
	handle.RawSetString("close", L.NewFunction(func(L *lua.LState) int {
		if err := sessions.Close(context.Background(), s.ID); err != nil {
			L.RaiseError("Session.close: %v", err)
		}
		return 0
	}))
	return handle
}
