package bridge

import (
	"fmt"

	lua "github.com/yuin/gopher-lua"
)

// ToLua converts a Go value (string, bool, number, nil, []any, map[string]any,
// or already a core.Value-shaped nested combination of these) into a Lua
// value usable as an argument or global.
func ToLua(L *lua.LState, v any) lua.LValue {
	switch x := v.(type) {
	case nil:
		return lua.LNil
	case lua.LValue:
		return x
	case bool:
		return lua.LBool(x)
	case string:
		return lua.LString(x)
	case int:
		return lua.LNumber(x)
	case int64:
		return lua.LNumber(x)
	case float64:
		return lua.LNumber(x)
	case float32:
		return lua.LNumber(x)
	case []any:
		tbl := L.CreateTable(len(x), 0)
		for i, item := range x {
			tbl.RawSetInt(i+1, ToLua(L, item))
		}
		return tbl
	case map[string]any:
		tbl := L.CreateTable(0, len(x))
		for k, item := range x {
			tbl.RawSetString(k, ToLua(L, item))
		}
		return tbl
	case map[string]string:
		tbl := L.CreateTable(0, len(x))
		for k, item := range x {
			tbl.RawSetString(k, lua.LString(item))
		}
		return tbl
	default:
		return lua.LString(fmt.Sprintf("%v", x))
	}
}

// FromLua converts a Lua return value into a JSON-shaped Go value, detecting
// whether a table is an array (every key an integer 1..n with no gaps) or an
// object (anything else), per the spec's explicit array-vs-object
// conversion rule.
func FromLua(v lua.LValue) any {
	switch x := v.(type) {
	case *lua.LNilType:
		return nil
	case lua.LBool:
		return bool(x)
	case lua.LNumber:
		f := float64(x)
		if f == float64(int64(f)) {
			return int64(f)
		}
		return f
	case lua.LString:
		return string(x)
	case *lua.LTable:
		return fromLuaTable(x)
	default:
		return x.String()
	}
}

func fromLuaTable(t *lua.LTable) any {
	maxN := t.Len()

	isArray := maxN > 0
	arrayVals := make([]any, 0, maxN)
	if isArray {
		for i := 1; i <= maxN; i++ {
			val := t.RawGetInt(i)
			if val == lua.LNil {
				isArray = false
				break
			}
			arrayVals = append(arrayVals, FromLua(val))
		}
	}

	extraKeys := false
	t.ForEach(func(k, _ lua.LValue) {
		if _, ok := k.(lua.LNumber); ok {
			n := float64(k.(lua.LNumber))
			if n == float64(int64(n)) && int64(n) >= 1 && int64(n) <= int64(maxN) {
				return
			}
		}
		extraKeys = true
	})

	if isArray && !extraKeys {
		return arrayVals
	}

	obj := make(map[string]any)
	t.ForEach(func(k, val lua.LValue) {
		obj[k.String()] = FromLua(val)
	})
	return obj
}
