package param

import (
	"fmt"

	lua "github.com/yuin/gopher-lua"
)

// NoInstance is the sentinel instance ID meaning "no instance"/default.
const NoInstance int64 = -1

// Lua-side bookkeeping names for the instance indirection table.
const (
	instancesGlobal = "_instances"
	instanceIDField = "__instance_id"
	defaultMarker   = "__default_instance"
)

// Instance is an opaque handle parameter. It carries only the numeric ID;
// the canonical Lua container for the ID lives in the session's Instances
// table.
type Instance struct{ ID int64 }

// Kind returns KindInstance.
func (Instance) Kind() Kind { return KindInstance }

// Type returns InstanceType.
func (Instance) Type() Type { return InstanceType }

// LuaValue resolves the handle to its canonical container table. A sentinel
// or unknown ID resolves to a fresh table carrying the default marker, so
// replaying a call whose instance has since been removed degrades to the
// default instance instead of failing.
func (v Instance) LuaValue(L *lua.LState) lua.LValue {
	if v.ID != NoInstance {
		if root, ok := L.GetGlobal(instancesGlobal).(*lua.LTable); ok {
			if ct, ok := root.RawGetString(instanceKey(v.ID)).(*lua.LTable); ok {
				return ct
			}
		}
	}
	dt := L.NewTable()
	dt.RawSetString(defaultMarker, lua.LTrue)
	return dt
}

func (v Instance) String() string { return fmt.Sprintf("instance(%d)", v.ID) }

// IsDefault reports whether the handle is the "no instance" sentinel.
func (v Instance) IsDefault() bool { return v.ID == NoInstance }

type instanceType struct{}

func (instanceType) Name() string   { return "instance" }
func (instanceType) Default() Value { return Instance{ID: NoInstance} }

// Check extracts an instance handle. Nil and default-marked tables yield
// the sentinel; any other table must carry its ID in its metatable.
func (instanceType) Check(L *lua.LState, pos int) (Value, error) {
	lv := L.Get(pos)
	if lv == lua.LNil {
		return Instance{ID: NoInstance}, nil
	}
	tbl, ok := lv.(*lua.LTable)
	if !ok {
		return nil, &TypeError{Pos: pos, Want: "instance", Got: luaTypeName(lv)}
	}
	if tbl.RawGetString(defaultMarker) != lua.LNil {
		return Instance{ID: NoInstance}, nil
	}

	mt, ok := L.GetMetatable(tbl).(*lua.LTable)
	if !ok {
		return nil, &TypeError{Pos: pos, Want: "instance", Got: "table"}
	}
	id, ok := mt.RawGetString(instanceIDField).(lua.LNumber)
	if !ok {
		return nil, &TypeError{Pos: pos, Want: "instance", Got: "table"}
	}
	return Instance{ID: int64(id)}, nil
}

func instanceKey(id int64) string { return fmt.Sprintf("inst%d", id) }

// Instances is the per-session indirection table mapping instance IDs to
// their canonical Lua container tables. It lives in the Lua globals so that
// handle parameters can resolve IDs with nothing but the LState.
type Instances struct {
	L    *lua.LState
	next int64
}

// NewInstances installs the instance table into the Lua globals if absent
// and returns the manager for it.
func NewInstances(L *lua.LState) *Instances {
	if _, ok := L.GetGlobal(instancesGlobal).(*lua.LTable); !ok {
		L.SetGlobal(instancesGlobal, L.NewTable())
	}
	return &Instances{L: L}
}

// Add registers a payload and returns its handle. The payload is stored as
// userdata in the container table under "ptr".
func (t *Instances) Add(payload any) Instance {
	id := t.next
	t.next++

	ct := t.L.NewTable()
	ud := t.L.NewUserData()
	ud.Value = payload
	ct.RawSetString("ptr", ud)

	mt := t.L.NewTable()
	mt.RawSetString(instanceIDField, lua.LNumber(id))
	t.L.SetMetatable(ct, mt)

	t.root().RawSetString(instanceKey(id), ct)
	return Instance{ID: id}
}

// Lookup returns the payload registered for a handle.
func (t *Instances) Lookup(h Instance) (any, bool) {
	ct, ok := t.root().RawGetString(instanceKey(h.ID)).(*lua.LTable)
	if !ok {
		return nil, false
	}
	ud, ok := ct.RawGetString("ptr").(*lua.LUserData)
	if !ok {
		return nil, false
	}
	return ud.Value, true
}

// Remove deletes the container for a handle. Pushing the handle afterwards
// resolves to the default instance.
func (t *Instances) Remove(h Instance) {
	t.root().RawSetString(instanceKey(h.ID), lua.LNil)
}

// Container returns the canonical Lua table for a handle.
func (t *Instances) Container(h Instance) (*lua.LTable, bool) {
	ct, ok := t.root().RawGetString(instanceKey(h.ID)).(*lua.LTable)
	return ct, ok
}

func (t *Instances) root() *lua.LTable {
	root, ok := t.L.GetGlobal(instancesGlobal).(*lua.LTable)
	if !ok {
		root = t.L.NewTable()
		t.L.SetGlobal(instancesGlobal, root)
	}
	return root
}
