package param

import (
	"errors"
	"testing"

	lua "github.com/yuin/gopher-lua"
)

type payload struct{ name string }

func TestInstanceAddLookup(t *testing.T) {
	L := newState(t)
	insts := NewInstances(L)

	h := insts.Add(&payload{name: "ds0"})
	if h.IsDefault() {
		t.Fatal("Add returned the default handle")
	}

	p, ok := insts.Lookup(h)
	if !ok {
		t.Fatal("Lookup failed for a live handle")
	}
	if p.(*payload).name != "ds0" {
		t.Errorf("payload = %+v", p)
	}
}

func TestInstanceIdentity(t *testing.T) {
	L := newState(t)
	insts := NewInstances(L)
	h := insts.Add(&payload{})

	ct, ok := insts.Container(h)
	if !ok {
		t.Fatal("Container failed for a live handle")
	}

	// Pushing the handle twice must resolve to the same canonical table.
	if h.LuaValue(L) != lua.LValue(ct) {
		t.Error("LuaValue did not resolve to the canonical container")
	}
	if h.LuaValue(L) != h.LuaValue(L) {
		t.Error("LuaValue resolved to different tables for the same ID")
	}
}

func TestInstanceCheck(t *testing.T) {
	L := newState(t)
	insts := NewInstances(L)
	h := insts.Add(&payload{})

	v, err := checkTop(t, L, InstanceType, h.LuaValue(L))
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if got := v.(Instance).ID; got != h.ID {
		t.Errorf("ID = %d, want %d", got, h.ID)
	}
}

func TestInstanceCheckNilIsDefault(t *testing.T) {
	L := newState(t)

	v, err := checkTop(t, L, InstanceType, lua.LNil)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if !v.(Instance).IsDefault() {
		t.Errorf("ID = %d, want %d", v.(Instance).ID, NoInstance)
	}
}

func TestInstanceDefaultRoundTrip(t *testing.T) {
	L := newState(t)
	NewInstances(L)

	// The sentinel pushes a default-marked table; extracting that table
	// yields the sentinel again.
	def := Instance{ID: NoInstance}
	v, err := checkTop(t, L, InstanceType, def.LuaValue(L))
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if !v.(Instance).IsDefault() {
		t.Errorf("ID = %d, want %d", v.(Instance).ID, NoInstance)
	}
}

func TestInstanceRemoveDegradesToDefault(t *testing.T) {
	L := newState(t)
	insts := NewInstances(L)
	h := insts.Add(&payload{})
	insts.Remove(h)

	if _, ok := insts.Lookup(h); ok {
		t.Fatal("Lookup succeeded after Remove")
	}

	v, err := checkTop(t, L, InstanceType, h.LuaValue(L))
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if !v.(Instance).IsDefault() {
		t.Errorf("removed handle extracted as %d, want default", v.(Instance).ID)
	}
}

func TestInstanceCheckMismatch(t *testing.T) {
	L := newState(t)

	if _, err := checkTop(t, L, InstanceType, lua.LNumber(1)); err == nil {
		t.Error("Check succeeded on a number")
	}

	// A plain table with no ID metatable is not a handle.
	var te *TypeError
	_, err := checkTop(t, L, InstanceType, L.NewTable())
	if !errors.As(err, &te) {
		t.Fatalf("Check error = %v, want *TypeError", err)
	}
}

func TestInstanceIDsAreSequential(t *testing.T) {
	L := newState(t)
	insts := NewInstances(L)

	a := insts.Add(&payload{})
	b := insts.Add(&payload{})
	if a.ID == b.ID {
		t.Errorf("duplicate IDs: %d", a.ID)
	}
}
