package param

import (
	"strings"

	lua "github.com/yuin/gopher-lua"
)

// List is a homogeneous ordered sequence of values of a single element type.
type List struct {
	Elem  Type
	Items []Value
}

// Kind returns KindList.
func (List) Kind() Kind { return KindList }

// Type returns the list type for the element type.
func (v List) Type() Type { return ListOf(v.Elem) }

// LuaValue converts the list to a Lua table with 1-based integer keys.
func (v List) LuaValue(L *lua.LState) lua.LValue {
	t := L.NewTable()
	for i, item := range v.Items {
		t.RawSetInt(i+1, item.LuaValue(L))
	}
	return t
}

func (v List) String() string {
	var b strings.Builder
	b.WriteString("{")
	for i, item := range v.Items {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(item.String())
	}
	b.WriteString("}")
	return b.String()
}

// ListOf returns the type descriptor for a list with the given element type.
func ListOf(elem Type) Type {
	return listType{elem: elem}
}

type listType struct{ elem Type }

func (t listType) Name() string   { return "list(" + t.elem.Name() + ")" }
func (t listType) Default() Value { return List{Elem: t.elem} }

// Check extracts a table at pos as a list. Elements are read from 1-based
// integer keys until the first nil, each checked against the element type.
func (t listType) Check(L *lua.LState, pos int) (Value, error) {
	lv := L.Get(pos)
	tbl, ok := lv.(*lua.LTable)
	if !ok {
		return nil, &TypeError{Pos: pos, Want: t.Name(), Got: luaTypeName(lv)}
	}

	list := List{Elem: t.elem}
	for i := 1; ; i++ {
		ev := tbl.RawGetInt(i)
		if ev == lua.LNil {
			break
		}

		// Element checks operate on stack positions, so stage the element
		// on the stack and pop it again whatever the outcome.
		L.Push(ev)
		item, err := t.elem.Check(L, L.GetTop())
		L.Pop(1)
		if err != nil {
			return nil, err
		}
		list.Items = append(list.Items, item)
	}
	return list, nil
}
