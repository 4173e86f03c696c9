package param

import (
	"math"
	"strconv"

	lua "github.com/yuin/gopher-lua"
)

// Kind identifies one of the closed set of supported parameter kinds.
type Kind int

// Supported kinds.
const (
	KindInt Kind = iota
	KindFloat
	KindBool
	KindString
	KindInstance
	KindList
)

// Value is a typed parameter value that can cross the Go-Lua boundary.
type Value interface {
	// Kind returns the value's kind.
	Kind() Kind

	// Type returns the descriptor for the value's type.
	Type() Type

	// LuaValue converts the value to its Lua representation.
	LuaValue(L *lua.LState) lua.LValue

	// String returns a human-readable rendering for diagnostics.
	String() string
}

// Type describes a supported parameter type: how to extract it from the
// Lua stack, what to call it, and what its default value is.
type Type interface {
	// Name returns the human-readable type name.
	Name() string

	// Default returns the type's default value.
	Default() Value

	// Check extracts the value at the given stack position. The Lua value
	// must already be of the matching type; Check never coerces. The stack
	// is left unchanged regardless of outcome.
	Check(L *lua.LState, pos int) (Value, error)
}

// Type descriptors for the scalar kinds.
var (
	IntType      Type = intType{}
	FloatType    Type = floatType{}
	BoolType     Type = boolType{}
	StringType   Type = stringType{}
	InstanceType Type = instanceType{}
)

// Push places a value on top of the Lua stack.
func Push(L *lua.LState, v Value) {
	L.Push(v.LuaValue(L))
}

// luaTypeName names a Lua value for error messages.
func luaTypeName(lv lua.LValue) string {
	if lv == lua.LNil {
		return "nil"
	}
	return lv.Type().String()
}

// Int is an integer parameter value.
type Int struct{ V int64 }

// Kind returns KindInt.
func (Int) Kind() Kind { return KindInt }

// Type returns IntType.
func (Int) Type() Type { return IntType }

// LuaValue converts the value to a Lua number.
func (v Int) LuaValue(*lua.LState) lua.LValue { return lua.LNumber(v.V) }

func (v Int) String() string { return strconv.FormatInt(v.V, 10) }

type intType struct{}

func (intType) Name() string   { return "int" }
func (intType) Default() Value { return Int{} }

func (intType) Check(L *lua.LState, pos int) (Value, error) {
	lv := L.Get(pos)
	n, ok := lv.(lua.LNumber)
	if !ok {
		return nil, &TypeError{Pos: pos, Want: "int", Got: luaTypeName(lv)}
	}
	f := float64(n)
	if f != math.Trunc(f) {
		return nil, &TypeError{Pos: pos, Want: "int", Got: "float"}
	}
	return Int{V: int64(f)}, nil
}

// Float is a floating-point parameter value.
type Float struct{ V float64 }

// Kind returns KindFloat.
func (Float) Kind() Kind { return KindFloat }

// Type returns FloatType.
func (Float) Type() Type { return FloatType }

// LuaValue converts the value to a Lua number.
func (v Float) LuaValue(*lua.LState) lua.LValue { return lua.LNumber(v.V) }

func (v Float) String() string { return strconv.FormatFloat(v.V, 'g', 4, 64) }

type floatType struct{}

func (floatType) Name() string   { return "float" }
func (floatType) Default() Value { return Float{} }

func (floatType) Check(L *lua.LState, pos int) (Value, error) {
	lv := L.Get(pos)
	n, ok := lv.(lua.LNumber)
	if !ok {
		return nil, &TypeError{Pos: pos, Want: "float", Got: luaTypeName(lv)}
	}
	return Float{V: float64(n)}, nil
}

// Bool is a boolean parameter value.
type Bool struct{ V bool }

// Kind returns KindBool.
func (Bool) Kind() Kind { return KindBool }

// Type returns BoolType.
func (Bool) Type() Type { return BoolType }

// LuaValue converts the value to a Lua boolean.
func (v Bool) LuaValue(*lua.LState) lua.LValue { return lua.LBool(v.V) }

func (v Bool) String() string { return strconv.FormatBool(v.V) }

type boolType struct{}

func (boolType) Name() string   { return "bool" }
func (boolType) Default() Value { return Bool{} }

func (boolType) Check(L *lua.LState, pos int) (Value, error) {
	lv := L.Get(pos)
	b, ok := lv.(lua.LBool)
	if !ok {
		return nil, &TypeError{Pos: pos, Want: "bool", Got: luaTypeName(lv)}
	}
	return Bool{V: bool(b)}, nil
}

// String is a string parameter value.
type String struct{ V string }

// Kind returns KindString.
func (String) Kind() Kind { return KindString }

// Type returns StringType.
func (String) Type() Type { return StringType }

// LuaValue converts the value to a Lua string.
func (v String) LuaValue(*lua.LState) lua.LValue { return lua.LString(v.V) }

func (v String) String() string { return "'" + v.V + "'" }

type stringType struct{}

func (stringType) Name() string   { return "string" }
func (stringType) Default() Value { return String{} }

func (stringType) Check(L *lua.LState, pos int) (Value, error) {
	lv := L.Get(pos)
	s, ok := lv.(lua.LString)
	if !ok {
		return nil, &TypeError{Pos: pos, Want: "string", Got: luaTypeName(lv)}
	}
	return String{V: string(s)}, nil
}
