package param

import (
	"strings"

	lua "github.com/yuin/gopher-lua"
)

// Signature is the ordered parameter type list of a bound function.
type Signature []Type

// String renders the signature as a comma-separated type name list.
func (s Signature) String() string {
	names := make([]string, len(s))
	for i, t := range s {
		names[i] = t.Name()
	}
	return strings.Join(names, ", ")
}

// Defaults builds a parameter set holding every type's default value.
func (s Signature) Defaults() *Set {
	vals := make([]Value, len(s))
	for i, t := range s {
		vals[i] = t.Default()
	}
	return &Set{vals: vals}
}

// CheckArgs extracts one value per signature entry from consecutive stack
// positions starting at base. The stack is left unchanged; the first
// mismatch aborts extraction.
func (s Signature) CheckArgs(L *lua.LState, base int) (*Set, error) {
	vals := make([]Value, len(s))
	for i, t := range s {
		v, err := t.Check(L, base+i)
		if err != nil {
			return nil, err
		}
		vals[i] = v
	}
	return &Set{vals: vals}, nil
}

// Set is an ordered sequence of typed values bound to one invocation.
// Sets are immutable once captured.
type Set struct {
	vals []Value
}

// NewSet builds a set from values in declared order.
func NewSet(vals ...Value) *Set {
	cp := make([]Value, len(vals))
	copy(cp, vals)
	return &Set{vals: cp}
}

// Len returns the number of values.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.vals)
}

// At returns the value at index i.
func (s *Set) At(i int) Value { return s.vals[i] }

// Values returns a copy of the value slice.
func (s *Set) Values() []Value {
	cp := make([]Value, len(s.vals))
	copy(cp, s.vals)
	return cp
}

// Push places every value on the Lua stack in declared order.
func (s *Set) Push(L *lua.LState) {
	if s == nil {
		return
	}
	for _, v := range s.vals {
		Push(L, v)
	}
}

// String renders the set as a parenthesized argument list.
func (s *Set) String() string {
	if s == nil {
		return "()"
	}
	var b strings.Builder
	b.WriteString("(")
	for i, v := range s.vals {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(v.String())
	}
	b.WriteString(")")
	return b.String()
}
