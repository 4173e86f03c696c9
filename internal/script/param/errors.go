package param

import "fmt"

// TypeError reports a strict extraction failure: the Lua value at a stack
// position did not match the declared parameter type.
type TypeError struct {
	// Pos is the stack position of the offending value.
	Pos int

	// Want is the declared type name.
	Want string

	// Got names the Lua type actually found.
	Got string
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("parameter %d: expected %s, got %s", e.Pos, e.Want, e.Got)
}
