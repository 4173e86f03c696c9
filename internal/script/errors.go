package script

import "errors"

// Binding layer errors.
var (
	// ErrSessionClosed is returned when using a closed session.
	ErrSessionClosed = errors.New("session is closed")

	// ErrDuplicateFunction is returned when registering a name that is
	// already bound. Registration never silently overwrites.
	ErrDuplicateFunction = errors.New("function already registered")

	// ErrFunctionNotFound is returned when a name resolves to no binding.
	ErrFunctionNotFound = errors.New("function not registered")

	// ErrBadName is returned for registration names that cannot be
	// installed as a Lua global path.
	ErrBadName = errors.New("invalid function name")

	// Replay resolution errors. The provenance layer wraps these into its
	// undo/redo error taxonomy before they reach a caller.

	// ErrNoFunctionTable is returned when a binding's Lua function table
	// is missing from the globals.
	ErrNoFunctionTable = errors.New("function table does not exist")

	// ErrNoFunctionPointer is returned when the function table's callable
	// slot is empty.
	ErrNoFunctionPointer = errors.New("function has invalid function pointer")

	// ErrNotAFunction is returned when the Lua value found under a
	// binding's name is not callable at all.
	ErrNotAFunction = errors.New("does not appear to be a valid function")
)
