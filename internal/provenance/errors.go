package provenance

import "errors"

// Provenance errors.
var (
	// ErrReentry is returned when a tracked function is invoked while
	// another tracked call is still being recorded. It aborts the inner
	// call, not the session.
	ErrReentry = errors.New("provenance reentry not allowed; consider disabling the reentry exception")

	// ErrInvalidUndo is returned when there is nothing to undo or the
	// undo replay itself failed. History is left intact.
	ErrInvalidUndo = errors.New("invalid undo")

	// ErrInvalidRedo is returned when there is nothing to redo or the
	// redo replay itself failed. History is left intact.
	ErrInvalidRedo = errors.New("invalid redo")

	// ErrInvalidReplay reports an internal replay resolution failure. It
	// is always wrapped in ErrInvalidUndo or ErrInvalidRedo before it
	// reaches a caller.
	ErrInvalidReplay = errors.New("invalid undo/redo replay")
)
