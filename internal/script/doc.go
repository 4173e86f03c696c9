// Package script owns the embedded Lua session and the function binding
// layer over it.
//
// Host functions are registered under dotted names ("provenance.undo",
// "set_i1") with a typed parameter signature. Registration installs a
// callable function table into the Lua globals whose __call metamethod is a
// trampoline that strict-extracts the arguments, routes the invocation
// through the attached Recorder (the provenance log), executes the Go
// function, and pushes its result.
//
// # Calling conventions
//
// Fresh calls arrive from Lua code (DoString/DoFile) or from the host via
// Call; both go through the trampoline and are therefore observed by the
// recorder. Replay re-invokes a binding with a previously captured
// parameter set, discards return values, and rewrites the binding's
// last-executed snapshot; the recorder's suppression state keeps replays
// out of the history.
//
// # Concurrency
//
// gopher-lua's LState is not goroutine-safe, and a Session does not add
// locking on top of it: one goroutine owns one Session. The provenance
// flags rely on this single-threaded discipline.
package script
