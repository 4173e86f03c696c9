// Package provenance records every qualifying call made through the
// scripting session as an undo/redo-capable entry.
//
// Each entry pairs a binding name with two parameter sets: the undo set
// (the binding's last-executed parameters before the call) and the redo
// set (the call's actual arguments). A cursor into the entry list
// separates applied history from redo-able future. Undoing replays the
// entry below the cursor with its undo set; redoing replays the entry at
// the cursor with its redo set. A fresh qualifying call truncates
// everything at or beyond the cursor before appending, so stale redo
// history never survives a branch.
//
// # Qualifying calls
//
// A call qualifies when tracking is enabled, the binding is not exempt,
// and no reentry or replay suppression is active. The meta-operations the
// log itself exposes to Lua (provenance.undo, provenance.redo,
// provenance.enable, provenance.clear, provenance.enableReentryException,
// provenance.history) are all exempt and never appear in their own
// history.
//
// # Reentry
//
// A tracked function that invokes another tracked function while its own
// call is being recorded would corrupt the stack bookkeeping. By default
// the nested call fails with ErrReentry; with the reentry exception
// disabled it executes silently without being recorded while the outer
// call still is.
//
// # Concurrency
//
// The log shares the session's single-goroutine discipline. Its flags are
// plain booleans; they are correct because one goroutine owns one session
// and its log.
package provenance
