// Package param implements the typed parameter layer between Go and Lua.
//
// Bound functions declare their parameters as a Signature, an ordered list
// of Type descriptors drawn from a closed set of kinds:
//   - int, float, bool, string
//   - instance (an opaque handle identified by a numeric ID)
//   - list (a homogeneous ordered sequence of any supported type, recursively)
//
// Each Type supplies strict extraction by stack position, pushing onto the
// Lua stack, a human-readable value rendering, a type name, and a default
// value. Extraction is strict: a mismatched Lua value produces a *TypeError
// rather than a coercion.
//
// # Parameter sets
//
// A Set is the ordered sequence of values bound to one invocation. Sets are
// treated as immutable once captured; the provenance layer stores two per
// tracked call (the pre-call snapshot and the call's actual arguments).
//
// # Instances
//
// Instance values carry only a numeric ID; the canonical Lua container for
// an ID lives in the session's instance table (see Instances). The ID -1 is
// the sentinel for "no instance". Pushing an ID always resolves to the same
// container table, preserving identity across capture and replay.
package param
