package script

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/luaprov/internal/script/param"
)

// Recorder observes qualifying calls. It is implemented by the provenance
// log; a session without a recorder executes calls without tracking them.
//
// The trampoline opens the recording scope before the bound function runs
// and closes it after the execution has been logged, so a nested tracked
// call observes the scope and can be rejected or dropped.
type Recorder interface {
	// BeginCall opens the recording scope for a tracked call. It returns
	// false when the call should execute without being recorded (replay
	// suppression, tracking disabled, an exempt call arriving inside
	// another call's scope, or a tolerated reentry). A non-nil error
	// aborts the call before the bound function runs.
	BeginCall(name string, exempt bool) (record bool, err error)

	// EndCall closes a scope opened by a BeginCall that returned true.
	// It runs on every exit path, including errors.
	EndCall(name string)

	// LogExecution records a successfully executed call: the binding's
	// name, its exemption flag, the parameters just used, and the
	// binding's previous last-executed snapshot.
	LogExecution(name string, exempt bool, called, previous *param.Set) error
}

// Session owns an embedded Lua state and the function bindings installed
// into it. One goroutine owns one session; see the package documentation.
type Session struct {
	L *lua.LState

	id        string
	bindings  map[string]*Binding
	instances *param.Instances
	recorder  Recorder
	closed    bool
}

// Option configures a session.
type Option func(*Session)

// WithRecorder attaches a recorder at construction time.
func WithRecorder(r Recorder) Option {
	return func(s *Session) { s.recorder = r }
}

// NewSession creates a session with a sandboxed Lua state: only the base,
// table, string, and math libraries are opened.
func NewSession(opts ...Option) *Session {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	openSafeLibraries(L)

	s := &Session{
		L:         L,
		id:        uuid.NewString(),
		bindings:  make(map[string]*Binding),
		instances: param.NewInstances(L),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// openSafeLibraries opens only safe Lua standard libraries. io, os, debug,
// and package stay closed.
func openSafeLibraries(L *lua.LState) {
	for _, open := range []lua.LGFunction{lua.OpenBase, lua.OpenTable, lua.OpenString, lua.OpenMath} {
		// Each loader pushes its module table; keep the stack balanced.
		open(L)
		L.Pop(1)
	}
}

// ID returns the session's unique identifier.
func (s *Session) ID() string { return s.id }

// String identifies the session for diagnostics.
func (s *Session) String() string {
	return fmt.Sprintf("session %s (%d functions)", s.id, len(s.bindings))
}

// SetRecorder attaches the recorder observing qualifying calls.
func (s *Session) SetRecorder(r Recorder) { s.recorder = r }

// Instances returns the session's instance indirection table.
func (s *Session) Instances() *param.Instances { return s.instances }

// Register binds a Go function under a dotted name. The name is installed
// into the Lua globals as a callable function table; re-registering an
// existing name fails with ErrDuplicateFunction.
func (s *Session) Register(name, description string, sig param.Signature, fn Func, opts ...BindOption) error {
	if s.closed {
		return ErrSessionClosed
	}
	if fn == nil {
		return fmt.Errorf("%w: %s has no implementation", ErrBadName, name)
	}
	if _, exists := s.bindings[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateFunction, name)
	}

	b := &Binding{
		name:        name,
		description: description,
		sig:         sig,
		fn:          fn,
		defaults:    sig.Defaults(),
	}
	b.lastExec = b.defaults
	for _, opt := range opts {
		opt(b)
	}

	tbl := s.L.NewTable()
	tbl.RawSetString("name", lua.LString(name))
	tbl.RawSetString("description", lua.LString(description))
	mt := s.L.NewTable()
	mt.RawSetString("__call", s.L.NewFunction(s.trampoline(b)))
	s.L.SetMetatable(tbl, mt)

	if err := s.installPath(name, tbl); err != nil {
		return err
	}
	s.bindings[name] = b
	return nil
}

// Unregister removes a binding and its Lua global path entry.
func (s *Session) Unregister(name string) error {
	if s.closed {
		return ErrSessionClosed
	}
	if _, ok := s.bindings[name]; !ok {
		return fmt.Errorf("%w: %s", ErrFunctionNotFound, name)
	}
	delete(s.bindings, name)
	s.removePath(name)
	return nil
}

// Binding resolves a name to its binding.
func (s *Session) Binding(name string) (*Binding, bool) {
	b, ok := s.bindings[name]
	return b, ok
}

// Bindings returns all registered names, sorted.
func (s *Session) Bindings() []string {
	names := make([]string, 0, len(s.bindings))
	for name := range s.bindings {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Describe renders a binding as "name(sig) -- description".
func (s *Session) Describe(name string) (string, error) {
	b, ok := s.bindings[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrFunctionNotFound, name)
	}
	desc := fmt.Sprintf("%s(%s)", b.name, b.sig)
	if b.description != "" {
		desc += " -- " + b.description
	}
	return desc, nil
}

// LastExecuted returns a binding's last-executed parameter snapshot.
func (s *Session) LastExecuted(name string) (*param.Set, error) {
	b, ok := s.bindings[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrFunctionNotFound, name)
	}
	return b.lastExec, nil
}

// SetLastExecuted rewrites a binding's last-executed parameter snapshot.
// The provenance log uses this so the next undo delta is computed against
// the state it just produced.
func (s *Session) SetLastExecuted(name string, params *param.Set) error {
	b, ok := s.bindings[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrFunctionNotFound, name)
	}
	b.lastExec = params
	return nil
}

// DoString executes a chunk of Lua code.
func (s *Session) DoString(code string) error {
	if s.closed {
		return ErrSessionClosed
	}
	return s.L.DoString(code)
}

// DoFile executes a Lua file.
func (s *Session) DoFile(path string) error {
	if s.closed {
		return ErrSessionClosed
	}
	return s.L.DoFile(path)
}

// Call invokes a binding from the host through the Lua calling convention,
// so the call is observed by the recorder exactly like a scripted call.
// The first return value is returned as a raw Lua value (LNil for none).
func (s *Session) Call(name string, args ...param.Value) (lua.LValue, error) {
	if s.closed {
		return lua.LNil, ErrSessionClosed
	}
	fn, tbl, err := s.resolveCallable(name)
	if err != nil {
		return lua.LNil, err
	}

	L := s.L
	top := L.GetTop()
	defer L.SetTop(top)

	L.Push(fn)
	L.Push(tbl) // the function table is always the first argument
	for _, a := range args {
		param.Push(L, a)
	}
	if err := L.PCall(len(args)+1, lua.MultRet, nil); err != nil {
		return lua.LNil, err
	}
	if L.GetTop() > top {
		return L.Get(top + 1), nil
	}
	return lua.LNil, nil
}

// Replay re-invokes a binding with a previously captured parameter set,
// discarding return values, and rewrites the binding's last-executed
// snapshot to the replayed parameters. The caller (the provenance log) is
// responsible for suppressing recording around the call.
func (s *Session) Replay(name string, params *param.Set) error {
	if s.closed {
		return ErrSessionClosed
	}
	b, ok := s.bindings[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrFunctionNotFound, name)
	}
	fn, tbl, err := s.resolveCallable(name)
	if err != nil {
		return err
	}

	L := s.L
	top := L.GetTop()
	defer L.SetTop(top)

	L.Push(fn)
	L.Push(tbl)
	params.Push(L)
	if err := L.PCall(params.Len()+1, 0, nil); err != nil {
		return err
	}

	b.lastExec = params
	return nil
}

// resolveCallable walks a binding's Lua global path and returns its
// callable and function table. The error taxonomy mirrors replay
// resolution: missing table, missing callable slot, not callable.
func (s *Session) resolveCallable(name string) (*lua.LFunction, *lua.LTable, error) {
	lv := s.resolvePath(name)
	if lv == lua.LNil {
		return nil, nil, fmt.Errorf("%w: %s", ErrNoFunctionTable, name)
	}
	tbl, ok := lv.(*lua.LTable)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrNotAFunction, name)
	}
	mt, ok := s.L.GetMetatable(tbl).(*lua.LTable)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrNotAFunction, name)
	}
	fn, ok := mt.RawGetString("__call").(*lua.LFunction)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrNoFunctionPointer, name)
	}
	return fn, tbl, nil
}

// trampoline builds the __call implementation for a binding. Argument 1 is
// always the function table itself; declared parameters follow.
func (s *Session) trampoline(b *Binding) lua.LGFunction {
	return func(L *lua.LState) int {
		nargs := L.GetTop() - 1
		if nargs != len(b.sig) {
			L.RaiseError("%s expects %d arguments, got %d", b.name, len(b.sig), nargs)
			return 0
		}
		called, err := b.sig.CheckArgs(L, 2)
		if err != nil {
			L.RaiseError("%s: %s", b.name, err)
			return 0
		}

		record := false
		if s.recorder != nil {
			record, err = s.recorder.BeginCall(b.name, b.exempt)
			if err != nil {
				L.RaiseError("%s: %s", b.name, err)
				return 0
			}
			if record {
				// The scope must close on every exit path, including a
				// RaiseError unwind below.
				defer s.recorder.EndCall(b.name)
			}
		}

		ret, err := b.fn(called.Values())
		if err != nil {
			L.RaiseError("%s: %s", b.name, err)
			return 0
		}

		if record {
			if err := s.recorder.LogExecution(b.name, b.exempt, called, b.lastExec); err != nil {
				L.RaiseError("%s: %s", b.name, err)
				return 0
			}
		} else if s.recorder == nil && !b.exempt {
			b.lastExec = called
		}

		if ret == nil {
			return 0
		}
		param.Push(L, ret)
		return 1
	}
}

// installPath installs a value under a dotted global name, creating
// intermediate tables as needed.
func (s *Session) installPath(name string, tbl *lua.LTable) error {
	parts := strings.Split(name, ".")
	for _, p := range parts {
		if p == "" {
			return fmt.Errorf("%w: %q", ErrBadName, name)
		}
	}

	var cur lua.LValue = s.L.Get(lua.GlobalsIndex)
	for _, p := range parts[:len(parts)-1] {
		ct, ok := cur.(*lua.LTable)
		if !ok {
			return fmt.Errorf("%w: %q collides with a non-table", ErrBadName, name)
		}
		next := ct.RawGetString(p)
		if next == lua.LNil {
			nt := s.L.NewTable()
			ct.RawSetString(p, nt)
			next = nt
		}
		cur = next
	}

	ct, ok := cur.(*lua.LTable)
	if !ok {
		return fmt.Errorf("%w: %q collides with a non-table", ErrBadName, name)
	}
	leaf := parts[len(parts)-1]
	if ct.RawGetString(leaf) != lua.LNil {
		return fmt.Errorf("%w: %s", ErrDuplicateFunction, name)
	}
	ct.RawSetString(leaf, tbl)
	return nil
}

// resolvePath walks a dotted global name, returning LNil when any step is
// missing.
func (s *Session) resolvePath(name string) lua.LValue {
	parts := strings.Split(name, ".")
	var cur lua.LValue = s.L.Get(lua.GlobalsIndex)
	for _, p := range parts {
		ct, ok := cur.(*lua.LTable)
		if !ok {
			return lua.LNil
		}
		cur = ct.RawGetString(p)
	}
	return cur
}

// removePath clears the leaf entry of a dotted global name. Intermediate
// tables are left in place; other bindings may share them.
func (s *Session) removePath(name string) {
	parts := strings.Split(name, ".")
	var cur lua.LValue = s.L.Get(lua.GlobalsIndex)
	for _, p := range parts[:len(parts)-1] {
		ct, ok := cur.(*lua.LTable)
		if !ok {
			return
		}
		cur = ct.RawGetString(p)
	}
	if ct, ok := cur.(*lua.LTable); ok {
		ct.RawSetString(parts[len(parts)-1], lua.LNil)
	}
}

// Closed reports whether the session has been closed.
func (s *Session) Closed() bool { return s.closed }

// Close releases the Lua state. Further operations fail with
// ErrSessionClosed.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	s.L.Close()
	s.closed = true
	return nil
}
