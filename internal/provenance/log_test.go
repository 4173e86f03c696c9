package provenance

import (
	"errors"
	"strings"
	"testing"

	"github.com/dshills/luaprov/internal/script"
	"github.com/dshills/luaprov/internal/script/param"
)

// appState is the mutable host state the tracked test functions write to.
type appState struct {
	i1, i2 int64
	f1     float64
	s1     string
	inst   param.Instance
}

// newHarness builds a session with an attached log, the provenance
// meta-functions, and a handful of tracked setters over appState.
func newHarness(t *testing.T, opts ...Option) (*script.Session, *Log, *appState) {
	t.Helper()

	sess := script.NewSession()
	t.Cleanup(func() { sess.Close() })

	log := New(sess, opts...)
	sess.SetRecorder(log)
	if err := log.Register(sess); err != nil {
		t.Fatalf("registering meta-functions: %v", err)
	}

	st := &appState{inst: param.Instance{ID: param.NoInstance}}
	regs := []struct {
		name string
		sig  param.Signature
		fn   script.Func
	}{
		{"set_i1", param.Signature{param.IntType}, func(a []param.Value) (param.Value, error) {
			st.i1 = a[0].(param.Int).V
			return nil, nil
		}},
		{"set_i2", param.Signature{param.IntType}, func(a []param.Value) (param.Value, error) {
			st.i2 = a[0].(param.Int).V
			return nil, nil
		}},
		{"set_f1", param.Signature{param.FloatType}, func(a []param.Value) (param.Value, error) {
			st.f1 = a[0].(param.Float).V
			return nil, nil
		}},
		{"set_s1", param.Signature{param.StringType}, func(a []param.Value) (param.Value, error) {
			st.s1 = a[0].(param.String).V
			return nil, nil
		}},
		{"set_inst", param.Signature{param.InstanceType}, func(a []param.Value) (param.Value, error) {
			st.inst = a[0].(param.Instance)
			return nil, nil
		}},
	}
	for _, r := range regs {
		if err := sess.Register(r.name, "", r.sig, r.fn); err != nil {
			t.Fatalf("Register(%s): %v", r.name, err)
		}
	}
	return sess, log, st
}

func do(t *testing.T, sess *script.Session, code string) {
	t.Helper()
	if err := sess.DoString(code); err != nil {
		t.Fatalf("DoString(%q): %v", code, err)
	}
}

func mustUndo(t *testing.T, log *Log) {
	t.Helper()
	if err := log.Undo(); err != nil {
		t.Fatalf("Undo: %v", err)
	}
}

func mustRedo(t *testing.T, log *Log) {
	t.Helper()
	if err := log.Redo(); err != nil {
		t.Fatalf("Redo: %v", err)
	}
}

func TestUndoRedoWalk(t *testing.T) {
	sess, log, st := newHarness(t)

	do(t, sess, "set_i1(10)")
	do(t, sess, "set_i1(20)")
	do(t, sess, "set_f1(2.5)")
	do(t, sess, "set_s1('hello')")
	do(t, sess, "set_i2(3)")

	if st.i1 != 20 || st.i2 != 3 || st.f1 != 2.5 || st.s1 != "hello" {
		t.Fatalf("state after calls = %+v", *st)
	}
	if log.UndoCount() != 5 || log.RedoCount() != 0 {
		t.Fatalf("undo/redo counts = %d/%d, want 5/0", log.UndoCount(), log.RedoCount())
	}

	mustUndo(t, log)
	if st.i2 != 0 {
		t.Errorf("i2 = %d after undo, want 0", st.i2)
	}
	mustUndo(t, log)
	if st.s1 != "" {
		t.Errorf("s1 = %q after undo, want empty", st.s1)
	}
	mustUndo(t, log)
	if st.f1 != 0 {
		t.Errorf("f1 = %v after undo, want 0", st.f1)
	}
	mustUndo(t, log)
	if st.i1 != 10 {
		t.Errorf("i1 = %d after undo, want the prior value 10", st.i1)
	}
	mustUndo(t, log)
	if st.i1 != 0 {
		t.Errorf("i1 = %d after full unwind, want the type default 0", st.i1)
	}

	if log.CanUndo() || !log.CanRedo() {
		t.Fatalf("CanUndo/CanRedo = %v/%v at the bottom", log.CanUndo(), log.CanRedo())
	}

	for i := 0; i < 5; i++ {
		mustRedo(t, log)
	}
	if st.i1 != 20 || st.i2 != 3 || st.f1 != 2.5 || st.s1 != "hello" {
		t.Fatalf("state after full redo = %+v", *st)
	}
	if log.Cursor() != 5 {
		t.Errorf("cursor = %d, want 5", log.Cursor())
	}
	if sess.L.GetTop() != 0 {
		t.Errorf("stack top = %d after the walk, want 0", sess.L.GetTop())
	}
}

func TestUndoAtBottom(t *testing.T) {
	sess, log, st := newHarness(t)

	if err := log.Undo(); !errors.Is(err, ErrInvalidUndo) {
		t.Errorf("Undo on empty history = %v, want ErrInvalidUndo", err)
	}

	do(t, sess, "set_i1(1)")
	mustUndo(t, log)
	for i := 0; i < 3; i++ {
		if err := log.Undo(); !errors.Is(err, ErrInvalidUndo) {
			t.Errorf("Undo past the bottom = %v, want ErrInvalidUndo", err)
		}
	}
	if st.i1 != 0 {
		t.Errorf("i1 = %d, repeated bottom undos must not mutate state", st.i1)
	}
	if log.Len() != 1 || log.Cursor() != 0 {
		t.Errorf("len/cursor = %d/%d, want 1/0", log.Len(), log.Cursor())
	}
}

func TestRedoAtTop(t *testing.T) {
	sess, log, st := newHarness(t)

	if err := log.Redo(); !errors.Is(err, ErrInvalidRedo) {
		t.Errorf("Redo on empty history = %v, want ErrInvalidRedo", err)
	}

	do(t, sess, "set_i1(1)")
	for i := 0; i < 3; i++ {
		if err := log.Redo(); !errors.Is(err, ErrInvalidRedo) {
			t.Errorf("Redo at the top = %v, want ErrInvalidRedo", err)
		}
	}
	if st.i1 != 1 {
		t.Errorf("i1 = %d, repeated top redos must not mutate state", st.i1)
	}
	if log.Cursor() != 1 {
		t.Errorf("cursor = %d, want 1", log.Cursor())
	}
}

func TestBranchTruncation(t *testing.T) {
	sess, log, st := newHarness(t)

	do(t, sess, "set_i1(1)")
	do(t, sess, "set_i1(2)")
	mustUndo(t, log)
	if st.i1 != 1 {
		t.Fatalf("i1 = %d after undo, want 1", st.i1)
	}

	// A fresh call from the middle of the stack erases the redo branch.
	do(t, sess, "set_i1(5)")
	if log.Len() != 2 || log.Cursor() != 2 {
		t.Fatalf("len/cursor = %d/%d, want 2/2", log.Len(), log.Cursor())
	}
	if err := log.Redo(); !errors.Is(err, ErrInvalidRedo) {
		t.Errorf("Redo after truncation = %v, want ErrInvalidRedo", err)
	}

	mustUndo(t, log)
	if st.i1 != 1 {
		t.Errorf("i1 = %d, want 1", st.i1)
	}
	mustUndo(t, log)
	if st.i1 != 0 {
		t.Errorf("i1 = %d, want 0", st.i1)
	}
}

func TestInterleavedUndoRedoWithFreshCall(t *testing.T) {
	sess, log, st := newHarness(t)

	do(t, sess, "set_i1(1)")
	do(t, sess, "set_i1(2)")
	do(t, sess, "set_i2(10)")

	mustUndo(t, log)
	if st.i2 != 0 {
		t.Fatalf("i2 = %d, want 0", st.i2)
	}
	mustUndo(t, log)
	if st.i1 != 1 {
		t.Fatalf("i1 = %d, want 1", st.i1)
	}
	mustRedo(t, log)
	if st.i1 != 2 {
		t.Fatalf("i1 = %d, want 2", st.i1)
	}

	// The fresh call discards the stale set_i2 redo entry.
	do(t, sess, "set_i1(3)")
	if err := log.Redo(); !errors.Is(err, ErrInvalidRedo) {
		t.Errorf("Redo = %v, want ErrInvalidRedo", err)
	}
	if log.Len() != 3 || log.Cursor() != 3 {
		t.Errorf("len/cursor = %d/%d, want 3/3", log.Len(), log.Cursor())
	}
}

func TestUndoRewritesSnapshot(t *testing.T) {
	sess, log, _ := newHarness(t)

	do(t, sess, "set_i1(10)")
	do(t, sess, "set_i1(20)")
	mustUndo(t, log)

	// The next delta must be computed against the state the undo just
	// produced, not the pre-undo state.
	last, err := sess.LastExecuted("set_i1")
	if err != nil {
		t.Fatalf("LastExecuted: %v", err)
	}
	if last.String() != "(10)" {
		t.Errorf("snapshot = %s after undo, want (10)", last)
	}
}

func TestUndoResetsInstanceToDefault(t *testing.T) {
	sess, log, st := newHarness(t)

	h := sess.Instances().Add(struct{}{})
	if _, err := sess.Call("set_inst", h); err != nil {
		t.Fatalf("Call: %v", err)
	}
	if st.inst.ID != h.ID {
		t.Fatalf("inst = %v, want %v", st.inst, h)
	}

	mustUndo(t, log)
	if !st.inst.IsDefault() {
		t.Errorf("inst = %v after undo, want the default handle", st.inst)
	}
	mustRedo(t, log)
	if st.inst.ID != h.ID {
		t.Errorf("inst = %v after redo, want %v", st.inst, h)
	}
}

func TestReplayIsNotRecorded(t *testing.T) {
	sess, log, _ := newHarness(t)

	do(t, sess, "set_i1(1)")
	do(t, sess, "set_i1(2)")
	mustUndo(t, log)
	mustRedo(t, log)

	if log.Len() != 2 {
		t.Errorf("len = %d, replays must not append history", log.Len())
	}
}

func TestReentryException(t *testing.T) {
	sess, log, st := newHarness(t)

	err := sess.Register("outer", "", nil, func([]param.Value) (param.Value, error) {
		_, err := sess.Call("set_i1", param.Int{V: 5})
		return nil, err
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	callErr := sess.DoString("outer()")
	if callErr == nil || !strings.Contains(callErr.Error(), "reentry") {
		t.Fatalf("err = %v, want a reentry failure", callErr)
	}
	if st.i1 != 0 {
		t.Errorf("i1 = %d, the nested call must not execute", st.i1)
	}
	if log.Len() != 0 {
		t.Errorf("len = %d, the failed outer call must not be recorded", log.Len())
	}

	// The scope must have been released on the error path.
	do(t, sess, "set_i1(9)")
	if log.Len() != 1 {
		t.Errorf("len = %d after recovery, want 1", log.Len())
	}
}

func TestReentryTolerated(t *testing.T) {
	sess, log, st := newHarness(t, WithReentryException(false))

	err := sess.Register("outer", "", nil, func([]param.Value) (param.Value, error) {
		_, err := sess.Call("set_i1", param.Int{V: 5})
		return nil, err
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	do(t, sess, "outer()")
	if st.i1 != 5 {
		t.Errorf("i1 = %d, the nested call must execute", st.i1)
	}
	if log.Len() != 1 {
		t.Fatalf("len = %d, want only the outer call recorded", log.Len())
	}
	if got := log.History()[0].Name; got != "outer" {
		t.Errorf("recorded call = %q, want outer", got)
	}
}

func TestExemptCallInsideScope(t *testing.T) {
	sess, log, _ := newHarness(t)

	// Meta-operations stay callable from inside a tracked call even with
	// the reentry exception on.
	err := sess.Register("outer", "", nil, func([]param.Value) (param.Value, error) {
		_, err := sess.Call("provenance.history")
		return nil, err
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	do(t, sess, "outer()")
	if log.Len() != 1 {
		t.Errorf("len = %d, want 1", log.Len())
	}
}

func TestDisableClearsHistory(t *testing.T) {
	sess, log, st := newHarness(t)

	do(t, sess, "set_i1(1)")
	do(t, sess, "set_i1(2)")
	log.SetEnabled(false)
	if log.Len() != 0 || log.CanUndo() {
		t.Fatalf("len = %d after disable, want 0", log.Len())
	}

	// Disabled tracking still executes calls, silently.
	do(t, sess, "set_i1(3)")
	if st.i1 != 3 {
		t.Errorf("i1 = %d, want 3", st.i1)
	}
	if log.Len() != 0 {
		t.Errorf("len = %d while disabled, want 0", log.Len())
	}

	log.SetEnabled(true)
	do(t, sess, "set_i1(4)")
	if log.Len() != 1 {
		t.Errorf("len = %d after re-enable, want 1", log.Len())
	}
}

func TestReplayFailure(t *testing.T) {
	tests := []struct {
		name    string
		corrupt string
		want    error
	}{
		{"table removed", "set_i1 = nil", script.ErrNoFunctionTable},
		{"not a table", "set_i1 = 5", script.ErrNotAFunction},
		{"callable slot emptied", "getmetatable(set_i1).__call = nil", script.ErrNoFunctionPointer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sess, log, _ := newHarness(t)
			do(t, sess, "set_i1(1)")
			do(t, sess, tt.corrupt)

			err := log.Undo()
			if !errors.Is(err, ErrInvalidUndo) {
				t.Errorf("err = %v, want ErrInvalidUndo", err)
			}
			if !errors.Is(err, ErrInvalidReplay) {
				t.Errorf("err = %v, want ErrInvalidReplay in the chain", err)
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v in the chain", err, tt.want)
			}
			if log.Cursor() != 1 {
				t.Errorf("cursor = %d after a failed undo, want 1", log.Cursor())
			}
		})
	}
}

func TestMaxEntriesEviction(t *testing.T) {
	sess, log, st := newHarness(t, WithMaxEntries(3))

	for _, code := range []string{"set_i1(1)", "set_i1(2)", "set_i1(3)", "set_i1(4)", "set_i1(5)"} {
		do(t, sess, code)
	}
	if log.Len() != 3 || log.Cursor() != 3 {
		t.Fatalf("len/cursor = %d/%d, want 3/3", log.Len(), log.Cursor())
	}

	mustUndo(t, log)
	mustUndo(t, log)
	mustUndo(t, log)
	if st.i1 != 2 {
		t.Errorf("i1 = %d after unwinding the capped stack, want 2", st.i1)
	}
	if err := log.Undo(); !errors.Is(err, ErrInvalidUndo) {
		t.Errorf("Undo past evicted history = %v, want ErrInvalidUndo", err)
	}
}

func TestSetMaxEntriesEvicts(t *testing.T) {
	sess, log, _ := newHarness(t)

	for _, code := range []string{"set_i1(1)", "set_i1(2)", "set_i1(3)", "set_i1(4)"} {
		do(t, sess, code)
	}
	log.SetMaxEntries(2)
	if log.Len() != 2 || log.Cursor() != 2 {
		t.Errorf("len/cursor = %d/%d, want 2/2", log.Len(), log.Cursor())
	}
	if log.MaxEntries() != 2 {
		t.Errorf("MaxEntries = %d, want 2", log.MaxEntries())
	}

	// Lifting the cap lets history grow again.
	log.SetMaxEntries(0)
	do(t, sess, "set_i1(5)")
	do(t, sess, "set_i1(6)")
	if log.Len() != 4 {
		t.Errorf("len = %d after lifting the cap, want 4", log.Len())
	}
}

func TestHistoryEntries(t *testing.T) {
	sess, log, _ := newHarness(t)

	do(t, sess, "set_i1(10)")
	do(t, sess, "set_s1('a')")

	h := log.History()
	if len(h) != 2 {
		t.Fatalf("history len = %d, want 2", len(h))
	}
	if h[0].Name != "set_i1" || h[0].Undo != "(0)" || h[0].Redo != "(10)" {
		t.Errorf("entry 0 = %+v", h[0])
	}
	if h[1].Name != "set_s1" || h[1].Undo != "('')" || h[1].Redo != "('a')" {
		t.Errorf("entry 1 = %+v", h[1])
	}
}

func TestClear(t *testing.T) {
	sess, log, st := newHarness(t)

	do(t, sess, "set_i1(1)")
	do(t, sess, "set_i1(2)")
	log.Clear()

	if log.Len() != 0 || log.CanUndo() || log.CanRedo() {
		t.Errorf("history not empty after Clear")
	}
	if st.i1 != 2 {
		t.Errorf("i1 = %d, Clear must not touch state", st.i1)
	}
	if err := log.Undo(); !errors.Is(err, ErrInvalidUndo) {
		t.Errorf("Undo after Clear = %v, want ErrInvalidUndo", err)
	}
}
