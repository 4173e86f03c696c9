package provenance

import (
	"fmt"

	"github.com/dshills/luaprov/internal/script/param"
)

// Executor is the slice of the session the log needs: replaying a binding
// with a captured parameter set and rewriting its last-executed snapshot.
type Executor interface {
	// Replay re-invokes a binding with the given parameters, discards
	// return values, and rewrites the binding's last-executed snapshot.
	Replay(name string, params *param.Set) error

	// SetLastExecuted rewrites a binding's last-executed snapshot.
	SetLastExecuted(name string, params *param.Set) error
}

// Entry is one undo/redo-capable call record. Entries are immutable; they
// are only discarded when a fresh call truncates stale redo history.
type Entry struct {
	// Name is the binding the call was made against.
	Name string

	// Undo is the pre-call snapshot: the binding's last-executed
	// parameters before this call.
	Undo *param.Set

	// Redo is the call's actual arguments.
	Redo *param.Set
}

// EntryInfo is a rendered entry for inspection.
type EntryInfo struct {
	Name string
	Undo string
	Redo string
}

// Log owns the undo/redo stack, its cursor, and the recording flags.
type Log struct {
	exec Executor

	entries []Entry
	cursor  int // number of entries currently applied

	enabled          bool
	recording        bool // reentrancy flag: a call is being recorded
	suppressed       bool // an undo/redo replay is executing
	reentryException bool
	maxEntries       int // 0 means unlimited
}

// Option configures a log.
type Option func(*Log)

// WithEnabled sets the initial enabled state.
func WithEnabled(enabled bool) Option {
	return func(l *Log) { l.enabled = enabled }
}

// WithReentryException sets whether nested tracked calls fail with
// ErrReentry (true, the default) or execute unrecorded (false).
func WithReentryException(enabled bool) Option {
	return func(l *Log) { l.reentryException = enabled }
}

// WithMaxEntries caps the history length. Exceeding the cap evicts the
// oldest entry. Zero or negative means unlimited.
func WithMaxEntries(n int) Option {
	return func(l *Log) { l.maxEntries = n }
}

// New creates a log replaying through the given executor. Tracking starts
// enabled with the reentry exception on and no history cap.
func New(exec Executor, opts ...Option) *Log {
	l := &Log{
		exec:             exec,
		enabled:          true,
		reentryException: true,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// BeginCall opens the recording scope for a tracked call. Part of the
// script.Recorder contract. An exempt call arriving inside another call's
// scope is never a reentry failure; meta-operations stay callable.
func (l *Log) BeginCall(_ string, exempt bool) (bool, error) {
	if !l.enabled || l.suppressed {
		return false, nil
	}
	if l.recording {
		if exempt || !l.reentryException {
			return false, nil
		}
		return false, ErrReentry
	}
	l.recording = true
	return true, nil
}

// EndCall closes the recording scope. Part of the script.Recorder
// contract; the trampoline runs it on every exit path.
func (l *Log) EndCall(string) {
	l.recording = false
}

// LogExecution records a successfully executed call. Exempt calls pass
// through without touching history or the binding's snapshot. For a
// qualifying call, redo history at or beyond the cursor is discarded, the
// entry is appended with the previous snapshot as its undo set, and the
// binding's last-executed snapshot is advanced to the call's parameters.
func (l *Log) LogExecution(name string, exempt bool, called, previous *param.Set) error {
	if !l.enabled || l.suppressed || exempt {
		return nil
	}

	// A fresh call after undoing erases the stale redo branch.
	l.entries = l.entries[:l.cursor]
	l.entries = append(l.entries, Entry{Name: name, Undo: previous, Redo: called})
	l.cursor++

	if l.maxEntries > 0 && len(l.entries) > l.maxEntries {
		excess := len(l.entries) - l.maxEntries
		l.entries = l.entries[excess:]
		l.cursor -= excess
	}

	return l.exec.SetLastExecuted(name, called)
}

// Undo replays the entry below the cursor with its undo parameter set and
// moves the cursor down. The cursor is unchanged on failure.
func (l *Log) Undo() error {
	if l.cursor == 0 {
		return fmt.Errorf("%w: cursor at bottom of stack", ErrInvalidUndo)
	}
	entry := l.entries[l.cursor-1]
	if err := l.performUndoRedoOp(entry.Name, entry.Undo); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidUndo, err)
	}
	l.cursor--
	return nil
}

// Redo replays the entry at the cursor with its redo parameter set and
// moves the cursor up. The cursor is unchanged on failure.
func (l *Log) Redo() error {
	if l.cursor == len(l.entries) {
		return fmt.Errorf("%w: cursor at top of stack", ErrInvalidRedo)
	}
	entry := l.entries[l.cursor]
	if err := l.performUndoRedoOp(entry.Name, entry.Redo); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRedo, err)
	}
	l.cursor++
	return nil
}

// performUndoRedoOp replays one entry with recording suppressed so the
// replay does not log itself as new history.
func (l *Log) performUndoRedoOp(name string, params *param.Set) error {
	l.suppressed = true
	defer func() { l.suppressed = false }()

	if err := l.exec.Replay(name, params); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidReplay, err)
	}
	return nil
}

// Enabled reports whether tracking is enabled.
func (l *Log) Enabled() bool { return l.enabled }

// SetEnabled enables or disables tracking. Disabling clears all history;
// prior entries have no meaning once tracking stops. Not undoable.
func (l *Log) SetEnabled(enabled bool) {
	if !enabled && l.enabled {
		l.Clear()
	}
	l.enabled = enabled
}

// Clear empties the stack and resets the cursor. Not undoable.
func (l *Log) Clear() {
	l.entries = nil
	l.cursor = 0
}

// SetReentryException toggles whether nested tracked calls fail with
// ErrReentry or are silently dropped.
func (l *Log) SetReentryException(enabled bool) {
	l.reentryException = enabled
}

// ReentryException reports the current reentry failure mode.
func (l *Log) ReentryException() bool { return l.reentryException }

// CanUndo reports whether any applied history remains.
func (l *Log) CanUndo() bool { return l.cursor > 0 }

// CanRedo reports whether any redo-able future remains.
func (l *Log) CanRedo() bool { return l.cursor < len(l.entries) }

// UndoCount returns the number of applied entries below the cursor.
func (l *Log) UndoCount() int { return l.cursor }

// RedoCount returns the number of redo-able entries at or above the
// cursor.
func (l *Log) RedoCount() int { return len(l.entries) - l.cursor }

// Len returns the total number of entries.
func (l *Log) Len() int { return len(l.entries) }

// Cursor returns the stack pointer: the number of applied entries.
func (l *Log) Cursor() int { return l.cursor }

// History renders every entry in order for inspection.
func (l *Log) History() []EntryInfo {
	infos := make([]EntryInfo, len(l.entries))
	for i, e := range l.entries {
		infos[i] = EntryInfo{
			Name: e.Name,
			Undo: e.Undo.String(),
			Redo: e.Redo.String(),
		}
	}
	return infos
}

// SetMaxEntries changes the history cap, evicting oldest entries if the
// current stack exceeds it. Zero or negative means unlimited.
func (l *Log) SetMaxEntries(n int) {
	l.maxEntries = n
	if n > 0 && len(l.entries) > n {
		excess := len(l.entries) - n
		l.entries = l.entries[excess:]
		l.cursor -= excess
		if l.cursor < 0 {
			l.cursor = 0
		}
	}
}

// MaxEntries returns the history cap (0 means unlimited).
func (l *Log) MaxEntries() int { return l.maxEntries }
