package provenance

import (
	"fmt"
	"strings"

	"github.com/dshills/luaprov/internal/script"
	"github.com/dshills/luaprov/internal/script/param"
)

// Register installs the log's meta-functions into a session under the
// provenance namespace. Every one of them is stack exempt so the history
// can never contain its own meta-operations.
func (l *Log) Register(s *script.Session) error {
	regs := []struct {
		name string
		desc string
		sig  param.Signature
		fn   script.Func
	}{
		{
			name: "provenance.undo",
			desc: "Undoes the last tracked call.",
			fn: func([]param.Value) (param.Value, error) {
				return nil, l.Undo()
			},
		},
		{
			name: "provenance.redo",
			desc: "Redoes the last undone call.",
			fn: func([]param.Value) (param.Value, error) {
				return nil, l.Redo()
			},
		},
		{
			name: "provenance.enable",
			desc: "Enables/disables tracking. Disabling clears your history; not undoable.",
			sig:  param.Signature{param.BoolType},
			fn: func(args []param.Value) (param.Value, error) {
				l.SetEnabled(args[0].(param.Bool).V)
				return nil, nil
			},
		},
		{
			name: "provenance.clear",
			desc: "Clears all undo/redo history. Not undoable.",
			fn: func([]param.Value) (param.Value, error) {
				l.Clear()
				return nil, nil
			},
		},
		{
			name: "provenance.enableReentryException",
			desc: "Enables/disables the reentry exception. Disable to allow tracked functions to call other tracked functions.",
			sig:  param.Signature{param.BoolType},
			fn: func(args []param.Value) (param.Value, error) {
				l.SetReentryException(args[0].(param.Bool).V)
				return nil, nil
			},
		},
		{
			name: "provenance.history",
			desc: "Returns the undo/redo history as text.",
			fn: func([]param.Value) (param.Value, error) {
				return param.String{V: l.formatHistory()}, nil
			},
		},
	}

	for _, r := range regs {
		if err := s.Register(r.name, r.desc, r.sig, r.fn, script.Exempt()); err != nil {
			return fmt.Errorf("registering %s: %w", r.name, err)
		}
	}
	return nil
}

// formatHistory renders the stack one entry per line, marking the cursor.
func (l *Log) formatHistory() string {
	if len(l.entries) == 0 {
		return "history is empty"
	}
	var b strings.Builder
	for i, e := range l.entries {
		marker := " "
		if i == l.cursor-1 {
			marker = "*"
		}
		fmt.Fprintf(&b, "%s %3d  %s%s", marker, i+1, e.Name, e.Redo)
		if i < len(l.entries)-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}
