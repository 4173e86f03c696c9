package script

import (
	"github.com/dshills/luaprov/internal/script/param"
)

// Func is the Go side of a binding. It receives the extracted arguments in
// declared order and may return a single value (or nil for none).
type Func func(args []param.Value) (param.Value, error)

// Binding is a named registered callable: its signature, its Go function,
// its defaults, and the snapshot of the parameters it last executed with.
type Binding struct {
	name        string
	description string
	sig         param.Signature
	fn          Func
	exempt      bool

	defaults *param.Set
	lastExec *param.Set
}

// Name returns the binding's registered name.
func (b *Binding) Name() string { return b.name }

// Description returns the registration-time description.
func (b *Binding) Description() string { return b.description }

// Signature returns the declared parameter types.
func (b *Binding) Signature() param.Signature { return b.sig }

// Exempt reports whether the binding is undo/redo stack exempt.
func (b *Binding) Exempt() bool { return b.exempt }

// Defaults returns the registration-time default parameter set.
func (b *Binding) Defaults() *param.Set { return b.defaults }

// LastExecuted returns the parameters of the binding's most recent
// execution. Before the first call it equals Defaults.
func (b *Binding) LastExecuted() *param.Set { return b.lastExec }

// BindOption configures a registration.
type BindOption func(*Binding)

// Exempt marks the binding undo/redo stack exempt: its calls are never
// recorded. Meta-operations like undo and redo use this so they cannot
// appear in their own history.
func Exempt() BindOption {
	return func(b *Binding) { b.exempt = true }
}
