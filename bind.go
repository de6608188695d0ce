package detour

import (
	"fmt"
	"reflect"

	"github.com/danpasecinic/detour/internal/hook"
)

type (
	Node        = hook.Node
	NodeBase    = hook.NodeBase
	NodeFuncs   = hook.NodeFuncs
	CallContext = hook.CallContext
	ArgSlot     = hook.ArgSlot
	Results     = hook.Results
)

// Decorate appends nodes to the pipeline of the function stored in
// *target and installs the detour on first use. Registering a node that is
// already in the chain is a no-op.
//
//	var Add = func(a, b int) int { return a + b }
//	err := detour.Decorate(rt, &Add, decorators.Timing(obs))
func Decorate[F any](rt *Runtime, target *F, nodes ...Node) error {
	if err := rt.checkOpen(); err != nil {
		return err
	}
	_, err := rt.hooks.Attach(target, nodes...)
	return err
}

// Undecorate removes nodes from the chain of target and reports how many
// were removed. The detour stays installed.
func Undecorate[F any](rt *Runtime, target *F, nodes ...Node) int {
	return rt.hooks.Detach(target, nodes...)
}

// Original returns the function that was stored in *target before its
// detour was installed.
func Original[F any](rt *Runtime, target *F) (F, bool) {
	var zero F
	t, herr := hook.TargetOf(target)
	if herr != nil {
		return zero, false
	}
	p, ok := rt.hooks.Lookup(t.Key())
	if !ok {
		return zero, false
	}
	original, ok := p.Original()
	if !ok {
		return zero, false
	}
	fn, ok := original.Interface().(F)
	return fn, ok
}

// Installed reports whether target currently runs through a detour.
func Installed[F any](rt *Runtime, target *F) bool {
	t, herr := hook.TargetOf(target)
	if herr != nil {
		return false
	}
	p, ok := rt.hooks.Lookup(t.Key())
	return ok && p.Installed()
}

// Arg reads argument i as T.
func Arg[T any](args []*ArgSlot, i int) (T, bool) {
	var zero T
	if i < 0 || i >= len(args) {
		return zero, false
	}
	v, ok := args[i].Interface().(T)
	return v, ok
}

// SetArg replaces argument i.
func SetArg[T any](args []*ArgSlot, i int, v T) error {
	if i < 0 || i >= len(args) {
		return fmt.Errorf("argument index %d out of range [0,%d)", i, len(args))
	}
	return args[i].Assign(reflect.ValueOf(&v).Elem())
}

// Result reads return value i as T.
func Result[T any](r *Results, i int) (T, bool) {
	var zero T
	if r == nil || i < 0 || i >= r.Len() {
		return zero, false
	}
	v, ok := r.Interface(i).(T)
	return v, ok
}

// SetResult replaces return value i.
func SetResult[T any](r *Results, i int, v T) error {
	return r.Set(i, reflect.ValueOf(&v).Elem())
}
