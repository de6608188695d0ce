package hook

import (
	"fmt"
	"reflect"

	ireflect "github.com/danpasecinic/detour/internal/reflect"
)

// Target identifies one hookable function variable. The key is the address
// of the variable, stable for as long as the variable lives.
type Target struct {
	key  uintptr
	typ  reflect.Type
	slot reflect.Value
	name string
}

// TargetOf accepts a non-nil pointer to a variable of func type that
// currently holds a non-nil function.
func TargetOf(fnPtr any) (Target, *Error) {
	if fnPtr == nil {
		return Target{}, errInvalidInstallArgument("", "target is nil")
	}

	ptr := reflect.ValueOf(fnPtr)
	if ptr.Kind() != reflect.Ptr {
		return Target{}, errInvalidInstallArgument(
			"", fmt.Sprintf("target must be a pointer to a func variable, got %s", ptr.Type()),
		)
	}
	if ptr.IsNil() {
		return Target{}, errInvalidInstallArgument("", "target pointer is nil")
	}

	slot := ptr.Elem()
	if slot.Kind() != reflect.Func {
		return Target{}, errInvalidInstallArgument(
			"", fmt.Sprintf("target must point to a func, got %s", slot.Type()),
		)
	}
	if slot.IsNil() {
		return Target{}, errInvalidInstallArgument(slot.Type().String(), "target func variable is nil")
	}

	return Target{
		key:  ptr.Pointer(),
		typ:  slot.Type(),
		slot: slot,
		name: ireflect.FuncName(slot),
	}, nil
}

func (t Target) Key() uintptr {
	return t.key
}

func (t Target) Type() reflect.Type {
	return t.typ
}

// Var returns the settable func variable behind the target.
func (t Target) Var() reflect.Value {
	return t.slot
}

func (t Target) Name() string {
	if t.name == "" {
		return t.String()
	}
	return t.name
}

func (t Target) IsZero() bool {
	return t.key == 0
}

func (t Target) String() string {
	if t.IsZero() {
		return "<none>"
	}
	if t.name != "" {
		return t.name
	}
	return fmt.Sprintf("%s@%#x", t.typ, t.key)
}
