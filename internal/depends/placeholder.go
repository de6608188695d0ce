package depends

import (
	"reflect"
)

// Dep is a parameter that is either an explicit value or a request to
// inject one. The zero value requests injection. An explicit nil is a value
// like any other and is never injected over.
type Dep[T any] struct {
	value    T
	explicit bool
}

// Auto requests injection.
func Auto[T any]() Dep[T] {
	return Dep[T]{}
}

// Use passes v explicitly.
func Use[T any](v T) Dep[T] {
	return Dep[T]{value: v, explicit: true}
}

func (d Dep[T]) Get() T {
	return d.value
}

func (d Dep[T]) IsPlaceholder() bool {
	return !d.explicit
}

func (d Dep[T]) Explicit() (T, bool) {
	return d.value, d.explicit
}

func (Dep[T]) declaredType() reflect.Type {
	return reflect.TypeFor[T]()
}

func (Dep[T]) fill(v reflect.Value) reflect.Value {
	out := Dep[T]{explicit: true}
	if v.IsValid() {
		reflect.ValueOf(&out.value).Elem().Set(v)
	}
	return reflect.ValueOf(out)
}

type placeholder interface {
	IsPlaceholder() bool
	declaredType() reflect.Type
	fill(v reflect.Value) reflect.Value
}

var placeholderType = reflect.TypeFor[placeholder]()

// DeclaredType reports the T of a Dep[T] parameter type.
func DeclaredType(param reflect.Type) (reflect.Type, bool) {
	if param == nil || !param.Implements(placeholderType) {
		return nil, false
	}
	return reflect.Zero(param).Interface().(placeholder).declaredType(), true
}

// Category splits a declared type into the object type held in slots and
// whether the parameter receives a pointer to it.
func Category(declared reflect.Type) (raw reflect.Type, pointer bool) {
	if declared.Kind() == reflect.Ptr {
		return declared.Elem(), true
	}
	return declared, false
}

func asPlaceholder(v reflect.Value) (placeholder, bool) {
	if !v.IsValid() || !v.CanInterface() {
		return nil, false
	}
	p, ok := v.Interface().(placeholder)
	return p, ok
}
