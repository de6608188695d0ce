package hook

import (
	"fmt"
	"reflect"
)

// ArgSlot is a view over one argument of an in-flight call. Assignments
// are visible to later nodes and to the original function.
type ArgSlot struct {
	index int
	typ   reflect.Type
	val   *reflect.Value
}

func (s *ArgSlot) Index() int {
	return s.index
}

func (s *ArgSlot) Type() reflect.Type {
	return s.typ
}

func (s *ArgSlot) Value() reflect.Value {
	return *s.val
}

func (s *ArgSlot) Interface() any {
	if !s.val.IsValid() {
		return nil
	}
	return s.val.Interface()
}

// Assign replaces the argument value.
func (s *ArgSlot) Assign(v reflect.Value) error {
	v, err := coerce(s.typ, v)
	if err != nil {
		return fmt.Errorf("argument %d: %w", s.index, err)
	}
	*s.val = v
	return nil
}

// Rebind points a pointer argument at another object.
func (s *ArgSlot) Rebind(ptr any) error {
	if s.typ.Kind() != reflect.Ptr {
		return fmt.Errorf("argument %d: rebind requires a pointer parameter, have %s", s.index, s.typ)
	}
	if ptr == nil {
		*s.val = reflect.Zero(s.typ)
		return nil
	}
	return s.Assign(reflect.ValueOf(ptr))
}

// Elem returns the addressable object behind a non-nil pointer argument.
func (s *ArgSlot) Elem() (reflect.Value, bool) {
	if s.typ.Kind() != reflect.Ptr || s.val.IsNil() {
		return reflect.Value{}, false
	}
	return s.val.Elem(), true
}

// Results holds the return values of one call, zero values after a veto.
type Results struct {
	types  []reflect.Type
	values []reflect.Value
	vetoed bool
}

func (r *Results) Len() int {
	return len(r.values)
}

func (r *Results) Value(i int) reflect.Value {
	return r.values[i]
}

func (r *Results) Interface(i int) any {
	return r.values[i].Interface()
}

func (r *Results) Set(i int, v reflect.Value) error {
	if i < 0 || i >= len(r.values) {
		return fmt.Errorf("result index %d out of range [0,%d)", i, len(r.values))
	}
	v, err := coerce(r.types[i], v)
	if err != nil {
		return fmt.Errorf("result %d: %w", i, err)
	}
	r.values[i] = v
	return nil
}

func (r *Results) Vetoed() bool {
	return r.vetoed
}

func coerce(t reflect.Type, v reflect.Value) (reflect.Value, error) {
	if !v.IsValid() {
		return reflect.Zero(t), nil
	}
	if v.Type() == t {
		return v, nil
	}
	if v.Type().AssignableTo(t) {
		out := reflect.New(t).Elem()
		out.Set(v)
		return out, nil
	}
	return reflect.Value{}, fmt.Errorf("cannot use %s as %s", v.Type(), t)
}

func newResults(fnType reflect.Type, values []reflect.Value, vetoed bool) *Results {
	types := make([]reflect.Type, fnType.NumOut())
	for i := range types {
		types[i] = fnType.Out(i)
	}
	if values == nil {
		values = make([]reflect.Value, len(types))
		for i, t := range types {
			values[i] = reflect.Zero(t)
		}
	}
	return &Results{types: types, values: values, vetoed: vetoed}
}
