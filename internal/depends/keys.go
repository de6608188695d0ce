package depends

import (
	"fmt"
	"reflect"
	"runtime"

	ireflect "github.com/danpasecinic/detour/internal/reflect"
)

// FactoryKey identifies a factory by code pointer and signature. Closures
// created from the same literal share a key.
type FactoryKey struct {
	pc  uintptr
	sig reflect.Type
}

func FactoryKeyOf(fn any) FactoryKey {
	if ireflect.IsNil(fn) {
		return FactoryKey{}
	}
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func {
		return FactoryKey{}
	}
	return FactoryKey{pc: v.Pointer(), sig: v.Type()}
}

func (k FactoryKey) IsZero() bool {
	return k.pc == 0
}

func (k FactoryKey) Name() string {
	if k.IsZero() {
		return ""
	}
	if f := runtime.FuncForPC(k.pc); f != nil {
		return f.Name()
	}
	return fmt.Sprintf("%s@%#x", k.sig, k.pc)
}

func (k FactoryKey) String() string {
	if k.IsZero() {
		return "<none>"
	}
	return ireflect.ShortName(k.Name())
}

// TargetGlobal is the target key of registrations that apply everywhere.
const TargetGlobal uintptr = 0
