package reflect

import (
	"reflect"
	"runtime"
	"strconv"
	"strings"
	"sync"
)

var typeKeyCache sync.Map

// TypeKey is TypeKeyOf for T.
func TypeKey[T any]() string {
	return TypeKeyOf(reflect.TypeFor[T]())
}

// TypeKeyOf spells t with full import paths, so same-named types from
// different packages never collide.
func TypeKeyOf(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	if cached, ok := typeKeyCache.Load(t); ok {
		return cached.(string)
	}

	key := buildTypeKey(t)
	typeKeyCache.Store(t, key)
	return key
}

func buildTypeKey(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}

	switch t.Kind() {
	case reflect.Ptr:
		return "*" + buildTypeKey(t.Elem())
	case reflect.Slice:
		return "[]" + buildTypeKey(t.Elem())
	case reflect.Array:
		return "[" + strconv.Itoa(t.Len()) + "]" + buildTypeKey(t.Elem())
	case reflect.Map:
		return "map[" + buildTypeKey(t.Key()) + "]" + buildTypeKey(t.Elem())
	case reflect.Chan:
		switch t.ChanDir() {
		case reflect.RecvDir:
			return "<-chan " + buildTypeKey(t.Elem())
		case reflect.SendDir:
			return "chan<- " + buildTypeKey(t.Elem())
		default:
			return "chan " + buildTypeKey(t.Elem())
		}
	case reflect.Func:
		return t.String()
	default:
		if t.PkgPath() != "" {
			return t.PkgPath() + "." + t.Name()
		}
		return t.String()
	}
}

// ShortName strips the import path from a type key or function name.
func ShortName(s string) string {
	prefix := ""
	for strings.HasPrefix(s, "*") {
		prefix += "*"
		s = s[1:]
	}
	if idx := strings.LastIndex(s, "/"); idx != -1 {
		s = s[idx+1:]
	}
	return prefix + s
}

func IsNil(v any) bool {
	if v == nil {
		return true
	}
	return IsNilValue(reflect.ValueOf(v))
}

func IsNilValue(rv reflect.Value) bool {
	if !rv.IsValid() {
		return true
	}
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func, reflect.UnsafePointer:
		return rv.IsNil()
	default:
		return false
	}
}

// FuncName reports the symbol name of a func value, or "" when unknown.
func FuncName(fn reflect.Value) string {
	if fn.Kind() != reflect.Func || fn.IsNil() {
		return ""
	}
	f := runtime.FuncForPC(fn.Pointer())
	if f == nil {
		return ""
	}
	return f.Name()
}

// CanConstruct reports whether a usable zero value of t can be allocated.
// Interfaces cannot: their zero value is nil.
func CanConstruct(t reflect.Type) bool {
	return t != nil && t.Kind() != reflect.Interface
}
