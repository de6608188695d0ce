package detour

import (
	"github.com/danpasecinic/detour/internal/depends"
)

// Dep is a parameter that receives either an explicit value or an injected
// one. The zero value requests injection:
//
//	Handle(ctx, detour.Auto[*DB]())    // injected
//	Handle(ctx, detour.Use(testDB))    // explicit, even when nil
type Dep[T any] = depends.Dep[T]

func Auto[T any]() Dep[T] {
	return depends.Auto[T]()
}

func Use[T any](v T) Dep[T] {
	return depends.Use(v)
}
