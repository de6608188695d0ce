package detour

import (
	"context"

	"github.com/danpasecinic/detour/internal/depends"
	"github.com/danpasecinic/detour/internal/scope"
)

type Ownership = scope.Ownership

const (
	Borrowed = scope.Borrowed
	Owned    = scope.Owned
)

// ScopeID returns the id of the inject scope that ctx belongs to, or an
// empty string outside injected calls and once that call has returned.
func ScopeID(ctx context.Context) string {
	lease := depends.LeaseFrom(ctx)
	if lease == nil {
		return ""
	}
	return lease.ScopeID()
}

// InjectDepth reports how many injected calls are active in the scope of
// ctx, or 0 once the call that produced ctx has returned.
func InjectDepth(ctx context.Context) int {
	lease := depends.LeaseFrom(ctx)
	if lease == nil {
		return 0
	}
	return lease.Depth()
}
