package detour

import (
	"time"

	"github.com/danpasecinic/detour/internal/scope"
)

// DispatchHook observes every call that runs through a non-empty pipeline.
type DispatchHook func(target string, duration time.Duration, vetoed bool)

// ResolveHook observes every placeholder resolution.
type ResolveHook func(target string, index int, typ string, source Source, duration time.Duration, err error)

type Source = scope.Source

const (
	FromCache    = scope.FromCache
	FromExplicit = scope.FromExplicit
	FromFactory  = scope.FromFactory
	FromDefault  = scope.FromDefault
)
