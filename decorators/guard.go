package decorators

import (
	"github.com/danpasecinic/detour"
)

// Guard vetoes calls that allow rejects. A vetoed call returns zero values
// unless Fallback fills the results.
type Guard struct {
	detour.NodeBase

	name     string
	allow    func(args []*detour.ArgSlot) bool
	fallback func(results *detour.Results)
}

func NewGuard(name string, allow func(args []*detour.ArgSlot) bool) *Guard {
	return &Guard{name: name, allow: allow}
}

// Fallback sets the function that fills the results of a vetoed call.
func (g *Guard) Fallback(fn func(results *detour.Results)) *Guard {
	g.fallback = fn
	return g
}

func (g *Guard) String() string {
	return "guard:" + g.name
}

func (g *Guard) BeforeCall(_ *detour.CallContext, args []*detour.ArgSlot) bool {
	return g.allow == nil || g.allow(args)
}

func (g *Guard) AfterCall(_ *detour.CallContext, results *detour.Results) {
	if results.Vetoed() && g.fallback != nil {
		g.fallback(results)
	}
}
