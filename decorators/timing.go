// Package decorators holds ready-made pipeline nodes.
package decorators

import (
	"encoding/binary"
	"time"

	"github.com/danpasecinic/detour"
)

// TimingFunc receives the wall time of one call, vetoed calls included.
type TimingFunc func(target string, d time.Duration, vetoed bool)

// Timing measures calls. The start time lives in the node's scratch bytes,
// so one Timing node can serve concurrent calls.
type Timing struct {
	report TimingFunc
}

func NewTiming(report TimingFunc) *Timing {
	return &Timing{report: report}
}

func (t *Timing) String() string {
	return "timing"
}

func (t *Timing) ContextSize() int {
	return 8
}

func (t *Timing) BeforeCall(ctx *detour.CallContext, _ []*detour.ArgSlot) bool {
	binary.LittleEndian.PutUint64(ctx.Bytes(), uint64(time.Now().UnixNano()))
	return true
}

func (t *Timing) AfterCall(ctx *detour.CallContext, results *detour.Results) {
	if t.report == nil {
		return
	}
	start := time.Unix(0, int64(binary.LittleEndian.Uint64(ctx.Bytes())))
	t.report(ctx.Target().String(), time.Since(start), results.Vetoed())
}
