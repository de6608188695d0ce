package hook

import (
	"reflect"
	"sync"
)

// Node is one interceptor in a pipeline chain. BeforeCall returning false
// vetoes the call: the original is skipped and nodes after this one never
// run. AfterCall runs in reverse order for every node whose BeforeCall ran.
type Node interface {
	ContextSize() int
	BeforeCall(ctx *CallContext, args []*ArgSlot) bool
	AfterCall(ctx *CallContext, results *Results)
}

// NodeBase gives embedders the default no-op behavior.
type NodeBase struct{}

func (NodeBase) ContextSize() int { return 0 }

func (NodeBase) BeforeCall(*CallContext, []*ArgSlot) bool { return true }

func (NodeBase) AfterCall(*CallContext, *Results) {}

// NodeFuncs adapts plain functions over argument and result values. Use it
// by pointer so that node identity is stable.
type NodeFuncs struct {
	Name   string
	Size   int
	Before func(args []any) bool
	After  func(results []any)
}

func (n *NodeFuncs) ContextSize() int {
	return n.Size
}

func (n *NodeFuncs) BeforeCall(_ *CallContext, args []*ArgSlot) bool {
	if n.Before == nil {
		return true
	}
	values := make([]any, len(args))
	for i, a := range args {
		values[i] = a.Interface()
	}
	return n.Before(values)
}

func (n *NodeFuncs) AfterCall(_ *CallContext, results *Results) {
	if n.After == nil {
		return
	}
	values := make([]any, results.Len())
	for i := range values {
		values[i] = results.Interface(i)
	}
	n.After(values)
}

func (n *NodeFuncs) String() string {
	return n.Name
}

// CallContext is one node's view of the per-dispatch scratch state.
type CallContext struct {
	target *Target
	mem    []byte
	cell   any
}

func (c *CallContext) Target() Target {
	return *c.target
}

// Bytes is this node's zeroed scratch area of ContextSize bytes.
func (c *CallContext) Bytes() []byte {
	return c.mem
}

func (c *CallContext) Size() int {
	return len(c.mem)
}

// Store keeps a value between the before and after phase of one call.
func (c *CallContext) Store(v any) {
	c.cell = v
}

func (c *CallContext) Load() any {
	return c.cell
}

const maxAlign = 16

func alignUp(n int) int {
	return (n + maxAlign - 1) &^ (maxAlign - 1)
}

var arenaPool = sync.Pool{
	New: func() any {
		b := make([]byte, 0, 256)
		return &b
	},
}

func getArena(n int) *[]byte {
	bp := arenaPool.Get().(*[]byte)
	if cap(*bp) < n {
		*bp = make([]byte, n)
	}
	*bp = (*bp)[:n]
	clear(*bp)
	return bp
}

func putArena(bp *[]byte) {
	*bp = (*bp)[:0]
	arenaPool.Put(bp)
}

func sameNode(a, b Node) bool {
	if a == nil || b == nil {
		return a == b
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb || !ta.Comparable() {
		return false
	}
	return a == b
}

// NodeName is the display name of n: its String method when it has one,
// its type otherwise.
func NodeName(n Node) string {
	return nodeName(n)
}

func nodeName(n Node) string {
	if s, ok := n.(interface{ String() string }); ok {
		if name := s.String(); name != "" {
			return name
		}
	}
	return reflect.TypeOf(n).String()
}
