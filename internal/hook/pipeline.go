package hook

import (
	"log/slog"
	"reflect"
	"sync"
	"sync/atomic"
	"time"
)

type DispatchObserver func(target string, duration time.Duration, vetoed bool)

type entry struct {
	node   Node
	offset int
	size   int
}

// chain is an immutable snapshot of the registered nodes and their layout.
type chain struct {
	entries    []entry
	arenaBytes int
}

// Pipeline owns one target's detour and its interceptor chain.
type Pipeline struct {
	target Target
	detour reflect.Value
	state  State

	hooker   Hooker
	policy   *Policy
	logger   *slog.Logger
	observer DispatchObserver

	mu    sync.Mutex
	nodes []Node
	snap  atomic.Pointer[chain]
}

func newPipeline(target Target, hooker Hooker, policy *Policy, logger *slog.Logger, observer DispatchObserver) *Pipeline {
	p := &Pipeline{
		target:   target,
		hooker:   hooker,
		policy:   policy,
		logger:   logger,
		observer: observer,
	}
	p.detour = reflect.MakeFunc(target.Type(), p.Dispatch)
	return p
}

func (p *Pipeline) Target() Target {
	return p.target
}

func (p *Pipeline) Detour() reflect.Value {
	return p.detour
}

func (p *Pipeline) Installed() bool {
	return p.state.Installed()
}

func (p *Pipeline) Original() (reflect.Value, bool) {
	return p.state.Original()
}

// Register appends node to the chain and installs the backend hook on first
// use. On install failure the node is removed again.
func (p *Pipeline) Register(node Node) error {
	if node == nil {
		return p.policy.Raise(errInvalidInstallArgument(p.target.String(), "decorator node is nil"))
	}

	p.mu.Lock()
	for _, n := range p.nodes {
		if sameNode(n, node) {
			p.mu.Unlock()
			return p.install()
		}
	}
	p.nodes = append(p.nodes, node)
	p.snap.Store(nil)
	p.mu.Unlock()

	if herr := p.state.Install(p.hooker, p.target, p.detour); herr != nil {
		p.Unregister(node)
		return p.policy.Raise(herr)
	}

	p.logger.Debug("decorator registered", "target", p.target.String(), "node", nodeName(node))
	return nil
}

func (p *Pipeline) install() error {
	if herr := p.state.Install(p.hooker, p.target, p.detour); herr != nil {
		return p.policy.Raise(herr)
	}
	return nil
}

func (p *Pipeline) Unregister(node Node) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, n := range p.nodes {
		if sameNode(n, node) {
			p.nodes = append(p.nodes[:i:i], p.nodes[i+1:]...)
			p.snap.Store(nil)
			p.logger.Debug("decorator unregistered", "target", p.target.String(), "node", nodeName(node))
			return true
		}
	}
	return false
}

func (p *Pipeline) Nodes() []Node {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Node(nil), p.nodes...)
}

func (p *Pipeline) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.nodes)
}

func (p *Pipeline) uninstall() *Error {
	return p.state.Uninstall(p.hooker, p.target)
}

func (p *Pipeline) snapshot() *chain {
	if c := p.snap.Load(); c != nil {
		return c
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if c := p.snap.Load(); c != nil {
		return c
	}

	c := &chain{entries: make([]entry, len(p.nodes))}
	offset := 0
	for i, n := range p.nodes {
		size := max(n.ContextSize(), 0)
		c.entries[i] = entry{node: n, offset: offset, size: size}
		offset += alignUp(size)
	}
	c.arenaBytes = offset
	p.snap.Store(c)
	return c
}

// Dispatch runs one call through the chain. It is the body of the detour.
func (p *Pipeline) Dispatch(in []reflect.Value) []reflect.Value {
	c := p.snapshot()
	if len(c.entries) == 0 {
		return p.callOriginal(in)
	}

	var start time.Time
	if p.observer != nil {
		start = time.Now()
	}

	arena := getArena(c.arenaBytes)
	defer putArena(arena)

	args := make([]reflect.Value, len(in))
	copy(args, in)
	fnType := p.target.Type()
	slots := make([]*ArgSlot, len(args))
	for i := range args {
		slots[i] = &ArgSlot{index: i, typ: fnType.In(i), val: &args[i]}
	}

	ctxs := make([]CallContext, len(c.entries))
	invoked := 0
	proceed := true
	for i := range c.entries {
		e := &c.entries[i]
		ctxs[i] = CallContext{target: &p.target, mem: (*arena)[e.offset : e.offset+e.size : e.offset+e.size]}
		invoked++
		if !e.node.BeforeCall(&ctxs[i], slots) {
			proceed = false
			break
		}
	}

	var results *Results
	if proceed {
		results = newResults(fnType, p.callOriginal(args), false)
	} else {
		results = newResults(fnType, nil, true)
	}

	for i := invoked - 1; i >= 0; i-- {
		c.entries[i].node.AfterCall(&ctxs[i], results)
	}

	if p.observer != nil {
		p.observer(p.target.String(), time.Since(start), results.vetoed)
	}
	return results.values
}

func (p *Pipeline) callOriginal(args []reflect.Value) []reflect.Value {
	original, ok := p.state.Original()
	if !ok {
		return newResults(p.target.Type(), nil, true).values
	}
	if p.target.Type().IsVariadic() {
		return original.CallSlice(args)
	}
	return original.Call(args)
}
