package depends

import (
	"context"
	"fmt"
	"io"
	"reflect"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/xid"

	"github.com/danpasecinic/detour/internal/scope"
)

type SlotKey struct {
	Type    reflect.Type
	Factory FactoryKey
}

// Slot is one cached object. Obj is always a pointer to the slot type.
type Slot struct {
	Obj       reflect.Value
	Ownership scope.Ownership
}

// Context is one frame of cached dependencies. Lookups walk up to the
// parent frames.
type Context struct {
	parent *Context
	slots  map[SlotKey]*Slot
	order  []SlotKey
	owned  []reflect.Value
}

func (c *Context) Parent() *Context {
	return c.parent
}

func (c *Context) find(key SlotKey) (*Slot, bool) {
	for cur := c; cur != nil; cur = cur.parent {
		if s, ok := cur.slots[key]; ok {
			return s, true
		}
	}
	return nil, false
}

func (c *Context) upsert(key SlotKey, slot *Slot) {
	if c.slots == nil {
		c.slots = make(map[SlotKey]*Slot)
	}
	if prev, ok := c.slots[key]; ok {
		if prev.Ownership == scope.Owned && prev.Obj.Pointer() != slot.Obj.Pointer() {
			c.owned = append(c.owned, prev.Obj)
		}
	} else {
		c.order = append(c.order, key)
	}
	c.slots[key] = slot
}

// adopt records an owned object that is not cached.
func (c *Context) adopt(obj reflect.Value) {
	c.owned = append(c.owned, obj)
}

func (c *Context) Len() int {
	return len(c.slots)
}

// detach empties the frame and returns its owned objects in creation
// order.
func (c *Context) detach() []reflect.Value {
	var objs []reflect.Value
	for _, key := range c.order {
		if s := c.slots[key]; s != nil && s.Ownership == scope.Owned {
			objs = append(objs, s.Obj)
		}
	}
	objs = append(objs, c.owned...)

	c.slots = nil
	c.order = nil
	c.owned = nil
	return objs
}

// closeOwned closes objects in reverse creation order.
func closeOwned(objs []reflect.Value) error {
	var result *multierror.Error
	for i := len(objs) - 1; i >= 0; i-- {
		closer, ok := objs[i].Interface().(io.Closer)
		if !ok {
			continue
		}
		if err := closer.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("close %s: %w", objs[i].Type(), err))
		}
	}
	return result.ErrorOrNil()
}

// State is the scope chain of one logical call chain: the root frame, the
// stack of pushed frames and the depth counters.
type State struct {
	mu                  sync.Mutex
	id                  xid.ID
	root                Context
	stack               []*Context
	executeDependsDepth int
	injectCallDepth     int
	leases              int
}

func newState() *State {
	s := &State{}
	s.reset()
	return s
}

func (s *State) reset() {
	s.id = xid.New()
	s.root = Context{}
	s.stack = append(s.stack[:0], &s.root)
	s.executeDependsDepth = 0
	s.injectCallDepth = 0
	s.leases = 0
}

func (s *State) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id.String()
}

func (s *State) String() string {
	return s.ID()
}

func (s *State) Depth() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.injectCallDepth
}

func (s *State) StackLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.stack)
}

func (s *State) Current() *Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stack[len(s.stack)-1]
}

// ExecutingFactory reports whether a dependency factory is running.
func (s *State) ExecutingFactory() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.executeDependsDepth > 0
}

func (s *State) find(frame *Context, key SlotKey) (*Slot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return frame.find(key)
}

func (s *State) upsert(frame *Context, key SlotKey, slot *Slot) {
	s.mu.Lock()
	frame.upsert(key, slot)
	s.mu.Unlock()
}

func (s *State) adopt(frame *Context, obj reflect.Value) {
	s.mu.Lock()
	frame.adopt(obj)
	s.mu.Unlock()
}

func (s *State) enterFactory() {
	s.mu.Lock()
	s.executeDependsDepth++
	s.mu.Unlock()
}

func (s *State) exitFactory() {
	s.mu.Lock()
	if s.executeDependsDepth > 0 {
		s.executeDependsDepth--
	}
	s.mu.Unlock()
}

// Lease is one pushed frame. It may be released out of stack order, for
// example by a task that finishes after its caller returned.
type Lease struct {
	state    *State
	id       string
	local    *Context
	track    bool
	released atomic.Bool
	owner    *Injector
}

func (l *Lease) StateOwner() *State {
	return l.state
}

func (l *Lease) Frame() *Context {
	return l.local
}

func (l *Lease) Released() bool {
	return l.released.Load()
}

// ScopeID is the id of the state this lease was pushed on. It is empty once
// the lease is released, since the state may already serve another call.
func (l *Lease) ScopeID() string {
	if l.released.Load() {
		return ""
	}
	return l.id
}

// Depth is the inject call depth of the lease's state, or 0 once the lease
// is released.
func (l *Lease) Depth() int {
	st := l.state
	st.mu.Lock()
	defer st.mu.Unlock()
	if l.released.Load() {
		return 0
	}
	return st.injectCallDepth
}

// Attach returns ctx carrying this lease, so injected calls made with it
// nest under this frame.
func (l *Lease) Attach(ctx context.Context) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, leaseKey{}, l)
}

func (l *Lease) State() any {
	return l.state
}

// Release is Close with errors logged.
func (l *Lease) Release() {
	if err := l.Close(); err != nil {
		l.owner.logger.Warn("inject scope release failed", "state", l.id, "error", err)
	}
}

// Close pops the frame, closes the objects it owns and returns the state
// to the pool once no lease references it.
func (l *Lease) Close() error {
	if !l.released.CompareAndSwap(false, true) {
		return errInvariant("inject lease released twice")
	}

	st := l.state
	st.mu.Lock()
	if i := slices.Index(st.stack, l.local); i >= 0 {
		st.stack = slices.Delete(st.stack, i, i+1)
	}
	if len(st.stack) == 0 {
		st.stack = append(st.stack, &st.root)
	}

	var invariant *Error
	if l.track {
		if st.injectCallDepth > 0 {
			st.injectCallDepth--
		} else {
			invariant = errInvariant("inject call depth underflow")
		}
	}
	st.leases--
	reusable := st.leases == 0
	owned := l.local.detach()
	if reusable {
		st.reset()
	}
	st.mu.Unlock()

	err := closeOwned(owned)

	if reusable {
		l.owner.logger.Debug("inject state released", "state", l.id)
		l.owner.pool.Put(st)
	}

	if invariant != nil {
		return multierror.Append(err, invariant).ErrorOrNil()
	}
	return err
}

type leaseKey struct{}

// LeaseFrom returns the active lease carried by ctx, if any.
func LeaseFrom(ctx context.Context) *Lease {
	if ctx == nil {
		return nil
	}
	l, _ := ctx.Value(leaseKey{}).(*Lease)
	return l
}

// Acquire pushes a frame for one injected call. A ctx carrying a live lease
// makes the call nested: it shares that lease's state and its frame becomes
// the parent. Otherwise a pooled state is reset and used.
func (in *Injector) Acquire(ctx context.Context) *Lease {
	if parent := LeaseFrom(ctx); parent != nil && !parent.released.Load() {
		st := parent.state
		st.mu.Lock()
		if !parent.released.Load() && st.injectCallDepth > 0 {
			l := &Lease{state: st, id: parent.id, local: &Context{parent: parent.local}, track: true, owner: in}
			st.stack = append(st.stack, l.local)
			st.injectCallDepth++
			st.leases++
			st.mu.Unlock()
			return l
		}
		st.mu.Unlock()
	}

	st := in.pool.Get().(*State)
	st.mu.Lock()
	l := &Lease{state: st, id: st.id.String(), local: &Context{parent: st.stack[len(st.stack)-1]}, track: true, owner: in}
	st.stack = append(st.stack, l.local)
	st.injectCallDepth++
	st.leases++
	st.mu.Unlock()

	in.logger.Debug("inject state acquired", "state", l.id)
	return l
}
