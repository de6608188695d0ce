package task

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	ireflect "github.com/danpasecinic/detour/internal/reflect"
)

var (
	ErrDeadlock  = errors.New("task: scheduler queue drained before completion")
	ErrAbandoned = errors.New("task: abandoned before completion")
	ErrAwaited   = errors.New("task: already awaited by another task")
)

// unwind is the panic value that unwinds an abandoned task body.
type unwind struct{}

// Binding ties a task to an external scope, typically a dependency
// injection frame. Attach derives the body context, Release runs once when
// the task finishes.
type Binding interface {
	Attach(ctx context.Context) context.Context
	State() any
	Release()
}

// Bindable is implemented by task handles that accept a Binding.
type Bindable interface {
	BindInjectContext(b Binding)
}

type core struct {
	name  string
	run   func(ctx context.Context) error
	sched *Scheduler
	base  context.Context

	binding Binding
	state   any

	started bool
	queued  bool
	done    bool

	resume    chan struct{}
	yield     chan struct{}
	abandoned chan struct{}

	err      error
	panicked bool
	panicVal any

	cont     *core
	next     *core
	awaiting *core
}

// Task is a suspended computation producing T. It starts when it is first
// resumed by a scheduler, through Get or Await.
type Task[T any] struct {
	c     *core
	value T
}

func New[T any](fn func(ctx context.Context) (T, error)) *Task[T] {
	t := &Task[T]{}
	t.c = &core{
		name:   ireflect.FuncName(reflect.ValueOf(fn)),
		resume:    make(chan struct{}),
		yield:     make(chan struct{}),
		abandoned: make(chan struct{}),
	}
	t.c.run = func(ctx context.Context) error {
		v, err := fn(ctx)
		t.value = v
		return err
	}
	return t
}

// Ready returns an already completed task.
func Ready[T any](v T) *Task[T] {
	return &Task[T]{c: &core{name: "ready", started: true, done: true}, value: v}
}

func (t *Task[T]) Name() string {
	return t.c.name
}

func (t *Task[T]) Done() bool {
	return t.c.done
}

// BindInjectContext attaches b. A task that already finished releases b
// immediately.
func (t *Task[T]) BindInjectContext(b Binding) {
	if b == nil {
		return
	}
	if t.c.done {
		b.Release()
		return
	}
	if t.c.binding != nil {
		t.c.binding.Release()
	}
	t.c.binding = b
	t.c.state = b.State()
}

// Get drives the task to completion on the scheduler found in ctx, or on a
// fresh one. It returns ErrDeadlock when the queue drains first; the task
// stays suspended and Get may be retried once its awaited work can make
// progress. Call Abandon to give it up instead.
func (t *Task[T]) Get(ctx context.Context) (T, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	c := t.c
	if !c.done {
		s := SchedulerFrom(ctx)
		if c.sched == nil {
			c.sched = s
		}
		if c.base == nil {
			c.base = ctx
		}
		if !c.started && !c.queued {
			c.sched.enqueue(c, c.state)
		}
		for !c.done {
			if !c.sched.RunOne() {
				var zero T
				return zero, fmt.Errorf("%w: %s", ErrDeadlock, c.name)
			}
		}
	}
	return t.result()
}

func (t *Task[T]) result() (T, error) {
	if t.c.panicked {
		panic(t.c.panicVal)
	}
	return t.value, t.c.err
}

// Await suspends the task running in ctx until t completes. Outside a task
// it behaves like Get.
func Await[T any](ctx context.Context, t *Task[T]) (T, error) {
	cur := current(ctx)
	if cur == nil {
		return t.Get(ctx)
	}

	c := t.c
	if !c.done {
		if c.cont != nil && c.cont != cur {
			var zero T
			return zero, fmt.Errorf("%w: %s", ErrAwaited, c.name)
		}
		c.cont = cur
		if c.sched == nil {
			c.sched = cur.sched
		}
		if c.base == nil {
			c.base = ctx
		}
		if c.binding == nil {
			c.state = cur.state
		}
		if !c.started && !c.queued {
			cur.sched.enqueue(c, c.state)
		}
		cur.awaiting = c
		cur.suspend()
		cur.awaiting = nil
	}
	return t.result()
}

// Abandon gives up a suspended task. Its body unwinds from the suspension
// point, running deferred calls, the tasks it awaits are abandoned with it
// and its Binding is released. Get then returns ErrAbandoned. Abandon must
// not be called while the scheduler is running the task; finished tasks
// and Source tasks are left untouched.
func (t *Task[T]) Abandon() {
	t.c.abandon()
}

// Yield moves the running task to the back of its scheduler queue.
func Yield(ctx context.Context) {
	cur := current(ctx)
	if cur == nil {
		return
	}
	cur.sched.enqueue(cur, cur.state)
	cur.suspend()
}

func (c *core) suspend() {
	c.yield <- struct{}{}
	select {
	case <-c.resume:
	case <-c.abandoned:
		panic(unwind{})
	}
}

func (c *core) abandon() {
	if c.done || c.run == nil {
		return
	}
	if w := c.awaiting; w != nil {
		c.awaiting = nil
		if w.cont == c {
			w.cont = nil
		}
		w.abandon()
	}
	c.cont = nil

	if !c.started {
		c.started = true
		c.err = ErrAbandoned
		c.finish(false)
		return
	}
	close(c.abandoned)
	<-c.yield
	c.next = nil
}

func (c *core) main() {
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(unwind); ok {
				c.err = ErrAbandoned
			} else {
				c.panicked = true
				c.panicVal = r
			}
		}
		c.finish(true)
		c.yield <- struct{}{}
	}()

	ctx := context.WithValue(c.base, currentKey{}, c)
	if c.binding != nil {
		ctx = c.binding.Attach(ctx)
	}
	c.err = c.run(ctx)
}

func (c *core) finish(inline bool) {
	c.done = true
	if c.binding != nil {
		c.binding.Release()
	}

	cont := c.cont
	if cont == nil {
		return
	}
	c.cont = nil
	if inline && cont.state == c.state {
		c.next = cont
		return
	}
	cont.sched.enqueue(cont, cont.state)
}

type currentKey struct{}

func current(ctx context.Context) *core {
	if ctx == nil {
		return nil
	}
	c, _ := ctx.Value(currentKey{}).(*core)
	return c
}

// InTask reports whether ctx belongs to a running task body.
func InTask(ctx context.Context) bool {
	return current(ctx) != nil
}
