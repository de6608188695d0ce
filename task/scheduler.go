package task

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

type step struct {
	c     *core
	state any
}

// Scheduler is a FIFO queue of suspended tasks. Exactly one task body runs
// at a time: resuming a task blocks the caller until the task suspends or
// finishes.
type Scheduler struct {
	mu     sync.Mutex
	queue  []step
	logger *slog.Logger
}

func NewScheduler(logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{logger: logger}
}

type schedulerKey struct{}

// WithScheduler makes s the scheduler used by Get for ctx.
func WithScheduler(ctx context.Context, s *Scheduler) context.Context {
	return context.WithValue(ctx, schedulerKey{}, s)
}

// SchedulerFrom returns the scheduler of the running task, the one set with
// WithScheduler, or a new one.
func SchedulerFrom(ctx context.Context) *Scheduler {
	if c := current(ctx); c != nil && c.sched != nil {
		return c.sched
	}
	if ctx != nil {
		if s, ok := ctx.Value(schedulerKey{}).(*Scheduler); ok && s != nil {
			return s
		}
	}
	return NewScheduler(nil)
}

func (s *Scheduler) enqueue(c *core, state any) {
	s.mu.Lock()
	c.queued = true
	s.queue = append(s.queue, step{c: c, state: state})
	s.mu.Unlock()
}

func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// RunOne resumes the task at the head of the queue. Continuations that
// share the finished task's state run inline before RunOne returns.
func (s *Scheduler) RunOne() bool {
	s.mu.Lock()
	if len(s.queue) == 0 {
		s.mu.Unlock()
		return false
	}
	st := s.queue[0]
	s.queue[0] = step{}
	s.queue = s.queue[1:]
	st.c.queued = false
	s.mu.Unlock()

	c, state := st.c, st.state
	for c != nil {
		next := s.resume(c, state)
		if next != nil {
			state = next.state
		}
		c = next
	}
	return true
}

// RunUntilIdle pumps the queue until it is empty and reports the number of
// steps taken.
func (s *Scheduler) RunUntilIdle() int {
	n := 0
	for s.RunOne() {
		n++
	}
	return n
}

func (s *Scheduler) resume(c *core, state any) *core {
	if c.done {
		return nil
	}
	if s.logger.Enabled(context.Background(), slog.LevelDebug) {
		s.logger.Debug("task resumed", "task", c.name, "state", fmt.Sprint(state))
	}

	if !c.started {
		c.started = true
		go c.main()
	} else {
		c.resume <- struct{}{}
	}
	<-c.yield

	next := c.next
	c.next = nil
	return next
}

// Spawn queues t on s without waiting for it.
func Spawn[T any](ctx context.Context, s *Scheduler, t *Task[T]) {
	if ctx == nil {
		ctx = context.Background()
	}
	c := t.c
	if c.done || c.started || c.queued {
		return
	}
	if c.sched == nil {
		c.sched = s
	}
	if c.base == nil {
		c.base = ctx
	}
	c.sched.enqueue(c, c.state)
}
