package task

// Source is a task completed from outside any scheduler, for example from a
// callback. Awaiting its task suspends until Complete or Fail is called.
type Source[T any] struct {
	t *Task[T]
}

func NewSource[T any]() *Source[T] {
	return &Source[T]{
		t: &Task[T]{c: &core{name: "source", started: true}},
	}
}

func (s *Source[T]) Task() *Task[T] {
	return s.t
}

// Complete resolves the task with v. Later calls are ignored.
func (s *Source[T]) Complete(v T) bool {
	if s.t.c.done {
		return false
	}
	s.t.value = v
	s.t.c.finish(false)
	return true
}

func (s *Source[T]) Fail(err error) bool {
	if s.t.c.done {
		return false
	}
	s.t.c.err = err
	s.t.c.finish(false)
	return true
}
