package depends_test

import (
	"context"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danpasecinic/detour/internal/depends"
	"github.com/danpasecinic/detour/task"
)

func asyncFactory(owned bool, produce func() *conn) *depends.Meta {
	return &depends.Meta{
		Index:   1,
		Type:    reflect.TypeFor[conn](),
		Factory: depends.FactoryKeyOf(produce),
		Owned:   owned,
		Cached:  true,
		Async: func(context.Context) *task.Task[depends.PtrValue] {
			return task.New(
				func(ctx context.Context) (depends.PtrValue, error) {
					task.Yield(ctx)
					return depends.PtrValue{Ptr: reflect.ValueOf(produce()), Owned: owned}, nil
				},
			)
		},
	}
}

func syncFactory(owned bool, produce func() *conn) *depends.Meta {
	m := ownedFactory(produce)
	m.Owned = owned
	m.Sync = func() (depends.PtrValue, error) {
		return depends.PtrValue{Ptr: reflect.ValueOf(produce()), Owned: owned}, nil
	}
	return m
}

func TestTaskTargetWithAsyncDependency(t *testing.T) {
	t.Parallel()

	h := newHarness(t, depends.FailCallback)
	var produced []*conn

	var fn func(ctx context.Context, c depends.Dep[*conn]) *task.Task[string]
	fn = func(_ context.Context, c depends.Dep[*conn]) *task.Task[string] {
		got := c.Get()
		return task.New(
			func(ctx context.Context) (string, error) {
				task.Yield(ctx)
				if depends.LeaseFrom(ctx) == nil {
					return "unbound", nil
				}
				if got.Closed() != 0 {
					return "closed early", nil
				}
				return "ready", nil
			},
		)
	}
	h.inject(
		t, &fn, asyncFactory(
			true, func() *conn {
				c := &conn{}
				produced = append(produced, c)
				return c
			},
		),
	)

	ctx := context.Background()
	out, err := fn(ctx, depends.Auto[*conn]()).Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ready", out)
	require.Len(t, produced, 1)
	assert.Equal(t, 1, produced[0].Closed())
	assert.Empty(t, h.failures())
}

func TestAsyncFactoryMatchesSyncFactory(t *testing.T) {
	t.Parallel()

	for _, owned := range []bool{true, false} {
		results := make(map[string]int)
		for name, build := range map[string]func(bool, func() *conn) *depends.Meta{
			"sync":  syncFactory,
			"async": asyncFactory,
		} {
			h := newHarness(t, depends.FailCallback)
			shared := &conn{}

			var fn func(ctx context.Context, c depends.Dep[*conn]) *task.Task[*conn]
			fn = func(_ context.Context, c depends.Dep[*conn]) *task.Task[*conn] {
				got := c.Get()
				return task.New(
					func(context.Context) (*conn, error) {
						return got, nil
					},
				)
			}
			h.inject(t, &fn, build(owned, func() *conn { return shared }))

			ctx := context.Background()
			got, err := fn(ctx, depends.Auto[*conn]()).Get(ctx)
			require.NoError(t, err)
			require.Same(t, shared, got, name)
			results[name] = shared.Closed()
		}

		assert.Equal(t, results["sync"], results["async"], "owned=%v", owned)
		if owned {
			assert.Equal(t, 1, results["async"])
		} else {
			assert.Zero(t, results["async"])
		}
	}
}

func TestAsyncDependencyAwaitedInsideTask(t *testing.T) {
	t.Parallel()

	h := newHarness(t, depends.FailCallback)

	var fn func(ctx context.Context, c depends.Dep[*conn]) *task.Task[int]
	fn = func(_ context.Context, c depends.Dep[*conn]) *task.Task[int] {
		got := c.Get()
		return task.New(
			func(context.Context) (int, error) {
				return got.Closed(), nil
			},
		)
	}
	h.inject(t, &fn, asyncFactory(true, func() *conn { return &conn{} }))

	outer := task.New(
		func(ctx context.Context) (int, error) {
			a, err := task.Await(ctx, fn(ctx, depends.Auto[*conn]()))
			if err != nil {
				return 0, err
			}
			b, err := task.Await(ctx, fn(ctx, depends.Auto[*conn]()))
			return a + b, err
		},
	)

	sched := task.NewScheduler(nil)
	ctx := task.WithScheduler(context.Background(), sched)
	n, err := outer.Get(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Zero(t, sched.Len())
}

func TestTaskTargetWithoutPlaceholdersSkipsInjection(t *testing.T) {
	t.Parallel()

	h := newHarness(t, depends.FailCallback)
	explicit := &conn{}

	var fn func(ctx context.Context, c depends.Dep[*conn]) *task.Task[bool]
	fn = func(_ context.Context, c depends.Dep[*conn]) *task.Task[bool] {
		got := c.Get()
		return task.New(
			func(ctx context.Context) (bool, error) {
				return got == explicit && depends.LeaseFrom(ctx) == nil, nil
			},
		)
	}
	h.inject(t, &fn, asyncFactory(true, func() *conn { return &conn{} }))

	ctx := context.Background()
	ok, err := fn(ctx, depends.Use(explicit)).Get(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, h.sources())
}

func TestNilTaskFromAsyncFactoryFails(t *testing.T) {
	t.Parallel()

	h := newHarness(t, depends.FailCallback)

	var fn func(ctx context.Context, c depends.Dep[*conn]) *task.Task[int]
	fn = func(context.Context, depends.Dep[*conn]) *task.Task[int] {
		return task.Ready(1)
	}
	m := asyncFactory(true, func() *conn { return &conn{} })
	m.Async = func(context.Context) *task.Task[depends.PtrValue] { return nil }
	h.inject(t, &fn, m)

	assert.Nil(t, fn(context.Background(), depends.Auto[*conn]()))

	errs := h.failures()
	require.Len(t, errs, 1)
	assert.Equal(t, depends.ErrCodeMissingDependency, errs[0].Code)
}

func TestStalledAsyncFactoryIsAbandoned(t *testing.T) {
	t.Parallel()

	h := newHarness(t, depends.FailCallback)
	pending := task.NewSource[depends.PtrValue]()
	unwound := 0

	var fn func(ctx context.Context, c depends.Dep[*conn]) *task.Task[int]
	fn = func(context.Context, depends.Dep[*conn]) *task.Task[int] {
		return task.Ready(1)
	}
	m := asyncFactory(true, func() *conn { return &conn{} })
	m.Async = func(context.Context) *task.Task[depends.PtrValue] {
		return task.New(
			func(ctx context.Context) (depends.PtrValue, error) {
				defer func() { unwound++ }()
				return task.Await(ctx, pending.Task())
			},
		)
	}
	h.inject(t, &fn, m)

	assert.Nil(t, fn(context.Background(), depends.Auto[*conn]()))
	assert.Equal(t, 1, unwound)
	require.Len(t, h.failures(), 1)
	assert.True(t, pending.Complete(depends.PtrValue{}))
}
