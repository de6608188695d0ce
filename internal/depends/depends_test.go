package depends_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danpasecinic/detour/internal/depends"
	"github.com/danpasecinic/detour/internal/hook"
	"github.com/danpasecinic/detour/internal/scope"
)

type Config struct {
	Name string
}

type conn struct {
	mu     sync.Mutex
	closed int
}

func (c *conn) Close() error {
	c.mu.Lock()
	c.closed++
	c.mu.Unlock()
	return nil
}

func (c *conn) Closed() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

type harness struct {
	hooks    *hook.Registry
	injector *depends.Injector

	mu     sync.Mutex
	errs   []*depends.Error
	exits  []int
	events []scope.Source
}

func newHarness(t *testing.T, policy depends.FailPolicy) *harness {
	t.Helper()

	h := &harness{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	p := depends.NewPolicy(logger, func(code int) {
		h.mu.Lock()
		h.exits = append(h.exits, code)
		h.mu.Unlock()
	})
	p.Set(policy)
	p.SetCallback(func(err *depends.Error) {
		h.mu.Lock()
		h.errs = append(h.errs, err)
		h.mu.Unlock()
	})

	h.hooks = hook.NewRegistry(hook.Config{Logger: logger})
	h.injector = depends.NewInjector(depends.Config{
		Logger: logger,
		Policy: p,
		Observer: func(_ string, _ int, _ string, source scope.Source, _ time.Duration, _ error) {
			h.mu.Lock()
			h.events = append(h.events, source)
			h.mu.Unlock()
		},
	})

	t.Cleanup(func() {
		_ = h.hooks.Close()
	})
	return h
}

func (h *harness) inject(t *testing.T, fnPtr any, metas ...*depends.Meta) hook.Target {
	t.Helper()

	target, herr := hook.TargetOf(fnPtr)
	require.Nil(t, herr)
	for _, m := range metas {
		require.Nil(t, h.injector.Bind(target, m))
	}
	_, err := h.hooks.Attach(fnPtr, h.injector.Decorator(target))
	require.NoError(t, err)
	return target
}

func (h *harness) failures() []*depends.Error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]*depends.Error(nil), h.errs...)
}

func (h *harness) sources() []scope.Source {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]scope.Source(nil), h.events...)
}

func ownedFactory(fn func() *conn) *depends.Meta {
	return &depends.Meta{
		Index:   1,
		Type:    reflect.TypeFor[conn](),
		Factory: depends.FactoryKeyOf(fn),
		Owned:   true,
		Cached:  true,
		Sync: func() (depends.PtrValue, error) {
			return depends.PtrValue{Ptr: reflect.ValueOf(fn()), Owned: true}, nil
		},
	}
}

func TestDefaultConstructedDependencyIsSharedWithNestedCalls(t *testing.T) {
	t.Parallel()

	h := newHarness(t, depends.FailCallback)

	var inner func(ctx context.Context, cfg depends.Dep[*Config]) *Config
	inner = func(_ context.Context, cfg depends.Dep[*Config]) *Config {
		return cfg.Get()
	}

	var outer func(ctx context.Context, cfg depends.Dep[*Config]) []*Config
	outer = func(ctx context.Context, cfg depends.Dep[*Config]) []*Config {
		return []*Config{cfg.Get(), inner(ctx, depends.Auto[*Config]()), inner(ctx, depends.Auto[*Config]())}
	}

	h.inject(t, &inner)
	h.inject(t, &outer)

	first := outer(context.Background(), depends.Auto[*Config]())
	require.Len(t, first, 3)
	require.NotNil(t, first[0])
	assert.Same(t, first[0], first[1])
	assert.Same(t, first[0], first[2])

	second := outer(context.Background(), depends.Auto[*Config]())
	require.NotNil(t, second[0])
	assert.NotSame(t, first[0], second[0])

	assert.Equal(
		t,
		[]scope.Source{scope.FromDefault, scope.FromCache, scope.FromCache},
		h.sources()[:3],
	)
	assert.Empty(t, h.failures())
}

func TestValueCategoryReceivesCopy(t *testing.T) {
	t.Parallel()

	h := newHarness(t, depends.FailCallback)
	shared := &Config{Name: "shared"}

	var fn func(cfg depends.Dep[Config]) Config
	fn = func(cfg depends.Dep[Config]) Config {
		c := cfg.Get()
		c.Name += "-mutated"
		return c
	}
	target := h.inject(t, &fn)
	h.injector.Values.Set(target.Key(), depends.FactoryKey{}, reflect.TypeFor[Config](), reflect.ValueOf(shared))

	assert.Equal(t, "shared-mutated", fn(depends.Auto[Config]()).Name)
	assert.Equal(t, "shared", shared.Name)
}

func TestExplicitNilIsNotAPlaceholder(t *testing.T) {
	t.Parallel()

	h := newHarness(t, depends.FailCallback)

	var fn func(cfg depends.Dep[*Config]) bool
	fn = func(cfg depends.Dep[*Config]) bool {
		return cfg.Get() == nil
	}
	h.inject(t, &fn)

	assert.True(t, fn(depends.Use[*Config](nil)))
	assert.False(t, fn(depends.Auto[*Config]()))
	assert.False(t, fn(depends.Dep[*Config]{}))
}

func TestExplicitDependencyAndRemoval(t *testing.T) {
	t.Parallel()

	h := newHarness(t, depends.FailCallback)
	mine := &Config{Name: "mine"}

	var fn func(cfg depends.Dep[*Config]) *Config
	fn = func(cfg depends.Dep[*Config]) *Config {
		return cfg.Get()
	}
	target := h.inject(t, &fn)
	typ := reflect.TypeFor[Config]()

	h.injector.Values.Set(target.Key(), depends.FactoryKey{}, typ, reflect.ValueOf(mine))
	assert.Same(t, mine, fn(depends.Auto[*Config]()))

	require.True(t, h.injector.Values.Remove(target.Key(), depends.FactoryKey{}, typ))
	got := fn(depends.Auto[*Config]())
	require.NotNil(t, got)
	assert.NotSame(t, mine, got)
}

func TestFactoryKeyedExplicitValueDoesNotFallBack(t *testing.T) {
	t.Parallel()

	h := newHarness(t, depends.FailCallback)
	made := 0
	factory := func() *conn {
		made++
		return &conn{}
	}

	var fn func(ctx context.Context, c depends.Dep[*conn]) *conn
	fn = func(_ context.Context, c depends.Dep[*conn]) *conn {
		return c.Get()
	}
	meta := ownedFactory(factory)
	target := h.inject(t, &fn, meta)
	typ := reflect.TypeFor[conn]()

	unkeyed := &conn{}
	h.injector.Values.Set(depends.TargetGlobal, depends.FactoryKey{}, typ, reflect.ValueOf(unkeyed))
	got := fn(context.Background(), depends.Auto[*conn]())
	assert.NotSame(t, unkeyed, got)
	assert.Equal(t, 1, made)

	keyed := &conn{}
	h.injector.Values.Set(depends.TargetGlobal, meta.Factory, typ, reflect.ValueOf(keyed))
	assert.Same(t, keyed, fn(context.Background(), depends.Auto[*conn]()))
	assert.Equal(t, 1, made)

	scoped := &conn{}
	h.injector.Values.Set(target.Key(), meta.Factory, typ, reflect.ValueOf(scoped))
	assert.Same(t, scoped, fn(context.Background(), depends.Auto[*conn]()))
	assert.Zero(t, keyed.Closed())
}

func TestOwnedFactoryResultClosedOnceAtScopeExit(t *testing.T) {
	t.Parallel()

	h := newHarness(t, depends.FailCallback)
	var produced []*conn
	factory := func() *conn {
		c := &conn{}
		produced = append(produced, c)
		return c
	}

	var inner func(ctx context.Context, c depends.Dep[*conn]) int
	inner = func(_ context.Context, c depends.Dep[*conn]) int {
		return c.Get().Closed()
	}

	var outer func(ctx context.Context, c depends.Dep[*conn]) int
	outer = func(ctx context.Context, c depends.Dep[*conn]) int {
		return inner(ctx, depends.Auto[*conn]()) + c.Get().Closed()
	}

	meta := ownedFactory(factory)
	h.inject(t, &inner, meta)
	h.inject(t, &outer, meta)

	assert.Equal(t, 0, outer(context.Background(), depends.Auto[*conn]()))
	require.Len(t, produced, 1)
	assert.Equal(t, 1, produced[0].Closed())
}

func TestBorrowedFactoryResultIsNeverClosed(t *testing.T) {
	t.Parallel()

	h := newHarness(t, depends.FailCallback)
	global := &conn{}
	factory := func() *conn { return global }

	var fn func(c depends.Dep[*conn]) *conn
	fn = func(c depends.Dep[*conn]) *conn {
		return c.Get()
	}
	h.inject(t, &fn, &depends.Meta{
		Index:   0,
		Type:    reflect.TypeFor[conn](),
		Factory: depends.FactoryKeyOf(factory),
		Cached:  true,
		Sync: func() (depends.PtrValue, error) {
			return depends.PtrValue{Ptr: reflect.ValueOf(factory())}, nil
		},
	})

	for range 3 {
		assert.Same(t, global, fn(depends.Auto[*conn]()))
	}
	assert.Zero(t, global.Closed())
}

func TestUncachedOwnedFactoryRunsEveryTime(t *testing.T) {
	t.Parallel()

	h := newHarness(t, depends.FailCallback)
	var produced []*conn
	factory := func() *conn {
		c := &conn{}
		produced = append(produced, c)
		return c
	}

	var fn func(a depends.Dep[*conn], b depends.Dep[*conn]) bool
	fn = func(a depends.Dep[*conn], b depends.Dep[*conn]) bool {
		return a.Get() == b.Get()
	}

	meta := func(i int) *depends.Meta {
		m := ownedFactory(factory)
		m.Index = i
		m.Cached = false
		return m
	}
	h.inject(t, &fn, meta(0), meta(1))

	assert.False(t, fn(depends.Auto[*conn](), depends.Auto[*conn]()))
	require.Len(t, produced, 2)
	for _, c := range produced {
		assert.Equal(t, 1, c.Closed())
	}
}

func TestResolutionFailuresVetoTheCall(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		code depends.ErrorCode
		call func(t *testing.T, h *harness) bool
	}{
		{
			name: "interface pointer without provider",
			code: depends.ErrCodeMissingDependency,
			call: func(t *testing.T, h *harness) bool {
				called := false
				var fn func(r depends.Dep[*io.Reader])
				fn = func(depends.Dep[*io.Reader]) { called = true }
				h.inject(t, &fn)
				fn(depends.Auto[*io.Reader]())
				return called
			},
		},
		{
			name: "interface value without provider",
			code: depends.ErrCodeInvalidPlaceholder,
			call: func(t *testing.T, h *harness) bool {
				called := false
				var fn func(s depends.Dep[fmt.Stringer])
				fn = func(depends.Dep[fmt.Stringer]) { called = true }
				h.inject(t, &fn)
				fn(depends.Auto[fmt.Stringer]())
				return called
			},
		},
		{
			name: "factory returned nil",
			code: depends.ErrCodeMissingDependency,
			call: func(t *testing.T, h *harness) bool {
				called := false
				var fn func(ctx context.Context, c depends.Dep[*conn])
				fn = func(context.Context, depends.Dep[*conn]) { called = true }
				h.inject(t, &fn, ownedFactory(func() *conn { return nil }))
				fn(context.Background(), depends.Auto[*conn]())
				return called
			},
		},
		{
			name: "factory error",
			code: depends.ErrCodeMissingDependency,
			call: func(t *testing.T, h *harness) bool {
				called := false
				var fn func(ctx context.Context, c depends.Dep[*conn])
				fn = func(context.Context, depends.Dep[*conn]) { called = true }
				m := ownedFactory(func() *conn { return &conn{} })
				m.Sync = func() (depends.PtrValue, error) { return depends.PtrValue{}, errors.New("down") }
				h.inject(t, &fn, m)
				fn(context.Background(), depends.Auto[*conn]())
				return called
			},
		},
		{
			name: "factory returned wrong type",
			code: depends.ErrCodeFactoryMismatch,
			call: func(t *testing.T, h *harness) bool {
				called := false
				var fn func(ctx context.Context, c depends.Dep[*conn])
				fn = func(context.Context, depends.Dep[*conn]) { called = true }
				m := ownedFactory(func() *conn { return &conn{} })
				m.Sync = func() (depends.PtrValue, error) {
					return depends.PtrValue{Ptr: reflect.ValueOf(&Config{}), Owned: true}, nil
				}
				h.inject(t, &fn, m)
				fn(context.Background(), depends.Auto[*conn]())
				return called
			},
		},
	}

	for _, tt := range tests {
		t.Run(
			tt.name, func(t *testing.T) {
				t.Parallel()

				h := newHarness(t, depends.FailCallback)
				assert.False(t, tt.call(t, h))

				errs := h.failures()
				require.Len(t, errs, 1)
				assert.Equal(t, tt.code, errs[0].Code)
				assert.NotEmpty(t, errs[0].Target)
				assert.NotEmpty(t, errs[0].RequestedType)
			},
		)
	}
}

func TestThrowPolicyPanicsWithInjectError(t *testing.T) {
	t.Parallel()

	h := newHarness(t, depends.FailThrow)

	var fn func(r depends.Dep[*io.Reader])
	fn = func(depends.Dep[*io.Reader]) {}
	h.inject(t, &fn)

	defer func() {
		r := recover()
		err, ok := r.(*depends.Error)
		require.True(t, ok, "panic value %v", r)
		assert.Equal(t, depends.ErrCodeMissingDependency, err.Code)
		assert.Len(t, h.failures(), 1)
	}()
	fn(depends.Auto[*io.Reader]())
	t.Fatal("expected panic")
}

func TestTerminatePolicyExitsWithCodeTwo(t *testing.T) {
	t.Parallel()

	h := newHarness(t, depends.FailTerminate)

	called := false
	var fn func(r depends.Dep[*io.Reader])
	fn = func(depends.Dep[*io.Reader]) { called = true }
	h.inject(t, &fn)

	fn(depends.Auto[*io.Reader]())
	assert.False(t, called)

	h.mu.Lock()
	defer h.mu.Unlock()
	assert.Equal(t, []int{2}, h.exits)
}

func TestBindRejectsMismatchedMetadata(t *testing.T) {
	t.Parallel()

	h := newHarness(t, depends.FailCallback)

	fn := func(ctx context.Context, cfg depends.Dep[*Config], n int) {}
	target, herr := hook.TargetOf(&fn)
	require.Nil(t, herr)

	err := h.injector.Bind(target, &depends.Meta{Index: 1, Type: reflect.TypeFor[conn](), Plain: true, Cached: true})
	require.NotNil(t, err)
	assert.Equal(t, depends.ErrCodeTypeMismatch, err.Code)

	err = h.injector.Bind(target, &depends.Meta{Index: 2, Type: reflect.TypeFor[int](), Plain: true})
	require.NotNil(t, err)
	assert.Equal(t, depends.ErrCodeInvalidPlaceholder, err.Code)

	err = h.injector.Bind(target, &depends.Meta{Index: 7, Type: reflect.TypeFor[Config]()})
	require.NotNil(t, err)
	assert.Equal(t, depends.ErrCodeTypeMismatch, err.Code)

	require.Nil(t, h.injector.Bind(target, &depends.Meta{Index: 1, Type: reflect.TypeFor[Config](), Plain: true}))
	assert.Empty(t, h.injector.Validate(target))
}

func TestDecoratorIsSharedPerTarget(t *testing.T) {
	t.Parallel()

	h := newHarness(t, depends.FailCallback)

	fn := func(ctx context.Context, a depends.Dep[*Config], n int, b depends.Dep[Config]) {}
	target, herr := hook.TargetOf(&fn)
	require.Nil(t, herr)

	d := h.injector.Decorator(target)
	assert.Same(t, d, h.injector.Decorator(target))
	assert.Equal(t, []int{1, 3}, d.Params())
	assert.False(t, d.ReturnsTask())
	assert.Equal(t, "inject", d.String())
}
