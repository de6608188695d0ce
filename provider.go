package detour

import (
	"context"
	"fmt"
	"reflect"

	"github.com/danpasecinic/detour/internal/depends"
	"github.com/danpasecinic/detour/task"
)

// Dependency describes where the default of one Dep parameter comes from.
type Dependency struct {
	typ     reflect.Type
	factory depends.FactoryKey
	owned   bool
	cached  bool
	plain   bool
	sync    func() (depends.PtrValue, error)
	async   func(ctx context.Context) *task.Task[depends.PtrValue]
}

type DependencyOption func(*Dependency)

// Uncached makes every resolution produce a fresh object instead of
// reusing the one cached in the scope.
func Uncached() DependencyOption {
	return func(d *Dependency) {
		d.cached = false
	}
}

func newDependency(typ reflect.Type, opts []DependencyOption) Dependency {
	d := Dependency{typ: typ, cached: true}
	for _, opt := range opts {
		opt(&d)
	}
	return d
}

// Depends resolves a U from the scope cache, explicit values or, failing
// those, a default-constructed U owned by the scope.
func Depends[U any](opts ...DependencyOption) Dependency {
	d := newDependency(reflect.TypeFor[U](), opts)
	d.plain = true
	return d
}

// DependsOn resolves a U produced by factory. The scope owns the result and
// closes it on exit if it implements io.Closer.
func DependsOn[U any](factory func() *U, opts ...DependencyOption) Dependency {
	return syncDependency(factory, true, opts)
}

// DependsOnRef is DependsOn for objects the scope must never close.
func DependsOnRef[U any](factory func() *U, opts ...DependencyOption) Dependency {
	return syncDependency(factory, false, opts)
}

// DependsOnAsync resolves a U produced by a task. The task is awaited
// before the target runs.
func DependsOnAsync[U any](factory func(ctx context.Context) *task.Task[*U], opts ...DependencyOption) Dependency {
	return asyncDependency(factory, true, opts)
}

func DependsOnAsyncRef[U any](factory func(ctx context.Context) *task.Task[*U], opts ...DependencyOption) Dependency {
	return asyncDependency(factory, false, opts)
}

func syncDependency[U any](factory func() *U, owned bool, opts []DependencyOption) Dependency {
	d := newDependency(reflect.TypeFor[U](), opts)
	d.factory = depends.FactoryKeyOf(factory)
	d.owned = owned
	if factory == nil {
		return d
	}
	key, cached := d.factory, d.cached
	d.sync = func() (depends.PtrValue, error) {
		return depends.PtrValue{Ptr: reflect.ValueOf(factory()), Owned: owned, Factory: key, Cached: cached}, nil
	}
	return d
}

func asyncDependency[U any](
	factory func(ctx context.Context) *task.Task[*U],
	owned bool,
	opts []DependencyOption,
) Dependency {
	d := newDependency(reflect.TypeFor[U](), opts)
	d.factory = depends.FactoryKeyOf(factory)
	d.owned = owned
	if factory == nil {
		return d
	}
	key, cached := d.factory, d.cached
	d.async = func(ctx context.Context) *task.Task[depends.PtrValue] {
		inner := factory(ctx)
		if inner == nil {
			return nil
		}
		return task.New(
			func(ctx context.Context) (depends.PtrValue, error) {
				ptr, err := task.Await(ctx, inner)
				if err != nil {
					return depends.PtrValue{}, err
				}
				return depends.PtrValue{Ptr: reflect.ValueOf(ptr), Owned: owned, Factory: key, Cached: cached}, nil
			},
		)
	}
	return d
}

func (d Dependency) Type() reflect.Type {
	return d.typ
}

func (d Dependency) IsAsync() bool {
	return d.async != nil
}

func (d Dependency) meta(index int) *depends.Meta {
	return &depends.Meta{
		Index:   index,
		Type:    d.typ,
		Factory: d.factory,
		Owned:   d.owned,
		Cached:  d.cached,
		Plain:   d.plain,
		Sync:    d.sync,
		Async:   d.async,
	}
}

func (d Dependency) String() string {
	switch {
	case d.plain:
		return fmt.Sprintf("Depends[%s]", d.typ)
	case d.owned:
		return fmt.Sprintf("DependsOn[%s](%s)", d.typ, d.factory)
	default:
		return fmt.Sprintf("DependsOnRef[%s](%s)", d.typ, d.factory)
	}
}

// ParamBinding ties a Dependency to a parameter index.
type ParamBinding struct {
	index int
	dep   Dependency
}

func Param(index int, dep Dependency) ParamBinding {
	return ParamBinding{index: index, dep: dep}
}

// Inject registers the defaults of target's Dep parameters and installs the
// inject node. Dep parameters without a binding still resolve through the
// scope cache, explicit values and default construction.
//
//	var Handle = func(ctx context.Context, db detour.Dep[*DB]) error { ... }
//	err := detour.Inject(rt, &Handle, detour.Param(1, detour.DependsOn(OpenDB)))
func Inject[F any](rt *Runtime, target *F, params ...ParamBinding) error {
	if err := rt.checkOpen(); err != nil {
		return err
	}

	p, err := rt.hooks.Resolve(target)
	if err != nil {
		return errInvalidTarget(err)
	}
	t := p.Target()

	for _, param := range params {
		if param.dep.typ == nil {
			return errInvalidBinding(t.String(), fmt.Sprintf("parameter %d has an empty dependency", param.index), nil)
		}
		if !param.dep.plain && param.dep.sync == nil && param.dep.async == nil {
			return errInvalidBinding(t.String(), fmt.Sprintf("parameter %d has a nil factory", param.index), nil)
		}
		if ierr := rt.injector.Bind(t, param.dep.meta(param.index)); ierr != nil {
			return errInvalidBinding(t.String(), fmt.Sprintf("parameter %d", param.index), ierr)
		}
	}

	return p.Register(rt.injector.Decorator(t))
}
