package depends

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"time"

	ireflect "github.com/danpasecinic/detour/internal/reflect"
	"github.com/danpasecinic/detour/internal/scope"
	"github.com/danpasecinic/detour/task"
)

// Request names one placeholder parameter of one target.
type Request struct {
	Target     uintptr
	TargetName string
	Index      int
	Declared   reflect.Type
}

var errNilTask = errors.New("async factory returned a nil task")

// Resolve produces the argument for a placeholder in lease's frame: a *U
// for a pointer parameter, a copy of the cached U otherwise.
//
// Lookup order is the slot cache (unless the metadata is uncached), the
// explicit registry, the metadata factory and finally default
// construction.
func (in *Injector) Resolve(ctx context.Context, lease *Lease, req Request) (reflect.Value, *Error) {
	start := time.Now()
	raw, pointer := Category(req.Declared)
	meta, hasMeta := in.Metas.Lookup(req.Target, req.Index, raw)

	ptr, source, err := in.resolvePtr(ctx, lease, req, raw, pointer, meta, hasMeta)
	in.observe(req, source, start, err)
	if err != nil {
		return reflect.Value{}, err
	}

	if pointer {
		return ptr, nil
	}
	out := reflect.New(raw).Elem()
	out.Set(ptr.Elem())
	return out, nil
}

func (in *Injector) resolvePtr(
	ctx context.Context,
	lease *Lease,
	req Request,
	raw reflect.Type,
	pointer bool,
	meta *Meta,
	hasMeta bool,
) (reflect.Value, scope.Source, *Error) {
	st, frame := lease.state, lease.local

	var factory FactoryKey
	cached := true
	if hasMeta {
		factory = meta.Factory
		cached = meta.Cached
	}
	key := SlotKey{Type: raw, Factory: factory}

	if cached {
		if slot, ok := st.find(frame, key); ok {
			return slot.Obj, scope.FromCache, nil
		}
	}

	if v, ok := in.Values.Find(req.Target, factory, raw); ok {
		if ireflect.IsNilValue(v) {
			return reflect.Value{}, scope.FromExplicit, newError(
				ErrCodeMissingDependency, req, factory, "explicit dependency is nil", nil,
			)
		}
		return v, scope.FromExplicit, nil
	}

	if hasMeta && !meta.Plain {
		pv, ferr := in.runFactory(ctx, lease, meta)
		if ferr != nil {
			return reflect.Value{}, scope.FromFactory, newError(
				ErrCodeMissingDependency, req, factory, "dependency factory failed", ferr,
			)
		}
		if !pv.Ptr.IsValid() || ireflect.IsNilValue(pv.Ptr) {
			return reflect.Value{}, scope.FromFactory, newError(
				ErrCodeMissingDependency, req, factory, "dependency factory returned nil", nil,
			)
		}
		if pv.Ptr.Type() != reflect.PointerTo(raw) {
			return reflect.Value{}, scope.FromFactory, newError(
				ErrCodeFactoryMismatch, req, factory,
				fmt.Sprintf("dependency factory returned %s", pv.Ptr.Type()), nil,
			)
		}

		ownership := scope.Borrowed
		if pv.Owned {
			ownership = scope.Owned
		}
		in.keep(st, frame, key, pv.Ptr, ownership, cached)
		return pv.Ptr, scope.FromFactory, nil
	}

	if !ireflect.CanConstruct(raw) {
		code := ErrCodeInvalidPlaceholder
		if pointer {
			code = ErrCodeMissingDependency
		}
		return reflect.Value{}, scope.FromDefault, newError(
			code, req, factory, fmt.Sprintf("no provider and %s cannot be constructed", raw), nil,
		)
	}

	obj := reflect.New(raw)
	in.keep(st, frame, key, obj, scope.Owned, cached)
	return obj, scope.FromDefault, nil
}

// keep records a produced object in frame. A borrowed pointer that is
// already cached keeps its existing slot and ownership.
func (in *Injector) keep(st *State, frame *Context, key SlotKey, obj reflect.Value, ownership scope.Ownership, cached bool) {
	if !cached {
		if ownership == scope.Owned {
			st.adopt(frame, obj)
		}
		return
	}
	if ownership == scope.Borrowed {
		if prev, ok := st.find(frame, key); ok && prev.Obj.Pointer() == obj.Pointer() {
			return
		}
	}
	st.upsert(frame, key, &Slot{Obj: obj, Ownership: ownership})
}

// runFactory calls the metadata factory with the lease attached. Async
// factories are awaited: inside a task body the task suspends, elsewhere
// the scheduler in ctx is pumped until the factory task completes. A factory
// task that cannot complete is abandoned.
func (in *Injector) runFactory(ctx context.Context, lease *Lease, m *Meta) (PtrValue, error) {
	st := lease.state
	st.enterFactory()
	defer st.exitFactory()

	if !m.IsAsync() {
		if m.Sync == nil {
			return PtrValue{}, errors.New("dependency has no factory")
		}
		return m.Sync()
	}

	fctx := lease.Attach(ctx)
	t := m.Async(fctx)
	if t == nil {
		return PtrValue{}, errNilTask
	}
	v, err := task.Await(fctx, t)
	if errors.Is(err, task.ErrDeadlock) {
		t.Abandon()
	}
	return v, err
}
