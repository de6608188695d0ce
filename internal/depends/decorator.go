package depends

import (
	"context"
	"reflect"

	"github.com/danpasecinic/detour/internal/hook"
	ireflect "github.com/danpasecinic/detour/internal/reflect"
	"github.com/danpasecinic/detour/task"
)

var (
	contextType  = reflect.TypeFor[context.Context]()
	bindableType = reflect.TypeFor[task.Bindable]()
)

type injectParam struct {
	index    int
	declared reflect.Type
}

// InjectDecorator is the pipeline node that fills placeholder arguments.
// Before the call it opens a scope lease and resolves every placeholder in
// it. After the call the lease is handed to a returned task, or released.
type InjectDecorator struct {
	injector *Injector
	target   hook.Target

	ctxIndex  int
	taskIndex int
	params    []injectParam
}

func newInjectDecorator(in *Injector, target hook.Target) *InjectDecorator {
	d := &InjectDecorator{injector: in, target: target, ctxIndex: -1, taskIndex: -1}

	fnType := target.Type()
	for i := 0; i < fnType.NumIn(); i++ {
		param := fnType.In(i)
		if d.ctxIndex < 0 && param == contextType {
			d.ctxIndex = i
			continue
		}
		if declared, ok := DeclaredType(param); ok {
			d.params = append(d.params, injectParam{index: i, declared: declared})
		}
	}
	for i := 0; i < fnType.NumOut(); i++ {
		if fnType.Out(i).Implements(bindableType) {
			d.taskIndex = i
			break
		}
	}
	return d
}

func (d *InjectDecorator) String() string {
	return "inject"
}

func (d *InjectDecorator) ContextSize() int {
	return 0
}

// ReturnsTask reports whether the target hands back a task that can carry
// the scope lease past the call.
func (d *InjectDecorator) ReturnsTask() bool {
	return d.taskIndex >= 0
}

func (d *InjectDecorator) Params() []int {
	out := make([]int, len(d.params))
	for i, p := range d.params {
		out[i] = p.index
	}
	return out
}

func (d *InjectDecorator) BeforeCall(cc *hook.CallContext, args []*hook.ArgSlot) bool {
	pending := d.pending(args)
	if len(pending) == 0 && d.ReturnsTask() {
		return true
	}

	ctx := context.Background()
	if d.ctxIndex >= 0 {
		if c, ok := args[d.ctxIndex].Interface().(context.Context); ok && c != nil {
			ctx = c
		}
	}

	lease := d.injector.Acquire(ctx)
	cc.Store(lease)
	ctx = lease.Attach(ctx)
	if d.ctxIndex >= 0 {
		_ = args[d.ctxIndex].Assign(reflect.ValueOf(ctx))
	}

	defer func() {
		if r := recover(); r != nil {
			d.abandon(cc, lease)
			panic(r)
		}
	}()

	for _, p := range pending {
		req := Request{
			Target:     d.target.Key(),
			TargetName: d.target.String(),
			Index:      p.index,
			Declared:   p.declared,
		}
		v, err := d.injector.Resolve(ctx, lease, req)
		if err == nil {
			ph, _ := asPlaceholder(args[p.index].Value())
			if aerr := args[p.index].Assign(ph.fill(v)); aerr != nil {
				err = newError(ErrCodeTypeMismatch, req, FactoryKey{}, "cannot assign dependency", aerr)
			}
		}
		if err != nil {
			d.abandon(cc, lease)
			d.injector.policy.Raise(err)
			return false
		}
	}
	return true
}

func (d *InjectDecorator) AfterCall(cc *hook.CallContext, results *hook.Results) {
	lease, _ := cc.Load().(*Lease)
	if lease == nil {
		return
	}
	cc.Store(nil)

	if d.ReturnsTask() && !results.Vetoed() {
		v := results.Value(d.taskIndex)
		if !ireflect.IsNilValue(v) {
			if b, ok := v.Interface().(task.Bindable); ok {
				b.BindInjectContext(lease)
				return
			}
		}
	}
	lease.Release()
}

func (d *InjectDecorator) pending(args []*hook.ArgSlot) []injectParam {
	var out []injectParam
	for _, p := range d.params {
		if ph, ok := asPlaceholder(args[p.index].Value()); ok && ph.IsPlaceholder() {
			out = append(out, p)
		}
	}
	return out
}

func (d *InjectDecorator) abandon(cc *hook.CallContext, lease *Lease) {
	cc.Store(nil)
	if !lease.released.Load() {
		lease.Release()
	}
}
