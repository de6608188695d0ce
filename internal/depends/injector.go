package depends

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/danpasecinic/detour/internal/hook"
	ireflect "github.com/danpasecinic/detour/internal/reflect"
	"github.com/danpasecinic/detour/internal/scope"
)

// ResolveObserver is told about every placeholder resolution.
type ResolveObserver func(target string, index int, typ string, source scope.Source, duration time.Duration, err error)

type Config struct {
	Logger   *slog.Logger
	Policy   *Policy
	Observer ResolveObserver
}

// Injector owns the explicit value registry, the default-argument metadata
// and the pool of reusable scope states.
type Injector struct {
	Values *ValueRegistry
	Metas  *MetaRegistry

	policy   *Policy
	logger   *slog.Logger
	observer ResolveObserver
	pool     sync.Pool

	mu         sync.Mutex
	decorators map[uintptr]*InjectDecorator
}

func NewInjector(cfg Config) *Injector {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	policy := cfg.Policy
	if policy == nil {
		policy = NewPolicy(logger, nil)
	}

	in := &Injector{
		Values:     NewValueRegistry(),
		Metas:      NewMetaRegistry(),
		policy:     policy,
		logger:     logger,
		observer:   cfg.Observer,
		decorators: make(map[uintptr]*InjectDecorator),
	}
	in.pool.New = func() any { return newState() }
	return in
}

func (in *Injector) Policy() *Policy {
	return in.policy
}

// Decorator returns the inject node of target, creating it on first use.
func (in *Injector) Decorator(target hook.Target) *InjectDecorator {
	in.mu.Lock()
	defer in.mu.Unlock()

	if d, ok := in.decorators[target.Key()]; ok {
		return d
	}
	d := newInjectDecorator(in, target)
	in.decorators[target.Key()] = d
	return d
}

// Bind registers m for parameter m.Index of target. The parameter must be
// a Dep whose object type is m.Type.
func (in *Injector) Bind(target hook.Target, m *Meta) *Error {
	if err := checkMeta(target, m); err != nil {
		return err
	}
	in.Metas.Register(target.Key(), m)
	in.logger.Debug(
		"dependency bound",
		"target", target.String(),
		"param", m.Index,
		"type", ireflect.TypeKeyOf(m.Type),
		"factory", m.Factory.String(),
	)
	return nil
}

// Validate re-checks every metadata entry of target against its func type.
func (in *Injector) Validate(target hook.Target) []error {
	var errs []error
	for _, m := range in.Metas.ForTarget(target.Key()) {
		if err := checkMeta(target, m); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

func checkMeta(target hook.Target, m *Meta) *Error {
	fnType := target.Type()
	req := Request{Target: target.Key(), TargetName: target.String(), Index: m.Index}

	if m.Index < 0 || m.Index >= fnType.NumIn() {
		return newError(
			ErrCodeTypeMismatch, req, m.Factory,
			fmt.Sprintf("parameter index out of range [0,%d)", fnType.NumIn()), nil,
		)
	}

	declared, ok := DeclaredType(fnType.In(m.Index))
	if !ok {
		req.Declared = fnType.In(m.Index)
		return newError(ErrCodeInvalidPlaceholder, req, m.Factory, "parameter is not a Dep", nil)
	}
	req.Declared = declared

	if raw, _ := Category(declared); raw != m.Type {
		return newError(
			ErrCodeTypeMismatch, req, m.Factory,
			fmt.Sprintf("dependency provides %s", m.Type), nil,
		)
	}
	return nil
}

// Forget drops the metadata and explicit values of one target.
func (in *Injector) Forget(target uintptr) {
	in.Metas.RemoveTarget(target)
	in.Values.ClearTarget(target)

	in.mu.Lock()
	delete(in.decorators, target)
	in.mu.Unlock()
}

func (in *Injector) Clear() {
	in.Metas.Clear()
	in.Values.Clear()

	in.mu.Lock()
	clear(in.decorators)
	in.mu.Unlock()
}

func (in *Injector) observe(req Request, source scope.Source, start time.Time, err *Error) {
	if in.observer == nil {
		return
	}
	var e error
	if err != nil {
		e = err
	}
	in.observer(req.TargetName, req.Index, ireflect.TypeKeyOf(req.Declared), source, time.Since(start), e)
}
