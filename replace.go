package detour

import (
	"reflect"

	"github.com/danpasecinic/detour/internal/depends"
	"github.com/danpasecinic/detour/internal/hook"
	ireflect "github.com/danpasecinic/detour/internal/reflect"
)

// Override is an explicit value installed by ScopeOverrideDependency.
// Restore puts back what was registered before it.
type Override = depends.Override

type valueConfig struct {
	target     uintptr
	targetName string
	factory    depends.FactoryKey
	err        error
}

type ValueOption func(*valueConfig)

// ForTarget limits an explicit value to calls of one target. Without it
// the value applies to every target.
func ForTarget[F any](target *F) ValueOption {
	return func(cfg *valueConfig) {
		t, herr := hook.TargetOf(target)
		if herr != nil {
			cfg.err = errInvalidTarget(herr)
			return
		}
		cfg.target = t.Key()
		cfg.targetName = t.String()
	}
}

// ForFactory keys an explicit value to the factory of a DependsOn binding.
// Such a value replaces that factory and is never used for other bindings.
func ForFactory(factory any) ValueOption {
	return func(cfg *valueConfig) {
		if ireflect.IsNil(factory) {
			cfg.err = errInvalidBinding(cfg.targetName, "explicit dependency factory is nil", nil)
			return
		}
		cfg.factory = depends.FactoryKeyOf(factory)
	}
}

func newValueConfig(opts []ValueOption) (*valueConfig, error) {
	cfg := &valueConfig{target: depends.TargetGlobal}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg, cfg.err
}

// InjectDependency registers value as the object injected for U. The value
// is borrowed: the runtime never closes it.
func InjectDependency[U any](rt *Runtime, value *U, opts ...ValueOption) error {
	if err := rt.checkOpen(); err != nil {
		return err
	}
	cfg, err := newValueConfig(opts)
	if err != nil {
		return err
	}
	if value == nil {
		return errInvalidBinding(cfg.targetName, "explicit dependency is nil", nil)
	}

	rt.injector.Values.Set(cfg.target, cfg.factory, reflect.TypeFor[U](), reflect.ValueOf(value))
	rt.config.logger.Debug(
		"dependency injected",
		"type", ireflect.TypeKey[U](),
		"target", cfg.targetName,
		"factory", cfg.factory.String(),
	)
	return nil
}

// RemoveDependency removes the explicit U registered with the same options.
func RemoveDependency[U any](rt *Runtime, opts ...ValueOption) bool {
	cfg, err := newValueConfig(opts)
	if err != nil {
		return false
	}
	return rt.injector.Values.Remove(cfg.target, cfg.factory, reflect.TypeFor[U]())
}

// ClearDependencies removes explicit values: those of one target when
// ForTarget is given, all of them otherwise.
func ClearDependencies(rt *Runtime, opts ...ValueOption) int {
	cfg, err := newValueConfig(opts)
	if err != nil {
		return 0
	}
	if cfg.target == depends.TargetGlobal {
		return rt.injector.Values.Clear()
	}
	return rt.injector.Values.ClearTarget(cfg.target)
}

// ScopeOverrideDependency installs value like InjectDependency until the
// returned Override is restored.
//
//	o, _ := detour.ScopeOverrideDependency(rt, &fakeDB, detour.ForTarget(&Handle))
//	defer o.Restore()
func ScopeOverrideDependency[U any](rt *Runtime, value *U, opts ...ValueOption) (*Override, error) {
	if err := rt.checkOpen(); err != nil {
		return nil, err
	}
	cfg, err := newValueConfig(opts)
	if err != nil {
		return nil, err
	}
	if value == nil {
		return nil, errInvalidBinding(cfg.targetName, "override dependency is nil", nil)
	}
	return depends.NewOverride(
		rt.injector.Values, cfg.target, cfg.factory, reflect.TypeFor[U](), reflect.ValueOf(value),
	), nil
}
