package detour

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/tebeka/atexit"

	"github.com/danpasecinic/detour/internal/depends"
	"github.com/danpasecinic/detour/internal/hook"
	"github.com/danpasecinic/detour/internal/scope"
)

type (
	HookFailPolicy   = hook.FailPolicy
	InjectFailPolicy = depends.FailPolicy
)

const (
	HookIgnore    = hook.FailIgnore
	HookThrow     = hook.FailThrow
	HookCallback  = hook.FailCallback
	HookTerminate = hook.FailTerminate

	InjectTerminate = depends.FailTerminate
	InjectThrow     = depends.FailThrow
	InjectCallback  = depends.FailCallback
)

// Runtime owns the hook pipelines and the dependency registries of one
// program. Most programs use Default.
type Runtime struct {
	hooks    *hook.Registry
	injector *depends.Injector
	config   *runtimeConfig
	closed   atomic.Bool
}

type runtimeConfig struct {
	logger         *slog.Logger
	fallbackLogger func() *slog.Logger
	onDispatch     []DispatchHook
	onResolve      []ResolveHook
	hooker         Hooker
	exit           func(code int)
	hookPolicy     HookFailPolicy
	injectPolicy   InjectFailPolicy
}

func New(opts ...Option) *Runtime {
	cfg := &runtimeConfig{
		exit:         atexit.Exit,
		hookPolicy:   HookIgnore,
		injectPolicy: InjectTerminate,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.logger == nil {
		if cfg.fallbackLogger != nil {
			cfg.logger = cfg.fallbackLogger()
		} else {
			cfg.logger = slog.Default()
		}
	}

	hookPolicy := hook.NewPolicy(cfg.logger, cfg.exit)
	hookPolicy.Set(cfg.hookPolicy)
	injectPolicy := depends.NewPolicy(cfg.logger, cfg.exit)
	injectPolicy.Set(cfg.injectPolicy)

	var dispatch hook.DispatchObserver
	if len(cfg.onDispatch) > 0 {
		dispatch = func(target string, d time.Duration, vetoed bool) {
			for _, h := range cfg.onDispatch {
				h(target, d, vetoed)
			}
		}
	}

	var resolve depends.ResolveObserver
	if len(cfg.onResolve) > 0 {
		resolve = func(target string, index int, typ string, source scope.Source, d time.Duration, err error) {
			for _, h := range cfg.onResolve {
				h(target, index, typ, source, d, err)
			}
		}
	}

	return &Runtime{
		hooks: hook.NewRegistry(
			hook.Config{
				Hooker:   cfg.hooker,
				Policy:   hookPolicy,
				Logger:   cfg.logger,
				Observer: dispatch,
			},
		),
		injector: depends.NewInjector(
			depends.Config{
				Logger:   cfg.logger,
				Policy:   injectPolicy,
				Observer: resolve,
			},
		),
		config: cfg,
	}
}

var (
	defaultRuntime *Runtime
	defaultOnce    sync.Once
)

// Default returns the process-wide runtime, created on first use.
func Default() *Runtime {
	defaultOnce.Do(
		func() {
			defaultRuntime = New()
		},
	)
	return defaultRuntime
}

func (rt *Runtime) Logger() *slog.Logger {
	return rt.config.logger
}

// Close uninstalls every pipeline, putting the original functions back,
// and forgets all registrations. A closed runtime rejects new bindings.
func (rt *Runtime) Close() error {
	if !rt.closed.CompareAndSwap(false, true) {
		return nil
	}

	var result *multierror.Error
	if err := rt.hooks.Close(); err != nil {
		result = multierror.Append(result, err)
	}
	rt.injector.Clear()

	rt.config.logger.Debug("runtime closed")
	return result.ErrorOrNil()
}

func (rt *Runtime) checkOpen() error {
	if rt.closed.Load() {
		return errRuntimeClosed()
	}
	return nil
}

func (rt *Runtime) SetHookFailPolicy(policy HookFailPolicy) {
	rt.hooks.Policy().Set(policy)
}

func (rt *Runtime) HookFailPolicy() HookFailPolicy {
	return rt.hooks.Policy().Get()
}

// SetHookFailCallback sets the function told about every hook failure,
// whatever the policy.
func (rt *Runtime) SetHookFailCallback(cb func(err *HookError)) {
	rt.hooks.Policy().SetCallback(cb)
}

// LastHookError returns the most recent hook failure of this runtime.
func (rt *Runtime) LastHookError() *HookError {
	return rt.hooks.Policy().Last()
}

func (rt *Runtime) ClearLastHookError() {
	rt.hooks.Policy().ClearLast()
}

func (rt *Runtime) SetInjectFailPolicy(policy InjectFailPolicy) {
	rt.injector.Policy().Set(policy)
}

func (rt *Runtime) InjectFailPolicy() InjectFailPolicy {
	return rt.injector.Policy().Get()
}

// SetInjectFailCallback sets the function told about every resolution
// failure, whatever the policy.
func (rt *Runtime) SetInjectFailCallback(cb func(err *InjectError)) {
	rt.injector.Policy().SetCallback(cb)
}
