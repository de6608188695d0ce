package detour

import (
	"log/slog"

	"github.com/danpasecinic/detour/config"
	"github.com/danpasecinic/detour/internal/hook"
)

type Option func(*runtimeConfig)

func WithLogger(logger *slog.Logger) Option {
	return func(cfg *runtimeConfig) {
		cfg.logger = logger
	}
}

func WithDispatchObserver(hook DispatchHook) Option {
	return func(cfg *runtimeConfig) {
		cfg.onDispatch = append(cfg.onDispatch, hook)
	}
}

func WithResolveObserver(hook ResolveHook) Option {
	return func(cfg *runtimeConfig) {
		cfg.onResolve = append(cfg.onResolve, hook)
	}
}

// WithHooker replaces the backend that patches targets.
func WithHooker(h Hooker) Option {
	return func(cfg *runtimeConfig) {
		cfg.hooker = h
	}
}

// WithExitFunc replaces the process exit used by the terminate policies.
func WithExitFunc(exit func(code int)) Option {
	return func(cfg *runtimeConfig) {
		cfg.exit = exit
	}
}

func WithHookFailPolicy(policy HookFailPolicy) Option {
	return func(cfg *runtimeConfig) {
		cfg.hookPolicy = policy
	}
}

func WithInjectFailPolicy(policy InjectFailPolicy) Option {
	return func(cfg *runtimeConfig) {
		cfg.injectPolicy = policy
	}
}

// WithConfig applies loaded settings: both fail policies and, unless
// WithLogger is also given, the runtime logger.
func WithConfig(c *config.Config) Option {
	return func(cfg *runtimeConfig) {
		if c == nil {
			return
		}
		if p, err := c.HookFailPolicy(); err == nil {
			cfg.hookPolicy = p
		}
		if p, err := c.InjectFailPolicy(); err == nil {
			cfg.injectPolicy = p
		}
		cfg.fallbackLogger = c.Log.NewSlog
	}
}

type Hooker = hook.Hooker

// NewFuncVarHooker returns the default backend, which swaps the function
// stored in the target variable.
func NewFuncVarHooker() *hook.FuncVarHooker {
	return hook.NewFuncVarHooker()
}
