// Package detourtest provides a hermetic Runtime for tests. Every hooked
// target is restored when the test ends.
package detourtest

import (
	"io"
	"log/slog"
	"reflect"

	"github.com/danpasecinic/detour"
)

type TB interface {
	Helper()
	Fatal(args ...any)
	Fatalf(format string, args ...any)
	Errorf(format string, args ...any)
	Cleanup(f func())
}

type TestRuntime struct {
	*detour.Runtime
	tb TB
}

// New returns a runtime that logs nowhere and reports terminate policy
// exits as test errors instead of ending the process. Later options win.
func New(tb TB, opts ...detour.Option) *TestRuntime {
	tb.Helper()

	base := []detour.Option{
		detour.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		detour.WithExitFunc(
			func(code int) {
				tb.Errorf("runtime requested process exit with code %d", code)
			},
		),
	}

	rt := detour.New(append(base, opts...)...)
	tr := &TestRuntime{
		Runtime: rt,
		tb:      tb,
	}

	tb.Cleanup(
		func() {
			if err := rt.Close(); err != nil {
				tb.Fatalf("failed to close runtime: %v", err)
			}
		},
	)

	return tr
}

func (tr *TestRuntime) RequireValidate() {
	tr.tb.Helper()

	if err := tr.Validate(); err != nil {
		tr.tb.Fatalf("runtime validation failed: %v", err)
	}
}

func (tr *TestRuntime) RequireNoHookError() {
	tr.tb.Helper()

	if err := tr.LastHookError(); err != nil {
		tr.tb.Fatalf("unexpected hook error: %v", err)
	}
}

func MustDecorate[F any](tr *TestRuntime, target *F, nodes ...detour.Node) {
	tr.tb.Helper()

	if err := detour.Decorate(tr.Runtime, target, nodes...); err != nil {
		tr.tb.Fatalf("failed to decorate %s: %v", reflect.TypeFor[F](), err)
	}
}

func MustInject[F any](tr *TestRuntime, target *F, params ...detour.ParamBinding) {
	tr.tb.Helper()

	if err := detour.Inject(tr.Runtime, target, params...); err != nil {
		tr.tb.Fatalf("failed to inject %s: %v", reflect.TypeFor[F](), err)
	}
}

func MustInjectDependency[U any](tr *TestRuntime, value *U, opts ...detour.ValueOption) {
	tr.tb.Helper()

	if err := detour.InjectDependency(tr.Runtime, value, opts...); err != nil {
		tr.tb.Fatalf("failed to inject dependency %s: %v", reflect.TypeFor[U](), err)
	}
}

// Override installs value until the test ends.
func Override[U any](tr *TestRuntime, value *U, opts ...detour.ValueOption) *detour.Override {
	tr.tb.Helper()

	o, err := detour.ScopeOverrideDependency(tr.Runtime, value, opts...)
	if err != nil {
		tr.tb.Fatalf("failed to override %s: %v", reflect.TypeFor[U](), err)
		return nil
	}
	tr.tb.Cleanup(o.Restore)
	return o
}

func AssertInstalled[F any](tr *TestRuntime, target *F) {
	tr.tb.Helper()

	if !detour.Installed(tr.Runtime, target) {
		tr.tb.Fatalf("expected %s to be hooked", reflect.TypeFor[F]())
	}
}

func AssertNotInstalled[F any](tr *TestRuntime, target *F) {
	tr.tb.Helper()

	if detour.Installed(tr.Runtime, target) {
		tr.tb.Fatalf("expected %s not to be hooked", reflect.TypeFor[F]())
	}
}
