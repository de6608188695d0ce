package cmd

import (
	"context"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/danpasecinic/detour"
	"github.com/danpasecinic/detour/decorators"
	"github.com/danpasecinic/detour/task"
)

// Settings is the dependency the demo targets receive.
type Settings struct {
	Name   string
	closed atomic.Bool
}

func (s *Settings) Close() error {
	s.closed.Store(true)
	return nil
}

var Add = func(a, b int) int {
	return a + b
}

// Lookup returns the Settings its scope resolved.
var Lookup = func(_ context.Context, s detour.Dep[*Settings]) *Settings {
	return s.Get()
}

// Pair resolves Settings itself and again through a nested Lookup.
var Pair = func(ctx context.Context, s detour.Dep[*Settings]) (*Settings, *Settings) {
	return s.Get(), Lookup(ctx, detour.Auto[*Settings]())
}

var Greet = func(_ context.Context, s detour.Dep[*Settings]) *task.Task[string] {
	name := s.Get().Name
	return task.New(
		func(ctx context.Context) (string, error) {
			task.Yield(ctx)
			return "hello, " + name, nil
		},
	)
}

func loadSettings(context.Context) *task.Task[*Settings] {
	return task.New(
		func(ctx context.Context) (*Settings, error) {
			task.Yield(ctx)
			return &Settings{Name: "detour"}, nil
		},
	)
}

// demoModule holds every binding the scenarios rely on.
func demoModule(logger *zap.Logger, out io.Writer) *detour.Module {
	timing := decorators.NewTiming(
		func(target string, d time.Duration, vetoed bool) {
			_, _ = fmt.Fprintf(out, "  timing: %s took %s (vetoed=%t)\n", target, d, vetoed)
		},
	)

	arith := detour.NewModule("arith")
	detour.ModuleDecorate(arith, &Add, timing, decorators.NewLogging(logger))

	settings := detour.NewModule("settings")
	detour.ModuleInject(settings, &Lookup)
	detour.ModuleInject(settings, &Pair)
	detour.ModuleInject(settings, &Greet, detour.Param(1, detour.DependsOnAsync(loadSettings)))

	return detour.NewModule("demo").Include(arith).Include(settings)
}

type scenario struct {
	name  string
	short string
	run   func(rt *detour.Runtime, out io.Writer) error
}

var scenarios = []scenario{
	{name: "decorate", short: "timing and logging around Add", run: runDecorate},
	{name: "default", short: "default-constructed Settings shared by nested calls", run: runDefault},
	{name: "explicit", short: "explicit Settings then removal", run: runExplicit},
	{name: "async", short: "task target with an async factory", run: runAsync},
}

func findScenario(name string) (scenario, bool) {
	for _, s := range scenarios {
		if s.name == name {
			return s, true
		}
	}
	return scenario{}, false
}

func runDecorate(_ *detour.Runtime, out io.Writer) error {
	got := Add(2, 3)
	_, _ = fmt.Fprintf(out, "  Add(2, 3) = %d\n", got)
	if got != 5 {
		return fmt.Errorf("Add(2, 3) returned %d", got)
	}
	return nil
}

func runDefault(_ *detour.Runtime, out io.Writer) error {
	ctx := context.Background()

	outer, inner := Pair(ctx, detour.Auto[*Settings]())
	next, _ := Pair(ctx, detour.Auto[*Settings]())

	_, _ = fmt.Fprintf(out, "  nested call shares instance: %t\n", outer == inner)
	_, _ = fmt.Fprintf(out, "  new call gets fresh instance: %t\n", outer != next)
	_, _ = fmt.Fprintf(out, "  instance closed at scope exit: %t\n", outer.closed.Load())
	if outer != inner || outer == next {
		return fmt.Errorf("scope caching broken")
	}
	return nil
}

func runExplicit(rt *detour.Runtime, out io.Writer) error {
	ctx := context.Background()
	mine := &Settings{Name: "explicit"}

	if err := detour.InjectDependency(rt, mine, detour.ForTarget(&Lookup)); err != nil {
		return err
	}
	got := Lookup(ctx, detour.Auto[*Settings]())
	_, _ = fmt.Fprintf(out, "  explicit value used: %t\n", got == mine)

	detour.RemoveDependency[Settings](rt, detour.ForTarget(&Lookup))
	fallback := Lookup(ctx, detour.Auto[*Settings]())
	_, _ = fmt.Fprintf(out, "  after removal falls back to default: %t\n", fallback != mine)

	if got != mine || fallback == mine {
		return fmt.Errorf("explicit dependency not honored")
	}
	if mine.closed.Load() {
		return fmt.Errorf("borrowed dependency was closed")
	}
	return nil
}

func runAsync(_ *detour.Runtime, out io.Writer) error {
	ctx := task.WithScheduler(context.Background(), task.NewScheduler(nil))
	got, err := Greet(ctx, detour.Auto[*Settings]()).Get(ctx)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(out, "  Greet() = %q\n", got)
	return nil
}
