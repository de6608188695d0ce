package depends_test

import (
	"reflect"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/danpasecinic/detour/internal/depends"
)

func TestOverridePrecedenceProperty(t *testing.T) {
	h := newHarness(t, depends.FailCallback)

	var scoped func(cfg depends.Dep[*Config]) string
	scoped = func(cfg depends.Dep[*Config]) string {
		return cfg.Get().Name
	}
	var other func(cfg depends.Dep[*Config]) string
	other = func(cfg depends.Dep[*Config]) string {
		return cfg.Get().Name
	}
	target := h.inject(t, &scoped)
	h.inject(t, &other)

	typ := reflect.TypeFor[Config]()
	values := h.injector.Values
	call := func(fn func(depends.Dep[*Config]) string) string {
		return fn(depends.Auto[*Config]())
	}

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property(
		"scoped beats global and restore is exact", prop.ForAll(
			func(withGlobal, withScoped bool, globalName, scopedName string) bool {
				var global, local *depends.Override
				want := ""
				if withGlobal {
					global = depends.NewOverride(
						values, depends.TargetGlobal, depends.FactoryKey{}, typ,
						reflect.ValueOf(&Config{Name: "g" + globalName}),
					)
					want = "g" + globalName
				}
				if withScoped {
					local = depends.NewOverride(
						values, target.Key(), depends.FactoryKey{}, typ,
						reflect.ValueOf(&Config{Name: "s" + scopedName}),
					)
				}

				wantScoped := want
				if withScoped {
					wantScoped = "s" + scopedName
				}
				if call(scoped) != wantScoped || call(other) != want {
					return false
				}

				if local != nil {
					local.Restore()
					local.Restore()
				}
				if call(scoped) != want || call(other) != want {
					return false
				}

				if global != nil {
					global.Restore()
				}
				return call(scoped) == "" && call(other) == "" && values.Len() == 0
			},
			gen.Bool(),
			gen.Bool(),
			gen.AlphaString(),
			gen.AlphaString(),
		),
	)

	properties.TestingRun(t)
}

func TestOverrideRestoresPreviousExactValue(t *testing.T) {
	h := newHarness(t, depends.FailCallback)

	var fn func(cfg depends.Dep[*Config]) string
	fn = func(cfg depends.Dep[*Config]) string {
		return cfg.Get().Name
	}
	target := h.inject(t, &fn)

	typ := reflect.TypeFor[Config]()
	values := h.injector.Values

	parameters := gopter.DefaultTestParameters()
	properties := gopter.NewProperties(parameters)

	properties.Property(
		"nested overrides unwind in reverse", prop.ForAll(
			func(names []string) bool {
				var stack []*depends.Override
				for _, name := range names {
					stack = append(stack, depends.NewOverride(
						values, target.Key(), depends.FactoryKey{}, typ,
						reflect.ValueOf(&Config{Name: "v" + name}),
					))
					if fn(depends.Auto[*Config]()) != "v"+name {
						return false
					}
				}
				for i := len(stack) - 1; i >= 0; i-- {
					stack[i].Restore()
					want := ""
					if i > 0 {
						want = "v" + names[i-1]
					}
					if fn(depends.Auto[*Config]()) != want {
						return false
					}
				}
				return values.Len() == 0
			},
			gen.SliceOf(gen.AlphaString()),
		),
	)

	properties.TestingRun(t)
}

func TestExplicitArgumentPassesThroughProperty(t *testing.T) {
	h := newHarness(t, depends.FailCallback)

	var fn func(cfg depends.Dep[*Config]) *Config
	fn = func(cfg depends.Dep[*Config]) *Config {
		return cfg.Get()
	}
	h.inject(t, &fn)

	properties := gopter.NewProperties(gopter.DefaultTestParameters())

	properties.Property(
		"explicit values are never replaced", prop.ForAll(
			func(isNil bool, name string) bool {
				var in *Config
				if !isNil {
					in = &Config{Name: name}
				}
				return fn(depends.Use(in)) == in
			},
			gen.Bool(),
			gen.AlphaString(),
		),
	)

	properties.Property(
		"placeholders are always filled", prop.ForAll(
			func(auto bool) bool {
				arg := depends.Dep[*Config]{}
				if auto {
					arg = depends.Auto[*Config]()
				}
				return fn(arg) != nil
			},
			gen.Bool(),
		),
	)

	properties.TestingRun(t)
}
