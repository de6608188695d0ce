// Package detour intercepts calls to package-level function variables and
// injects their dependencies per call.
//
// A target is a variable of func type. Decorating it swaps the function for a
// detour that runs a pipeline of nodes around the original:
//
//	var Add = func(a, b int) int { return a + b }
//
//	rt := detour.New()
//	defer rt.Close()
//
//	detour.Decorate(rt, &Add, decorators.NewTiming(report), decorators.NewLogging(logger))
//	Add(2, 3) // timing, logging, Add, logging, timing
//
// # Nodes
//
// A Node sees every call twice. BeforeCall runs in registration order and
// may rewrite arguments or veto the call by returning false. AfterCall runs
// in reverse order for every node whose BeforeCall ran, even on a veto, and
// may rewrite results:
//
//	type Node interface {
//	    ContextSize() int
//	    BeforeCall(ctx *detour.CallContext, args []*detour.ArgSlot) bool
//	    AfterCall(ctx *detour.CallContext, results *detour.Results)
//	}
//
// CallContext carries ContextSize bytes of zeroed scratch space and one
// stored value from BeforeCall to AfterCall of the same call. Embed
// NodeBase to implement only one phase, or wrap plain functions in a
// *NodeFuncs.
//
// Registering nodes while other goroutines call the target is safe: every
// call runs on the chain it started with.
//
// # Dependency Injection
//
// A parameter of type Dep[T] is either an explicit value or a request for
// injection:
//
//	var Handle = func(ctx context.Context, db detour.Dep[*DB]) error { ... }
//
//	detour.Inject(rt, &Handle, detour.Param(1, detour.DependsOn(OpenDB)))
//
//	Handle(ctx, detour.Auto[*DB]())  // injected
//	Handle(ctx, detour.Use(testDB))  // explicit, even when nil
//
// Resolution tries, in order: the object already cached in the current
// scope, an explicit value for this target, an explicit global value, the
// bound factory and finally a default-constructed T. Dep[*T] receives the
// cached pointer, Dep[T] receives a copy.
//
// # Dependency Sources
//
//	detour.Depends[T]()                  // cache, explicit, default construction
//	detour.DependsOn(factory)            // factory result, closed with the scope
//	detour.DependsOnRef(factory)         // factory result, never closed
//	detour.DependsOnAsync(taskFactory)   // awaited before the target runs
//	detour.DependsOnAsyncRef(taskFactory)
//
// Add Uncached() to build a fresh object on every resolution.
//
// # Scopes
//
// An injected call opens a scope and passes it down through its
// context.Context parameter. Injected calls made with that context share
// the scope and its cache; calls made with an unrelated context start a new
// one. When the outermost call returns, every object the scope owns is
// closed if it implements io.Closer. A target that returns a *task.Task
// keeps its scope until the task finishes.
//
//	detour.ScopeID(ctx)     // id of the current scope
//	detour.InjectDepth(ctx) // number of active injected calls in it
//
// # Explicit Values
//
// Replace what a Dep parameter receives without touching its binding:
//
//	detour.InjectDependency(rt, &cfg)                            // every target
//	detour.InjectDependency(rt, &cfg, detour.ForTarget(&Handle)) // one target
//	detour.InjectDependency(rt, fake, detour.ForFactory(OpenDB)) // one factory
//	detour.RemoveDependency[Config](rt, detour.ForTarget(&Handle))
//	detour.ClearDependencies(rt)
//
//	o, _ := detour.ScopeOverrideDependency(rt, &fake)
//	defer o.Restore()
//
// Explicit values are borrowed and never closed.
//
// # Failure Policies
//
// Hook install failures follow the hook policy (HookIgnore by default):
// ignore, panic, notify a callback or terminate the process. Resolution
// failures follow the inject policy (InjectTerminate by default): terminate,
// panic with an *InjectError, or notify the callback and skip the call.
//
//	rt.SetInjectFailPolicy(detour.InjectCallback)
//	rt.SetInjectFailCallback(func(err *detour.InjectError) { ... })
//
// Use the Is* predicates to classify errors:
//
//	if detour.IsMissingDependency(err) { ... }
//
// # Configuration
//
// WithConfig applies settings loaded by the config package from YAML, .env
// files and DETOUR_* environment variables:
//
//	cfg, err := config.Load("detour.yaml", ".env")
//	rt := detour.New(detour.WithConfig(cfg))
//
// # Modules
//
// Group related bindings and apply them together:
//
//	var Storage = detour.NewModule("storage")
//	detour.ModuleInject(Storage, &Handle, detour.Param(1, detour.DependsOn(OpenDB)))
//	detour.ModuleDecorate(Storage, &Handle, timing)
//
//	rt.Apply(Storage)
//
// # Debug Visualization
//
//	rt.PrintPipelines()         // text to stdout
//	rt.FprintPipelinesDOT(w)    // Graphviz DOT
//	infos := rt.Pipelines()     // structured PipelineInfo
//
// Validate reports injected targets whose bindings no longer hold.
//
// # Observers
//
//	detour.New(
//	    detour.WithDispatchObserver(func(target string, d time.Duration, vetoed bool) { ... }),
//	    detour.WithResolveObserver(func(target string, index int, typ string, src detour.Source, d time.Duration, err error) { ... }),
//	)
//
// # Testing
//
// The detourtest package returns a runtime that restores every target when
// the test ends.
package detour
