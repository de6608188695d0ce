package detour

type Module struct {
	name       string
	bindings   []moduleEntry
	submodules []*Module
}

type moduleEntry struct {
	apply func(rt *Runtime) error
}

// NewModule starts an empty group of bindings applied together with
// Runtime.Apply.
func NewModule(name string) *Module {
	return &Module{
		name: name,
	}
}

func (m *Module) Name() string {
	return m.name
}

func (m *Module) Include(submodule *Module) *Module {
	m.submodules = append(m.submodules, submodule)
	return m
}

func (m *Module) add(apply func(rt *Runtime) error) *Module {
	m.bindings = append(m.bindings, moduleEntry{apply: apply})
	return m
}

func (m *Module) apply(rt *Runtime) error {
	for _, sub := range m.submodules {
		if err := sub.apply(rt); err != nil {
			return err
		}
	}

	for _, b := range m.bindings {
		if err := b.apply(rt); err != nil {
			return err
		}
	}

	return nil
}

// Apply applies modules in order and stops at the first failure.
func (rt *Runtime) Apply(modules ...*Module) error {
	for _, m := range modules {
		if err := m.apply(rt); err != nil {
			return errModuleApplyFailed(m.name, err)
		}
		rt.config.logger.Debug("module applied", "module", m.name)
	}
	return nil
}

func ModuleDecorate[F any](m *Module, target *F, nodes ...Node) *Module {
	return m.add(
		func(rt *Runtime) error {
			return Decorate(rt, target, nodes...)
		},
	)
}

func ModuleInject[F any](m *Module, target *F, params ...ParamBinding) *Module {
	return m.add(
		func(rt *Runtime) error {
			return Inject(rt, target, params...)
		},
	)
}

func ModuleInjectDependency[U any](m *Module, value *U, opts ...ValueOption) *Module {
	return m.add(
		func(rt *Runtime) error {
			return InjectDependency(rt, value, opts...)
		},
	)
}
