package detour

import (
	"fmt"
	"slices"

	"github.com/hashicorp/go-multierror"
)

// Validate checks every injected target: its bindings must still match the
// function type and its inject node must be installed.
func (rt *Runtime) Validate() error {
	var result *multierror.Error

	for _, key := range rt.injector.Metas.Targets() {
		p, ok := rt.hooks.Lookup(key)
		if !ok {
			result = multierror.Append(result, fmt.Errorf("inject bindings for unknown target %#x", key))
			continue
		}

		name := p.Target().String()
		for _, err := range rt.injector.Validate(p.Target()) {
			result = multierror.Append(result, err)
		}
		if !p.Installed() {
			result = multierror.Append(result, errInvalidBinding(name, "detour is not installed", nil))
			continue
		}
		inject := rt.injector.Decorator(p.Target())
		if !slices.ContainsFunc(p.Nodes(), func(n Node) bool { return n == Node(inject) }) {
			result = multierror.Append(result, errInvalidBinding(name, "inject node is not registered", nil))
		}
	}

	if err := result.ErrorOrNil(); err != nil {
		return errValidationFailed(err)
	}
	return nil
}
