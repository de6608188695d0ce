package hook

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/hashicorp/go-multierror"
)

type Config struct {
	Hooker   Hooker
	Policy   *Policy
	Logger   *slog.Logger
	Observer DispatchObserver
}

// Registry maps targets to their pipelines. Pipelines are created lazily
// and live until Close.
type Registry struct {
	mu        sync.Mutex
	pipelines map[uintptr]*Pipeline
	hooker    Hooker
	policy    *Policy
	logger    *slog.Logger
	observer  DispatchObserver
}

func NewRegistry(cfg Config) *Registry {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	hooker := cfg.Hooker
	if hooker == nil {
		hooker = NewFuncVarHooker()
	}
	policy := cfg.Policy
	if policy == nil {
		policy = NewPolicy(logger, nil)
	}

	return &Registry{
		pipelines: make(map[uintptr]*Pipeline),
		hooker:    hooker,
		policy:    policy,
		logger:    logger,
		observer:  cfg.Observer,
	}
}

func (r *Registry) Policy() *Policy {
	return r.policy
}

func (r *Registry) Hooker() Hooker {
	return r.hooker
}

// Resolve validates fnPtr and returns the pipeline for it, creating one if
// needed. Invalid targets go through the fail policy.
func (r *Registry) Resolve(fnPtr any) (*Pipeline, error) {
	target, herr := TargetOf(fnPtr)
	if herr != nil {
		return nil, r.policy.Raise(herr)
	}
	return r.Pipeline(target), nil
}

func (r *Registry) Pipeline(target Target) *Pipeline {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p, ok := r.pipelines[target.Key()]; ok {
		return p
	}

	p := newPipeline(target, r.hooker, r.policy, r.logger, r.observer)
	r.pipelines[target.Key()] = p
	r.logger.Debug("pipeline created", "target", target.String())
	return p
}

func (r *Registry) Lookup(key uintptr) (*Pipeline, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.pipelines[key]
	return p, ok
}

func (r *Registry) Attach(fnPtr any, nodes ...Node) (*Pipeline, error) {
	p, err := r.Resolve(fnPtr)
	if err != nil {
		return nil, err
	}
	for _, n := range nodes {
		if err := p.Register(n); err != nil {
			return p, err
		}
	}
	return p, nil
}

func (r *Registry) Detach(fnPtr any, nodes ...Node) int {
	target, herr := TargetOf(fnPtr)
	if herr != nil {
		return 0
	}
	p, ok := r.Lookup(target.Key())
	if !ok {
		return 0
	}

	removed := 0
	for _, n := range nodes {
		if p.Unregister(n) {
			removed++
		}
	}
	return removed
}

// Pipelines returns every pipeline ordered by target name.
func (r *Registry) Pipelines() []*Pipeline {
	r.mu.Lock()
	out := make([]*Pipeline, 0, len(r.pipelines))
	for _, p := range r.pipelines {
		out = append(out, p)
	}
	r.mu.Unlock()

	sort.Slice(
		out, func(i, j int) bool {
			return out[i].target.String() < out[j].target.String()
		},
	)
	return out
}

// Close uninstalls every pipeline and forgets them.
func (r *Registry) Close() error {
	r.mu.Lock()
	pipelines := r.pipelines
	r.pipelines = make(map[uintptr]*Pipeline)
	r.mu.Unlock()

	var result *multierror.Error
	for _, p := range pipelines {
		if herr := p.uninstall(); herr != nil {
			result = multierror.Append(result, herr)
			continue
		}
		r.logger.Debug("pipeline uninstalled", "target", p.target.String())
	}
	return result.ErrorOrNil()
}
