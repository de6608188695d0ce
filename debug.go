package detour

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/danpasecinic/detour/internal/hook"
)

type PipelineInfo struct {
	Target     string
	Installed  bool
	Decorators []string
	Injected   []InjectedParam
}

type InjectedParam struct {
	Index   int
	Type    string
	Factory string
	Owned   bool
	Cached  bool
	Async   bool
}

// Pipelines describes every hooked target ordered by name.
func (rt *Runtime) Pipelines() []PipelineInfo {
	pipelines := rt.hooks.Pipelines()
	out := make([]PipelineInfo, 0, len(pipelines))

	for _, p := range pipelines {
		info := PipelineInfo{
			Target:    p.Target().String(),
			Installed: p.Installed(),
		}
		for _, n := range p.Nodes() {
			info.Decorators = append(info.Decorators, hook.NodeName(n))
		}
		for _, m := range rt.injector.Metas.ForTarget(p.Target().Key()) {
			info.Injected = append(
				info.Injected, InjectedParam{
					Index:   m.Index,
					Type:    m.Type.String(),
					Factory: m.Factory.String(),
					Owned:   m.Owned,
					Cached:  m.Cached,
					Async:   m.IsAsync(),
				},
			)
		}
		out = append(out, info)
	}

	return out
}

func (rt *Runtime) PrintPipelines() {
	rt.FprintPipelines(os.Stdout)
}

func (rt *Runtime) FprintPipelines(w io.Writer) {
	infos := rt.Pipelines()

	if len(infos) == 0 {
		_, _ = fmt.Fprintln(w, "(no pipelines)")
		return
	}

	for _, p := range infos {
		status := "○"
		if p.Installed {
			status = "●"
		}

		if len(p.Decorators) == 0 {
			_, _ = fmt.Fprintf(w, "%s %s\n", status, p.Target)
		} else {
			_, _ = fmt.Fprintf(w, "%s %s → %s\n", status, p.Target, strings.Join(p.Decorators, " → "))
		}

		for _, in := range p.Injected {
			_, _ = fmt.Fprintf(w, "    [%d] %s ← %s\n", in.Index, in.Type, in.describe())
		}
	}
}

func (rt *Runtime) SprintPipelines() string {
	var sb strings.Builder
	rt.FprintPipelines(&sb)
	return sb.String()
}

func (rt *Runtime) FprintPipelinesDOT(w io.Writer) {
	infos := rt.Pipelines()

	_, _ = fmt.Fprintln(w, "digraph pipelines {")
	_, _ = fmt.Fprintln(w, "  rankdir=LR;")
	_, _ = fmt.Fprintln(w, "  node [shape=box];")

	for _, p := range infos {
		style := ""
		if p.Installed {
			style = ", style=filled, fillcolor=lightblue"
		}
		_, _ = fmt.Fprintf(w, "  %q [label=%q%s];\n", p.Target, escapeLabel(p.Target), style)
	}

	_, _ = fmt.Fprintln(w)

	for _, p := range infos {
		prev := p.Target
		for i, d := range p.Decorators {
			id := fmt.Sprintf("%s#%d", p.Target, i)
			_, _ = fmt.Fprintf(w, "  %q [label=%q, shape=ellipse];\n", id, d)
			_, _ = fmt.Fprintf(w, "  %q -> %q;\n", prev, id)
			prev = id
		}
		for _, in := range p.Injected {
			id := fmt.Sprintf("%s[%d]", p.Target, in.Index)
			_, _ = fmt.Fprintf(w, "  %q [label=%q, shape=note];\n", id, escapeLabel(in.Type))
			_, _ = fmt.Fprintf(w, "  %q -> %q [style=dashed];\n", id, p.Target)
		}
	}

	_, _ = fmt.Fprintln(w, "}")
}

func (rt *Runtime) SprintPipelinesDOT() string {
	var sb strings.Builder
	rt.FprintPipelinesDOT(&sb)
	return sb.String()
}

func (in InjectedParam) describe() string {
	kind := "default"
	switch {
	case in.Factory != "<none>" && in.Owned:
		kind = "owned " + in.Factory
	case in.Factory != "<none>":
		kind = "borrowed " + in.Factory
	}
	if in.Async {
		kind += " (async)"
	}
	if !in.Cached {
		kind += " (uncached)"
	}
	return kind
}

func escapeLabel(s string) string {
	s = strings.ReplaceAll(s, "*", "")
	if idx := strings.LastIndex(s, "/"); idx != -1 {
		s = s[idx+1:]
	}
	return s
}
