package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

var subjectColors = map[string]text.Color{
	"Detour": text.FgGreen,
	"Direct": text.FgCyan,
	"Do":     text.FgYellow,
	"Dig":    text.FgMagenta,
	"Fx":     text.FgBlue,
}

var categoryTitles = map[string]string{
	"Dispatch": "Dispatch through the node pipeline",
	"Inject":   "Dependency injection per call",
	"Scope":    "Inject scopes",
}

var categoryOrder = []string{"Dispatch", "Inject", "Scope"}

// baselines name the benchmark each category is measured against.
var baselines = map[string]string{
	"Dispatch": "Dispatch_Plain_Direct",
	"Inject":   "Inject_Explicit_Direct",
}

// cost is the difference between two benchmarks, spread over divisor
// units of work.
type cost struct {
	label   string
	with    string
	without string
	divisor float64
}

var costs = []cost{
	{"detour entry with one node", "Dispatch_Plain_Detour", "Dispatch_Plain_Direct", 1},
	{"each additional node", "Dispatch_Chain3_Detour", "Dispatch_Plain_Detour", 2},
	{"inject node with an explicit Dep", "Inject_Explicit_Detour", "Inject_Explicit_Direct", 1},
	{"registered value instead of Use", "Inject_Singleton_Detour", "Inject_Explicit_Detour", 1},
	{"factory call instead of registered value", "Inject_PerCall_Detour", "Inject_Singleton_Detour", 1},
	{"nested injected call sharing the scope", "Scope_Nested_Detour", "Scope_Owned_Detour", 1},
}

type Breakdown struct {
	Label   string  `json:"label"`
	NsPerOp float64 `json:"ns_per_op"`
	With    string  `json:"with"`
	Without string  `json:"without"`
}

type report struct {
	results   map[string]*Result
	breakdown []Breakdown
}

func newReport(results map[string]*Result) *report {
	r := &report{results: results}
	for _, c := range costs {
		with, ok1 := results[c.with]
		without, ok2 := results[c.without]
		if !ok1 || !ok2 {
			continue
		}
		r.breakdown = append(
			r.breakdown, Breakdown{
				Label:   c.label,
				NsPerOp: (with.NsPerOp - without.NsPerOp) / c.divisor,
				With:    c.with,
				Without: c.without,
			},
		)
	}
	return r
}

func (r *report) categories() []string {
	seen := make(map[string]bool)
	for _, res := range r.results {
		seen[res.Category] = true
	}
	var out []string
	for _, c := range categoryOrder {
		if seen[c] {
			out = append(out, c)
			delete(seen, c)
		}
	}
	var rest []string
	for c := range seen {
		rest = append(rest, c)
	}
	slices.Sort(rest)
	return append(out, rest...)
}

func (r *report) sorted(category string) []*Result {
	var out []*Result
	for _, res := range r.results {
		if res.Category == category {
			out = append(out, res)
		}
	}
	slices.SortFunc(
		out, func(a, b *Result) int {
			if c := strings.Compare(a.Scenario, b.Scenario); c != 0 {
				return c
			}
			switch {
			case a.NsPerOp < b.NsPerOp:
				return -1
			case a.NsPerOp > b.NsPerOp:
				return 1
			}
			return 0
		},
	)
	return out
}

func (r *report) render(w io.Writer) {
	for _, category := range r.categories() {
		r.renderCategory(w, category)
	}
	r.renderBreakdown(w)
}

func (r *report) renderCategory(w io.Writer, category string) {
	tw := newTable(w)
	title := categoryTitles[category]
	if title == "" {
		title = category
	}
	tw.SetTitle(title)
	tw.AppendHeader(table.Row{"Scenario", "Subject", "ns/op", "min", "B/op", "allocs/op", "vs baseline"})

	base, hasBase := r.results[baselines[category]]
	for _, res := range r.sorted(category) {
		vs := ""
		switch {
		case hasBase && res == base:
			vs = "baseline"
		case hasBase:
			vs = signedNs(res.NsPerOp - base.NsPerOp)
		}
		tw.AppendRow(
			table.Row{
				res.Scenario,
				colorSubject(res.Subject),
				formatNs(res.NsPerOp),
				formatNs(res.MinNsPerOp),
				res.BytesPerOp,
				res.AllocsPerOp,
				vs,
			},
		)
	}
	tw.Render()
	fmt.Fprintln(w)
}

func (r *report) renderBreakdown(w io.Writer) {
	if len(r.breakdown) == 0 {
		return
	}
	tw := newTable(w)
	tw.SetTitle("Cost breakdown")
	tw.AppendHeader(table.Row{"Cost of", "ns/op", "Measured as"})
	for _, b := range r.breakdown {
		tw.AppendRow(table.Row{b.Label, signedNs(b.NsPerOp), b.With + " - " + b.Without})
	}
	tw.Render()
	fmt.Fprintln(w)
}

func newTable(w io.Writer) table.Writer {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleRounded)
	tw.SetColumnConfigs(
		[]table.ColumnConfig{
			{Number: 3, Align: text.AlignRight},
			{Number: 4, Align: text.AlignRight},
			{Number: 5, Align: text.AlignRight},
			{Number: 6, Align: text.AlignRight},
		},
	)
	return tw
}

func colorSubject(subject string) string {
	if c, ok := subjectColors[subject]; ok {
		return c.Sprint(subject)
	}
	return subject
}

func formatNs(ns float64) string {
	switch {
	case ns >= 1e6:
		return fmt.Sprintf("%.2f ms", ns/1e6)
	case ns >= 1e3:
		return fmt.Sprintf("%.2f µs", ns/1e3)
	default:
		return fmt.Sprintf("%.1f ns", ns)
	}
}

func signedNs(ns float64) string {
	if ns < 0 {
		return "-" + formatNs(-ns)
	}
	return "+" + formatNs(ns)
}

func (r *report) writeJSON(path string) error {
	names := make([]string, 0, len(r.results))
	for name := range r.results {
		names = append(names, name)
	}
	slices.Sort(names)

	out := struct {
		Benchmarks []Result    `json:"benchmarks"`
		Breakdown  []Breakdown `json:"breakdown"`
	}{Breakdown: r.breakdown}
	for _, name := range names {
		out.Benchmarks = append(out.Benchmarks, *r.results[name])
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
