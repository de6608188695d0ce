package main

import (
	"bufio"
	"bytes"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Result aggregates every run of one benchmark. Names follow
// Category_Scenario_Subject, for example Dispatch_Chain3_Detour.
type Result struct {
	Name        string  `json:"name"`
	Category    string  `json:"category"`
	Scenario    string  `json:"scenario"`
	Subject     string  `json:"subject"`
	Runs        int     `json:"runs"`
	NsPerOp     float64 `json:"ns_per_op"`
	MinNsPerOp  float64 `json:"min_ns_per_op"`
	BytesPerOp  int64   `json:"bytes_per_op"`
	AllocsPerOp int64   `json:"allocs_per_op"`
}

func (r Result) key() string {
	return r.Category + "_" + r.Scenario
}

var benchLine = regexp.MustCompile(
	`^Benchmark(\w+?)(?:-\d+)?\s+\d+\s+([\d.]+) ns/op(?:\s+(\d+) B/op\s+(\d+) allocs/op)?`,
)

func parseResults(output []byte) map[string]*Result {
	results := make(map[string]*Result)

	sc := bufio.NewScanner(bytes.NewReader(output))
	for sc.Scan() {
		m := benchLine.FindStringSubmatch(sc.Text())
		if m == nil {
			continue
		}
		ns, err := strconv.ParseFloat(m[2], 64)
		if err != nil {
			continue
		}
		bytesOp, _ := strconv.ParseInt(m[3], 10, 64)
		allocs, _ := strconv.ParseInt(m[4], 10, 64)

		r, ok := results[m[1]]
		if !ok {
			r = newResult(m[1])
			results[m[1]] = r
		}
		r.add(ns, bytesOp, allocs)
	}
	return results
}

func newResult(name string) *Result {
	r := &Result{Name: name, MinNsPerOp: math.Inf(1)}
	parts := strings.SplitN(name, "_", 3)
	switch len(parts) {
	case 3:
		r.Category, r.Scenario, r.Subject = parts[0], parts[1], parts[2]
	case 2:
		r.Category, r.Subject = parts[0], parts[1]
	default:
		r.Category, r.Subject = name, name
	}
	return r
}

// add folds one run into the running means.
func (r *Result) add(ns float64, bytesOp, allocs int64) {
	r.Runs++
	n := float64(r.Runs)
	r.NsPerOp += (ns - r.NsPerOp) / n
	r.MinNsPerOp = math.Min(r.MinNsPerOp, ns)
	r.BytesPerOp = int64(math.Round(float64(r.BytesPerOp) + (float64(bytesOp)-float64(r.BytesPerOp))/n))
	r.AllocsPerOp = int64(math.Round(float64(r.AllocsPerOp) + (float64(allocs)-float64(r.AllocsPerOp))/n))
}
