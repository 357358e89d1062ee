//go:build ignore

// Package main compares two go test -bench outputs and flags regressions.
// Usage: go run scripts/bench-compare.go [options] <current.txt> <baseline.txt>
//
// Time, bytes, and allocation columns are compared independently; a
// benchmark regresses when its worst column degrades past the threshold,
// and counts as improved only when even its worst column got faster.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"math"
	"os"
	"regexp"
	"sort"
	"strconv"
)

// improvementThreshold is how much faster a benchmark must get before it
// is called out as improved (10%).
const improvementThreshold = 0.10

var (
	outputJSON    = flag.Bool("json", false, "Output the report as JSON")
	threshold     = flag.Float64("threshold", 0.20, "Regression threshold as a fraction (0.0-1.0)")
	verbose       = flag.Bool("verbose", false, "Show unchanged and unmatched benchmarks too")
	failOnRegress = flag.Bool("fail", true, "Exit with code 1 when a regression is found")
)

// measurement is one parsed benchmark line.
type measurement struct {
	NsPerOp     float64
	BytesPerOp  float64
	AllocsPerOp float64
}

// columns enumerates the comparable benchmark metrics. A zero baseline
// value means the column was absent or trivially small and is skipped.
var columns = []struct {
	label string
	get   func(measurement) float64
}{
	{"ns/op", func(m measurement) float64 { return m.NsPerOp }},
	{"B/op", func(m measurement) float64 { return m.BytesPerOp }},
	{"allocs/op", func(m measurement) float64 { return m.AllocsPerOp }},
}

// delta is the outcome for one benchmark, reported on its worst column.
type delta struct {
	Name     string  `json:"name"`
	Column   string  `json:"column,omitempty"`
	Current  float64 `json:"current,omitempty"`
	Baseline float64 `json:"baseline,omitempty"`
	Pct      float64 `json:"delta_percent"`
	Status   string  `json:"status"`
}

type report struct {
	Total        int     `json:"total_benchmarks"`
	Regressions  int     `json:"regressions"`
	Improvements int     `json:"improvements"`
	Unchanged    int     `json:"unchanged"`
	OnlyCurrent  int     `json:"only_in_current"`
	OnlyBaseline int     `json:"only_in_baseline"`
	Deltas       []delta `json:"results"`
	Failed       bool    `json:"regression_failed"`
}

// benchLine matches "BenchmarkName-8  1000  1234 ns/op  56 B/op  7 allocs/op".
// The byte and allocation columns only appear under -benchmem.
var benchLine = regexp.MustCompile(`^(Benchmark\S+)\s+\d+\s+([\d.]+)\s+ns/op(?:\s+([\d.]+)\s+B/op)?(?:\s+([\d.]+)\s+allocs/op)?`)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options] <current.txt> <baseline.txt>\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Compares benchmark results and detects regressions.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() < 2 {
		flag.Usage()
		os.Exit(1)
	}

	current, err := parseFile(flag.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing current file %s: %v\n", flag.Arg(0), err)
		os.Exit(1)
	}
	baseline, err := parseFile(flag.Arg(1))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing baseline file %s: %v\n", flag.Arg(1), err)
		os.Exit(1)
	}

	rep := compare(current, baseline)

	if *outputJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(rep); err != nil {
			fmt.Fprintf(os.Stderr, "Error encoding JSON: %v\n", err)
			os.Exit(1)
		}
	} else {
		printReport(rep)
	}

	if *failOnRegress && rep.Failed {
		os.Exit(1)
	}
}

// parseFile reads one go test -bench output file into named measurements.
func parseFile(path string) (map[string]measurement, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	results := make(map[string]measurement)
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		matches := benchLine.FindStringSubmatch(scanner.Text())
		if matches == nil {
			continue
		}
		var m measurement
		m.NsPerOp, _ = strconv.ParseFloat(matches[2], 64)
		if matches[3] != "" {
			m.BytesPerOp, _ = strconv.ParseFloat(matches[3], 64)
		}
		if matches[4] != "" {
			m.AllocsPerOp, _ = strconv.ParseFloat(matches[4], 64)
		}
		results[matches[1]] = m
	}
	return results, scanner.Err()
}

// compare classifies every benchmark present in the current run.
func compare(current, baseline map[string]measurement) *report {
	rep := &report{}

	names := make([]string, 0, len(current))
	for name := range current {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		rep.Total++
		curr := current[name]

		base, ok := baseline[name]
		if !ok {
			rep.OnlyCurrent++
			if *verbose {
				rep.Deltas = append(rep.Deltas, delta{Name: name, Status: "NEW"})
			}
			continue
		}

		d := worstColumn(curr, base)
		d.Name = name

		switch {
		case d.Pct/100 > *threshold:
			d.Status = "REGRESSION"
			rep.Regressions++
			rep.Failed = true
		case d.Pct/100 < -improvementThreshold:
			d.Status = "IMPROVED"
			rep.Improvements++
		default:
			d.Status = "OK"
			rep.Unchanged++
		}

		if d.Status != "OK" || *verbose {
			rep.Deltas = append(rep.Deltas, d)
		}
	}

	for name := range baseline {
		if _, ok := current[name]; !ok {
			rep.OnlyBaseline++
			if *verbose {
				rep.Deltas = append(rep.Deltas, delta{Name: name, Status: "MISSING"})
			}
		}
	}

	return rep
}

// worstColumn finds the column with the largest relative degradation.
func worstColumn(curr, base measurement) delta {
	worst := delta{Pct: math.Inf(-1)}
	for _, col := range columns {
		b := col.get(base)
		if b <= 0 {
			continue
		}
		c := col.get(curr)
		pct := (c - b) / b * 100
		if pct > worst.Pct {
			worst = delta{Column: col.label, Current: c, Baseline: b, Pct: pct}
		}
	}
	if math.IsInf(worst.Pct, -1) {
		worst.Pct = 0 // nothing comparable
	}
	return worst
}

// printReport writes the human-readable comparison.
func printReport(rep *report) {
	fmt.Printf("Benchmark comparison: %d total, %d regressed, %d improved, %d unchanged\n",
		rep.Total, rep.Regressions, rep.Improvements, rep.Unchanged)
	if rep.OnlyCurrent > 0 || rep.OnlyBaseline > 0 {
		fmt.Printf("Unmatched: %d new, %d missing from current\n",
			rep.OnlyCurrent, rep.OnlyBaseline)
	}
	fmt.Println()

	for _, d := range rep.Deltas {
		switch d.Status {
		case "REGRESSION":
			fmt.Printf("❌ %s  %s  %.0f -> %.0f  (%+.1f%%)\n",
				d.Name, d.Column, d.Baseline, d.Current, d.Pct)
		case "IMPROVED":
			fmt.Printf("✅ %s  %s  %.0f -> %.0f  (%+.1f%%)\n",
				d.Name, d.Column, d.Baseline, d.Current, d.Pct)
		case "NEW":
			fmt.Printf("   %s  (new, no baseline)\n", d.Name)
		case "MISSING":
			fmt.Printf("   %s  (missing from current run)\n", d.Name)
		default:
			fmt.Printf("   %s  %s  (%+.1f%%)\n", d.Name, d.Column, d.Pct)
		}
	}

	fmt.Println()
	if rep.Failed {
		fmt.Printf("❌ FAILED: %d benchmark(s) regressed by more than %.0f%%\n",
			rep.Regressions, *threshold*100)
	} else {
		fmt.Println("✅ PASSED: no significant regressions.")
	}
}
