package harness

import (
	"context"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/insertdb/internal/ir"
)

// GoldenDir is where RunWithGolden keeps snapshots, relative to the test's
// package directory.
const GoldenDir = "testdata/golden"

// Snapshot renders a run as canonical JSON: the scenario name, every trace
// event and the final row counts.
func Snapshot(scenario *Scenario, result *Result) ([]byte, error) {
	trace := make([]any, len(result.Trace))
	for i, ev := range result.Trace {
		m := map[string]any{
			"step":    ev.Step,
			"op":      ev.Op,
			"outcome": ev.Outcome,
		}
		if ev.Args != nil {
			m["args"] = ev.Args
		}
		if ev.Result != nil {
			m["result"] = ev.Result
		}
		trace[i] = m
	}

	return ir.MarshalCanonical(map[string]any{
		"scenario": scenario.Name,
		"trace":    trace,
		"final": map[string]any{
			"sources":   result.Final.Sources,
			"batches":   result.Final.Batches,
			"instances": result.Final.Instances,
			"inserted":  result.Final.Inserted,
		},
	})
}

// RunWithGolden executes a scenario and compares its snapshot against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) *Result {
	t.Helper()

	result, err := Run(context.Background(), scenario)
	if err != nil {
		t.Fatalf("run scenario %s: %v", scenario.Name, err)
	}

	data, err := Snapshot(scenario, result)
	if err != nil {
		t.Fatalf("snapshot scenario %s: %v", scenario.Name, err)
	}

	g := goldie.New(t,
		goldie.WithFixtureDir(GoldenDir),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, data)
	return result
}
