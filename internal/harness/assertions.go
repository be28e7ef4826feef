package harness

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/roach88/insertdb/internal/idb"
)

// AssertionError is returned when an assertion fails.
// It includes the trace to help debug the failure.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Trace    []TraceEvent
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nTrace:\n")
		for _, ev := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s %v -> %s\n", ev.Step, ev.Op, ev.Args, ev.Outcome)
		}
	}
	return buf.String()
}

// EvaluateAssertions checks every assertion and returns one message per
// failure.
func EvaluateAssertions(ctx context.Context, db *idb.IDB, result *Result, assertions []Assertion) []string {
	var msgs []string
	for i, a := range assertions {
		if err := evaluateAssertion(ctx, db, result, a); err != nil {
			msgs = append(msgs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return msgs
}

func evaluateAssertion(ctx context.Context, db *idb.IDB, result *Result, a Assertion) error {
	switch a.Type {
	case AssertCounts:
		return assertCounts(result, a)
	case AssertFailures:
		return assertFailures(result, a)
	case AssertInsertionOrder:
		return assertInsertionOrder(ctx, db, result, a)
	case AssertRecent:
		return assertRecent(ctx, db, result, a)
	}
	return fmt.Errorf("unknown assertion type %q", a.Type)
}

// countByTable returns the count for a table name as used in scenarios.
func countByTable(c idb.Counts, table string) (int64, bool) {
	switch table {
	case "sources":
		return c.Sources, true
	case "batches":
		return c.Batches, true
	case "instances":
		return c.Instances, true
	case "inserted":
		return c.Inserted, true
	}
	return 0, false
}

// assertCounts compares the listed tables only.
func assertCounts(result *Result, a Assertion) error {
	tables := slices.Sorted(maps.Keys(a.Expect))
	for _, table := range tables {
		got, ok := countByTable(result.Final, table)
		if !ok {
			return fmt.Errorf("unknown table %q", table)
		}
		if got != a.Expect[table] {
			return &AssertionError{
				Type:     AssertCounts,
				Expected: fmt.Sprintf("%d rows in %s", a.Expect[table], table),
				Actual:   fmt.Sprintf("%d rows", got),
				Trace:    result.Trace,
			}
		}
	}
	return nil
}

func assertFailures(result *Result, a Assertion) error {
	if result.Failures != a.Count {
		return &AssertionError{
			Type:     AssertFailures,
			Expected: fmt.Sprintf("%d reported failures", a.Count),
			Actual:   fmt.Sprintf("%d reported failures", result.Failures),
			Trace:    result.Trace,
		}
	}
	return nil
}

func assertInsertionOrder(ctx context.Context, db *idb.IDB, result *Result, a Assertion) error {
	got, err := db.InsertionOrder(ctx, a.N)
	if err != nil {
		return fmt.Errorf("insertion_order(%d): %w", a.N, err)
	}
	if !maps.Equal(map[string]int64(got), a.Order) {
		return &AssertionError{
			Type:     AssertInsertionOrder,
			Expected: fmt.Sprintf("%v", a.Order),
			Actual:   fmt.Sprintf("%v", map[string]int64(got)),
			Trace:    result.Trace,
		}
	}
	return nil
}

func assertRecent(ctx context.Context, db *idb.IDB, result *Result, a Assertion) error {
	recent, err := db.Recent(ctx, a.N)
	if err != nil {
		return fmt.Errorf("recent(%d): %w", a.N, err)
	}
	got := make([]string, len(recent))
	for i, ins := range recent {
		got[i] = ins.SortBy
	}
	want := a.SortBy
	if want == nil {
		want = []string{}
	}
	if !slices.Equal(got, want) {
		return &AssertionError{
			Type:     AssertRecent,
			Expected: fmt.Sprintf("%v", want),
			Actual:   fmt.Sprintf("%v", got),
			Trace:    result.Trace,
		}
	}
	return nil
}
