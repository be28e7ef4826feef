package harness

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/insertdb/internal/idb"
	"github.com/roach88/insertdb/internal/store"
)

// Scenario is a sequence of insertion store operations with expectations.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Steps run in order against a fresh store.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final state.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Step invokes exactly one operation.
type Step struct {
	NewSource      string        `yaml:"new_source,omitempty"`
	NewBatch       string        `yaml:"new_batch,omitempty"`
	NewInstance    *InstanceStep `yaml:"new_instance,omitempty"`
	Inserted       *InsertedStep `yaml:"inserted,omitempty"`
	InsertionOrder *OrderStep    `yaml:"insertion_order,omitempty"`

	// Expect overrides the default expectation that the step succeeds.
	Expect *Expect `yaml:"expect,omitempty"`
}

// InstanceStep holds the arguments of new_instance.
type InstanceStep struct {
	ID          string `yaml:"id"`
	Source      string `yaml:"source"`
	Batch       string `yaml:"batch"`
	Interrupted bool   `yaml:"interrupted,omitempty"`
	// Duration is a Go duration string such as "20ms". Empty means zero.
	Duration string `yaml:"duration,omitempty"`
	Items    int    `yaml:"items,omitempty"`
}

// InsertedStep holds the arguments of inserted.
type InsertedStep struct {
	Instance string `yaml:"instance"`
	SortBy   string `yaml:"sort_by"`
}

// OrderStep holds the arguments of insertion_order.
type OrderStep struct {
	N int `yaml:"n"`
}

// Expect describes the expected outcome of a step.
type Expect struct {
	// Error is the expected store error code, e.g. CONSTRAINT_VIOLATION.
	Error string `yaml:"error,omitempty"`

	// Order is the expected insertion_order result. Nil means unchecked.
	Order map[string]int64 `yaml:"order,omitempty"`
}

// Assertion validates the state after all steps.
type Assertion struct {
	// Type is one of counts, failures, insertion_order, recent.
	Type string `yaml:"type"`

	// Expect holds row counts by table (counts).
	Expect map[string]int64 `yaml:"expect,omitempty"`

	// Count is the expected number of reported failures (failures).
	Count int `yaml:"count,omitempty"`

	// N is the window size (insertion_order, recent).
	N int `yaml:"n,omitempty"`

	// Order is the expected mapping (insertion_order).
	Order map[string]int64 `yaml:"order,omitempty"`

	// SortBy lists expected sort keys, newest first (recent).
	SortBy []string `yaml:"sort_by,omitempty"`
}

// Assertion type constants.
const (
	AssertCounts         = "counts"
	AssertFailures       = "failures"
	AssertInsertionOrder = "insertion_order"
	AssertRecent         = "recent"
)

// Op returns the name of the operation the step invokes, or "" if it names
// none.
func (s Step) Op() string {
	switch {
	case s.NewSource != "":
		return idb.OpNewSource
	case s.NewBatch != "":
		return idb.OpNewBatch
	case s.NewInstance != nil:
		return idb.OpNewInstance
	case s.Inserted != nil:
		return idb.OpInserted
	case s.InsertionOrder != nil:
		return idb.OpInsertionOrder
	}
	return ""
}

func (s Step) opCount() int {
	n := 0
	for _, set := range []bool{
		s.NewSource != "",
		s.NewBatch != "",
		s.NewInstance != nil,
		s.Inserted != nil,
		s.InsertionOrder != nil,
	} {
		if set {
			n++
		}
	}
	return n
}

// duration parses the instance duration; empty means zero.
func (s InstanceStep) duration() (time.Duration, error) {
	if s.Duration == "" {
		return 0, nil
	}
	return time.ParseDuration(s.Duration)
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // reject typos like "step:"
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

var validErrorCodes = map[string]bool{
	string(store.CodeConstraint): true,
	string(store.CodeTransient):  true,
	string(store.CodeInternal):   true,
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if err := validateStep(i, step); err != nil {
			return err
		}
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(i, a); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(i int, step Step) error {
	switch step.opCount() {
	case 0:
		return fmt.Errorf("steps[%d]: no operation given", i)
	case 1:
	default:
		return fmt.Errorf("steps[%d]: exactly one operation allowed", i)
	}

	switch {
	case step.NewInstance != nil:
		inst := step.NewInstance
		if inst.ID == "" || inst.Source == "" || inst.Batch == "" {
			return fmt.Errorf("steps[%d].new_instance: id, source and batch are required", i)
		}
		if _, err := inst.duration(); err != nil {
			return fmt.Errorf("steps[%d].new_instance: %w", i, err)
		}
	case step.Inserted != nil:
		if step.Inserted.Instance == "" || step.Inserted.SortBy == "" {
			return fmt.Errorf("steps[%d].inserted: instance and sort_by are required", i)
		}
	}

	if step.Expect != nil {
		if step.Expect.Error != "" && !validErrorCodes[step.Expect.Error] {
			return fmt.Errorf("steps[%d].expect: unknown error code %q", i, step.Expect.Error)
		}
		if step.Expect.Order != nil && step.InsertionOrder == nil {
			return fmt.Errorf("steps[%d].expect: order is only valid for insertion_order", i)
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertCounts:
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for counts", index)
		}
		for table := range a.Expect {
			if _, ok := countByTable(idb.Counts{}, table); !ok {
				return fmt.Errorf("assertions[%d]: unknown table %q", index, table)
			}
		}
	case AssertFailures:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative", index)
		}
	case AssertInsertionOrder:
		if a.Order == nil {
			return fmt.Errorf("assertions[%d]: order is required for insertion_order", index)
		}
	case AssertRecent:
		if a.N <= 0 {
			return fmt.Errorf("assertions[%d]: n must be positive for recent", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
