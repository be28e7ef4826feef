package harness

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sync"

	"github.com/roach88/insertdb/internal/engine"
	"github.com/roach88/insertdb/internal/idb"
	"github.com/roach88/insertdb/internal/ir"
	"github.com/roach88/insertdb/internal/store"
	"github.com/roach88/insertdb/internal/testutil"
)

// Harness executes scenario steps against one store.
type Harness struct {
	db        *idb.IDB
	batches   *testutil.NamedTokens
	instances *testutil.NamedTokens
	failures  *failureRecorder
}

// failureRecorder collects fire-and-forget failures from the worker.
type failureRecorder struct {
	mu      sync.Mutex
	pending []engine.Failure
	total   int
}

func (r *failureRecorder) handle(f engine.Failure) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending = append(r.pending, f)
	r.total++
}

// take returns and clears failures reported since the last call.
func (r *failureRecorder) take() []engine.Failure {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.pending
	r.pending = nil
	return out
}

func (r *failureRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.total
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database. A returned error means
// the scenario could not be executed; expectation and assertion failures are
// reported in Result.Errors instead.
func Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	failures := &failureRecorder{}
	db, err := idb.Open(ctx, ":memory:", idb.WithFailureHandler(failures.handle))
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer db.Close()

	h := &Harness{
		db:        db,
		batches:   testutil.NewNamedTokens(testutil.NewTokenSequence("batch")),
		instances: testutil.NewNamedTokens(testutil.NewTokenSequence("instance")),
		failures:  failures,
	}

	result := NewResult()
	for i, step := range scenario.Steps {
		if err := h.executeStep(ctx, i+1, step, result); err != nil {
			return nil, fmt.Errorf("step %d: %w", i+1, err)
		}
	}

	final, err := db.Counts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read final state: %w", err)
	}
	result.Final = final
	result.Failures = failures.count()

	for _, msg := range EvaluateAssertions(ctx, db, result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

// executeStep runs one step, records it in the trace and checks its
// expectation. Only failures of the harness itself are returned.
func (h *Harness) executeStep(ctx context.Context, n int, step Step, result *Result) error {
	ev := TraceEvent{Step: n, Op: step.Op()}

	opErr, err := h.apply(ctx, step, &ev)
	if err != nil {
		return err
	}

	ev.Outcome = OutcomeOK
	if opErr != nil {
		ev.Outcome = string(store.CodeOf(opErr))
	}
	result.AddTrace(ev)

	want := OutcomeOK
	if step.Expect != nil && step.Expect.Error != "" {
		want = step.Expect.Error
	}
	if ev.Outcome != want {
		msg := fmt.Sprintf("step %d (%s): expected %s, got %s", n, ev.Op, want, ev.Outcome)
		if opErr != nil {
			msg += ": " + opErr.Error()
		}
		result.AddError(msg)
		return nil
	}

	if step.Expect != nil && step.Expect.Order != nil {
		got, _ := ev.Result.(ir.InsertionOrder)
		if !maps.Equal(map[string]int64(got), step.Expect.Order) {
			result.AddError(fmt.Sprintf("step %d (%s): expected order %v, got %v", n, ev.Op, step.Expect.Order, got))
		}
	}
	return nil
}

// apply performs the step's operation, filling in the event's args and
// result. It returns the operation's own error separately from harness
// errors.
func (h *Harness) apply(ctx context.Context, step Step, ev *TraceEvent) (opErr error, err error) {
	switch {
	case step.NewSource != "":
		ev.Args = map[string]any{"name": step.NewSource}
		h.db.NewSource(step.NewSource)
		return h.settle(ctx)

	case step.NewBatch != "":
		ev.Args = map[string]any{"batch": step.NewBatch}
		return h.db.NewBatch(ctx, h.batches.Get(step.NewBatch)), nil

	case step.NewInstance != nil:
		s := step.NewInstance
		d, err := s.duration()
		if err != nil {
			return nil, err
		}
		ev.Args = map[string]any{
			"id":          s.ID,
			"source":      s.Source,
			"batch":       s.Batch,
			"interrupted": s.Interrupted,
			"duration":    d.String(),
			"items":       s.Items,
		}
		inst := ir.Instance{
			ID:          h.instances.Get(s.ID),
			Source:      s.Source,
			BatchID:     h.batches.Get(s.Batch),
			Interrupted: s.Interrupted,
			Duration:    d,
			Items:       s.Items,
		}
		return h.db.NewInstance(ctx, inst), nil

	case step.Inserted != nil:
		s := step.Inserted
		ev.Args = map[string]any{"instance": s.Instance, "sort_by": s.SortBy}
		h.db.Inserted(h.instances.Get(s.Instance), s.SortBy)
		return h.settle(ctx)

	case step.InsertionOrder != nil:
		ev.Args = map[string]any{"n": step.InsertionOrder.N}
		order, opErr := h.db.InsertionOrder(ctx, step.InsertionOrder.N)
		if opErr == nil {
			ev.Result = order
		}
		return opErr, nil
	}
	return nil, errors.New("step names no operation")
}

// settle waits for fire-and-forget work and returns the failures it
// reported, if any.
func (h *Harness) settle(ctx context.Context) (opErr error, err error) {
	if err := h.db.Flush(ctx); err != nil {
		return nil, fmt.Errorf("flush: %w", err)
	}
	failed := h.failures.take()
	if len(failed) == 0 {
		return nil, nil
	}
	errs := make([]error, len(failed))
	for i, f := range failed {
		errs[i] = f
	}
	return errors.Join(errs...), nil
}
