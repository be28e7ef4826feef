package engine

import (
	"context"
	"database/sql"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/roach88/insertdb/internal/metrics"
	"github.com/roach88/insertdb/internal/store"
)

// Engine is the single-writer access channel for a Store.
//
// The engine executes units of work strictly one at a time, in FIFO
// submission order, on the goroutine that calls Run. Each unit of work runs
// inside its own transaction (store.WithTx).
//
// CRITICAL: Only the Run goroutine ever touches the store. External callers
// use Submit, Do, Await and Flush to hand work to it.
//
// Thread-safety model:
//   - Submit(), Do(), Await(), Flush(), Stop(): safe from any goroutine
//   - Run(): must be called from exactly one goroutine
//
// INVARIANTS:
//   - Jobs are never reordered, coalesced or dropped
//   - A dequeued job always runs to completion (commit or rollback)
//   - Failed fire-and-forget jobs always reach the FailureHandler
type Engine struct {
	store     *store.Store
	clock     *Clock
	queue     *jobQueue
	onFailure FailureHandler

	running atomic.Bool
	done    chan struct{} // Closed when Run returns
}

// Option allows configuration of engine parameters.
type Option func(*Engine)

// WithFailureHandler sets the observer for failed fire-and-forget jobs.
//
// Default: logFailure, which logs at error level.
func WithFailureHandler(h FailureHandler) Option {
	return func(e *Engine) {
		if h != nil {
			e.onFailure = h
		}
	}
}

// New creates an Engine that takes exclusive ownership of st.
// The caller must not use st again except to Close it after Run returns.
func New(st *store.Store, opts ...Option) *Engine {
	clock := NewClock()
	e := &Engine{
		store:     st,
		clock:     clock,
		queue:     newJobQueue(clock),
		onFailure: logFailure,
		done:      make(chan struct{}),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Submit enqueues a fire-and-forget unit of work and returns its sequence
// number. The caller never observes the outcome; failures are reported to
// the FailureHandler.
//
// Returns (0, false) if the engine has been stopped.
func (e *Engine) Submit(name string, fn store.TxFunc) (int64, bool) {
	j := &job{
		name: name,
		fn: func(ctx context.Context, tx *sql.Tx) (any, error) {
			return nil, fn(ctx, tx)
		},
	}
	if !e.enqueue(j, metrics.ModeAsync) {
		slog.Warn("job rejected: engine stopped", "job", name)
		return 0, false
	}
	return j.seq, true
}

// Do enqueues a unit of work and waits for it to complete.
//
// If ctx is done first, Do returns ctx.Err(). The job is NOT withdrawn: it
// still runs (and commits or rolls back) in its turn.
func (e *Engine) Do(ctx context.Context, name string, fn store.TxFunc) error {
	_, err := Await(ctx, e, name, func(ctx context.Context, tx *sql.Tx) (struct{}, error) {
		return struct{}{}, fn(ctx, tx)
	})
	return err
}

// Await enqueues a unit of work producing a T and waits for its result.
// The value is delivered only after the transaction commits.
//
// If ctx is done first, Await returns ctx.Err(); the job still runs.
func Await[T any](ctx context.Context, e *Engine, name string, fn func(ctx context.Context, tx *sql.Tx) (T, error)) (T, error) {
	var zero T

	f := newFuture()
	j := &job{
		name: name,
		fn: func(ctx context.Context, tx *sql.Tx) (any, error) {
			return fn(ctx, tx)
		},
		result: f,
	}
	if !e.enqueue(j, metrics.ModeAwait) {
		return zero, ErrStopped
	}

	if err := f.wait(ctx); err != nil {
		return zero, err
	}

	v, err := f.Value()
	if err != nil {
		return zero, err
	}
	out, _ := v.(T)
	return out, nil
}

// Flush waits until every job submitted before it has completed.
// It runs no transaction of its own.
func (e *Engine) Flush(ctx context.Context) error {
	f := newFuture()
	if !e.enqueue(&job{name: "flush", result: f}, metrics.ModeAwait) {
		return ErrStopped
	}

	if err := f.wait(ctx); err != nil {
		return err
	}
	return f.Err()
}

// enqueue adds j to the queue and records submission metrics.
func (e *Engine) enqueue(j *job, mode string) bool {
	if !e.queue.Enqueue(j) {
		metrics.JobsRejectedTotal.Inc()
		return false
	}
	metrics.JobsSubmittedTotal.WithLabelValues(mode).Inc()
	return true
}

// Pending returns the number of queued jobs not yet dequeued.
func (e *Engine) Pending() int {
	return e.queue.Len()
}

// Run starts the single-writer loop.
// Blocks until ctx is cancelled or Stop() is called, and then drains every
// job still queued before returning. Returns ctx.Err() on cancellation and
// nil after Stop.
//
// CRITICAL: Must be called from exactly ONE goroutine. A second concurrent
// call returns ErrAlreadyRunning.
//
// Jobs execute with a context detached from ctx's cancellation, so a job
// that has been dequeued is never interrupted mid-transaction.
func (e *Engine) Run(ctx context.Context) error {
	if !e.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer close(e.done)

	jobCtx := context.WithoutCancel(ctx)
	slog.Info("engine starting", "db", e.store.Path())

	for {
		// Try non-blocking dequeue first
		if j, ok := e.queue.TryDequeue(); ok {
			e.execute(jobCtx, j)
			continue
		}

		// No job ready - wait for signal or context cancellation
		select {
		case <-ctx.Done():
			slog.Info("engine stopping: context cancelled", "pending", e.queue.Len())
			e.queue.Close()
			e.drain(jobCtx)
			return ctx.Err()

		case <-e.queue.Wait():
			// The signal channel closes when the queue is closed, so this
			// case fires immediately once Stop has been called.
			if e.queue.Drained() {
				slog.Info("engine stopping: queue closed")
				return nil
			}
		}
	}
}

// Stop closes the queue. Run finishes the jobs already queued and returns.
// Submissions after Stop are rejected.
func (e *Engine) Stop() {
	e.queue.Close()
}

// Done returns a channel closed when Run has returned.
func (e *Engine) Done() <-chan struct{} {
	return e.done
}

// drain executes every remaining job of a closed queue.
func (e *Engine) drain(ctx context.Context) {
	for {
		j, ok := e.queue.TryDequeue()
		if !ok {
			return
		}
		e.execute(ctx, j)
	}
}

// execute runs one job inside its own transaction and delivers the outcome.
// CRITICAL: Called only from the Run goroutine - single-writer guarantee.
func (e *Engine) execute(ctx context.Context, j *job) {
	metrics.QueueWaitSeconds.Observe(time.Since(j.enqueued).Seconds())

	if j.fn == nil {
		j.result.resolve(nil, nil)
		return
	}

	start := time.Now()
	value, err := e.runTx(ctx, j)
	elapsed := time.Since(start)

	outcome := metrics.Ok
	if err != nil {
		outcome = metrics.Fail
	}
	metrics.JobsCompletedTotal.WithLabelValues(j.name, outcome).Inc()
	metrics.JobDurationSeconds.WithLabelValues(j.name).Observe(elapsed.Seconds())

	slog.Debug("job executed",
		"job", j.name,
		"seq", j.seq,
		"duration", elapsed,
		"outcome", outcome,
	)

	if j.result != nil {
		j.result.resolve(value, err)
		return
	}
	if err != nil {
		e.reportFailure(Failure{Seq: j.seq, Name: j.name, Err: err, Duration: elapsed})
	}
}

// reportFailure hands f to the FailureHandler. A panicking handler is logged
// and the worker keeps serving the queue.
func (e *Engine) reportFailure(f Failure) {
	defer func() {
		if p := recover(); p != nil {
			slog.Error("failure handler panicked",
				"job", f.Name,
				"seq", f.Seq,
				"panic", p,
				"error", f.Err,
			)
		}
	}()
	e.onFailure(f)
}

// runTx wraps j in a transaction. A panicking job is rolled back by WithTx
// and converted to an error so the worker keeps serving the queue.
func (e *Engine) runTx(ctx context.Context, j *job) (value any, err error) {
	defer func() {
		if p := recover(); p != nil {
			value = nil
			err = &store.Error{Code: store.CodeInternal, Op: j.name, Err: &panicError{value: p}}
		}
	}()

	err = e.store.WithTx(ctx, j.name, func(ctx context.Context, tx *sql.Tx) error {
		v, err := j.fn(ctx, tx)
		value = v
		return err
	})
	if err != nil {
		value = nil
	}
	return value, err
}

// logFailure is the default FailureHandler. The job is not retried.
func logFailure(f Failure) {
	slog.Error("job failed",
		"job", f.Name,
		"seq", f.Seq,
		"code", store.CodeOf(f.Err),
		"duration", f.Duration,
		"error", f.Err,
	)
}
