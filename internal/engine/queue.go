package engine

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/roach88/insertdb/internal/metrics"
)

// jobFunc is a unit of work. Its value is delivered to an awaiting caller
// after the surrounding transaction commits.
type jobFunc func(ctx context.Context, tx *sql.Tx) (any, error)

// job is a queued unit of work.
type job struct {
	seq      int64     // Submission order, assigned under the queue lock
	name     string    // Operation name for logs, metrics and errors
	fn       jobFunc   // nil for barriers, which run no transaction
	result   *Future   // nil for fire-and-forget submissions
	enqueued time.Time // For queue wait metrics
}

// jobQueue is a thread-safe FIFO queue of jobs.
//
// The queue is unbounded so that fire-and-forget callers on the interactive
// path never block on disk I/O.
//
// Thread-safety is provided for enqueuing from any goroutine while the
// Engine's Run loop dequeues.
//
// The queue uses a channel for signaling to enable context-aware waiting
// in the Run loop (prevents goroutine hangs on context cancellation).
type jobQueue struct {
	mu     sync.Mutex
	jobs   []*job
	clock  *Clock
	closed bool
	signal chan struct{} // Signals job availability (buffered, size 1)
}

// newJobQueue creates an empty job queue.
func newJobQueue(clock *Clock) *jobQueue {
	return &jobQueue{
		jobs:   make([]*job, 0, 64),
		clock:  clock,
		signal: make(chan struct{}, 1),
	}
}

// Enqueue stamps j with the next sequence number and adds it to the back of
// the queue. Sequence numbers therefore match queue order exactly.
// Thread-safe: may be called from any goroutine.
// Returns false if the queue is closed; j is not stamped in that case.
func (q *jobQueue) Enqueue(j *job) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	j.seq = q.clock.Next()
	j.enqueued = time.Now()
	q.jobs = append(q.jobs, j)
	metrics.QueueDepth.Inc()

	// Signal availability (non-blocking - buffer of 1 coalesces multiple signals)
	select {
	case q.signal <- struct{}{}:
	default:
	}

	return true
}

// TryDequeue attempts to dequeue without blocking.
// Returns (nil, false) if queue is empty.
func (q *jobQueue) TryDequeue() (*job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.jobs) == 0 {
		return nil, false
	}

	j := q.jobs[0]

	// Nil out the slot so the backing array does not retain the closure.
	q.jobs[0] = nil

	if len(q.jobs) == 1 {
		q.jobs = q.jobs[:0]
	} else {
		q.jobs = q.jobs[1:]
	}
	metrics.QueueDepth.Dec()

	return j, true
}

// Wait returns a channel that signals when jobs may be available.
// The channel is closed once the queue is closed.
func (q *jobQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the current queue length.
func (q *jobQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs)
}

// Drained reports whether the queue is closed and empty. Once true, it
// stays true.
func (q *jobQueue) Drained() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed && len(q.jobs) == 0
}

// Close signals that no more jobs will be enqueued. Jobs already queued
// remain and are still dequeued.
// Wakes any blocked waiters by closing the signal channel.
func (q *jobQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return // Already closed
	}

	q.closed = true
	close(q.signal) // Wakes all waiters
}
