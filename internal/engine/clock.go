package engine

import "sync/atomic"

// Clock hands out submission sequence numbers.
//
// Every job is stamped with a strictly increasing seq when it is enqueued.
// Because stamping happens under the queue lock, seq order is exactly the
// order in which the worker executes jobs, and it is the order in which
// inserted rows receive their insert_order.
//
// Thread-safety: Clock is safe for concurrent use (atomic operations).
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// Next returns the next sequence number and increments the clock.
// Calls are linearizable - each call returns a unique, increasing value.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current sequence number without incrementing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
