package engine

import "context"

// Future is the one-shot result of an awaited submission.
//
// The worker resolves a Future exactly once, after the unit of work's
// transaction has committed or rolled back. Resolution never blocks the
// worker.
type Future struct {
	doneCh chan struct{} // Closed to signal the job has completed.
	value  any
	err    error
}

// newFuture returns an unresolved Future.
func newFuture() *Future {
	return &Future{doneCh: make(chan struct{})}
}

// Done selects when the job has completed.
func (f *Future) Done() <-chan struct{} {
	return f.doneCh
}

// Err blocks until the job completes, then returns its error.
func (f *Future) Err() error {
	<-f.doneCh
	return f.err
}

// Value blocks until the job completes, then returns its value and error.
func (f *Future) Value() (any, error) {
	<-f.doneCh
	return f.value, f.err
}

// wait blocks until f resolves or ctx is done. A Future that has already
// resolved wins over a done ctx.
func (f *Future) wait(ctx context.Context) error {
	select {
	case <-f.doneCh:
		return nil
	case <-ctx.Done():
		select {
		case <-f.doneCh:
			return nil
		default:
			return ctx.Err()
		}
	}
}

// resolve marks the Future as completed.
func (f *Future) resolve(value any, err error) {
	f.value = value
	f.err = err
	close(f.doneCh)
}
