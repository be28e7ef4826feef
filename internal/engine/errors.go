package engine

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrStopped is returned for submissions made after Stop.
	ErrStopped = errors.New("engine stopped")

	// ErrAlreadyRunning is returned by a second concurrent call to Run.
	ErrAlreadyRunning = errors.New("engine already running")
)

// Failure describes a fire-and-forget job that returned an error.
// No caller is waiting for it, so it is handed to the FailureHandler.
type Failure struct {
	// Seq is the job's submission sequence number.
	Seq int64

	// Name is the operation name given at submission.
	Name string

	// Err is the classified store error.
	Err error

	// Duration is the time spent executing the job.
	Duration time.Duration
}

// Error implements the error interface.
func (f Failure) Error() string {
	return fmt.Sprintf("job %s (seq=%d): %v", f.Name, f.Seq, f.Err)
}

// Unwrap returns the underlying error.
func (f Failure) Unwrap() error {
	return f.Err
}

// FailureHandler observes failed fire-and-forget jobs. It is called from the
// worker goroutine and must not submit awaited work to the same engine. A
// panic in the handler is recovered and logged.
type FailureHandler func(Failure)

// panicError wraps a value recovered from a panicking job.
type panicError struct {
	value any
}

func (e *panicError) Error() string {
	return fmt.Sprintf("job panicked: %v", e.value)
}
