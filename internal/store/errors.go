package store

import (
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
)

// Code categorizes store errors.
type Code string

const (
	// CodeInitialization indicates pragma or schema setup failed. Fatal.
	CodeInitialization Code = "INITIALIZATION_FAILURE"

	// CodeConstraint indicates a UNIQUE, PRIMARY KEY, FOREIGN KEY, NOT NULL
	// or CHECK constraint rejected a write.
	CodeConstraint Code = "CONSTRAINT_VIOLATION"

	// CodeTransient indicates a retryable engine condition (busy, locked,
	// I/O error). The store never retries on its own.
	CodeTransient Code = "TRANSIENT_IO_FAILURE"

	// CodeInternal covers every other failure.
	CodeInternal Code = "INTERNAL"
)

// Error is a classified store failure.
type Error struct {
	// Code identifies the error category.
	Code Code

	// Op names the unit of work that failed (e.g. "new_batch").
	Op string

	// Err is the underlying driver or wrapping error.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Code, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Code, e.Err)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// CodeOf returns the Code of the first *Error in err's chain, or
// CodeInternal if there is none. CodeOf(nil) returns "".
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	var se *Error
	if errors.As(err, &se) {
		return se.Code
	}
	return CodeInternal
}

// IsConstraintViolation returns true if err is a constraint violation.
// Uses errors.As to handle wrapped errors.
func IsConstraintViolation(err error) bool {
	return err != nil && CodeOf(err) == CodeConstraint
}

// IsTransient returns true if err is a retryable engine failure.
func IsTransient(err error) bool {
	return err != nil && CodeOf(err) == CodeTransient
}

// IsInitialization returns true if err came from Open.
func IsInitialization(err error) bool {
	return err != nil && CodeOf(err) == CodeInitialization
}

// initError wraps a setup failure.
func initError(op string, err error) *Error {
	return &Error{Code: CodeInitialization, Op: op, Err: err}
}

// classify maps a driver error to an *Error. Errors that are already
// classified are returned unchanged.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}

	var se *Error
	if errors.As(err, &se) {
		return err
	}

	return &Error{Code: codeForDriverError(err), Op: op, Err: err}
}

// codeForDriverError inspects the sqlite3 result code in err's chain.
//
// Error Mapping:
//   - sqlite3.ErrConstraint (any extended code) → CodeConstraint
//   - sqlite3.ErrBusy, sqlite3.ErrLocked → CodeTransient
//   - sqlite3.ErrIoErr, sqlite3.ErrFull, sqlite3.ErrProtocol → CodeTransient
//   - anything else → CodeInternal
func codeForDriverError(err error) Code {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return CodeInternal
	}

	switch sqliteErr.Code {
	case sqlite3.ErrConstraint:
		return CodeConstraint
	case sqlite3.ErrBusy, sqlite3.ErrLocked, sqlite3.ErrIoErr, sqlite3.ErrFull, sqlite3.ErrProtocol:
		return CodeTransient
	default:
		return CodeInternal
	}
}
