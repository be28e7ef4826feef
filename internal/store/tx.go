package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// TxFunc is a unit of work executed inside one transaction.
type TxFunc func(ctx context.Context, tx *sql.Tx) error

// WithTx runs fn inside a new transaction on the store's connection.
//
// The transaction commits if fn returns nil and rolls back otherwise; a panic
// in fn rolls back and re-panics. The returned error is classified (see
// Error) and names op.
//
// Exactly one unit of work runs per transaction. WithTx must not be called
// concurrently, and fn must not call WithTx.
func (s *Store) WithTx(ctx context.Context, op string, fn TxFunc) error {
	if s.conn == nil {
		return &Error{Code: CodeInternal, Op: op, Err: sql.ErrConnDone}
	}

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return classify(op, fmt.Errorf("begin tx: %w", err))
	}

	// Rolls back if fn panics. No-op after Commit or an explicit Rollback.
	defer tx.Rollback()

	if err := fn(ctx, tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			err = errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		return classify(op, err)
	}

	if err := tx.Commit(); err != nil {
		return classify(op, fmt.Errorf("commit: %w", err))
	}

	return nil
}
