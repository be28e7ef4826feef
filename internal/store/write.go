package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/insertdb/internal/ir"
)

// InsertSource registers a source by name.
// Uses ON CONFLICT(name) DO NOTHING for idempotency - re-registering is a no-op.
func InsertSource(ctx context.Context, tx *sql.Tx, name string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO source (name)
		VALUES (?)
		ON CONFLICT (name) DO NOTHING
	`, name)
	if err != nil {
		return fmt.Errorf("insert source %q: %w", name, err)
	}
	return nil
}

// InsertBatch inserts a batch row.
// A duplicate id is a PRIMARY KEY constraint violation: callers are expected
// to generate fresh tokens.
func InsertBatch(ctx context.Context, tx *sql.Tx, id ir.Token) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO batch (id)
		VALUES (?)
	`, id)
	if err != nil {
		return fmt.Errorf("insert batch %s: %w", id, err)
	}
	return nil
}

// InsertInstance inserts an instance row.
//
// Note: The source and batch referenced by the instance must exist (foreign
// key constraints). Negative duration or items violate CHECK constraints.
func InsertInstance(ctx context.Context, tx *sql.Tx, inst ir.Instance) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO instance
		(id, source_id, batch_id, interrupted, duration, items)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		inst.ID,
		inst.Source,
		inst.BatchID,
		inst.Interrupted,
		inst.Duration.Seconds(),
		inst.Items,
	)
	if err != nil {
		return fmt.Errorf("insert instance %s: %w", inst.ID, err)
	}
	return nil
}

// InsertInserted appends an accepted candidate under an instance and returns
// its insert_order.
//
// Note: The instance referenced by instanceID must exist (foreign key constraint).
func InsertInserted(ctx context.Context, tx *sql.Tx, instanceID ir.Token, sortBy string) (int64, error) {
	result, err := tx.ExecContext(ctx, `
		INSERT INTO inserted (instance_id, sort_by)
		VALUES (?, ?)
	`, instanceID, sortBy)
	if err != nil {
		return 0, fmt.Errorf("insert inserted %q: %w", sortBy, err)
	}

	order, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert inserted %q: last insert id: %w", sortBy, err)
	}
	return order, nil
}
