package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/insertdb/internal/ir"
)

// createTestStore creates a new file-backed store in a temp directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(context.Background(), path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// mustTx runs fn in a transaction and fails the test on error.
func mustTx(t *testing.T, s *Store, fn func(ctx context.Context, tx *sql.Tx) error) {
	t.Helper()
	if err := s.WithTx(context.Background(), "test", fn); err != nil {
		t.Fatalf("WithTx() failed: %v", err)
	}
}

// seedInstance registers source, batch and instance rows and returns the instance.
func seedInstance(t *testing.T, s *Store, source string) ir.Instance {
	t.Helper()
	inst := ir.Instance{
		ID:       ir.NewToken(),
		Source:   source,
		BatchID:  ir.NewToken(),
		Duration: 10 * time.Millisecond,
		Items:    5,
	}
	mustTx(t, s, func(ctx context.Context, tx *sql.Tx) error {
		if err := InsertSource(ctx, tx, inst.Source); err != nil {
			return err
		}
		if err := InsertBatch(ctx, tx, inst.BatchID); err != nil {
			return err
		}
		return InsertInstance(ctx, tx, inst)
	})
	return inst
}

// countRows returns the row count of table.
func countRows(t *testing.T, s *Store, table string) int64 {
	t.Helper()
	var n int64
	mustTx(t, s, func(ctx context.Context, tx *sql.Tx) error {
		var err error
		n, err = CountRows(ctx, tx, table)
		return err
	})
	return n
}
