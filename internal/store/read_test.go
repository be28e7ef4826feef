package store

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/insertdb/internal/ir"
)

func insertWords(t *testing.T, s *Store, instanceID ir.Token, words ...string) {
	t.Helper()
	for _, w := range words {
		mustTx(t, s, func(ctx context.Context, tx *sql.Tx) error {
			_, err := InsertInserted(ctx, tx, instanceID, w)
			return err
		})
	}
}

func readOrder(t *testing.T, s *Store, limit int) ir.InsertionOrder {
	t.Helper()
	var order ir.InsertionOrder
	mustTx(t, s, func(ctx context.Context, tx *sql.Tx) error {
		var err error
		order, err = SelectInsertionOrder(ctx, tx, limit)
		return err
	})
	return order
}

func TestSelectInsertionOrder_Basic(t *testing.T) {
	s := createTestStore(t)
	inst := seedInstance(t, s, "buffers")
	insertWords(t, s, inst.ID, "foo", "bar")

	order := readOrder(t, s, 2)
	assert.Equal(t, ir.InsertionOrder{"foo": 1, "bar": 2}, order)
}

func TestSelectInsertionOrder_Empty(t *testing.T) {
	s := createTestStore(t)

	order := readOrder(t, s, 10)
	assert.NotNil(t, order)
	assert.Empty(t, order)
}

func TestSelectInsertionOrder_NonPositiveLimit(t *testing.T) {
	s := createTestStore(t)
	inst := seedInstance(t, s, "buffers")
	insertWords(t, s, inst.ID, "foo")

	assert.Empty(t, readOrder(t, s, 0))
	assert.Empty(t, readOrder(t, s, -3))
}

func TestSelectInsertionOrder_WindowLimitsRows(t *testing.T) {
	s := createTestStore(t)
	inst := seedInstance(t, s, "buffers")
	insertWords(t, s, inst.ID, "a", "b", "c", "d", "e")

	order := readOrder(t, s, 3)
	assert.Equal(t, ir.InsertionOrder{"c": 3, "d": 4, "e": 5}, order)
}

func TestSelectInsertionOrder_DuplicateKeepsMostRecent(t *testing.T) {
	s := createTestStore(t)
	inst := seedInstance(t, s, "buffers")
	insertWords(t, s, inst.ID, "foo", "bar", "foo")

	order := readOrder(t, s, 3)
	assert.Equal(t, ir.InsertionOrder{"foo": 3, "bar": 2}, order)

	// Window of 3 rows holding only 2 distinct keys
	assert.LessOrEqual(t, len(order), 3)
}

func TestSelectInsertionOrder_AcrossInstances(t *testing.T) {
	s := createTestStore(t)
	a := seedInstance(t, s, "buffers")
	b := seedInstance(t, s, "paths")

	insertWords(t, s, a.ID, "foo")
	insertWords(t, s, b.ID, "bar")
	insertWords(t, s, a.ID, "baz")

	order := readOrder(t, s, 10)
	assert.Equal(t, ir.InsertionOrder{"foo": 1, "bar": 2, "baz": 3}, order)
}

func TestSelectRecentInsertions(t *testing.T) {
	s := createTestStore(t)
	inst := seedInstance(t, s, "buffers")
	insertWords(t, s, inst.ID, "foo", "bar", "baz")

	var got []ir.Insertion
	mustTx(t, s, func(ctx context.Context, tx *sql.Tx) error {
		var err error
		got, err = SelectRecentInsertions(ctx, tx, 2)
		return err
	})

	require.Len(t, got, 2)
	assert.Equal(t, ir.Insertion{Order: 3, InstanceID: inst.ID, SortBy: "baz"}, got[0])
	assert.Equal(t, ir.Insertion{Order: 2, InstanceID: inst.ID, SortBy: "bar"}, got[1])
}

func TestCountRows_UnknownTable(t *testing.T) {
	s := createTestStore(t)

	err := s.WithTx(context.Background(), "count", func(ctx context.Context, tx *sql.Tx) error {
		_, err := CountRows(ctx, tx, "sqlite_master; DROP TABLE inserted")
		return err
	})
	assert.Error(t, err)
}

func TestSelectSummary(t *testing.T) {
	s := createTestStore(t)

	batch := ir.NewToken()
	mustTx(t, s, func(ctx context.Context, tx *sql.Tx) error {
		for _, name := range []string{"buffers", "paths", "tmux"} {
			if err := InsertSource(ctx, tx, name); err != nil {
				return err
			}
		}
		if err := InsertBatch(ctx, tx, batch); err != nil {
			return err
		}
		instances := []ir.Instance{
			{ID: ir.NewToken(), Source: "buffers", BatchID: batch, Duration: 10 * time.Millisecond, Items: 4},
			{ID: ir.NewToken(), Source: "buffers", BatchID: batch, Duration: 30 * time.Millisecond, Items: 6, Interrupted: true},
			{ID: ir.NewToken(), Source: "buffers", BatchID: batch, Duration: 20 * time.Millisecond, Items: 5},
			{ID: ir.NewToken(), Source: "paths", BatchID: batch, Duration: 5 * time.Millisecond, Items: 1},
		}
		for _, inst := range instances {
			if err := InsertInstance(ctx, tx, inst); err != nil {
				return err
			}
		}
		for _, w := range []string{"foo", "bar"} {
			if _, err := InsertInserted(ctx, tx, instances[0].ID, w); err != nil {
				return err
			}
		}
		_, err := InsertInserted(ctx, tx, instances[3].ID, "/tmp")
		return err
	})

	var stats []ir.SourceStats
	mustTx(t, s, func(ctx context.Context, tx *sql.Tx) error {
		var err error
		stats, err = SelectSummary(ctx, tx)
		return err
	})

	require.Len(t, stats, 3)

	buffers := stats[0]
	assert.Equal(t, "buffers", buffers.Source)
	assert.Equal(t, int64(3), buffers.Instances)
	assert.Equal(t, int64(1), buffers.Interrupted)
	assert.Equal(t, int64(2), buffers.Inserted)
	assert.InDelta(t, 5.0, buffers.AvgItems, 1e-9)
	assert.InDelta(t, float64(20*time.Millisecond), float64(buffers.AvgDuration), float64(time.Microsecond))
	assert.InDelta(t, float64(20*time.Millisecond), float64(buffers.Q50Duration), float64(time.Microsecond))
	assert.InDelta(t, float64(30*time.Millisecond), float64(buffers.Q95Duration), float64(time.Microsecond))
	assert.InDelta(t, float64(30*time.Millisecond), float64(buffers.MaxDuration), float64(time.Microsecond))

	paths := stats[1]
	assert.Equal(t, "paths", paths.Source)
	assert.Equal(t, int64(1), paths.Instances)
	assert.Equal(t, int64(1), paths.Inserted)

	tmux := stats[2]
	assert.Equal(t, "tmux", tmux.Source)
	assert.Equal(t, int64(0), tmux.Instances)
	assert.Equal(t, int64(0), tmux.Inserted)
	assert.Zero(t, tmux.Q50Duration)
}

func TestQuantile(t *testing.T) {
	assert.Equal(t, 0.0, quantile(nil, 0.5))
	assert.Equal(t, 1.0, quantile([]float64{1}, 0.95))
	assert.Equal(t, 2.0, quantile([]float64{1, 2, 3}, 0.5))
	assert.Equal(t, 3.0, quantile([]float64{1, 2, 3}, 0.95))
	assert.Equal(t, 1.0, quantile([]float64{1, 2, 3}, 0))
}
