package store

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"time"

	"github.com/roach88/insertdb/internal/ir"
)

// SelectInsertionOrder returns the sort_by → insert_order mapping for the
// limit most recent inserted rows.
//
// Rows are read in descending insert_order, so the first occurrence of a key
// carries its most recent order and later (older) duplicates are skipped.
// The result never holds more than limit keys. limit <= 0 yields an empty map.
func SelectInsertionOrder(ctx context.Context, tx *sql.Tx, limit int) (ir.InsertionOrder, error) {
	order := make(ir.InsertionOrder)
	if limit <= 0 {
		return order, nil
	}

	rows, err := tx.QueryContext(ctx, `
		SELECT sort_by, insert_order
		FROM inserted
		ORDER BY insert_order DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query insertion order: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var sortBy string
		var seq int64
		if err := rows.Scan(&sortBy, &seq); err != nil {
			return nil, fmt.Errorf("scan insertion order: %w", err)
		}
		if _, seen := order[sortBy]; !seen {
			order[sortBy] = seq
		}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate insertion order: %w", err)
	}

	return order, nil
}

// SelectRecentInsertions returns up to limit inserted rows, most recent first.
// Returns an empty slice (not nil) if there are none.
func SelectRecentInsertions(ctx context.Context, tx *sql.Tx, limit int) ([]ir.Insertion, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT insert_order, instance_id, sort_by
		FROM inserted
		ORDER BY insert_order DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query insertions: %w", err)
	}
	defer rows.Close()

	insertions := []ir.Insertion{}
	for rows.Next() {
		var ins ir.Insertion
		if err := rows.Scan(&ins.Order, &ins.InstanceID, &ins.SortBy); err != nil {
			return nil, fmt.Errorf("scan insertion: %w", err)
		}
		insertions = append(insertions, ins)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate insertions: %w", err)
	}

	return insertions, nil
}

// CountRows returns the number of rows in one of the store's tables.
func CountRows(ctx context.Context, tx *sql.Tx, table string) (int64, error) {
	switch table {
	case "source", "batch", "instance", "inserted":
	default:
		return 0, fmt.Errorf("count rows: unknown table %q", table)
	}

	var n int64
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}

// SelectSummary returns per-source statistics, ordered by source name.
// Sources with no instances are included with zero values.
func SelectSummary(ctx context.Context, tx *sql.Tx) ([]ir.SourceStats, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT
		  s.name,
		  COUNT(i.id),
		  COALESCE(SUM(i.interrupted), 0),
		  COALESCE(AVG(i.items), 0),
		  COALESCE(AVG(i.duration), 0),
		  COALESCE(MAX(i.duration), 0)
		FROM source s
		LEFT JOIN instance i ON i.source_id = s.name
		GROUP BY s.name
		ORDER BY s.name ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query summary: %w", err)
	}

	stats := []ir.SourceStats{}
	index := make(map[string]int)
	for rows.Next() {
		var st ir.SourceStats
		var avgDuration, maxDuration float64
		if err := rows.Scan(&st.Source, &st.Instances, &st.Interrupted, &st.AvgItems, &avgDuration, &maxDuration); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan summary: %w", err)
		}
		st.AvgDuration = seconds(avgDuration)
		st.MaxDuration = seconds(maxDuration)
		index[st.Source] = len(stats)
		stats = append(stats, st)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate summary: %w", err)
	}
	rows.Close()

	if err := fillInsertedCounts(ctx, tx, stats, index); err != nil {
		return nil, err
	}
	if err := fillDurationQuantiles(ctx, tx, stats, index); err != nil {
		return nil, err
	}

	return stats, nil
}

func fillInsertedCounts(ctx context.Context, tx *sql.Tx, stats []ir.SourceStats, index map[string]int) error {
	rows, err := tx.QueryContext(ctx, `
		SELECT i.source_id, COUNT(*)
		FROM inserted n
		JOIN instance i ON i.id = n.instance_id
		GROUP BY i.source_id
	`)
	if err != nil {
		return fmt.Errorf("query inserted counts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var source string
		var n int64
		if err := rows.Scan(&source, &n); err != nil {
			return fmt.Errorf("scan inserted count: %w", err)
		}
		if i, ok := index[source]; ok {
			stats[i].Inserted = n
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate inserted counts: %w", err)
	}
	return nil
}

func fillDurationQuantiles(ctx context.Context, tx *sql.Tx, stats []ir.SourceStats, index map[string]int) error {
	rows, err := tx.QueryContext(ctx, `
		SELECT source_id, duration
		FROM instance
		ORDER BY source_id ASC, duration ASC
	`)
	if err != nil {
		return fmt.Errorf("query durations: %w", err)
	}
	defer rows.Close()

	durations := make(map[string][]float64)
	for rows.Next() {
		var source string
		var d float64
		if err := rows.Scan(&source, &d); err != nil {
			return fmt.Errorf("scan duration: %w", err)
		}
		durations[source] = append(durations[source], d)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate durations: %w", err)
	}

	for source, ds := range durations {
		i, ok := index[source]
		if !ok {
			continue
		}
		stats[i].Q50Duration = seconds(quantile(ds, 0.50))
		stats[i].Q95Duration = seconds(quantile(ds, 0.95))
	}
	return nil
}

// quantile returns the nearest-rank q-quantile of sorted values.
func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	rank := int(math.Ceil(q*float64(len(sorted)))) - 1
	if rank < 0 {
		rank = 0
	}
	if rank >= len(sorted) {
		rank = len(sorted) - 1
	}
	return sorted[rank]
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
