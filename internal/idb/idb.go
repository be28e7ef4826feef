package idb

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/insertdb/internal/engine"
	"github.com/roach88/insertdb/internal/ir"
	"github.com/roach88/insertdb/internal/store"
)

// Operation names, used for logs, metrics and error messages.
const (
	OpNewSource      = "new_source"
	OpNewBatch       = "new_batch"
	OpNewInstance    = "new_instance"
	OpInsertionOrder = "insertion_order"
	OpInserted       = "inserted"
	OpSummary        = "summary"
	OpRecent         = "recent"
	OpCounts         = "counts"
)

// IDB is the insertion store. It is safe for concurrent use.
type IDB struct {
	engine *engine.Engine
	store  *store.Store

	closeOnce sync.Once
	closeErr  error
}

// Option configures Open.
type Option func(*options)

type options struct {
	busyTimeout time.Duration
	onFailure   engine.FailureHandler
}

// WithBusyTimeout sets how long SQLite waits on locks held by other processes.
func WithBusyTimeout(d time.Duration) Option {
	return func(o *options) {
		o.busyTimeout = d
	}
}

// WithFailureHandler observes failed fire-and-forget writes (NewSource and
// Inserted). By default they are logged at error level.
func WithFailureHandler(h engine.FailureHandler) Option {
	return func(o *options) {
		o.onFailure = h
	}
}

// Open initializes the store at path and starts its worker.
//
// Schema or pragma failures are returned as store errors with
// CodeInitialization; the store cannot serve any request in that case.
func Open(ctx context.Context, path string, opts ...Option) (*IDB, error) {
	o := options{busyTimeout: store.DefaultBusyTimeout}
	for _, opt := range opts {
		opt(&o)
	}

	st, err := store.Open(ctx, path, store.WithBusyTimeout(o.busyTimeout))
	if err != nil {
		return nil, err
	}

	var engineOpts []engine.Option
	if o.onFailure != nil {
		engineOpts = append(engineOpts, engine.WithFailureHandler(o.onFailure))
	}
	e := engine.New(st, engineOpts...)

	go func() {
		if err := e.Run(context.Background()); err != nil {
			slog.Error("engine exited", "error", err)
		}
	}()

	return &IDB{engine: e, store: st}, nil
}

// Close stops accepting work, waits for every queued job to finish and
// closes the database. Safe to call more than once.
func (db *IDB) Close() error {
	db.closeOnce.Do(func() {
		db.engine.Stop()
		<-db.engine.Done()
		db.closeErr = db.store.Close()
	})
	return db.closeErr
}

// Path returns the database path.
func (db *IDB) Path() string {
	return db.store.Path()
}

// NewSource registers a source by name. Fire-and-forget; re-registering an
// existing name is a no-op.
func (db *IDB) NewSource(name string) {
	db.engine.Submit(OpNewSource, func(ctx context.Context, tx *sql.Tx) error {
		return store.InsertSource(ctx, tx, name)
	})
}

// NewBatch records a new batch. A reused batchID fails with a constraint
// violation (see store.IsConstraintViolation).
func (db *IDB) NewBatch(ctx context.Context, batchID ir.Token) error {
	return db.engine.Do(ctx, OpNewBatch, func(ctx context.Context, tx *sql.Tx) error {
		return store.InsertBatch(ctx, tx, batchID)
	})
}

// NewInstance records a candidate-gathering pass. Fails with a constraint
// violation if the source or batch does not exist, if the id is reused, or
// if Duration or Items is negative.
func (db *IDB) NewInstance(ctx context.Context, inst ir.Instance) error {
	return db.engine.Do(ctx, OpNewInstance, func(ctx context.Context, tx *sql.Tx) error {
		return store.InsertInstance(ctx, tx, inst)
	})
}

// InsertionOrder returns, for the nRows most recently accepted candidates,
// each sort key's most recent insert_order. Larger values are more recent.
// The mapping holds at most nRows keys.
func (db *IDB) InsertionOrder(ctx context.Context, nRows int) (ir.InsertionOrder, error) {
	return engine.Await(ctx, db.engine, OpInsertionOrder, func(ctx context.Context, tx *sql.Tx) (ir.InsertionOrder, error) {
		return store.SelectInsertionOrder(ctx, tx, nRows)
	})
}

// Inserted records that the candidate with key sortBy was accepted under
// instanceID. Fire-and-forget; a missing instance is reported to the
// failure handler as a constraint violation.
func (db *IDB) Inserted(instanceID ir.Token, sortBy string) {
	db.engine.Submit(OpInserted, func(ctx context.Context, tx *sql.Tx) error {
		_, err := store.InsertInserted(ctx, tx, instanceID, sortBy)
		return err
	})
}

// Flush waits until every operation submitted before it has been applied.
func (db *IDB) Flush(ctx context.Context) error {
	return db.engine.Flush(ctx)
}

// Summary returns per-source statistics ordered by source name.
func (db *IDB) Summary(ctx context.Context) ([]ir.SourceStats, error) {
	return engine.Await(ctx, db.engine, OpSummary, store.SelectSummary)
}

// Recent returns up to n accepted candidates, most recent first.
func (db *IDB) Recent(ctx context.Context, n int) ([]ir.Insertion, error) {
	return engine.Await(ctx, db.engine, OpRecent, func(ctx context.Context, tx *sql.Tx) ([]ir.Insertion, error) {
		return store.SelectRecentInsertions(ctx, tx, n)
	})
}

// Counts holds the number of rows in each table.
type Counts struct {
	Sources   int64 `json:"sources"`
	Batches   int64 `json:"batches"`
	Instances int64 `json:"instances"`
	Inserted  int64 `json:"inserted"`
}

// Counts returns the row count of every table, read in one transaction.
func (db *IDB) Counts(ctx context.Context) (Counts, error) {
	return engine.Await(ctx, db.engine, OpCounts, func(ctx context.Context, tx *sql.Tx) (Counts, error) {
		var c Counts
		targets := []struct {
			table string
			dst   *int64
		}{
			{"source", &c.Sources},
			{"batch", &c.Batches},
			{"instance", &c.Instances},
			{"inserted", &c.Inserted},
		}
		for _, target := range targets {
			n, err := store.CountRows(ctx, tx, target.table)
			if err != nil {
				return Counts{}, fmt.Errorf("counts: %w", err)
			}
			*target.dst = n
		}
		return c, nil
	})
}
