// Package store provides SQLite-backed durable storage for accepted
// completion candidates.
//
// The store holds four append-only tables:
//   - source: named upstream origins of candidates ("buffers", "paths")
//   - batch: one completion request cycle
//   - instance: one candidate-gathering pass by a source within a batch
//   - inserted: one accepted candidate, keyed by its sort_by text
//
// # Single Connection
//
// Open pins exactly one *sql.Conn. All statements run on it, inside
// transactions opened by WithTx. Store itself is NOT safe for concurrent
// use: the engine package owns a Store and serializes every unit of work
// onto a single goroutine.
//
// # Insertion Order
//
// inserted.insert_order is an AUTOINCREMENT rowid. It is strictly increasing
// across the whole store and is returned directly as the ranking signal.
// This holds only because nothing ever deletes from inserted.
//
// # Database Configuration
//
//   - WAL mode: external readers do not block the writer
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout: Wait for locks held by external readers (default 5s)
//   - foreign_keys=ON: Enforce referential integrity
//
// Errors returned by the package are classified into *Error values; see
// IsConstraintViolation, IsTransient and IsInitialization.
package store
