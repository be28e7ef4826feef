// Package harness runs YAML scenarios against a fresh in-memory insertion
// store and checks the outcome of every step, the final state and,
// optionally, a golden snapshot of the whole run.
//
// # Scenario Format
//
//	name: accepted_candidates
//	description: "Accepted candidates rank by recency"
//	steps:
//	  - new_source: buffers
//	  - new_batch: B1
//	  - new_instance: { id: I1, source: buffers, batch: B1, duration: 20ms, items: 5 }
//	  - inserted: { instance: I1, sort_by: foo }
//	  - insertion_order: { n: 2 }
//	    expect:
//	      order: { foo: 1 }
//	  - new_batch: B1
//	    expect:
//	      error: CONSTRAINT_VIOLATION
//	assertions:
//	  - type: counts
//	    expect: { batches: 1, inserted: 1 }
//	  - type: failures
//	    count: 0
//
// Each step names exactly one operation. Batch and instance ids are aliases;
// the harness binds each alias to a deterministic token on first use, so an
// alias that was never created refers to a row that does not exist.
//
// Fire-and-forget steps (new_source, inserted) are followed by a flush, and
// a failure reported for them becomes the step's outcome. A step without an
// expect clause must succeed.
//
// # Assertion Types
//
//   - counts: row counts per table (subset of sources, batches, instances, inserted)
//   - failures: total number of fire-and-forget failures reported
//   - insertion_order: InsertionOrder(n) equals order
//   - recent: sort keys of the n most recent insertions, newest first
//
// # Golden Snapshots
//
// Snapshot renders a run as canonical JSON (ir.MarshalCanonical). Tokens
// never appear in it, only aliases, so snapshots are byte-stable.
package harness
