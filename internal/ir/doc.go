// Package ir provides the record types shared by the insertion store, and
// the canonical JSON encoding used for deterministic snapshots.
//
// All other internal packages import ir; ir imports nothing internal.
//
// Key design constraints:
//   - Batch and instance identifiers are opaque 128-bit tokens
//   - Sources are identified by name
//   - All JSON tags use snake_case
package ir
