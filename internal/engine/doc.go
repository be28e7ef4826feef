// Package engine implements the serialized access channel for the
// insertion store.
//
// ARCHITECTURE:
//
// Single-Writer Loop:
// SQLite does not support concurrent writers on one connection. The engine
// owns the store's only connection and executes every unit of work in a
// single goroutine. This ensures:
// - All reads and writes are serialized without explicit locks
// - Submission order is execution order
// - insert_order values reflect real acceptance order
//
// Job Processing Flow:
// 1. Callers submit jobs (Submit for fire-and-forget, Do/Await for results)
// 2. Each job is stamped with a seq from Clock and appended to the FIFO
// 3. Engine.Run() dequeues jobs one at a time
// 4. Each job runs inside its own transaction (store.WithTx)
// 5. Awaited jobs resolve their Future; failed fire-and-forget jobs go to
//    the FailureHandler
//
// Awaiting callers block only their own goroutine. The worker never waits on
// a caller: resolving a Future closes a channel.
//
// CRITICAL PATTERNS:
//
// No Cancellation Of Submitted Work:
// A caller may stop waiting (ctx), but the job still runs. Stop() and
// context cancellation both drain the queue before Run returns.
//
// No Silent Failures:
// Awaited jobs return their error to the caller. Fire-and-forget jobs report
// theirs to the FailureHandler, which logs by default.
package engine
