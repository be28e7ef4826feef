// Package idb is the insertion store: it records which completion candidates
// a user accepted and serves the insertion-order ranking signal.
//
// Every operation is a unit of work on the engine's single-writer queue.
// NewSource and Inserted are fire-and-forget: they return immediately and
// their failures are reported through the engine's FailureHandler (logged by
// default). NewBatch, NewInstance, InsertionOrder and the reporting queries
// wait for their result.
//
// Typical use by a completion session:
//
//	db, err := idb.Open(ctx, path)
//	if err != nil {
//	    return err // fatal: schema could not be initialized
//	}
//	defer db.Close()
//
//	db.NewSource("buffers")
//	batch := ir.NewToken()
//	_ = db.NewBatch(ctx, batch)
//	inst := ir.Instance{ID: ir.NewToken(), Source: "buffers", BatchID: batch, Items: 5}
//	_ = db.NewInstance(ctx, inst)
//
//	// later, when the user accepts a candidate
//	db.Inserted(inst.ID, "foo")
//
//	// when ranking the next candidate pool
//	order, _ := db.InsertionOrder(ctx, 2000)
package idb
