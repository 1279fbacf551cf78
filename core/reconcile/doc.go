// Package reconcile applies remote snapshots to the local store.
//
// A snapshot is a slice of Records (decoded JSON objects). Each entity type
// provides a Unit: its Schema (the remote-to-column mapping table), how to
// read identity and revision from a record, which stored rows the snapshot
// covers and how to sync dependents.
//
// # Algorithm
//
// Reconcile indexes the stored rows by key and partitions the snapshot:
//
//   - same revision: unchanged, nothing is written
//   - different revision: children synced first, then a single-row update
//   - stored but not remote: deleted in batches, with Cascader dependents
//   - remote but not stored: inserted in batches, then children synced
//
// Revision equality is the only staleness signal. A parent row is never
// written at a new revision before its children were reconciled.
//
// # Concurrency
//
// Changed siblings are processed concurrently, bounded by Options.Workers.
// Remote fetches go through a Pool shared by the whole pass.
//
// # Usage
//
//	r := reconcile.NewReconciler(db, logger, reconcile.Options{})
//	res, err := reconcile.Reconcile(ctx, r, lists, snapshot)
//	if err != nil {
//	    return err
//	}
//	if res.Stats.Changed() {
//	    // derive dependents
//	}
package reconcile
