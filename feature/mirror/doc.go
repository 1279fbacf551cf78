// Package mirror exposes the local mirror of the remote task service.
//
// Service owns the entity store, the sync lock, the state file and the
// preferences, and runs sync passes through units.Orchestrator:
//
//	svc, err := mirror.NewService(cfg, db, client, launcher, log)
//	report, err := svc.Sync(ctx, false)      // wait for a running pass
//	report, err = svc.Sync(ctx, true)        // or skip if one is running
//	launched, err := svc.SyncIfStale(ctx, 10*time.Minute)
//
// Queries is the read side used by the HTTP routes registered by Feature.
package mirror
