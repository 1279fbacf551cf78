package units

import (
	"context"
	"fmt"

	"task-mirror/core/reconcile"
	"task-mirror/feature/mirror/models"

	"golang.org/x/sync/errgroup"
)

// userUnit reconciles the account holder. Reminders and preferences only
// change with the user's revision, so they are its children.
type userUnit struct {
	reconcile.Base[models.User]
	run *run
}

func (u *userUnit) Name() string              { return UnitUser }
func (u *userUnit) Schema() *reconcile.Schema { return UserSchema }

func (u *userUnit) SyncChildren(ctx context.Context, _ []models.User) error {
	r := u.run
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return syncPreferences(gctx, r) })
	g.Go(func() error { return syncReminders(gctx, r) })
	return g.Wait()
}

// syncPreferences mirrors the remote account settings into the
// preferences file. It writes nothing to the entity store.
func syncPreferences(ctx context.Context, r *run) error {
	if r.prefs == nil {
		return nil
	}
	settings, err := reconcile.Fetch(ctx, r.pool, r.source.FetchSettings)
	if err != nil {
		return fmt.Errorf("failed to fetch settings: %w", err)
	}
	if err := r.prefs.ApplyRemote(settings); err != nil {
		return err
	}

	r.mu.Lock()
	r.report.PreferencesSynced = true
	r.mu.Unlock()
	return nil
}
