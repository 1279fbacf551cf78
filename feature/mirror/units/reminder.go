package units

import (
	"context"
	"fmt"

	"task-mirror/core/reconcile"
	"task-mirror/feature/mirror/models"
)

type reminderUnit struct {
	reconcile.Base[models.Reminder]
}

func (u *reminderUnit) Name() string              { return UnitReminder }
func (u *reminderUnit) Schema() *reconcile.Schema { return ReminderSchema }

// syncReminders reconciles the full reminder collection.
func syncReminders(ctx context.Context, r *run) error {
	recs, err := reconcile.Fetch(ctx, r.pool, r.source.FetchReminders)
	if err != nil {
		return fmt.Errorf("failed to fetch reminders: %w", err)
	}

	res, err := reconcile.Reconcile(ctx, r.rec, &reminderUnit{}, recs)
	if err != nil {
		return err
	}
	r.record(UnitReminder, res.Stats)

	r.mu.Lock()
	r.remindersSynced = true
	r.mu.Unlock()
	return nil
}
