package units

import (
	"context"
	"fmt"

	"task-mirror/core/reconcile"
	"task-mirror/feature/mirror/models"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// rootUnit reconciles the account singleton. Its child sync is the whole
// rest of the pass.
type rootUnit struct {
	reconcile.Base[models.Root]
	run *run
}

func (u *rootUnit) Name() string              { return UnitRoot }
func (u *rootUnit) Schema() *reconcile.Schema { return RootSchema }

func (u *rootUnit) LoadLocal(ctx context.Context, db *gorm.DB, snapshot []reconcile.Record) ([]models.Root, error) {
	rows, err := u.Base.LoadLocal(ctx, db, snapshot)
	if err != nil {
		return nil, err
	}
	u.run.report.Initial = len(rows) == 0
	return rows, nil
}

func (u *rootUnit) SyncChildren(ctx context.Context, _ []models.Root) error {
	r := u.run

	// Top-level collections are independent; fetch them together.
	var (
		userRec   reconcile.Record
		lists     []reconcile.Record
		positions []int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		userRec, err = reconcile.Fetch(gctx, r.pool, r.source.FetchUser)
		if err != nil {
			err = fmt.Errorf("failed to fetch user: %w", err)
		}
		return err
	})
	g.Go(func() (err error) {
		lists, err = reconcile.Fetch(gctx, r.pool, r.source.FetchLists)
		if err != nil {
			err = fmt.Errorf("failed to fetch lists: %w", err)
		}
		return err
	})
	g.Go(func() (err error) {
		positions, err = reconcile.Fetch(gctx, r.pool, r.source.FetchListPositions)
		if err != nil {
			err = fmt.Errorf("failed to fetch list positions: %w", err)
		}
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	// Lists, and through them tasks.
	listRes, err := reconcile.Reconcile(ctx, r.rec, &listUnit{run: r}, orderLists(lists, positions, r.opts.SmartLists))
	if err != nil {
		return err
	}
	r.record(UnitList, listRes.Stats)

	// Tags are re-derived on every changed root, not only when this pass
	// touched a list or task: an earlier pass may have committed tasks and
	// failed before reaching this step.
	if err := syncHashtags(ctx, r); err != nil {
		return err
	}

	// The user, then its dependents. Runs after tasks so reminders can
	// refer to them.
	userRes, err := reconcile.Reconcile(ctx, r.rec, &userUnit{run: r}, []reconcile.Record{userRec})
	if err != nil {
		return err
	}
	r.record(UnitUser, userRes.Stats)

	if r.opts.AlwaysSyncReminders && !r.syncedReminders() {
		if err := syncReminders(ctx, r); err != nil {
			return err
		}
	}

	return nil
}
