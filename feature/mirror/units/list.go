package units

import (
	"context"
	"maps"
	"slices"
	"sort"

	"task-mirror/core/reconcile"
	"task-mirror/core/utils"
	"task-mirror/feature/mirror/models"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gorm.io/gorm"
)

// listUnit reconciles all lists. A changed or new list syncs its tasks.
type listUnit struct {
	reconcile.Base[models.List]
	run *run
}

func (u *listUnit) Name() string              { return UnitList }
func (u *listUnit) Schema() *reconcile.Schema { return ListSchema }

func (u *listUnit) SyncChildren(ctx context.Context, rows []models.List) error {
	r := u.run
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.rec.Options().Workers)
	for _, row := range rows {
		g.Go(func() error {
			return syncTasks(gctx, r, row.ID)
		})
	}
	return g.Wait()
}

// Cascade removes the tasks of deleted lists, subtasks included.
func (u *listUnit) Cascade(tx *gorm.DB, ids []any) error {
	if err := tx.Where(subtasksOfLists, ids).Delete(&models.Task{}).Error; err != nil {
		return err
	}
	return tx.Where("list_id IN ?", ids).Delete(&models.Task{}).Error
}

// orderLists returns copies of lists sorted for display with "order" set to
// the display index: smart lists first, then the remote position array,
// then remaining lists by id. Smart list titles are title-cased.
func orderLists(lists []reconcile.Record, positions []int64, smart []string) []reconcile.Record {
	posIndex := make(map[int64]int, len(positions))
	for i, id := range positions {
		if _, dup := posIndex[id]; !dup {
			posIndex[id] = i
		}
	}

	rank := func(rec reconcile.Record) (group int, key int64) {
		if i := slices.Index(smart, utils.ToString(rec["list_type"])); i >= 0 {
			return 0, int64(i)
		}
		id := utils.ToInt64(rec["id"])
		if i, ok := posIndex[id]; ok {
			return 1, int64(i)
		}
		return 2, id
	}

	out := make([]reconcile.Record, len(lists))
	for i, rec := range lists {
		out[i] = maps.Clone(rec)
	}
	sort.SliceStable(out, func(i, j int) bool {
		gi, ki := rank(out[i])
		gj, kj := rank(out[j])
		if gi != gj {
			return gi < gj
		}
		return ki < kj
	})

	title := cases.Title(language.Und)
	for i, rec := range out {
		if slices.Contains(smart, utils.ToString(rec["list_type"])) {
			rec["title"] = title.String(utils.ToString(rec["title"]))
		}
		rec["order"] = i
	}
	return out
}
