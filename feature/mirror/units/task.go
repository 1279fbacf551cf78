package units

import (
	"context"
	"fmt"

	"task-mirror/core/reconcile"
	"task-mirror/core/utils"
	"task-mirror/feature/mirror/models"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// Subtasks whose parent belongs to one of the given lists. The derived
// table lets MySQL delete from the table it reads.
const (
	subtasksOfList  = "task_id IN (SELECT id FROM (SELECT id FROM tasks WHERE list_id = ?) AS owned)"
	subtasksOfLists = "task_id IN (SELECT id FROM (SELECT id FROM tasks WHERE list_id IN ?) AS owned)"
)

// taskUnit reconciles the tasks of one list.
type taskUnit struct {
	reconcile.Base[models.Task]
	listID int64
}

func (u *taskUnit) Name() string              { return UnitTask }
func (u *taskUnit) Schema() *reconcile.Schema { return TaskSchema }

// LoadLocal returns the tasks the list's snapshot is authoritative for: its
// own tasks, their subtasks, and any task the snapshot mentions (a task
// moved here from another list).
func (u *taskUnit) LoadLocal(ctx context.Context, db *gorm.DB, snapshot []reconcile.Record) ([]models.Task, error) {
	ids := make([]int64, 0, len(snapshot))
	for _, rec := range snapshot {
		ids = append(ids, utils.ToInt64(rec["id"]))
	}

	q := db.WithContext(ctx).Where("list_id = ?", u.listID).Or(subtasksOfList, u.listID)
	if len(ids) > 0 {
		q = q.Or("id IN ?", ids)
	}

	var rows []models.Task
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// DeleteScope keeps deletes to rows still owned by this list, so a task
// that another list claimed concurrently survives.
func (u *taskUnit) DeleteScope(tx *gorm.DB) *gorm.DB {
	return tx.Where("(list_id = ? OR "+subtasksOfList+")", u.listID, u.listID)
}

// syncTasks fetches the four task collections of a list with both position
// arrays, assigns ordinals, reconciles, and refreshes the list's counts.
func syncTasks(ctx context.Context, r *run, listID int64) error {
	var (
		collections [4][]reconcile.Record
		taskPos     []int64
		subtaskPos  []int64
	)

	g, gctx := errgroup.WithContext(ctx)
	for i, kind := range []struct{ completed, subtasks bool }{
		{false, false}, {true, false}, {false, true}, {true, true},
	} {
		g.Go(func() (err error) {
			collections[i], err = reconcile.Fetch(gctx, r.pool, func(ctx context.Context) ([]reconcile.Record, error) {
				return r.source.FetchTasks(ctx, listID, kind.completed, kind.subtasks)
			})
			if err != nil {
				err = fmt.Errorf("failed to fetch tasks of list %d: %w", listID, err)
			}
			return err
		})
	}
	g.Go(func() (err error) {
		taskPos, err = reconcile.Fetch(gctx, r.pool, func(ctx context.Context) ([]int64, error) {
			return r.source.FetchTaskPositions(ctx, listID)
		})
		if err != nil {
			err = fmt.Errorf("failed to fetch task positions of list %d: %w", listID, err)
		}
		return err
	})
	g.Go(func() (err error) {
		subtaskPos, err = reconcile.Fetch(gctx, r.pool, func(ctx context.Context) ([]int64, error) {
			return r.source.FetchSubtaskPositions(ctx, listID)
		})
		if err != nil {
			err = fmt.Errorf("failed to fetch subtask positions of list %d: %w", listID, err)
		}
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	snapshot := mergeTasks(listID, collections[:], taskPos, subtaskPos)

	res, err := reconcile.Reconcile(ctx, r.rec, &taskUnit{listID: listID}, snapshot)
	if err != nil {
		return err
	}
	r.record(UnitTask, res.Stats)

	completed, uncompleted := countTasks(snapshot)
	return r.rec.UpdateColumns(ctx, &models.List{}, listID, map[string]any{
		"completed_count":   completed,
		"uncompleted_count": uncompleted,
	})
}

// mergeTasks concatenates the collections into one snapshot. Each record is
// copied; a record without list_id is owned by listID, and its ordinal
// comes from the matching position array when listed there.
func mergeTasks(listID int64, collections [][]reconcile.Record, taskPos, subtaskPos []int64) []reconcile.Record {
	topIndex := indexOf(taskPos)
	subIndex := indexOf(subtaskPos)

	var out []reconcile.Record
	for _, coll := range collections {
		for _, src := range coll {
			rec := make(reconcile.Record, len(src)+1)
			for k, v := range src {
				rec[k] = v
			}
			if rec["list_id"] == nil {
				rec["list_id"] = listID
			}

			id := utils.ToInt64(rec["id"])
			index := topIndex
			if isSubtask(rec) {
				index = subIndex
			}
			if pos, ok := index[id]; ok {
				rec["order"] = pos
			}
			out = append(out, rec)
		}
	}
	return out
}

// countTasks counts top-level tasks by completion.
func countTasks(snapshot []reconcile.Record) (completed, uncompleted int) {
	for _, rec := range snapshot {
		if isSubtask(rec) {
			continue
		}
		if utils.ToBool(rec["completed"]) || utils.ToString(rec["completed_at"]) != "" {
			completed++
		} else {
			uncompleted++
		}
	}
	return completed, uncompleted
}

func isSubtask(rec reconcile.Record) bool {
	if v, ok := rec["task_id"]; ok && v != nil {
		return true
	}
	v, ok := rec["task"]
	return ok && v != nil
}

func indexOf(ids []int64) map[int64]int {
	out := make(map[int64]int, len(ids))
	for i, id := range ids {
		if _, dup := out[id]; !dup {
			out[id] = i
		}
	}
	return out
}
