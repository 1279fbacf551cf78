package reconcile

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// DefaultBatchSize bounds the rows written per insert or delete transaction.
const DefaultBatchSize = 500

// DefaultWorkers bounds how many changed siblings are processed at once.
const DefaultWorkers = 4

// Options tunes a Reconciler.
type Options struct {
	// BatchSize is the number of rows per insert/delete transaction.
	BatchSize int

	// Workers is the number of changed rows processed concurrently.
	Workers int
}

// Reconciler applies remote snapshots to the local store.
type Reconciler struct {
	db     *gorm.DB
	logger *zap.Logger
	opts   Options
}

// NewReconciler creates a Reconciler. Zero options fall back to the defaults.
func NewReconciler(db *gorm.DB, logger *zap.Logger, opts Options) *Reconciler {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{db: db, logger: logger, opts: opts}
}

// DB returns the store handle.
func (r *Reconciler) DB() *gorm.DB {
	return r.db
}

// Logger returns the reconciler's logger.
func (r *Reconciler) Logger() *zap.Logger {
	return r.logger
}

// Options returns the effective options.
func (r *Reconciler) Options() Options {
	return r.opts
}

// UpdateColumns writes values to the row of model identified by id inside a
// single-row transaction. It is used for derived columns outside a schema.
func (r *Reconciler) UpdateColumns(ctx context.Context, model any, id any, values map[string]any) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Model(model).Where("id = ?", id).Updates(values).Error
	})
}

// Reconcile brings the stored rows of unit in line with snapshot.
//
// Unchanged rows (same revision) are not written. Changed rows have their
// children synced first and are then updated one transaction per row.
// Rows absent from the snapshot are deleted and new records are inserted in
// batches, each batch followed by the child sync of its rows.
func Reconcile[M Entity](ctx context.Context, r *Reconciler, unit Unit[M], snapshot []Record) (*Result[M], error) {
	schema := unit.Schema()

	local, err := unit.LoadLocal(ctx, r.db, snapshot)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to load local rows: %w", unit.Name(), err)
	}
	index := make(map[string]M, len(local))
	for _, row := range local {
		index[row.EntityKey()] = row
	}

	// Partition remote records.
	var (
		order   = make([]string, 0, len(snapshot))
		seen    = make(map[string]struct{}, len(snapshot))
		current = make(map[string]M, len(snapshot))
		changed []keyed
		fresh   []keyed
		stats   Stats
	)
	for _, rec := range snapshot {
		key := unit.IdentityOf(rec)
		if key == "" {
			return nil, fmt.Errorf("%s: remote record without identity", unit.Name())
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		order = append(order, key)

		row, ok := index[key]
		switch {
		case !ok:
			fresh = append(fresh, keyed{key: key, rec: rec})
		case row.EntityRevision() == unit.RevisionOf(rec):
			current[key] = row
			stats.Unchanged++
		default:
			changed = append(changed, keyed{key: key, rec: rec})
		}
	}

	var stale []M
	for key, row := range index {
		if _, ok := seen[key]; !ok {
			stale = append(stale, row)
		}
	}
	sort.Slice(stale, func(i, j int) bool { return stale[i].EntityKey() < stale[j].EntityKey() })

	applied := make(map[string]struct{}, len(changed)+len(fresh))

	// Updates.
	updated, err := applyUpdates(ctx, r, unit, schema, index, changed)
	for key, row := range updated {
		current[key] = row
		applied[key] = struct{}{}
	}
	stats.Updated = len(updated)
	if err != nil {
		return nil, err
	}

	// Deletes.
	deleted, err := applyDeletes(ctx, r, unit, stale)
	stats.Deleted = deleted
	if err != nil {
		return nil, err
	}

	// Inserts.
	inserted, err := applyInserts(ctx, r, unit, schema, fresh)
	for key, row := range inserted {
		current[key] = row
		applied[key] = struct{}{}
	}
	stats.Inserted = len(inserted)
	if err != nil {
		return nil, err
	}

	result := &Result[M]{Stats: stats, Rows: make([]M, 0, len(order))}
	for _, key := range order {
		row, ok := current[key]
		if !ok {
			continue
		}
		result.Rows = append(result.Rows, row)
		if _, ok := applied[key]; ok {
			result.Applied = append(result.Applied, row)
		}
	}

	r.logger.Debug("Reconciled",
		zap.String("unit", unit.Name()),
		zap.Int("unchanged", stats.Unchanged),
		zap.Int("updated", stats.Updated),
		zap.Int("inserted", stats.Inserted),
		zap.Int("deleted", stats.Deleted),
	)

	return result, nil
}

type keyed struct {
	key string
	rec Record
}

// applyUpdates processes changed records concurrently. Each record syncs its
// children and is then written in its own transaction. A row that vanished
// meanwhile (deleted by a sibling unit) is inserted instead.
func applyUpdates[M Entity](ctx context.Context, r *Reconciler, unit Unit[M], schema *Schema, index map[string]M, changed []keyed) (map[string]M, error) {
	var (
		mu   sync.Mutex
		done = make(map[string]M, len(changed))
	)
	if len(changed) == 0 {
		return done, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Workers)

	for _, kr := range changed {
		g.Go(func() error {
			values, err := schema.Map(kr.rec)
			if err != nil {
				return fmt.Errorf("%s %s: %w", unit.Name(), kr.key, err)
			}

			old := index[kr.key]
			if err := unit.SyncChildren(gctx, []M{old}); err != nil {
				return fmt.Errorf("%s %s: child sync failed: %w", unit.Name(), kr.key, err)
			}

			var row M
			err = r.db.WithContext(gctx).Transaction(func(tx *gorm.DB) error {
				id := old.EntityID()
				fields := withoutID(values)

				res := tx.Model(new(M)).Where("id = ?", id).Updates(fields)
				if res.Error != nil {
					return res.Error
				}
				if res.RowsAffected == 0 {
					if err := tx.Model(new(M)).Create(values).Error; err != nil {
						return err
					}
				}
				return tx.Where("id = ?", id).Take(&row).Error
			})
			if err != nil {
				return fmt.Errorf("%s %s: failed to update: %w", unit.Name(), kr.key, err)
			}

			mu.Lock()
			done[kr.key] = row
			mu.Unlock()
			return nil
		})
	}

	err := g.Wait()
	return done, err
}

// applyDeletes removes stale rows in batches, cascading to dependents when
// the unit owns any.
func applyDeletes[M Entity](ctx context.Context, r *Reconciler, unit Unit[M], stale []M) (int, error) {
	cascader, _ := any(unit).(Cascader)
	scoper, _ := any(unit).(Scoper)

	deleted := 0
	for start := 0; start < len(stale); start += r.opts.BatchSize {
		end := min(start+r.opts.BatchSize, len(stale))
		ids := make([]any, 0, end-start)
		for _, row := range stale[start:end] {
			ids = append(ids, row.EntityID())
		}

		var affected int64
		err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			q := tx
			if scoper != nil {
				q = scoper.DeleteScope(q)
			}
			res := q.Where("id IN ?", ids).Delete(new(M))
			if res.Error != nil {
				return res.Error
			}
			affected = res.RowsAffected
			if cascader != nil {
				return cascader.Cascade(tx, ids)
			}
			return nil
		})
		if err != nil {
			return deleted, fmt.Errorf("%s: failed to delete %d rows: %w", unit.Name(), len(ids), err)
		}
		deleted += int(affected)
	}

	return deleted, nil
}

// applyInserts writes new records in batches. After each batch commits, its
// rows are re-read and their children synced. When that child sync fails the
// batch is removed again so the rows are retried on the next pass.
func applyInserts[M Entity](ctx context.Context, r *Reconciler, unit Unit[M], schema *Schema, fresh []keyed) (map[string]M, error) {
	done := make(map[string]M, len(fresh))
	cascader, _ := any(unit).(Cascader)

	for start := 0; start < len(fresh); start += r.opts.BatchSize {
		end := min(start+r.opts.BatchSize, len(fresh))
		batch := fresh[start:end]

		values := make([]map[string]any, 0, len(batch))
		ids := make([]any, 0, len(batch))
		for _, kr := range batch {
			mapped, err := schema.Map(kr.rec)
			if err != nil {
				return done, fmt.Errorf("%s %s: %w", unit.Name(), kr.key, err)
			}
			values = append(values, mapped)
			ids = append(ids, mapped["id"])
		}
		values = BalanceKeys(values)

		var rows []M
		err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.Model(new(M)).Create(values).Error; err != nil {
				return err
			}
			return tx.Where("id IN ?", ids).Find(&rows).Error
		})
		if err != nil {
			return done, fmt.Errorf("%s: failed to insert batch of %d: %w", unit.Name(), len(batch), err)
		}

		if err := unit.SyncChildren(ctx, rows); err != nil {
			undo := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
				if err := tx.Where("id IN ?", ids).Delete(new(M)).Error; err != nil {
					return err
				}
				if cascader != nil {
					return cascader.Cascade(tx, ids)
				}
				return nil
			})
			if undo != nil {
				r.logger.Error("Failed to roll back inserted batch",
					zap.String("unit", unit.Name()),
					zap.Error(undo),
				)
			}
			return done, fmt.Errorf("%s: child sync failed: %w", unit.Name(), err)
		}

		for _, row := range rows {
			done[row.EntityKey()] = row
		}
	}

	return done, nil
}

// BalanceKeys makes every row carry the union of keys present in rows,
// filling missing ones with nil, so one multi-row INSERT fits them all.
func BalanceKeys(rows []map[string]any) []map[string]any {
	union := make(map[string]struct{})
	for _, row := range rows {
		for k := range row {
			union[k] = struct{}{}
		}
	}
	for _, row := range rows {
		for k := range union {
			if _, ok := row[k]; !ok {
				row[k] = nil
			}
		}
	}
	return rows
}

func withoutID(values map[string]any) map[string]any {
	out := make(map[string]any, len(values))
	for k, v := range values {
		if k != "id" {
			out[k] = v
		}
	}
	return out
}
