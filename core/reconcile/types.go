package reconcile

import (
	"context"
	"strconv"

	"task-mirror/core/utils"

	"gorm.io/gorm"
)

// Record is one remote entity as decoded from JSON.
type Record = map[string]any

// Entity is a stored row the reconciler can match against remote records.
type Entity interface {
	// EntityKey returns the identity used to match remote records.
	EntityKey() string

	// EntityID returns the primary key value as stored.
	EntityID() any

	// EntityRevision returns the stored revision.
	EntityRevision() int64
}

// Unit describes how one entity type is reconciled. Implementations usually
// embed Base and override what differs.
type Unit[M Entity] interface {
	// Name identifies the unit in logs and reports.
	Name() string

	// Schema returns the field mapping for this entity type.
	Schema() *Schema

	// IdentityOf returns the key of a remote record, matching EntityKey.
	IdentityOf(rec Record) string

	// RevisionOf returns the revision of a remote record.
	RevisionOf(rec Record) int64

	// LoadLocal returns the stored rows that the snapshot is authoritative
	// for. Rows returned here and absent from the snapshot are deleted.
	LoadLocal(ctx context.Context, db *gorm.DB, snapshot []Record) ([]M, error)

	// SyncChildren reconciles dependents of rows. For updated rows it runs
	// before the row is written, so rows carry the stored content; for
	// inserted rows it runs after the batch is committed.
	SyncChildren(ctx context.Context, rows []M) error
}

// Cascader is implemented by units whose rows own dependents that must be
// removed together with them. Cascade runs inside the delete transaction.
type Cascader interface {
	Cascade(tx *gorm.DB, ids []any) error
}

// Scoper is implemented by units that share a table with other unit
// instances. DeleteScope narrows deletes so that a row another instance has
// claimed meanwhile is left alone.
type Scoper interface {
	DeleteScope(tx *gorm.DB) *gorm.DB
}

// Base provides the common Unit behaviour: integer "id" identity, integer
// "revision", a full-table local load and no children.
type Base[M Entity] struct {
	UnitName   string
	UnitSchema *Schema
}

// Name returns the unit name.
func (b Base[M]) Name() string { return b.UnitName }

// Schema returns the unit schema.
func (b Base[M]) Schema() *Schema { return b.UnitSchema }

// IdentityOf returns the record id as a decimal string, or "" if missing.
func (b Base[M]) IdentityOf(rec Record) string {
	return IntKey(rec["id"])
}

// RevisionOf returns the record revision.
func (b Base[M]) RevisionOf(rec Record) int64 {
	return utils.ToInt64(rec["revision"])
}

// LoadLocal returns every stored row of M.
func (b Base[M]) LoadLocal(ctx context.Context, db *gorm.DB, _ []Record) ([]M, error) {
	var rows []M
	if err := db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// SyncChildren does nothing.
func (b Base[M]) SyncChildren(context.Context, []M) error { return nil }

// IntKey formats an integer identifier as a match key. Missing identifiers
// yield "".
func IntKey(v any) string {
	if v == nil {
		return ""
	}
	return strconv.FormatInt(utils.ToInt64(v), 10)
}

// Stats counts what one reconciliation did.
type Stats struct {
	Unchanged int `json:"unchanged" yaml:"unchanged"`
	Updated   int `json:"updated" yaml:"updated"`
	Inserted  int `json:"inserted" yaml:"inserted"`
	Deleted   int `json:"deleted" yaml:"deleted"`
}

// Changed reports whether any row was written.
func (s Stats) Changed() bool {
	return s.Updated+s.Inserted+s.Deleted > 0
}

// Add accumulates other into s.
func (s *Stats) Add(other Stats) {
	s.Unchanged += other.Unchanged
	s.Updated += other.Updated
	s.Inserted += other.Inserted
	s.Deleted += other.Deleted
}

// Result is the outcome of reconciling one snapshot.
type Result[M Entity] struct {
	// Stats holds the per-outcome counts.
	Stats Stats

	// Rows holds every row now current for the snapshot, in snapshot order.
	Rows []M

	// Applied holds the updated and inserted rows, in snapshot order.
	Applied []M
}
