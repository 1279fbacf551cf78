package remote

import (
	"context"

	"task-mirror/core/reconcile"
)

// Source is the read side of the remote task service. Every call returns
// decoded JSON objects; fields are interpreted by the entity schemas.
type Source interface {
	// FetchRoot returns the account root record.
	FetchRoot(ctx context.Context) (reconcile.Record, error)
	// FetchUser returns the signed-in user.
	FetchUser(ctx context.Context) (reconcile.Record, error)
	// FetchLists returns every list of the account.
	FetchLists(ctx context.Context) ([]reconcile.Record, error)
	// FetchListPositions returns list ids in display order.
	FetchListPositions(ctx context.Context) ([]int64, error)
	// FetchTasks returns one of the four task collections of a list.
	FetchTasks(ctx context.Context, listID int64, completed, subtasks bool) ([]reconcile.Record, error)
	// FetchTaskPositions returns top-level task ids of a list in display order.
	FetchTaskPositions(ctx context.Context, listID int64) ([]int64, error)
	// FetchSubtaskPositions returns subtask ids of a list in display order.
	FetchSubtaskPositions(ctx context.Context, listID int64) ([]int64, error)
	// FetchReminders returns every reminder of the account.
	FetchReminders(ctx context.Context) ([]reconcile.Record, error)
	// FetchSettings returns account settings as key/value records.
	FetchSettings(ctx context.Context) ([]reconcile.Record, error)
}
