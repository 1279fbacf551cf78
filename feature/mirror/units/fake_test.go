package units

import (
	"context"
	"maps"
	"path/filepath"
	"sync"
	"testing"

	"task-mirror/core/database"
	"task-mirror/core/reconcile"
	"task-mirror/core/utils"
	"task-mirror/feature/mirror/models"
	"task-mirror/feature/mirror/preferences"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// fakeSource is an in-memory remote account that counts calls per endpoint.
type fakeSource struct {
	mu sync.Mutex

	root          reconcile.Record
	user          reconcile.Record
	lists         []reconcile.Record
	listPositions []int64
	tasks         map[int64][]reconcile.Record
	taskPos       map[int64][]int64
	subtaskPos    map[int64][]int64
	reminders     []reconcile.Record
	settings      []reconcile.Record

	failOn string
	calls  map[string]int
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		root:       reconcile.Record{"id": float64(1), "revision": float64(1), "user_id": float64(100)},
		user:       reconcile.Record{"id": float64(100), "name": "Ada", "revision": float64(1), "created_at": "2023-01-01T00:00:00Z"},
		tasks:      make(map[int64][]reconcile.Record),
		taskPos:    make(map[int64][]int64),
		subtaskPos: make(map[int64][]int64),
		calls:      make(map[string]int),
	}
}

func (f *fakeSource) hit(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[name]++
	if f.failOn == name {
		return errRemote
	}
	return nil
}

func (f *fakeSource) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeSource) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func (f *fakeSource) bumpRoot() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.root = maps.Clone(f.root)
	f.root["revision"] = float64(utils.ToInt64(f.root["revision"]) + 1)
}

func (f *fakeSource) FetchRoot(context.Context) (reconcile.Record, error) {
	if err := f.hit("root"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return maps.Clone(f.root), nil
}

func (f *fakeSource) FetchUser(context.Context) (reconcile.Record, error) {
	if err := f.hit("user"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return maps.Clone(f.user), nil
}

func (f *fakeSource) FetchLists(context.Context) ([]reconcile.Record, error) {
	if err := f.hit("lists"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return cloneAll(f.lists), nil
}

func (f *fakeSource) FetchListPositions(context.Context) ([]int64, error) {
	if err := f.hit("list_positions"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int64(nil), f.listPositions...), nil
}

func (f *fakeSource) FetchTasks(_ context.Context, listID int64, completed, subtasks bool) ([]reconcile.Record, error) {
	if err := f.hit("tasks"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []reconcile.Record
	for _, rec := range f.tasks[listID] {
		isSub := rec["task_id"] != nil
		if isSub == subtasks && utils.ToBool(rec["completed"]) == completed {
			out = append(out, maps.Clone(rec))
		}
	}
	return out, nil
}

func (f *fakeSource) FetchTaskPositions(_ context.Context, listID int64) ([]int64, error) {
	if err := f.hit("task_positions"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int64(nil), f.taskPos[listID]...), nil
}

func (f *fakeSource) FetchSubtaskPositions(_ context.Context, listID int64) ([]int64, error) {
	if err := f.hit("subtask_positions"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int64(nil), f.subtaskPos[listID]...), nil
}

func (f *fakeSource) FetchReminders(context.Context) ([]reconcile.Record, error) {
	if err := f.hit("reminders"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return cloneAll(f.reminders), nil
}

func (f *fakeSource) FetchSettings(context.Context) ([]reconcile.Record, error) {
	if err := f.hit("settings"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return cloneAll(f.settings), nil
}

func cloneAll(recs []reconcile.Record) []reconcile.Record {
	out := make([]reconcile.Record, len(recs))
	for i, rec := range recs {
		out[i] = maps.Clone(rec)
	}
	return out
}

func listRec(id, rev int64, title, listType string) reconcile.Record {
	return reconcile.Record{
		"id":         float64(id),
		"revision":   float64(rev),
		"title":      title,
		"list_type":  listType,
		"public":     false,
		"created_at": "2024-01-01T00:00:00Z",
	}
}

func taskRec(id, listID, rev int64, title string) reconcile.Record {
	return reconcile.Record{
		"id":         float64(id),
		"list_id":    float64(listID),
		"revision":   float64(rev),
		"title":      title,
		"completed":  false,
		"starred":    false,
		"created_at": "2024-01-02T00:00:00Z",
	}
}

type harness struct {
	db    *gorm.DB
	src   *fakeSource
	prefs *preferences.Store
	orch  *Orchestrator
}

func newHarness(t *testing.T, opts Options) *harness {
	t.Helper()
	db, err := database.Connect(database.Config{Driver: database.DriverSQLite, Name: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.All()...))

	src := newFakeSource()
	prefs := preferences.NewStore(filepath.Join(t.TempDir(), "prefs.yaml"))
	rec := reconcile.NewReconciler(db, zap.NewNop(), reconcile.Options{Workers: 2})
	return &harness{
		db:    db,
		src:   src,
		prefs: prefs,
		orch:  NewOrchestrator(src, rec, prefs, zap.NewNop(), opts),
	}
}

func (h *harness) run(t *testing.T) *Report {
	t.Helper()
	report, err := h.orch.Run(context.Background())
	require.NoError(t, err)
	return report
}

func (h *harness) tasks(t *testing.T) map[int64]models.Task {
	t.Helper()
	var rows []models.Task
	require.NoError(t, h.db.Find(&rows).Error)
	out := make(map[int64]models.Task, len(rows))
	for _, row := range rows {
		out[row.ID] = row
	}
	return out
}

func (h *harness) hashtags(t *testing.T) []string {
	t.Helper()
	var ids []string
	require.NoError(t, h.db.Model(&models.Hashtag{}).Order("id").Pluck("id", &ids).Error)
	return ids
}
