package mirror

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"task-mirror/core/database"
	"task-mirror/core/reconcile"
	"task-mirror/core/remote/mocks"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// today is the fixed clock of these tests.
var today = time.Date(2024, 3, 10, 15, 0, 0, 0, time.UTC)

type countingLauncher struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (l *countingLauncher) Launch(context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
	return l.err
}

func (l *countingLauncher) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls
}

// newAccount returns a mock remote account with two lists.
//
//	list 10 "Home": task 1 overdue, task 2 completed, task 3 due in two days
//	list 20 "inbox": task 4 monthly and two months overdue, subtask 5 of task 4
func newAccount() *mocks.Source {
	src := new(mocks.Source)
	src.On("FetchRoot", mock.Anything).Return(reconcile.Record{
		"id": float64(1), "revision": float64(7), "user_id": float64(100),
	}, nil)
	src.On("FetchUser", mock.Anything).Return(reconcile.Record{
		"id": float64(100), "name": "Ada", "revision": float64(1), "created_at": "2023-01-01T00:00:00Z",
	}, nil)
	src.On("FetchLists", mock.Anything).Return([]reconcile.Record{
		{"id": float64(10), "title": "Home", "list_type": "list", "revision": float64(1)},
		{"id": float64(20), "title": "inbox", "list_type": "inbox", "revision": float64(1)},
	}, nil)
	src.On("FetchListPositions", mock.Anything).Return([]int64{10}, nil)

	src.On("FetchTasks", mock.Anything, int64(10), false, false).Return([]reconcile.Record{
		{"id": float64(1), "list_id": float64(10), "revision": float64(1), "title": "Buy milk #errand", "due_date": "2024-01-01"},
		{"id": float64(3), "list_id": float64(10), "revision": float64(1), "title": "Paint fence", "due_date": "2024-03-12"},
	}, nil)
	src.On("FetchTasks", mock.Anything, int64(10), true, false).Return([]reconcile.Record{
		{"id": float64(2), "list_id": float64(10), "revision": float64(1), "title": "Buy bread", "completed": true, "completed_at": "2024-03-01T10:00:00Z"},
	}, nil)
	src.On("FetchTasks", mock.Anything, int64(20), false, false).Return([]reconcile.Record{
		{"id": float64(4), "list_id": float64(20), "revision": float64(1), "title": "Pay rent", "due_date": "2024-01-05",
			"recurrence_type": "month", "recurrence_count": float64(1)},
	}, nil)
	src.On("FetchTasks", mock.Anything, int64(20), false, true).Return([]reconcile.Record{
		{"id": float64(5), "task_id": float64(4), "revision": float64(1), "title": "Find checkbook"},
	}, nil)
	src.On("FetchTasks", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return([]reconcile.Record{}, nil)

	src.On("FetchTaskPositions", mock.Anything, int64(10)).Return([]int64{3, 1}, nil)
	src.On("FetchTaskPositions", mock.Anything, mock.Anything).Return([]int64{}, nil)
	src.On("FetchSubtaskPositions", mock.Anything, mock.Anything).Return([]int64{}, nil)
	src.On("FetchReminders", mock.Anything).Return([]reconcile.Record{
		{"id": float64(50), "task_id": float64(1), "revision": float64(1), "date": "2024-03-09T08:00:00Z"},
		{"id": float64(51), "task_id": float64(1), "revision": float64(1), "date": "2024-03-08T08:00:00Z"},
	}, nil)
	src.On("FetchSettings", mock.Anything).Return([]reconcile.Record{
		{"key": "week_start_day", "value": "1"},
	}, nil)
	return src
}

func testConfig(dir string) Config {
	return Config{
		LockFile:  filepath.Join(dir, "sync.lock"),
		StateFile: filepath.Join(dir, "state.yaml"),
		PrefsFile: filepath.Join(dir, "prefs.yaml"),
		LockPoll:  10 * time.Millisecond,
		Workers:   2,
	}
}

func newDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Connect(database.Config{Driver: database.DriverSQLite, Name: ":memory:"})
	require.NoError(t, err)
	return db
}

func newService(t *testing.T, db *gorm.DB, src *mocks.Source, launcher Launcher) (*Service, Config) {
	t.Helper()
	cfg := testConfig(t.TempDir())
	svc, err := NewService(cfg, db, src, launcher, zap.NewNop())
	require.NoError(t, err)
	svc.now = func() time.Time { return today }
	return svc, cfg
}

// syncedService returns a service that completed one pass over newAccount.
func syncedService(t *testing.T) *Service {
	t.Helper()
	svc, _ := newService(t, newDB(t), newAccount(), nil)
	_, err := svc.Sync(context.Background(), false)
	require.NoError(t, err)
	return svc
}
