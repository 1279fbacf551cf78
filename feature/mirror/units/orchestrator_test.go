package units

import (
	"context"
	"errors"
	"maps"
	"testing"

	"task-mirror/core/database"
	"task-mirror/core/reconcile"
	"task-mirror/core/remote/mocks"
	"task-mirror/feature/mirror/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var errRemote = errors.New("remote unavailable")

// seedAccount sets up one list (rev 5) with tasks 1 (rev 1) and 2 (rev 2).
func seedAccount(src *fakeSource) {
	src.lists = []reconcile.Record{listRec(10, 5, "Groceries", "list")}
	src.tasks[10] = []reconcile.Record{
		taskRec(1, 10, 1, "Milk"),
		taskRec(2, 10, 2, "Bread"),
	}
	src.taskPos[10] = []int64{2, 1}
}

func TestRun_InitialSync(t *testing.T) {
	h := newHarness(t, Options{})
	seedAccount(h.src)

	report := h.run(t)

	assert.True(t, report.Initial)
	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, int64(1), report.RootRevision)
	assert.Equal(t, reconcile.Stats{Inserted: 1}, report.Of(UnitList))
	assert.Equal(t, reconcile.Stats{Inserted: 2}, report.Of(UnitTask))
	assert.Equal(t, reconcile.Stats{Inserted: 1}, report.Of(UnitUser))
	assert.Zero(t, report.Of(UnitTask).Deleted)

	var list models.List
	require.NoError(t, h.db.First(&list, 10).Error)
	assert.Equal(t, int64(5), list.Revision)
	assert.Equal(t, 2, list.UncompletedCount)
	assert.Equal(t, 0, list.CompletedCount)

	tasks := h.tasks(t)
	require.Len(t, tasks, 2)
	assert.Equal(t, int64(1), tasks[1].Revision)
	assert.Equal(t, int64(2), tasks[2].Revision)
	assert.Equal(t, 1, tasks[1].Order, "ordinal from task positions")
	assert.Equal(t, 0, tasks[2].Order)

	var root models.Root
	require.NoError(t, h.db.First(&root).Error)
	require.NotNil(t, root.UserID)
	assert.Equal(t, int64(100), *root.UserID)

	// The user was new, so its dependents were synced.
	assert.Equal(t, 1, h.src.count("reminders"))
	assert.Equal(t, 1, h.src.count("settings"))
	assert.True(t, report.PreferencesSynced)
}

func TestRun_UpdatedTask(t *testing.T) {
	h := newHarness(t, Options{})
	h.src.lists = []reconcile.Record{listRec(10, 5, "Groceries", "list")}
	h.src.tasks[10] = []reconcile.Record{taskRec(7, 10, 3, "Old title")}
	h.run(t)

	h.src.bumpRoot()
	h.src.lists = []reconcile.Record{listRec(10, 6, "Groceries", "list")}
	h.src.tasks[10] = []reconcile.Record{taskRec(7, 10, 4, "New title")}

	report := h.run(t)

	assert.False(t, report.Initial)
	assert.Equal(t, reconcile.Stats{Updated: 1}, report.Of(UnitTask))
	assert.Equal(t, reconcile.Stats{Updated: 1}, report.Of(UnitList))
	task := h.tasks(t)[7]
	assert.Equal(t, int64(4), task.Revision)
	assert.Equal(t, "New title", task.Title)
}

func TestRun_DeletedTask(t *testing.T) {
	h := newHarness(t, Options{})
	seedAccount(h.src)
	h.run(t)

	h.src.bumpRoot()
	h.src.lists = []reconcile.Record{listRec(10, 6, "Groceries", "list")}
	h.src.tasks[10] = []reconcile.Record{taskRec(1, 10, 1, "Milk")}

	report := h.run(t)

	assert.Equal(t, reconcile.Stats{Unchanged: 1, Deleted: 1}, report.Of(UnitTask))
	tasks := h.tasks(t)
	assert.Len(t, tasks, 1)
	assert.Contains(t, tasks, int64(1))

	var list models.List
	require.NoError(t, h.db.First(&list, 10).Error)
	assert.Equal(t, 1, list.UncompletedCount)
}

func TestRun_RootUnchangedFetchesNothingElse(t *testing.T) {
	h := newHarness(t, Options{})
	seedAccount(h.src)
	h.run(t)
	before := h.src.total()

	report := h.run(t)

	assert.Equal(t, before+1, h.src.total(), "only the root is fetched")
	assert.Equal(t, 2, h.src.count("root"))
	assert.False(t, report.Changed())
	assert.Equal(t, reconcile.Stats{Unchanged: 1}, report.Of(UnitRoot))
}

func TestRun_RootUnchanged_Mock(t *testing.T) {
	db, err := database.Connect(database.Config{Driver: database.DriverSQLite, Name: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.All()...))
	require.NoError(t, db.Create(&models.Root{ID: 1, Revision: 12}).Error)

	src := new(mocks.Source)
	src.On("FetchRoot", mock.Anything).Return(reconcile.Record{"id": float64(1), "revision": float64(12)}, nil)

	orch := NewOrchestrator(src, reconcile.NewReconciler(db, zap.NewNop(), reconcile.Options{}), nil, zap.NewNop(), Options{})
	report, err := orch.Run(context.Background())
	require.NoError(t, err)

	assert.False(t, report.Initial)
	src.AssertExpectations(t)
	src.AssertNumberOfCalls(t, "FetchRoot", 1)
}

func TestRun_Hashtags(t *testing.T) {
	h := newHarness(t, Options{})
	h.src.lists = []reconcile.Record{listRec(10, 1, "Errands", "list")}
	h.src.tasks[10] = []reconcile.Record{
		taskRec(1, 10, 1, "Buy milk #errand #grocery"),
		taskRec(2, 10, 1, "Call #errand"),
	}

	report := h.run(t)
	assert.Equal(t, []string{"#errand", "#grocery"}, h.hashtags(t))
	assert.Equal(t, reconcile.Stats{Inserted: 2}, report.Of(UnitHashtag))

	// Dropping the last #grocery removes the tag.
	h.src.bumpRoot()
	h.src.lists = []reconcile.Record{listRec(10, 2, "Errands", "list")}
	h.src.tasks[10] = []reconcile.Record{
		taskRec(1, 10, 2, "Buy milk #errand"),
		taskRec(2, 10, 1, "Call #errand"),
	}
	report = h.run(t)
	assert.Equal(t, []string{"#errand"}, h.hashtags(t))
	assert.Equal(t, reconcile.Stats{Unchanged: 1, Deleted: 1}, report.Of(UnitHashtag))

	// No tags left at all.
	h.src.bumpRoot()
	h.src.lists = []reconcile.Record{listRec(10, 3, "Errands", "list")}
	h.src.tasks[10] = []reconcile.Record{taskRec(1, 10, 3, "Buy milk")}
	h.run(t)
	assert.Empty(t, h.hashtags(t))
}

func TestRun_ReminderGating(t *testing.T) {
	t.Run("User Unchanged Skips Reminders", func(t *testing.T) {
		h := newHarness(t, Options{})
		seedAccount(h.src)
		h.run(t)

		h.src.bumpRoot()
		h.src.lists = []reconcile.Record{listRec(10, 6, "Groceries", "list")}
		report := h.run(t)

		assert.Equal(t, reconcile.Stats{Unchanged: 1}, report.Of(UnitUser))
		assert.Equal(t, 1, h.src.count("reminders"))
		assert.Equal(t, 1, h.src.count("settings"))
		assert.False(t, report.PreferencesSynced)
	})

	t.Run("User Changed Syncs Reminders", func(t *testing.T) {
		h := newHarness(t, Options{})
		seedAccount(h.src)
		h.run(t)

		h.src.bumpRoot()
		h.src.user["revision"] = float64(2)
		h.src.reminders = []reconcile.Record{{
			"id": float64(50), "task_id": float64(1), "revision": float64(1),
			"date": "2024-02-01T08:00:00Z", "created_at": "2024-01-15T00:00:00Z",
		}}
		h.src.settings = []reconcile.Record{{"key": "week_start_day", "value": "1"}}
		report := h.run(t)

		assert.Equal(t, reconcile.Stats{Updated: 1}, report.Of(UnitUser))
		assert.Equal(t, reconcile.Stats{Inserted: 1}, report.Of(UnitReminder))
		assert.Equal(t, 2, h.src.count("reminders"))

		var reminder models.Reminder
		require.NoError(t, h.db.First(&reminder, 50).Error)
		require.NotNil(t, reminder.TaskID)
		assert.Equal(t, int64(1), *reminder.TaskID)
		assert.Equal(t, 8, reminder.Date.UTC().Hour())

		prefs, err := h.prefs.Load()
		require.NoError(t, err)
		assert.Equal(t, "1", prefs.Remote["week_start_day"])
	})

	t.Run("Always Sync Reminders", func(t *testing.T) {
		h := newHarness(t, Options{AlwaysSyncReminders: true})
		seedAccount(h.src)
		h.run(t)

		h.src.bumpRoot()
		h.run(t)
		assert.Equal(t, 2, h.src.count("reminders"))
		assert.Equal(t, 1, h.src.count("settings"), "preferences still follow the user")
	})
}

func TestRun_TaskMovedBetweenLists(t *testing.T) {
	h := newHarness(t, Options{})
	h.src.lists = []reconcile.Record{
		listRec(10, 1, "Home", "list"),
		listRec(20, 1, "Work", "list"),
	}
	h.src.tasks[10] = []reconcile.Record{taskRec(1, 10, 1, "Fix sink"), taskRec(2, 10, 1, "Laundry")}
	h.run(t)

	h.src.bumpRoot()
	h.src.lists = []reconcile.Record{
		listRec(10, 2, "Home", "list"),
		listRec(20, 2, "Work", "list"),
	}
	h.src.tasks[10] = []reconcile.Record{taskRec(2, 10, 1, "Laundry")}
	h.src.tasks[20] = []reconcile.Record{taskRec(1, 20, 2, "Fix sink")}
	h.run(t)

	tasks := h.tasks(t)
	require.Len(t, tasks, 2)
	require.NotNil(t, tasks[1].ListID)
	assert.Equal(t, int64(20), *tasks[1].ListID)
	assert.Equal(t, int64(2), tasks[1].Revision)
}

func TestRun_DeletedListCascades(t *testing.T) {
	h := newHarness(t, Options{})
	h.src.lists = []reconcile.Record{
		listRec(10, 1, "Keep", "list"),
		listRec(20, 1, "Drop", "list"),
	}
	h.src.tasks[10] = []reconcile.Record{taskRec(1, 10, 1, "stays")}
	parent := taskRec(2, 20, 1, "goes")
	sub := taskRec(3, 20, 1, "sub goes")
	sub["task_id"] = float64(2)
	h.src.tasks[20] = []reconcile.Record{parent, sub}
	h.run(t)
	require.Len(t, h.tasks(t), 3)

	h.src.bumpRoot()
	h.src.lists = []reconcile.Record{listRec(10, 1, "Keep", "list")}
	report := h.run(t)

	assert.Equal(t, reconcile.Stats{Unchanged: 1, Deleted: 1}, report.Of(UnitList))
	tasks := h.tasks(t)
	assert.Len(t, tasks, 1)
	assert.Contains(t, tasks, int64(1))
}

func TestRun_Subtasks(t *testing.T) {
	h := newHarness(t, Options{})
	h.src.lists = []reconcile.Record{listRec(10, 1, "Trip", "list")}
	parent := taskRec(1, 10, 1, "Pack")
	subA := reconcile.Record{"id": float64(11), "task_id": float64(1), "revision": float64(1), "title": "Socks", "completed": false}
	subB := reconcile.Record{"id": float64(12), "task_id": float64(1), "revision": float64(1), "title": "Shirts", "completed": true}
	h.src.tasks[10] = []reconcile.Record{parent, subA, subB}
	h.src.subtaskPos[10] = []int64{12, 11}

	h.run(t)

	tasks := h.tasks(t)
	require.Len(t, tasks, 3)
	assert.True(t, tasks[11].IsSubtask())
	require.NotNil(t, tasks[11].ListID, "subtasks without list_id belong to the fetched list")
	assert.Equal(t, int64(10), *tasks[11].ListID)
	assert.Equal(t, 1, tasks[11].Order)
	assert.Equal(t, 0, tasks[12].Order)

	var list models.List
	require.NoError(t, h.db.First(&list, 10).Error)
	assert.Equal(t, 1, list.UncompletedCount, "subtasks are not counted")
}

func TestRun_FetchErrorKeepsRootRevision(t *testing.T) {
	h := newHarness(t, Options{})
	seedAccount(h.src)
	h.run(t)

	h.src.bumpRoot()
	h.src.lists = []reconcile.Record{listRec(10, 6, "Groceries", "list")}
	h.src.failOn = "tasks"

	_, err := h.orch.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, errRemote)

	var root models.Root
	require.NoError(t, h.db.First(&root).Error)
	assert.Equal(t, int64(1), root.Revision, "root is not advanced past failed children")

	var list models.List
	require.NoError(t, h.db.First(&list, 10).Error)
	assert.Equal(t, int64(5), list.Revision)

	// The next pass retries and completes.
	h.src.failOn = ""
	report := h.run(t)
	assert.Equal(t, int64(2), report.RootRevision)
}

func TestRun_HashtagsSurviveLaterFailure(t *testing.T) {
	h := newHarness(t, Options{})
	seedAccount(h.src)
	h.run(t)
	require.Empty(t, h.hashtags(t))

	// Lists and tasks commit, then the reminders fetch fails.
	h.src.bumpRoot()
	h.src.lists = []reconcile.Record{listRec(10, 6, "Groceries", "list")}
	h.src.tasks[10] = []reconcile.Record{
		taskRec(1, 10, 2, "Milk #dairy"),
		taskRec(2, 10, 2, "Bread"),
	}
	h.src.user = maps.Clone(h.src.user)
	h.src.user["revision"] = float64(2)
	h.src.failOn = "reminders"

	_, err := h.orch.Run(context.Background())
	require.ErrorIs(t, err, errRemote)

	// The retry sees unchanged lists and tasks but still derives the tag.
	h.src.failOn = ""
	report := h.run(t)
	assert.False(t, report.Of(UnitTask).Changed())
	assert.Equal(t, []string{"#dairy"}, h.hashtags(t))
}

func TestRun_InitialFailureRetriesFromScratch(t *testing.T) {
	h := newHarness(t, Options{})
	seedAccount(h.src)
	h.src.failOn = "lists"

	_, err := h.orch.Run(context.Background())
	require.Error(t, err)

	var roots int64
	require.NoError(t, h.db.Model(&models.Root{}).Count(&roots).Error)
	assert.Zero(t, roots)

	h.src.failOn = ""
	report := h.run(t)
	assert.True(t, report.Initial)
	assert.Len(t, h.tasks(t), 2)
}
