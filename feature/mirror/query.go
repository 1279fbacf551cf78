package mirror

import (
	"context"
	"sort"
	"strings"
	"time"

	"task-mirror/feature/mirror/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Queries reads the mirror for display. It never writes.
type Queries struct {
	db *gorm.DB
}

// NewQueries creates a Queries over db.
func NewQueries(db *gorm.DB) *Queries {
	return &Queries{db: db}
}

// TaskView is a task with the title of its list.
type TaskView struct {
	models.Task
	ListTitle string `json:"list_title"`
	// Overdue is the number of missed recurrences.
	Overdue int `gorm:"-" json:"overdue,omitempty"`
}

var (
	colListOrder = clause.Column{Table: "lists", Name: "order"}
	colTaskOrder = clause.Column{Table: "tasks", Name: "order"}
	colDueDate   = clause.Column{Table: "tasks", Name: "due_date"}
)

func orderBy(cols ...clause.Column) clause.OrderBy {
	out := clause.OrderBy{}
	for _, col := range cols {
		out.Columns = append(out.Columns, clause.OrderByColumn{Column: col})
	}
	return out
}

// Lists returns all lists in display order.
func (q *Queries) Lists(ctx context.Context) ([]models.List, error) {
	var lists []models.List
	err := q.db.WithContext(ctx).
		Order(orderBy(clause.Column{Name: "order"}, clause.Column{Name: "id"})).
		Find(&lists).Error
	return lists, err
}

// TasksInList returns the top-level tasks of a list in display order,
// incomplete ones first.
func (q *Queries) TasksInList(ctx context.Context, listID int64, includeCompleted bool) ([]models.Task, error) {
	tx := q.db.WithContext(ctx).Where("list_id = ? AND task_id IS NULL", listID)
	if !includeCompleted {
		tx = tx.Where("completed_at IS NULL")
	}
	var tasks []models.Task
	err := tx.Order("completed_at IS NOT NULL").
		Order(orderBy(clause.Column{Name: "order"}, clause.Column{Name: "id"})).
		Find(&tasks).Error
	return tasks, err
}

// Subtasks returns the subtasks of a task in display order.
func (q *Queries) Subtasks(ctx context.Context, taskID int64) ([]models.Task, error) {
	var tasks []models.Task
	err := q.db.WithContext(ctx).Where("task_id = ?", taskID).
		Order(orderBy(clause.Column{Name: "order"}, clause.Column{Name: "id"})).
		Find(&tasks).Error
	return tasks, err
}

// Search returns incomplete tasks whose title contains any of the words,
// ordered by list order, then due date with undated tasks last. Words of
// one character are ignored; no usable word matches every task.
func (q *Queries) Search(ctx context.Context, query string) ([]TaskView, error) {
	tx := q.taskViews(ctx).Where("tasks.completed_at IS NULL")
	if cond := titleMatches(q.db, query); cond != nil {
		tx = tx.Where(cond)
	}

	var out []TaskView
	err := tx.Order(orderBy(colListOrder)).
		Order("tasks.due_date IS NULL").
		Order(orderBy(colDueDate, colTaskOrder)).
		Find(&out).Error
	return out, err
}

// Due returns incomplete tasks due on or before today, earliest first.
// With hoist set, tasks that missed more recurrences sort first.
func (q *Queries) Due(ctx context.Context, today time.Time, query string, hoist bool) ([]TaskView, error) {
	y, m, d := today.Date()
	tomorrow := time.Date(y, m, d, 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)

	tx := q.taskViews(ctx).Where("tasks.completed_at IS NULL AND tasks.due_date < ?", tomorrow)
	if cond := titleMatches(q.db, query); cond != nil {
		tx = tx.Where(cond)
	}

	var out []TaskView
	if err := tx.Order(orderBy(colDueDate, colListOrder, colTaskOrder)).Find(&out).Error; err != nil {
		return nil, err
	}

	for i := range out {
		out[i].Overdue = out[i].OverdueTimes(today)
	}
	if hoist {
		sort.SliceStable(out, func(i, j int) bool { return out[i].Overdue > out[j].Overdue })
	}
	return out, nil
}

// Upcoming returns incomplete tasks due after today and within days.
func (q *Queries) Upcoming(ctx context.Context, today time.Time, days int) ([]TaskView, error) {
	y, m, d := today.Date()
	tomorrow := time.Date(y, m, d, 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)

	var out []TaskView
	err := q.taskViews(ctx).
		Where("tasks.completed_at IS NULL AND tasks.due_date >= ? AND tasks.due_date < ?", tomorrow, tomorrow.AddDate(0, 0, days)).
		Order(orderBy(colDueDate, colTaskOrder)).
		Find(&out).Error
	return out, err
}

// Hashtags returns tags containing prefix, case-insensitively. An exact
// match hides the alternatives, so a completed tag yields only itself.
func (q *Queries) Hashtags(ctx context.Context, prefix string) ([]models.Hashtag, error) {
	prefix = strings.TrimPrefix(prefix, "#")

	var tags []models.Hashtag
	err := q.db.WithContext(ctx).
		Where("LOWER(id) LIKE ?", "%"+strings.ToLower(prefix)+"%").
		Order("id").
		Find(&tags).Error
	if err != nil {
		return nil, err
	}
	for _, tag := range tags {
		if strings.EqualFold(tag.ID, "#"+prefix) {
			return []models.Hashtag{tag}, nil
		}
	}
	return tags, nil
}

// Reminders returns the reminders of a task, earliest first.
func (q *Queries) Reminders(ctx context.Context, taskID int64) ([]models.Reminder, error) {
	var reminders []models.Reminder
	err := q.db.WithContext(ctx).Where("task_id = ?", taskID).Order("date").Find(&reminders).Error
	return reminders, err
}

func (q *Queries) taskViews(ctx context.Context) *gorm.DB {
	return q.db.WithContext(ctx).
		Model(&models.Task{}).
		Select("tasks.*, lists.title AS list_title").
		Joins("JOIN lists ON lists.id = tasks.list_id")
}

// titleMatches ORs a LIKE condition per word of query.
func titleMatches(db *gorm.DB, query string) *gorm.DB {
	var cond *gorm.DB
	for _, word := range strings.Fields(query) {
		if len([]rune(word)) < 2 {
			continue
		}
		like := "%" + word + "%"
		if cond == nil {
			cond = db.Where("tasks.title LIKE ?", like)
		} else {
			cond = cond.Or("tasks.title LIKE ?", like)
		}
	}
	return cond
}
