package models

import (
	"strconv"
	"time"
)

// Root is the account singleton. Its revision changes whenever anything
// below it changes remotely.
type Root struct {
	ID       int64  `gorm:"primaryKey;autoIncrement:false" json:"id"`
	UserID   *int64 `json:"user_id"`
	Revision int64  `json:"revision"`
}

// TableName maps Root to its table.
func (Root) TableName() string { return "roots" }

// EntityKey returns the reconcile identity of the Root.
func (r Root) EntityKey() string { return strconv.FormatInt(r.ID, 10) }

// EntityID returns the primary key value.
func (r Root) EntityID() any { return r.ID }

// EntityRevision returns the stored revision.
func (r Root) EntityRevision() int64 { return r.Revision }

// User is the signed-in account holder.
type User struct {
	ID        int64     `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Name      string    `json:"name"`
	Revision  int64     `json:"revision"`
	CreatedAt time.Time `gorm:"autoCreateTime:false" json:"created_at"`
}

// TableName maps User to its table.
func (User) TableName() string { return "users" }

// EntityKey returns the reconcile identity of the User.
func (u User) EntityKey() string { return strconv.FormatInt(u.ID, 10) }

// EntityID returns the primary key value.
func (u User) EntityID() any { return u.ID }

// EntityRevision returns the stored revision.
func (u User) EntityRevision() int64 { return u.Revision }

// List owns tasks. Order is the display position; smart lists come first.
type List struct {
	ID               int64     `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Title            string    `gorm:"index" json:"title"`
	ListType         string    `json:"list_type"`
	Public           bool      `json:"public"`
	CompletedCount   int       `gorm:"default:0" json:"completed_count"`
	UncompletedCount int       `gorm:"default:0" json:"uncompleted_count"`
	Order            int       `gorm:"index" json:"order"`
	Revision         int64     `json:"revision"`
	CreatedAt        time.Time `gorm:"autoCreateTime:false" json:"created_at"`
}

// TableName maps List to its table.
func (List) TableName() string { return "lists" }

// EntityKey returns the reconcile identity of the List.
func (l List) EntityKey() string { return strconv.FormatInt(l.ID, 10) }

// EntityID returns the primary key value.
func (l List) EntityID() any { return l.ID }

// EntityRevision returns the stored revision.
func (l List) EntityRevision() int64 { return l.Revision }

// Task is a to-do item. A task with a parent TaskID is a subtask; both kinds
// share this table.
type Task struct {
	ID              int64      `gorm:"primaryKey;autoIncrement:false" json:"id"`
	ListID          *int64     `gorm:"index" json:"list_id"`
	TaskID          *int64     `gorm:"index" json:"task_id"`
	Title           string     `gorm:"index" json:"title"`
	CompletedAt     *time.Time `json:"completed_at"`
	CompletedByID   *int64     `json:"completed_by_id"`
	Starred         bool       `gorm:"index" json:"starred"`
	DueDate         *time.Time `gorm:"index" json:"due_date"`
	RecurrenceType  *string    `json:"recurrence_type"`
	RecurrenceCount *int64     `json:"recurrence_count"`
	AssigneeID      *int64     `json:"assignee_id"`
	Order           int        `gorm:"index" json:"order"`
	Revision        int64      `json:"revision"`
	CreatedAt       time.Time  `gorm:"autoCreateTime:false" json:"created_at"`
	CreatedByID     *int64     `json:"created_by_id"`
}

// TableName maps Task to its table.
func (Task) TableName() string { return "tasks" }

// EntityKey returns the reconcile identity of the Task.
func (t Task) EntityKey() string { return strconv.FormatInt(t.ID, 10) }

// EntityID returns the primary key value.
func (t Task) EntityID() any { return t.ID }

// EntityRevision returns the stored revision.
func (t Task) EntityRevision() int64 { return t.Revision }

// Completed reports whether the task has a completion time.
func (t Task) Completed() bool {
	return t.CompletedAt != nil && !t.CompletedAt.IsZero()
}

// IsSubtask reports whether the task has a parent.
func (t Task) IsSubtask() bool {
	return t.TaskID != nil
}

var recurrenceDays = map[string]float64{
	"day":   1,
	"week":  7,
	"month": 30.43,
	"year":  365,
}

// OverdueTimes returns how many recurrence periods an incomplete recurring
// task is past its due date, as of today.
func (t Task) OverdueTimes(today time.Time) int {
	if t.RecurrenceType == nil || t.DueDate == nil || t.Completed() {
		return 0
	}
	period, ok := recurrenceDays[*t.RecurrenceType]
	if !ok {
		return 0
	}

	y, m, d := today.Date()
	due := t.DueDate.UTC()
	days := time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Sub(time.Date(due.Year(), due.Month(), due.Day(), 0, 0, 0, 0, time.UTC)).Hours() / 24
	if days <= 0 {
		return 0
	}
	return int(days / period)
}

// Reminder fires at Date (stored in UTC) for its task.
type Reminder struct {
	ID        int64     `gorm:"primaryKey;autoIncrement:false" json:"id"`
	TaskID    *int64    `gorm:"index" json:"task_id"`
	Date      time.Time `json:"date"`
	Revision  int64     `json:"revision"`
	CreatedAt time.Time `gorm:"autoCreateTime:false" json:"created_at"`
}

// TableName maps Reminder to its table.
func (Reminder) TableName() string { return "reminders" }

// EntityKey returns the reconcile identity of the Reminder.
func (r Reminder) EntityKey() string { return strconv.FormatInt(r.ID, 10) }

// EntityID returns the primary key value.
func (r Reminder) EntityID() any { return r.ID }

// EntityRevision returns the stored revision.
func (r Reminder) EntityRevision() int64 { return r.Revision }

// DateLocal returns the trigger time in the local time zone.
func (r Reminder) DateLocal() time.Time {
	return r.Date.Local()
}

// Hashtag is a distinct #token found in task titles. It has no remote
// counterpart; its revision is always 0.
type Hashtag struct {
	ID       string `gorm:"primaryKey" json:"id"`
	Revision int64  `json:"revision"`
}

// TableName maps Hashtag to its table.
func (Hashtag) TableName() string { return "hashtags" }

// EntityKey returns the reconcile identity of the Hashtag.
func (h Hashtag) EntityKey() string { return h.ID }

// EntityID returns the primary key value.
func (h Hashtag) EntityID() any { return h.ID }

// EntityRevision returns the stored revision.
func (h Hashtag) EntityRevision() int64 { return h.Revision }

// All returns every mirrored model, parents first.
func All() []any {
	return []any{&Root{}, &User{}, &List{}, &Task{}, &Reminder{}, &Hashtag{}}
}
