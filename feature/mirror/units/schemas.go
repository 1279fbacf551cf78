package units

import "task-mirror/core/reconcile"

// Field mapping tables, one per mirrored entity.
var (
	RootSchema = reconcile.NewSchema("roots",
		reconcile.Field{Column: "id", Kind: reconcile.Int},
		reconcile.Field{Column: "user_id", Kind: reconcile.Int, Nullable: true},
		reconcile.Field{Column: "revision", Kind: reconcile.Int},
	)

	UserSchema = reconcile.NewSchema("users",
		reconcile.Field{Column: "id", Kind: reconcile.Int},
		reconcile.Field{Column: "name", Kind: reconcile.String},
		reconcile.Field{Column: "revision", Kind: reconcile.Int},
		reconcile.Field{Column: "created_at", Kind: reconcile.DateTime},
	)

	ListSchema = reconcile.NewSchema("lists",
		reconcile.Field{Column: "id", Kind: reconcile.Int},
		reconcile.Field{Column: "title", Kind: reconcile.String},
		reconcile.Field{Column: "list_type", Kind: reconcile.String, Default: "list"},
		reconcile.Field{Column: "public", Kind: reconcile.Bool},
		reconcile.Field{Column: "order", Kind: reconcile.Int},
		reconcile.Field{Column: "revision", Kind: reconcile.Int},
		reconcile.Field{Column: "created_at", Kind: reconcile.DateTime},
	)

	TaskSchema = reconcile.NewSchema("tasks",
		reconcile.Field{Column: "id", Kind: reconcile.Int},
		reconcile.Field{Column: "list_id", Kind: reconcile.Int, Nullable: true},
		reconcile.Field{Column: "task_id", Kind: reconcile.Int, Nullable: true},
		reconcile.Field{Column: "title", Kind: reconcile.String},
		reconcile.Field{Column: "completed_at", Kind: reconcile.DateTime, Nullable: true},
		reconcile.Field{Column: "completed_by_id", Kind: reconcile.Int, Nullable: true},
		reconcile.Field{Column: "starred", Kind: reconcile.Bool},
		reconcile.Field{Column: "due_date", Kind: reconcile.Date, Nullable: true},
		reconcile.Field{Column: "recurrence_type", Kind: reconcile.String, Nullable: true},
		reconcile.Field{Column: "recurrence_count", Kind: reconcile.Int, Nullable: true},
		reconcile.Field{Column: "assignee_id", Kind: reconcile.Int, Nullable: true},
		reconcile.Field{Column: "order", Kind: reconcile.Int},
		reconcile.Field{Column: "revision", Kind: reconcile.Int},
		reconcile.Field{Column: "created_at", Kind: reconcile.DateTime},
		reconcile.Field{Column: "created_by_id", Kind: reconcile.Int, Nullable: true},
	)

	ReminderSchema = reconcile.NewSchema("reminders",
		reconcile.Field{Column: "id", Kind: reconcile.Int},
		reconcile.Field{Column: "task_id", Kind: reconcile.Int, Nullable: true},
		reconcile.Field{Column: "date", Kind: reconcile.DateTime},
		reconcile.Field{Column: "revision", Kind: reconcile.Int},
		reconcile.Field{Column: "created_at", Kind: reconcile.DateTime},
	)

	HashtagSchema = reconcile.NewSchema("hashtags",
		reconcile.Field{Column: "id", Kind: reconcile.String},
		reconcile.Field{Column: "revision", Kind: reconcile.Int, Default: int64(0)},
	)
)
