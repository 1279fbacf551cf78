package config

import "time"

// SyncConfig holds the sync engine settings.
type SyncConfig struct {
	// DataDir holds the database, lock, state and preference files.
	// Empty means <user cache dir>/task-mirror.
	DataDir string `mapstructure:"data_dir" default:""`
	// LockFile is the sync lock path, relative to DataDir unless absolute.
	LockFile string `mapstructure:"lock_file" default:"sync.lock"`
	// StateFile records the last successful sync.
	StateFile string `mapstructure:"state_file" default:"state.yaml"`
	// PrefsFile holds local preferences and mirrored remote settings.
	PrefsFile string `mapstructure:"prefs_file" default:"prefs.yaml"`
	// LockPollMillis is how often a waiting caller retries the lock.
	LockPollMillis int `mapstructure:"lock_poll_millis" default:"100"`
	// Workers bounds concurrent remote fetches and concurrent sibling updates.
	Workers int `mapstructure:"workers" default:"4"`
	// BatchSize bounds rows per insert/delete transaction.
	BatchSize int `mapstructure:"batch_size" default:"500"`
	// MaxAgeSeconds is the staleness threshold of sync-if-stale.
	MaxAgeSeconds int `mapstructure:"max_age_seconds" default:"600"`
	// AlwaysSyncReminders polls reminders on every changed root, not only
	// when the user record changed.
	AlwaysSyncReminders bool `mapstructure:"always_sync_reminders" default:"false"`
}

// LockPoll returns the lock poll interval.
func (c SyncConfig) LockPoll() time.Duration {
	return time.Duration(c.LockPollMillis) * time.Millisecond
}

// MaxAge returns the staleness threshold.
func (c SyncConfig) MaxAge() time.Duration {
	return time.Duration(c.MaxAgeSeconds) * time.Second
}
