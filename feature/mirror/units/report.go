package units

import (
	"time"

	"task-mirror/core/reconcile"
)

// Unit names used in reports and logs.
const (
	UnitRoot     = "root"
	UnitUser     = "user"
	UnitList     = "list"
	UnitTask     = "task"
	UnitReminder = "reminder"
	UnitHashtag  = "hashtag"
)

// Report summarizes one sync pass.
type Report struct {
	// RunID identifies the pass in logs and the state file.
	RunID string `json:"run_id"`
	// StartedAt is when the pass began.
	StartedAt time.Time `json:"started_at"`
	// Duration is how long the pass took.
	Duration time.Duration `json:"duration"`
	// Initial is true when the mirror was empty before the pass.
	Initial bool `json:"initial"`
	// RootRevision is the remote root revision the mirror now reflects.
	RootRevision int64 `json:"root_revision"`
	// PreferencesSynced reports whether remote settings were re-read.
	PreferencesSynced bool `json:"preferences_synced"`
	// Skipped is true when another pass held the lock and this one did nothing.
	Skipped bool `json:"skipped"`
	// Stats holds per-unit counts, accumulated over all instances of a unit.
	Stats map[string]reconcile.Stats `json:"stats"`
}

// Of returns the stats of unit.
func (r *Report) Of(unit string) reconcile.Stats {
	if r == nil || r.Stats == nil {
		return reconcile.Stats{}
	}
	return r.Stats[unit]
}

// Changed reports whether the pass wrote anything.
func (r *Report) Changed() bool {
	if r == nil {
		return false
	}
	for _, s := range r.Stats {
		if s.Changed() {
			return true
		}
	}
	return false
}
