package state

import (
	"fmt"
	"math"
	"sync"
	"time"

	"task-mirror/core/utils"
)

// State is the record of the last successful sync pass.
type State struct {
	LastSync     time.Time `yaml:"last_sync" json:"last_sync"`
	LastRunID    string    `yaml:"last_run_id,omitempty" json:"last_run_id,omitempty"`
	RootRevision int64     `yaml:"root_revision" json:"root_revision"`
	DurationMS   int64     `yaml:"duration_ms" json:"duration_ms"`
}

// Age returns how long ago the last sync finished. A mirror that never
// synced is infinitely old.
func (s State) Age(now time.Time) time.Duration {
	if s.LastSync.IsZero() {
		return time.Duration(math.MaxInt64)
	}
	return now.Sub(s.LastSync)
}

// File persists State as YAML.
type File struct {
	path string
	mu   sync.Mutex
}

// NewFile creates a state file handle for path.
func NewFile(path string) *File {
	return &File{path: path}
}

// Load reads the state. A missing file yields the zero State.
func (f *File) Load() (State, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var st State
	if _, err := utils.ReadYAML(f.path, &st); err != nil {
		return State{}, fmt.Errorf("sync state: %w", err)
	}
	return st, nil
}

// Save replaces the stored state.
func (f *File) Save(st State) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return utils.WriteYAML(f.path, st)
}

// Reset forgets the last sync, which makes the next staleness check fire.
func (f *File) Reset() error {
	return f.Save(State{})
}
