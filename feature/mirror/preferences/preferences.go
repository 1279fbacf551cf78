package preferences

import (
	"fmt"
	"sync"
	"time"

	"task-mirror/core/reconcile"
	"task-mirror/core/utils"
)

// DefaultReminderTime is used for reminders set without an explicit time.
const DefaultReminderTime = "09:00"

// Preferences are the client-side settings plus the remote account settings
// mirrored during sync.
type Preferences struct {
	// ReminderTime is the default reminder time of day, "HH:MM".
	ReminderTime string `yaml:"reminder_time" json:"reminder_time"`
	// IconTheme selects the client icon set; empty means automatic.
	IconTheme string `yaml:"icon_theme,omitempty" json:"icon_theme,omitempty"`
	// ExplicitKeywords requires keywords like "due" before dates in phrases.
	ExplicitKeywords bool `yaml:"explicit_keywords" json:"explicit_keywords"`
	// DateLocale is the locale used to parse and format dates.
	DateLocale string `yaml:"date_locale,omitempty" json:"date_locale,omitempty"`
	// Remote holds the account settings fetched from the service.
	Remote map[string]string `yaml:"remote,omitempty" json:"remote,omitempty"`
}

// Defaults returns preferences for a fresh install.
func Defaults() *Preferences {
	return &Preferences{ReminderTime: DefaultReminderTime}
}

// ReminderClock parses ReminderTime, falling back to the default.
func (p *Preferences) ReminderClock() (hour, minute int) {
	t, err := time.Parse("15:04", p.ReminderTime)
	if err != nil {
		t, _ = time.Parse("15:04", DefaultReminderTime)
	}
	return t.Hour(), t.Minute()
}

// Store persists Preferences as YAML.
type Store struct {
	path string
	mu   sync.Mutex
}

// NewStore creates a store backed by path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the backing file.
func (s *Store) Path() string {
	return s.path
}

// Load reads the preferences, returning defaults when the file is absent.
func (s *Store) Load() (*Preferences, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// Save replaces the stored preferences.
func (s *Store) Save(p *Preferences) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return utils.WriteYAML(s.path, p)
}

// Update applies fn to the stored preferences and saves the result.
func (s *Store) Update(fn func(p *Preferences)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.load()
	if err != nil {
		return err
	}
	fn(p)
	return utils.WriteYAML(s.path, p)
}

// ApplyRemote replaces the mirrored account settings with records of the
// form {"key": ..., "value": ...}. Local keys are left alone.
func (s *Store) ApplyRemote(settings []reconcile.Record) error {
	remote := make(map[string]string, len(settings))
	for _, rec := range settings {
		key := utils.ToString(rec["key"])
		if key == "" {
			continue
		}
		remote[key] = utils.ToString(rec["value"])
	}

	return s.Update(func(p *Preferences) {
		p.Remote = remote
	})
}

func (s *Store) load() (*Preferences, error) {
	p := Defaults()
	if _, err := utils.ReadYAML(s.path, p); err != nil {
		return nil, fmt.Errorf("preferences: %w", err)
	}
	if p.ReminderTime == "" {
		p.ReminderTime = DefaultReminderTime
	}
	return p, nil
}
