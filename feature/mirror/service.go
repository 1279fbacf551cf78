package mirror

import (
	"context"
	"fmt"
	"time"

	"task-mirror/core/database"
	"task-mirror/core/lock"
	"task-mirror/core/reconcile"
	"task-mirror/core/remote"
	"task-mirror/feature/mirror/models"
	"task-mirror/feature/mirror/preferences"
	"task-mirror/feature/mirror/state"
	"task-mirror/feature/mirror/units"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
)

// Config holds the file locations and tuning of a Service.
type Config struct {
	LockFile            string
	StateFile           string
	PrefsFile           string
	LockPoll            time.Duration
	Workers             int
	BatchSize           int
	AlwaysSyncReminders bool
}

// Status describes the mirror for callers deciding whether to sync.
type Status struct {
	state.State
	// Running is true while some process holds the sync lock.
	Running bool `json:"running"`
	// OwnerPID is the PID holding the lock, or 0.
	OwnerPID int `json:"owner_pid,omitempty"`
	// AgeSeconds is the time since the last successful sync, or -1 if the
	// mirror never synced.
	AgeSeconds int64 `json:"age_seconds"`
}

// Service owns the mirror: the entity store, the sync lock, the state
// file and the preferences.
type Service struct {
	db       *gorm.DB
	orch     *units.Orchestrator
	lock     *lock.Lock
	state    *state.File
	prefs    *preferences.Store
	launcher Launcher
	logger   *zap.Logger
	queries  *Queries

	flight singleflight.Group
	now    func() time.Time
}

// NewService creates a Service and prepares the store: tables whose
// columns no longer match the models are dropped and all tables are
// recreated empty. launcher may be nil when SyncIfStale is not used.
func NewService(cfg Config, db *gorm.DB, source remote.Source, launcher Launcher, logger *zap.Logger) (*Service, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	rec := reconcile.NewReconciler(db, logger, reconcile.Options{
		BatchSize: cfg.BatchSize,
		Workers:   cfg.Workers,
	})
	prefs := preferences.NewStore(cfg.PrefsFile)

	s := &Service{
		db: db,
		orch: units.NewOrchestrator(source, rec, prefs, logger, units.Options{
			Workers:             cfg.Workers,
			AlwaysSyncReminders: cfg.AlwaysSyncReminders,
		}),
		lock:     lock.New(cfg.LockFile, cfg.LockPoll),
		state:    state.NewFile(cfg.StateFile),
		prefs:    prefs,
		launcher: launcher,
		logger:   logger,
		queries:  NewQueries(db),
		now:      time.Now,
	}

	if err := s.prepare(); err != nil {
		return nil, err
	}
	return s, nil
}

// Queries returns the read side of the mirror.
func (s *Service) Queries() *Queries { return s.queries }

// Preferences returns the preferences store.
func (s *Service) Preferences() *preferences.Store { return s.prefs }

// prepare wipes the mirror when the on-disk schema lost a column, then
// creates missing tables.
func (s *Service) prepare() error {
	missing, err := database.CheckSchema(s.db, models.All()...)
	if err != nil {
		return fmt.Errorf("failed to check schema: %w", err)
	}
	if len(missing) > 0 {
		s.logger.Warn("Mirror schema is outdated, rebuilding", zap.Strings("missing", missing))
		return s.reset()
	}
	if err := s.db.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("failed to migrate mirror: %w", err)
	}
	return nil
}

// reset drops and recreates every mirror table and forgets the last sync.
func (s *Service) reset() error {
	if err := s.db.Migrator().DropTable(models.All()...); err != nil {
		return fmt.Errorf("failed to drop mirror tables: %w", err)
	}
	if err := s.db.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("failed to migrate mirror: %w", err)
	}
	if err := s.state.Reset(); err != nil {
		return err
	}
	return nil
}

// Sync runs one pass. In the foreground it waits for a running pass to
// finish first; in the background it returns a skipped report instead.
// Concurrent background calls in this process share one pass.
func (s *Service) Sync(ctx context.Context, background bool) (*units.Report, error) {
	if !background {
		if err := s.lock.Acquire(ctx); err != nil {
			return nil, fmt.Errorf("failed to acquire sync lock: %w", err)
		}
		return s.locked(ctx)
	}

	v, err, _ := s.flight.Do("sync", func() (any, error) {
		ok, err := s.lock.TryAcquire()
		if err != nil {
			return nil, fmt.Errorf("failed to acquire sync lock: %w", err)
		}
		if !ok {
			pid, _ := s.lock.Owner()
			s.logger.Debug("Sync already running", zap.Int("owner_pid", pid))
			return &units.Report{Skipped: true}, nil
		}
		return s.locked(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.(*units.Report), nil
}

// locked runs a pass with the lock held and releases it afterwards.
func (s *Service) locked(ctx context.Context) (report *units.Report, err error) {
	defer func() {
		if relErr := s.lock.Release(); relErr != nil && err == nil {
			err = fmt.Errorf("failed to release sync lock: %w", relErr)
		}
	}()
	return s.pass(ctx)
}

func (s *Service) pass(ctx context.Context) (*units.Report, error) {
	report, err := s.orch.Run(ctx)
	if err != nil && database.IsSchemaError(err) {
		s.logger.Warn("Mirror schema error during sync, rebuilding", zap.Error(err))
		if resetErr := s.reset(); resetErr != nil {
			return report, resetErr
		}
		report, err = s.orch.Run(ctx)
	}
	if err != nil {
		s.logger.Error("Sync failed", zap.Error(err))
		return report, err
	}

	if report.Initial {
		s.logger.Info("Initial sync complete", zap.Int64("revision", report.RootRevision))
	}

	st := state.State{
		LastSync:     s.now().UTC(),
		LastRunID:    report.RunID,
		RootRevision: report.RootRevision,
		DurationMS:   report.Duration.Milliseconds(),
	}
	if err := s.state.Save(st); err != nil {
		return report, err
	}
	return report, nil
}

// SyncIfStale launches a background sync when the last successful one is
// older than maxAge, and reports whether it did.
func (s *Service) SyncIfStale(ctx context.Context, maxAge time.Duration) (bool, error) {
	st, err := s.state.Load()
	if err != nil {
		return false, err
	}
	if st.Age(s.now()) < maxAge {
		return false, nil
	}
	if s.launcher == nil {
		return false, fmt.Errorf("no launcher configured")
	}
	if err := s.launcher.Launch(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// Status reports the last sync and whether a pass is running.
func (s *Service) Status() (*Status, error) {
	st, err := s.state.Load()
	if err != nil {
		return nil, err
	}
	pid, err := s.lock.Owner()
	if err != nil {
		return nil, err
	}
	out := &Status{State: st, Running: pid != 0, OwnerPID: pid, AgeSeconds: -1}
	if !st.LastSync.IsZero() {
		out.AgeSeconds = int64(st.Age(s.now()).Seconds())
	}
	return out, nil
}
