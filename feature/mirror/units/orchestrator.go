package units

import (
	"context"
	"fmt"
	"sync"
	"time"

	"task-mirror/core/reconcile"
	"task-mirror/core/remote"
	"task-mirror/feature/mirror/preferences"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultSmartLists are list types that sort before ordinary lists.
var DefaultSmartLists = []string{"inbox"}

// Options tunes an Orchestrator.
type Options struct {
	// Workers bounds concurrent remote fetches.
	Workers int
	// AlwaysSyncReminders polls reminders whenever the root changed, even
	// if the user record did not.
	AlwaysSyncReminders bool
	// SmartLists overrides DefaultSmartLists.
	SmartLists []string
}

// Orchestrator runs sync passes: it walks the entity graph from the root
// down, reconciling each level only when its parent changed.
type Orchestrator struct {
	source remote.Source
	rec    *reconcile.Reconciler
	pool   *reconcile.Pool
	prefs  *preferences.Store
	logger *zap.Logger
	opts   Options
}

// NewOrchestrator creates an Orchestrator. prefs may be nil, in which case
// remote settings are not mirrored.
func NewOrchestrator(source remote.Source, rec *reconcile.Reconciler, prefs *preferences.Store, logger *zap.Logger, opts Options) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(opts.SmartLists) == 0 {
		opts.SmartLists = DefaultSmartLists
	}
	return &Orchestrator{
		source: source,
		rec:    rec,
		pool:   reconcile.NewPool(opts.Workers),
		prefs:  prefs,
		logger: logger,
		opts:   opts,
	}
}

// run holds the state of one pass.
type run struct {
	*Orchestrator

	mu              sync.Mutex
	report          *Report
	remindersSynced bool
}

func (r *run) record(unit string, s reconcile.Stats) {
	r.mu.Lock()
	defer r.mu.Unlock()
	total := r.report.Stats[unit]
	total.Add(s)
	r.report.Stats[unit] = total
}

func (r *run) stats(unit string) reconcile.Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.report.Stats[unit]
}

func (r *run) syncedReminders() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.remindersSynced
}

// Run performs one sync pass. The caller holds the sync lock.
func (o *Orchestrator) Run(ctx context.Context) (*Report, error) {
	r := &run{
		Orchestrator: o,
		report: &Report{
			RunID:     uuid.NewString(),
			StartedAt: time.Now().UTC(),
			Stats:     make(map[string]reconcile.Stats),
		},
	}
	log := o.logger.With(zap.String("run_id", r.report.RunID))

	rootRec, err := reconcile.Fetch(ctx, o.pool, o.source.FetchRoot)
	if err != nil {
		return r.report, fmt.Errorf("failed to fetch root: %w", err)
	}

	res, err := reconcile.Reconcile(ctx, o.rec, &rootUnit{run: r}, []reconcile.Record{rootRec})
	if err != nil {
		return r.report, err
	}
	r.record(UnitRoot, res.Stats)
	if len(res.Rows) > 0 {
		r.report.RootRevision = res.Rows[0].Revision
	}
	r.report.Duration = time.Since(r.report.StartedAt)

	if !res.Stats.Changed() {
		log.Debug("Root unchanged", zap.Int64("revision", r.report.RootRevision))
		return r.report, nil
	}

	fields := []zap.Field{
		zap.Int64("revision", r.report.RootRevision),
		zap.Bool("initial", r.report.Initial),
		zap.Duration("duration", r.report.Duration),
	}
	for _, unit := range []string{UnitUser, UnitList, UnitTask, UnitReminder, UnitHashtag} {
		fields = append(fields, zap.Any(unit, r.report.Stats[unit]))
	}
	log.Info("Sync pass applied changes", fields...)

	return r.report, nil
}
