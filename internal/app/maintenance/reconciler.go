package maintenance

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/kmarchetti/conndock/internal/connections"
	"github.com/kmarchetti/conndock/pkg/logger"
)

const defaultReconcileSpec = "@hourly"

// Reconciler schedules background orphan reconciliation sweeps over the
// connection store.
type Reconciler struct {
	store *connections.Store
	cron  *cron.Cron
	now   func() time.Time
	log   *zap.Logger

	schedule string
}

// Option customises the Reconciler.
type Option func(*Reconciler)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(r *Reconciler) {
		if c != nil {
			r.cron = c
		}
	}
}

// WithNow overrides the clock used for scheduling.
func WithNow(now func() time.Time) Option {
	return func(r *Reconciler) {
		if now != nil {
			r.now = now
		}
	}
}

// WithSchedule overrides the cron specification for reconciliation sweeps.
func WithSchedule(spec string) Option {
	return func(r *Reconciler) {
		if spec != "" {
			r.schedule = spec
		}
	}
}

// NewReconciler constructs a Reconciler with sensible defaults. A nil store
// results in the job being skipped entirely.
func NewReconciler(store *connections.Store, opts ...Option) *Reconciler {
	reconciler := &Reconciler{
		store:    store,
		now:      time.Now,
		schedule: defaultReconcileSpec,
		log:      logger.WithModule("maintenance"),
	}

	for _, opt := range opts {
		opt(reconciler)
	}

	if reconciler.cron == nil {
		reconciler.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}

	return reconciler
}

// Start registers the reconciliation job with the cron scheduler and launches it.
func (r *Reconciler) Start() error {
	if r.store == nil {
		return nil
	}

	if _, err := r.cron.AddFunc(r.schedule, func() {
		ctx := context.Background()
		if err := r.RunOnce(ctx); err != nil {
			r.log.Warn("scheduled reconciliation failed", zap.Error(err))
		}
	}); err != nil {
		return err
	}

	r.cron.Start()
	return nil
}

// Stop halts the underlying scheduler, waiting for any running job to complete.
func (r *Reconciler) Stop() context.Context {
	if r.cron == nil {
		return context.Background()
	}
	return r.cron.Stop()
}

// RunOnce executes a single reconciliation sweep across all zones.
func (r *Reconciler) RunOnce(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if r.store == nil {
		return nil
	}

	started := r.now()
	reports, err := r.store.CleanupOrphanedItems(ctx)

	removed := 0
	for _, report := range reports {
		removed += report.Removed
	}
	r.log.Info("reconciliation sweep finished",
		zap.Int("removed", removed),
		zap.Duration("elapsed", r.now().Sub(started)),
	)

	var errs error
	if err != nil {
		errs = multierr.Append(errs, err)
	}
	return errs
}
