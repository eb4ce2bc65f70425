// Package maintenance runs the background sweeps a tenant needs to stay
// healthy: publishing scheduled posts, expiring bans, and bounding the
// firewall event history. One Runner per tenant store.
package maintenance

import (
	"context"
	"log/slog"
	"sync"
	"time"

	cronlib "github.com/robfig/cron/v3"

	"github.com/marirs/velocty/settings"
)

// Store is the slice of the tenant store the runner sweeps over.
type Store interface {
	PublishDuePosts(ctx context.Context) (int64, error)
	DeactivateExpiredBans(ctx context.Context) (int64, error)
	PruneEvents(ctx context.Context, keep int) (int64, error)
	DeleteEventsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Tunables read from the tenant settings cache each cycle, so operator
// changes take effect without a restart.
const (
	keySweepInterval  = "publish_sweep_interval"
	keyEventRetention = "fw_event_retention"
	keyAuditKeepDays  = "fw_audit_keep_days"
	keyAuditSchedule  = "fw_audit_schedule"

	defaultSweepInterval = time.Minute
	defaultRetention     = 10000
	defaultAuditKeepDays = 90
	defaultAuditSchedule = "@daily"
)

// cronParser supports standard 5-field cron and descriptors like "@daily".
var cronParser = cronlib.NewParser(
	cronlib.Minute | cronlib.Hour | cronlib.Dom | cronlib.Month | cronlib.Dow | cronlib.Descriptor,
)

// ParseSchedule parses a cron expression for the audit cleanup task.
func ParseSchedule(expr string) (cronlib.Schedule, error) {
	return cronParser.Parse(expr)
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithTickInterval sets the loop resolution. Sweeps fire on the first
// tick at or after their due time.
func WithTickInterval(d time.Duration) RunnerOption {
	return func(r *Runner) { r.tickInterval = d }
}

// WithLogger sets the logger for the runner.
func WithLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) { r.logger = logger }
}

// Runner drives the periodic sweeps on a tick loop. Task failures are
// logged and retried on the next due tick, never fatal.
type Runner struct {
	store  Store
	cache  *settings.Cache
	logger *slog.Logger

	tickInterval time.Duration

	lastSweep time.Time
	nextAudit time.Time

	stopOnce sync.Once
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// NewRunner creates a Runner over the tenant store and settings cache.
func NewRunner(store Store, cache *settings.Cache, opts ...RunnerOption) *Runner {
	r := &Runner{
		store:        store,
		cache:        cache,
		logger:       slog.Default(),
		tickInterval: 10 * time.Second,
		stopCh:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start launches the sweep goroutine.
func (r *Runner) Start(_ context.Context) error {
	r.wg.Add(1)
	go r.loop()
	r.logger.Info("maintenance runner started",
		slog.Duration("tick_interval", r.tickInterval),
	)
	return nil
}

// Stop signals the runner to stop and waits for the loop to finish.
// Safe to call more than once.
func (r *Runner) Stop(_ context.Context) error {
	r.stopOnce.Do(func() { close(r.stopCh) })
	r.wg.Wait()
	r.logger.Info("maintenance runner stopped")
	return nil
}

func (r *Runner) loop() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.tickInterval)
	defer ticker.Stop()

	// First cycle immediately at start.
	r.tick(time.Now().UTC())

	for {
		select {
		case <-r.stopCh:
			return
		case t := <-ticker.C:
			r.tick(t.UTC())
		}
	}
}

// tick fires whichever tasks are due at t.
func (r *Runner) tick(t time.Time) {
	interval := r.cache.GetDuration(keySweepInterval, defaultSweepInterval)
	if r.lastSweep.IsZero() || !t.Before(r.lastSweep.Add(interval)) {
		r.lastSweep = t
		r.sweep()
	}

	if r.nextAudit.IsZero() {
		r.nextAudit = r.scheduleAudit(t)
	}
	if !t.Before(r.nextAudit) {
		r.auditCleanup(t)
		r.nextAudit = r.scheduleAudit(t)
	}
}

// sweep runs the per-interval tasks: publish due posts, deactivate
// expired bans, bound the event history.
func (r *Runner) sweep() {
	ctx := context.Background()

	if n, err := r.store.PublishDuePosts(ctx); err != nil {
		r.logger.Error("publish sweep failed", "error", err)
	} else if n > 0 {
		r.logger.Info("published scheduled posts", "count", n)
	}

	if n, err := r.store.DeactivateExpiredBans(ctx); err != nil {
		r.logger.Error("ban expiry sweep failed", "error", err)
	} else if n > 0 {
		r.logger.Info("deactivated expired bans", "count", n)
	}

	keep := r.cache.GetInt(keyEventRetention, defaultRetention)
	if n, err := r.store.PruneEvents(ctx, keep); err != nil {
		r.logger.Error("event retention sweep failed", "error", err)
	} else if n > 0 {
		r.logger.Info("pruned firewall events", "count", n, "keep", keep)
	}
}

// auditCleanup removes events past the audit retention window.
func (r *Runner) auditCleanup(t time.Time) {
	ctx := context.Background()

	days := r.cache.GetInt(keyAuditKeepDays, defaultAuditKeepDays)
	cutoff := t.Add(-time.Duration(days) * 24 * time.Hour)

	if n, err := r.store.DeleteEventsBefore(ctx, cutoff); err != nil {
		r.logger.Error("audit cleanup failed", "error", err)
	} else if n > 0 {
		r.logger.Info("removed audited events", "count", n, "keep_days", days)
	}
}

// scheduleAudit computes the next audit fire time from the configured
// cron expression, falling back to the default on a parse failure.
func (r *Runner) scheduleAudit(t time.Time) time.Time {
	expr := r.cache.GetOr(keyAuditSchedule, defaultAuditSchedule)
	sched, err := cronParser.Parse(expr)
	if err != nil {
		r.logger.Warn("invalid audit schedule, using default", "expr", expr, "error", err)
		sched, _ = cronParser.Parse(defaultAuditSchedule)
	}
	return sched.Next(t)
}
