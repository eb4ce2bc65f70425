package maintenance

import (
	"context"
	"testing"
	"time"

	"github.com/marirs/velocty"
	"github.com/marirs/velocty/content"
	"github.com/marirs/velocty/firewall"
	"github.com/marirs/velocty/settings"
	"github.com/marirs/velocty/store/memory"
)

func newRunner(t *testing.T, opts ...RunnerOption) (*Runner, *memory.Store, *settings.Cache) {
	t.Helper()
	s := memory.New()
	cache := settings.NewCache(s)
	return NewRunner(s, cache, opts...), s, cache
}

func TestSweepPublishesDuePosts(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	r, s, _ := newRunner(t)

	due := &content.Post{
		Entity:    velocty.NewEntity(),
		Slug:      "due",
		Status:    content.StatusScheduled,
		PublishAt: time.Now().UTC().Add(-time.Minute),
	}
	early := &content.Post{
		Entity:    velocty.NewEntity(),
		Slug:      "early",
		Status:    content.StatusScheduled,
		PublishAt: time.Now().UTC().Add(time.Hour),
	}
	for _, p := range []*content.Post{due, early} {
		if err := s.CreatePost(ctx, p); err != nil {
			t.Fatalf("create %s: %v", p.Slug, err)
		}
	}

	r.sweep()

	got, _ := s.GetPost(ctx, due.ID)
	if got.Status != content.StatusPublished {
		t.Fatalf("due post status %s", got.Status)
	}
	got, _ = s.GetPost(ctx, early.ID)
	if got.Status != content.StatusScheduled {
		t.Fatalf("early post status %s", got.Status)
	}
}

func TestSweepExpiresBansAndBoundsEvents(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	r, s, cache := newRunner(t)

	if err := cache.Set(ctx, "fw_event_retention", "2"); err != nil {
		t.Fatalf("set retention: %v", err)
	}

	b := &firewall.Ban{
		Entity:    velocty.NewEntity(),
		IP:        "10.0.0.1",
		Active:    true,
		ExpiresAt: time.Now().UTC().Add(-time.Minute),
	}
	if err := s.InsertBan(ctx, b); err != nil {
		t.Fatalf("insert ban: %v", err)
	}
	for i := 0; i < 5; i++ {
		e := &firewall.Event{IP: "10.0.0.1", Type: firewall.EventProbe, CreatedAt: time.Now().UTC()}
		if err := s.InsertEvent(ctx, e); err != nil {
			t.Fatalf("insert event %d: %v", i, err)
		}
	}

	r.sweep()

	if active, _ := s.ActiveBan(ctx, "10.0.0.1"); active != nil {
		t.Fatalf("expired ban still active: %+v", active)
	}
	n, _ := s.CountEventsSince(ctx, "10.0.0.1", "", time.Time{})
	if n != 2 {
		t.Fatalf("events after prune = %d, want 2", n)
	}
}

func TestAuditCleanupUsesKeepDays(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	r, s, cache := newRunner(t)

	if err := cache.Set(ctx, "fw_audit_keep_days", "7"); err != nil {
		t.Fatalf("set keep days: %v", err)
	}

	now := time.Now().UTC()
	old := &firewall.Event{IP: "10.0.0.1", Type: firewall.EventProbe, CreatedAt: now.Add(-8 * 24 * time.Hour)}
	recent := &firewall.Event{IP: "10.0.0.1", Type: firewall.EventProbe, CreatedAt: now.Add(-time.Hour)}
	for _, e := range []*firewall.Event{old, recent} {
		if err := s.InsertEvent(ctx, e); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	r.auditCleanup(now)

	n, _ := s.CountEventsSince(ctx, "10.0.0.1", "", time.Time{})
	if n != 1 {
		t.Fatalf("events after cleanup = %d, want 1", n)
	}
}

func TestScheduleAuditFallsBackOnBadExpr(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	r, _, cache := newRunner(t)

	if err := cache.Set(ctx, "fw_audit_schedule", "not-a-schedule"); err != nil {
		t.Fatalf("set schedule: %v", err)
	}

	now := time.Now().UTC()
	next := r.scheduleAudit(now)
	if !next.After(now) {
		t.Fatalf("next audit %v not after %v", next, now)
	}
	// @daily fires within 24h.
	if next.Sub(now) > 24*time.Hour {
		t.Fatalf("fallback schedule too far out: %v", next)
	}
}

func TestParseSchedule(t *testing.T) {
	t.Parallel()
	for _, expr := range []string{"@daily", "@every 1h", "0 3 * * *"} {
		if _, err := ParseSchedule(expr); err != nil {
			t.Fatalf("parse %q: %v", expr, err)
		}
	}
	if _, err := ParseSchedule("bogus"); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestRunnerStartStop(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	r, s, _ := newRunner(t, WithTickInterval(5*time.Millisecond))

	due := &content.Post{
		Entity:    velocty.NewEntity(),
		Slug:      "due",
		Status:    content.StatusScheduled,
		PublishAt: time.Now().UTC().Add(-time.Minute),
	}
	if err := s.CreatePost(ctx, due); err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := r.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		got, _ := s.GetPost(ctx, due.ID)
		if got.Status == content.StatusPublished {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("post never published")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if err := r.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}
	// Shutdown paths often overlap; a repeated stop must not panic.
	if err := r.Stop(ctx); err != nil {
		t.Fatalf("second stop: %v", err)
	}
}
