package firewall

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/marirs/velocty"
)

// PermanentDuration is the ban duration string that never expires.
const PermanentDuration = "permanent"

// Aggregator is the firewall service: admission checks, ban management
// and event logging with bounded retention.
type Aggregator struct {
	store  Store
	logger *slog.Logger

	// eventCap is the retention bound applied on every append.
	eventCap int
}

// AggregatorOption configures an Aggregator.
type AggregatorOption func(*Aggregator)

// WithLogger sets the logger for the aggregator.
func WithLogger(logger *slog.Logger) AggregatorOption {
	return func(a *Aggregator) { a.logger = logger }
}

// WithEventCap sets the event retention bound.
func WithEventCap(n int) AggregatorOption {
	return func(a *Aggregator) { a.eventCap = n }
}

// NewAggregator creates an Aggregator over the given store.
func NewAggregator(store Store, opts ...AggregatorOption) *Aggregator {
	a := &Aggregator{
		store:    store,
		logger:   slog.Default(),
		eventCap: 10000,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// IsBanned reports whether an active, unexpired ban exists for the IP.
func (a *Aggregator) IsBanned(ctx context.Context, ip string) bool {
	b, err := a.store.ActiveBan(ctx, ip)
	if err != nil || b == nil {
		return false
	}
	return !b.Expired(time.Now().UTC())
}

// Ban blocks an IP. Any existing active ban for the IP is deactivated
// first, so exactly one active ban per IP exists afterwards. Duration is
// a string like "30m", "1h", "7d" or "permanent".
func (a *Aggregator) Ban(ctx context.Context, ip, reason, duration string) (*Ban, error) {
	expires, err := ParseDuration(duration)
	if err != nil {
		return nil, err
	}

	if _, err := a.store.DeactivateBans(ctx, ip); err != nil {
		return nil, err
	}

	b := &Ban{
		Entity:    velocty.NewEntity(),
		IP:        ip,
		Reason:    reason,
		Active:    true,
		ExpiresAt: expires,
	}
	if err := a.store.InsertBan(ctx, b); err != nil {
		return nil, err
	}

	a.logger.Info("ip banned", "ip", ip, "reason", reason, "duration", duration)
	return b, nil
}

// Unban deactivates every active ban for the IP.
func (a *Aggregator) Unban(ctx context.Context, ip string) error {
	n, err := a.store.DeactivateBans(ctx, ip)
	if err != nil {
		return err
	}
	if n > 0 {
		a.logger.Info("ip unbanned", "ip", ip, "bans", n)
	}
	return nil
}

// LogEvent appends a security event and prunes the log to the retention
// cap. Prune failures are logged, not returned: losing old history must
// not fail the append.
func (a *Aggregator) LogEvent(ctx context.Context, ip, eventType, detail string) error {
	e := &Event{
		IP:        ip,
		Type:      eventType,
		Detail:    detail,
		CreatedAt: time.Now().UTC(),
	}
	if err := a.store.InsertEvent(ctx, e); err != nil {
		return err
	}

	if _, err := a.store.PruneEvents(ctx, a.eventCap); err != nil {
		a.logger.Warn("event prune failed", "error", err)
	}
	return nil
}

// CountForIPSince returns the number of events of the given type for the
// IP within the trailing window.
func (a *Aggregator) CountForIPSince(ctx context.Context, ip, eventType string, window time.Duration) (int64, error) {
	since := time.Now().UTC().Add(-window)
	return a.store.CountEventsSince(ctx, ip, eventType, since)
}

// CountsByType returns per-type event counts within the trailing window.
func (a *Aggregator) CountsByType(ctx context.Context, window time.Duration) (map[string]int64, error) {
	since := time.Now().UTC().Add(-window)
	return a.store.CountEventsByType(ctx, since)
}

// TopIPs returns the busiest IPs within the trailing window.
func (a *Aggregator) TopIPs(ctx context.Context, window time.Duration, limit int) ([]IPCount, error) {
	since := time.Now().UTC().Add(-window)
	return a.store.TopEventIPs(ctx, since, limit)
}

// ParseDuration resolves a ban duration string to an absolute expiry.
// "permanent" (and "") resolve to the zero time. Supports the day suffix
// ("7d") on top of time.ParseDuration units.
func ParseDuration(s string) (time.Time, error) {
	if s == "" || s == PermanentDuration {
		return time.Time{}, nil
	}

	var d time.Duration
	if strings.HasSuffix(s, "d") {
		days, err := strconv.Atoi(strings.TrimSuffix(s, "d"))
		if err != nil {
			return time.Time{}, fmt.Errorf("velocty/firewall: bad ban duration %q", s)
		}
		d = time.Duration(days) * 24 * time.Hour
	} else {
		var err error
		d, err = time.ParseDuration(s)
		if err != nil {
			return time.Time{}, fmt.Errorf("velocty/firewall: bad ban duration %q", s)
		}
	}
	if d <= 0 {
		return time.Time{}, fmt.Errorf("velocty/firewall: bad ban duration %q", s)
	}
	return time.Now().UTC().Add(d), nil
}
