package memory

import (
	"context"
	"sort"
	"time"

	"github.com/marirs/velocty/firewall"
)

// InsertBan persists a new ban and assigns its ID.
func (m *Store) InsertBan(_ context.Context, b *firewall.Ban) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	b.ID = m.nextID("fw_bans")
	cp := *b
	m.bans[b.ID] = &cp
	return nil
}

// DeactivateBans clears the active flag on every active ban for the IP.
func (m *Store) DeactivateBans(_ context.Context, ip string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	var n int64
	for _, b := range m.bans {
		if b.IP == ip && b.Active {
			b.Active = false
			b.UpdatedAt = now
			n++
		}
	}
	return n, nil
}

// ActiveBan returns the active ban for the IP, or nil when none exists.
func (m *Store) ActiveBan(_ context.Context, ip string) (*firewall.Ban, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	// Newest wins if history ever holds several.
	var found *firewall.Ban
	for _, b := range m.bans {
		if b.IP == ip && b.Active {
			if found == nil || b.ID > found.ID {
				found = b
			}
		}
	}
	if found == nil {
		return nil, nil
	}
	cp := *found
	return &cp, nil
}

// ListBans returns bans ordered by creation time, newest first.
func (m *Store) ListBans(_ context.Context, opts firewall.BanListOpts) ([]*firewall.Ban, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	all := make([]*firewall.Ban, 0, len(m.bans))
	for _, b := range m.bans {
		if opts.ActiveOnly && !b.Active {
			continue
		}
		cp := *b
		all = append(all, &cp)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })

	return paginate(all, opts.Limit, opts.Offset), nil
}

// DeactivateExpiredBans clears the active flag on bans past their expiry.
func (m *Store) DeactivateExpiredBans(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	var n int64
	for _, b := range m.bans {
		if b.Active && b.Expired(now) {
			b.Active = false
			b.UpdatedAt = now
			n++
		}
	}
	return n, nil
}

// InsertEvent appends a security event and assigns its ID.
func (m *Store) InsertEvent(_ context.Context, e *firewall.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e.ID = m.nextID("fw_events")
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	cp := *e
	m.events[e.ID] = &cp
	return nil
}

// PruneEvents deletes all but the most recent keep events.
func (m *Store) PruneEvents(_ context.Context, keep int) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if keep < 0 {
		keep = 0
	}
	excess := len(m.events) - keep
	if excess <= 0 {
		return 0, nil
	}

	ids := make([]int64, 0, len(m.events))
	for id := range m.events {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids[:excess] {
		delete(m.events, id)
	}
	return int64(excess), nil
}

// CountEventsSince returns events for the IP since the given instant,
// lower bound inclusive.
func (m *Store) CountEventsSince(_ context.Context, ip, eventType string, since time.Time) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var n int64
	for _, e := range m.events {
		if e.IP != ip || e.CreatedAt.Before(since) {
			continue
		}
		if eventType != "" && e.Type != eventType {
			continue
		}
		n++
	}
	return n, nil
}

// CountEventsByType returns per-type event counts since the given instant.
func (m *Store) CountEventsByType(_ context.Context, since time.Time) (map[string]int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]int64)
	for _, e := range m.events {
		if !e.CreatedAt.Before(since) {
			out[e.Type]++
		}
	}
	return out, nil
}

// TopEventIPs returns the IPs with the most events since the given
// instant, busiest first.
func (m *Store) TopEventIPs(_ context.Context, since time.Time, limit int) ([]firewall.IPCount, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	counts := make(map[string]int64)
	for _, e := range m.events {
		if !e.CreatedAt.Before(since) {
			counts[e.IP]++
		}
	}

	out := make([]firewall.IPCount, 0, len(counts))
	for ip, n := range counts {
		out = append(out, firewall.IPCount{IP: ip, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count == out[j].Count {
			return out[i].IP < out[j].IP
		}
		return out[i].Count > out[j].Count
	})

	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

// DeleteEventsBefore removes every event older than cutoff.
func (m *Store) DeleteEventsBefore(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for id, e := range m.events {
		if e.CreatedAt.Before(cutoff) {
			delete(m.events, id)
			n++
		}
	}
	return n, nil
}
