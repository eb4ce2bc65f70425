package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/marirs/velocty/firewall"
)

const banCols = `id, ip, reason, active, expires_at, created_at, updated_at`

// InsertBan persists a new ban and assigns its ID.
func (s *Store) InsertBan(ctx context.Context, b *firewall.Ban) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO fw_bans (ip, reason, active, expires_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		b.IP, b.Reason, b.Active, toNS(b.ExpiresAt),
		toNS(b.CreatedAt), toNS(b.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("velocty/sqlite: insert ban: %w", err)
	}
	b.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("velocty/sqlite: insert ban id: %w", err)
	}
	return nil
}

// DeactivateBans clears the active flag on every active ban for the IP.
func (s *Store) DeactivateBans(ctx context.Context, ip string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE fw_bans SET active = 0, updated_at = ? WHERE ip = ? AND active = 1`,
		toNS(now()), ip)
	if err != nil {
		return 0, fmt.Errorf("velocty/sqlite: deactivate bans: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("velocty/sqlite: deactivate bans count: %w", err)
	}
	return n, nil
}

// ActiveBan returns the active ban for the IP, or nil when none exists.
func (s *Store) ActiveBan(ctx context.Context, ip string) (*firewall.Ban, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+banCols+` FROM fw_bans WHERE ip = ? AND active = 1 ORDER BY id DESC LIMIT 1`, ip)

	b, err := scanBan(row)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		s.readFailed("active ban", err)
		return nil, nil
	}
	return b, nil
}

// ListBans returns bans ordered by creation time, newest first.
func (s *Store) ListBans(ctx context.Context, opts firewall.BanListOpts) ([]*firewall.Ban, error) {
	query := `SELECT ` + banCols + ` FROM fw_bans`
	var args []any
	if opts.ActiveOnly {
		query += ` WHERE active = 1`
	}
	query += ` ORDER BY created_at DESC, id DESC`
	query, args = applyLimit(query, args, opts.Limit, opts.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		s.readFailed("list bans", err)
		return []*firewall.Ban{}, nil
	}
	defer rows.Close()

	out := []*firewall.Ban{}
	for rows.Next() {
		b, err := scanBan(rows)
		if err != nil {
			s.readFailed("scan ban row", err)
			return []*firewall.Ban{}, nil
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		s.readFailed("iterate ban rows", err)
		return []*firewall.Ban{}, nil
	}
	return out, nil
}

// DeactivateExpiredBans clears the active flag on every active ban whose
// expiry has passed. Permanent bans carry a zero expiry and are skipped.
func (s *Store) DeactivateExpiredBans(ctx context.Context) (int64, error) {
	t := now()
	res, err := s.db.ExecContext(ctx,
		`UPDATE fw_bans SET active = 0, updated_at = ? WHERE active = 1 AND expires_at > 0 AND expires_at < ?`,
		toNS(t), toNS(t))
	if err != nil {
		return 0, fmt.Errorf("velocty/sqlite: deactivate expired bans: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("velocty/sqlite: deactivate expired bans count: %w", err)
	}
	return n, nil
}

// InsertEvent appends a security event and assigns its ID.
func (s *Store) InsertEvent(ctx context.Context, e *firewall.Event) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO fw_events (ip, type, detail, created_at)
		VALUES (?, ?, ?, ?)`,
		e.IP, e.Type, e.Detail, toNS(e.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("velocty/sqlite: insert event: %w", err)
	}
	e.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("velocty/sqlite: insert event id: %w", err)
	}
	return nil
}

// PruneEvents deletes all but the most recent keep events in one bounded
// statement.
func (s *Store) PruneEvents(ctx context.Context, keep int) (int64, error) {
	if keep < 0 {
		keep = 0
	}
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM fw_events WHERE id NOT IN (
			SELECT id FROM fw_events ORDER BY id DESC LIMIT ?
		)`, keep)
	if err != nil {
		return 0, fmt.Errorf("velocty/sqlite: prune events: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("velocty/sqlite: prune events count: %w", err)
	}
	return n, nil
}

// CountEventsSince returns the number of events for the IP since the
// given instant, inclusive. Empty eventType counts all types.
func (s *Store) CountEventsSince(ctx context.Context, ip, eventType string, since time.Time) (int64, error) {
	query := `SELECT COUNT(*) FROM fw_events WHERE ip = ? AND created_at >= ?`
	args := []any{ip, toNS(since)}
	if eventType != "" {
		query += ` AND type = ?`
		args = append(args, eventType)
	}

	var n int64
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		s.readFailed("count events since", err)
		return 0, nil
	}
	return n, nil
}

// CountEventsByType returns per-type event counts since the given
// instant, inclusive.
func (s *Store) CountEventsByType(ctx context.Context, since time.Time) (map[string]int64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT type, COUNT(*) FROM fw_events WHERE created_at >= ? GROUP BY type`,
		toNS(since))
	if err != nil {
		s.readFailed("count events by type", err)
		return map[string]int64{}, nil
	}
	defer rows.Close()

	out := map[string]int64{}
	for rows.Next() {
		var (
			typ string
			n   int64
		)
		if err := rows.Scan(&typ, &n); err != nil {
			s.readFailed("scan event count row", err)
			return map[string]int64{}, nil
		}
		out[typ] = n
	}
	if err := rows.Err(); err != nil {
		s.readFailed("iterate event count rows", err)
		return map[string]int64{}, nil
	}
	return out, nil
}

// TopEventIPs returns the IPs with the most events since the given
// instant, busiest first.
func (s *Store) TopEventIPs(ctx context.Context, since time.Time, limit int) ([]firewall.IPCount, error) {
	query := `SELECT ip, COUNT(*) AS n FROM fw_events WHERE created_at >= ? GROUP BY ip ORDER BY n DESC, ip ASC`
	args := []any{toNS(since)}
	query, args = applyLimit(query, args, limit, 0)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		s.readFailed("top event ips", err)
		return []firewall.IPCount{}, nil
	}
	defer rows.Close()

	out := []firewall.IPCount{}
	for rows.Next() {
		var c firewall.IPCount
		if err := rows.Scan(&c.IP, &c.Count); err != nil {
			s.readFailed("scan ip count row", err)
			return []firewall.IPCount{}, nil
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		s.readFailed("iterate ip count rows", err)
		return []firewall.IPCount{}, nil
	}
	return out, nil
}

// DeleteEventsBefore removes every event older than cutoff.
func (s *Store) DeleteEventsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM fw_events WHERE created_at < ?`, toNS(cutoff))
	if err != nil {
		return 0, fmt.Errorf("velocty/sqlite: delete events before: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("velocty/sqlite: delete events before count: %w", err)
	}
	return n, nil
}

func scanBan(row scanner) (*firewall.Ban, error) {
	var (
		b         firewall.Ban
		expiresNS int64
		createdNS int64
		updatedNS int64
	)
	err := row.Scan(&b.ID, &b.IP, &b.Reason, &b.Active, &expiresNS,
		&createdNS, &updatedNS)
	if err != nil {
		return nil, err
	}
	b.ExpiresAt = fromNS(expiresNS)
	b.CreatedAt = fromNS(createdNS)
	b.UpdatedAt = fromNS(updatedNS)
	return &b, nil
}
