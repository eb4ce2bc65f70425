package postgres

import (
	"context"
	"fmt"

	"github.com/marirs/velocty/settings"
)

// GetSetting retrieves a setting by exact key match.
func (s *Store) GetSetting(ctx context.Context, key string) (*settings.Setting, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT key, value, created_at, updated_at FROM settings WHERE key = $1`, key)

	var (
		st        settings.Setting
		createdNS int64
		updatedNS int64
	)
	if err := row.Scan(&st.Key, &st.Value, &createdNS, &updatedNS); err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		s.readFailed("get setting", err)
		return nil, nil
	}
	st.CreatedAt = fromNS(createdNS)
	st.UpdatedAt = fromNS(updatedNS)
	return &st, nil
}

// SetSetting upserts a setting. Last write wins.
func (s *Store) SetSetting(ctx context.Context, key, value string) error {
	t := toNS(now())
	_, err := s.pool.Exec(ctx, `
		INSERT INTO settings (key, value, created_at, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`,
		key, value, t, t,
	)
	if err != nil {
		return fmt.Errorf("velocty/postgres: set setting: %w", err)
	}
	return nil
}

// AllSettings returns every setting ordered by key. Errors propagate so
// the settings cache can keep its previous snapshot on a failed refresh.
func (s *Store) AllSettings(ctx context.Context) ([]*settings.Setting, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT key, value, created_at, updated_at FROM settings ORDER BY key ASC`)
	if err != nil {
		return nil, fmt.Errorf("velocty/postgres: all settings: %w", err)
	}
	defer rows.Close()

	out := []*settings.Setting{}
	for rows.Next() {
		var (
			st        settings.Setting
			createdNS int64
			updatedNS int64
		)
		if err := rows.Scan(&st.Key, &st.Value, &createdNS, &updatedNS); err != nil {
			return nil, fmt.Errorf("velocty/postgres: scan setting row: %w", err)
		}
		st.CreatedAt = fromNS(createdNS)
		st.UpdatedAt = fromNS(updatedNS)
		out = append(out, &st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("velocty/postgres: iterate setting rows: %w", err)
	}
	return out, nil
}

// DeleteSetting removes a setting by key.
func (s *Store) DeleteSetting(ctx context.Context, key string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM settings WHERE key = $1`, key); err != nil {
		return fmt.Errorf("velocty/postgres: delete setting: %w", err)
	}
	return nil
}
