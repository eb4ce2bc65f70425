package memory

import (
	"context"
	"sort"
	"time"

	"github.com/marirs/velocty"
	"github.com/marirs/velocty/settings"
)

// GetSetting retrieves a setting by exact key match.
func (m *Store) GetSetting(_ context.Context, key string) (*settings.Setting, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.settings[key]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

// SetSetting upserts a setting. Last write wins.
func (m *Store) SetSetting(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.settings[key]; ok {
		s.Value = value
		s.UpdatedAt = time.Now().UTC()
		return nil
	}
	m.settings[key] = &settings.Setting{
		Entity: velocty.NewEntity(),
		Key:    key,
		Value:  value,
	}
	return nil
}

// AllSettings returns every setting ordered by key.
func (m *Store) AllSettings(_ context.Context) ([]*settings.Setting, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	all := make([]*settings.Setting, 0, len(m.settings))
	for _, s := range m.settings {
		cp := *s
		all = append(all, &cp)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Key < all[j].Key })
	return all, nil
}

// DeleteSetting removes a setting by key.
func (m *Store) DeleteSetting(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.settings, key)
	return nil
}
