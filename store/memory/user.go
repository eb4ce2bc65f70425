package memory

import (
	"context"
	"sort"
	"time"

	"github.com/marirs/velocty"
	"github.com/marirs/velocty/user"
)

// CreateUser persists a new user and assigns its ID.
func (m *Store) CreateUser(_ context.Context, u *user.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.users {
		if existing.Email == u.Email {
			return velocty.ErrDuplicateEmail
		}
	}

	u.ID = m.nextID("users")
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

// GetUser retrieves a user by ID.
func (m *Store) GetUser(_ context.Context, id int64) (*user.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

// GetUserByEmail retrieves a user by exact email match.
func (m *Store) GetUserByEmail(_ context.Context, email string) (*user.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

// UpdateUser persists changes to an existing user.
func (m *Store) UpdateUser(_ context.Context, u *user.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[u.ID]; !ok {
		return nil
	}
	cp := *u
	cp.UpdatedAt = time.Now().UTC()
	m.users[u.ID] = &cp
	return nil
}

// DeleteUser removes a user by ID.
func (m *Store) DeleteUser(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.users, id)
	return nil
}

// ListUsers returns users ordered by ID.
func (m *Store) ListUsers(_ context.Context, opts user.ListOpts) ([]*user.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	all := make([]*user.User, 0, len(m.users))
	for _, u := range m.users {
		cp := *u
		all = append(all, &cp)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })

	return paginate(all, opts.Limit, opts.Offset), nil
}

// CountUsers returns the total number of users.
func (m *Store) CountUsers(_ context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.users)), nil
}

// paginate applies limit/offset to a sorted slice.
func paginate[T any](s []T, limit, offset int) []T {
	if offset >= len(s) {
		return []T{}
	}
	s = s[offset:]
	if limit > 0 && limit < len(s) {
		s = s[:limit]
	}
	return s
}
