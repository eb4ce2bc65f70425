package memory

import (
	"context"
	"sort"
	"time"

	"github.com/marirs/velocty"
	"github.com/marirs/velocty/site"
)

// CreateSite persists a new site and assigns its ID.
func (m *Store) CreateSite(_ context.Context, s *site.Site) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.sites {
		if existing.Slug == s.Slug {
			return velocty.ErrDuplicateSite
		}
	}

	s.ID = m.nextID("sites")
	cp := *s
	m.sites[s.ID] = &cp
	return nil
}

// GetSiteBySlug retrieves a site by exact slug match.
func (m *Store) GetSiteBySlug(_ context.Context, slug string) (*site.Site, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, s := range m.sites {
		if s.Slug == slug {
			cp := *s
			return &cp, nil
		}
	}
	return nil, nil
}

// GetSiteByHostname retrieves a site by exact hostname match.
func (m *Store) GetSiteByHostname(_ context.Context, hostname string) (*site.Site, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, s := range m.sites {
		if s.Hostname == hostname {
			cp := *s
			return &cp, nil
		}
	}
	return nil, nil
}

// UpdateSite persists changes to an existing site.
func (m *Store) UpdateSite(_ context.Context, s *site.Site) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sites[s.ID]; !ok {
		return nil
	}
	cp := *s
	cp.UpdatedAt = time.Now().UTC()
	m.sites[s.ID] = &cp
	return nil
}

// DeleteSite removes a site by ID.
func (m *Store) DeleteSite(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sites, id)
	return nil
}

// ListSites returns sites ordered by slug.
func (m *Store) ListSites(_ context.Context, opts site.ListOpts) ([]*site.Site, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	all := make([]*site.Site, 0, len(m.sites))
	for _, s := range m.sites {
		cp := *s
		all = append(all, &cp)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Slug < all[j].Slug })

	return paginate(all, opts.Limit, opts.Offset), nil
}
