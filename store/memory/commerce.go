package memory

import (
	"context"
	"sort"
	"time"

	"github.com/marirs/velocty"
	"github.com/marirs/velocty/commerce"
)

// CreateOrder persists a new order and assigns its ID.
func (m *Store) CreateOrder(_ context.Context, o *commerce.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.orders {
		if existing.Provider == o.Provider && existing.ProviderOrderID == o.ProviderOrderID {
			return velocty.ErrDuplicateOrder
		}
	}

	o.ID = m.nextID("orders")
	cp := *o
	m.orders[o.ID] = &cp
	return nil
}

// GetOrder retrieves an order by ID.
func (m *Store) GetOrder(_ context.Context, id int64) (*commerce.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	o, ok := m.orders[id]
	if !ok {
		return nil, nil
	}
	cp := *o
	return &cp, nil
}

// GetOrderByProviderOrderID retrieves an order by provider identifiers.
func (m *Store) GetOrderByProviderOrderID(_ context.Context, provider, providerOrderID string) (*commerce.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, o := range m.orders {
		if o.Provider == provider && o.ProviderOrderID == providerOrderID {
			cp := *o
			return &cp, nil
		}
	}
	return nil, nil
}

// ListOrders returns orders ordered by creation time, newest first.
func (m *Store) ListOrders(_ context.Context, opts commerce.ListOpts) ([]*commerce.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	all := make([]*commerce.Order, 0, len(m.orders))
	for _, o := range m.orders {
		if opts.Status != "" && o.Status != opts.Status {
			continue
		}
		cp := *o
		all = append(all, &cp)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID > all[j].ID
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	return paginate(all, opts.Limit, opts.Offset), nil
}

// CountOrders returns the number of orders with the given status.
func (m *Store) CountOrders(_ context.Context, status commerce.OrderStatus) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var n int64
	for _, o := range m.orders {
		if status == "" || o.Status == status {
			n++
		}
	}
	return n, nil
}

// CompleteOrder performs the pending → completed transition under the
// store lock; the guard and the write are one critical section, so two
// callers can never both observe true.
func (m *Store) CompleteOrder(_ context.Context, id int64, providerRef, buyerEmail, buyerName string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.orders[id]
	if !ok || o.Status != commerce.StatusPending {
		return false, nil
	}

	now := time.Now().UTC()
	o.Status = commerce.StatusCompleted
	o.ProviderRef = providerRef
	o.BuyerEmail = buyerEmail
	o.BuyerName = buyerName
	o.CompletedAt = now
	o.UpdatedAt = now
	return true, nil
}

// CreateDownloadToken persists a new download token and assigns its ID.
func (m *Store) CreateDownloadToken(_ context.Context, t *commerce.DownloadToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t.ID = m.nextID("download_tokens")
	cp := *t
	m.tokens[t.ID] = &cp
	return nil
}

// GetDownloadToken retrieves a token by its exact token string.
func (m *Store) GetDownloadToken(_ context.Context, token string) (*commerce.DownloadToken, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, t := range m.tokens {
		if t.Token == token {
			cp := *t
			return &cp, nil
		}
	}
	return nil, nil
}

// GetTokenForOrder retrieves the download token issued for an order.
func (m *Store) GetTokenForOrder(_ context.Context, orderID int64) (*commerce.DownloadToken, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, t := range m.tokens {
		if t.OrderID == orderID {
			cp := *t
			return &cp, nil
		}
	}
	return nil, nil
}

// IncrementDownloads adds one to the token's downloads_used counter.
func (m *Store) IncrementDownloads(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, t := range m.tokens {
		if t.Token == token {
			t.DownloadsUsed++
			t.UpdatedAt = time.Now().UTC()
			return nil
		}
	}
	return nil
}

// CreateLicense persists a new license and assigns its ID.
func (m *Store) CreateLicense(_ context.Context, l *commerce.License) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	l.ID = m.nextID("licenses")
	cp := *l
	m.licenses[l.ID] = &cp
	return nil
}

// GetLicenseByOrder retrieves the license issued for an order.
func (m *Store) GetLicenseByOrder(_ context.Context, orderID int64) (*commerce.License, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, l := range m.licenses {
		if l.OrderID == orderID {
			cp := *l
			return &cp, nil
		}
	}
	return nil, nil
}

// GetLicenseByKey retrieves a license by its exact key.
func (m *Store) GetLicenseByKey(_ context.Context, key string) (*commerce.License, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, l := range m.licenses {
		if l.Key == key {
			cp := *l
			return &cp, nil
		}
	}
	return nil, nil
}
