// Package memory provides a fully in-memory Store backend. Safe for
// concurrent access. Intended for unit testing and development; it is the
// behavioral reference the database backends are held to.
package memory

import (
	"context"
	"sync"

	"github.com/marirs/velocty/commerce"
	"github.com/marirs/velocty/content"
	"github.com/marirs/velocty/firewall"
	"github.com/marirs/velocty/settings"
	"github.com/marirs/velocty/site"
	"github.com/marirs/velocty/user"
)

// Ensure Store implements store.Store at compile time.
// We can't import store here (import cycle), so we verify each subsystem.
var (
	_ user.Store     = (*Store)(nil)
	_ content.Store  = (*Store)(nil)
	_ settings.Store = (*Store)(nil)
	_ commerce.Store = (*Store)(nil)
	_ firewall.Store = (*Store)(nil)
	_ site.Store     = (*Store)(nil)
)

// junction is one many-to-many association row.
type junction struct {
	contentID   int64
	contentType content.Type
	relatedID   int64
}

// Store is a map-backed implementation of store.Store.
type Store struct {
	mu sync.RWMutex

	// seq holds one monotonic counter per logical collection; burned
	// values are never reused.
	seq map[string]int64

	users      map[int64]*user.User
	posts      map[int64]*content.Post
	items      map[int64]*content.PortfolioItem
	categories map[int64]*content.Category
	tags       map[int64]*content.Tag
	comments   map[int64]*content.Comment
	catLinks   []junction
	tagLinks   []junction
	settings   map[string]*settings.Setting
	orders     map[int64]*commerce.Order
	tokens     map[int64]*commerce.DownloadToken
	licenses   map[int64]*commerce.License
	bans       map[int64]*firewall.Ban
	events     map[int64]*firewall.Event
	sites      map[int64]*site.Site
}

// New returns a new empty Store.
func New() *Store {
	return &Store{
		seq:        make(map[string]int64),
		users:      make(map[int64]*user.User),
		posts:      make(map[int64]*content.Post),
		items:      make(map[int64]*content.PortfolioItem),
		categories: make(map[int64]*content.Category),
		tags:       make(map[int64]*content.Tag),
		comments:   make(map[int64]*content.Comment),
		settings:   make(map[string]*settings.Setting),
		orders:     make(map[int64]*commerce.Order),
		tokens:     make(map[int64]*commerce.DownloadToken),
		licenses:   make(map[int64]*commerce.License),
		bans:       make(map[int64]*firewall.Ban),
		events:     make(map[int64]*firewall.Event),
		sites:      make(map[int64]*site.Site),
	}
}

// nextID returns the next identifier for a collection. Caller holds m.mu.
func (m *Store) nextID(collection string) int64 {
	m.seq[collection]++
	return m.seq[collection]
}

// ──────────────────────────────────────────────────
// Lifecycle — Migrate / Ping / Close
// ──────────────────────────────────────────────────

// Migrate is a no-op for the memory store.
func (m *Store) Migrate(_ context.Context) error { return nil }

// Ping always succeeds for the memory store.
func (m *Store) Ping(_ context.Context) error { return nil }

// Close is a no-op for the memory store.
func (m *Store) Close() error { return nil }
