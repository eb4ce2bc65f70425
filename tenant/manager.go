// Package tenant owns the slug → store mapping. Stores are built lazily
// on first use, migrated and seeded once, and cached for the life of the
// process.
package tenant

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	mongod "go.mongodb.org/mongo-driver/v2/mongo"
	mongoopts "go.mongodb.org/mongo-driver/v2/mongo/options"
	"golang.org/x/sync/singleflight"

	"github.com/marirs/velocty"
	"github.com/marirs/velocty/site"
	"github.com/marirs/velocty/store"
	"github.com/marirs/velocty/store/memory"
	mongostore "github.com/marirs/velocty/store/mongo"
	"github.com/marirs/velocty/store/postgres"
	"github.com/marirs/velocty/store/sqlite"
)

// seedDefaults are written into a tenant's settings on first build, only
// for keys not already present. Values are strings; consumers parse them
// through the settings cache.
var seedDefaults = map[string]string{
	"site_title":             "",
	"posts_per_page":         "10",
	"comments_enabled":       "true",
	"download_max":           "3",
	"download_expiry_hours":  "72",
	"fw_event_retention":     "10000",
	"fw_audit_keep_days":     "90",
	"publish_sweep_interval": "1m",
}

// Manager builds and caches one store per tenant slug. Concurrent first
// requests for the same slug are collapsed so a tenant is migrated and
// seeded exactly once.
type Manager struct {
	cfg      velocty.Config
	registry site.Store
	logger   *slog.Logger

	group singleflight.Group

	mu     sync.RWMutex
	stores map[string]store.Store

	mongoOnce   sync.Once
	mongoClient *mongod.Client
	mongoErr    error
}

// Option configures the Manager.
type Option func(*Manager)

// WithLogger sets the logger for the manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

// NewManager creates a Manager over the platform site registry.
func NewManager(cfg velocty.Config, registry site.Store, opts ...Option) *Manager {
	m := &Manager{
		cfg:      cfg,
		registry: registry,
		logger:   slog.Default(),
		stores:   make(map[string]store.Store),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// GetStore returns the store for the tenant slug, building it on first
// use. The build migrates the schema, seeds default settings, and creates
// the tenant's upload directory.
func (m *Manager) GetStore(ctx context.Context, slug string) (store.Store, error) {
	m.mu.RLock()
	s, ok := m.stores[slug]
	m.mu.RUnlock()
	if ok {
		return s, nil
	}

	v, err, _ := m.group.Do(slug, func() (any, error) {
		// A concurrent caller may have finished the build while this
		// one waited on the flight group.
		m.mu.RLock()
		s, ok := m.stores[slug]
		m.mu.RUnlock()
		if ok {
			return s, nil
		}

		built, err := m.build(ctx, slug)
		if err != nil {
			return nil, err
		}

		m.mu.Lock()
		m.stores[slug] = built
		m.mu.Unlock()
		return built, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(store.Store), nil
}

// Resolve maps an inbound hostname to its tenant store via the platform
// site registry. Suspended sites resolve their record but no store.
func (m *Manager) Resolve(ctx context.Context, hostname string) (store.Store, *site.Site, error) {
	st, err := m.registry.GetSiteByHostname(ctx, hostname)
	if err != nil {
		return nil, nil, fmt.Errorf("velocty/tenant: resolve %s: %w", hostname, err)
	}
	if st == nil {
		return nil, nil, velocty.ErrSiteNotFound
	}
	if st.Status == site.StatusSuspended {
		return nil, st, velocty.ErrSiteSuspended
	}

	s, err := m.GetStore(ctx, st.Slug)
	if err != nil {
		return nil, st, err
	}
	return s, st, nil
}

// CloseAll closes every cached store and drops the cache. The manager
// remains usable; stores rebuild on next use.
func (m *Manager) CloseAll() error {
	m.mu.Lock()
	stores := m.stores
	m.stores = make(map[string]store.Store)
	m.mu.Unlock()

	var firstErr error
	for slug, s := range stores {
		if err := s.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("velocty/tenant: close %s: %w", slug, err)
		}
	}

	if m.mongoClient != nil {
		if err := m.mongoClient.Disconnect(context.Background()); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("velocty/tenant: disconnect mongo: %w", err)
		}
	}
	return firstErr
}

// build constructs, migrates, and seeds a tenant store.
func (m *Manager) build(ctx context.Context, slug string) (store.Store, error) {
	s, err := m.open(ctx, slug)
	if err != nil {
		return nil, err
	}

	if err := s.Migrate(ctx); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("velocty/tenant: migrate %s: %w", slug, err)
	}
	if err := m.seed(ctx, s); err != nil {
		_ = s.Close()
		return nil, err
	}

	uploads := filepath.Join(m.cfg.DataDir, slug, "uploads")
	if err := os.MkdirAll(uploads, 0o755); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("velocty/tenant: create upload dir %s: %w", slug, err)
	}

	m.logger.Info("tenant store ready", "slug", slug, "backend", string(m.cfg.Backend))
	return s, nil
}

func (m *Manager) open(ctx context.Context, slug string) (store.Store, error) {
	switch m.cfg.Backend {
	case velocty.BackendMemory:
		return memory.New(), nil

	case velocty.BackendSQLite:
		dir := filepath.Join(m.cfg.DataDir, slug)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("velocty/tenant: create data dir %s: %w", slug, err)
		}
		return sqlite.Open(filepath.Join(dir, "velocty.db"), sqlite.WithLogger(m.logger))

	case velocty.BackendPostgres:
		return postgres.New(ctx, fmt.Sprintf(m.cfg.PostgresDSN, slug), postgres.WithLogger(m.logger))

	case velocty.BackendMongo:
		client, err := m.mongo(ctx)
		if err != nil {
			return nil, err
		}
		return mongostore.New(client.Database(slug), mongostore.WithLogger(m.logger)), nil

	default:
		return nil, fmt.Errorf("%w: %q", velocty.ErrUnknownBackend, m.cfg.Backend)
	}
}

// mongo connects the shared client once; all tenant databases share it.
func (m *Manager) mongo(ctx context.Context) (*mongod.Client, error) {
	m.mongoOnce.Do(func() {
		client, err := mongod.Connect(mongoopts.Client().ApplyURI(m.cfg.MongoURI))
		if err != nil {
			m.mongoErr = fmt.Errorf("velocty/tenant: connect mongo: %w", err)
			return
		}
		m.mongoClient = client
	})
	return m.mongoClient, m.mongoErr
}

// seed writes default settings for keys not already present, so rebuilt
// tenants keep their operator-tuned values.
func (m *Manager) seed(ctx context.Context, s store.Store) error {
	for key, value := range seedDefaults {
		existing, err := s.GetSetting(ctx, key)
		if err != nil {
			return fmt.Errorf("velocty/tenant: seed check %s: %w", key, err)
		}
		if existing != nil {
			continue
		}
		if err := s.SetSetting(ctx, key, value); err != nil {
			return fmt.Errorf("velocty/tenant: seed %s: %w", key, err)
		}
	}
	return nil
}
