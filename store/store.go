// Package store defines the aggregate persistence interface. Each
// subsystem (user, content, settings, commerce, firewall, site) defines
// its own store interface; the composite Store composes them all.
// Backends: SQLite, Postgres, MongoDB, and Memory.
package store

import (
	"context"

	"github.com/marirs/velocty/commerce"
	"github.com/marirs/velocty/content"
	"github.com/marirs/velocty/firewall"
	"github.com/marirs/velocty/settings"
	"github.com/marirs/velocty/site"
	"github.com/marirs/velocty/user"
)

// Store is the aggregate persistence interface, the only surface
// application code is allowed to call. A single backend implements every
// subsystem store, and all backends produce identical observable behavior
// for every operation.
type Store interface {
	user.Store
	content.Store
	settings.Store
	commerce.Store
	firewall.Store
	site.Store

	// Migrate creates or upgrades the backend schema.
	Migrate(ctx context.Context) error

	// Ping checks backend connectivity.
	Ping(ctx context.Context) error

	// Close releases the backend connection.
	Close() error
}
