// Package velocty is the storage core of the Velocty content platform:
// a single persistence contract (store.Store) with relational and document
// backends, plus the two subsystems whose correctness depends on that
// contract: commerce order finalization and firewall event aggregation.
//
// Velocty is designed as a library, not a service. HTTP routing, template
// rendering and provider clients live in consumers; they talk to the
// platform exclusively through the Store contract and the services layered
// on it (settings.Cache, commerce.Finalizer, firewall.Aggregator,
// tenant.Manager, maintenance.Runner).
//
// # Architecture
//
// Velocty follows a composable store pattern where each subsystem (user,
// content, settings, commerce, firewall, site) defines its own store
// interface. A single backend implements all of them. Backends: SQLite,
// Postgres, MongoDB, and Memory.
//
// Every backend must produce identical observable behavior for every
// operation; application code never branches on the engine in use. Entity
// identifiers are engine-assigned int64 values, strictly increasing per
// collection: native auto-increment on the relational backends, an atomic
// counters collection on the document backend.
package velocty
