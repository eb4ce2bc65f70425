package firewall

import (
	"context"
	"time"
)

// BanListOpts controls pagination and filtering for ban list queries.
type BanListOpts struct {
	// Limit is the maximum number of bans to return. Zero means no limit.
	Limit int
	// Offset is the number of bans to skip.
	Offset int
	// ActiveOnly restricts the result to active bans.
	ActiveOnly bool
}

// Store defines the persistence contract for bans and security events.
//
// Time-window queries are inclusive at the lower bound and unbounded
// above: an event stamped exactly at since is counted.
type Store interface {
	// InsertBan persists a new ban and assigns its ID. It does not touch
	// existing bans; exclusivity is sequenced by the Aggregator.
	InsertBan(ctx context.Context, b *Ban) error

	// DeactivateBans clears the active flag on every active ban for the
	// IP, returning how many were deactivated.
	DeactivateBans(ctx context.Context, ip string) (int64, error)

	// ActiveBan returns the active ban for the IP, or nil when none
	// exists. Expiry is not evaluated here; callers check Expired.
	ActiveBan(ctx context.Context, ip string) (*Ban, error)

	// ListBans returns bans ordered by creation time, newest first.
	ListBans(ctx context.Context, opts BanListOpts) ([]*Ban, error)

	// DeactivateExpiredBans clears the active flag on every active ban
	// whose expiry has passed, returning how many were deactivated.
	DeactivateExpiredBans(ctx context.Context) (int64, error)

	// InsertEvent appends a security event and assigns its ID.
	InsertEvent(ctx context.Context, e *Event) error

	// PruneEvents deletes all but the most recent keep events in a
	// bounded operation, returning how many were removed.
	PruneEvents(ctx context.Context, keep int) (int64, error)

	// CountEventsSince returns the number of events for the IP since the
	// given instant. Empty eventType counts all types.
	CountEventsSince(ctx context.Context, ip, eventType string, since time.Time) (int64, error)

	// CountEventsByType returns per-type event counts since the given
	// instant.
	CountEventsByType(ctx context.Context, since time.Time) (map[string]int64, error)

	// TopEventIPs returns the IPs with the most events since the given
	// instant, busiest first.
	TopEventIPs(ctx context.Context, since time.Time, limit int) ([]IPCount, error)

	// DeleteEventsBefore removes every event older than cutoff in a
	// single bounded delete, returning how many were removed.
	DeleteEventsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
