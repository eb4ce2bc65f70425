// Package firewall provides ban records and a rolling security event log,
// built entirely on the persistence contract. It supplies the aggregates
// that abuse-detection policy consumes; the decision policy itself lives
// in consumers.
package firewall

import (
	"time"

	"github.com/marirs/velocty"
)

// Ban blocks an IP. At most one active ban exists per IP at any instant;
// inactive bans are kept as history.
type Ban struct {
	velocty.Entity

	ID     int64  `json:"id"`
	IP     string `json:"ip"`
	Reason string `json:"reason"`
	Active bool   `json:"active"`

	// ExpiresAt is zero for permanent bans.
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the ban's expiry has passed at time now.
// Permanent bans never expire.
func (b *Ban) Expired(now time.Time) bool {
	return !b.ExpiresAt.IsZero() && now.After(b.ExpiresAt)
}
