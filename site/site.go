// Package site defines the tenant registry: one record per hosted site,
// keyed by slug (the storage namespace) and hostname (the routing key).
package site

import "github.com/marirs/velocty"

// SiteStatus is the operational state of a tenant site.
type SiteStatus string

const (
	StatusActive    SiteStatus = "active"
	StatusSuspended SiteStatus = "suspended"
)

// Site is one hosted tenant. The slug is opaque and immutable; it names
// the tenant's storage namespace and upload directory. The hostname is
// the inbound routing key and may change.
type Site struct {
	velocty.Entity

	ID       int64      `json:"id"`
	Slug     string     `json:"slug"`
	Hostname string     `json:"hostname"`
	Name     string     `json:"name"`
	Status   SiteStatus `json:"status"`
}
