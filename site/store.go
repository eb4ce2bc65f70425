package site

import "context"

// ListOpts controls pagination for site list queries.
type ListOpts struct {
	// Limit is the maximum number of sites to return. Zero means no limit.
	Limit int
	// Offset is the number of sites to skip.
	Offset int
}

// Store defines the persistence contract for the tenant registry.
type Store interface {
	// CreateSite persists a new site and assigns its ID. Returns
	// velocty.ErrDuplicateSite when the slug is already taken.
	CreateSite(ctx context.Context, s *Site) error

	// GetSiteBySlug retrieves a site by exact slug match.
	GetSiteBySlug(ctx context.Context, slug string) (*Site, error)

	// GetSiteByHostname retrieves a site by exact hostname match.
	GetSiteByHostname(ctx context.Context, hostname string) (*Site, error)

	// UpdateSite persists changes to an existing site.
	UpdateSite(ctx context.Context, s *Site) error

	// DeleteSite removes a site by ID. The tenant's store and uploads
	// are torn down by the caller, not here.
	DeleteSite(ctx context.Context, id int64) error

	// ListSites returns sites ordered by slug.
	ListSites(ctx context.Context, opts ListOpts) ([]*Site, error)
}
