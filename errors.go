package velocty

import "errors"

var (
	// Store errors.
	ErrNoStore        = errors.New("velocty: no store configured")
	ErrUnknownBackend = errors.New("velocty: unknown storage backend")

	// Commerce errors.
	ErrOrderNotFound  = errors.New("velocty: order not found")
	ErrOrderCompleted = errors.New("velocty: order already completed")
	ErrDuplicateOrder = errors.New("velocty: duplicate provider order id")
	ErrTokenNotFound  = errors.New("velocty: download token not found")
	ErrTokenExpired   = errors.New("velocty: download token expired")
	ErrTokenExhausted = errors.New("velocty: download limit reached")

	// Conflict errors.
	ErrDuplicateSlug  = errors.New("velocty: slug already in use")
	ErrDuplicateEmail = errors.New("velocty: email already in use")
	ErrDuplicateSite  = errors.New("velocty: site slug already in use")

	// Tenant errors.
	ErrSiteNotFound  = errors.New("velocty: site not found")
	ErrSiteSuspended = errors.New("velocty: site suspended")
)
