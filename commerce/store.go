package commerce

import "context"

// ListOpts controls pagination and filtering for order list queries.
type ListOpts struct {
	// Limit is the maximum number of orders to return. Zero means no limit.
	Limit int
	// Offset is the number of orders to skip.
	Offset int
	// Status filters by order status. Empty means all statuses.
	Status OrderStatus
}

// Store defines the persistence contract for orders, download tokens and
// licenses.
type Store interface {
	// CreateOrder persists a new order and assigns its ID. Returns
	// velocty.ErrDuplicateOrder when the (provider, provider_order_id)
	// pair already exists.
	CreateOrder(ctx context.Context, o *Order) error

	// GetOrder retrieves an order by ID.
	GetOrder(ctx context.Context, id int64) (*Order, error)

	// GetOrderByProviderOrderID retrieves an order by provider and the
	// provider's order identifier.
	GetOrderByProviderOrderID(ctx context.Context, provider, providerOrderID string) (*Order, error)

	// ListOrders returns orders ordered by creation time, newest first.
	ListOrders(ctx context.Context, opts ListOpts) ([]*Order, error)

	// CountOrders returns the number of orders with the given status.
	// Empty status counts all orders.
	CountOrders(ctx context.Context, status OrderStatus) (int64, error)

	// CompleteOrder performs the pending → completed transition as a
	// single conditional update: the status, provider reference and buyer
	// details are written only when the order is still pending. It
	// reports whether this call performed the transition; false with a
	// nil error means the order was absent or already completed. Two
	// concurrent callers can never both observe true for the same order.
	CompleteOrder(ctx context.Context, id int64, providerRef, buyerEmail, buyerName string) (bool, error)

	// CreateDownloadToken persists a new download token and assigns its ID.
	CreateDownloadToken(ctx context.Context, t *DownloadToken) error

	// GetDownloadToken retrieves a token by its exact token string.
	GetDownloadToken(ctx context.Context, token string) (*DownloadToken, error)

	// GetTokenForOrder retrieves the download token issued for an order.
	GetTokenForOrder(ctx context.Context, orderID int64) (*DownloadToken, error)

	// IncrementDownloads adds one to the token's downloads_used counter
	// atomically at the storage layer. The raw increment does not enforce
	// the max_downloads cap.
	IncrementDownloads(ctx context.Context, token string) error

	// CreateLicense persists a new license and assigns its ID.
	CreateLicense(ctx context.Context, l *License) error

	// GetLicenseByOrder retrieves the license issued for an order.
	GetLicenseByOrder(ctx context.Context, orderID int64) (*License, error)

	// GetLicenseByKey retrieves a license by its exact key.
	GetLicenseByKey(ctx context.Context, key string) (*License, error)
}
