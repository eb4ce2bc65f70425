// Package commerce defines orders, download tokens and licenses, their
// persistence contract, and the guarded finalization state machine that
// transitions an order from pending to completed exactly once.
package commerce

import (
	"time"

	"github.com/marirs/velocty"
)

// OrderStatus is the lifecycle state of an order. The only transition is
// pending → completed; completed is terminal.
type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusCompleted OrderStatus = "completed"
)

// Order is a purchase of a downloadable product. A given
// (provider, provider_order_id) pair maps to at most one order.
type Order struct {
	velocty.Entity

	ID int64 `json:"id"`

	// Provider names the payment provider ("stripe", "paypal", ...).
	Provider string `json:"provider"`

	// ProviderOrderID is the provider's identifier for this order,
	// assigned at checkout creation.
	ProviderOrderID string `json:"provider_order_id"`

	// ProviderRef is the provider's capture/transaction reference,
	// recorded at finalization.
	ProviderRef string `json:"provider_ref"`

	ItemID     int64       `json:"item_id"`
	Amount     int64       `json:"amount"` // minor units
	Currency   string      `json:"currency"`
	BuyerEmail string      `json:"buyer_email"`
	BuyerName  string      `json:"buyer_name"`
	Status     OrderStatus `json:"status"`

	// CompletedAt is set by the finalization transition; zero while
	// pending.
	CompletedAt time.Time `json:"completed_at"`
}
