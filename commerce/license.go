package commerce

import "github.com/marirs/velocty"

// License is the purchase record issued alongside a download token.
// Exactly one license exists per finalized order, never duplicated.
type License struct {
	velocty.Entity

	ID      int64  `json:"id"`
	OrderID int64  `json:"order_id"`
	Key     string `json:"key"`
	Email   string `json:"email"`
}
