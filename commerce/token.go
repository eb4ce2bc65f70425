package commerce

import (
	"time"

	"github.com/marirs/velocty"
)

// DownloadToken grants time- and count-bounded access to an order's
// deliverable. Exactly one token is issued per finalized order.
type DownloadToken struct {
	velocty.Entity

	ID      int64  `json:"id"`
	OrderID int64  `json:"order_id"`
	Token   string `json:"token"`

	// MaxDownloads bounds redemptions. DownloadsUsed only ever increases
	// and is incremented atomically by the adapter; the cap is enforced
	// by the validity check, not by the raw increment.
	MaxDownloads  int `json:"max_downloads"`
	DownloadsUsed int `json:"downloads_used"`

	ExpiresAt time.Time `json:"expires_at"`
}

// Valid reports whether the token may still be redeemed at time now.
func (t *DownloadToken) Valid(now time.Time) bool {
	if !t.ExpiresAt.IsZero() && now.After(t.ExpiresAt) {
		return false
	}
	return t.DownloadsUsed < t.MaxDownloads
}
