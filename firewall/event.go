package firewall

import "time"

// Common event types recorded by consumers.
const (
	EventLoginFailed  = "login_failed"
	EventSpamComment  = "spam_comment"
	EventProbe        = "probe"
	EventRateExceeded = "rate_exceeded"
)

// Event is one append-only security log entry. Events are subject to
// bounded retention: each append prunes the log to a fixed cap, and the
// audit sweep removes entries past their keep window.
type Event struct {
	ID        int64     `json:"id"`
	IP        string    `json:"ip"`
	Type      string    `json:"type"`
	Detail    string    `json:"detail"`
	CreatedAt time.Time `json:"created_at"`
}

// IPCount pairs an IP with its event count for threshold queries.
type IPCount struct {
	IP    string `json:"ip"`
	Count int64  `json:"count"`
}
