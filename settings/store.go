package settings

import "context"

// Store defines the persistence contract for settings.
type Store interface {
	// GetSetting retrieves a setting by exact key match.
	GetSetting(ctx context.Context, key string) (*Setting, error)

	// SetSetting upserts a setting. Last write wins.
	SetSetting(ctx context.Context, key, value string) error

	// AllSettings returns every setting. Unlike other reads this
	// propagates backend failures: the cache must be able to keep its
	// previous snapshot when a refresh load fails.
	AllSettings(ctx context.Context) ([]*Setting, error)

	// DeleteSetting removes a setting by key.
	DeleteSetting(ctx context.Context, key string) error
}
