package user

import "context"

// ListOpts controls pagination for user list queries.
type ListOpts struct {
	// Limit is the maximum number of users to return. Zero means no limit.
	Limit int
	// Offset is the number of users to skip.
	Offset int
}

// Store defines the persistence contract for users.
//
// Reads return the zero value (nil, empty slice, zero count) both when the
// addressed user does not exist and when the backend is unreachable; in the
// latter case the adapter logs the failure. Lookups by email are exact and
// case-sensitive.
type Store interface {
	// CreateUser persists a new user and assigns its ID.
	CreateUser(ctx context.Context, u *User) error

	// GetUser retrieves a user by ID.
	GetUser(ctx context.Context, id int64) (*User, error)

	// GetUserByEmail retrieves a user by exact email match.
	GetUserByEmail(ctx context.Context, email string) (*User, error)

	// UpdateUser persists changes to an existing user.
	UpdateUser(ctx context.Context, u *User) error

	// DeleteUser removes a user by ID.
	DeleteUser(ctx context.Context, id int64) error

	// ListUsers returns users ordered by ID.
	ListUsers(ctx context.Context, opts ListOpts) ([]*User, error)

	// CountUsers returns the total number of users.
	CountUsers(ctx context.Context) (int64, error)
}
