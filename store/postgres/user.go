package postgres

import (
	"context"
	"fmt"

	"github.com/marirs/velocty"
	"github.com/marirs/velocty/user"
)

const userCols = `id, email, name, password_hash, role, active, created_at, updated_at`

// CreateUser persists a new user and assigns its ID.
func (s *Store) CreateUser(ctx context.Context, u *user.User) error {
	err := s.pool.QueryRow(ctx, `
		INSERT INTO users (email, name, password_hash, role, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		u.Email, u.Name, u.PasswordHash, string(u.Role), u.Active,
		toNS(u.CreatedAt), toNS(u.UpdatedAt),
	).Scan(&u.ID)
	if err != nil {
		if isDuplicateKey(err) {
			return velocty.ErrDuplicateEmail
		}
		return fmt.Errorf("velocty/postgres: create user: %w", err)
	}
	return nil
}

// GetUser retrieves a user by ID.
func (s *Store) GetUser(ctx context.Context, id int64) (*user.User, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+userCols+` FROM users WHERE id = $1`, id)
	return s.scanUserRow("get user", row)
}

// GetUserByEmail retrieves a user by exact email match.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*user.User, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+userCols+` FROM users WHERE email = $1`, email)
	return s.scanUserRow("get user by email", row)
}

// UpdateUser persists changes to an existing user.
func (s *Store) UpdateUser(ctx context.Context, u *user.User) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE users SET
			email = $1, name = $2, password_hash = $3, role = $4, active = $5,
			updated_at = $6
		WHERE id = $7`,
		u.Email, u.Name, u.PasswordHash, string(u.Role), u.Active,
		toNS(now()), u.ID,
	)
	if err != nil {
		if isDuplicateKey(err) {
			return velocty.ErrDuplicateEmail
		}
		return fmt.Errorf("velocty/postgres: update user: %w", err)
	}
	return nil
}

// DeleteUser removes a user by ID.
func (s *Store) DeleteUser(ctx context.Context, id int64) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id); err != nil {
		return fmt.Errorf("velocty/postgres: delete user: %w", err)
	}
	return nil
}

// ListUsers returns users ordered by ID.
func (s *Store) ListUsers(ctx context.Context, opts user.ListOpts) ([]*user.User, error) {
	query, args := window(`SELECT `+userCols+` FROM users ORDER BY id ASC`, nil, opts.Limit, opts.Offset)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		s.readFailed("list users", err)
		return []*user.User{}, nil
	}
	defer rows.Close()

	out := []*user.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			s.readFailed("scan user row", err)
			return []*user.User{}, nil
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		s.readFailed("iterate user rows", err)
		return []*user.User{}, nil
	}
	return out, nil
}

// CountUsers returns the total number of users.
func (s *Store) CountUsers(ctx context.Context) (int64, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		s.readFailed("count users", err)
		return 0, nil
	}
	return n, nil
}

func scanUser(row scanner) (*user.User, error) {
	var (
		u         user.User
		role      string
		createdNS int64
		updatedNS int64
	)
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &role, &u.Active,
		&createdNS, &updatedNS)
	if err != nil {
		return nil, err
	}
	u.Role = user.Role(role)
	u.CreatedAt = fromNS(createdNS)
	u.UpdatedAt = fromNS(updatedNS)
	return &u, nil
}

func (s *Store) scanUserRow(op string, row scanner) (*user.User, error) {
	u, err := scanUser(row)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		s.readFailed(op, err)
		return nil, nil
	}
	return u, nil
}
