package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/marirs/velocty"
	"github.com/marirs/velocty/user"
)

const userCols = `id, email, name, password_hash, role, active, created_at, updated_at`

// CreateUser persists a new user and assigns its ID.
func (s *Store) CreateUser(ctx context.Context, u *user.User) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO users (email, name, password_hash, role, active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		u.Email, u.Name, u.PasswordHash, string(u.Role), u.Active,
		toNS(u.CreatedAt), toNS(u.UpdatedAt),
	)
	if err != nil {
		if isDuplicateKey(err) {
			return velocty.ErrDuplicateEmail
		}
		return fmt.Errorf("velocty/sqlite: create user: %w", err)
	}
	u.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("velocty/sqlite: create user id: %w", err)
	}
	return nil
}

// GetUser retrieves a user by ID.
func (s *Store) GetUser(ctx context.Context, id int64) (*user.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+userCols+` FROM users WHERE id = ?`, id)
	return s.scanUserRow("get user", row)
}

// GetUserByEmail retrieves a user by exact email match.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*user.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+userCols+` FROM users WHERE email = ?`, email)
	return s.scanUserRow("get user by email", row)
}

// UpdateUser persists changes to an existing user.
func (s *Store) UpdateUser(ctx context.Context, u *user.User) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE users SET
			email = ?, name = ?, password_hash = ?, role = ?, active = ?,
			updated_at = ?
		WHERE id = ?`,
		u.Email, u.Name, u.PasswordHash, string(u.Role), u.Active,
		toNS(now()), u.ID,
	)
	if err != nil {
		if isDuplicateKey(err) {
			return velocty.ErrDuplicateEmail
		}
		return fmt.Errorf("velocty/sqlite: update user: %w", err)
	}
	return nil
}

// DeleteUser removes a user by ID.
func (s *Store) DeleteUser(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id); err != nil {
		return fmt.Errorf("velocty/sqlite: delete user: %w", err)
	}
	return nil
}

// ListUsers returns users ordered by ID.
func (s *Store) ListUsers(ctx context.Context, opts user.ListOpts) ([]*user.User, error) {
	query := `SELECT ` + userCols + ` FROM users ORDER BY id ASC`
	query, args := applyLimit(query, nil, opts.Limit, opts.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		s.readFailed("list users", err)
		return []*user.User{}, nil
	}
	defer rows.Close()

	out := []*user.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			s.readFailed("list users scan", err)
			return []*user.User{}, nil
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		s.readFailed("list users rows", err)
		return []*user.User{}, nil
	}
	return out, nil
}

// CountUsers returns the total number of users.
func (s *Store) CountUsers(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		s.readFailed("count users", err)
		return 0, nil
	}
	return n, nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
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

func (s *Store) scanUserRow(op string, row *sql.Row) (*user.User, error) {
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

// applyLimit appends LIMIT/OFFSET clauses and their args.
func applyLimit(query string, args []any, limit, offset int) (string, []any) {
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	} else if offset > 0 {
		// SQLite requires LIMIT before OFFSET; -1 means unlimited.
		query += ` LIMIT -1`
	}
	if offset > 0 {
		query += ` OFFSET ?`
		args = append(args, offset)
	}
	return query, args
}
