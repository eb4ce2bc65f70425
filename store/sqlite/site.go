package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/marirs/velocty"
	"github.com/marirs/velocty/site"
)

const siteCols = `id, slug, hostname, name, status, created_at, updated_at`

// CreateSite persists a new site and assigns its ID.
func (s *Store) CreateSite(ctx context.Context, st *site.Site) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO sites (slug, hostname, name, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		st.Slug, st.Hostname, st.Name, string(st.Status),
		toNS(st.CreatedAt), toNS(st.UpdatedAt),
	)
	if err != nil {
		if isDuplicateKey(err) {
			return velocty.ErrDuplicateSite
		}
		return fmt.Errorf("velocty/sqlite: create site: %w", err)
	}
	st.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("velocty/sqlite: create site id: %w", err)
	}
	return nil
}

// GetSiteBySlug retrieves a site by exact slug match.
func (s *Store) GetSiteBySlug(ctx context.Context, slug string) (*site.Site, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+siteCols+` FROM sites WHERE slug = ?`, slug)
	return s.scanSiteRow("get site by slug", row)
}

// GetSiteByHostname retrieves a site by exact hostname match.
func (s *Store) GetSiteByHostname(ctx context.Context, hostname string) (*site.Site, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+siteCols+` FROM sites WHERE hostname = ?`, hostname)
	return s.scanSiteRow("get site by hostname", row)
}

// UpdateSite persists changes to an existing site. The slug is immutable
// and is not written.
func (s *Store) UpdateSite(ctx context.Context, st *site.Site) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE sites SET hostname = ?, name = ?, status = ?, updated_at = ?
		WHERE id = ?`,
		st.Hostname, st.Name, string(st.Status), toNS(now()), st.ID,
	)
	if err != nil {
		return fmt.Errorf("velocty/sqlite: update site: %w", err)
	}
	return nil
}

// DeleteSite removes a site by ID.
func (s *Store) DeleteSite(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sites WHERE id = ?`, id); err != nil {
		return fmt.Errorf("velocty/sqlite: delete site: %w", err)
	}
	return nil
}

// ListSites returns sites ordered by slug.
func (s *Store) ListSites(ctx context.Context, opts site.ListOpts) ([]*site.Site, error) {
	query := `SELECT ` + siteCols + ` FROM sites ORDER BY slug ASC`
	query, args := applyLimit(query, nil, opts.Limit, opts.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		s.readFailed("list sites", err)
		return []*site.Site{}, nil
	}
	defer rows.Close()

	out := []*site.Site{}
	for rows.Next() {
		st, err := scanSite(rows)
		if err != nil {
			s.readFailed("scan site row", err)
			return []*site.Site{}, nil
		}
		out = append(out, st)
	}
	if err := rows.Err(); err != nil {
		s.readFailed("iterate site rows", err)
		return []*site.Site{}, nil
	}
	return out, nil
}

func scanSite(row scanner) (*site.Site, error) {
	var (
		st        site.Site
		status    string
		createdNS int64
		updatedNS int64
	)
	err := row.Scan(&st.ID, &st.Slug, &st.Hostname, &st.Name, &status,
		&createdNS, &updatedNS)
	if err != nil {
		return nil, err
	}
	st.Status = site.SiteStatus(status)
	st.CreatedAt = fromNS(createdNS)
	st.UpdatedAt = fromNS(updatedNS)
	return &st, nil
}

func (s *Store) scanSiteRow(op string, row *sql.Row) (*site.Site, error) {
	st, err := scanSite(row)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		s.readFailed(op, err)
		return nil, nil
	}
	return st, nil
}
