package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/marirs/velocty"
	"github.com/marirs/velocty/content"
)

const postCols = `id, title, slug, body, excerpt, status, author_id, publish_at, likes, created_at, updated_at`
const itemCols = `id, title, slug, description, image_path, project_url, sort_order, status, created_at, updated_at`

// ──────────────────────────────────────────────────
// Posts
// ──────────────────────────────────────────────────

// CreatePost persists a new post and assigns its ID.
func (s *Store) CreatePost(ctx context.Context, p *content.Post) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO posts (title, slug, body, excerpt, status, author_id, publish_at, likes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.Title, p.Slug, p.Body, p.Excerpt, string(p.Status), p.AuthorID,
		toNS(p.PublishAt), p.Likes, toNS(p.CreatedAt), toNS(p.UpdatedAt),
	)
	if err != nil {
		if isDuplicateKey(err) {
			return velocty.ErrDuplicateSlug
		}
		return fmt.Errorf("velocty/sqlite: create post: %w", err)
	}
	p.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("velocty/sqlite: create post id: %w", err)
	}
	return nil
}

// GetPost retrieves a post by ID.
func (s *Store) GetPost(ctx context.Context, id int64) (*content.Post, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+postCols+` FROM posts WHERE id = ?`, id)
	return s.scanPostRow("get post", row)
}

// GetPostBySlug retrieves a post by exact slug match.
func (s *Store) GetPostBySlug(ctx context.Context, slug string) (*content.Post, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+postCols+` FROM posts WHERE slug = ?`, slug)
	return s.scanPostRow("get post by slug", row)
}

// UpdatePost persists changes to an existing post. Likes are excluded:
// the counter is owned by IncrementPostLikes.
func (s *Store) UpdatePost(ctx context.Context, p *content.Post) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE posts SET
			title = ?, slug = ?, body = ?, excerpt = ?, status = ?,
			author_id = ?, publish_at = ?, updated_at = ?
		WHERE id = ?`,
		p.Title, p.Slug, p.Body, p.Excerpt, string(p.Status),
		p.AuthorID, toNS(p.PublishAt), toNS(now()), p.ID,
	)
	if err != nil {
		if isDuplicateKey(err) {
			return velocty.ErrDuplicateSlug
		}
		return fmt.Errorf("velocty/sqlite: update post: %w", err)
	}
	return nil
}

// DeletePost removes a post by ID.
func (s *Store) DeletePost(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM posts WHERE id = ?`, id); err != nil {
		return fmt.Errorf("velocty/sqlite: delete post: %w", err)
	}
	return nil
}

// ListPosts returns posts ordered by creation time, newest first.
func (s *Store) ListPosts(ctx context.Context, opts content.ListOpts) ([]*content.Post, error) {
	query := `SELECT ` + postCols + ` FROM posts`
	var args []any
	if opts.Status != "" {
		query += ` WHERE status = ?`
		args = append(args, string(opts.Status))
	}
	query += ` ORDER BY created_at DESC, id DESC`
	query, args = applyLimit(query, args, opts.Limit, opts.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		s.readFailed("list posts", err)
		return []*content.Post{}, nil
	}
	defer rows.Close()

	return s.collectPosts(rows)
}

// CountPosts returns the number of posts with the given status.
func (s *Store) CountPosts(ctx context.Context, status content.Status) (int64, error) {
	query := `SELECT COUNT(*) FROM posts`
	var args []any
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, string(status))
	}

	var n int64
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		s.readFailed("count posts", err)
		return 0, nil
	}
	return n, nil
}

// IncrementPostLikes adds one to the post's like counter in SQL.
func (s *Store) IncrementPostLikes(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE posts SET likes = likes + 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("velocty/sqlite: increment post likes: %w", err)
	}
	return nil
}

// PublishDuePosts flips due scheduled posts to published in one
// conditional update.
func (s *Store) PublishDuePosts(ctx context.Context) (int64, error) {
	t := now()
	res, err := s.db.ExecContext(ctx, `
		UPDATE posts SET status = ?, updated_at = ?
		WHERE status = ? AND publish_at > 0 AND publish_at <= ?`,
		string(content.StatusPublished), toNS(t),
		string(content.StatusScheduled), toNS(t),
	)
	if err != nil {
		return 0, fmt.Errorf("velocty/sqlite: publish due posts: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("velocty/sqlite: publish due posts count: %w", err)
	}
	return n, nil
}

func scanPost(row scanner) (*content.Post, error) {
	var (
		p         content.Post
		status    string
		publishNS int64
		createdNS int64
		updatedNS int64
	)
	err := row.Scan(&p.ID, &p.Title, &p.Slug, &p.Body, &p.Excerpt, &status,
		&p.AuthorID, &publishNS, &p.Likes, &createdNS, &updatedNS)
	if err != nil {
		return nil, err
	}
	p.Status = content.Status(status)
	p.PublishAt = fromNS(publishNS)
	p.CreatedAt = fromNS(createdNS)
	p.UpdatedAt = fromNS(updatedNS)
	return &p, nil
}

func (s *Store) scanPostRow(op string, row *sql.Row) (*content.Post, error) {
	p, err := scanPost(row)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		s.readFailed(op, err)
		return nil, nil
	}
	return p, nil
}

func (s *Store) collectPosts(rows *sql.Rows) ([]*content.Post, error) {
	out := []*content.Post{}
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			s.readFailed("scan post row", err)
			return []*content.Post{}, nil
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		s.readFailed("iterate post rows", err)
		return []*content.Post{}, nil
	}
	return out, nil
}

// ──────────────────────────────────────────────────
// Portfolio
// ──────────────────────────────────────────────────

// CreateItem persists a new portfolio item and assigns its ID.
func (s *Store) CreateItem(ctx context.Context, it *content.PortfolioItem) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO portfolio_items (title, slug, description, image_path, project_url, sort_order, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		it.Title, it.Slug, it.Description, it.ImagePath, it.ProjectURL,
		it.SortOrder, string(it.Status), toNS(it.CreatedAt), toNS(it.UpdatedAt),
	)
	if err != nil {
		if isDuplicateKey(err) {
			return velocty.ErrDuplicateSlug
		}
		return fmt.Errorf("velocty/sqlite: create portfolio item: %w", err)
	}
	it.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("velocty/sqlite: create portfolio item id: %w", err)
	}
	return nil
}

// GetItem retrieves a portfolio item by ID.
func (s *Store) GetItem(ctx context.Context, id int64) (*content.PortfolioItem, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+itemCols+` FROM portfolio_items WHERE id = ?`, id)
	return s.scanItemRow("get portfolio item", row)
}

// GetItemBySlug retrieves a portfolio item by exact slug match.
func (s *Store) GetItemBySlug(ctx context.Context, slug string) (*content.PortfolioItem, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+itemCols+` FROM portfolio_items WHERE slug = ?`, slug)
	return s.scanItemRow("get portfolio item by slug", row)
}

// UpdateItem persists changes to an existing portfolio item.
func (s *Store) UpdateItem(ctx context.Context, it *content.PortfolioItem) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE portfolio_items SET
			title = ?, slug = ?, description = ?, image_path = ?,
			project_url = ?, sort_order = ?, status = ?, updated_at = ?
		WHERE id = ?`,
		it.Title, it.Slug, it.Description, it.ImagePath,
		it.ProjectURL, it.SortOrder, string(it.Status), toNS(now()), it.ID,
	)
	if err != nil {
		if isDuplicateKey(err) {
			return velocty.ErrDuplicateSlug
		}
		return fmt.Errorf("velocty/sqlite: update portfolio item: %w", err)
	}
	return nil
}

// DeleteItem removes a portfolio item by ID.
func (s *Store) DeleteItem(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM portfolio_items WHERE id = ?`, id); err != nil {
		return fmt.Errorf("velocty/sqlite: delete portfolio item: %w", err)
	}
	return nil
}

// ListItems returns portfolio items ordered by sort order, then ID.
func (s *Store) ListItems(ctx context.Context, opts content.ListOpts) ([]*content.PortfolioItem, error) {
	query := `SELECT ` + itemCols + ` FROM portfolio_items`
	var args []any
	if opts.Status != "" {
		query += ` WHERE status = ?`
		args = append(args, string(opts.Status))
	}
	query += ` ORDER BY sort_order ASC, id ASC`
	query, args = applyLimit(query, args, opts.Limit, opts.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		s.readFailed("list portfolio items", err)
		return []*content.PortfolioItem{}, nil
	}
	defer rows.Close()

	out := []*content.PortfolioItem{}
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			s.readFailed("scan portfolio item row", err)
			return []*content.PortfolioItem{}, nil
		}
		out = append(out, it)
	}
	if err := rows.Err(); err != nil {
		s.readFailed("iterate portfolio item rows", err)
		return []*content.PortfolioItem{}, nil
	}
	return out, nil
}

func scanItem(row scanner) (*content.PortfolioItem, error) {
	var (
		it        content.PortfolioItem
		status    string
		createdNS int64
		updatedNS int64
	)
	err := row.Scan(&it.ID, &it.Title, &it.Slug, &it.Description, &it.ImagePath,
		&it.ProjectURL, &it.SortOrder, &status, &createdNS, &updatedNS)
	if err != nil {
		return nil, err
	}
	it.Status = content.Status(status)
	it.CreatedAt = fromNS(createdNS)
	it.UpdatedAt = fromNS(updatedNS)
	return &it, nil
}

func (s *Store) scanItemRow(op string, row *sql.Row) (*content.PortfolioItem, error) {
	it, err := scanItem(row)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		s.readFailed(op, err)
		return nil, nil
	}
	return it, nil
}

// ──────────────────────────────────────────────────
// Taxonomy
// ──────────────────────────────────────────────────

// CreateCategory persists a new category and assigns its ID.
func (s *Store) CreateCategory(ctx context.Context, c *content.Category) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO categories (name, slug, created_at, updated_at)
		VALUES (?, ?, ?, ?)`,
		c.Name, c.Slug, toNS(c.CreatedAt), toNS(c.UpdatedAt),
	)
	if err != nil {
		if isDuplicateKey(err) {
			return velocty.ErrDuplicateSlug
		}
		return fmt.Errorf("velocty/sqlite: create category: %w", err)
	}
	c.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("velocty/sqlite: create category id: %w", err)
	}
	return nil
}

// GetCategoryBySlug retrieves a category by exact slug match.
func (s *Store) GetCategoryBySlug(ctx context.Context, slug string) (*content.Category, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, slug, created_at, updated_at FROM categories WHERE slug = ?`, slug)

	c, err := scanNamed(row)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		s.readFailed("get category by slug", err)
		return nil, nil
	}
	return &content.Category{Entity: c.entity, ID: c.id, Name: c.name, Slug: c.slug}, nil
}

// ListCategories returns all categories ordered by name.
func (s *Store) ListCategories(ctx context.Context) ([]*content.Category, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, slug, created_at, updated_at FROM categories ORDER BY name ASC`)
	if err != nil {
		s.readFailed("list categories", err)
		return []*content.Category{}, nil
	}
	defer rows.Close()

	out := []*content.Category{}
	for rows.Next() {
		c, err := scanNamed(rows)
		if err != nil {
			s.readFailed("scan category row", err)
			return []*content.Category{}, nil
		}
		out = append(out, &content.Category{Entity: c.entity, ID: c.id, Name: c.name, Slug: c.slug})
	}
	if err := rows.Err(); err != nil {
		s.readFailed("iterate category rows", err)
		return []*content.Category{}, nil
	}
	return out, nil
}

// DeleteCategory removes a category by ID.
func (s *Store) DeleteCategory(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id); err != nil {
		return fmt.Errorf("velocty/sqlite: delete category: %w", err)
	}
	return nil
}

// CreateTag persists a new tag and assigns its ID.
func (s *Store) CreateTag(ctx context.Context, t *content.Tag) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO tags (name, slug, created_at, updated_at)
		VALUES (?, ?, ?, ?)`,
		t.Name, t.Slug, toNS(t.CreatedAt), toNS(t.UpdatedAt),
	)
	if err != nil {
		if isDuplicateKey(err) {
			return velocty.ErrDuplicateSlug
		}
		return fmt.Errorf("velocty/sqlite: create tag: %w", err)
	}
	t.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("velocty/sqlite: create tag id: %w", err)
	}
	return nil
}

// GetTagBySlug retrieves a tag by exact slug match.
func (s *Store) GetTagBySlug(ctx context.Context, slug string) (*content.Tag, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, slug, created_at, updated_at FROM tags WHERE slug = ?`, slug)

	c, err := scanNamed(row)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		s.readFailed("get tag by slug", err)
		return nil, nil
	}
	return &content.Tag{Entity: c.entity, ID: c.id, Name: c.name, Slug: c.slug}, nil
}

// ListTags returns all tags ordered by name.
func (s *Store) ListTags(ctx context.Context) ([]*content.Tag, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, slug, created_at, updated_at FROM tags ORDER BY name ASC`)
	if err != nil {
		s.readFailed("list tags", err)
		return []*content.Tag{}, nil
	}
	defer rows.Close()

	out := []*content.Tag{}
	for rows.Next() {
		c, err := scanNamed(rows)
		if err != nil {
			s.readFailed("scan tag row", err)
			return []*content.Tag{}, nil
		}
		out = append(out, &content.Tag{Entity: c.entity, ID: c.id, Name: c.name, Slug: c.slug})
	}
	if err := rows.Err(); err != nil {
		s.readFailed("iterate tag rows", err)
		return []*content.Tag{}, nil
	}
	return out, nil
}

// DeleteTag removes a tag by ID.
func (s *Store) DeleteTag(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM tags WHERE id = ?`, id); err != nil {
		return fmt.Errorf("velocty/sqlite: delete tag: %w", err)
	}
	return nil
}

// ──────────────────────────────────────────────────
// Junctions
// ──────────────────────────────────────────────────

// setLinks is the shared full-replace: delete all rows for the content,
// insert the new set, in one transaction so no partial state is visible.
func (s *Store) setLinks(ctx context.Context, table string, contentID int64, contentType content.Type, ids []int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("velocty/sqlite: set %s: %w", table, err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`DELETE FROM `+table+` WHERE content_id = ? AND content_type = ?`,
		contentID, string(contentType))
	if err != nil {
		return fmt.Errorf("velocty/sqlite: clear %s: %w", table, err)
	}

	for _, id := range ids {
		_, err = tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO `+table+` (content_id, content_type, related_id) VALUES (?, ?, ?)`,
			contentID, string(contentType), id)
		if err != nil {
			return fmt.Errorf("velocty/sqlite: insert %s: %w", table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("velocty/sqlite: commit %s: %w", table, err)
	}
	return nil
}

// relatedIDs lists related_id values for a content row.
func (s *Store) relatedIDs(ctx context.Context, table string, contentID int64, contentType content.Type) []int64 {
	rows, err := s.db.QueryContext(ctx,
		`SELECT related_id FROM `+table+` WHERE content_id = ? AND content_type = ?`,
		contentID, string(contentType))
	if err != nil {
		s.readFailed("related ids "+table, err)
		return nil
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			s.readFailed("scan related id "+table, err)
			return nil
		}
		out = append(out, id)
	}
	return out
}

// SetCategoriesForContent replaces the full category set for a piece of
// content.
func (s *Store) SetCategoriesForContent(ctx context.Context, contentID int64, contentType content.Type, categoryIDs []int64) error {
	return s.setLinks(ctx, "content_categories", contentID, contentType, categoryIDs)
}

// CategoriesForContent returns the categories attached to a piece of
// content, ordered by name.
func (s *Store) CategoriesForContent(ctx context.Context, contentID int64, contentType content.Type) ([]*content.Category, error) {
	ids := s.relatedIDs(ctx, "content_categories", contentID, contentType)
	if len(ids) == 0 {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, slug, created_at, updated_at FROM categories
		 WHERE id IN (`+placeholders(len(ids))+`) ORDER BY name ASC`,
		int64Args(ids)...)
	if err != nil {
		s.readFailed("categories for content", err)
		return nil, nil
	}
	defer rows.Close()

	var out []*content.Category
	for rows.Next() {
		c, err := scanNamed(rows)
		if err != nil {
			s.readFailed("scan category row", err)
			return nil, nil
		}
		out = append(out, &content.Category{Entity: c.entity, ID: c.id, Name: c.name, Slug: c.slug})
	}
	return out, nil
}

// ContentIDsForCategory returns content IDs attached to a category.
func (s *Store) ContentIDsForCategory(ctx context.Context, categoryID int64, contentType content.Type) ([]int64, error) {
	return s.contentIDsFor(ctx, "content_categories", categoryID, contentType), nil
}

// SetTagsForContent replaces the full tag set for a piece of content.
func (s *Store) SetTagsForContent(ctx context.Context, contentID int64, contentType content.Type, tagIDs []int64) error {
	return s.setLinks(ctx, "content_tags", contentID, contentType, tagIDs)
}

// TagsForContent returns the tags attached to a piece of content, ordered
// by name.
func (s *Store) TagsForContent(ctx context.Context, contentID int64, contentType content.Type) ([]*content.Tag, error) {
	ids := s.relatedIDs(ctx, "content_tags", contentID, contentType)
	if len(ids) == 0 {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, slug, created_at, updated_at FROM tags
		 WHERE id IN (`+placeholders(len(ids))+`) ORDER BY name ASC`,
		int64Args(ids)...)
	if err != nil {
		s.readFailed("tags for content", err)
		return nil, nil
	}
	defer rows.Close()

	var out []*content.Tag
	for rows.Next() {
		c, err := scanNamed(rows)
		if err != nil {
			s.readFailed("scan tag row", err)
			return nil, nil
		}
		out = append(out, &content.Tag{Entity: c.entity, ID: c.id, Name: c.name, Slug: c.slug})
	}
	return out, nil
}

// ContentIDsForTag returns content IDs attached to a tag.
func (s *Store) ContentIDsForTag(ctx context.Context, tagID int64, contentType content.Type) ([]int64, error) {
	return s.contentIDsFor(ctx, "content_tags", tagID, contentType), nil
}

func (s *Store) contentIDsFor(ctx context.Context, table string, relatedID int64, contentType content.Type) []int64 {
	rows, err := s.db.QueryContext(ctx,
		`SELECT content_id FROM `+table+` WHERE related_id = ? AND content_type = ? ORDER BY content_id ASC`,
		relatedID, string(contentType))
	if err != nil {
		s.readFailed("content ids "+table, err)
		return nil
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			s.readFailed("scan content id "+table, err)
			return nil
		}
		out = append(out, id)
	}
	return out
}

// ──────────────────────────────────────────────────
// Comments
// ──────────────────────────────────────────────────

// CreateComment persists a new comment and assigns its ID.
func (s *Store) CreateComment(ctx context.Context, c *content.Comment) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO comments (content_id, content_type, author_name, author_email, body, approved, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ContentID, string(c.ContentType), c.AuthorName, c.AuthorEmail,
		c.Body, c.Approved, toNS(c.CreatedAt), toNS(c.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("velocty/sqlite: create comment: %w", err)
	}
	c.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("velocty/sqlite: create comment id: %w", err)
	}
	return nil
}

// ListComments returns comments for a piece of content, oldest first.
func (s *Store) ListComments(ctx context.Context, contentID int64, contentType content.Type, opts content.CommentListOpts) ([]*content.Comment, error) {
	query := `
		SELECT id, content_id, content_type, author_name, author_email, body, approved, created_at, updated_at
		FROM comments WHERE content_id = ? AND content_type = ?`
	args := []any{contentID, string(contentType)}
	if opts.ApprovedOnly {
		query += ` AND approved = 1`
	}
	query += ` ORDER BY id ASC`
	query, args = applyLimit(query, args, opts.Limit, opts.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		s.readFailed("list comments", err)
		return []*content.Comment{}, nil
	}
	defer rows.Close()

	out := []*content.Comment{}
	for rows.Next() {
		var (
			c         content.Comment
			ctype     string
			createdNS int64
			updatedNS int64
		)
		err := rows.Scan(&c.ID, &c.ContentID, &ctype, &c.AuthorName, &c.AuthorEmail,
			&c.Body, &c.Approved, &createdNS, &updatedNS)
		if err != nil {
			s.readFailed("scan comment row", err)
			return []*content.Comment{}, nil
		}
		c.ContentType = content.Type(ctype)
		c.CreatedAt = fromNS(createdNS)
		c.UpdatedAt = fromNS(updatedNS)
		out = append(out, &c)
	}
	if err := rows.Err(); err != nil {
		s.readFailed("iterate comment rows", err)
		return []*content.Comment{}, nil
	}
	return out, nil
}

// ApproveComment marks a comment as approved.
func (s *Store) ApproveComment(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE comments SET approved = 1, updated_at = ? WHERE id = ?`,
		toNS(now()), id)
	if err != nil {
		return fmt.Errorf("velocty/sqlite: approve comment: %w", err)
	}
	return nil
}

// DeleteComment removes a comment by ID.
func (s *Store) DeleteComment(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM comments WHERE id = ?`, id); err != nil {
		return fmt.Errorf("velocty/sqlite: delete comment: %w", err)
	}
	return nil
}

// CountComments returns the number of approved comments for a piece of
// content.
func (s *Store) CountComments(ctx context.Context, contentID int64, contentType content.Type) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM comments WHERE content_id = ? AND content_type = ? AND approved = 1`,
		contentID, string(contentType)).Scan(&n)
	if err != nil {
		s.readFailed("count comments", err)
		return 0, nil
	}
	return n, nil
}

// ── scan helpers ─────────────────────────────────────────────────

// namedRow is the shared shape of categories and tags.
type namedRow struct {
	id     int64
	name   string
	slug   string
	entity velocty.Entity
}

func scanNamed(row scanner) (namedRow, error) {
	var (
		r         namedRow
		createdNS int64
		updatedNS int64
	)
	if err := row.Scan(&r.id, &r.name, &r.slug, &createdNS, &updatedNS); err != nil {
		return r, err
	}
	r.entity.CreatedAt = fromNS(createdNS)
	r.entity.UpdatedAt = fromNS(updatedNS)
	return r, nil
}

// placeholders returns n comma-separated "?" marks.
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func int64Args(ids []int64) []any {
	out := make([]any, len(ids))
	for i, id := range ids {
		out[i] = id
	}
	return out
}
