package memory

import (
	"context"
	"sort"
	"time"

	"github.com/marirs/velocty"
	"github.com/marirs/velocty/content"
)

// ──────────────────────────────────────────────────
// Posts
// ──────────────────────────────────────────────────

// CreatePost persists a new post and assigns its ID.
func (m *Store) CreatePost(_ context.Context, p *content.Post) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.posts {
		if existing.Slug == p.Slug {
			return velocty.ErrDuplicateSlug
		}
	}

	p.ID = m.nextID("posts")
	cp := *p
	m.posts[p.ID] = &cp
	return nil
}

// GetPost retrieves a post by ID.
func (m *Store) GetPost(_ context.Context, id int64) (*content.Post, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.posts[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

// GetPostBySlug retrieves a post by exact slug match.
func (m *Store) GetPostBySlug(_ context.Context, slug string) (*content.Post, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, p := range m.posts {
		if p.Slug == slug {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

// UpdatePost persists changes to an existing post.
func (m *Store) UpdatePost(_ context.Context, p *content.Post) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.posts[p.ID]; !ok {
		return nil
	}
	cp := *p
	cp.UpdatedAt = time.Now().UTC()
	m.posts[p.ID] = &cp
	return nil
}

// DeletePost removes a post by ID.
func (m *Store) DeletePost(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.posts, id)
	return nil
}

// ListPosts returns posts ordered by creation time, newest first.
func (m *Store) ListPosts(_ context.Context, opts content.ListOpts) ([]*content.Post, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	all := make([]*content.Post, 0, len(m.posts))
	for _, p := range m.posts {
		if opts.Status != "" && p.Status != opts.Status {
			continue
		}
		cp := *p
		all = append(all, &cp)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID > all[j].ID
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	return paginate(all, opts.Limit, opts.Offset), nil
}

// CountPosts returns the number of posts with the given status.
func (m *Store) CountPosts(_ context.Context, status content.Status) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var n int64
	for _, p := range m.posts {
		if status == "" || p.Status == status {
			n++
		}
	}
	return n, nil
}

// IncrementPostLikes adds one to the post's like counter.
func (m *Store) IncrementPostLikes(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if p, ok := m.posts[id]; ok {
		p.Likes++
	}
	return nil
}

// PublishDuePosts flips scheduled posts whose PublishAt has passed to
// published, returning how many were published.
func (m *Store) PublishDuePosts(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	var n int64
	for _, p := range m.posts {
		if p.Status == content.StatusScheduled && !p.PublishAt.IsZero() && !p.PublishAt.After(now) {
			p.Status = content.StatusPublished
			p.UpdatedAt = now
			n++
		}
	}
	return n, nil
}

// ──────────────────────────────────────────────────
// Portfolio
// ──────────────────────────────────────────────────

// CreateItem persists a new portfolio item and assigns its ID.
func (m *Store) CreateItem(_ context.Context, it *content.PortfolioItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.items {
		if existing.Slug == it.Slug {
			return velocty.ErrDuplicateSlug
		}
	}

	it.ID = m.nextID("portfolio_items")
	cp := *it
	m.items[it.ID] = &cp
	return nil
}

// GetItem retrieves a portfolio item by ID.
func (m *Store) GetItem(_ context.Context, id int64) (*content.PortfolioItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	it, ok := m.items[id]
	if !ok {
		return nil, nil
	}
	cp := *it
	return &cp, nil
}

// GetItemBySlug retrieves a portfolio item by exact slug match.
func (m *Store) GetItemBySlug(_ context.Context, slug string) (*content.PortfolioItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, it := range m.items {
		if it.Slug == slug {
			cp := *it
			return &cp, nil
		}
	}
	return nil, nil
}

// UpdateItem persists changes to an existing portfolio item.
func (m *Store) UpdateItem(_ context.Context, it *content.PortfolioItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.items[it.ID]; !ok {
		return nil
	}
	cp := *it
	cp.UpdatedAt = time.Now().UTC()
	m.items[it.ID] = &cp
	return nil
}

// DeleteItem removes a portfolio item by ID.
func (m *Store) DeleteItem(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, id)
	return nil
}

// ListItems returns portfolio items ordered by sort order, then ID.
func (m *Store) ListItems(_ context.Context, opts content.ListOpts) ([]*content.PortfolioItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	all := make([]*content.PortfolioItem, 0, len(m.items))
	for _, it := range m.items {
		if opts.Status != "" && it.Status != opts.Status {
			continue
		}
		cp := *it
		all = append(all, &cp)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].SortOrder == all[j].SortOrder {
			return all[i].ID < all[j].ID
		}
		return all[i].SortOrder < all[j].SortOrder
	})

	return paginate(all, opts.Limit, opts.Offset), nil
}

// ──────────────────────────────────────────────────
// Taxonomy
// ──────────────────────────────────────────────────

// CreateCategory persists a new category and assigns its ID.
func (m *Store) CreateCategory(_ context.Context, c *content.Category) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.categories {
		if existing.Slug == c.Slug {
			return velocty.ErrDuplicateSlug
		}
	}

	c.ID = m.nextID("categories")
	cp := *c
	m.categories[c.ID] = &cp
	return nil
}

// GetCategoryBySlug retrieves a category by exact slug match.
func (m *Store) GetCategoryBySlug(_ context.Context, slug string) (*content.Category, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, c := range m.categories {
		if c.Slug == slug {
			cp := *c
			return &cp, nil
		}
	}
	return nil, nil
}

// ListCategories returns all categories ordered by name.
func (m *Store) ListCategories(_ context.Context) ([]*content.Category, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	all := make([]*content.Category, 0, len(m.categories))
	for _, c := range m.categories {
		cp := *c
		all = append(all, &cp)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })
	return all, nil
}

// DeleteCategory removes a category by ID.
func (m *Store) DeleteCategory(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.categories, id)
	return nil
}

// CreateTag persists a new tag and assigns its ID.
func (m *Store) CreateTag(_ context.Context, t *content.Tag) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.tags {
		if existing.Slug == t.Slug {
			return velocty.ErrDuplicateSlug
		}
	}

	t.ID = m.nextID("tags")
	cp := *t
	m.tags[t.ID] = &cp
	return nil
}

// GetTagBySlug retrieves a tag by exact slug match.
func (m *Store) GetTagBySlug(_ context.Context, slug string) (*content.Tag, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, t := range m.tags {
		if t.Slug == slug {
			cp := *t
			return &cp, nil
		}
	}
	return nil, nil
}

// ListTags returns all tags ordered by name.
func (m *Store) ListTags(_ context.Context) ([]*content.Tag, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	all := make([]*content.Tag, 0, len(m.tags))
	for _, t := range m.tags {
		cp := *t
		all = append(all, &cp)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })
	return all, nil
}

// DeleteTag removes a tag by ID.
func (m *Store) DeleteTag(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tags, id)
	return nil
}

// ──────────────────────────────────────────────────
// Junctions
// ──────────────────────────────────────────────────

// replaceLinks is the full-replace primitive both junction setters share.
func replaceLinks(links []junction, contentID int64, contentType content.Type, ids []int64) []junction {
	kept := links[:0]
	for _, l := range links {
		if l.contentID == contentID && l.contentType == contentType {
			continue
		}
		kept = append(kept, l)
	}
	for _, id := range ids {
		kept = append(kept, junction{contentID: contentID, contentType: contentType, relatedID: id})
	}
	return kept
}

// SetCategoriesForContent replaces the full category set for a piece of
// content.
func (m *Store) SetCategoriesForContent(_ context.Context, contentID int64, contentType content.Type, categoryIDs []int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.catLinks = replaceLinks(m.catLinks, contentID, contentType, categoryIDs)
	return nil
}

// CategoriesForContent returns the categories attached to a piece of
// content, ordered by name.
func (m *Store) CategoriesForContent(_ context.Context, contentID int64, contentType content.Type) ([]*content.Category, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*content.Category
	for _, l := range m.catLinks {
		if l.contentID != contentID || l.contentType != contentType {
			continue
		}
		if c, ok := m.categories[l.relatedID]; ok {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// ContentIDsForCategory returns content IDs attached to a category.
func (m *Store) ContentIDsForCategory(_ context.Context, categoryID int64, contentType content.Type) ([]int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []int64
	for _, l := range m.catLinks {
		if l.relatedID == categoryID && l.contentType == contentType {
			out = append(out, l.contentID)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

// SetTagsForContent replaces the full tag set for a piece of content.
func (m *Store) SetTagsForContent(_ context.Context, contentID int64, contentType content.Type, tagIDs []int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tagLinks = replaceLinks(m.tagLinks, contentID, contentType, tagIDs)
	return nil
}

// TagsForContent returns the tags attached to a piece of content, ordered
// by name.
func (m *Store) TagsForContent(_ context.Context, contentID int64, contentType content.Type) ([]*content.Tag, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*content.Tag
	for _, l := range m.tagLinks {
		if l.contentID != contentID || l.contentType != contentType {
			continue
		}
		if t, ok := m.tags[l.relatedID]; ok {
			cp := *t
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// ContentIDsForTag returns content IDs attached to a tag.
func (m *Store) ContentIDsForTag(_ context.Context, tagID int64, contentType content.Type) ([]int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []int64
	for _, l := range m.tagLinks {
		if l.relatedID == tagID && l.contentType == contentType {
			out = append(out, l.contentID)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

// ──────────────────────────────────────────────────
// Comments
// ──────────────────────────────────────────────────

// CreateComment persists a new comment and assigns its ID.
func (m *Store) CreateComment(_ context.Context, c *content.Comment) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c.ID = m.nextID("comments")
	cp := *c
	m.comments[c.ID] = &cp
	return nil
}

// ListComments returns comments for a piece of content, oldest first.
func (m *Store) ListComments(_ context.Context, contentID int64, contentType content.Type, opts content.CommentListOpts) ([]*content.Comment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	all := make([]*content.Comment, 0)
	for _, c := range m.comments {
		if c.ContentID != contentID || c.ContentType != contentType {
			continue
		}
		if opts.ApprovedOnly && !c.Approved {
			continue
		}
		cp := *c
		all = append(all, &cp)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })

	return paginate(all, opts.Limit, opts.Offset), nil
}

// ApproveComment marks a comment as approved.
func (m *Store) ApproveComment(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if c, ok := m.comments[id]; ok {
		c.Approved = true
		c.UpdatedAt = time.Now().UTC()
	}
	return nil
}

// DeleteComment removes a comment by ID.
func (m *Store) DeleteComment(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.comments, id)
	return nil
}

// CountComments returns the number of approved comments for a piece of
// content.
func (m *Store) CountComments(_ context.Context, contentID int64, contentType content.Type) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var n int64
	for _, c := range m.comments {
		if c.ContentID == contentID && c.ContentType == contentType && c.Approved {
			n++
		}
	}
	return n, nil
}
