package content

import "context"

// ListOpts controls pagination and filtering for content list queries.
type ListOpts struct {
	// Limit is the maximum number of rows to return. Zero means no limit.
	Limit int
	// Offset is the number of rows to skip.
	Offset int
	// Status filters by publication status. Empty means all statuses.
	Status Status
}

// CommentListOpts controls pagination and filtering for comment queries.
type CommentListOpts struct {
	// Limit is the maximum number of comments to return. Zero means no limit.
	Limit int
	// Offset is the number of comments to skip.
	Offset int
	// ApprovedOnly restricts the result to approved comments.
	ApprovedOnly bool
}

// Store defines the persistence contract for posts, portfolio items,
// taxonomy and comments.
//
// Slug lookups are exact and case-sensitive. Reads degrade to the zero
// value when the backend is unreachable; mutating operations report the
// failure.
type Store interface {
	// ── posts ──

	// CreatePost persists a new post and assigns its ID.
	CreatePost(ctx context.Context, p *Post) error

	// GetPost retrieves a post by ID.
	GetPost(ctx context.Context, id int64) (*Post, error)

	// GetPostBySlug retrieves a post by exact slug match.
	GetPostBySlug(ctx context.Context, slug string) (*Post, error)

	// UpdatePost persists changes to an existing post.
	UpdatePost(ctx context.Context, p *Post) error

	// DeletePost removes a post by ID. Junction rows and comments are the
	// caller's responsibility to remove first; no backend enforces
	// referential integrity.
	DeletePost(ctx context.Context, id int64) error

	// ListPosts returns posts ordered by creation time, newest first.
	ListPosts(ctx context.Context, opts ListOpts) ([]*Post, error)

	// CountPosts returns the number of posts with the given status.
	// Empty status counts all posts.
	CountPosts(ctx context.Context, status Status) (int64, error)

	// IncrementPostLikes adds one to the post's like counter atomically
	// at the storage layer.
	IncrementPostLikes(ctx context.Context, id int64) error

	// PublishDuePosts flips every scheduled post whose PublishAt has
	// passed to published in a single conditional update, returning how
	// many posts were published.
	PublishDuePosts(ctx context.Context) (int64, error)

	// ── portfolio ──

	// CreateItem persists a new portfolio item and assigns its ID.
	CreateItem(ctx context.Context, it *PortfolioItem) error

	// GetItem retrieves a portfolio item by ID.
	GetItem(ctx context.Context, id int64) (*PortfolioItem, error)

	// GetItemBySlug retrieves a portfolio item by exact slug match.
	GetItemBySlug(ctx context.Context, slug string) (*PortfolioItem, error)

	// UpdateItem persists changes to an existing portfolio item.
	UpdateItem(ctx context.Context, it *PortfolioItem) error

	// DeleteItem removes a portfolio item by ID.
	DeleteItem(ctx context.Context, id int64) error

	// ListItems returns portfolio items ordered by sort order, then ID.
	ListItems(ctx context.Context, opts ListOpts) ([]*PortfolioItem, error)

	// ── taxonomy ──

	// CreateCategory persists a new category and assigns its ID.
	CreateCategory(ctx context.Context, c *Category) error

	// GetCategoryBySlug retrieves a category by exact slug match.
	GetCategoryBySlug(ctx context.Context, slug string) (*Category, error)

	// ListCategories returns all categories ordered by name.
	ListCategories(ctx context.Context) ([]*Category, error)

	// DeleteCategory removes a category by ID. Junction rows referencing
	// it must be removed by the caller first.
	DeleteCategory(ctx context.Context, id int64) error

	// CreateTag persists a new tag and assigns its ID.
	CreateTag(ctx context.Context, t *Tag) error

	// GetTagBySlug retrieves a tag by exact slug match.
	GetTagBySlug(ctx context.Context, slug string) (*Tag, error)

	// ListTags returns all tags ordered by name.
	ListTags(ctx context.Context) ([]*Tag, error)

	// DeleteTag removes a tag by ID.
	DeleteTag(ctx context.Context, id int64) error

	// ── junctions ──

	// SetCategoriesForContent replaces the full category set for a piece
	// of content: all existing junction rows for (contentID, contentType)
	// are removed, then one row per given category is inserted. Calling
	// twice with the same set leaves exactly one row per category.
	SetCategoriesForContent(ctx context.Context, contentID int64, contentType Type, categoryIDs []int64) error

	// CategoriesForContent returns the categories attached to a piece of
	// content, ordered by name.
	CategoriesForContent(ctx context.Context, contentID int64, contentType Type) ([]*Category, error)

	// ContentIDsForCategory returns the IDs of content of the given type
	// attached to a category.
	ContentIDsForCategory(ctx context.Context, categoryID int64, contentType Type) ([]int64, error)

	// SetTagsForContent replaces the full tag set for a piece of content,
	// with the same semantics as SetCategoriesForContent.
	SetTagsForContent(ctx context.Context, contentID int64, contentType Type, tagIDs []int64) error

	// TagsForContent returns the tags attached to a piece of content,
	// ordered by name.
	TagsForContent(ctx context.Context, contentID int64, contentType Type) ([]*Tag, error)

	// ContentIDsForTag returns the IDs of content of the given type
	// attached to a tag.
	ContentIDsForTag(ctx context.Context, tagID int64, contentType Type) ([]int64, error)

	// ── comments ──

	// CreateComment persists a new comment and assigns its ID.
	CreateComment(ctx context.Context, c *Comment) error

	// ListComments returns comments for a piece of content, oldest first.
	ListComments(ctx context.Context, contentID int64, contentType Type, opts CommentListOpts) ([]*Comment, error)

	// ApproveComment marks a comment as approved.
	ApproveComment(ctx context.Context, id int64) error

	// DeleteComment removes a comment by ID.
	DeleteComment(ctx context.Context, id int64) error

	// CountComments returns the number of approved comments for a piece
	// of content.
	CountComments(ctx context.Context, contentID int64, contentType Type) (int64, error)
}
