package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/marirs/velocty"
	"github.com/marirs/velocty/content"
)

// ──────────────────────────────────────────────────
// Posts
// ──────────────────────────────────────────────────

// CreatePost persists a new post and assigns its ID.
func (s *Store) CreatePost(ctx context.Context, p *content.Post) error {
	id, err := s.nextID(ctx, colPosts)
	if err != nil {
		return err
	}
	p.ID = id

	_, err = s.db.Collection(colPosts).InsertOne(ctx, toPostModel(p))
	if err != nil {
		p.ID = 0
		if isDuplicateKey(err) {
			return velocty.ErrDuplicateSlug
		}
		return fmt.Errorf("velocty/mongo: create post: %w", err)
	}
	return nil
}

// GetPost retrieves a post by ID.
func (s *Store) GetPost(ctx context.Context, id int64) (*content.Post, error) {
	return s.findPost(ctx, "get post", bson.M{"_id": id})
}

// GetPostBySlug retrieves a post by exact slug match.
func (s *Store) GetPostBySlug(ctx context.Context, slug string) (*content.Post, error) {
	return s.findPost(ctx, "get post by slug", bson.M{"slug": slug})
}

// UpdatePost persists changes to an existing post. Likes are excluded:
// the counter is owned by IncrementPostLikes.
func (s *Store) UpdatePost(ctx context.Context, p *content.Post) error {
	_, err := s.db.Collection(colPosts).UpdateOne(ctx,
		bson.M{"_id": p.ID},
		bson.M{"$set": bson.M{
			"title":      p.Title,
			"slug":       p.Slug,
			"body":       p.Body,
			"excerpt":    p.Excerpt,
			"status":     string(p.Status),
			"author_id":  p.AuthorID,
			"publish_at": p.PublishAt,
			"updated_at": now(),
		}},
	)
	if err != nil {
		if isDuplicateKey(err) {
			return velocty.ErrDuplicateSlug
		}
		return fmt.Errorf("velocty/mongo: update post: %w", err)
	}
	return nil
}

// DeletePost removes a post by ID.
func (s *Store) DeletePost(ctx context.Context, id int64) error {
	_, err := s.db.Collection(colPosts).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("velocty/mongo: delete post: %w", err)
	}
	return nil
}

// ListPosts returns posts ordered by creation time, newest first.
func (s *Store) ListPosts(ctx context.Context, opts content.ListOpts) ([]*content.Post, error) {
	filter := bson.M{}
	if opts.Status != "" {
		filter["status"] = string(opts.Status)
	}
	findOpts := options.Find().SetSort(bson.D{
		{Key: "created_at", Value: -1},
		{Key: "_id", Value: -1},
	})
	applyWindow(findOpts, opts.Limit, opts.Offset)

	cursor, err := s.db.Collection(colPosts).Find(ctx, filter, findOpts)
	if err != nil {
		s.readFailed("list posts", err)
		return []*content.Post{}, nil
	}
	defer cursor.Close(ctx)

	var models []postModel
	if err := cursor.All(ctx, &models); err != nil {
		s.readFailed("list posts decode", err)
		return []*content.Post{}, nil
	}

	out := make([]*content.Post, 0, len(models))
	for i := range models {
		out = append(out, fromPostModel(&models[i]))
	}
	return out, nil
}

// CountPosts returns the number of posts with the given status.
func (s *Store) CountPosts(ctx context.Context, status content.Status) (int64, error) {
	filter := bson.M{}
	if status != "" {
		filter["status"] = string(status)
	}
	n, err := s.db.Collection(colPosts).CountDocuments(ctx, filter)
	if err != nil {
		s.readFailed("count posts", err)
		return 0, nil
	}
	return n, nil
}

// IncrementPostLikes adds one to the post's like counter with $inc.
func (s *Store) IncrementPostLikes(ctx context.Context, id int64) error {
	_, err := s.db.Collection(colPosts).UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$inc": bson.M{"likes": int64(1)}},
	)
	if err != nil {
		return fmt.Errorf("velocty/mongo: increment post likes: %w", err)
	}
	return nil
}

// PublishDuePosts flips due scheduled posts to published in one
// conditional UpdateMany.
func (s *Store) PublishDuePosts(ctx context.Context) (int64, error) {
	t := now()
	res, err := s.db.Collection(colPosts).UpdateMany(ctx,
		bson.M{
			"status": string(content.StatusScheduled),
			// $gt zero time excludes posts with no publish time set.
			"publish_at": bson.M{"$gt": time.Time{}, "$lte": t},
		},
		bson.M{"$set": bson.M{
			"status":     string(content.StatusPublished),
			"updated_at": t,
		}},
	)
	if err != nil {
		return 0, fmt.Errorf("velocty/mongo: publish due posts: %w", err)
	}
	return res.ModifiedCount, nil
}

func (s *Store) findPost(ctx context.Context, op string, filter bson.M) (*content.Post, error) {
	var m postModel
	err := s.db.Collection(colPosts).FindOne(ctx, filter).Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, nil
		}
		s.readFailed(op, err)
		return nil, nil
	}
	return fromPostModel(&m), nil
}

// ──────────────────────────────────────────────────
// Portfolio
// ──────────────────────────────────────────────────

// CreateItem persists a new portfolio item and assigns its ID.
func (s *Store) CreateItem(ctx context.Context, it *content.PortfolioItem) error {
	id, err := s.nextID(ctx, colPortfolioItems)
	if err != nil {
		return err
	}
	it.ID = id

	_, err = s.db.Collection(colPortfolioItems).InsertOne(ctx, toItemModel(it))
	if err != nil {
		it.ID = 0
		if isDuplicateKey(err) {
			return velocty.ErrDuplicateSlug
		}
		return fmt.Errorf("velocty/mongo: create item: %w", err)
	}
	return nil
}

// GetItem retrieves a portfolio item by ID.
func (s *Store) GetItem(ctx context.Context, id int64) (*content.PortfolioItem, error) {
	return s.findItem(ctx, "get item", bson.M{"_id": id})
}

// GetItemBySlug retrieves a portfolio item by exact slug match.
func (s *Store) GetItemBySlug(ctx context.Context, slug string) (*content.PortfolioItem, error) {
	return s.findItem(ctx, "get item by slug", bson.M{"slug": slug})
}

// UpdateItem persists changes to an existing portfolio item.
func (s *Store) UpdateItem(ctx context.Context, it *content.PortfolioItem) error {
	m := toItemModel(it)
	m.UpdatedAt = now()
	_, err := s.db.Collection(colPortfolioItems).ReplaceOne(ctx, bson.M{"_id": m.ID}, m)
	if err != nil {
		if isDuplicateKey(err) {
			return velocty.ErrDuplicateSlug
		}
		return fmt.Errorf("velocty/mongo: update item: %w", err)
	}
	return nil
}

// DeleteItem removes a portfolio item by ID.
func (s *Store) DeleteItem(ctx context.Context, id int64) error {
	_, err := s.db.Collection(colPortfolioItems).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("velocty/mongo: delete item: %w", err)
	}
	return nil
}

// ListItems returns portfolio items ordered by sort order, then ID.
func (s *Store) ListItems(ctx context.Context, opts content.ListOpts) ([]*content.PortfolioItem, error) {
	filter := bson.M{}
	if opts.Status != "" {
		filter["status"] = string(opts.Status)
	}
	findOpts := options.Find().SetSort(bson.D{
		{Key: "sort_order", Value: 1},
		{Key: "_id", Value: 1},
	})
	applyWindow(findOpts, opts.Limit, opts.Offset)

	cursor, err := s.db.Collection(colPortfolioItems).Find(ctx, filter, findOpts)
	if err != nil {
		s.readFailed("list items", err)
		return []*content.PortfolioItem{}, nil
	}
	defer cursor.Close(ctx)

	var models []portfolioItemModel
	if err := cursor.All(ctx, &models); err != nil {
		s.readFailed("list items decode", err)
		return []*content.PortfolioItem{}, nil
	}

	out := make([]*content.PortfolioItem, 0, len(models))
	for i := range models {
		out = append(out, fromItemModel(&models[i]))
	}
	return out, nil
}

func (s *Store) findItem(ctx context.Context, op string, filter bson.M) (*content.PortfolioItem, error) {
	var m portfolioItemModel
	err := s.db.Collection(colPortfolioItems).FindOne(ctx, filter).Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, nil
		}
		s.readFailed(op, err)
		return nil, nil
	}
	return fromItemModel(&m), nil
}

// ──────────────────────────────────────────────────
// Taxonomy
// ──────────────────────────────────────────────────

// CreateCategory persists a new category and assigns its ID.
func (s *Store) CreateCategory(ctx context.Context, c *content.Category) error {
	id, err := s.nextID(ctx, colCategories)
	if err != nil {
		return err
	}
	c.ID = id

	_, err = s.db.Collection(colCategories).InsertOne(ctx, &namedModel{
		ID: c.ID, Name: c.Name, Slug: c.Slug,
		CreatedAt: c.CreatedAt, UpdatedAt: c.UpdatedAt,
	})
	if err != nil {
		c.ID = 0
		if isDuplicateKey(err) {
			return velocty.ErrDuplicateSlug
		}
		return fmt.Errorf("velocty/mongo: create category: %w", err)
	}
	return nil
}

// GetCategoryBySlug retrieves a category by exact slug match.
func (s *Store) GetCategoryBySlug(ctx context.Context, slug string) (*content.Category, error) {
	m, ok := s.findNamed(ctx, colCategories, "get category by slug", bson.M{"slug": slug})
	if !ok {
		return nil, nil
	}
	return fromCategoryModel(m), nil
}

// ListCategories returns all categories ordered by name.
func (s *Store) ListCategories(ctx context.Context) ([]*content.Category, error) {
	models := s.listNamed(ctx, colCategories, "list categories")
	out := make([]*content.Category, 0, len(models))
	for i := range models {
		out = append(out, fromCategoryModel(&models[i]))
	}
	return out, nil
}

// DeleteCategory removes a category by ID.
func (s *Store) DeleteCategory(ctx context.Context, id int64) error {
	_, err := s.db.Collection(colCategories).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("velocty/mongo: delete category: %w", err)
	}
	return nil
}

// CreateTag persists a new tag and assigns its ID.
func (s *Store) CreateTag(ctx context.Context, t *content.Tag) error {
	id, err := s.nextID(ctx, colTags)
	if err != nil {
		return err
	}
	t.ID = id

	_, err = s.db.Collection(colTags).InsertOne(ctx, &namedModel{
		ID: t.ID, Name: t.Name, Slug: t.Slug,
		CreatedAt: t.CreatedAt, UpdatedAt: t.UpdatedAt,
	})
	if err != nil {
		t.ID = 0
		if isDuplicateKey(err) {
			return velocty.ErrDuplicateSlug
		}
		return fmt.Errorf("velocty/mongo: create tag: %w", err)
	}
	return nil
}

// GetTagBySlug retrieves a tag by exact slug match.
func (s *Store) GetTagBySlug(ctx context.Context, slug string) (*content.Tag, error) {
	m, ok := s.findNamed(ctx, colTags, "get tag by slug", bson.M{"slug": slug})
	if !ok {
		return nil, nil
	}
	return fromTagModel(m), nil
}

// ListTags returns all tags ordered by name.
func (s *Store) ListTags(ctx context.Context) ([]*content.Tag, error) {
	models := s.listNamed(ctx, colTags, "list tags")
	out := make([]*content.Tag, 0, len(models))
	for i := range models {
		out = append(out, fromTagModel(&models[i]))
	}
	return out, nil
}

// DeleteTag removes a tag by ID.
func (s *Store) DeleteTag(ctx context.Context, id int64) error {
	_, err := s.db.Collection(colTags).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("velocty/mongo: delete tag: %w", err)
	}
	return nil
}

func (s *Store) findNamed(ctx context.Context, col, op string, filter bson.M) (*namedModel, bool) {
	var m namedModel
	err := s.db.Collection(col).FindOne(ctx, filter).Decode(&m)
	if err != nil {
		if !isNoDocuments(err) {
			s.readFailed(op, err)
		}
		return nil, false
	}
	return &m, true
}

func (s *Store) listNamed(ctx context.Context, col, op string) []namedModel {
	findOpts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})
	cursor, err := s.db.Collection(col).Find(ctx, bson.M{}, findOpts)
	if err != nil {
		s.readFailed(op, err)
		return nil
	}
	defer cursor.Close(ctx)

	var models []namedModel
	if err := cursor.All(ctx, &models); err != nil {
		s.readFailed(op+" decode", err)
		return nil
	}
	return models
}

// ──────────────────────────────────────────────────
// Junctions
// ──────────────────────────────────────────────────

// SetCategoriesForContent replaces the full category set for a piece of
// content.
func (s *Store) SetCategoriesForContent(ctx context.Context, contentID int64, contentType content.Type, categoryIDs []int64) error {
	return s.replaceLinks(ctx, colContentCategories, contentID, contentType, categoryIDs)
}

// CategoriesForContent returns the categories attached to a piece of
// content, ordered by name.
func (s *Store) CategoriesForContent(ctx context.Context, contentID int64, contentType content.Type) ([]*content.Category, error) {
	ids := s.relatedIDs(ctx, colContentCategories, contentID, contentType)
	models := s.namedByIDs(ctx, colCategories, "categories for content", ids)
	out := make([]*content.Category, 0, len(models))
	for i := range models {
		out = append(out, fromCategoryModel(&models[i]))
	}
	return out, nil
}

// ContentIDsForCategory returns the IDs of content of the given type
// attached to a category.
func (s *Store) ContentIDsForCategory(ctx context.Context, categoryID int64, contentType content.Type) ([]int64, error) {
	return s.contentIDsFor(ctx, colContentCategories, categoryID, contentType), nil
}

// SetTagsForContent replaces the full tag set for a piece of content.
func (s *Store) SetTagsForContent(ctx context.Context, contentID int64, contentType content.Type, tagIDs []int64) error {
	return s.replaceLinks(ctx, colContentTags, contentID, contentType, tagIDs)
}

// TagsForContent returns the tags attached to a piece of content,
// ordered by name.
func (s *Store) TagsForContent(ctx context.Context, contentID int64, contentType content.Type) ([]*content.Tag, error) {
	ids := s.relatedIDs(ctx, colContentTags, contentID, contentType)
	models := s.namedByIDs(ctx, colTags, "tags for content", ids)
	out := make([]*content.Tag, 0, len(models))
	for i := range models {
		out = append(out, fromTagModel(&models[i]))
	}
	return out, nil
}

// ContentIDsForTag returns the IDs of content of the given type attached
// to a tag.
func (s *Store) ContentIDsForTag(ctx context.Context, tagID int64, contentType content.Type) ([]int64, error) {
	return s.contentIDsFor(ctx, colContentTags, tagID, contentType), nil
}

// replaceLinks removes every junction document for the content and
// inserts one per related ID. The unique compound index makes a replay
// after a partial failure converge rather than duplicate.
func (s *Store) replaceLinks(ctx context.Context, col string, contentID int64, contentType content.Type, relatedIDs []int64) error {
	c := s.db.Collection(col)
	_, err := c.DeleteMany(ctx, bson.M{
		"content_id":   contentID,
		"content_type": string(contentType),
	})
	if err != nil {
		return fmt.Errorf("velocty/mongo: clear links %s: %w", col, err)
	}
	if len(relatedIDs) == 0 {
		return nil
	}

	docs := make([]any, 0, len(relatedIDs))
	for _, id := range relatedIDs {
		docs = append(docs, &linkModel{
			ContentID:   contentID,
			ContentType: string(contentType),
			RelatedID:   id,
		})
	}
	if _, err := c.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("velocty/mongo: insert links %s: %w", col, err)
	}
	return nil
}

func (s *Store) relatedIDs(ctx context.Context, col string, contentID int64, contentType content.Type) []int64 {
	cursor, err := s.db.Collection(col).Find(ctx, bson.M{
		"content_id":   contentID,
		"content_type": string(contentType),
	})
	if err != nil {
		s.readFailed("related ids", err)
		return nil
	}
	defer cursor.Close(ctx)

	var links []linkModel
	if err := cursor.All(ctx, &links); err != nil {
		s.readFailed("related ids decode", err)
		return nil
	}

	ids := make([]int64, 0, len(links))
	for _, l := range links {
		ids = append(ids, l.RelatedID)
	}
	return ids
}

func (s *Store) contentIDsFor(ctx context.Context, col string, relatedID int64, contentType content.Type) []int64 {
	findOpts := options.Find().SetSort(bson.D{{Key: "content_id", Value: 1}})
	cursor, err := s.db.Collection(col).Find(ctx, bson.M{
		"related_id":   relatedID,
		"content_type": string(contentType),
	}, findOpts)
	if err != nil {
		s.readFailed("content ids", err)
		return []int64{}
	}
	defer cursor.Close(ctx)

	var links []linkModel
	if err := cursor.All(ctx, &links); err != nil {
		s.readFailed("content ids decode", err)
		return []int64{}
	}

	ids := make([]int64, 0, len(links))
	for _, l := range links {
		ids = append(ids, l.ContentID)
	}
	return ids
}

func (s *Store) namedByIDs(ctx context.Context, col, op string, ids []int64) []namedModel {
	if len(ids) == 0 {
		return nil
	}
	findOpts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})
	cursor, err := s.db.Collection(col).Find(ctx, bson.M{"_id": bson.M{"$in": ids}}, findOpts)
	if err != nil {
		s.readFailed(op, err)
		return nil
	}
	defer cursor.Close(ctx)

	var models []namedModel
	if err := cursor.All(ctx, &models); err != nil {
		s.readFailed(op+" decode", err)
		return nil
	}
	return models
}

// ──────────────────────────────────────────────────
// Comments
// ──────────────────────────────────────────────────

// CreateComment persists a new comment and assigns its ID.
func (s *Store) CreateComment(ctx context.Context, c *content.Comment) error {
	id, err := s.nextID(ctx, colComments)
	if err != nil {
		return err
	}
	c.ID = id

	_, err = s.db.Collection(colComments).InsertOne(ctx, toCommentModel(c))
	if err != nil {
		c.ID = 0
		return fmt.Errorf("velocty/mongo: create comment: %w", err)
	}
	return nil
}

// ListComments returns comments for a piece of content, oldest first.
func (s *Store) ListComments(ctx context.Context, contentID int64, contentType content.Type, opts content.CommentListOpts) ([]*content.Comment, error) {
	filter := bson.M{
		"content_id":   contentID,
		"content_type": string(contentType),
	}
	if opts.ApprovedOnly {
		filter["approved"] = true
	}
	findOpts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	applyWindow(findOpts, opts.Limit, opts.Offset)

	cursor, err := s.db.Collection(colComments).Find(ctx, filter, findOpts)
	if err != nil {
		s.readFailed("list comments", err)
		return []*content.Comment{}, nil
	}
	defer cursor.Close(ctx)

	var models []commentModel
	if err := cursor.All(ctx, &models); err != nil {
		s.readFailed("list comments decode", err)
		return []*content.Comment{}, nil
	}

	out := make([]*content.Comment, 0, len(models))
	for i := range models {
		out = append(out, fromCommentModel(&models[i]))
	}
	return out, nil
}

// ApproveComment marks a comment as approved.
func (s *Store) ApproveComment(ctx context.Context, id int64) error {
	_, err := s.db.Collection(colComments).UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"approved": true, "updated_at": now()}},
	)
	if err != nil {
		return fmt.Errorf("velocty/mongo: approve comment: %w", err)
	}
	return nil
}

// DeleteComment removes a comment by ID.
func (s *Store) DeleteComment(ctx context.Context, id int64) error {
	_, err := s.db.Collection(colComments).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("velocty/mongo: delete comment: %w", err)
	}
	return nil
}

// CountComments returns the number of approved comments for a piece of
// content.
func (s *Store) CountComments(ctx context.Context, contentID int64, contentType content.Type) (int64, error) {
	n, err := s.db.Collection(colComments).CountDocuments(ctx, bson.M{
		"content_id":   contentID,
		"content_type": string(contentType),
		"approved":     true,
	})
	if err != nil {
		s.readFailed("count comments", err)
		return 0, nil
	}
	return n, nil
}
