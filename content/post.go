package content

import (
	"time"

	"github.com/marirs/velocty"
)

// Status is the publication state of a piece of content.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusScheduled Status = "scheduled"
	StatusPublished Status = "published"
)

// Type discriminates junction and comment rows between content kinds.
type Type string

const (
	TypePost      Type = "post"
	TypePortfolio Type = "portfolio"
)

// Post is a blog entry.
type Post struct {
	velocty.Entity

	ID       int64  `json:"id"`
	Title    string `json:"title"`
	Slug     string `json:"slug"`
	Body     string `json:"body"`
	Excerpt  string `json:"excerpt"`
	Status   Status `json:"status"`
	AuthorID int64  `json:"author_id"`

	// PublishAt is when a scheduled post goes live; zero for drafts and
	// immediately-published posts.
	PublishAt time.Time `json:"publish_at"`

	// Likes is incremented atomically by the adapter, never read-modify-
	// written in application code.
	Likes int64 `json:"likes"`
}
