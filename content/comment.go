package content

import "github.com/marirs/velocty"

// Comment is a visitor comment on a post or portfolio item. Comments start
// unapproved and are hidden from public listings until approved.
type Comment struct {
	velocty.Entity

	ID          int64  `json:"id"`
	ContentID   int64  `json:"content_id"`
	ContentType Type   `json:"content_type"`
	AuthorName  string `json:"author_name"`
	AuthorEmail string `json:"author_email"`
	Body        string `json:"body"`
	Approved    bool   `json:"approved"`
}
