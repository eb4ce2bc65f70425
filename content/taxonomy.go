package content

import "github.com/marirs/velocty"

// Category groups content; a piece of content may carry several.
type Category struct {
	velocty.Entity

	ID   int64  `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// Tag is a free-form label attached to content.
type Tag struct {
	velocty.Entity

	ID   int64  `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}
