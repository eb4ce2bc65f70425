package content

import "github.com/marirs/velocty"

// PortfolioItem is a showcased project.
type PortfolioItem struct {
	velocty.Entity

	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
	ImagePath   string `json:"image_path"`
	ProjectURL  string `json:"project_url"`
	SortOrder   int    `json:"sort_order"`
	Status      Status `json:"status"`
}
