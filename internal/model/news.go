package model

import "time"

// NewsItem is one article from the aggregator.
type NewsItem struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Source      string    `json:"source"`
	URL         string    `json:"url,omitempty"`
	PublishedAt time.Time `json:"published_at"`
	Categories  []string  `json:"categories"`
	Thumbnail   string    `json:"thumbnail,omitempty"`
}

// HasCategory reports whether the item is tagged with category.
func (n NewsItem) HasCategory(category string) bool {
	for _, c := range n.Categories {
		if c == category {
			return true
		}
	}
	return false
}
