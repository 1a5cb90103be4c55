package template

import (
	"time"

	"github.com/R3E-Network/framestore/manifest"
)

// Template is a reusable manifest published to the marketplace.
type Template struct {
	ID           string            `json:"id"`
	CreatorID    string            `json:"creator_id"`
	Name         string            `json:"name"`
	Description  string            `json:"description"`
	Category     string            `json:"category"`
	Tags         []string          `json:"tags"`
	PreviewImage string            `json:"preview_image"`
	Manifest     manifest.Manifest `json:"template_data"`
	IsPublic     bool              `json:"is_public"`
	IsFeatured   bool              `json:"is_featured"`
	PriceCents   int               `json:"price_cents"`
	Downloads    int               `json:"downloads"`
	Rating       float64           `json:"rating"`
	CreatedAt    time.Time         `json:"created_at"`
}

// Filter narrows marketplace listings. Only public templates are listed.
type Filter struct {
	Category     string
	FeaturedOnly bool
}

// Matches reports whether t passes the filter.
func (f Filter) Matches(t Template) bool {
	if !t.IsPublic {
		return false
	}
	if f.Category != "" && t.Category != f.Category {
		return false
	}
	if f.FeaturedOnly && !t.IsFeatured {
		return false
	}
	return true
}
