package domain

import (
	"strings"
	"time"
)

// Suggest weights for the autocomplete field, highest first.
const (
	SuggestWeightName       = 100
	SuggestWeightExternalID = 95
	SuggestWeightSKU        = 90
	SuggestWeightBrand      = 70
)

// Attribute is a single name/value/unit triple attached to a product.
type Attribute struct {
	Name  string `json:"name"`
	Value string `json:"value"`
	Unit  string `json:"unit,omitempty"`
}

// SuggestEntry is one weighted phrase of the autocomplete field, in the
// completion-suggester input/weight format.
type SuggestEntry struct {
	Input  string `json:"input"`
	Weight int    `json:"weight"`
}

// ProductDocument is the denormalized index-time projection of a product.
// Pricing and stock are deliberately absent and must never be added.
// Empty fields are omitted so documents stay compact.
type ProductDocument struct {
	ID             string         `json:"id"`
	ExternalID     string         `json:"external_id,omitempty"`
	SKU            string         `json:"sku,omitempty"`
	Name           string         `json:"name"`
	Description    string         `json:"description,omitempty"`
	BrandID        string         `json:"brand_id,omitempty"`
	BrandName      string         `json:"brand_name,omitempty"`
	SeriesID       string         `json:"series_id,omitempty"`
	SeriesName     string         `json:"series_name,omitempty"`
	CategoryIDs    []string       `json:"category_ids,omitempty"`
	CategoryNames  []string       `json:"category_names,omitempty"`
	ImageURLs      []string       `json:"image_urls,omitempty"`
	Attributes     []Attribute    `json:"attributes,omitempty"`
	DocumentCounts map[string]int `json:"document_counts,omitempty"`
	Popularity     float64        `json:"popularity"`
	HasImages      bool           `json:"has_images"`
	HasDescription bool           `json:"has_description"`
	SearchText     string         `json:"search_text,omitempty"`
	Suggest        []SuggestEntry `json:"suggest,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// Finalize derives the computed fields (flags, search text, suggest list)
// from the assembled base fields. It is idempotent.
func (d *ProductDocument) Finalize() {
	d.HasImages = len(d.ImageURLs) > 0
	d.HasDescription = strings.TrimSpace(d.Description) != ""
	d.SearchText = d.buildSearchText()
	d.Suggest = d.buildSuggest()
}

// buildSearchText flattens every searchable text field into a single
// whitespace-normalized blob.
func (d *ProductDocument) buildSearchText() string {
	parts := make([]string, 0, 8+len(d.CategoryNames)+len(d.Attributes))
	parts = append(parts, d.Name, d.ExternalID, d.SKU, d.BrandName, d.SeriesName, d.Description)
	parts = append(parts, d.CategoryNames...)
	for _, a := range d.Attributes {
		parts = append(parts, a.Value)
	}

	joined := strings.Join(parts, " ")
	return strings.Join(strings.Fields(joined), " ")
}

// buildSuggest produces the weighted autocomplete phrase list. Empty source
// fields contribute nothing.
func (d *ProductDocument) buildSuggest() []SuggestEntry {
	var entries []SuggestEntry
	add := func(input string, weight int) {
		if strings.TrimSpace(input) != "" {
			entries = append(entries, SuggestEntry{Input: input, Weight: weight})
		}
	}
	add(d.Name, SuggestWeightName)
	add(d.ExternalID, SuggestWeightExternalID)
	add(d.SKU, SuggestWeightSKU)
	add(d.BrandName, SuggestWeightBrand)
	return entries
}

// Summary projects the document onto the result-row shape.
func (d *ProductDocument) Summary() ProductSummary {
	s := ProductSummary{
		ID:          d.ID,
		ExternalID:  d.ExternalID,
		SKU:         d.SKU,
		Name:        d.Name,
		Description: d.Description,
		BrandName:   d.BrandName,
		Popularity:  d.Popularity,
	}
	if len(d.ImageURLs) > 0 {
		s.ImageURL = d.ImageURLs[0]
	}
	return s
}

// IndexGeneration is one complete, independently named build of the primary
// engine's dataset. Exactly one generation is live via the stable alias.
type IndexGeneration struct {
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}
