package domain

// Sort options for search results. Unknown values are coerced to relevance
// rather than rejected, in line with the rest of the request clamping rules.
const (
	SortRelevance  = "relevance"
	SortName       = "name"
	SortExternalID = "external_id"
	SortPopularity = "popularity"
)

// NormalizeSort coerces an arbitrary sort string to a supported option.
func NormalizeSort(sort string) string {
	switch sort {
	case SortName, SortExternalID, SortPopularity:
		return sort
	default:
		return SortRelevance
	}
}

// Result sources. SourceUnavailable marks the terminal degraded result
// returned when both search paths have failed.
const (
	SourcePrimary     = "primary"
	SourceRelational  = "relational"
	SourceUnavailable = "unavailable"
)

// Pagination bounds. Requests outside these bounds are clamped, never rejected.
const (
	MinPage      = 1
	MinPageSize  = 1
	MaxPageSize  = 100
	DefaultLimit = 20
)

// SearchRequest holds all recognized parameters of a search call.
type SearchRequest struct {
	Query  string `json:"query"`
	Page   int    `json:"page"`
	Limit  int    `json:"limit"`
	Sort   string `json:"sort"`
	CityID int    `json:"city_id"`
	UserID string `json:"user_id"`
}

// Clamp coerces page, limit, and sort into their valid ranges in place.
func (r *SearchRequest) Clamp() {
	if r.Page < MinPage {
		r.Page = MinPage
	}
	if r.Limit < MinPageSize {
		r.Limit = MinPageSize
	}
	if r.Limit > MaxPageSize {
		r.Limit = MaxPageSize
	}
	r.Sort = NormalizeSort(r.Sort)
}

// Diagnostics is an opaque trace record attached to every search result.
// It is for observability only and never affects control flow.
type Diagnostics struct {
	RequestID        string `json:"request_id"`
	Route            string `json:"route"`
	PrimaryAttempted bool   `json:"primary_attempted"`
	Error            string `json:"error,omitempty"`
}

// ProductSummary is a single product row in a search result.
type ProductSummary struct {
	ID          string            `json:"id"`
	ExternalID  string            `json:"external_id,omitempty"`
	SKU         string            `json:"sku,omitempty"`
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	BrandName   string            `json:"brand_name,omitempty"`
	ImageURL    string            `json:"image_url,omitempty"`
	Popularity  float64           `json:"popularity,omitempty"`
	Score       float64           `json:"score,omitempty"`
	Highlight   map[string]string `json:"highlight,omitempty"`
}

// SearchResult holds the paginated search response. Total reflects the full
// match count regardless of the pagination window.
type SearchResult struct {
	Products     []ProductSummary `json:"products"`
	Total        int              `json:"total"`
	Page         int              `json:"page"`
	Limit        int              `json:"limit"`
	Source       string           `json:"source"`
	UsedFallback bool             `json:"used_fallback"`
	Diagnostics  Diagnostics      `json:"diagnostics"`
}
